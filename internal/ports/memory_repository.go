package ports

import (
	"context"

	"github.com/bnema/prometheus-orchestrator/internal/domain"
)

type MemoryRepository interface {
	GetByID(ctx context.Context, id domain.BlockID) (domain.MemoryBlock, error)
	ListByAccount(ctx context.Context, account domain.AccountID) ([]domain.MemoryBlock, error)
	Save(ctx context.Context, block domain.MemoryBlock) error
	Delete(ctx context.Context, id domain.BlockID) error
}
