package ports

import (
	"context"

	"github.com/bnema/prometheus-orchestrator/internal/domain"
)

// LedgerRepository is an append-only store of balance movements.
type LedgerRepository interface {
	Append(ctx context.Context, entry domain.LedgerEntry) error
	ListByAccount(ctx context.Context, account domain.AccountID) ([]domain.LedgerEntry, error)
}
