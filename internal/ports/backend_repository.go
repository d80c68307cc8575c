package ports

import (
	"context"

	"github.com/bnema/prometheus-orchestrator/internal/domain"
)

// BackendRepository is the registry of available model backends. Entries are
// created by operator commands; Save never overwrites an existing id.
type BackendRepository interface {
	GetByID(ctx context.Context, id domain.BackendID) (domain.Backend, error)
	List(ctx context.Context) ([]domain.Backend, error)
	Save(ctx context.Context, backend domain.Backend) error
}
