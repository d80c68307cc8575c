package ports

import (
	"context"

	"github.com/bnema/prometheus-orchestrator/internal/domain"
)

// SessionRepository persists the ordered message log per conversation. Save
// replaces the whole session; the append-only ordering is enforced by the
// domain before anything reaches the repository.
type SessionRepository interface {
	GetByID(ctx context.Context, id domain.SessionID) (domain.Session, error)
	ListByAccount(ctx context.Context, account domain.AccountID) ([]domain.Session, error)
	Save(ctx context.Context, session domain.Session) error
}
