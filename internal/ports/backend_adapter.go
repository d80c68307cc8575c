package ports

import (
	"context"

	"github.com/bnema/prometheus-orchestrator/internal/domain"
)

// BackendAdapter invokes one model backend. Implementations must honor context
// cancellation and map transport failures onto domain.ErrBackendUnavailable or
// domain.ErrBackendTimeout.
type BackendAdapter interface {
	Invoke(ctx context.Context, backend domain.Backend, prompt domain.PromptContext) (domain.BackendResponse, error)
}
