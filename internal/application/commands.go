package application

import (
	"github.com/bnema/prometheus-orchestrator/internal/domain"
)

type CreateAccountCommand struct {
	ID           domain.AccountID
	Name         string
	InitialGrant int64
}

type SendMessageCommand struct {
	Account domain.AccountID
	Session domain.SessionID
	Content string
	// TaskHint optionally names a task category; automatic scoring infers one
	// from the content when the hint is absent or unknown.
	TaskHint string
	// Context carries scoped segments attached by the presentation layer
	// (conversation history, documents, and so on). Segments from disabled
	// scopes are stripped by the safety gate before dispatch.
	Context []domain.ContextSegment
}

type SetRoutingPolicyCommand struct {
	Account domain.AccountID
	Policy  domain.RoutingPolicy
}

type SetSafetyModelCommand struct {
	Account domain.AccountID
	Model   domain.SafetyModelID
}

type SetScopeCommand struct {
	Account domain.AccountID
	Scope   domain.ScopeID
	Enabled bool
}

type CreditCommand struct {
	Account domain.AccountID
	Amount  int64
	Reason  domain.EntryReason
}

type RegisterBackendCommand struct {
	Backend domain.Backend
}

type ReclassifyBlockCommand struct {
	Block      domain.BlockID
	Type       domain.BlockType
	Tags       []string
	Importance domain.Importance
}
