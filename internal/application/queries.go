package application

import (
	"github.com/bnema/prometheus-orchestrator/internal/domain"
)

// AccountStatus is the read-only snapshot the presentation layer consumes.
// None of its fields are authoritative; the services own the state.
type AccountStatus struct {
	Account     domain.Account
	Balance     int64
	Available   int64
	SafetyModel domain.SafetyModel
}

// TurnResult reports the outcome of one turn, completed or failed.
type TurnResult struct {
	Turn     domain.Turn
	Reply    *domain.Message
	Charged  int64
	Estimate int64
}

func (r TurnResult) Completed() bool {
	return r.Turn.State == domain.TurnCompleted
}

// MemoryFilter narrows List results. Zero value matches everything.
type MemoryFilter struct {
	Type  domain.BlockType
	Query string
}

// SelectionRule names which router rule produced a decision.
type SelectionRule string

const (
	RulePin        SelectionRule = "pin"
	RuleAssignment SelectionRule = "assignment"
	RuleScored     SelectionRule = "scored"
	RuleDefault    SelectionRule = "default"
)

// Decision is a routing outcome: the chosen backend, the ranked alternates for
// failover, and the rule that fired.
type Decision struct {
	Backend    domain.BackendID
	Alternates []domain.BackendID
	Rule       SelectionRule
	Categories []domain.Category
}
