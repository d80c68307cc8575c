package domain

import (
	"fmt"
	"strings"
	"time"
)

type AccountID string

type Account struct {
	ID          AccountID
	Name        string
	SafetyModel SafetyModelID
	Scopes      ScopeConfig
	Policy      RoutingPolicy
	CreatedAt   time.Time
}

func (a Account) Validate() error {
	if strings.TrimSpace(string(a.ID)) == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if a.SafetyModel != "" && !a.SafetyModel.Known() {
		return fmt.Errorf("unknown safety model %q", a.SafetyModel)
	}

	return a.Policy.Validate()
}

// ApplyDefaults fills the safety model, scope configuration, and routing policy
// for accounts persisted before those fields existed.
func (a *Account) ApplyDefaults() {
	if a == nil {
		return
	}
	if a.SafetyModel == "" {
		a.SafetyModel = SafetyModelDefault
	}
	if a.Scopes == nil {
		a.Scopes = DefaultScopeConfig()
	}
	if a.Policy.Mode == "" {
		a.Policy.Mode = RoutingAutomatic
	}
	if a.Policy.Weights == (ScoreWeights{}) {
		a.Policy.Weights = DefaultScoreWeights()
	}
}
