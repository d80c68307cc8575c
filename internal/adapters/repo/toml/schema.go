package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version  int             `toml:"version"`
	Accounts []accountSchema `toml:"accounts"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported accounts schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type accountSchema struct {
	ID          string          `toml:"id"`
	Name        string          `toml:"name"`
	SafetyModel string          `toml:"safety_model,omitempty"`
	Scopes      map[string]bool `toml:"scopes,omitempty"`
	Policy      policySchema    `toml:"policy"`
	CreatedAt   string          `toml:"created_at,omitempty"`
}

type policySchema struct {
	Mode        string            `toml:"mode"`
	Pinned      string            `toml:"pinned,omitempty"`
	Assignments map[string]string `toml:"assignments,omitempty"`
	Weights     weightsSchema     `toml:"weights"`
}

type weightsSchema struct {
	Speed      float64 `toml:"speed"`
	Accuracy   float64 `toml:"accuracy"`
	Creativity float64 `toml:"creativity"`
	Cost       float64 `toml:"cost"`
}
