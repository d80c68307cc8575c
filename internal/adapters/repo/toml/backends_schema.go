package toml

import "fmt"

type backendsFileSchema struct {
	Version  int             `toml:"version"`
	Backends []backendSchema `toml:"backends"`
}

func (s *backendsFileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s backendsFileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported backends schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type backendSchema struct {
	ID          string            `toml:"id"`
	Name        string            `toml:"name"`
	Provider    string            `toml:"provider"`
	Model       string            `toml:"model,omitempty"`
	Specialty   string            `toml:"specialty,omitempty"`
	Categories  []string          `toml:"categories"`
	Performance performanceSchema `toml:"performance"`
	Custom      bool              `toml:"custom,omitempty"`
	SecretRef   string            `toml:"secret_ref,omitempty"`
	BaseURL     string            `toml:"base_url,omitempty"`
}

type performanceSchema struct {
	Speed      int `toml:"speed"`
	Accuracy   int `toml:"accuracy"`
	Creativity int `toml:"creativity"`
	Cost       int `toml:"cost"`
}
