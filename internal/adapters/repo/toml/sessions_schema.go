package toml

import "fmt"

type sessionsFileSchema struct {
	Version  int             `toml:"version"`
	Sessions []sessionSchema `toml:"sessions"`
}

func (s *sessionsFileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s sessionsFileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported sessions schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type sessionSchema struct {
	ID             string          `toml:"id"`
	Account        string          `toml:"account"`
	Title          string          `toml:"title,omitempty"`
	Messages       []messageSchema `toml:"messages"`
	CreatedAt      string          `toml:"created_at,omitempty"`
	LastActivityAt string          `toml:"last_activity_at,omitempty"`
}

type messageSchema struct {
	ID        string `toml:"id"`
	Role      string `toml:"role"`
	Content   string `toml:"content"`
	Timestamp string `toml:"timestamp,omitempty"`
	Sequence  int64  `toml:"sequence"`
	Backend   string `toml:"backend,omitempty"`
	TokenCost int64  `toml:"token_cost,omitempty"`
}
