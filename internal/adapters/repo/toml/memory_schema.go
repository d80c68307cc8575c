package toml

import "fmt"

type memoryFileSchema struct {
	Version int           `toml:"version"`
	Blocks  []blockSchema `toml:"blocks"`
}

func (s *memoryFileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s memoryFileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported memory schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type blockSchema struct {
	ID           string   `toml:"id"`
	Account      string   `toml:"account"`
	Title        string   `toml:"title"`
	Content      string   `toml:"content,multiline,omitempty"`
	Type         string   `toml:"type"`
	Tags         []string `toml:"tags,omitempty"`
	Importance   string   `toml:"importance"`
	Frozen       bool     `toml:"frozen,omitempty"`
	Session      string   `toml:"session,omitempty"`
	Turn         string   `toml:"turn,omitempty"`
	Backend      string   `toml:"backend,omitempty"`
	MessageCount int      `toml:"message_count,omitempty"`
	CreatedAt    string   `toml:"created_at,omitempty"`
}
