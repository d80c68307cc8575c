package toml

import "fmt"

type ledgerFileSchema struct {
	Version int           `toml:"version"`
	Entries []entrySchema `toml:"entries"`
}

func (s *ledgerFileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s ledgerFileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported ledger schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type entrySchema struct {
	ID        string `toml:"id"`
	Account   string `toml:"account"`
	Delta     int64  `toml:"delta"`
	Reason    string `toml:"reason"`
	Turn      string `toml:"turn,omitempty"`
	Timestamp string `toml:"timestamp,omitempty"`
}
