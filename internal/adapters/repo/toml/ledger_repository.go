package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/bnema/prometheus-orchestrator/internal/domain"
	"github.com/bnema/prometheus-orchestrator/internal/ports"
)

const (
	ledgerPathKey  = "ledger.path"
	ledgerFileName = "ledger.toml"
)

// LedgerRepository persists the token ledger. The file is strictly
// append-only: entries are never rewritten or removed.
type LedgerRepository struct {
	path string
	mu   *sync.RWMutex
}

var _ ports.LedgerRepository = (*LedgerRepository)(nil)

func NewLedgerRepository(cfg *viper.Viper) (*LedgerRepository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	path := cfg.GetString(ledgerPathKey)
	if path == "" {
		path = filepath.Join(homeDir, stateConfigDir, ledgerFileName)
	}

	path, err = normalizeStatePath(path)
	if err != nil {
		return nil, err
	}

	return &LedgerRepository{path: path, mu: lockForPath(path)}, nil
}

func (r *LedgerRepository) Append(ctx context.Context, entry domain.LedgerEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}
	file.applyDefaults()

	encoded := toEntrySchema(entry)
	for _, existing := range file.Entries {
		if existing.ID == encoded.ID {
			return fmt.Errorf("ledger entry %s already recorded", encoded.ID)
		}
	}
	file.Entries = append(file.Entries, encoded)

	return writeTOMLFile(r.path, file)
}

func (r *LedgerRepository) ListByAccount(ctx context.Context, account domain.AccountID) ([]domain.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return nil, err
	}

	entries := make([]domain.LedgerEntry, 0, len(file.Entries))
	for _, entry := range file.Entries {
		if entry.Account != string(account) {
			continue
		}
		entries = append(entries, fromEntrySchema(entry))
	}

	return entries, nil
}

func (r *LedgerRepository) readSchema() (ledgerFileSchema, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ledgerFileSchema{}, nil
		}
		return ledgerFileSchema{}, fmt.Errorf("read ledger file: %w", err)
	}

	var file ledgerFileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return ledgerFileSchema{}, fmt.Errorf("decode ledger file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return ledgerFileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func toEntrySchema(entry domain.LedgerEntry) entrySchema {
	return entrySchema{
		ID:        string(entry.ID),
		Account:   string(entry.Account),
		Delta:     entry.Delta,
		Reason:    string(entry.Reason),
		Turn:      string(entry.Turn),
		Timestamp: formatTime(entry.Timestamp),
	}
}

func fromEntrySchema(schema entrySchema) domain.LedgerEntry {
	return domain.LedgerEntry{
		ID:        domain.EntryID(schema.ID),
		Account:   domain.AccountID(schema.Account),
		Delta:     schema.Delta,
		Reason:    domain.EntryReason(schema.Reason),
		Turn:      domain.TurnID(schema.Turn),
		Timestamp: parseTime(schema.Timestamp),
	}
}
