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
	memoryPathKey  = "memory.path"
	memoryFileName = "memory.toml"
)

// MemoryRepository persists memory blocks.
type MemoryRepository struct {
	path string
	mu   *sync.RWMutex
}

var _ ports.MemoryRepository = (*MemoryRepository)(nil)

func NewMemoryRepository(cfg *viper.Viper) (*MemoryRepository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	path := cfg.GetString(memoryPathKey)
	if path == "" {
		path = filepath.Join(homeDir, stateConfigDir, memoryFileName)
	}

	path, err = normalizeStatePath(path)
	if err != nil {
		return nil, err
	}

	return &MemoryRepository{path: path, mu: lockForPath(path)}, nil
}

func (r *MemoryRepository) Save(ctx context.Context, block domain.MemoryBlock) error {
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

	encoded := toBlockSchema(block)
	updated := false
	for i := range file.Blocks {
		if file.Blocks[i].ID == encoded.ID {
			file.Blocks[i] = encoded
			updated = true
			break
		}
	}
	if !updated {
		file.Blocks = append(file.Blocks, encoded)
	}

	return writeTOMLFile(r.path, file)
}

func (r *MemoryRepository) GetByID(ctx context.Context, id domain.BlockID) (domain.MemoryBlock, error) {
	if err := ctx.Err(); err != nil {
		return domain.MemoryBlock{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.MemoryBlock{}, err
	}

	for _, entry := range file.Blocks {
		if entry.ID == string(id) {
			return fromBlockSchema(entry), nil
		}
	}

	return domain.MemoryBlock{}, domain.ErrBlockNotFound
}

func (r *MemoryRepository) ListByAccount(ctx context.Context, account domain.AccountID) ([]domain.MemoryBlock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return nil, err
	}

	blocks := make([]domain.MemoryBlock, 0, len(file.Blocks))
	for _, entry := range file.Blocks {
		if entry.Account != string(account) {
			continue
		}
		blocks = append(blocks, fromBlockSchema(entry))
	}

	return blocks, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id domain.BlockID) error {
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

	kept := make([]blockSchema, 0, len(file.Blocks))
	found := false
	for _, entry := range file.Blocks {
		if entry.ID == string(id) {
			found = true
			continue
		}
		kept = append(kept, entry)
	}
	if !found {
		return domain.ErrBlockNotFound
	}
	file.Blocks = kept

	return writeTOMLFile(r.path, file)
}

func (r *MemoryRepository) readSchema() (memoryFileSchema, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return memoryFileSchema{}, nil
		}
		return memoryFileSchema{}, fmt.Errorf("read memory file: %w", err)
	}

	var file memoryFileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return memoryFileSchema{}, fmt.Errorf("decode memory file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return memoryFileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func toBlockSchema(block domain.MemoryBlock) blockSchema {
	return blockSchema{
		ID:           string(block.ID),
		Account:      string(block.Account),
		Title:        block.Title,
		Content:      block.Content,
		Type:         string(block.Type),
		Tags:         block.Tags,
		Importance:   string(block.Importance),
		Frozen:       block.Frozen,
		Session:      string(block.Session),
		Turn:         string(block.Turn),
		Backend:      string(block.Backend),
		MessageCount: block.MessageCount,
		CreatedAt:    formatTime(block.CreatedAt),
	}
}

func fromBlockSchema(schema blockSchema) domain.MemoryBlock {
	return domain.MemoryBlock{
		ID:           domain.BlockID(schema.ID),
		Account:      domain.AccountID(schema.Account),
		Title:        schema.Title,
		Content:      schema.Content,
		Type:         domain.BlockType(schema.Type),
		Tags:         schema.Tags,
		Importance:   domain.Importance(schema.Importance),
		Frozen:       schema.Frozen,
		Session:      domain.SessionID(schema.Session),
		Turn:         domain.TurnID(schema.Turn),
		Backend:      domain.BackendID(schema.Backend),
		MessageCount: schema.MessageCount,
		CreatedAt:    parseTime(schema.CreatedAt),
	}
}
