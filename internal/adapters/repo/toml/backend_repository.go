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
	backendsPathKey  = "backends.path"
	backendsFileName = "backends.toml"
)

// BackendRepository persists the backend catalog.
type BackendRepository struct {
	path string
	mu   *sync.RWMutex
}

var _ ports.BackendRepository = (*BackendRepository)(nil)

func NewBackendRepository(cfg *viper.Viper) (*BackendRepository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	path := cfg.GetString(backendsPathKey)
	if path == "" {
		path = filepath.Join(homeDir, stateConfigDir, backendsFileName)
	}

	path, err = normalizeStatePath(path)
	if err != nil {
		return nil, err
	}

	return &BackendRepository{path: path, mu: lockForPath(path)}, nil
}

func (r *BackendRepository) Save(ctx context.Context, backend domain.Backend) error {
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

	encoded := toBackendSchema(backend)
	updated := false
	for i := range file.Backends {
		if file.Backends[i].ID == encoded.ID {
			file.Backends[i] = encoded
			updated = true
			break
		}
	}
	if !updated {
		file.Backends = append(file.Backends, encoded)
	}

	return writeTOMLFile(r.path, file)
}

func (r *BackendRepository) GetByID(ctx context.Context, id domain.BackendID) (domain.Backend, error) {
	if err := ctx.Err(); err != nil {
		return domain.Backend{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.Backend{}, err
	}

	for _, entry := range file.Backends {
		if entry.ID == string(id) {
			return fromBackendSchema(entry), nil
		}
	}

	return domain.Backend{}, domain.ErrBackendNotFound
}

func (r *BackendRepository) List(ctx context.Context) ([]domain.Backend, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return nil, err
	}

	backends := make([]domain.Backend, 0, len(file.Backends))
	for _, entry := range file.Backends {
		backends = append(backends, fromBackendSchema(entry))
	}

	return backends, nil
}

func (r *BackendRepository) readSchema() (backendsFileSchema, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return backendsFileSchema{}, nil
		}
		return backendsFileSchema{}, fmt.Errorf("read backends file: %w", err)
	}

	var file backendsFileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return backendsFileSchema{}, fmt.Errorf("decode backends file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return backendsFileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func toBackendSchema(backend domain.Backend) backendSchema {
	categories := make([]string, 0, len(backend.Categories))
	for _, category := range backend.Categories {
		categories = append(categories, string(category))
	}

	return backendSchema{
		ID:         string(backend.ID),
		Name:       backend.Name,
		Provider:   backend.Provider,
		Model:      backend.Model,
		Specialty:  backend.Specialty,
		Categories: categories,
		Performance: performanceSchema{
			Speed:      backend.Performance.Speed,
			Accuracy:   backend.Performance.Accuracy,
			Creativity: backend.Performance.Creativity,
			Cost:       backend.Performance.Cost,
		},
		Custom:    backend.Custom,
		SecretRef: backend.SecretRef,
		BaseURL:   backend.BaseURL,
	}
}

func fromBackendSchema(schema backendSchema) domain.Backend {
	categories := make([]domain.Category, 0, len(schema.Categories))
	for _, category := range schema.Categories {
		categories = append(categories, domain.Category(category))
	}

	return domain.Backend{
		ID:         domain.BackendID(schema.ID),
		Name:       schema.Name,
		Provider:   schema.Provider,
		Model:      schema.Model,
		Specialty:  schema.Specialty,
		Categories: categories,
		Performance: domain.PerformanceProfile{
			Speed:      schema.Performance.Speed,
			Accuracy:   schema.Performance.Accuracy,
			Creativity: schema.Performance.Creativity,
			Cost:       schema.Performance.Cost,
		},
		Custom:    schema.Custom,
		SecretRef: schema.SecretRef,
		BaseURL:   schema.BaseURL,
	}
}
