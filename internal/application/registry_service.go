package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/prometheus-orchestrator/internal/domain"
	"github.com/bnema/prometheus-orchestrator/internal/ports"
)

// RegistryService manages the backend catalog. Registration is an operator
// action; entries are immutable once registered.
type RegistryService struct {
	backends ports.BackendRepository
}

func NewRegistryService(backends ports.BackendRepository) *RegistryService {
	return &RegistryService{backends: backends}
}

func (s *RegistryService) Register(ctx context.Context, cmd RegisterBackendCommand) (domain.Backend, error) {
	backend := cmd.Backend
	backend.NormalizeCategories()
	if err := backend.Validate(); err != nil {
		return domain.Backend{}, fmt.Errorf("%v: %w", err, domain.ErrInvalidConfiguration)
	}

	if _, err := s.backends.GetByID(ctx, backend.ID); err == nil {
		return domain.Backend{}, fmt.Errorf("backend %s already registered: %w", backend.ID, domain.ErrInvalidConfiguration)
	} else if !errors.Is(err, domain.ErrBackendNotFound) {
		return domain.Backend{}, fmt.Errorf("get backend by id: %w", err)
	}

	if err := s.backends.Save(ctx, backend); err != nil {
		return domain.Backend{}, fmt.Errorf("save backend: %w", err)
	}

	return backend, nil
}

// Seed registers the reference catalog, skipping backends that already exist.
func (s *RegistryService) Seed(ctx context.Context) ([]domain.Backend, error) {
	registered := make([]domain.Backend, 0, 3)
	for _, backend := range domain.SeedBackends() {
		created, err := s.Register(ctx, RegisterBackendCommand{Backend: backend})
		if err != nil {
			if errors.Is(err, domain.ErrInvalidConfiguration) {
				continue
			}
			return nil, err
		}
		registered = append(registered, created)
	}

	return registered, nil
}

func (s *RegistryService) Get(ctx context.Context, id domain.BackendID) (domain.Backend, error) {
	backend, err := s.backends.GetByID(ctx, id)
	if err != nil {
		return domain.Backend{}, err
	}

	return backend, nil
}

func (s *RegistryService) List(ctx context.Context) ([]domain.Backend, error) {
	backends, err := s.backends.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list backends: %w", err)
	}

	return backends, nil
}
