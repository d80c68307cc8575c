package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/prometheus-orchestrator/internal/domain"
	"github.com/bnema/prometheus-orchestrator/internal/ports"
)

// AccountService owns account lifecycle and configuration writes. Every
// configuration command validates eagerly so a bad policy is rejected here,
// never discovered mid-dispatch.
type AccountService struct {
	accounts ports.AccountRepository
	backends ports.BackendRepository
	ledger   *LedgerService
	clock    ports.Clock
}

func NewAccountService(accounts ports.AccountRepository, backends ports.BackendRepository, ledger *LedgerService, clock ports.Clock) *AccountService {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &AccountService{accounts: accounts, backends: backends, ledger: ledger, clock: clock}
}

func (s *AccountService) Create(ctx context.Context, cmd CreateAccountCommand) (domain.Account, error) {
	if _, err := s.accounts.GetByID(ctx, cmd.ID); err == nil {
		return domain.Account{}, fmt.Errorf("account %s already exists: %w", cmd.ID, domain.ErrInvalidConfiguration)
	} else if !errors.Is(err, domain.ErrAccountNotFound) {
		return domain.Account{}, fmt.Errorf("get account by id: %w", err)
	}

	account := domain.Account{
		ID:        cmd.ID,
		Name:      cmd.Name,
		CreatedAt: s.clock.Now(),
	}
	account.ApplyDefaults()
	if err := account.Validate(); err != nil {
		return domain.Account{}, err
	}

	if err := s.accounts.Save(ctx, account); err != nil {
		return domain.Account{}, fmt.Errorf("save account: %w", err)
	}

	if cmd.InitialGrant > 0 {
		if _, err := s.ledger.Credit(ctx, account.ID, cmd.InitialGrant, domain.ReasonGrant); err != nil {
			return domain.Account{}, fmt.Errorf("grant initial balance: %w", err)
		}
	}

	return account, nil
}

// SetRoutingPolicy replaces the account's policy. Referenced backends must
// exist; the new policy takes effect on the next message, never retroactively.
func (s *AccountService) SetRoutingPolicy(ctx context.Context, cmd SetRoutingPolicyCommand) error {
	account, err := s.accounts.GetByID(ctx, cmd.Account)
	if err != nil {
		return fmt.Errorf("get account by id: %w", err)
	}
	account.ApplyDefaults()

	policy := cmd.Policy
	if policy.Weights == (domain.ScoreWeights{}) {
		policy.Weights = domain.DefaultScoreWeights()
	}
	if err := policy.Validate(); err != nil {
		return fmt.Errorf("%v: %w", err, domain.ErrInvalidConfiguration)
	}

	for _, id := range policy.ReferencedBackends() {
		if _, err := s.backends.GetByID(ctx, id); err != nil {
			if errors.Is(err, domain.ErrBackendNotFound) {
				return fmt.Errorf("policy references unknown backend %s: %w", id, domain.ErrInvalidConfiguration)
			}
			return fmt.Errorf("get backend %s: %w", id, err)
		}
	}

	account.Policy = policy

	if err := s.accounts.Save(ctx, account); err != nil {
		return fmt.Errorf("save account policy: %w", err)
	}

	return nil
}

func (s *AccountService) SetSafetyModel(ctx context.Context, cmd SetSafetyModelCommand) error {
	if !cmd.Model.Known() {
		return fmt.Errorf("unknown safety model %q: %w", cmd.Model, domain.ErrInvalidConfiguration)
	}

	account, err := s.accounts.GetByID(ctx, cmd.Account)
	if err != nil {
		return fmt.Errorf("get account by id: %w", err)
	}
	account.ApplyDefaults()

	account.SafetyModel = cmd.Model

	if err := s.accounts.Save(ctx, account); err != nil {
		return fmt.Errorf("save account safety model: %w", err)
	}

	return nil
}

func (s *AccountService) SetScope(ctx context.Context, cmd SetScopeCommand) error {
	if !cmd.Scope.Known() {
		return fmt.Errorf("unknown visibility scope %q: %w", cmd.Scope, domain.ErrInvalidConfiguration)
	}

	account, err := s.accounts.GetByID(ctx, cmd.Account)
	if err != nil {
		return fmt.Errorf("get account by id: %w", err)
	}
	account.ApplyDefaults()

	account.Scopes = account.Scopes.Clone()
	account.Scopes[cmd.Scope] = cmd.Enabled

	if err := s.accounts.Save(ctx, account); err != nil {
		return fmt.Errorf("save account scopes: %w", err)
	}

	return nil
}

func (s *AccountService) Status(ctx context.Context, id domain.AccountID) (AccountStatus, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return AccountStatus{}, fmt.Errorf("get account by id: %w", err)
	}
	account.ApplyDefaults()

	balance, err := s.ledger.Balance(ctx, id)
	if err != nil {
		return AccountStatus{}, err
	}
	available, err := s.ledger.Available(ctx, id)
	if err != nil {
		return AccountStatus{}, err
	}

	model, _ := domain.SafetyModelByID(account.SafetyModel)

	return AccountStatus{
		Account:     account,
		Balance:     balance,
		Available:   available,
		SafetyModel: model,
	}, nil
}

func (s *AccountService) List(ctx context.Context) ([]domain.Account, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	for i := range accounts {
		accounts[i].ApplyDefaults()
	}

	return accounts, nil
}
