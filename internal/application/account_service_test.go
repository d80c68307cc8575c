package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/prometheus-orchestrator/internal/domain"
)

func newAccountFixture(t *testing.T) (*AccountService, *LedgerService) {
	t.Helper()

	accounts := newFakeAccountRepo()
	backends := newFakeBackendRepo(domain.SeedBackends()...)
	clock := newFakeClock()
	ledger := NewLedgerService(accounts, newFakeLedgerRepo(), clock, LedgerConfig{})

	return NewAccountService(accounts, backends, ledger, clock), ledger
}

func TestAccountServiceCreateGrantsInitialBalance(t *testing.T) {
	t.Parallel()

	svc, ledger := newAccountFixture(t)

	account, err := svc.Create(context.Background(), CreateAccountCommand{
		ID: "acct", Name: "Acct", InitialGrant: 2500,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SafetyModelDefault, account.SafetyModel)
	assert.Equal(t, domain.RoutingAutomatic, account.Policy.Mode)
	assert.True(t, account.Scopes.Enabled(domain.ScopeConversation))
	assert.False(t, account.Scopes.Enabled(domain.ScopeImages))

	balance, err := ledger.Balance(context.Background(), "acct")
	require.NoError(t, err)
	assert.Equal(t, int64(2500), balance)
}

func TestAccountServiceCreateDuplicateFails(t *testing.T) {
	t.Parallel()

	svc, _ := newAccountFixture(t)

	_, err := svc.Create(context.Background(), CreateAccountCommand{ID: "acct", Name: "Acct"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateAccountCommand{ID: "acct", Name: "Again"})
	require.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestAccountServiceSetRoutingPolicyValidatesBackends(t *testing.T) {
	t.Parallel()

	svc, _ := newAccountFixture(t)
	_, err := svc.Create(context.Background(), CreateAccountCommand{ID: "acct", Name: "Acct"})
	require.NoError(t, err)

	err = svc.SetRoutingPolicy(context.Background(), SetRoutingPolicyCommand{
		Account: "acct",
		Policy:  domain.RoutingPolicy{Mode: domain.RoutingManual, Pinned: "no-such-backend"},
	})
	require.ErrorIs(t, err, domain.ErrInvalidConfiguration)

	err = svc.SetRoutingPolicy(context.Background(), SetRoutingPolicyCommand{
		Account: "acct",
		Policy:  domain.RoutingPolicy{Mode: domain.RoutingManual, Pinned: "claude"},
	})
	require.NoError(t, err)

	status, err := svc.Status(context.Background(), "acct")
	require.NoError(t, err)
	assert.Equal(t, domain.RoutingManual, status.Account.Policy.Mode)
	assert.Equal(t, domain.BackendID("claude"), status.Account.Policy.Pinned)
}

func TestAccountServiceSetRoutingPolicyRejectsUnknownAssignment(t *testing.T) {
	t.Parallel()

	svc, _ := newAccountFixture(t)
	_, err := svc.Create(context.Background(), CreateAccountCommand{ID: "acct", Name: "Acct"})
	require.NoError(t, err)

	err = svc.SetRoutingPolicy(context.Background(), SetRoutingPolicyCommand{
		Account: "acct",
		Policy: domain.RoutingPolicy{
			Mode:        domain.RoutingAssigned,
			Assignments: map[domain.Category]domain.BackendID{domain.CategoryCode: "ghost"},
		},
	})
	require.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestAccountServiceSetSafetyModel(t *testing.T) {
	t.Parallel()

	svc, _ := newAccountFixture(t)
	_, err := svc.Create(context.Background(), CreateAccountCommand{ID: "acct", Name: "Acct"})
	require.NoError(t, err)

	err = svc.SetSafetyModel(context.Background(), SetSafetyModelCommand{Account: "acct", Model: "relaxed"})
	require.ErrorIs(t, err, domain.ErrInvalidConfiguration)

	err = svc.SetSafetyModel(context.Background(), SetSafetyModelCommand{Account: "acct", Model: domain.SafetyModelEnterprise})
	require.NoError(t, err)

	status, err := svc.Status(context.Background(), "acct")
	require.NoError(t, err)
	assert.Equal(t, domain.SafetyModelEnterprise, status.Account.SafetyModel)
	assert.Equal(t, domain.SafetyLevelMaximum, status.SafetyModel.Level)
}

func TestAccountServiceSetScope(t *testing.T) {
	t.Parallel()

	svc, _ := newAccountFixture(t)
	_, err := svc.Create(context.Background(), CreateAccountCommand{ID: "acct", Name: "Acct"})
	require.NoError(t, err)

	err = svc.SetScope(context.Background(), SetScopeCommand{Account: "acct", Scope: "telepathy", Enabled: true})
	require.ErrorIs(t, err, domain.ErrInvalidConfiguration)

	require.NoError(t, svc.SetScope(context.Background(), SetScopeCommand{Account: "acct", Scope: domain.ScopeImages, Enabled: true}))
	require.NoError(t, svc.SetScope(context.Background(), SetScopeCommand{Account: "acct", Scope: domain.ScopeExternal, Enabled: false}))

	status, err := svc.Status(context.Background(), "acct")
	require.NoError(t, err)
	assert.True(t, status.Account.Scopes.Enabled(domain.ScopeImages))
	assert.False(t, status.Account.Scopes.Enabled(domain.ScopeExternal))
	assert.True(t, status.Account.Scopes.Enabled(domain.ScopeConversation))
}

func TestAccountServiceStatusUnknownAccount(t *testing.T) {
	t.Parallel()

	svc, _ := newAccountFixture(t)

	_, err := svc.Status(context.Background(), "ghost")
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestRegistryServiceRegisterAndSeed(t *testing.T) {
	t.Parallel()

	svc := NewRegistryService(newFakeBackendRepo())

	seeded, err := svc.Seed(context.Background())
	require.NoError(t, err)
	assert.Len(t, seeded, 3)

	// Seeding again registers nothing new.
	seeded, err = svc.Seed(context.Background())
	require.NoError(t, err)
	assert.Empty(t, seeded)

	_, err = svc.Register(context.Background(), RegisterBackendCommand{Backend: domain.Backend{
		ID: "gpt4", Name: "GPT-4", Provider: "OpenAI",
		Categories:  []domain.Category{domain.CategoryChat},
		Performance: domain.PerformanceProfile{Speed: 50, Accuracy: 50, Creativity: 50, Cost: 50},
	}})
	require.ErrorIs(t, err, domain.ErrInvalidConfiguration)

	registered, err := svc.Register(context.Background(), RegisterBackendCommand{Backend: domain.Backend{
		ID: "local", Name: "Local Llama", Provider: "self-hosted", Custom: true,
		Categories:  []domain.Category{domain.CategoryChat, domain.CategoryChat, "Code"},
		Performance: domain.PerformanceProfile{Speed: 60, Accuracy: 70, Creativity: 65, Cost: 100},
	}})
	require.NoError(t, err)
	assert.Equal(t, []domain.Category{domain.CategoryChat, domain.CategoryCode}, registered.Categories)

	backends, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, backends, 4)
}

func TestRegistryServiceRegisterRejectsInvalid(t *testing.T) {
	t.Parallel()

	svc := NewRegistryService(newFakeBackendRepo())

	_, err := svc.Register(context.Background(), RegisterBackendCommand{Backend: domain.Backend{
		ID: "bad", Name: "Bad", Provider: "p",
		Categories:  []domain.Category{"sorcery"},
		Performance: domain.PerformanceProfile{Speed: 50, Accuracy: 50, Creativity: 50, Cost: 50},
	}})
	require.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}
