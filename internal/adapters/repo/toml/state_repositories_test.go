package toml

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/prometheus-orchestrator/internal/domain"
)

func pathConfig(t *testing.T, key, file string) *viper.Viper {
	t.Helper()

	config := viper.New()
	config.Set(key, t.TempDir()+"/"+file)
	return config
}

func TestBackendRepositoryRoundTrip(t *testing.T) {
	t.Parallel()

	repo, err := NewBackendRepository(pathConfig(t, "backends.path", "backends.toml"))
	require.NoError(t, err)

	for _, backend := range domain.SeedBackends() {
		require.NoError(t, repo.Save(context.Background(), backend))
	}
	custom := domain.Backend{
		ID:          "local",
		Name:        "Local Llama",
		Provider:    "self-hosted",
		Model:       "llama-3-70b",
		Categories:  []domain.Category{domain.CategoryChat, domain.CategoryCode},
		Performance: domain.PerformanceProfile{Speed: 60, Accuracy: 70, Creativity: 65, Cost: 100},
		Custom:      true,
		SecretRef:   "self-hosted/local",
		BaseURL:     "http://127.0.0.1:8080/v1",
	}
	require.NoError(t, repo.Save(context.Background(), custom))

	got, err := repo.GetByID(context.Background(), "local")
	require.NoError(t, err)
	assert.Equal(t, custom, got)

	backends, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, backends, 4)

	_, err = repo.GetByID(context.Background(), "ghost")
	require.ErrorIs(t, err, domain.ErrBackendNotFound)
}

func TestSessionRepositoryRoundTripPreservesMessageOrder(t *testing.T) {
	t.Parallel()

	repo, err := NewSessionRepository(pathConfig(t, "sessions.path", "sessions.toml"))
	require.NoError(t, err)

	now := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
	session := domain.Session{
		ID:        "sess-1",
		Account:   "acct-1",
		Title:     "Sorting question",
		CreatedAt: now,
	}
	require.NoError(t, session.Append(domain.Message{
		ID: "m1", Role: domain.RoleUser, Content: "how does quicksort work",
		Timestamp: now, Sequence: 1,
	}))
	require.NoError(t, session.Append(domain.Message{
		ID: "m2", Role: domain.RoleAssistant, Content: "it partitions around a pivot",
		Timestamp: now.Add(2 * time.Second), Sequence: 2, Backend: "gpt4", TokenCost: 42,
	}))

	require.NoError(t, repo.Save(context.Background(), session))

	got, err := repo.GetByID(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, session, got)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, int64(1), got.Messages[0].Sequence)
	assert.Equal(t, int64(2), got.Messages[1].Sequence)

	_, err = repo.GetByID(context.Background(), "sess-2")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionRepositoryListByAccount(t *testing.T) {
	t.Parallel()

	repo, err := NewSessionRepository(pathConfig(t, "sessions.path", "sessions.toml"))
	require.NoError(t, err)

	require.NoError(t, repo.Save(context.Background(), domain.Session{ID: "s1", Account: "acct-1"}))
	require.NoError(t, repo.Save(context.Background(), domain.Session{ID: "s2", Account: "acct-1"}))
	require.NoError(t, repo.Save(context.Background(), domain.Session{ID: "s3", Account: "acct-2"}))

	sessions, err := repo.ListByAccount(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}

func TestLedgerRepositoryAppendOnly(t *testing.T) {
	t.Parallel()

	repo, err := NewLedgerRepository(pathConfig(t, "ledger.path", "ledger.toml"))
	require.NoError(t, err)

	now := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
	grant := domain.LedgerEntry{ID: "e1", Account: "acct-1", Delta: 1000, Reason: domain.ReasonGrant, Timestamp: now}
	spend := domain.LedgerEntry{ID: "e2", Account: "acct-1", Delta: -120, Reason: domain.ReasonSpend, Turn: "turn-1", Timestamp: now.Add(time.Minute)}
	other := domain.LedgerEntry{ID: "e3", Account: "acct-2", Delta: 500, Reason: domain.ReasonPurchase, Timestamp: now}

	require.NoError(t, repo.Append(context.Background(), grant))
	require.NoError(t, repo.Append(context.Background(), spend))
	require.NoError(t, repo.Append(context.Background(), other))

	entries, err := repo.ListByAccount(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.Equal(t, []domain.LedgerEntry{grant, spend}, entries)
	assert.Equal(t, int64(880), domain.BalanceOf(entries))

	// Duplicate ids are refused; the log never rewrites history.
	err = repo.Append(context.Background(), grant)
	require.Error(t, err)
	assert.ErrorContains(t, err, "already recorded")
}

func TestMemoryRepositoryRoundTripAndDelete(t *testing.T) {
	t.Parallel()

	repo, err := NewMemoryRepository(pathConfig(t, "memory.path", "memory.toml"))
	require.NoError(t, err)

	now := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
	block := domain.MemoryBlock{
		ID:           "blk-1",
		Account:      "acct-1",
		Title:        "Quicksort explained",
		Content:      "it partitions around a pivot\nrecursing on both halves",
		Type:         domain.BlockKnowledge,
		Tags:         []string{"code", "sorting"},
		Importance:   domain.ImportanceMedium,
		Session:      "sess-1",
		Turn:         "turn-1",
		Backend:      "gpt4",
		MessageCount: 2,
		CreatedAt:    now,
	}

	require.NoError(t, repo.Save(context.Background(), block))

	got, err := repo.GetByID(context.Background(), "blk-1")
	require.NoError(t, err)
	assert.Equal(t, block, got)

	frozen := block
	frozen.ID = "blk-2"
	frozen.Frozen = true
	require.NoError(t, repo.Save(context.Background(), frozen))

	blocks, err := repo.ListByAccount(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.Len(t, blocks, 2)

	require.NoError(t, repo.Delete(context.Background(), "blk-1"))
	_, err = repo.GetByID(context.Background(), "blk-1")
	require.ErrorIs(t, err, domain.ErrBlockNotFound)

	err = repo.Delete(context.Background(), "blk-1")
	require.ErrorIs(t, err, domain.ErrBlockNotFound)
}
