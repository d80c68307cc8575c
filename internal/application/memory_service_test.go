package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/prometheus-orchestrator/internal/domain"
)

func TestMemoryServicePutAssignsIDAndTimestamp(t *testing.T) {
	t.Parallel()

	repo := newFakeMemoryRepo()
	svc := NewMemoryService(repo, newFakeClock())

	id, err := svc.Put(context.Background(), domain.MemoryBlock{
		Account: "acct",
		Title:   "First block",
		Content: "content",
		Type:    domain.BlockConversation,
		Tags:    []string{"Chat", "chat", " "},
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	block, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, block.CreatedAt.IsZero())
	assert.Equal(t, domain.ImportanceLow, block.Importance)
	assert.Equal(t, []string{"Chat"}, block.Tags)
}

func TestMemoryServicePutRejectsInvalidBlock(t *testing.T) {
	t.Parallel()

	svc := NewMemoryService(newFakeMemoryRepo(), newFakeClock())

	_, err := svc.Put(context.Background(), domain.MemoryBlock{
		Account: "acct",
		Title:   "typed wrong",
		Content: "content",
		Type:    "scrapbook",
	})
	require.Error(t, err)
}

func TestMemoryServiceListFiltersAndOrders(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	repo := newFakeMemoryRepo(
		domain.MemoryBlock{ID: "a", Account: "acct", Title: "Sorting algorithms", Content: "quicksort notes", Type: domain.BlockCode, CreatedAt: base},
		domain.MemoryBlock{ID: "b", Account: "acct", Title: "Trip planning", Content: "pack light", Type: domain.BlockConversation, CreatedAt: base.Add(time.Hour)},
		domain.MemoryBlock{ID: "c", Account: "acct", Title: "More sorting", Content: "heapsort notes", Type: domain.BlockCode, CreatedAt: base.Add(2 * time.Hour)},
		domain.MemoryBlock{ID: "z", Account: "other", Title: "Sorting too", Content: "not yours", Type: domain.BlockCode, CreatedAt: base},
	)
	svc := NewMemoryService(repo, newFakeClock())

	blocks, err := svc.List(context.Background(), "acct", MemoryFilter{Type: domain.BlockCode, Query: "sort"})
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, domain.BlockID("c"), blocks[0].ID)
	assert.Equal(t, domain.BlockID("a"), blocks[1].ID)

	all, err := svc.List(context.Background(), "acct", MemoryFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMemoryServiceDeleteFrozenBlockConflicts(t *testing.T) {
	t.Parallel()

	repo := newFakeMemoryRepo(domain.MemoryBlock{
		ID: "pinned", Account: "acct", Title: "Keep this", Content: "important",
		Type: domain.BlockInsight, Frozen: true, CreatedAt: time.Now(),
	})
	svc := NewMemoryService(repo, newFakeClock())

	err := svc.Delete(context.Background(), "pinned")
	require.ErrorIs(t, err, domain.ErrBlockFrozen)
	assert.Equal(t, 1, repo.count())

	require.NoError(t, svc.SetFrozen(context.Background(), "pinned", false))
	require.NoError(t, svc.Delete(context.Background(), "pinned"))
	assert.Equal(t, 0, repo.count())
}

func TestMemoryServiceDeleteUnknownBlock(t *testing.T) {
	t.Parallel()

	svc := NewMemoryService(newFakeMemoryRepo(), newFakeClock())

	err := svc.Delete(context.Background(), "ghost")
	require.ErrorIs(t, err, domain.ErrBlockNotFound)
}

func TestMemoryServiceReclassifyRefusesFrozen(t *testing.T) {
	t.Parallel()

	repo := newFakeMemoryRepo(domain.MemoryBlock{
		ID: "pinned", Account: "acct", Title: "Keep", Content: "x",
		Type: domain.BlockConversation, Frozen: true, CreatedAt: time.Now(),
	})
	svc := NewMemoryService(repo, newFakeClock())

	err := svc.Reclassify(context.Background(), ReclassifyBlockCommand{Block: "pinned", Type: domain.BlockInsight})
	require.ErrorIs(t, err, domain.ErrBlockFrozen)
}

func TestMemoryServiceReclassifyUpdatesFields(t *testing.T) {
	t.Parallel()

	repo := newFakeMemoryRepo(domain.MemoryBlock{
		ID: "blk", Account: "acct", Title: "Notes", Content: "x",
		Type: domain.BlockConversation, Importance: domain.ImportanceLow, CreatedAt: time.Now(),
	})
	svc := NewMemoryService(repo, newFakeClock())

	err := svc.Reclassify(context.Background(), ReclassifyBlockCommand{
		Block:      "blk",
		Type:       domain.BlockKnowledge,
		Importance: domain.ImportanceHigh,
		Tags:       []string{"Golang", "golang"},
	})
	require.NoError(t, err)

	block, err := svc.Get(context.Background(), "blk")
	require.NoError(t, err)
	assert.Equal(t, domain.BlockKnowledge, block.Type)
	assert.Equal(t, domain.ImportanceHigh, block.Importance)
	assert.Equal(t, []string{"Golang"}, block.Tags)
}

func TestComposeFromTurnClassifies(t *testing.T) {
	t.Parallel()

	session := domain.Session{ID: "sess", Account: "acct"}
	now := time.Now()
	require.NoError(t, session.Append(domain.Message{ID: "m1", Role: domain.RoleUser, Content: "show me code", Timestamp: now, Sequence: 1}))
	require.NoError(t, session.Append(domain.Message{ID: "m2", Role: domain.RoleAssistant, Content: "```go\nfmt.Println()\n```", Timestamp: now, Sequence: 2, TokenCost: 350}))
	turn := domain.Turn{ID: "turn", Account: "acct", Session: "sess"}

	block := ComposeFromTurn(session, turn, session.Messages[0], session.Messages[1], []domain.Category{domain.CategoryCode})
	assert.Equal(t, domain.BlockCode, block.Type)
	assert.Equal(t, domain.ImportanceHigh, block.Importance)
	assert.Equal(t, []string{"code"}, block.Tags)
	assert.Equal(t, 2, block.MessageCount)
	assert.Equal(t, "show me code", block.Title)
}

func TestComposeFromTurnKnowledgeAndImportance(t *testing.T) {
	t.Parallel()

	session := domain.Session{ID: "sess", Account: "acct"}
	now := time.Now()
	require.NoError(t, session.Append(domain.Message{ID: "m1", Role: domain.RoleUser, Content: "explain raft consensus", Timestamp: now, Sequence: 1}))
	require.NoError(t, session.Append(domain.Message{ID: "m2", Role: domain.RoleAssistant, Content: "raft elects a leader", Timestamp: now, Sequence: 2, TokenCost: 120}))
	turn := domain.Turn{ID: "turn", Account: "acct", Session: "sess"}

	block := ComposeFromTurn(session, turn, session.Messages[0], session.Messages[1], nil)
	assert.Equal(t, domain.BlockKnowledge, block.Type)
	assert.Equal(t, domain.ImportanceMedium, block.Importance)
}
