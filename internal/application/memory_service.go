package application

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/bnema/prometheus-orchestrator/internal/domain"
	"github.com/bnema/prometheus-orchestrator/internal/ports"
)

// MemoryService is the durable index of completed exchanges and derived
// artifacts. Classification is denormalized onto the block at creation;
// reclassification is an explicit command.
type MemoryService struct {
	blocks ports.MemoryRepository
	clock  ports.Clock
}

func NewMemoryService(blocks ports.MemoryRepository, clock ports.Clock) *MemoryService {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &MemoryService{blocks: blocks, clock: clock}
}

func (s *MemoryService) Put(ctx context.Context, block domain.MemoryBlock) (domain.BlockID, error) {
	if block.ID == "" {
		block.ID = domain.BlockID(uuid.NewString())
	}
	if block.CreatedAt.IsZero() {
		block.CreatedAt = s.clock.Now()
	}
	if block.Importance == "" {
		block.Importance = domain.ImportanceLow
	}
	block.NormalizeTags()

	if err := block.Validate(); err != nil {
		return "", err
	}

	if err := s.blocks.Save(ctx, block); err != nil {
		return "", fmt.Errorf("save memory block: %w", err)
	}

	return block.ID, nil
}

func (s *MemoryService) Get(ctx context.Context, id domain.BlockID) (domain.MemoryBlock, error) {
	block, err := s.blocks.GetByID(ctx, id)
	if err != nil {
		return domain.MemoryBlock{}, err
	}

	return block, nil
}

// List filters by type and case-insensitive substring over title, content and
// tags, returning blocks in reverse-chronological order.
func (s *MemoryService) List(ctx context.Context, account domain.AccountID, filter MemoryFilter) ([]domain.MemoryBlock, error) {
	blocks, err := s.blocks.ListByAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("list memory blocks: %w", err)
	}

	matched := make([]domain.MemoryBlock, 0, len(blocks))
	for _, block := range blocks {
		if filter.Type != "" && block.Type != filter.Type {
			continue
		}
		if !block.MatchesQuery(filter.Query) {
			continue
		}
		matched = append(matched, block)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	return matched, nil
}

func (s *MemoryService) SetFrozen(ctx context.Context, id domain.BlockID, frozen bool) error {
	block, err := s.blocks.GetByID(ctx, id)
	if err != nil {
		return err
	}

	block.Frozen = frozen

	if err := s.blocks.Save(ctx, block); err != nil {
		return fmt.Errorf("save memory block: %w", err)
	}

	return nil
}

// Delete permanently removes a non-frozen block. Deleting a frozen block fails
// with domain.ErrBlockFrozen; the caller must unfreeze first.
func (s *MemoryService) Delete(ctx context.Context, id domain.BlockID) error {
	block, err := s.blocks.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if block.Frozen {
		return domain.ErrBlockFrozen
	}

	if err := s.blocks.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete memory block: %w", err)
	}

	return nil
}

// Reclassify updates type, tags and importance in one explicit write. Frozen
// blocks refuse reclassification.
func (s *MemoryService) Reclassify(ctx context.Context, cmd ReclassifyBlockCommand) error {
	block, err := s.blocks.GetByID(ctx, cmd.Block)
	if err != nil {
		return err
	}
	if block.Frozen {
		return domain.ErrBlockFrozen
	}

	if cmd.Type != "" {
		block.Type = cmd.Type
	}
	if cmd.Importance != "" {
		block.Importance = cmd.Importance
	}
	if cmd.Tags != nil {
		block.Tags = cmd.Tags
		block.NormalizeTags()
	}

	if err := block.Validate(); err != nil {
		return err
	}

	if err := s.blocks.Save(ctx, block); err != nil {
		return fmt.Errorf("save memory block: %w", err)
	}

	return nil
}

// ComposeFromTurn builds the memory block for a completed exchange. Type and
// importance are heuristic at creation time; reclassification is explicit.
func ComposeFromTurn(session domain.Session, turn domain.Turn, userMessage, reply domain.Message, categories []domain.Category) domain.MemoryBlock {
	block := domain.MemoryBlock{
		Account:      turn.Account,
		Title:        domain.SessionTitle(userMessage.Content),
		Content:      reply.Content,
		Type:         classifyBlock(userMessage.Content, reply.Content),
		Importance:   classifyImportance(reply.TokenCost),
		Session:      session.ID,
		Turn:         turn.ID,
		Backend:      reply.Backend,
		MessageCount: session.MessageCount(),
		CreatedAt:    reply.Timestamp,
	}

	for _, category := range categories {
		block.Tags = append(block.Tags, string(category))
	}
	block.NormalizeTags()

	return block
}

func classifyBlock(userContent, replyContent string) domain.BlockType {
	if strings.Contains(replyContent, "```") || strings.Contains(userContent, "```") {
		return domain.BlockCode
	}

	lowered := strings.ToLower(userContent)
	switch {
	case strings.Contains(lowered, "insight"), strings.Contains(lowered, "takeaway"):
		return domain.BlockInsight
	case strings.Contains(lowered, "explain"), strings.Contains(lowered, "what is"), strings.Contains(lowered, "how does"):
		return domain.BlockKnowledge
	default:
		return domain.BlockConversation
	}
}

func classifyImportance(tokenCost int64) domain.Importance {
	switch {
	case tokenCost >= 300:
		return domain.ImportanceHigh
	case tokenCost >= 100:
		return domain.ImportanceMedium
	default:
		return domain.ImportanceLow
	}
}
