package domain

import (
	"fmt"
	"strings"
	"time"
)

type BlockID string

type BlockType string

const (
	BlockConversation BlockType = "conversation"
	BlockKnowledge    BlockType = "knowledge"
	BlockInsight      BlockType = "insight"
	BlockCode         BlockType = "code"
)

func (t BlockType) Known() bool {
	switch t {
	case BlockConversation, BlockKnowledge, BlockInsight, BlockCode:
		return true
	default:
		return false
	}
}

type Importance string

const (
	ImportanceLow    Importance = "low"
	ImportanceMedium Importance = "medium"
	ImportanceHigh   Importance = "high"
)

func (i Importance) Known() bool {
	switch i {
	case ImportanceLow, ImportanceMedium, ImportanceHigh:
		return true
	default:
		return false
	}
}

// MemoryBlock is a persisted, classifiable artifact derived from a completed
// turn. Frozen blocks are immutable until explicitly unfrozen.
type MemoryBlock struct {
	ID           BlockID
	Account      AccountID
	Title        string
	Content      string
	Type         BlockType
	Tags         []string
	Importance   Importance
	Frozen       bool
	Session      SessionID
	Turn         TurnID
	Backend      BackendID
	MessageCount int
	CreatedAt    time.Time
}

func (b MemoryBlock) Validate() error {
	if strings.TrimSpace(string(b.ID)) == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(string(b.Account)) == "" {
		return fmt.Errorf("account is required")
	}
	if strings.TrimSpace(b.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if !b.Type.Known() {
		return fmt.Errorf("unknown block type %q", b.Type)
	}
	if !b.Importance.Known() {
		return fmt.Errorf("unknown importance %q", b.Importance)
	}

	return nil
}

func (b *MemoryBlock) NormalizeTags() {
	if b == nil {
		return
	}

	tags := make([]string, 0, len(b.Tags))
	seen := make(map[string]struct{}, len(b.Tags))
	for _, tag := range b.Tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		tags = append(tags, trimmed)
	}

	b.Tags = tags
}

// MatchesQuery reports whether the block matches a case-insensitive substring
// query over title, content, and tags.
func (b MemoryBlock) MatchesQuery(query string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return true
	}

	if strings.Contains(strings.ToLower(b.Title), query) {
		return true
	}
	if strings.Contains(strings.ToLower(b.Content), query) {
		return true
	}
	for _, tag := range b.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}

	return false
}
