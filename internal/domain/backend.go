package domain

import (
	"fmt"
	"strings"
)

type BackendID string
type Category string

const (
	CategoryChat     Category = "chat"
	CategoryCode     Category = "code"
	CategoryWriting  Category = "writing"
	CategoryAnalysis Category = "analysis"
	CategoryStrategy Category = "strategy"
	CategoryResearch Category = "research"
)

func KnownCategories() []Category {
	return []Category{
		CategoryChat,
		CategoryCode,
		CategoryWriting,
		CategoryAnalysis,
		CategoryStrategy,
		CategoryResearch,
	}
}

func (c Category) Known() bool {
	for _, known := range KnownCategories() {
		if c == known {
			return true
		}
	}
	return false
}

// PerformanceProfile scores a backend on a 0-100 scale per axis. Cost is a
// cost-efficiency score: higher means cheaper to run.
type PerformanceProfile struct {
	Speed      int
	Accuracy   int
	Creativity int
	Cost       int
}

func (p PerformanceProfile) Validate() error {
	for _, score := range []struct {
		name  string
		value int
	}{
		{"speed", p.Speed},
		{"accuracy", p.Accuracy},
		{"creativity", p.Creativity},
		{"cost", p.Cost},
	} {
		if score.value < 0 || score.value > 100 {
			return fmt.Errorf("%s score %d out of range [0,100]", score.name, score.value)
		}
	}

	return nil
}

// Backend is an interchangeable model persona. Entries are created by operator
// commands and are immutable once registered.
type Backend struct {
	ID          BackendID
	Name        string
	Provider    string
	Model       string
	Specialty   string
	Categories  []Category
	Performance PerformanceProfile
	Custom      bool
	// SecretRef points to the credential entry for this backend's API,
	// typically in "provider/backend-id" form.
	SecretRef string
	BaseURL   string
}

func (b Backend) Validate() error {
	if strings.TrimSpace(string(b.ID)) == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(b.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(b.Provider) == "" {
		return fmt.Errorf("provider is required")
	}
	if len(b.Categories) == 0 {
		return fmt.Errorf("at least one capability category is required")
	}
	for _, category := range b.Categories {
		if !category.Known() {
			return fmt.Errorf("unknown category %q", category)
		}
	}

	return b.Performance.Validate()
}

func (b *Backend) NormalizeCategories() {
	if b == nil {
		return
	}

	categories := make([]Category, 0, len(b.Categories))
	seen := make(map[Category]struct{}, len(b.Categories))
	for _, category := range b.Categories {
		trimmed := Category(strings.ToLower(strings.TrimSpace(string(category))))
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		categories = append(categories, trimmed)
	}

	b.Categories = categories
}

func (b Backend) HasCategory(category Category) bool {
	for _, own := range b.Categories {
		if own == category {
			return true
		}
	}
	return false
}

// SeedBackends is the reference catalog registered by `prom backend seed`.
func SeedBackends() []Backend {
	return []Backend{
		{
			ID:          "gpt4",
			Name:        "GPT-4",
			Provider:    "OpenAI",
			Model:       "gpt-4-turbo",
			Specialty:   "General Intelligence",
			Categories:  []Category{CategoryChat, CategoryWriting, CategoryAnalysis},
			Performance: PerformanceProfile{Speed: 85, Accuracy: 95, Creativity: 90, Cost: 80},
		},
		{
			ID:          "claude",
			Name:        "Claude",
			Provider:    "Anthropic",
			Model:       "claude-3-opus",
			Specialty:   "Reasoning & Analysis",
			Categories:  []Category{CategoryAnalysis, CategoryResearch, CategoryStrategy},
			Performance: PerformanceProfile{Speed: 80, Accuracy: 98, Creativity: 85, Cost: 85},
		},
		{
			ID:          "mistral",
			Name:        "Mistral",
			Provider:    "Mistral AI",
			Model:       "mistral-large",
			Specialty:   "Code & Logic",
			Categories:  []Category{CategoryCode, CategoryAnalysis},
			Performance: PerformanceProfile{Speed: 95, Accuracy: 90, Creativity: 75, Cost: 70},
		},
	}
}
