package application

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bnema/prometheus-orchestrator/internal/domain"
	"github.com/bnema/prometheus-orchestrator/internal/ports"
)

// RouterService picks the backend for each incoming message. Selection is
// fully deterministic: identical account, message, registry and weights always
// yield the same decision.
type RouterService struct {
	backends ports.BackendRepository
	// fallback is the backend used when no registered backend matches any
	// implied category.
	fallback domain.BackendID
}

func NewRouterService(backends ports.BackendRepository, fallback domain.BackendID) *RouterService {
	return &RouterService{backends: backends, fallback: fallback}
}

// Select applies the account's routing policy: manual pin first, then category
// assignment, then weighted scoring, then the designated fallback backend.
func (s *RouterService) Select(ctx context.Context, account domain.Account, content, taskHint string) (Decision, error) {
	policy := account.Policy

	// An explicit pin is honored unconditionally; routing never silently
	// overrides a user's choice.
	if policy.Mode == domain.RoutingManual {
		return Decision{Backend: policy.Pinned, Rule: RulePin}, nil
	}

	categories := impliedCategories(content, taskHint)

	if policy.Mode == domain.RoutingAssigned {
		for _, category := range categories {
			if assigned, ok := policy.Assignments[category]; ok {
				return Decision{Backend: assigned, Rule: RuleAssignment, Categories: categories}, nil
			}
		}
	}

	backends, err := s.backends.List(ctx)
	if err != nil {
		return Decision{}, fmt.Errorf("list backends: %w", err)
	}

	candidates := make([]domain.Backend, 0, len(backends))
	for _, backend := range backends {
		if intersects(backend, categories) {
			candidates = append(candidates, backend)
		}
	}

	if len(candidates) == 0 {
		if s.fallback == "" {
			return Decision{}, fmt.Errorf("no backend matches categories %v and no fallback is configured: %w", categories, domain.ErrBackendNotFound)
		}
		return Decision{Backend: s.fallback, Rule: RuleDefault, Categories: categories}, nil
	}

	weights := policy.Weights
	if weights == (domain.ScoreWeights{}) {
		weights = domain.DefaultScoreWeights()
	}

	// Ties break by cheapest first (highest cost-efficiency score), then by
	// backend id, so repeated runs are reproducible.
	sort.Slice(candidates, func(i, j int) bool {
		left, right := score(candidates[i], weights), score(candidates[j], weights)
		if left != right {
			return left > right
		}
		if candidates[i].Performance.Cost != candidates[j].Performance.Cost {
			return candidates[i].Performance.Cost > candidates[j].Performance.Cost
		}
		return candidates[i].ID < candidates[j].ID
	})

	decision := Decision{
		Backend:    candidates[0].ID,
		Rule:       RuleScored,
		Categories: categories,
	}
	for _, alternate := range candidates[1:] {
		decision.Alternates = append(decision.Alternates, alternate.ID)
	}

	return decision, nil
}

func score(backend domain.Backend, weights domain.ScoreWeights) float64 {
	p := backend.Performance
	return weights.Speed*float64(p.Speed) +
		weights.Accuracy*float64(p.Accuracy) +
		weights.Creativity*float64(p.Creativity) +
		weights.Cost*float64(p.Cost)
}

func intersects(backend domain.Backend, categories []domain.Category) bool {
	for _, category := range categories {
		if backend.HasCategory(category) {
			return true
		}
	}
	return false
}

var categoryKeywords = map[domain.Category][]string{
	domain.CategoryCode:     {"code", "function", "bug", "compile", "refactor", "debug", "```"},
	domain.CategoryAnalysis: {"analyze", "analysis", "data", "compare", "metric", "chart"},
	domain.CategoryWriting:  {"write", "draft", "essay", "blog", "rewrite", "summarize"},
	domain.CategoryStrategy: {"strategy", "plan", "roadmap", "prioritize", "okr"},
	domain.CategoryResearch: {"research", "paper", "study", "sources", "literature"},
}

// impliedCategories derives the task's categories. A known hint wins; else
// keyword heuristics over the message, with chat as the last resort. Keyword
// checks iterate in a fixed category order to stay deterministic.
func impliedCategories(content, taskHint string) []domain.Category {
	hint := domain.Category(strings.ToLower(strings.TrimSpace(taskHint)))
	if hint.Known() {
		return []domain.Category{hint}
	}

	lowered := strings.ToLower(content)
	matched := make([]domain.Category, 0, 2)
	for _, category := range []domain.Category{
		domain.CategoryCode,
		domain.CategoryAnalysis,
		domain.CategoryWriting,
		domain.CategoryStrategy,
		domain.CategoryResearch,
	} {
		for _, keyword := range categoryKeywords[category] {
			if strings.Contains(lowered, keyword) {
				matched = append(matched, category)
				break
			}
		}
	}

	if len(matched) == 0 {
		return []domain.Category{domain.CategoryChat}
	}

	return matched
}
