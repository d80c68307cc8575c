package domain

import (
	"fmt"
	"strings"
)

type RoutingMode string

const (
	// RoutingManual pins every message to one backend, even a degraded one.
	RoutingManual RoutingMode = "manual"
	// RoutingAssigned maps task categories to backends, falling back to
	// automatic scoring when no assignment matches.
	RoutingAssigned RoutingMode = "assigned"
	// RoutingAutomatic always delegates to the scoring function.
	RoutingAutomatic RoutingMode = "automatic"
)

// ScoreWeights weight the four performance axes in automatic selection.
type ScoreWeights struct {
	Speed      float64
	Accuracy   float64
	Creativity float64
	Cost       float64
}

func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{Speed: 0.25, Accuracy: 0.25, Creativity: 0.25, Cost: 0.25}
}

func (w ScoreWeights) Validate() error {
	for _, weight := range []struct {
		name  string
		value float64
	}{
		{"speed", w.Speed},
		{"accuracy", w.Accuracy},
		{"creativity", w.Creativity},
		{"cost", w.Cost},
	} {
		if weight.value < 0 {
			return fmt.Errorf("%s weight must not be negative", weight.name)
		}
	}
	if w.Speed+w.Accuracy+w.Creativity+w.Cost == 0 {
		return fmt.Errorf("at least one weight must be positive")
	}

	return nil
}

// RoutingPolicy is exactly one of: a manual pin, a category assignment map, or
// automatic scoring. Switching policy takes effect on the next message.
type RoutingPolicy struct {
	Mode        RoutingMode
	Pinned      BackendID
	Assignments map[Category]BackendID
	Weights     ScoreWeights
}

func (p RoutingPolicy) Validate() error {
	switch p.Mode {
	case RoutingManual:
		if strings.TrimSpace(string(p.Pinned)) == "" {
			return fmt.Errorf("manual policy requires a pinned backend")
		}
	case RoutingAssigned:
		if len(p.Assignments) == 0 {
			return fmt.Errorf("assigned policy requires at least one category assignment")
		}
		for category := range p.Assignments {
			if !category.Known() {
				return fmt.Errorf("unknown category %q in assignments", category)
			}
		}
	case RoutingAutomatic:
	case "":
		return fmt.Errorf("routing mode is required")
	default:
		return fmt.Errorf("unsupported routing mode %q", p.Mode)
	}

	return p.Weights.Validate()
}

// ReferencedBackends lists every backend id the policy points at, for
// configuration-time existence checks.
func (p RoutingPolicy) ReferencedBackends() []BackendID {
	ids := make([]BackendID, 0, 1+len(p.Assignments))
	if p.Pinned != "" {
		ids = append(ids, p.Pinned)
	}
	for _, id := range p.Assignments {
		ids = append(ids, id)
	}
	return ids
}
