package scoring

import (
	"math"
	"strings"

	"github.com/benvon/task-analyzer/internal/models"
)

// Strategy names
const (
	StrategySmartBalance   = "smart_balance"
	StrategyFastestWins    = "fastest_wins"
	StrategyHighImpact     = "high_impact"
	StrategyDeadlineDriven = "deadline_driven"
	StrategyCustom         = "custom"

	// DefaultStrategy is used when no strategy is named
	DefaultStrategy = StrategySmartBalance

	// WeightTolerance bounds how far custom weights may sum from 1.0; the bound itself is rejected
	WeightTolerance = 0.01
)

// StrategyInfo describes one entry of the strategy catalog
type StrategyInfo struct {
	Name        string          `json:"name"`
	DisplayName string          `json:"display_name"`
	Description string          `json:"description"`
	Weights     *models.Weights `json:"weights,omitempty"`
}

var builtinStrategies = []StrategyInfo{
	{
		Name:        StrategySmartBalance,
		DisplayName: "Smart Balance",
		Description: "Balanced consideration of urgency, importance, effort, and dependencies",
		Weights:     &models.Weights{Urgency: 0.30, Importance: 0.35, Effort: 0.15, Dependency: 0.20},
	},
	{
		Name:        StrategyFastestWins,
		DisplayName: "Fastest Wins",
		Description: "Prioritizes quick tasks to build momentum and clear the backlog",
		Weights:     &models.Weights{Urgency: 0.15, Importance: 0.20, Effort: 0.55, Dependency: 0.10},
	},
	{
		Name:        StrategyHighImpact,
		DisplayName: "High Impact",
		Description: "Focuses on the most important tasks regardless of deadline",
		Weights:     &models.Weights{Urgency: 0.15, Importance: 0.60, Effort: 0.10, Dependency: 0.15},
	},
	{
		Name:        StrategyDeadlineDriven,
		DisplayName: "Deadline Driven",
		Description: "Prioritizes tasks by how close their deadline is",
		Weights:     &models.Weights{Urgency: 0.55, Importance: 0.20, Effort: 0.10, Dependency: 0.15},
	},
}

var customStrategy = StrategyInfo{
	Name:        StrategyCustom,
	DisplayName: "Custom",
	Description: "Caller-supplied weights; must be non-negative and sum to 1.0",
}

// Strategies returns the strategy catalog in a fixed order. The result is a copy.
func Strategies() []StrategyInfo {
	out := make([]StrategyInfo, 0, len(builtinStrategies)+1)
	for _, s := range builtinStrategies {
		w := *s.Weights
		s.Weights = &w
		out = append(out, s)
	}
	return append(out, customStrategy)
}

// IsStrategy reports whether name is in the catalog. The empty name is accepted as the default.
func IsStrategy(name string) bool {
	name = normalizeStrategy(name)
	if name == StrategyCustom {
		return true
	}
	_, ok := lookupStrategy(name)
	return ok
}

// DisplayName returns the human readable name of a strategy.
func DisplayName(name string) string {
	name = normalizeStrategy(name)
	if s, ok := lookupStrategy(name); ok {
		return s.DisplayName
	}
	return customStrategy.DisplayName
}

// ResolveWeights maps a strategy name to its weights. For "custom" the supplied
// weights are validated and normalized to sum to exactly 1. Weights passed with a
// named strategy are ignored. The returned name is canonical.
func ResolveWeights(name string, custom *models.Weights) (string, models.Weights, error) {
	name = normalizeStrategy(name)

	if name == StrategyCustom {
		if err := ValidateWeights(custom); err != nil {
			return "", models.Weights{}, err
		}
		sum := custom.Sum()
		return name, models.Weights{
			Urgency:    custom.Urgency / sum,
			Importance: custom.Importance / sum,
			Effort:     custom.Effort / sum,
			Dependency: custom.Dependency / sum,
		}, nil
	}

	s, ok := lookupStrategy(name)
	if !ok {
		return "", models.Weights{}, newError(CodeInvalidStrategy, "strategy", models.TaskID{},
			"unknown strategy %q (valid: %s)", name, strings.Join(strategyNames(), ", "))
	}
	return name, *s.Weights, nil
}

// ValidateWeights checks that w is present and non-negative, and that its sum is
// strictly closer to 1 than WeightTolerance. A sum of 0.99 or 1.01 is rejected.
func ValidateWeights(w *models.Weights) error {
	if w == nil {
		return newError(CodeInvalidWeights, "weights", models.TaskID{}, "custom strategy requires weights")
	}
	components := []struct {
		field string
		value float64
	}{
		{"weights.urgency", w.Urgency},
		{"weights.importance", w.Importance},
		{"weights.effort", w.Effort},
		{"weights.dependency", w.Dependency},
	}
	for _, c := range components {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) {
			return newError(CodeInvalidWeights, c.field, models.TaskID{}, "weight must be a finite number")
		}
		if c.value < 0 {
			return newError(CodeInvalidWeights, c.field, models.TaskID{}, "weight must be non-negative, got %g", c.value)
		}
	}
	if sum := w.Sum(); math.Abs(sum-1) >= WeightTolerance-1e-9 {
		return newError(CodeInvalidWeights, "weights.sum", models.TaskID{}, "weights must sum to 1.0 (within %.2f), got %.4f", WeightTolerance, sum)
	}
	return nil
}

func normalizeStrategy(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return DefaultStrategy
	}
	return name
}

func lookupStrategy(name string) (StrategyInfo, bool) {
	for _, s := range builtinStrategies {
		if s.Name == name {
			return s, true
		}
	}
	return StrategyInfo{}, false
}

func strategyNames() []string {
	names := make([]string, 0, len(builtinStrategies)+1)
	for _, s := range builtinStrategies {
		names = append(names, s.Name)
	}
	return append(names, StrategyCustom)
}
