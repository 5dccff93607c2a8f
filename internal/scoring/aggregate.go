package scoring

import (
	"math"
	"unicode/utf8"

	"github.com/benvon/task-analyzer/internal/models"
)

const (
	// QuadrantThreshold splits urgent/important from not; the threshold itself counts as urgent/important
	QuadrantThreshold = 60.0

	// HighPriorityThreshold and MediumPriorityThreshold bound the priority levels
	HighPriorityThreshold   = 75.0
	MediumPriorityThreshold = 50.0
)

// Factor names a scoring factor
type Factor string

const (
	FactorUrgency    Factor = "Urgency"
	FactorImportance Factor = "Importance"
	FactorEffort     Factor = "Effort"
	FactorDependency Factor = "Dependencies"
)

// Contributions weights each factor score.
func Contributions(scores models.FactorScores, w models.Weights) models.FactorScores {
	return models.FactorScores{
		Urgency:    scores.Urgency * w.Urgency,
		Importance: scores.Importance * w.Importance,
		Effort:     scores.Effort * w.Effort,
		Dependency: scores.Dependency * w.Dependency,
	}
}

// Blend returns the weighted sum of the factor scores. With weights summing to 1
// this is a weighted average, so the result is clamped into the range of the
// inputs to absorb floating point drift.
func Blend(scores models.FactorScores, w models.Weights) float64 {
	c := Contributions(scores, w)
	total := c.Urgency + c.Importance + c.Effort + c.Dependency

	lo := math.Min(math.Min(scores.Urgency, scores.Importance), math.Min(scores.Effort, scores.Dependency))
	hi := math.Max(math.Max(scores.Urgency, scores.Importance), math.Max(scores.Effort, scores.Dependency))
	return math.Max(lo, math.Min(hi, total))
}

// Classify places a task in the Eisenhower matrix from its urgency and importance scores.
func Classify(urgencyScore, importanceScore float64) models.Quadrant {
	urgent := urgencyScore >= QuadrantThreshold
	important := importanceScore >= QuadrantThreshold

	switch {
	case urgent && important:
		return models.QuadrantDoFirst
	case important:
		return models.QuadrantSchedule
	case urgent:
		return models.QuadrantDelegate
	default:
		return models.QuadrantEliminate
	}
}

// Level buckets a priority score.
func Level(priority float64) models.PriorityLevel {
	switch {
	case priority >= HighPriorityThreshold:
		return models.PriorityHigh
	case priority >= MediumPriorityThreshold:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

// Complexity estimates how involved a task is, in [0, 1]. Longer titles, more
// dependencies and larger estimates all push it up.
func Complexity(title string, dependencyCount int, hours float64) float64 {
	titlePart := math.Min(float64(utf8.RuneCountInString(title))/100, 1) * 0.3
	depPart := math.Min(float64(dependencyCount)/5, 1) * 0.4
	effortPart := math.Min(math.Max(hours, 0)/20, 1) * 0.3
	return math.Min(titlePart+depPart+effortPart, 1)
}

// DominantFactor returns the factor with the largest weighted contribution.
// Ties resolve in the order urgency, importance, effort, dependency.
func DominantFactor(c models.FactorScores) Factor {
	best, bestValue := FactorUrgency, c.Urgency
	for _, f := range []struct {
		factor Factor
		value  float64
	}{
		{FactorImportance, c.Importance},
		{FactorEffort, c.Effort},
		{FactorDependency, c.Dependency},
	} {
		if f.value > bestValue {
			best, bestValue = f.factor, f.value
		}
	}
	return best
}
