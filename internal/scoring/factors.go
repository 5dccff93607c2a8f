package scoring

import (
	"math"
	"time"
)

const (
	// NoDueDateUrgency is the urgency of a task without a deadline
	NoDueDateUrgency = 30.0
	// DueTodayUrgency is the urgency of a task due on the reference date
	DueTodayUrgency = 75.0
	// OverdueSaturationDays is how many working days overdue it takes to reach maximum urgency
	OverdueSaturationDays = 14

	// DefaultEstimatedHours is used when a task has no (or a zero) effort estimate
	DefaultEstimatedHours = 4.0

	// MinImportance and MaxImportance bound the importance rating
	MinImportance = 1
	MaxImportance = 5

	// NoBlockersScore is the dependency score of a task nobody waits on
	NoBlockersScore = 30.0
)

// UrgencyResult is the outcome of scoring a deadline
type UrgencyResult struct {
	Score       float64
	Overdue     bool
	WorkingDays *int // signed working days until due; nil without a due date
	// DatePassed is set when the calendar date is behind today but only
	// non-working days lie in between, so the task is not yet overdue.
	DatePassed bool
}

// Urgency scores a deadline relative to today. Scores fall in [10, 100].
func (c *Calendar) Urgency(due *time.Time, today time.Time) UrgencyResult {
	if due == nil {
		return UrgencyResult{Score: NoDueDateUrgency}
	}

	days := c.WorkingDaysBetween(today, *due)
	result := UrgencyResult{WorkingDays: &days}

	switch {
	case days < 0:
		overdue := float64(-days)
		result.Overdue = true
		result.Score = math.Min(80+math.Min(overdue/OverdueSaturationDays, 1)*20, 100)
	case days == 0:
		result.Score = DueTodayUrgency
		result.DatePassed = dayNumber(*due) < dayNumber(today)
	case days <= 5:
		result.Score = 75 - float64(days)/5*25
	case days <= 22:
		result.Score = 50 - float64(days-5)/17*30
	default:
		result.Score = 10 + 10*math.Exp(-float64(days-22)/22)
	}
	return result
}

// ImportanceScore maps a 1-5 rating onto [10, 100] with a convex curve.
// Callers must validate the rating first; out-of-range values are clamped.
func ImportanceScore(rating int) float64 {
	if rating < MinImportance {
		rating = MinImportance
	}
	if rating > MaxImportance {
		rating = MaxImportance
	}
	normalized := float64(rating) / MaxImportance
	return 10 + math.Pow(normalized, 1.5)*90
}

// EffectiveHours applies the default to a missing or zero estimate.
func EffectiveHours(hours *float64) float64 {
	if hours == nil || *hours <= 0 {
		return DefaultEstimatedHours
	}
	return *hours
}

// EffortScore favours quick wins. Brackets include their lower edge.
//
//	[0, 2)   100 -> 80
//	[2, 8)    80 -> 50
//	[8, 40)   50 -> 20
//	[40, +)   20 -> 10 (asymptotic)
func EffortScore(hours float64) float64 {
	switch {
	case hours < 2:
		if hours < 0 {
			hours = 0
		}
		return 100 - hours/2*20
	case hours < 8:
		return 80 - (hours-2)/6*30
	case hours < 40:
		return 50 - (hours-8)/32*30
	default:
		return 10 + 10*math.Exp(-(hours-40)/40)
	}
}

// DependencyScore rewards tasks that unblock others.
func DependencyScore(blockingCount int) float64 {
	switch {
	case blockingCount >= 3:
		extra := blockingCount - 3
		if extra > 4 {
			extra = 4
		}
		return 80 + float64(extra)*5
	case blockingCount >= 1:
		return 50 + float64(blockingCount)*15
	default:
		return NoBlockersScore
	}
}
