package insights

import (
	"math"

	"github.com/benvon/task-analyzer/internal/models"
)

const (
	// HeavyTaskHours is the effort above which a completed task counts as heavy
	HeavyTaskHours = 2.0
	// HeavyFollowUpHours is the effort above which the next task is penalized when already tired
	HeavyFollowUpHours = 4.0
)

type fatigueBand struct {
	below          float64
	multiplier     float64
	recommendation string
}

var fatigueBands = []fatigueBand{
	{20, 1.0, "Energy levels good - proceed with planned tasks."},
	{40, 0.95, "Slight fatigue - consider mixing in a quick win."},
	{60, 0.85, "Moderate fatigue - prioritize shorter, easier tasks."},
	{80, 0.70, "High fatigue - strongly recommend switching to quick tasks or taking a break."},
	{math.Inf(1), 0.50, "Very high fatigue - consider stopping or only doing minimal tasks."},
}

// Fatigue estimates how tired the worker is from completed tasks, most recent
// last, and how much the next task's score should be discounted.
func Fatigue(completed []models.CompletedTask, currentEffort float64, currentCategory string) models.FatigueResult {
	if len(completed) == 0 {
		return models.FatigueResult{
			ScoreMultiplier: 1.0,
			Recommendation:  "Fresh start - ready for any task!",
		}
	}

	var total float64
	for _, c := range completed {
		total += c.EffortHours
	}

	heavy := 0
	for i := len(completed) - 1; i >= 0 && completed[i].EffortHours > HeavyTaskHours; i-- {
		heavy++
	}

	streak := 0
	if currentCategory != "" {
		for i := len(completed) - 1; i >= 0 && completed[i].Category == currentCategory; i-- {
			streak++
		}
	}

	level := math.Min(100, total/8*40+float64(heavy)*15+float64(streak)*10)

	var band fatigueBand
	for _, b := range fatigueBands {
		if level < b.below {
			band = b
			break
		}
	}

	multiplier := band.multiplier
	recommendation := band.recommendation
	if currentEffort > HeavyFollowUpHours && level > 50 {
		multiplier *= 0.8
		recommendation += " Avoid starting new heavy tasks."
	}

	return models.FatigueResult{
		FatigueLevel:          round(level, 1),
		ScoreMultiplier:       round(multiplier, 2),
		TotalHoursWorked:      round(total, 1),
		ConsecutiveHeavyTasks: heavy,
		SameCategoryStreak:    streak,
		Recommendation:        recommendation,
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
