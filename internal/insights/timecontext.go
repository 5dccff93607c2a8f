package insights

import (
	"time"

	"github.com/benvon/task-analyzer/internal/models"
)

type timeBracket struct {
	from, to int // hours, [from, to)
	context  models.TimeContext
}

var timeBrackets = []timeBracket{
	{5, 9, models.TimeContext{
		Context: "early_morning", SuggestedMaxHours: 8, EffortPreference: "high", FocusLevel: "high",
		Message: "Early morning - great time for complex, high-focus tasks!",
	}},
	{9, 12, models.TimeContext{
		Context: "morning", SuggestedMaxHours: 6, EffortPreference: "high", FocusLevel: "high",
		Message: "Peak productivity hours - tackle your most important work!",
	}},
	{12, 14, models.TimeContext{
		Context: "midday", SuggestedMaxHours: 4, EffortPreference: "medium", FocusLevel: "medium",
		Message: "Post-lunch period - good for moderate complexity tasks.",
	}},
	{14, 17, models.TimeContext{
		Context: "afternoon", SuggestedMaxHours: 4, EffortPreference: "medium", FocusLevel: "medium",
		Message: "Afternoon focus - balance important and quick-win tasks.",
	}},
	{17, 20, models.TimeContext{
		Context: "evening", SuggestedMaxHours: 2, EffortPreference: "low", FocusLevel: "low",
		Message: "Evening hours - focus on lighter tasks or wrap-up work.",
	}},
	{20, 23, models.TimeContext{
		Context: "late_evening", SuggestedMaxHours: 1, EffortPreference: "low", FocusLevel: "low",
		Message: "Late evening - only tackle quick, low-effort tasks.",
	}},
}

var nightContext = models.TimeContext{
	Context: "night", SuggestedMaxHours: 0.5, EffortPreference: "minimal", FocusLevel: "minimal",
	Message: "Late night - consider resting! Only urgent items if needed.",
}

// TimeContextAt describes the working context for the hour of now, in now's location.
func TimeContextAt(now time.Time) models.TimeContext {
	hour := now.Hour()
	for _, b := range timeBrackets {
		if hour >= b.from && hour < b.to {
			return b.context
		}
	}
	return nightContext
}
