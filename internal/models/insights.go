package models

// PatternHints are keyword-derived suggestions for a task's importance and effort
type PatternHints struct {
	SuggestedImportance  *int     `json:"suggested_importance"`
	SuggestedEffortHours *float64 `json:"suggested_effort_hours"`
	ImportanceConfidence float64  `json:"importance_confidence"`
	EffortConfidence     float64  `json:"effort_confidence"`
	DetectedKeywords     []string `json:"detected_keywords"`
}

// PatternRequest is the input for keyword detection
type PatternRequest struct {
	Title       string `json:"title" validate:"required,max=500"`
	Description string `json:"description,omitempty" validate:"max=5000"`
}

// TimeContext describes how much and what kind of work suits the current time of day
type TimeContext struct {
	Context           string  `json:"time_context"`
	SuggestedMaxHours float64 `json:"suggested_max_hours"`
	EffortPreference  string  `json:"effort_preference"`
	FocusLevel        string  `json:"focus_level"`
	Message           string  `json:"message"`
}

// CompletedTask is a previously finished piece of work used by the fatigue model
type CompletedTask struct {
	EffortHours float64 `json:"effort_hours" validate:"gte=0,lte=24"`
	Category    string  `json:"category,omitempty" validate:"max=100"`
}

// FatigueRequest is the input for the fatigue model
type FatigueRequest struct {
	CompletedTasks      []CompletedTask `json:"completed_tasks" validate:"omitempty,max=100,dive"`
	CurrentTaskEffort   float64         `json:"current_task_effort" validate:"gte=0"`
	CurrentTaskCategory string          `json:"current_task_category,omitempty" validate:"max=100"`
}

// FatigueResult describes estimated fatigue and the score multiplier it implies
type FatigueResult struct {
	FatigueLevel          float64 `json:"fatigue_level"`
	ScoreMultiplier       float64 `json:"score_multiplier"`
	TotalHoursWorked      float64 `json:"total_hours_worked"`
	ConsecutiveHeavyTasks int     `json:"consecutive_heavy_tasks"`
	SameCategoryStreak    int     `json:"same_category_streak"`
	Recommendation        string  `json:"recommendation"`
}
