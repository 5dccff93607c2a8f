package models

import "strings"

// Quadrant is an Eisenhower matrix classification
type Quadrant string

const (
	QuadrantDoFirst   Quadrant = "DO_FIRST"
	QuadrantSchedule  Quadrant = "SCHEDULE"
	QuadrantDelegate  Quadrant = "DELEGATE"
	QuadrantEliminate Quadrant = "ELIMINATE"
)

// Quadrants lists every quadrant in matrix order
var Quadrants = []Quadrant{QuadrantDoFirst, QuadrantSchedule, QuadrantDelegate, QuadrantEliminate}

var quadrantAliases = map[Quadrant]string{
	QuadrantDoFirst:   "do_now",
	QuadrantSchedule:  "plan",
	QuadrantDelegate:  "delegate",
	QuadrantEliminate: "eliminate",
}

// Alias returns the short lowercase name of the quadrant
func (q Quadrant) Alias() string {
	return quadrantAliases[q]
}

// Label returns a human readable label
func (q Quadrant) Label() string {
	switch q {
	case QuadrantDoFirst:
		return "DO FIRST - Urgent & Important"
	case QuadrantSchedule:
		return "SCHEDULE - Important but not urgent"
	case QuadrantDelegate:
		return "DELEGATE - Urgent but less important"
	default:
		return "ELIMINATE - Neither urgent nor important"
	}
}

// ParseQuadrant accepts a canonical name or its alias, case-insensitively
func ParseQuadrant(s string) (Quadrant, bool) {
	s = strings.TrimSpace(s)
	for _, q := range Quadrants {
		if strings.EqualFold(s, string(q)) || strings.EqualFold(s, q.Alias()) {
			return q, true
		}
	}
	return "", false
}

// PriorityLevel buckets a priority score
type PriorityLevel string

const (
	PriorityHigh   PriorityLevel = "High"
	PriorityMedium PriorityLevel = "Medium"
	PriorityLow    PriorityLevel = "Low"
)

// Weights is the blend applied to the four factor scores
type Weights struct {
	Urgency    float64 `json:"urgency"`
	Importance float64 `json:"importance"`
	Effort     float64 `json:"effort"`
	Dependency float64 `json:"dependency"`
}

// Sum returns the total of all components
func (w Weights) Sum() float64 {
	return w.Urgency + w.Importance + w.Effort + w.Dependency
}

// FactorScores holds one value per scoring factor
type FactorScores struct {
	Urgency    float64 `json:"urgency"`
	Importance float64 `json:"importance"`
	Effort     float64 `json:"effort"`
	Dependency float64 `json:"dependency"`
}

// ScoredTask is the analysis output for one task
type ScoredTask struct {
	ID                  TaskID        `json:"id"`
	Title               string        `json:"title"`
	DueDate             *Date         `json:"due_date"`
	EstimatedHours      float64       `json:"estimated_hours"`
	Importance          int           `json:"importance"`
	Dependencies        []TaskID      `json:"dependencies"`
	Category            string        `json:"category,omitempty"`
	PriorityScore       float64       `json:"priority_score"`
	PriorityLevel       PriorityLevel `json:"priority_level"`
	Scores              FactorScores  `json:"scores"`
	Contributions       FactorScores  `json:"contributions"`
	Quadrant            Quadrant      `json:"eisenhower_quadrant"`
	ComplexityScore     float64       `json:"complexity_score"`
	IsOverdue           bool          `json:"is_overdue"`
	IsCircular          bool          `json:"is_circular"`
	IsBlockingOthers    bool          `json:"is_blocking_others"`
	BlockingCount       int           `json:"blocking_count"`
	WorkingDaysUntilDue *int          `json:"working_days_until_due"`
	Explanation         string        `json:"explanation"`
	Patterns            *PatternHints `json:"pattern_detection,omitempty"`
}

// Summary aggregates counts over an analysis
type Summary struct {
	TotalTasks          int              `json:"total_tasks"`
	HighPriorityCount   int              `json:"high_priority_count"`
	MediumPriorityCount int              `json:"medium_priority_count"`
	LowPriorityCount    int              `json:"low_priority_count"`
	OverdueCount        int              `json:"overdue_count"`
	CircularDetected    bool             `json:"circular_dependencies_detected"`
	Quadrants           map[Quadrant]int `json:"quadrants"`
}

// AnalysisResult is the ranked output of one analysis call
type AnalysisResult struct {
	Tasks         []ScoredTask `json:"tasks"`
	Strategy      string       `json:"strategy"`
	WeightsUsed   Weights      `json:"weights_used"`
	ReferenceDate Date         `json:"reference_date"`
	Summary       Summary      `json:"summary"`
	TimeContext   *TimeContext `json:"time_context,omitempty"`
}

// AnalyzeRequest is the input envelope for ranking
type AnalyzeRequest struct {
	Tasks              []Task   `json:"tasks"`
	Strategy           string   `json:"strategy,omitempty"`
	Weights            *Weights `json:"weights,omitempty"`
	ReferenceDate      *Date    `json:"reference_date,omitempty"`
	AutoDetectPatterns bool     `json:"auto_detect_patterns,omitempty"`
	TimeAware          bool     `json:"time_aware,omitempty"`
}

// SuggestRequest extends AnalyzeRequest with a daily budget
type SuggestRequest struct {
	AnalyzeRequest
	Count          int             `json:"count,omitempty" validate:"omitempty,min=1,max=50"`
	MaxHours       float64         `json:"max_hours,omitempty" validate:"omitempty,gt=0,lte=24"`
	CompletedTasks []CompletedTask `json:"completed_tasks,omitempty" validate:"omitempty,dive"`
}

// Suggestion is the result of picking tasks for today
type Suggestion struct {
	Tasks             []ScoredTask          `json:"suggested_tasks"`
	TotalHours        float64               `json:"total_estimated_hours"`
	Strategy          string                `json:"strategy_used"`
	WeightsUsed       Weights               `json:"weights_used"`
	Message           string                `json:"message"`
	QuadrantBreakdown map[Quadrant][]string `json:"quadrant_breakdown"`
	TimeContext       *TimeContext          `json:"time_context,omitempty"`
	FatigueAnalysis   *FatigueResult        `json:"fatigue_analysis,omitempty"`
}
