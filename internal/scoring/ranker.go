package scoring

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/benvon/task-analyzer/internal/models"
)

// Request is the input to a single ranking
type Request struct {
	Tasks    []models.Task
	Strategy string
	Weights  *models.Weights
	// Today is the reference date. Only its calendar date (in its own location) is used.
	Today time.Time
}

// Ranker scores and orders task sets. It holds no per-call state and is safe
// for concurrent use.
type Ranker struct {
	calendar *Calendar
	maxTasks int
	now      func() time.Time
}

// Option configures a Ranker
type Option func(*Ranker)

// WithMaxTasks rejects task lists longer than n. Zero disables the limit.
func WithMaxTasks(n int) Option {
	return func(r *Ranker) {
		r.maxTasks = n
	}
}

// WithClock supplies the reference date for requests that leave Today unset.
func WithClock(now func() time.Time) Option {
	return func(r *Ranker) {
		r.now = now
	}
}

// NewRanker creates a ranker over the given calendar. A nil calendar uses DefaultCalendar.
func NewRanker(calendar *Calendar, opts ...Option) *Ranker {
	if calendar == nil {
		calendar = DefaultCalendar()
	}
	r := &Ranker{calendar: calendar, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Calendar returns the calendar the ranker counts working days with.
func (r *Ranker) Calendar() *Calendar {
	return r.calendar
}

// Rank validates the request, scores every task and returns them ordered by
// priority, highest first. Equal priorities keep their input order.
func (r *Ranker) Rank(req Request) (*models.AnalysisResult, error) {
	if len(req.Tasks) == 0 {
		return nil, newError(CodeNoTasks, "tasks", models.TaskID{}, "at least one task is required")
	}
	if r.maxTasks > 0 && len(req.Tasks) > r.maxTasks {
		return nil, newError(CodeInvalidTasks, "tasks", models.TaskID{}, "too many tasks: %d (max %d)", len(req.Tasks), r.maxTasks)
	}
	for i := range req.Tasks {
		if err := validateTask(i, &req.Tasks[i]); err != nil {
			return nil, err
		}
	}

	graph, err := NewDependencyGraph(req.Tasks)
	if err != nil {
		return nil, err
	}

	strategy, weights, err := ResolveWeights(req.Strategy, req.Weights)
	if err != nil {
		return nil, err
	}

	todayTime := req.Today
	if todayTime.IsZero() {
		todayTime = r.now()
	}
	today := models.NewDate(todayTime)
	circular := graph.DetectCycles()

	scored := make([]models.ScoredTask, len(req.Tasks))
	for i := range req.Tasks {
		scored[i] = r.scoreTask(&req.Tasks[i], today.Time, weights, graph, circular)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].PriorityScore > scored[j].PriorityScore
	})

	return &models.AnalysisResult{
		Tasks:         scored,
		Strategy:      strategy,
		WeightsUsed:   weights,
		ReferenceDate: today,
		Summary:       Summarize(scored),
	}, nil
}

func (r *Ranker) scoreTask(t *models.Task, today time.Time, w models.Weights, g *DependencyGraph, circular map[models.TaskID]bool) models.ScoredTask {
	var due *time.Time
	if t.DueDate != nil {
		due = &t.DueDate.Time
	}
	urgency := r.calendar.Urgency(due, today)
	hours := EffectiveHours(t.EstimatedHours)
	blocking := g.BlockingCount(t.ID)

	scores := models.FactorScores{
		Urgency:    urgency.Score,
		Importance: ImportanceScore(t.Importance),
		Effort:     EffortScore(hours),
		Dependency: DependencyScore(blocking),
	}
	contributions := Contributions(scores, w)
	priority := Blend(scores, w)
	quadrant := Classify(scores.Urgency, scores.Importance)
	isCircular := circular[t.ID]
	title := strings.TrimSpace(t.Title)

	deps := make([]models.TaskID, len(t.Dependencies))
	copy(deps, t.Dependencies)

	var dueDate *models.Date
	if t.DueDate != nil {
		d := *t.DueDate
		dueDate = &d
	}

	return models.ScoredTask{
		ID:                  t.ID,
		Title:               title,
		DueDate:             dueDate,
		EstimatedHours:      hours,
		Importance:          t.Importance,
		Dependencies:        deps,
		Category:            t.Category,
		PriorityScore:       priority,
		PriorityLevel:       Level(priority),
		Scores:              scores,
		Contributions:       contributions,
		Quadrant:            quadrant,
		ComplexityScore:     Complexity(title, len(t.Dependencies), hours),
		IsOverdue:           urgency.Overdue,
		IsCircular:          isCircular,
		IsBlockingOthers:    blocking > 0,
		BlockingCount:       blocking,
		WorkingDaysUntilDue: urgency.WorkingDays,
		Explanation: Explain(ExplainInput{
			Priority:      priority,
			Contributions: contributions,
			Quadrant:      quadrant,
			Importance:    t.Importance,
			Hours:         hours,
			Overdue:       urgency.Overdue,
			DatePassed:    urgency.DatePassed,
			WorkingDays:   urgency.WorkingDays,
			BlockingCount: blocking,
			Circular:      isCircular,
		}),
	}
}

// Summarize counts levels, overdue tasks, cycles and quadrants over scored tasks.
func Summarize(tasks []models.ScoredTask) models.Summary {
	s := models.Summary{
		TotalTasks: len(tasks),
		Quadrants:  make(map[models.Quadrant]int, len(models.Quadrants)),
	}
	for _, q := range models.Quadrants {
		s.Quadrants[q] = 0
	}
	for _, t := range tasks {
		switch t.PriorityLevel {
		case models.PriorityHigh:
			s.HighPriorityCount++
		case models.PriorityMedium:
			s.MediumPriorityCount++
		default:
			s.LowPriorityCount++
		}
		if t.IsOverdue {
			s.OverdueCount++
		}
		if t.IsCircular {
			s.CircularDetected = true
		}
		s.Quadrants[t.Quadrant]++
	}
	return s
}

func validateTask(position int, t *models.Task) error {
	if strings.TrimSpace(t.ID.String()) == "" {
		return newError(CodeInvalidTasks, "id", models.TaskID{}, "task at position %d has no id", position)
	}
	if strings.TrimSpace(t.Title) == "" {
		return newError(CodeInvalidTasks, "title", t.ID, "title is required")
	}
	if t.Importance < MinImportance || t.Importance > MaxImportance {
		return newError(CodeInvalidTasks, "importance", t.ID,
			"importance must be between %d and %d, got %d", MinImportance, MaxImportance, t.Importance)
	}
	if t.EstimatedHours != nil {
		h := *t.EstimatedHours
		if math.IsNaN(h) || math.IsInf(h, 0) || h < 0 {
			return newError(CodeInvalidTasks, "estimated_hours", t.ID, "estimated hours must be a non-negative number")
		}
	}
	return nil
}
