package scoring

import (
	"fmt"
	"strings"

	"github.com/benvon/task-analyzer/internal/models"
)

const (
	// DefaultSuggestCount is how many tasks Suggest picks when count is not positive
	DefaultSuggestCount = 3
	// DefaultSuggestMaxHours is the daily budget when maxHours is not positive
	DefaultSuggestMaxHours = 8.0
)

// Suggest picks tasks to work on today from a ranked result. Overdue tasks are
// taken first in rank order; the rest is filled by rank while the hour budget
// allows. The first pick is always allowed even if it alone exceeds the budget.
func Suggest(result *models.AnalysisResult, count int, maxHours float64) models.Suggestion {
	if count <= 0 {
		count = DefaultSuggestCount
	}
	if maxHours <= 0 {
		maxHours = DefaultSuggestMaxHours
	}

	s := models.Suggestion{
		Tasks:             []models.ScoredTask{},
		QuadrantBreakdown: make(map[models.Quadrant][]string, len(models.Quadrants)),
	}
	for _, q := range models.Quadrants {
		s.QuadrantBreakdown[q] = []string{}
	}
	if result == nil {
		s.Message = "No tasks to suggest. Add some tasks to get started!"
		return s
	}
	s.Strategy = result.Strategy
	s.WeightsUsed = result.WeightsUsed

	picked := make([]bool, len(result.Tasks))
	for i, t := range result.Tasks {
		if len(s.Tasks) >= count {
			break
		}
		if t.IsOverdue {
			picked[i] = true
			s.Tasks = append(s.Tasks, t)
			s.TotalHours += t.EstimatedHours
		}
	}
	for i, t := range result.Tasks {
		if len(s.Tasks) >= count {
			break
		}
		if picked[i] {
			continue
		}
		if len(s.Tasks) == 0 || s.TotalHours+t.EstimatedHours <= maxHours {
			picked[i] = true
			s.Tasks = append(s.Tasks, t)
			s.TotalHours += t.EstimatedHours
		}
	}

	for _, t := range s.Tasks {
		s.QuadrantBreakdown[t.Quadrant] = append(s.QuadrantBreakdown[t.Quadrant], t.Title)
	}
	s.Message = suggestionMessage(s.Tasks, s.TotalHours, s.Strategy)
	return s
}

func suggestionMessage(tasks []models.ScoredTask, totalHours float64, strategy string) string {
	if len(tasks) == 0 {
		return "No tasks to suggest. Add some tasks to get started!"
	}

	var overdue, high int
	for _, t := range tasks {
		if t.IsOverdue {
			overdue++
		}
		if t.PriorityLevel == models.PriorityHigh {
			high++
		}
	}

	parts := []string{
		fmt.Sprintf("Recommended %d task(s) for today", len(tasks)),
		fmt.Sprintf("Total estimated time: %.1f hours", totalHours),
	}
	if overdue > 0 {
		parts = append(parts, fmt.Sprintf("%d overdue task(s) need immediate attention", overdue))
	}
	if high > 0 {
		parts = append(parts, fmt.Sprintf("%d high-priority task(s)", high))
	}
	parts = append(parts, "Strategy: "+DisplayName(strategy))
	return strings.Join(parts, ExplanationSeparator)
}
