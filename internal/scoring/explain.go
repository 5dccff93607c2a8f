package scoring

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/benvon/task-analyzer/internal/models"
)

// ExplanationSeparator joins the parts of an explanation
const ExplanationSeparator = " | "

// ExplainInput carries everything the explanation template reads
type ExplainInput struct {
	Priority      float64
	Contributions models.FactorScores
	Quadrant      models.Quadrant
	Importance    int
	Hours         float64
	Overdue       bool
	DatePassed    bool
	WorkingDays   *int
	BlockingCount int
	Circular      bool
}

// Explain renders a deterministic, human readable explanation of a score.
// The first part names the dominant factor and the last part carries the score.
func Explain(in ExplainInput) string {
	dominant := DominantFactor(in.Contributions)

	parts := []string{
		leadFor(dominant, in),
		in.Quadrant.Label(),
		deadlineText(in.Overdue, in.DatePassed, in.WorkingDays),
		importanceText(in.Importance),
		effortText(in.Hours),
	}
	if in.BlockingCount > 0 {
		parts = append(parts, fmt.Sprintf("BLOCKING: %d other task(s) depend on this - prioritize!", in.BlockingCount))
	}
	if in.Circular {
		parts = append(parts, "CIRCULAR DEPENDENCY: part of a dependency cycle - review task structure")
	}
	parts = append(parts, fmt.Sprintf("Score: %.1f/100 (Primary factor: %s)", in.Priority, dominant))

	return strings.Join(parts, ExplanationSeparator)
}

func leadFor(f Factor, in ExplainInput) string {
	switch f {
	case FactorUrgency:
		switch {
		case in.Overdue:
			return "Deadline pressure: this task is overdue"
		case in.WorkingDays != nil && *in.WorkingDays == 0 && in.DatePassed:
			return "Deadline pressure: due date passed with no working days remaining"
		case in.WorkingDays != nil && *in.WorkingDays == 0:
			return "Deadline pressure: due today"
		case in.WorkingDays != nil:
			return fmt.Sprintf("Deadline pressure: due in %d working day(s)", *in.WorkingDays)
		default:
			return "Deadline pressure: no due date, moderate urgency assumed"
		}
	case FactorImportance:
		return fmt.Sprintf("Driven by importance: rated %d/%d", in.Importance, MaxImportance)
	case FactorEffort:
		return fmt.Sprintf("Driven by effort: %sh estimated", formatHours(in.Hours))
	default:
		return fmt.Sprintf("Driven by dependencies: blocks %d other task(s)", in.BlockingCount)
	}
}

func deadlineText(overdue, datePassed bool, workingDays *int) string {
	if workingDays == nil {
		return "No due date set - moderate urgency assumed"
	}
	d := *workingDays
	switch {
	case overdue:
		return fmt.Sprintf("OVERDUE by %d working day(s) - needs immediate attention!", -d)
	case d == 0 && datePassed:
		return "Due (no working days remaining) - critical deadline"
	case d == 0:
		return "Due TODAY - critical deadline"
	case d <= 2:
		return fmt.Sprintf("Due in %d working day(s) - very urgent", d)
	case d <= 5:
		return fmt.Sprintf("Due in %d working days - approaching deadline", d)
	case d <= 10:
		return fmt.Sprintf("Due in %d working days - plan this week", d)
	default:
		return fmt.Sprintf("Due in %d working days - schedule for later", d)
	}
}

func importanceText(rating int) string {
	switch {
	case rating >= 5:
		return fmt.Sprintf("Critical importance (%d/5) - business-critical task", rating)
	case rating == 4:
		return "High importance (4/5) - significant impact"
	case rating == 3:
		return "Moderate importance (3/5)"
	default:
		return fmt.Sprintf("Lower importance (%d/5) - consider if necessary", rating)
	}
}

func effortText(hours float64) string {
	h := formatHours(hours)
	switch {
	case hours <= 1:
		return fmt.Sprintf("Quick win (%sh) - easy to complete", h)
	case hours <= 2:
		return fmt.Sprintf("Short task (%sh) - good for focused session", h)
	case hours <= 4:
		return fmt.Sprintf("Half-day task (%sh)", h)
	case hours <= 8:
		return fmt.Sprintf("Full-day task (%sh) - block dedicated time", h)
	default:
		return fmt.Sprintf("Large project (%sh) - consider breaking down", h)
	}
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}
