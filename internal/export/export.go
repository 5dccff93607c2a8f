// Package export renders analysis results as downloadable JSON and CSV documents.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/benvon/task-analyzer/internal/models"
)

// FormatVersion is bumped whenever the exported document layout changes
const FormatVersion = "1.0"

// Document is the JSON export envelope
type Document struct {
	ExportedAt    time.Time `json:"exported_at"`
	FormatVersion string    `json:"format_version"`
	*models.AnalysisResult
}

// CSVHeader lists the CSV columns in order
var CSVHeader = []string{
	"Rank",
	"Title",
	"Priority Score",
	"Priority Level",
	"Urgency Score",
	"Importance Score",
	"Effort Score",
	"Dependency Score",
	"Eisenhower Quadrant",
	"Due Date",
	"Estimated Hours",
	"Is Overdue",
	"Is Circular",
	"Explanation",
}

// WriteJSON writes an indented JSON document for result.
func WriteJSON(w io.Writer, result *models.AnalysisResult, exportedAt time.Time) error {
	if result == nil {
		return fmt.Errorf("nothing to export")
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Document{
		ExportedAt:     exportedAt.UTC(),
		FormatVersion:  FormatVersion,
		AnalysisResult: result,
	}); err != nil {
		return fmt.Errorf("failed to encode json export: %w", err)
	}
	return nil
}

// WriteCSV writes one row per ranked task, preceded by CSVHeader.
func WriteCSV(w io.Writer, result *models.AnalysisResult) error {
	if result == nil {
		return fmt.Errorf("nothing to export")
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for i, t := range result.Tasks {
		due := ""
		if t.DueDate != nil {
			due = t.DueDate.String()
		}
		row := []string{
			strconv.Itoa(i + 1),
			t.Title,
			formatScore(t.PriorityScore),
			string(t.PriorityLevel),
			formatScore(t.Scores.Urgency),
			formatScore(t.Scores.Importance),
			formatScore(t.Scores.Effort),
			formatScore(t.Scores.Dependency),
			string(t.Quadrant),
			due,
			strconv.FormatFloat(t.EstimatedHours, 'f', -1, 64),
			strconv.FormatBool(t.IsOverdue),
			strconv.FormatBool(t.IsCircular),
			t.Explanation,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// Filename returns an attachment name for an export taken at t.
func Filename(t time.Time, ext string) string {
	return fmt.Sprintf("task-analysis-%s.%s", t.UTC().Format("20060102-150405"), ext)
}

func formatScore(v float64) string {
	return strconv.FormatFloat(math.Round(v*1000)/1000, 'f', -1, 64)
}
