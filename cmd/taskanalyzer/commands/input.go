package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/benvon/task-analyzer/internal/models"
	"github.com/spf13/cobra"
)

// readRequest loads a task file. The file is either a bare JSON array of
// tasks or a request envelope with a "tasks" field. "-" reads stdin.
func readRequest(cmd *cobra.Command, path string) (models.SuggestRequest, error) {
	var req models.SuggestRequest

	data, err := readSource(cmd, path)
	if err != nil {
		return req, err
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return req, fmt.Errorf("%s: no input", sourceName(path))
	}

	if trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &req.Tasks)
	} else {
		err = json.Unmarshal(trimmed, &req)
	}
	if err != nil {
		return req, fmt.Errorf("%s: invalid JSON: %w", sourceName(path), err)
	}
	return req, nil
}

func readSource(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tasks: %w", err)
	}
	return data, nil
}

func sourceName(path string) string {
	if path == "-" {
		return "stdin"
	}
	return path
}

// parseWeights reads "urgency,importance,effort,dependency"
func parseWeights(s string) (*models.Weights, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("weights must be four comma separated numbers (urgency,importance,effort,dependency), got %q", s)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight %q: %w", p, err)
		}
		vals[i] = v
	}
	return &models.Weights{Urgency: vals[0], Importance: vals[1], Effort: vals[2], Dependency: vals[3]}, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatDue(d *models.Date) string {
	if d == nil {
		return "-"
	}
	return d.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
