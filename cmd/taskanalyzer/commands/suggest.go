package commands

import (
	"fmt"
	"io"

	"github.com/benvon/task-analyzer/internal/models"
	"github.com/spf13/cobra"
)

func (a *app) newSuggestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest FILE",
		Short: "Pick the tasks to work on today",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSuggest(cmd, args[0])
		},
	}
	addAnalyzeFlags(cmd)
	cmd.Flags().Int("count", 0, "number of tasks to suggest (default 3)")
	cmd.Flags().Float64("max-hours", 0, "daily hour budget (default 8)")
	cmd.Flags().Bool("json", false, "print the suggestion as JSON")
	return cmd
}

func (a *app) runSuggest(cmd *cobra.Command, path string) error {
	req, err := readRequest(cmd, path)
	if err != nil {
		return err
	}
	if err := a.applyAnalyzeFlags(cmd, &req.AnalyzeRequest); err != nil {
		return err
	}
	if n := a.intOpt(cmd, "count"); n != 0 {
		req.Count = n
	}
	if h := a.floatOpt(cmd, "max-hours"); h != 0 {
		req.MaxHours = h
	}

	service, err := a.service()
	if err != nil {
		return err
	}
	suggestion, err := service.Suggest(cmd.Context(), req)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(cmd.OutOrStdout(), suggestion)
	}
	printSuggestion(cmd.OutOrStdout(), suggestion)
	return nil
}

func printSuggestion(out io.Writer, s *models.Suggestion) {
	fmt.Fprintln(out, s.Message)
	for i, t := range s.Tasks {
		fmt.Fprintf(out, "%d. [%s] %s (%.1fh, score %.2f)\n", i+1, t.ID, t.Title, t.EstimatedHours, t.PriorityScore)
		fmt.Fprintf(out, "   %s\n", t.Explanation)
	}
	fmt.Fprintf(out, "Total: %.1fh\n", s.TotalHours)
	if s.TimeContext != nil {
		fmt.Fprintln(out, s.TimeContext.Message)
	}
	if s.FatigueAnalysis != nil {
		fmt.Fprintf(out, "Fatigue %.2f: %s\n", s.FatigueAnalysis.FatigueLevel, s.FatigueAnalysis.Recommendation)
	}
}
