package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/benvon/task-analyzer/internal/insights"
	"github.com/benvon/task-analyzer/internal/models"
	"github.com/benvon/task-analyzer/internal/scoring"
	"github.com/benvon/task-analyzer/internal/validation"
	"github.com/spf13/cobra"
)

func newStrategiesCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "strategies",
		Short: "List weighting strategies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, map[string]any{
					"strategies": scoring.Strategies(),
					"default":    scoring.StrategySmartBalance,
				})
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tURGENCY\tIMPORTANCE\tEFFORT\tDEPENDENCY\tDESCRIPTION")
			for _, s := range scoring.Strategies() {
				if s.Weights == nil {
					fmt.Fprintf(tw, "%s\t-\t-\t-\t-\t%s\n", s.Name, s.Description)
					continue
				}
				w := s.Weights
				fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%.2f\t%s\n",
					s.Name, w.Urgency, w.Importance, w.Effort, w.Dependency, s.Description)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the catalog as JSON")
	return cmd
}

func newPatternsCmd() *cobra.Command {
	var req models.PatternRequest
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Suggest importance and effort from a task title",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validation.Validate.Struct(req); err != nil {
				return fmt.Errorf("invalid input: %s", validation.FirstError(err))
			}
			return writeJSON(cmd.OutOrStdout(), insights.DetectPatterns(req.Title, req.Description))
		},
	}
	cmd.Flags().StringVar(&req.Title, "title", "", "task title (required)")
	cmd.Flags().StringVar(&req.Description, "description", "", "task description")
	return cmd
}

func newFatigueCmd() *cobra.Command {
	var (
		effort   float64
		category string
	)
	cmd := &cobra.Command{
		Use:   "fatigue FILE",
		Short: "Estimate fatigue from completed tasks",
		Long: "Estimate fatigue from FILE, a JSON array of completed tasks (most recent last) " +
			"or a fatigue request envelope. - reads stdin.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readSource(cmd, args[0])
			if err != nil {
				return err
			}

			var req models.FatigueRequest
			trimmed := bytes.TrimSpace(data)
			if strings.HasPrefix(string(trimmed), "[") {
				err = json.Unmarshal(trimmed, &req.CompletedTasks)
			} else {
				err = json.Unmarshal(trimmed, &req)
			}
			if err != nil {
				return fmt.Errorf("%s: invalid JSON: %w", sourceName(args[0]), err)
			}
			if cmd.Flags().Changed("effort") {
				req.CurrentTaskEffort = effort
			}
			if category != "" {
				req.CurrentTaskCategory = category
			}
			if err := validation.Validate.Struct(req); err != nil {
				return fmt.Errorf("invalid input: %s", validation.FirstError(err))
			}

			result := insights.Fatigue(req.CompletedTasks, req.CurrentTaskEffort, req.CurrentTaskCategory)
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().Float64Var(&effort, "effort", 0, "estimated hours of the next task")
	cmd.Flags().StringVar(&category, "category", "", "category of the next task")
	return cmd
}
