package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/benvon/task-analyzer/internal/export"
	"github.com/benvon/task-analyzer/internal/models"
	"github.com/benvon/task-analyzer/internal/scoring"
	"github.com/spf13/cobra"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatCSV   = "csv"
)

func (a *app) newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Rank tasks by priority",
		Long:  "Rank the tasks in FILE (a JSON task array or request envelope, - for stdin).",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAnalyze(cmd, args[0])
		},
	}
	addAnalyzeFlags(cmd)
	cmd.Flags().String("format", formatTable, "output format: table, json or csv")
	return cmd
}

func addAnalyzeFlags(cmd *cobra.Command) {
	cmd.Flags().String("strategy", "", "weighting strategy (see strategies); default smart_balance")
	cmd.Flags().String("weights", "", "custom weights urgency,importance,effort,dependency; implies --strategy custom")
	cmd.Flags().Bool("patterns", false, "attach keyword pattern hints to each task")
	cmd.Flags().Bool("time-aware", false, "attach the current time-of-day context")
}

// applyAnalyzeFlags overrides the request envelope with explicit flags
func (a *app) applyAnalyzeFlags(cmd *cobra.Command, req *models.AnalyzeRequest) error {
	if strategy := a.stringOpt(cmd, "strategy"); strategy != "" {
		req.Strategy = strategy
	}
	if raw, _ := cmd.Flags().GetString("weights"); raw != "" {
		w, err := parseWeights(raw)
		if err != nil {
			return err
		}
		req.Weights = w
		if req.Strategy == "" {
			req.Strategy = scoring.StrategyCustom
		}
	}
	if v, _ := cmd.Flags().GetBool("patterns"); v {
		req.AutoDetectPatterns = true
	}
	if v, _ := cmd.Flags().GetBool("time-aware"); v {
		req.TimeAware = true
	}
	return nil
}

func (a *app) runAnalyze(cmd *cobra.Command, path string) error {
	format := a.stringOpt(cmd, "format")
	if format != formatTable && format != formatJSON && format != formatCSV {
		return fmt.Errorf("unknown format %q (use table, json or csv)", format)
	}

	req, err := readRequest(cmd, path)
	if err != nil {
		return err
	}
	if err := a.applyAnalyzeFlags(cmd, &req.AnalyzeRequest); err != nil {
		return err
	}

	service, err := a.service()
	if err != nil {
		return err
	}
	result, err := service.Analyze(cmd.Context(), req.AnalyzeRequest)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch format {
	case formatJSON:
		return export.WriteJSON(out, result, service.Now())
	case formatCSV:
		return export.WriteCSV(out, result)
	}
	return printAnalysis(out, result)
}

func printAnalysis(out io.Writer, result *models.AnalysisResult) error {
	fmt.Fprintf(out, "Strategy: %s  Reference date: %s\n\n", scoring.DisplayName(result.Strategy), result.ReferenceDate)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tID\tTITLE\tSCORE\tLEVEL\tQUADRANT\tDUE\tFLAGS")
	for i, t := range result.Tasks {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%s\t%s\t%s\t%s\n",
			i+1, t.ID, truncate(t.Title, 40), t.PriorityScore, t.PriorityLevel,
			t.Quadrant.Alias(), formatDue(t.DueDate), taskFlags(t))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	s := result.Summary
	fmt.Fprintf(out, "\n%d tasks: %d high, %d medium, %d low, %d overdue\n",
		s.TotalTasks, s.HighPriorityCount, s.MediumPriorityCount, s.LowPriorityCount, s.OverdueCount)
	if s.CircularDetected {
		fmt.Fprintln(out, "Circular dependencies detected")
	}
	if result.TimeContext != nil {
		fmt.Fprintf(out, "%s\n", result.TimeContext.Message)
	}
	return nil
}

func taskFlags(t models.ScoredTask) string {
	var flags []string
	if t.IsOverdue {
		flags = append(flags, "overdue")
	}
	if t.IsCircular {
		flags = append(flags, "circular")
	}
	if t.IsBlockingOthers {
		flags = append(flags, fmt.Sprintf("blocks %d", t.BlockingCount))
	}
	if len(flags) == 0 {
		return "-"
	}
	return strings.Join(flags, ",")
}
