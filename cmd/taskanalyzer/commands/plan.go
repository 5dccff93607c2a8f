package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/benvon/task-analyzer/internal/history"
	"github.com/benvon/task-analyzer/internal/models"
	"github.com/benvon/task-analyzer/internal/services/analysis"
	"github.com/spf13/cobra"
)

const planHelp = `Commands:
  show                 rank the current task list
  done ID              remove a task and drop it from other tasks' dependencies
  importance ID N      set a task's importance (1-5)
  due ID YYYY-MM-DD    set a task's due date ("none" clears it)
  undo | redo          step through edit history
  help                 show this text
  quit                 leave the session`

func (a *app) newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan FILE",
		Short: "Edit a task list interactively with undo and redo",
		Long: "Load FILE and read editing commands from stdin, re-ranking after every change.\n\n" + planHelp,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readRequest(cmd, args[0])
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
			return runPlanSession(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), service, req.AnalyzeRequest)
		},
	}
	addAnalyzeFlags(cmd)
	return cmd
}

// planSession holds the edit history of one task list. Each history entry is
// an independent slice; edits never alias a previous state.
type planSession struct {
	ctx     context.Context
	out     io.Writer
	service *analysis.Service
	base    models.AnalyzeRequest
	history *history.Buffer[[]models.Task]
}

func runPlanSession(ctx context.Context, in io.Reader, out io.Writer, service *analysis.Service, req models.AnalyzeRequest) error {
	s := &planSession{
		ctx:     ctx,
		out:     out,
		service: service,
		base:    req,
		history: history.New(slices.Clone(req.Tasks), history.DefaultCapacity),
	}
	if err := s.show(); err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		quit, err := s.exec(fields[0], fields[1:])
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

func (s *planSession) exec(name string, args []string) (quit bool, err error) {
	switch name {
	case "quit", "exit", "q":
		return true, nil
	case "help", "?":
		fmt.Fprintln(s.out, planHelp)
		return false, nil
	case "show", "ls":
		return false, s.show()
	case "undo":
		if _, ok := s.history.Undo(); !ok {
			return false, fmt.Errorf("nothing to undo")
		}
		return false, s.show()
	case "redo":
		if _, ok := s.history.Redo(); !ok {
			return false, fmt.Errorf("nothing to redo")
		}
		return false, s.show()
	case "done", "remove", "rm":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: done ID")
		}
		return false, s.edit(removeTask(args[0]))
	case "importance":
		if len(args) != 2 {
			return false, fmt.Errorf("usage: importance ID N")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 || n > 5 {
			return false, fmt.Errorf("importance must be an integer from 1 to 5")
		}
		return false, s.edit(updateTask(args[0], func(t *models.Task) { t.Importance = n }))
	case "due":
		if len(args) != 2 {
			return false, fmt.Errorf("usage: due ID YYYY-MM-DD|none")
		}
		var due *models.Date
		if args[1] != "none" {
			d, err := models.ParseDate(args[1])
			if err != nil {
				return false, err
			}
			due = &d
		}
		return false, s.edit(updateTask(args[0], func(t *models.Task) { t.DueDate = due }))
	default:
		return false, fmt.Errorf("unknown command %q (try help)", name)
	}
}

type editFunc func(tasks []models.Task) ([]models.Task, error)

// edit applies fn to a copy of the current state, ranks the result and
// records it only when ranking succeeds.
func (s *planSession) edit(fn editFunc) error {
	next, err := fn(slices.Clone(s.history.Current()))
	if err != nil {
		return err
	}
	result, err := s.rank(next)
	if err != nil {
		return err
	}
	s.history.Push(next)
	return printAnalysis(s.out, result)
}

func (s *planSession) show() error {
	result, err := s.rank(s.history.Current())
	if err != nil {
		return err
	}
	return printAnalysis(s.out, result)
}

func (s *planSession) rank(tasks []models.Task) (*models.AnalysisResult, error) {
	req := s.base
	req.Tasks = tasks
	return s.service.Analyze(s.ctx, req)
}

// findTask resolves an id typed at the prompt. Ids are matched by text; when
// both 7 and "7" exist the reference is ambiguous.
func findTask(tasks []models.Task, ref string) (int, error) {
	found := -1
	for i := range tasks {
		if tasks[i].ID.String() != ref {
			continue
		}
		if found >= 0 {
			return -1, fmt.Errorf("id %s matches both %s and %s", ref, tasks[found].ID.Describe(), tasks[i].ID.Describe())
		}
		found = i
	}
	if found < 0 {
		return -1, fmt.Errorf("no task with id %q", ref)
	}
	return found, nil
}

func removeTask(ref string) editFunc {
	return func(tasks []models.Task) ([]models.Task, error) {
		i, err := findTask(tasks, ref)
		if err != nil {
			return nil, err
		}
		id := tasks[i].ID
		tasks = slices.Delete(tasks, i, i+1)
		for j := range tasks {
			if slices.Contains(tasks[j].Dependencies, id) {
				tasks[j].Dependencies = slices.DeleteFunc(slices.Clone(tasks[j].Dependencies),
					func(dep models.TaskID) bool { return dep == id })
			}
		}
		return tasks, nil
	}
}

func updateTask(ref string, fn func(*models.Task)) editFunc {
	return func(tasks []models.Task) ([]models.Task, error) {
		i, err := findTask(tasks, ref)
		if err != nil {
			return nil, err
		}
		fn(&tasks[i])
		return tasks, nil
	}
}
