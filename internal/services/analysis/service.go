// Package analysis runs ranking requests against the current settings. The
// HTTP handlers, the batch worker and the CLI all go through Service.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/task-analyzer/internal/insights"
	"github.com/benvon/task-analyzer/internal/logger"
	"github.com/benvon/task-analyzer/internal/models"
	"github.com/benvon/task-analyzer/internal/scoring"
	"github.com/benvon/task-analyzer/internal/settings"
	"github.com/benvon/task-analyzer/internal/telemetry"
	"github.com/benvon/task-analyzer/internal/validation"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ErrInvalidRequest wraps envelope validation failures (count, max_hours,
// completed tasks). Task-level problems surface as *scoring.Error instead.
var ErrInvalidRequest = errors.New("invalid request")

// Service ranks task sets with the calendar and timezone of the current settings snapshot
type Service struct {
	settings *settings.Store
	maxTasks int
	now      func() time.Time
	logger   *zap.Logger
}

// Option configures a Service
type Option func(*Service)

// WithMaxTasks caps the task list length
func WithMaxTasks(n int) Option {
	return func(s *Service) { s.maxTasks = n }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a Service reading calendar and timezone from store.
func New(store *settings.Store, opts ...Option) *Service {
	s := &Service{settings: store, now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the current time in the configured timezone.
func (s *Service) Now() time.Time {
	return s.now().In(s.settings.Snapshot().Location)
}

func (s *Service) ranker(snap *settings.Snapshot) *scoring.Ranker {
	return scoring.NewRanker(snap.Calendar,
		scoring.WithMaxTasks(s.maxTasks),
		scoring.WithClock(func() time.Time { return s.now().In(snap.Location) }),
	)
}

// Analyze ranks req.Tasks. Pattern hints and the time context are attached
// when the request asks for them.
func (s *Service) Analyze(ctx context.Context, req models.AnalyzeRequest) (result *models.AnalysisResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "analysis.analyze",
		attribute.Int("task_count", len(req.Tasks)),
		attribute.String("strategy", req.Strategy),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap := s.settings.Snapshot()
	rankReq := scoring.Request{Tasks: req.Tasks, Strategy: req.Strategy, Weights: req.Weights}
	if req.ReferenceDate != nil {
		rankReq.Today = req.ReferenceDate.Time
	}

	result, err = s.ranker(snap).Rank(rankReq)
	if err != nil {
		if scoringErr, ok := scoring.AsError(err); ok {
			s.logger.Debug("analysis_rejected",
				zap.String("code", string(scoringErr.Code)),
				zap.String("field", scoringErr.Field),
				zap.String("task_id", logger.SanitizeTitle(scoringErr.TaskID.String())),
			)
		}
		return nil, err
	}

	if req.AutoDetectPatterns {
		descriptions := make(map[models.TaskID]string, len(req.Tasks))
		for i := range req.Tasks {
			descriptions[req.Tasks[i].ID] = req.Tasks[i].Description
		}
		for i := range result.Tasks {
			hints := insights.DetectPatterns(result.Tasks[i].Title, descriptions[result.Tasks[i].ID])
			result.Tasks[i].Patterns = &hints
		}
	}
	if req.TimeAware {
		tc := insights.TimeContextAt(s.now().In(snap.Location))
		result.TimeContext = &tc
	}

	s.logger.Debug("analysis_completed",
		zap.Int("task_count", len(result.Tasks)),
		zap.String("strategy", result.Strategy),
		zap.Int("high_priority", result.Summary.HighPriorityCount),
		zap.Bool("circular", result.Summary.CircularDetected),
	)
	return result, nil
}

// Suggest ranks req.Tasks and picks what to work on today. A time-aware
// request shrinks the hour budget to the time of day; completed tasks add a
// fatigue analysis using the mean effective hours of the submitted tasks.
func (s *Service) Suggest(ctx context.Context, req models.SuggestRequest) (*models.Suggestion, error) {
	if err := validation.Validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, validation.FirstError(err))
	}

	analyzeReq := req.AnalyzeRequest
	analyzeReq.TimeAware = false
	result, err := s.Analyze(ctx, analyzeReq)
	if err != nil {
		return nil, err
	}

	maxHours := req.MaxHours
	if maxHours <= 0 {
		maxHours = scoring.DefaultSuggestMaxHours
	}
	var tc *models.TimeContext
	if req.TimeAware {
		ctxNow := insights.TimeContextAt(s.Now())
		tc = &ctxNow
		maxHours = min(maxHours, tc.SuggestedMaxHours)
	}

	suggestion := scoring.Suggest(result, req.Count, maxHours)
	suggestion.TimeContext = tc

	if len(req.CompletedTasks) > 0 {
		var total float64
		for i := range req.Tasks {
			total += scoring.EffectiveHours(req.Tasks[i].EstimatedHours)
		}
		fatigue := insights.Fatigue(req.CompletedTasks, total/float64(len(req.Tasks)), "")
		suggestion.FatigueAnalysis = &fatigue
	}

	return &suggestion, nil
}

// Order returns the tasks in a dependency-respecting order plus the tasks
// that cannot be placed because they are on or behind a cycle.
func (s *Service) Order(tasks []models.Task) (ordered, blocked []models.TaskID, err error) {
	if len(tasks) == 0 {
		return nil, nil, &scoring.Error{Code: scoring.CodeNoTasks, Field: "tasks", Message: "at least one task is required"}
	}
	graph, err := scoring.NewDependencyGraph(tasks)
	if err != nil {
		return nil, nil, err
	}
	ordered, blocked = graph.TopologicalOrder()
	return ordered, blocked, nil
}
