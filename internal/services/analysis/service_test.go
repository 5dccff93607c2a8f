package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benvon/task-analyzer/internal/models"
	"github.com/benvon/task-analyzer/internal/scoring"
	"github.com/benvon/task-analyzer/internal/settings"
)

func hours(h float64) *float64 { return &h }

func due(y int, m time.Month, d int) *models.Date {
	date := models.NewDate(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
	return &date
}

func tasks() []models.Task {
	return []models.Task{
		{ID: models.StringID("bug"), Title: "Fix urgent production bug", Importance: 5, EstimatedHours: hours(1), DueDate: due(2025, time.January, 3)},
		{ID: models.StringID("docs"), Title: "Write docs", Importance: 2, EstimatedHours: hours(3)},
		{ID: models.StringID("release"), Title: "Release", Importance: 3, EstimatedHours: hours(2), Dependencies: []models.TaskID{models.StringID("bug"), models.StringID("docs")}},
	}
}

func newService(t *testing.T, s settings.Settings, at time.Time) *Service {
	t.Helper()
	store, err := settings.NewStaticStore(s)
	require.NoError(t, err)
	return New(store, WithClock(func() time.Time { return at }), WithMaxTasks(10))
}

func TestService_Analyze(t *testing.T) {
	t.Parallel()

	svc := newService(t, settings.Default(), time.Date(2025, time.January, 6, 10, 0, 0, 0, time.UTC))

	result, err := svc.Analyze(context.Background(), models.AnalyzeRequest{Tasks: tasks()})
	require.NoError(t, err)
	require.Len(t, result.Tasks, 3)

	assert.Equal(t, models.StringID("bug"), result.Tasks[0].ID)
	assert.Equal(t, "2025-01-06", result.ReferenceDate.String())
	assert.Nil(t, result.TimeContext)
	for _, st := range result.Tasks {
		assert.Nil(t, st.Patterns)
	}
}

func TestService_Analyze_ReferenceDateOverridesClock(t *testing.T) {
	t.Parallel()

	svc := newService(t, settings.Default(), time.Date(2025, time.January, 6, 10, 0, 0, 0, time.UTC))

	result, err := svc.Analyze(context.Background(), models.AnalyzeRequest{
		Tasks:         tasks(),
		ReferenceDate: due(2025, time.January, 2),
	})
	require.NoError(t, err)
	assert.Equal(t, "2025-01-02", result.ReferenceDate.String())
	assert.Equal(t, 0, result.Summary.OverdueCount)
}

func TestService_Analyze_PatternsAndTimeContext(t *testing.T) {
	t.Parallel()

	svc := newService(t, settings.Default(), time.Date(2025, time.January, 6, 18, 30, 0, 0, time.UTC))

	result, err := svc.Analyze(context.Background(), models.AnalyzeRequest{
		Tasks:              tasks(),
		AutoDetectPatterns: true,
		TimeAware:          true,
	})
	require.NoError(t, err)

	require.NotNil(t, result.TimeContext)
	assert.Equal(t, "evening", result.TimeContext.Context)

	for _, st := range result.Tasks {
		require.NotNil(t, st.Patterns, st.ID)
		if st.ID == models.StringID("bug") {
			assert.Contains(t, st.Patterns.DetectedKeywords, "urgent")
			require.NotNil(t, st.Patterns.SuggestedImportance)
			assert.GreaterOrEqual(t, *st.Patterns.SuggestedImportance, 4)
		}
	}
}

func TestService_Analyze_UsesSettingsTimezone(t *testing.T) {
	t.Parallel()

	s := settings.Default()
	s.Timezone = "Pacific/Auckland"
	// 2025-01-06 20:00 UTC is already 2025-01-07 in Auckland
	svc := newService(t, s, time.Date(2025, time.January, 6, 20, 0, 0, 0, time.UTC))

	result, err := svc.Analyze(context.Background(), models.AnalyzeRequest{Tasks: tasks()})
	require.NoError(t, err)
	assert.Equal(t, "2025-01-07", result.ReferenceDate.String())
	assert.Equal(t, "Pacific/Auckland", svc.Now().Location().String())
}

func TestService_Analyze_Errors(t *testing.T) {
	t.Parallel()

	svc := newService(t, settings.Default(), time.Date(2025, time.January, 6, 10, 0, 0, 0, time.UTC))

	_, err := svc.Analyze(context.Background(), models.AnalyzeRequest{})
	assert.True(t, scoring.IsCode(err, scoring.CodeNoTasks))

	_, err = svc.Analyze(context.Background(), models.AnalyzeRequest{Tasks: tasks(), Strategy: "yolo"})
	assert.True(t, scoring.IsCode(err, scoring.CodeInvalidStrategy))

	tooMany := make([]models.Task, 11)
	for i := range tooMany {
		tooMany[i] = models.Task{ID: models.StringID(string(rune('a' + i))), Title: "t", Importance: 3}
	}
	_, err = svc.Analyze(context.Background(), models.AnalyzeRequest{Tasks: tooMany})
	assert.True(t, scoring.IsCode(err, scoring.CodeInvalidTasks))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.Analyze(ctx, models.AnalyzeRequest{Tasks: tasks()})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestService_Suggest(t *testing.T) {
	t.Parallel()

	svc := newService(t, settings.Default(), time.Date(2025, time.January, 6, 10, 0, 0, 0, time.UTC))

	s, err := svc.Suggest(context.Background(), models.SuggestRequest{
		AnalyzeRequest: models.AnalyzeRequest{Tasks: tasks()},
		Count:          2,
		MaxHours:       8,
	})
	require.NoError(t, err)
	require.NotEmpty(t, s.Tasks)
	assert.LessOrEqual(t, len(s.Tasks), 2)
	assert.Equal(t, models.StringID("bug"), s.Tasks[0].ID)
	assert.Nil(t, s.TimeContext)
	assert.Nil(t, s.FatigueAnalysis)
}

func TestService_Suggest_TimeAwareShrinksBudget(t *testing.T) {
	t.Parallel()

	// 21:00 is late evening with a 1 hour budget
	svc := newService(t, settings.Default(), time.Date(2025, time.January, 6, 21, 0, 0, 0, time.UTC))

	s, err := svc.Suggest(context.Background(), models.SuggestRequest{
		AnalyzeRequest: models.AnalyzeRequest{
			Tasks: []models.Task{
				{ID: models.StringID("a"), Title: "A", Importance: 4, EstimatedHours: hours(0.5)},
				{ID: models.StringID("b"), Title: "B", Importance: 3, EstimatedHours: hours(0.5)},
				{ID: models.StringID("c"), Title: "C", Importance: 2, EstimatedHours: hours(0.5)},
			},
			TimeAware: true,
		},
		Count:    3,
		MaxHours: 8,
	})
	require.NoError(t, err)
	require.NotNil(t, s.TimeContext)
	assert.Equal(t, "late_evening", s.TimeContext.Context)
	assert.Len(t, s.Tasks, 2)
	assert.LessOrEqual(t, s.TotalHours, 1.0)
}

func TestService_Suggest_Fatigue(t *testing.T) {
	t.Parallel()

	svc := newService(t, settings.Default(), time.Date(2025, time.January, 6, 10, 0, 0, 0, time.UTC))

	s, err := svc.Suggest(context.Background(), models.SuggestRequest{
		AnalyzeRequest: models.AnalyzeRequest{Tasks: tasks()},
		CompletedTasks: []models.CompletedTask{{EffortHours: 4}, {EffortHours: 4}},
	})
	require.NoError(t, err)
	require.NotNil(t, s.FatigueAnalysis)
	assert.Equal(t, 8.0, s.FatigueAnalysis.TotalHoursWorked)
	assert.Equal(t, 2, s.FatigueAnalysis.ConsecutiveHeavyTasks)
}

func TestService_Suggest_InvalidEnvelope(t *testing.T) {
	t.Parallel()

	svc := newService(t, settings.Default(), time.Date(2025, time.January, 6, 10, 0, 0, 0, time.UTC))

	tests := []struct {
		name string
		req  models.SuggestRequest
	}{
		{name: "count too large", req: models.SuggestRequest{AnalyzeRequest: models.AnalyzeRequest{Tasks: tasks()}, Count: 51}},
		{name: "negative hours", req: models.SuggestRequest{AnalyzeRequest: models.AnalyzeRequest{Tasks: tasks()}, MaxHours: -1}},
		{name: "completed task over a day", req: models.SuggestRequest{
			AnalyzeRequest: models.AnalyzeRequest{Tasks: tasks()},
			CompletedTasks: []models.CompletedTask{{EffortHours: 30}},
		}},
	}
	for _, tt := range tests {
		_, err := svc.Suggest(context.Background(), tt.req)
		assert.True(t, errors.Is(err, ErrInvalidRequest), tt.name)
	}
}

func TestService_Order(t *testing.T) {
	t.Parallel()

	svc := newService(t, settings.Default(), time.Now())

	ordered, blocked, err := svc.Order([]models.Task{
		{ID: models.StringID("deploy"), Title: "Deploy", Importance: 3, Dependencies: []models.TaskID{models.StringID("build")}},
		{ID: models.StringID("build"), Title: "Build", Importance: 3},
		{ID: models.StringID("x"), Title: "X", Importance: 3, Dependencies: []models.TaskID{models.StringID("y")}},
		{ID: models.StringID("y"), Title: "Y", Importance: 3, Dependencies: []models.TaskID{models.StringID("x")}},
	})
	require.NoError(t, err)
	assert.Equal(t, []models.TaskID{models.StringID("build"), models.StringID("deploy")}, ordered)
	assert.ElementsMatch(t, []models.TaskID{models.StringID("x"), models.StringID("y")}, blocked)

	_, _, err = svc.Order(nil)
	assert.True(t, scoring.IsCode(err, scoring.CodeNoTasks))

	_, _, err = svc.Order([]models.Task{{ID: models.StringID("a"), Title: "A", Importance: 3, Dependencies: []models.TaskID{models.StringID("ghost")}}})
	assert.True(t, scoring.IsCode(err, scoring.CodeInvalidTasks))
}
