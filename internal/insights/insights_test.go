package insights

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benvon/task-analyzer/internal/models"
)

func TestDetectPatterns(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		title          string
		description    string
		wantImportance *int
		wantImpConf    float64
		wantHours      *float64
		wantEffortConf float64
		wantKeywords   []string
	}{
		{
			name:         "nothing matched",
			title:        "Water the plants",
			wantKeywords: []string{},
		},
		{
			name:           "high importance wins over low",
			title:          "URGENT production outage",
			description:    "maybe cleanup later",
			wantImportance: intPtr(5),
			wantImpConf:    0.75,
			wantKeywords:   []string{"urgent", "production", "outage"},
		},
		{
			name:           "low importance",
			title:          "Refactor README formatting",
			wantImportance: intPtr(1),
			wantImpConf:    0.6,
			wantKeywords:   []string{"refactor", "readme", "formatting"},
		},
		{
			name:           "high effort",
			title:          "Database migration",
			wantHours:      floatPtr(16),
			wantEffortConf: 0.5,
			wantKeywords:   []string{"migration", "database"},
		},
		{
			name:           "low effort",
			title:          "Quick rename",
			wantHours:      floatPtr(0.5),
			wantEffortConf: 0.5,
			wantKeywords:   []string{"quick", "rename"},
		},
		{
			name:         "whole words only",
			title:        "Downloading the addendum",
			wantKeywords: []string{},
		},
		{
			name:           "importance and effort together",
			title:          "Fix bug in API",
			wantImportance: intPtr(5),
			wantImpConf:    0.6,
			wantHours:      floatPtr(12),
			wantEffortConf: 0.4,
			wantKeywords:   []string{"fix", "bug", "api"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := DetectPatterns(tt.title, tt.description)

			if tt.wantImportance == nil {
				assert.Nil(t, got.SuggestedImportance)
			} else {
				require.NotNil(t, got.SuggestedImportance)
				assert.Equal(t, *tt.wantImportance, *got.SuggestedImportance)
			}
			if tt.wantHours == nil {
				assert.Nil(t, got.SuggestedEffortHours)
			} else {
				require.NotNil(t, got.SuggestedEffortHours)
				assert.InDelta(t, *tt.wantHours, *got.SuggestedEffortHours, 1e-9)
			}
			assert.InDelta(t, tt.wantImpConf, got.ImportanceConfidence, 1e-9)
			assert.InDelta(t, tt.wantEffortConf, got.EffortConfidence, 1e-9)
			assert.Equal(t, tt.wantKeywords, got.DetectedKeywords)
		})
	}
}

func TestDetectPatterns_ConfidenceCapped(t *testing.T) {
	t.Parallel()

	got := DetectPatterns("critical urgent emergency asap important priority blocker deadline", "")
	require.NotNil(t, got.SuggestedImportance)
	assert.Equal(t, 5, *got.SuggestedImportance)
	assert.Equal(t, 0.9, got.ImportanceConfidence)
}

func TestTimeContextAt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		hour     int
		want     string
		maxHours float64
	}{
		{0, "night", 0.5},
		{4, "night", 0.5},
		{5, "early_morning", 8},
		{9, "morning", 6},
		{11, "morning", 6},
		{12, "midday", 4},
		{14, "afternoon", 4},
		{17, "evening", 2},
		{20, "late_evening", 1},
		{22, "late_evening", 1},
		{23, "night", 0.5},
	}
	for _, tt := range tests {
		now := time.Date(2025, time.March, 4, tt.hour, 30, 0, 0, time.UTC)
		got := TimeContextAt(now)
		assert.Equal(t, tt.want, got.Context, "hour %d", tt.hour)
		assert.Equal(t, tt.maxHours, got.SuggestedMaxHours, "hour %d", tt.hour)
		assert.NotEmpty(t, got.Message)
	}
}

func TestTimeContextAt_UsesLocation(t *testing.T) {
	t.Parallel()

	utc := time.Date(2025, time.March, 4, 15, 0, 0, 0, time.UTC)
	tokyo := time.FixedZone("JST", 9*60*60)

	assert.Equal(t, "afternoon", TimeContextAt(utc).Context)
	assert.Equal(t, "night", TimeContextAt(utc.In(tokyo)).Context)
}

func TestFatigue(t *testing.T) {
	t.Parallel()

	t.Run("fresh start", func(t *testing.T) {
		t.Parallel()
		got := Fatigue(nil, 3, "")
		assert.Equal(t, 0.0, got.FatigueLevel)
		assert.Equal(t, 1.0, got.ScoreMultiplier)
		assert.Equal(t, "Fresh start - ready for any task!", got.Recommendation)
	})

	t.Run("light day", func(t *testing.T) {
		t.Parallel()
		got := Fatigue([]models.CompletedTask{{EffortHours: 1}, {EffortHours: 1}}, 1, "")
		assert.Equal(t, 10.0, got.FatigueLevel)
		assert.Equal(t, 1.0, got.ScoreMultiplier)
		assert.Equal(t, 2.0, got.TotalHoursWorked)
		assert.Equal(t, 0, got.ConsecutiveHeavyTasks)
	})

	t.Run("heavy streak and category streak", func(t *testing.T) {
		t.Parallel()
		completed := []models.CompletedTask{
			{EffortHours: 3, Category: "ops"},
			{EffortHours: 1, Category: "dev"},
			{EffortHours: 3, Category: "dev"},
			{EffortHours: 2.5, Category: "dev"},
		}
		got := Fatigue(completed, 2, "dev")
		// 9.5/8*40 = 47.5, two heavy = 30, three dev = 30
		assert.Equal(t, 100.0, got.FatigueLevel)
		assert.Equal(t, 2, got.ConsecutiveHeavyTasks)
		assert.Equal(t, 3, got.SameCategoryStreak)
		assert.Equal(t, 0.5, got.ScoreMultiplier)
	})

	t.Run("heavy next task penalized when tired", func(t *testing.T) {
		t.Parallel()
		completed := []models.CompletedTask{{EffortHours: 1}, {EffortHours: 1}, {EffortHours: 1}, {EffortHours: 3}, {EffortHours: 3}}
		// 9/8*40 = 45, two heavy = 30 -> 75
		got := Fatigue(completed, 6, "")
		assert.Equal(t, 75.0, got.FatigueLevel)
		assert.Equal(t, 0.56, got.ScoreMultiplier)
		assert.Contains(t, got.Recommendation, "Avoid starting new heavy tasks.")

		light := Fatigue(completed, 2, "")
		assert.Equal(t, 0.7, light.ScoreMultiplier)
		assert.NotContains(t, light.Recommendation, "Avoid")
	})
}

func intPtr(i int) *int { return &i }

func floatPtr(f float64) *float64 { return &f }
