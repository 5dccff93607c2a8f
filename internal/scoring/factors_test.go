package scoring

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hoursPtr(h float64) *float64 { return &h }

func TestUrgency(t *testing.T) {
	t.Parallel()

	cal := DefaultCalendar()
	monday := day(2025, time.January, 6)
	newYear := NewCalendar([]time.Time{day(2025, time.January, 1)})

	tests := []struct {
		name        string
		cal         *Calendar
		today       time.Time
		due         *time.Time
		wantScore   float64
		wantOverdue bool
		wantPassed  bool
		wantDays    *int
	}{
		{name: "no due date", due: nil, wantScore: 30},
		{name: "due today", due: timePtr(monday), wantScore: 75, wantDays: intPtr(0)},
		{name: "due tomorrow", due: timePtr(day(2025, time.January, 7)), wantScore: 70, wantDays: intPtr(1)},
		{name: "due in 5 working days", due: timePtr(day(2025, time.January, 13)), wantScore: 50, wantDays: intPtr(5)},
		{name: "due in 22 working days", due: timePtr(day(2025, time.February, 6)), wantScore: 20, wantDays: intPtr(22)},
		{name: "one working day overdue", due: timePtr(day(2025, time.January, 3)), wantScore: 80 + 20.0/14, wantOverdue: true, wantDays: intPtr(-1)},
		{name: "overdue saturates at 100", due: timePtr(day(2024, time.November, 1)), wantScore: 100, wantOverdue: true},
		{
			name: "due friday viewed saturday", today: day(2025, time.January, 11), due: timePtr(day(2025, time.January, 10)),
			wantScore: 75, wantPassed: true, wantDays: intPtr(0),
		},
		{
			name: "due before holiday viewed on holiday", cal: newYear, today: day(2025, time.January, 1), due: timePtr(day(2024, time.December, 31)),
			wantScore: 75, wantPassed: true, wantDays: intPtr(0),
		},
		{
			name: "due saturday viewed friday", today: day(2025, time.January, 10), due: timePtr(day(2025, time.January, 11)),
			wantScore: 75, wantDays: intPtr(0),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, today := cal, monday
			if tt.cal != nil {
				c = tt.cal
			}
			if !tt.today.IsZero() {
				today = tt.today
			}
			got := c.Urgency(tt.due, today)
			assert.InDelta(t, tt.wantScore, got.Score, 1e-9)
			assert.Equal(t, tt.wantOverdue, got.Overdue)
			assert.Equal(t, tt.wantPassed, got.DatePassed)
			if tt.due == nil {
				assert.Nil(t, got.WorkingDays)
				return
			}
			require.NotNil(t, got.WorkingDays)
			if tt.wantDays != nil {
				assert.Equal(t, *tt.wantDays, *got.WorkingDays)
			}
		})
	}
}

func TestUrgency_DueTodayIsExactly75(t *testing.T) {
	t.Parallel()

	cal := DefaultCalendar()
	for d := 0; d < 14; d++ {
		today := day(2025, time.August, 1).AddDate(0, 0, d)
		assert.Equal(t, 75.0, cal.Urgency(&today, today).Score, today.Format(time.DateOnly))
	}
}

func TestUrgency_MonotonicAndBounded(t *testing.T) {
	t.Parallel()

	cal := NewCalendar(nil)
	today := day(2030, time.January, 7)
	prev := math.Inf(1)
	for offset := -60; offset <= 400; offset++ {
		due := today.AddDate(0, 0, offset)
		score := cal.Urgency(&due, today).Score
		assert.GreaterOrEqual(t, score, 10.0)
		assert.LessOrEqual(t, score, 100.0)
		assert.LessOrEqual(t, score, prev, "offset %d", offset)
		prev = score
	}

	far := today.AddDate(1, 0, 0)
	assert.Greater(t, cal.Urgency(&far, today).Score, 10.0)
}

func TestImportanceScore(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 100.0, ImportanceScore(5))
	assert.InDelta(t, 10+math.Pow(0.2, 1.5)*90, ImportanceScore(1), 1e-12)
	assert.InDelta(t, 18.0498, ImportanceScore(1), 1e-4)

	prev := 0.0
	prevStep := 0.0
	for r := MinImportance; r <= MaxImportance; r++ {
		s := ImportanceScore(r)
		assert.Greater(t, s, prev)
		if r > MinImportance+1 {
			assert.Greater(t, s-prev, prevStep, "curve must be convex")
		}
		if r > MinImportance {
			prevStep = s - prev
		}
		prev = s
	}
}

func TestEffortScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		hours float64
		want  float64
	}{
		{0, 100},
		{1, 90},
		{2, 80},
		{5, 65},
		{8, 50},
		{24, 35},
		{40, 20},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, EffortScore(tt.hours), 1e-9, "hours=%v", tt.hours)
	}

	big := EffortScore(400)
	assert.Greater(t, big, 10.0)
	assert.Less(t, big, 20.0)
}

func TestEffortScore_LowerEdgeInclusive(t *testing.T) {
	t.Parallel()

	// Exactly 2h is scored by the 2-8h bracket; the <2h bracket approaches 80 from above.
	assert.Equal(t, 80.0, EffortScore(2))
	assert.Greater(t, EffortScore(1.999), 80.0)
	assert.Equal(t, 50.0, EffortScore(8))
	assert.Equal(t, 20.0, EffortScore(40))
}

func TestEffortScore_Monotonic(t *testing.T) {
	t.Parallel()

	prev := math.Inf(1)
	for h := 0.0; h <= 200; h += 0.25 {
		s := EffortScore(h)
		assert.LessOrEqual(t, s, prev, "hours=%v", h)
		prev = s
	}
}

func TestEffectiveHours(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultEstimatedHours, EffectiveHours(nil))
	assert.Equal(t, DefaultEstimatedHours, EffectiveHours(hoursPtr(0)))
	assert.Equal(t, 2.5, EffectiveHours(hoursPtr(2.5)))
}

func TestDependencyScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		blocking int
		want     float64
	}{
		{0, 30},
		{1, 65},
		{2, 80},
		{3, 80},
		{5, 90},
		{7, 100},
		{25, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DependencyScore(tt.blocking), "blocking=%d", tt.blocking)
	}
}

func timePtr(t time.Time) *time.Time { return &t }

func intPtr(i int) *int { return &i }
