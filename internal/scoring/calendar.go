package scoring

import (
	"sort"
	"time"
)

const secondsPerDay = 24 * 60 * 60

// Calendar counts working days, skipping weekends and a fixed holiday set.
// A Calendar is immutable once built and safe for concurrent use.
type Calendar struct {
	holidays []int64 // sorted day numbers
}

// DefaultHolidays returns the built-in holiday set (US federal holidays for 2025 plus New Year 2026).
func DefaultHolidays() []time.Time {
	return []time.Time{
		date(2025, time.January, 1),
		date(2025, time.January, 20),
		date(2025, time.February, 17),
		date(2025, time.May, 26),
		date(2025, time.June, 19),
		date(2025, time.July, 4),
		date(2025, time.September, 1),
		date(2025, time.October, 13),
		date(2025, time.November, 11),
		date(2025, time.November, 27),
		date(2025, time.December, 25),
		date(2026, time.January, 1),
	}
}

// NewCalendar builds a calendar from holiday dates. Only the calendar date of each value is used.
func NewCalendar(holidays []time.Time) *Calendar {
	seen := make(map[int64]struct{}, len(holidays))
	days := make([]int64, 0, len(holidays))
	for _, h := range holidays {
		d := dayNumber(h)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return &Calendar{holidays: days}
}

// DefaultCalendar returns a calendar with DefaultHolidays.
func DefaultCalendar() *Calendar {
	return NewCalendar(DefaultHolidays())
}

// Holidays returns the holiday set in ascending order.
func (c *Calendar) Holidays() []time.Time {
	if c == nil {
		return nil
	}
	out := make([]time.Time, len(c.holidays))
	for i, d := range c.holidays {
		out[i] = fromDayNumber(d)
	}
	return out
}

// IsHoliday reports whether t's calendar date is in the holiday set.
func (c *Calendar) IsHoliday(t time.Time) bool {
	if c == nil {
		return false
	}
	d := dayNumber(t)
	i := sort.Search(len(c.holidays), func(i int) bool { return c.holidays[i] >= d })
	return i < len(c.holidays) && c.holidays[i] == d
}

// IsWorkingDay reports whether t falls on a weekday that is not a holiday.
func (c *Calendar) IsWorkingDay(t time.Time) bool {
	return !isWeekend(dayNumber(t)) && !c.IsHoliday(t)
}

// WorkingDaysBetween returns the signed number of working days from start to end.
// Days in (start, end] are counted when end is after start; the negated count of
// (end, start] is returned when end is before start.
func (c *Calendar) WorkingDaysBetween(start, end time.Time) int {
	s, e := dayNumber(start), dayNumber(end)
	switch {
	case s == e:
		return 0
	case s < e:
		return c.countForward(s, e)
	default:
		return -c.countForward(e, s)
	}
}

// countForward counts working days in (from, to]. from must be before to.
func (c *Calendar) countForward(from, to int64) int {
	span := to - from
	fullWeeks := span / 7
	count := fullWeeks * 5
	for d := from + fullWeeks*7 + 1; d <= to; d++ {
		if !isWeekend(d) {
			count++
		}
	}

	if c != nil {
		lo := sort.Search(len(c.holidays), func(i int) bool { return c.holidays[i] > from })
		for i := lo; i < len(c.holidays) && c.holidays[i] <= to; i++ {
			if !isWeekend(c.holidays[i]) {
				count--
			}
		}
	}
	return int(count)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// dayNumber maps a calendar date (in t's own location) to days since 1970-01-01.
func dayNumber(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / secondsPerDay
}

func fromDayNumber(d int64) time.Time {
	return time.Unix(d*secondsPerDay, 0).UTC()
}

// isWeekend uses the fact that day 0 (1970-01-01) was a Thursday.
func isWeekend(d int64) bool {
	wd := ((d+4)%7 + 7) % 7 // 0 = Sunday
	return wd == 0 || wd == 6
}
