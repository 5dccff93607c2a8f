package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire format for calendar dates
const DateLayout = "2006-01-02"

// TaskID identifies a task within one request. Ids arrive as JSON strings or
// integers and are written back in the form they arrived in, so 7 and "7" are
// different ids. The zero value is the missing id.
type TaskID struct {
	value   string
	numeric bool
}

// StringID returns a string-form id
func StringID(s string) TaskID {
	return TaskID{value: s}
}

// IntID returns a numeric-form id
func IntID(n int64) TaskID {
	return TaskID{value: strconv.FormatInt(n, 10), numeric: true}
}

// UnmarshalJSON accepts both numeric and string identifiers
func (id *TaskID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = TaskID{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid task id: %w", err)
		}
		*id = StringID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid task id %s: must be a string or integer", string(data))
	}
	v, err := n.Int64()
	if err != nil {
		return fmt.Errorf("invalid task id %s: must be an integer", n.String())
	}
	*id = IntID(v)
	return nil
}

// MarshalJSON writes the id in the form it was created with. The missing id is null.
func (id TaskID) MarshalJSON() ([]byte, error) {
	switch {
	case id.IsZero():
		return []byte("null"), nil
	case id.numeric:
		return []byte(id.value), nil
	default:
		return json.Marshal(id.value)
	}
}

// String returns the identifier as text
func (id TaskID) String() string {
	return id.value
}

// IsNumeric reports whether the id is in integer form
func (id TaskID) IsNumeric() bool {
	return id.numeric
}

// IsZero reports whether the id is missing
func (id TaskID) IsZero() bool {
	return id == TaskID{}
}

// Describe renders the id with its form, for messages where 7 and "7" must be told apart
func (id TaskID) Describe() string {
	if id.numeric {
		return id.value
	}
	return strconv.Quote(id.value)
}

// Date is a calendar date without a time of day, normalized to UTC midnight
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar date in t's own location
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", s, err)
	}
	return Date{t}, nil
}

// UnmarshalJSON parses YYYY-MM-DD
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid date: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON writes YYYY-MM-DD
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// String formats the date as YYYY-MM-DD
func (d Date) String() string {
	return d.Format(DateLayout)
}

// Task is a unit of work submitted for analysis
type Task struct {
	ID             TaskID   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	DueDate        *Date    `json:"due_date,omitempty"`
	EstimatedHours *float64 `json:"estimated_hours,omitempty"`
	Importance     int      `json:"importance"`
	Dependencies   []TaskID `json:"dependencies,omitempty"`
	Category       string   `json:"category,omitempty"`
}
