package model

import "time"

// Category classifies a task for week-view coloring and filtering.
type Category string

const (
	CategorySchool   Category = "school"
	CategoryWork     Category = "work"
	CategoryPersonal Category = "personal"
	CategoryHealth   Category = "health"
	CategoryErrands  Category = "errands"
	CategoryOther    Category = "other"
)

// Priority ranks a task for month-view coloring and filtering.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Repeat names a task's recurrence mode.
type Repeat string

const (
	RepeatNone     Repeat = "none"
	RepeatDaily    Repeat = "daily"
	RepeatWeekdays Repeat = "weekdays"
	RepeatWeekly   Repeat = "weekly"
	RepeatMonthly  Repeat = "monthly"
)

// Weekday is a lowercase three-letter weekday tag as stored in repeat_days.
type Weekday string

const (
	Mon Weekday = "mon"
	Tue Weekday = "tue"
	Wed Weekday = "wed"
	Thu Weekday = "thu"
	Fri Weekday = "fri"
	Sat Weekday = "sat"
	Sun Weekday = "sun"
)

// Task is the sole persisted entity. The json tags are the wire contract
// with the store; the three date/time fields travel as RFC3339 strings.
//
// StartTime and EndTime are either both set (a timed task) or both nil
// (an all-day task). DueDate is always present.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Category    Category   `json:"category"`
	Priority    Priority   `json:"priority"`
	Repeat      Repeat     `json:"repeat"`
	RepeatDays  []Weekday  `json:"repeat_days"`
	Location    string     `json:"location,omitempty"`
	Description string     `json:"description,omitempty"`
	DueDate     time.Time  `json:"due_date"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
}

// Timed reports whether the task has a concrete start/end instant pair.
// All-day tasks are positioned by DueDate only and never participate in
// overlap checks.
func (t *Task) Timed() bool {
	return t.StartTime != nil && t.EndTime != nil
}

// Validate checks the record-level invariants that must hold before a
// task reaches the store or the projection engine.
func (t *Task) Validate() error {
	if t.Title == "" {
		return ErrEmptyTitle
	}
	// A one-sided instant pair is malformed; both or neither.
	if (t.StartTime == nil) != (t.EndTime == nil) {
		return ErrBadTimeRange
	}
	if t.DueDate.IsZero() {
		return ErrMissingDueDate
	}
	return nil
}

// Normalize enforces the repeat_days invariant: the weekday set is only
// meaningful for weekly recurrence and is cleared otherwise.
func (t *Task) Normalize() {
	if t.Repeat == "" {
		t.Repeat = RepeatNone
	}
	if t.Repeat != RepeatWeekly {
		t.RepeatDays = nil
	}
	if t.Category == "" {
		t.Category = CategoryOther
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
}
