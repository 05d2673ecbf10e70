package schedule

import (
	"strings"
	"time"

	"dayly/internal/model"
)

// Frequency is the recurrence frequency of an OccurrenceSpec.
type Frequency string

const (
	FreqSingle  Frequency = "single"
	FreqDaily   Frequency = "daily"
	FreqWeekly  Frequency = "weekly"
	FreqMonthly Frequency = "monthly"
)

// minDurationMinutes is the display floor for a timed occurrence. A zero or
// negative start/end pair is clamped here rather than rejected so a malformed
// task never collapses to an invisible event.
const minDurationMinutes = 15

// weekdaySet is the fixed Mon..Fri set used by the "weekdays" repeat mode.
var weekdaySet = []model.Weekday{model.Mon, model.Tue, model.Wed, model.Thu, model.Fri}

// OccurrenceSpec is the declarative projection of one task onto the
// calendar: either a single concrete placement (FreqSingle) or a repeating
// rule (anchor, frequency, optional weekday set, fixed duration).
// The rule is the stored representation; Expand materializes it for a
// visible window.
type OccurrenceSpec struct {
	TaskID string
	Title  string

	AllDay bool

	// Start anchors the rule: the task's start instant, or its due date
	// for all-day tasks.
	Start time.Time
	// End is only set for a single timed placement.
	End time.Time

	Freq       Frequency
	ByWeekdays []model.Weekday

	// DurationMinutes is max(15, end-start) for timed tasks and 0 for
	// all-day tasks.
	DurationMinutes int
}

// Project translates a task into its OccurrenceSpec. It returns nil only
// when the task has no usable anchor date (no start instant and no due
// date); a malformed record degrades to nil instead of aborting projection
// of the rest of the set.
//
// Project is pure and deterministic: the same task always yields the same
// spec.
func Project(t model.Task) *OccurrenceSpec {
	anchor, ok := anchorTime(t)
	if !ok {
		return nil
	}

	spec := &OccurrenceSpec{
		TaskID: t.ID,
		Title:  t.Title,
		AllDay: !t.Timed(),
		Start:  anchor,
		Freq:   FreqSingle,
	}
	if t.Timed() {
		spec.DurationMinutes = clampedMinutes(*t.StartTime, *t.EndTime)
	}

	switch t.Repeat {
	case model.RepeatDaily:
		spec.Freq = FreqDaily
	case model.RepeatWeekdays:
		// Fixed Mon..Fri regardless of the stored weekday set.
		spec.Freq = FreqWeekly
		spec.ByWeekdays = append([]model.Weekday(nil), weekdaySet...)
	case model.RepeatWeekly:
		// Exactly the stored set. An empty set is a degenerate but valid
		// rule that recurs on no day.
		spec.Freq = FreqWeekly
		spec.ByWeekdays = append([]model.Weekday(nil), t.RepeatDays...)
	case model.RepeatMonthly:
		// Recurs on the anchor's day of month.
		spec.Freq = FreqMonthly
	default:
		// none, empty, or unrecognized: a single placement.
		if t.EndTime != nil {
			spec.End = *t.EndTime
		}
	}

	return spec
}

// RRule renders the repeating part of the spec as an iCalendar RRULE
// value ("FREQ=WEEKLY;BYDAY=MO,WE"). It returns "" for single placements
// and for weekly rules with an empty weekday set, which recur on no day
// and have no RRULE representation worth emitting.
func (s *OccurrenceSpec) RRule() string {
	switch s.Freq {
	case FreqDaily:
		return "FREQ=DAILY"
	case FreqMonthly:
		return "FREQ=MONTHLY"
	case FreqWeekly:
		if len(s.ByWeekdays) == 0 {
			return ""
		}
		days := make([]string, 0, len(s.ByWeekdays))
		for _, d := range s.ByWeekdays {
			if tag, ok := icalDayTags[d]; ok {
				days = append(days, tag)
			}
		}
		if len(days) == 0 {
			return ""
		}
		return "FREQ=WEEKLY;BYDAY=" + strings.Join(days, ",")
	default:
		return ""
	}
}

var icalDayTags = map[model.Weekday]string{
	model.Mon: "MO",
	model.Tue: "TU",
	model.Wed: "WE",
	model.Thu: "TH",
	model.Fri: "FR",
	model.Sat: "SA",
	model.Sun: "SU",
}

// anchorTime picks the spec anchor: start instant for timed tasks, due
// date otherwise.
func anchorTime(t model.Task) (time.Time, bool) {
	if t.StartTime != nil {
		return *t.StartTime, true
	}
	if !t.DueDate.IsZero() {
		return t.DueDate, true
	}
	return time.Time{}, false
}

func clampedMinutes(start, end time.Time) int {
	m := int(end.Sub(start) / time.Minute)
	if m < minDurationMinutes {
		return minDurationMinutes
	}
	return m
}
