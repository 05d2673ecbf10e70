package schedule

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	appLog "dayly/internal/log"
	"dayly/internal/model"
)

const defaultMaxOccurrencesPerTask = 5000

// ExpandConfig controls how occurrence materialization is performed.
type ExpandConfig struct {
	// DisplayLocation is the timezone to which all occurrences will be
	// converted. If nil, time.Local is used.
	DisplayLocation *time.Location

	// RangeStart / RangeEnd define the inclusive time window for occurrences.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerTask is a safety cap to avoid extremely large
	// expansions for long windows. If zero, defaultMaxOccurrencesPerTask
	// is used.
	MaxOccurrencesPerTask int
}

// Occurrence is one concrete calendar placement derived from a task,
// normalized into the display timezone.
type Occurrence struct {
	TaskID string

	// InstanceKey uniquely identifies a single occurrence of a repeating
	// task, derived from the local start time.
	InstanceKey string

	Title    string
	Category model.Category
	Priority model.Priority
	Location string

	AllDay bool

	Start time.Time
	End   time.Time
}

// ExpandResult wraps the materialized occurrences and optionally
// information about truncation.
type ExpandResult struct {
	Occurrences []Occurrence
	// TruncatedTasks records task IDs that hit the MaxOccurrencesPerTask cap.
	TruncatedTasks []string
}

// ExpandAll projects every task in the snapshot and materializes concrete
// occurrences within the given window. Tasks without a usable anchor are
// skipped with a log line; one bad record never aborts expansion of the
// rest of the set.
func ExpandAll(tasks []model.Task, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.Local
	}
	if cfg.MaxOccurrencesPerTask <= 0 {
		cfg.MaxOccurrencesPerTask = defaultMaxOccurrencesPerTask
	}

	all := make([]Occurrence, 0)

	for _, t := range tasks {
		spec := Project(t)
		if spec == nil {
			appLog.Error("expand: task has no usable anchor date, skipping",
				errors.New("missing anchor"), "task_id", t.ID)
			continue
		}

		occ, hitCap := expandSpec(t, spec, cfg)
		if hitCap {
			result.TruncatedTasks = append(result.TruncatedTasks, t.ID)
			appLog.Error("expand: truncated occurrences for task due to cap",
				errors.New("max occurrences reached"),
				"task_id", t.ID,
				"cap", cfg.MaxOccurrencesPerTask,
			)
		}
		all = append(all, occ...)
	}

	result.Occurrences = all
	return result, nil
}

// Expand materializes a single spec within the window. It is the
// (rule, windowStart, windowEnd) -> occurrences mapping; task carries the
// display fields copied onto each occurrence.
func Expand(t model.Task, spec *OccurrenceSpec, cfg ExpandConfig) []Occurrence {
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.Local
	}
	if cfg.MaxOccurrencesPerTask <= 0 {
		cfg.MaxOccurrencesPerTask = defaultMaxOccurrencesPerTask
	}
	occ, _ := expandSpec(t, spec, cfg)
	return occ
}

func expandSpec(t model.Task, spec *OccurrenceSpec, cfg ExpandConfig) ([]Occurrence, bool) {
	if spec.Freq == FreqSingle {
		return expandSingle(t, spec, cfg), false
	}
	return expandRepeating(t, spec, cfg)
}

func expandSingle(t model.Task, spec *OccurrenceSpec, cfg ExpandConfig) []Occurrence {
	start, end := instanceBounds(spec, spec.Start)

	// Skip placements that do not intersect [RangeStart, RangeEnd].
	if !timeRangesIntersect(start, end, cfg.RangeStart, cfg.RangeEnd) {
		return nil
	}
	return []Occurrence{makeOccurrence(t, spec, start, end, cfg.DisplayLocation)}
}

func expandRepeating(t model.Task, spec *OccurrenceSpec, cfg ExpandConfig) ([]Occurrence, bool) {
	// A weekly rule with an empty weekday set recurs on no day.
	if spec.Freq == FreqWeekly && len(spec.ByWeekdays) == 0 {
		return nil, false
	}

	opt := rrule.ROption{
		Dtstart: spec.Start,
	}
	switch spec.Freq {
	case FreqDaily:
		opt.Freq = rrule.DAILY
	case FreqWeekly:
		opt.Freq = rrule.WEEKLY
		opt.Byweekday = rruleWeekdays(spec.ByWeekdays)
	case FreqMonthly:
		// Recurs on the same day of month as the anchor.
		opt.Freq = rrule.MONTHLY
	default:
		return nil, false
	}

	r, err := rrule.NewRRule(opt)
	if err != nil {
		appLog.Error("expand: failed to build recurrence rule", err,
			"task_id", spec.TaskID, "freq", string(spec.Freq))
		return nil, false
	}

	var set rrule.Set
	set.RRule(r)

	// Evaluate the window in the anchor's location so day boundaries line
	// up with the rule's own timezone.
	rangeStart := cfg.RangeStart.In(spec.Start.Location())
	rangeEnd := cfg.RangeEnd.In(spec.Start.Location())

	occTimes := set.Between(rangeStart, rangeEnd, true)

	hitCap := false
	if len(occTimes) > cfg.MaxOccurrencesPerTask {
		occTimes = occTimes[:cfg.MaxOccurrencesPerTask]
		hitCap = true
	}

	out := make([]Occurrence, 0, len(occTimes))
	for _, occStart := range occTimes {
		start, end := instanceBounds(spec, occStart)
		out = append(out, makeOccurrence(t, spec, start, end, cfg.DisplayLocation))
	}

	return out, hitCap
}

// instanceBounds computes the concrete start/end of one instance anchored
// at occStart. All-day instances cover [date 00:00, next day 00:00) in the
// anchor's timezone; timed instances carry the spec's clamped duration.
func instanceBounds(spec *OccurrenceSpec, occStart time.Time) (time.Time, time.Time) {
	if spec.AllDay {
		date := time.Date(occStart.Year(), occStart.Month(), occStart.Day(), 0, 0, 0, 0, occStart.Location())
		return date, date.Add(24 * time.Hour)
	}
	return occStart, occStart.Add(time.Duration(spec.DurationMinutes) * time.Minute)
}

func makeOccurrence(t model.Task, spec *OccurrenceSpec, start, end time.Time, displayLoc *time.Location) Occurrence {
	startLocal := start.In(displayLoc)
	endLocal := end.In(displayLoc)

	return Occurrence{
		TaskID:      spec.TaskID,
		InstanceKey: startLocal.Format(time.RFC3339Nano),
		Title:       spec.Title,
		Category:    t.Category,
		Priority:    t.Priority,
		Location:    t.Location,
		AllDay:      spec.AllDay,
		Start:       startLocal,
		End:         endLocal,
	}
}

func rruleWeekdays(days []model.Weekday) []rrule.Weekday {
	out := make([]rrule.Weekday, 0, len(days))
	for _, d := range days {
		switch d {
		case model.Mon:
			out = append(out, rrule.MO)
		case model.Tue:
			out = append(out, rrule.TU)
		case model.Wed:
			out = append(out, rrule.WE)
		case model.Thu:
			out = append(out, rrule.TH)
		case model.Fri:
			out = append(out, rrule.FR)
		case model.Sat:
			out = append(out, rrule.SA)
		case model.Sun:
			out = append(out, rrule.SU)
		}
	}
	return out
}

// timeRangesIntersect reports whether [aStart,aEnd] and [bStart,bEnd]
// share any instant, boundaries included. This is the inclusive window
// test used for visibility, distinct from the half-open conflict test in
// overlap.go.
func timeRangesIntersect(aStart, aEnd, bStart, bEnd time.Time) bool {
	if aEnd.Before(bStart) {
		return false
	}
	if bEnd.Before(aStart) {
		return false
	}
	return true
}
