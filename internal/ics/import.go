// Package ics maps iCalendar payloads onto task records so existing
// calendars can be imported into the store.
package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "dayly/internal/log"
	"dayly/internal/model"
)

// ImportResult reports how a payload was consumed.
type ImportResult struct {
	Tasks []model.Task
	// Skipped counts VEVENTs that could not be mapped (no summary, no
	// usable date).
	Skipped int
}

// ParseTasks parses an ICS payload into task records ready for insertion.
// The store assigns IDs; the tasks returned here carry none.
//
// Mapping rules:
//   - SUMMARY -> title (events without one are skipped)
//   - DTSTART/DTEND -> start/end instants; all-day events (VALUE=DATE or
//     a date-only DTSTART) map to a due date with no instants
//   - RRULE FREQ=DAILY / FREQ=WEEKLY;BYDAY=... / FREQ=MONTHLY map onto
//     the matching repeat mode; anything richer degrades to "none"
//     rather than guessing.
func ParseTasks(body []byte) (ImportResult, error) {
	var result ImportResult

	if len(body) == 0 {
		return result, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return result, err
	}

	for _, ve := range cal.Events() {
		task, ok := mapVEvent(ve)
		if !ok {
			result.Skipped++
			continue
		}
		result.Tasks = append(result.Tasks, task)
	}

	return result, nil
}

func mapVEvent(ve *ical.VEvent) (model.Task, bool) {
	var t model.Task

	p := ve.GetProperty(ical.ComponentPropertySummary)
	if p == nil || p.Value == "" {
		return t, false
	}
	t.Title = p.Value
	t.Category = model.CategoryOther
	t.Priority = model.PriorityMedium
	t.Repeat = model.RepeatNone

	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		t.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		t.Location = p.Value
	}

	start, err := ve.GetStartAt()
	if err != nil || start.IsZero() {
		return t, false
	}

	if isAllDay(ve) {
		t.DueDate = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	} else {
		end, err := ve.GetEndAt()
		if err != nil || end.IsZero() {
			// DTEND is optional; a missing one degrades to a zero-length
			// pair which the projection engine clamps for display.
			end = start
		}
		t.StartTime = &start
		t.EndTime = &end
		t.DueDate = end
	}

	if rruleProp := ve.GetProperty(ical.ComponentPropertyRrule); rruleProp != nil {
		t.Repeat, t.RepeatDays = mapRRule(rruleProp.Value)
	}

	return t, true
}

// isAllDay detects all-day events by inspecting the DTSTART value format,
// either VALUE=DATE or a date-only (no 'T') value.
func isAllDay(ve *ical.VEvent) bool {
	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return false
	}
	if params := dtStart.ICalParameters; params != nil {
		if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			return true
		}
	}
	return !strings.Contains(dtStart.Value, "T")
}

var weekdayByTag = map[string]model.Weekday{
	"MO": model.Mon,
	"TU": model.Tue,
	"WE": model.Wed,
	"TH": model.Thu,
	"FR": model.Fri,
	"SA": model.Sat,
	"SU": model.Sun,
}

// mapRRule reduces an RRULE value to the repeat modes tasks support.
func mapRRule(raw string) (model.Repeat, []model.Weekday) {
	freq := ""
	byday := ""
	for _, part := range strings.Split(raw, ";") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		switch strings.ToUpper(strings.TrimSpace(k)) {
		case "FREQ":
			freq = strings.ToUpper(strings.TrimSpace(v))
		case "BYDAY":
			byday = strings.ToUpper(strings.TrimSpace(v))
		case "INTERVAL":
			if strings.TrimSpace(v) != "1" {
				// Multi-interval rules have no task-model equivalent.
				appLog.Debug("ics import: RRULE with interval degraded to none", "rrule", raw)
				return model.RepeatNone, nil
			}
		}
	}

	switch freq {
	case "DAILY":
		return model.RepeatDaily, nil
	case "MONTHLY":
		return model.RepeatMonthly, nil
	case "WEEKLY":
		days := make([]model.Weekday, 0, 7)
		for _, tag := range strings.Split(byday, ",") {
			if d, ok := weekdayByTag[strings.TrimSpace(tag)]; ok {
				days = append(days, d)
			}
		}
		if len(days) == 0 {
			// WEEKLY without BYDAY recurs on the anchor's weekday in
			// iCalendar terms; too rich for the task model, degrade.
			appLog.Debug("ics import: WEEKLY rule without BYDAY degraded to none", "rrule", raw)
			return model.RepeatNone, nil
		}
		return model.RepeatWeekly, days
	default:
		if freq != "" {
			appLog.Debug("ics import: unsupported RRULE degraded to none", "rrule", raw)
		}
		return model.RepeatNone, nil
	}
}
