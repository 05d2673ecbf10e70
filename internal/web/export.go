package web

import (
	"io"
	"net/http"
	"time"

	ical "github.com/arran4/golang-ical"

	"dayly/internal/ics"
	appLog "dayly/internal/log"
	"dayly/internal/schedule"
)

// handleExportICS serializes the current task set as an iCalendar feed.
// Repeating tasks carry their RRULE so any calendar client expands them
// itself; tasks without a usable anchor are skipped.
//
// GET /api/export.ics
func (s *Server) handleExportICS(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.snapshot(r.Context())
	if err != nil {
		appLog.Error("ics export: snapshot fetch failed", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch tasks")
		return
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//dayly//calendar export//EN")

	for _, t := range tasks {
		spec := schedule.Project(t)
		if spec == nil {
			continue
		}

		ev := cal.AddEvent(t.ID + "@dayly")
		ev.SetSummary(t.Title)
		if t.Location != "" {
			ev.SetLocation(t.Location)
		}
		if t.Description != "" {
			ev.SetDescription(t.Description)
		}

		if spec.AllDay {
			ev.SetAllDayStartAt(spec.Start)
			ev.SetAllDayEndAt(spec.Start.AddDate(0, 0, 1))
		} else {
			ev.SetStartAt(spec.Start)
			end := spec.End
			if end.IsZero() {
				end = spec.Start.Add(time.Duration(spec.DurationMinutes) * time.Minute)
			}
			ev.SetEndAt(end)
		}

		if rule := spec.RRule(); rule != "" {
			ev.SetProperty(ical.ComponentPropertyRrule, rule)
		}
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="dayly.ics"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(cal.Serialize())); err != nil {
		appLog.Error("ics export: write failed", err)
	}
}

// importResponse summarizes an ICS import.
type importResponse struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// handleImportICS creates tasks from the VEVENTs of an uploaded ICS
// payload. Events that cannot be mapped are counted, not fatal.
//
// POST /api/import.ics with the raw calendar as the request body.
func (s *Server) handleImportICS(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 4<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	result, err := ics.ParseTasks(body)
	if err != nil {
		appLog.Error("ics import: parse failed", err)
		writeError(w, http.StatusBadRequest, "invalid ICS payload")
		return
	}

	imported := 0
	skipped := result.Skipped
	for _, t := range result.Tasks {
		if _, err := s.store.Insert(r.Context(), t); err != nil {
			appLog.Error("ics import: insert failed", err, "title", t.Title)
			skipped++
			continue
		}
		imported++
	}

	if imported > 0 {
		if _, err := s.RefreshSnapshot(r.Context()); err != nil {
			appLog.Error("snapshot refresh after import failed", err)
		}
	}

	appLog.Info("ics import completed", "imported", imported, "skipped", skipped)
	writeJSON(w, http.StatusOK, importResponse{Imported: imported, Skipped: skipped})
}
