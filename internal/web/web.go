// Package web exposes the task manager over a JSON HTTP API: task CRUD,
// the reschedule gesture, occurrence listing for a visible window, the
// navigation grids, and ICS export/import of the task set.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"dayly/internal/config"
	appLog "dayly/internal/log"
	"dayly/internal/model"
	"dayly/internal/schedule"
)

// Store is the storage collaborator contract consumed by the server. It
// is the only mutation path for tasks; FetchAll returns the authoritative
// current set.
type Store interface {
	FetchAll(ctx context.Context) ([]model.Task, error)
	Insert(ctx context.Context, t model.Task) (model.Task, error)
	Update(ctx context.Context, id string, t model.Task) error
	UpdateTimes(ctx context.Context, id string, start, end time.Time) error
	Delete(ctx context.Context, id string) error
}

// Server serves the HTTP API on top of a task store.
type Server struct {
	cfg       *config.Config
	store     Store
	validator *schedule.Validator
	mux       *http.ServeMux

	// In-memory snapshot of the task set, refreshed wholesale after every
	// mutation and periodically by cron. Read paths tolerate a short TTL
	// of staleness to avoid hitting the store on every request.
	tasksMu       sync.RWMutex
	tasksSnapshot []model.Task
	tasksUpdated  time.Time
}

const snapshotTTL = 30 * time.Second

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, st Store) *Server {
	s := &Server{
		cfg:       cfg,
		store:     st,
		validator: schedule.NewValidator(st),
		mux:       http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/tasks", s.handleListTasks)
	s.mux.HandleFunc("POST /api/tasks", s.handleCreateTask)
	s.mux.HandleFunc("PUT /api/tasks/{id}", s.handleUpdateTask)
	s.mux.HandleFunc("DELETE /api/tasks/{id}", s.handleDeleteTask)
	s.mux.HandleFunc("POST /api/tasks/{id}/reschedule", s.handleReschedule)

	s.mux.HandleFunc("GET /api/occurrences", s.handleOccurrences)
	s.mux.HandleFunc("GET /api/grid/month", s.handleMonthGrid)
	s.mux.HandleFunc("GET /api/grid/week", s.handleWeekGrid)

	s.mux.HandleFunc("GET /api/export.ics", s.handleExportICS)
	s.mux.HandleFunc("POST /api/import.ics", s.handleImportICS)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Treat empty username or password as disabled.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// /health stays reachable without credentials.
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="DayLy", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

/* ---------- task snapshot ---------- */

// snapshot returns the cached task set, refreshing it from the store when
// the cache is older than snapshotTTL.
func (s *Server) snapshot(ctx context.Context) ([]model.Task, error) {
	s.tasksMu.RLock()
	tasks := s.tasksSnapshot
	updated := s.tasksUpdated
	s.tasksMu.RUnlock()

	if !updated.IsZero() && time.Since(updated) < snapshotTTL {
		return tasks, nil
	}
	return s.RefreshSnapshot(ctx)
}

// RefreshSnapshot re-fetches the whole task set from the store. It is
// called after every mutation and from the periodic cron refresh.
func (s *Server) RefreshSnapshot(ctx context.Context) ([]model.Task, error) {
	tasks, err := s.store.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	s.setSnapshot(tasks)
	return tasks, nil
}

func (s *Server) setSnapshot(tasks []model.Task) {
	s.tasksMu.Lock()
	s.tasksSnapshot = tasks
	s.tasksUpdated = time.Now()
	s.tasksMu.Unlock()
}

/* ---------- task CRUD ---------- */

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.snapshot(r.Context())
	if err != nil {
		appLog.Error("list tasks failed", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch tasks")
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var t model.Task
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, http.StatusBadRequest, "invalid task payload")
		return
	}

	created, err := s.store.Insert(r.Context(), t)
	if err != nil {
		if isValidationErr(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		appLog.Error("create task failed", err)
		writeError(w, http.StatusInternalServerError, "failed to create task")
		return
	}

	if _, err := s.RefreshSnapshot(r.Context()); err != nil {
		appLog.Error("snapshot refresh after create failed", err, "task_id", created.ID)
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var t model.Task
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, http.StatusBadRequest, "invalid task payload")
		return
	}

	// On a timed edit the due date follows the end instant.
	if t.Timed() {
		t.DueDate = *t.EndTime
	}

	if err := s.store.Update(r.Context(), id, t); err != nil {
		switch {
		case errors.Is(err, model.ErrTaskNotFound):
			writeError(w, http.StatusNotFound, "task not found")
		case isValidationErr(err):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			appLog.Error("update task failed", err, "task_id", id)
			writeError(w, http.StatusInternalServerError, "failed to update task")
		}
		return
	}

	if _, err := s.RefreshSnapshot(r.Context()); err != nil {
		appLog.Error("snapshot refresh after update failed", err, "task_id", id)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := s.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, model.ErrTaskNotFound) {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		appLog.Error("delete task failed", err, "task_id", id)
		writeError(w, http.StatusInternalServerError, "failed to delete task")
		return
	}

	if _, err := s.RefreshSnapshot(r.Context()); err != nil {
		appLog.Error("snapshot refresh after delete failed", err, "task_id", id)
	}
	w.WriteHeader(http.StatusNoContent)
}

func isValidationErr(err error) bool {
	return errors.Is(err, model.ErrEmptyTitle) ||
		errors.Is(err, model.ErrBadTimeRange) ||
		errors.Is(err, model.ErrMissingDueDate)
}

/* ---------- reschedule ---------- */

// rescheduleRequest is the JSON body of a drag/resize edit.
type rescheduleRequest struct {
	Start  time.Time `json:"start_time"`
	End    time.Time `json:"end_time"`
	AllDay bool      `json:"all_day"`
}

// rescheduleResponse reports the terminal outcome of the gesture.
type rescheduleResponse struct {
	Outcome      schedule.Outcome `json:"outcome"`
	ConflictWith string           `json:"conflict_with,omitempty"`
	Tasks        []model.Task     `json:"tasks,omitempty"`
	Error        string           `json:"error,omitempty"`
}

func (s *Server) handleReschedule(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var body rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid reschedule payload")
		return
	}

	tasks, err := s.snapshot(r.Context())
	if err != nil {
		appLog.Error("reschedule: snapshot fetch failed", err, "task_id", id)
		writeError(w, http.StatusInternalServerError, "failed to fetch tasks")
		return
	}

	result := s.validator.Reschedule(r.Context(), schedule.RescheduleRequest{
		TaskID: id,
		Start:  body.Start,
		End:    body.End,
		AllDay: body.AllDay,
	}, tasks)

	resp := rescheduleResponse{
		Outcome:      result.Outcome,
		ConflictWith: result.ConflictWith,
		Tasks:        result.Tasks,
	}
	if result.Err != nil {
		// Surfaced verbatim; the client reverts and shows the message.
		resp.Error = result.Err.Error()
	}

	switch result.Outcome {
	case schedule.OutcomeConflict:
		writeJSON(w, http.StatusConflict, resp)
	case schedule.OutcomeStoreError:
		writeJSON(w, http.StatusInternalServerError, resp)
	case schedule.OutcomeCommitted:
		s.setSnapshot(result.Tasks)
		writeJSON(w, http.StatusOK, resp)
	default:
		writeJSON(w, http.StatusOK, resp)
	}
}

/* ---------- occurrences ---------- */

// occurrencesResponse is the JSON response shape for /api/occurrences.
type occurrencesResponse struct {
	Occurrences     []occurrenceDTO `json:"occurrences"`
	TruncatedTasks  []string        `json:"truncated_task_ids,omitempty"`
	RangeStart      time.Time       `json:"range_start"`
	RangeEnd        time.Time       `json:"range_end"`
	DisplayTimeZone string          `json:"display_timezone"`
	WeekStart       string          `json:"week_start"`
}

// occurrenceDTO is a JSON-friendly view of occurrences.
type occurrenceDTO struct {
	TaskID      string         `json:"task_id"`
	InstanceKey string         `json:"instance_key"`
	Title       string         `json:"title"`
	Category    model.Category `json:"category"`
	Priority    model.Priority `json:"priority"`
	Location    string         `json:"location,omitempty"`
	AllDay      bool           `json:"all_day"`
	Start       time.Time      `json:"start"`
	End         time.Time      `json:"end"`
}

// handleOccurrences materializes occurrences for all tasks within a
// requested window.
//
// GET /api/occurrences?days=7&backfill=1&priority=high,medium
//   - days:     how many future days to cover (default config horizon)
//   - backfill: how many past days to include (default 1)
//   - priority: optional comma-separated priority filter (month view)
func (s *Server) handleOccurrences(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	days := parseIntDefault(q.Get("days"), s.cfg.HorizonDays)
	if days <= 0 {
		days = s.cfg.HorizonDays
	}
	backfill := parseIntDefault(q.Get("backfill"), 1)
	if backfill < 0 {
		backfill = 0
	}

	loc := resolveLocationOrLocal(s.cfg.Timezone)

	tasks, err := s.snapshot(r.Context())
	if err != nil {
		appLog.Error("occurrences: snapshot fetch failed", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch tasks")
		return
	}

	if p := q.Get("priority"); p != "" {
		tasks = filterByPriority(tasks, p)
	}

	now := time.Now().In(loc)
	rangeStart := now.AddDate(0, 0, -backfill)
	rangeEnd := now.AddDate(0, 0, days)

	result, err := schedule.ExpandAll(tasks, schedule.ExpandConfig{
		DisplayLocation: loc,
		RangeStart:      rangeStart,
		RangeEnd:        rangeEnd,
	})
	if err != nil {
		appLog.Error("occurrences: expand failed", err)
		writeError(w, http.StatusInternalServerError, "failed to expand occurrences")
		return
	}

	dtos := make([]occurrenceDTO, 0, len(result.Occurrences))
	for _, occ := range result.Occurrences {
		dtos = append(dtos, occurrenceDTO{
			TaskID:      occ.TaskID,
			InstanceKey: occ.InstanceKey,
			Title:       occ.Title,
			Category:    occ.Category,
			Priority:    occ.Priority,
			Location:    occ.Location,
			AllDay:      occ.AllDay,
			Start:       occ.Start,
			End:         occ.End,
		})
	}

	writeJSON(w, http.StatusOK, occurrencesResponse{
		Occurrences:     dtos,
		TruncatedTasks:  result.TruncatedTasks,
		RangeStart:      rangeStart,
		RangeEnd:        rangeEnd,
		DisplayTimeZone: loc.String(),
		WeekStart:       s.cfg.WeekStart,
	})
}

// filterByPriority keeps tasks whose priority is in the comma-separated
// list. Tasks with an empty priority count as medium, matching how the
// month view treats them.
func filterByPriority(tasks []model.Task, list string) []model.Task {
	wanted := map[model.Priority]bool{}
	for _, p := range strings.Split(list, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		wanted[model.Priority(p)] = true
	}

	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		p := t.Priority
		if p == "" {
			p = model.PriorityMedium
		}
		if wanted[p] {
			out = append(out, t)
		}
	}
	return out
}

/* ---------- navigation grids ---------- */

type monthGridResponse struct {
	Year  int      `json:"year"`
	Month int      `json:"month"`
	Weeks [][7]int `json:"weeks"`
}

type weekGridResponse struct {
	Days [7]string `json:"days"`
}

// handleMonthGrid returns the month's day matrix used by navigation.
//
// GET /api/grid/month?year=2024&month=2
func (s *Server) handleMonthGrid(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year := parseIntDefault(q.Get("year"), 0)
	month := parseIntDefault(q.Get("month"), 0)
	if year < 1 || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "year and month (1-12) are required")
		return
	}

	writeJSON(w, http.StatusOK, monthGridResponse{
		Year:  year,
		Month: month,
		Weeks: schedule.MonthMatrix(year, time.Month(month)),
	})
}

// handleWeekGrid returns the Monday-to-Sunday week containing the date.
//
// GET /api/grid/week?date=2024-02-05
func (s *Server) handleWeekGrid(w http.ResponseWriter, r *http.Request) {
	loc := resolveLocationOrLocal(s.cfg.Timezone)

	raw := r.URL.Query().Get("date")
	date, err := time.ParseInLocation("2006-01-02", raw, loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	var resp weekGridResponse
	for i, d := range schedule.WeekRange(date) {
		resp.Days[i] = d.Format("2006-01-02")
	}
	writeJSON(w, http.StatusOK, resp)
}

/* ---------- helpers ---------- */

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
