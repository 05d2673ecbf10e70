// Package store persists task records in an embedded SQLite database.
// It is the single mutation path for tasks; FetchAll always returns the
// authoritative current set. The projection engine never talks to this
// package directly, it only consumes snapshots fetched from here.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"dayly/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	category    TEXT NOT NULL DEFAULT 'other',
	priority    TEXT NOT NULL DEFAULT 'medium',
	repeat      TEXT NOT NULL DEFAULT 'none',
	repeat_days TEXT NOT NULL DEFAULT '[]',
	location    TEXT,
	description TEXT,
	due_date    DATETIME NOT NULL,
	start_time  DATETIME,
	end_time    DATETIME
);
`

const fetchAllQuery = `
SELECT id, title, category, priority, repeat, repeat_days,
       location, description, due_date, start_time, end_time
FROM tasks
ORDER BY start_time;
`

// TaskStore is a SQLite-backed task repository.
type TaskStore struct {
	db *sqlx.DB
}

// Open opens (creating if necessary) the task database at path and
// ensures the schema exists. Use ":memory:" style paths only from a
// single connection.
func Open(path string) (*TaskStore, error) {
	if path == "" {
		return nil, errors.New("store: database path is empty")
	}

	db, err := sqlx.Connect("sqlite3", "file:"+path+"?_loc=auto")
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &TaskStore{db: db}, nil
}

func (s *TaskStore) Close() error {
	return s.db.Close()
}

// taskRow mirrors the tasks table; repeat_days is a JSON array of
// lowercase three-letter weekday tags.
type taskRow struct {
	ID          string         `db:"id"`
	Title       string         `db:"title"`
	Category    string         `db:"category"`
	Priority    string         `db:"priority"`
	Repeat      string         `db:"repeat"`
	RepeatDays  string         `db:"repeat_days"`
	Location    sql.NullString `db:"location"`
	Description sql.NullString `db:"description"`
	DueDate     time.Time      `db:"due_date"`
	StartTime   sql.NullTime   `db:"start_time"`
	EndTime     sql.NullTime   `db:"end_time"`
}

// FetchAll returns every task ordered by start time ascending (all-day
// tasks, which have no start time, sort first).
func (s *TaskStore) FetchAll(ctx context.Context) ([]model.Task, error) {
	var rows []taskRow
	if err := s.db.SelectContext(ctx, &rows, fetchAllQuery); err != nil {
		return nil, err
	}

	tasks := make([]model.Task, 0, len(rows))
	for _, row := range rows {
		t, err := rowToTask(row)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// Insert validates and stores a new task, assigning its ID. The returned
// task carries the assigned ID; the input is not mutated.
func (s *TaskStore) Insert(ctx context.Context, t model.Task) (model.Task, error) {
	t.Normalize()
	if err := t.Validate(); err != nil {
		return model.Task{}, err
	}

	t.ID = uuid.NewString()

	row, err := taskToRow(t)
	if err != nil {
		return model.Task{}, err
	}

	const q = `
INSERT INTO tasks (id, title, category, priority, repeat, repeat_days,
                   location, description, due_date, start_time, end_time)
VALUES (:id, :title, :category, :priority, :repeat, :repeat_days,
        :location, :description, :due_date, :start_time, :end_time);
`
	if _, err := s.db.NamedExecContext(ctx, q, row); err != nil {
		return model.Task{}, err
	}
	return t, nil
}

// Update replaces the full record for id. There are no partial patch
// semantics at this layer; callers send the whole task.
func (s *TaskStore) Update(ctx context.Context, id string, t model.Task) error {
	t.Normalize()
	if err := t.Validate(); err != nil {
		return err
	}

	t.ID = id
	row, err := taskToRow(t)
	if err != nil {
		return err
	}

	const q = `
UPDATE tasks SET
	title = :title, category = :category, priority = :priority,
	repeat = :repeat, repeat_days = :repeat_days,
	location = :location, description = :description,
	due_date = :due_date, start_time = :start_time, end_time = :end_time
WHERE id = :id;
`
	res, err := s.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return err
	}
	return checkFound(res)
}

// UpdateTimes writes only the start/end instants for id. This is the
// write issued when a reschedule gesture commits; the rest of the record
// is untouched.
func (s *TaskStore) UpdateTimes(ctx context.Context, id string, start, end time.Time) error {
	const q = `UPDATE tasks SET start_time = ?, end_time = ? WHERE id = ?;`
	res, err := s.db.ExecContext(ctx, q, start, end, id)
	if err != nil {
		return err
	}
	return checkFound(res)
}

func (s *TaskStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?;`, id)
	if err != nil {
		return err
	}
	return checkFound(res)
}

func checkFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrTaskNotFound
	}
	return nil
}

func rowToTask(row taskRow) (model.Task, error) {
	t := model.Task{
		ID:       row.ID,
		Title:    row.Title,
		Category: model.Category(row.Category),
		Priority: model.Priority(row.Priority),
		Repeat:   model.Repeat(row.Repeat),
		DueDate:  row.DueDate,
	}

	if row.RepeatDays != "" {
		if err := json.Unmarshal([]byte(row.RepeatDays), &t.RepeatDays); err != nil {
			return model.Task{}, err
		}
	}
	if len(t.RepeatDays) == 0 {
		t.RepeatDays = nil
	}

	if row.Location.Valid {
		t.Location = row.Location.String
	}
	if row.Description.Valid {
		t.Description = row.Description.String
	}
	if row.StartTime.Valid {
		v := row.StartTime.Time
		t.StartTime = &v
	}
	if row.EndTime.Valid {
		v := row.EndTime.Time
		t.EndTime = &v
	}

	return t, nil
}

func taskToRow(t model.Task) (taskRow, error) {
	days := t.RepeatDays
	if days == nil {
		days = []model.Weekday{}
	}
	daysJSON, err := json.Marshal(days)
	if err != nil {
		return taskRow{}, err
	}

	row := taskRow{
		ID:         t.ID,
		Title:      t.Title,
		Category:   string(t.Category),
		Priority:   string(t.Priority),
		Repeat:     string(t.Repeat),
		RepeatDays: string(daysJSON),
		DueDate:    t.DueDate,
	}

	if t.Location != "" {
		row.Location = sql.NullString{String: t.Location, Valid: true}
	}
	if t.Description != "" {
		row.Description = sql.NullString{String: t.Description, Valid: true}
	}
	if t.StartTime != nil {
		row.StartTime = sql.NullTime{Time: *t.StartTime, Valid: true}
	}
	if t.EndTime != nil {
		row.EndTime = sql.NullTime{Time: *t.EndTime, Valid: true}
	}

	return row, nil
}
