package schedule

import (
	"context"
	"time"

	appLog "dayly/internal/log"
	"dayly/internal/model"
)

// TaskStore is the slice of the storage contract the reschedule validator
// needs: the authoritative task set and the start/end write issued on a
// committed edit.
type TaskStore interface {
	FetchAll(ctx context.Context) ([]model.Task, error)
	UpdateTimes(ctx context.Context, id string, start, end time.Time) error
}

// Outcome is the terminal state of one reschedule gesture.
type Outcome string

const (
	// OutcomeNoOp: the gesture targeted an all-day event or carried no
	// usable range; nothing changed, nothing to revert.
	OutcomeNoOp Outcome = "noop"
	// OutcomeConflict: the candidate range overlaps another timed task;
	// no store write was issued.
	OutcomeConflict Outcome = "conflict"
	// OutcomeStoreError: the store rejected the update; the caller should
	// revert the optimistic position and surface Err. No retry is made.
	OutcomeStoreError Outcome = "store_error"
	// OutcomeCommitted: the update was written and the snapshot
	// re-fetched.
	OutcomeCommitted Outcome = "committed"
)

// RescheduleRequest is the candidate edit produced from a drag or resize
// gesture.
type RescheduleRequest struct {
	TaskID string
	Start  time.Time
	End    time.Time
	AllDay bool
}

// RescheduleResult reports how a gesture terminated.
type RescheduleResult struct {
	Outcome Outcome

	// ConflictWith is the ID of the first conflicting task when Outcome
	// is OutcomeConflict.
	ConflictWith string

	// Tasks is the refreshed snapshot after a successful commit, so the
	// caller can re-project without a second round-trip.
	Tasks []model.Task

	// Err carries the store error for OutcomeStoreError. It may also be
	// set alongside OutcomeCommitted when the write succeeded but the
	// follow-up re-fetch failed.
	Err error
}

// Validator orchestrates one reschedule gesture: build the candidate
// range, run the overlap check against the snapshot, and either commit
// the edit to the store or reject it. Every gesture reaches a terminal
// outcome synchronously; there are no partial transactions.
type Validator struct {
	store TaskStore
}

func NewValidator(store TaskStore) *Validator {
	return &Validator{store: store}
}

// Reschedule runs the gesture to its terminal state. tasks is the
// immutable in-memory snapshot the overlap check runs against; it is not
// mutated.
func (v *Validator) Reschedule(ctx context.Context, req RescheduleRequest, tasks []model.Task) RescheduleResult {
	// All-day gestures are ignored outright; so are gestures that lost
	// their range on the way in.
	if req.AllDay || req.Start.IsZero() || req.End.IsZero() {
		return RescheduleResult{Outcome: OutcomeNoOp}
	}

	if conflict, found := FirstConflict(req.TaskID, req.Start, req.End, tasks); found {
		appLog.Info("reschedule rejected: overlapping task",
			"task_id", req.TaskID, "conflict_with", conflict.ID)
		return RescheduleResult{Outcome: OutcomeConflict, ConflictWith: conflict.ID}
	}

	if err := v.store.UpdateTimes(ctx, req.TaskID, req.Start, req.End); err != nil {
		appLog.Error("reschedule commit failed", err, "task_id", req.TaskID)
		return RescheduleResult{Outcome: OutcomeStoreError, Err: err}
	}

	// Committed: refresh the whole snapshot rather than patching it, so
	// projection re-runs against the authoritative set.
	refreshed, err := v.store.FetchAll(ctx)
	if err != nil {
		appLog.Error("reschedule committed but snapshot refresh failed", err, "task_id", req.TaskID)
		return RescheduleResult{Outcome: OutcomeCommitted, Err: err}
	}

	appLog.Info("reschedule committed", "task_id", req.TaskID,
		"start", req.Start.Format(time.RFC3339), "end", req.End.Format(time.RFC3339))
	return RescheduleResult{Outcome: OutcomeCommitted, Tasks: refreshed}
}
