package schedule

import (
	"time"

	"dayly/internal/model"
)

// Overlaps reports whether the candidate range [start,end) conflicts with
// any other timed task's stored range. The task whose ID equals
// candidateID is excluded (a task never conflicts with its own prior
// placement), as are all-day tasks in either role.
//
// Only stored base ranges are compared; repeating tasks are not expanded
// into their other occurrences before checking.
func Overlaps(candidateID string, start, end time.Time, tasks []model.Task) bool {
	_, found := FirstConflict(candidateID, start, end, tasks)
	return found
}

// FirstConflict is Overlaps with the identity of the first conflicting
// task. The snapshot order decides which conflict is reported when there
// are several.
func FirstConflict(candidateID string, start, end time.Time, tasks []model.Task) (*model.Task, bool) {
	for i := range tasks {
		t := &tasks[i]
		if t.ID == candidateID {
			continue
		}
		if !t.Timed() {
			continue
		}
		if rangesOverlap(start, end, *t.StartTime, *t.EndTime) {
			return t, true
		}
	}
	return nil, false
}

// rangesOverlap is the half-open interval test: [aStart,aEnd) and
// [bStart,bEnd) conflict iff aStart < bEnd && bStart < aEnd. Touching
// endpoints do not conflict.
func rangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
