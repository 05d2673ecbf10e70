package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dayly/internal/model"
)

func utcWindow(start, end time.Time) ExpandConfig {
	return ExpandConfig{
		DisplayLocation: time.UTC,
		RangeStart:      start,
		RangeEnd:        end,
	}
}

func TestExpandAllDailyTask(t *testing.T) {
	start := time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	task := timedTask(model.RepeatDaily, start, end)

	cfg := utcWindow(
		time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.January, 4, 0, 0, 0, 0, time.UTC),
	)

	result, err := ExpandAll([]model.Task{task}, cfg)
	require.NoError(t, err)
	require.Len(t, result.Occurrences, 3)

	for i, occ := range result.Occurrences {
		wantStart := time.Date(2024, time.January, 1+i, 9, 0, 0, 0, time.UTC)
		assert.True(t, occ.Start.Equal(wantStart), "occurrence %d start", i)
		assert.True(t, occ.End.Equal(wantStart.Add(time.Hour)), "occurrence %d end", i)
		assert.Equal(t, "t1", occ.TaskID)
		assert.NotEmpty(t, occ.InstanceKey)
		assert.False(t, occ.AllDay)
	}
	assert.Empty(t, result.TruncatedTasks)
}

func TestExpandWeeklyHonorsWeekdaySet(t *testing.T) {
	// Monday 2024-01-01, repeating Mon+Wed.
	start := time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	task := timedTask(model.RepeatWeekly, start, end)
	task.RepeatDays = []model.Weekday{model.Mon, model.Wed}

	cfg := utcWindow(
		time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.January, 13, 0, 0, 0, 0, time.UTC),
	)

	result, err := ExpandAll([]model.Task{task}, cfg)
	require.NoError(t, err)
	require.Len(t, result.Occurrences, 4)

	wantDays := []int{1, 3, 8, 10}
	for i, occ := range result.Occurrences {
		assert.Equal(t, wantDays[i], occ.Start.Day())
		assert.Equal(t, 9, occ.Start.Hour())
	}
}

func TestExpandWeekdaysCoversMonToFri(t *testing.T) {
	start := time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC) // Monday
	end := start.Add(30 * time.Minute)
	task := timedTask(model.RepeatWeekdays, start, end)

	cfg := utcWindow(
		time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC),
	)

	result, err := ExpandAll([]model.Task{task}, cfg)
	require.NoError(t, err)
	require.Len(t, result.Occurrences, 5)

	for _, occ := range result.Occurrences {
		wd := occ.Start.Weekday()
		assert.NotEqual(t, time.Saturday, wd)
		assert.NotEqual(t, time.Sunday, wd)
	}
}

func TestExpandWeeklyEmptySetYieldsNothing(t *testing.T) {
	start := time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	task := timedTask(model.RepeatWeekly, start, end) // no RepeatDays

	cfg := utcWindow(
		time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
	)

	result, err := ExpandAll([]model.Task{task}, cfg)
	require.NoError(t, err)
	assert.Empty(t, result.Occurrences, "a weekly rule with no weekdays recurs on no day")
}

func TestExpandMonthlyRecursOnAnchorDay(t *testing.T) {
	start := time.Date(2024, time.January, 15, 8, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	task := timedTask(model.RepeatMonthly, start, end)

	cfg := utcWindow(
		time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC),
	)

	result, err := ExpandAll([]model.Task{task}, cfg)
	require.NoError(t, err)
	require.Len(t, result.Occurrences, 3)

	for i, occ := range result.Occurrences {
		assert.Equal(t, 15, occ.Start.Day())
		assert.Equal(t, time.Month(i+1), occ.Start.Month())
	}
}

func TestExpandAllDayRepeatingTask(t *testing.T) {
	due := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	task := model.Task{
		ID:      "allday",
		Title:   "vitamins",
		Repeat:  model.RepeatDaily,
		DueDate: due,
	}

	cfg := utcWindow(due, due.AddDate(0, 0, 2))

	result, err := ExpandAll([]model.Task{task}, cfg)
	require.NoError(t, err)
	require.NotEmpty(t, result.Occurrences)

	for _, occ := range result.Occurrences {
		assert.True(t, occ.AllDay)
		// All-day instances span [date 00:00, next day 00:00).
		assert.Equal(t, 0, occ.Start.Hour())
		assert.True(t, occ.End.Equal(occ.Start.Add(24*time.Hour)))
	}
}

func TestExpandSingleOnlyInsideWindow(t *testing.T) {
	start := time.Date(2024, time.February, 5, 14, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	task := timedTask(model.RepeatNone, start, end)

	inside := utcWindow(
		time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.February, 28, 0, 0, 0, 0, time.UTC),
	)
	result, err := ExpandAll([]model.Task{task}, inside)
	require.NoError(t, err)
	require.Len(t, result.Occurrences, 1)
	assert.True(t, result.Occurrences[0].Start.Equal(start))
	assert.True(t, result.Occurrences[0].End.Equal(end))

	outside := utcWindow(
		time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC),
	)
	result, err = ExpandAll([]model.Task{task}, outside)
	require.NoError(t, err)
	assert.Empty(t, result.Occurrences)
}

func TestExpandZeroDurationClampsInstanceLength(t *testing.T) {
	start := time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)
	task := timedTask(model.RepeatDaily, start, start)

	cfg := utcWindow(start.AddDate(0, 0, -1), start.AddDate(0, 0, 1))

	result, err := ExpandAll([]model.Task{task}, cfg)
	require.NoError(t, err)
	require.NotEmpty(t, result.Occurrences)

	occ := result.Occurrences[0]
	assert.Equal(t, 15*time.Minute, occ.End.Sub(occ.Start), "never collapses to an invisible event")
}

func TestExpandCapTruncates(t *testing.T) {
	start := time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	task := timedTask(model.RepeatDaily, start, end)

	cfg := ExpandConfig{
		DisplayLocation:       time.UTC,
		RangeStart:            time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:              time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC),
		MaxOccurrencesPerTask: 2,
	}

	result, err := ExpandAll([]model.Task{task}, cfg)
	require.NoError(t, err)
	assert.Len(t, result.Occurrences, 2)
	assert.Equal(t, []string{"t1"}, result.TruncatedTasks)
}

func TestExpandAllSkipsAnchorlessTasks(t *testing.T) {
	good := timedTask(model.RepeatNone,
		time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2024, time.January, 1, 10, 0, 0, 0, time.UTC))
	bad := model.Task{ID: "orphan", Title: "no anchor"}

	cfg := utcWindow(
		time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC),
	)

	result, err := ExpandAll([]model.Task{bad, good}, cfg)
	require.NoError(t, err)
	assert.Len(t, result.Occurrences, 1, "one bad record does not abort the rest")
}

func TestExpandOneTaskForWindow(t *testing.T) {
	start := time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	task := timedTask(model.RepeatDaily, start, end)

	spec := Project(task)
	require.NotNil(t, spec)

	occ := Expand(task, spec, utcWindow(
		time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.January, 12, 0, 0, 0, 0, time.UTC),
	))
	require.Len(t, occ, 2)
	assert.Equal(t, 10, occ[0].Start.Day())
	assert.Equal(t, 11, occ[1].Start.Day())
}

func TestExpandRejectsInvertedWindow(t *testing.T) {
	cfg := utcWindow(
		time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
	)
	_, err := ExpandAll(nil, cfg)
	assert.Error(t, err)
}
