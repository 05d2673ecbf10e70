package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthMatrixCoversEveryDayExactlyOnce(t *testing.T) {
	cases := []struct {
		year  int
		month time.Month
		days  int
	}{
		{2024, time.January, 31},
		{2024, time.February, 29}, // leap year
		{2023, time.February, 28},
		{2024, time.April, 30},
		{2024, time.December, 31},
		{2025, time.June, 30},
	}

	for _, tc := range cases {
		matrix := MonthMatrix(tc.year, tc.month)

		seen := 0
		prev := 0
		for _, row := range matrix {
			for _, cell := range row {
				if cell == EmptyCell {
					continue
				}
				seen++
				assert.Equal(t, prev+1, cell,
					"%v %d: cells must be strictly increasing", tc.month, tc.year)
				prev = cell
			}
		}
		assert.Equal(t, tc.days, seen, "%v %d: day count", tc.month, tc.year)
		assert.Equal(t, tc.days, prev, "%v %d: last day", tc.month, tc.year)
	}
}

func TestMonthMatrixLeadingPadding(t *testing.T) {
	// February 2024 starts on a Thursday: Mon..Wed of the first row are empty.
	matrix := MonthMatrix(2024, time.February)
	require.NotEmpty(t, matrix)

	assert.Equal(t, [7]int{0, 0, 0, 1, 2, 3, 4}, matrix[0])

	last := matrix[len(matrix)-1]
	// February 29 lands on a Thursday; the trailing cells are empty.
	assert.Equal(t, [7]int{26, 27, 28, 29, 0, 0, 0}, last)
}

func TestMonthMatrixMonthStartingOnMonday(t *testing.T) {
	// January 2024 starts on a Monday: no leading padding.
	matrix := MonthMatrix(2024, time.January)
	require.NotEmpty(t, matrix)
	assert.Equal(t, [7]int{1, 2, 3, 4, 5, 6, 7}, matrix[0])
}

func TestWeekRangeMondayToSunday(t *testing.T) {
	// Wednesday 2024-02-07.
	d := time.Date(2024, time.February, 7, 15, 30, 0, 0, time.Local)
	week := WeekRange(d)

	assert.Equal(t, time.Monday, week[0].Weekday())
	for i, day := range week {
		want := time.Date(2024, time.February, 5+i, 0, 0, 0, 0, time.Local)
		assert.True(t, day.Equal(want), "day %d: got %v want %v", i, day, want)
	}

	// The input date lies within the range.
	assert.False(t, d.Before(week[0]))
	assert.True(t, d.Before(week[6].AddDate(0, 0, 1)))
}

func TestWeekRangeSundayBelongsToPrecedingWeek(t *testing.T) {
	// Sunday is the end of the week, not the start of the next one.
	sunday := time.Date(2024, time.February, 11, 9, 0, 0, 0, time.Local)
	week := WeekRange(sunday)

	assert.True(t, week[0].Equal(time.Date(2024, time.February, 5, 0, 0, 0, 0, time.Local)))
	assert.True(t, week[6].Equal(time.Date(2024, time.February, 11, 0, 0, 0, 0, time.Local)))
}

func TestWeekRangeCrossesMonthBoundary(t *testing.T) {
	// Friday 2024-03-01: the containing week starts in February.
	d := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.Local)
	week := WeekRange(d)

	assert.True(t, week[0].Equal(time.Date(2024, time.February, 26, 0, 0, 0, 0, time.Local)))
	assert.True(t, week[6].Equal(time.Date(2024, time.March, 3, 0, 0, 0, 0, time.Local)))
}
