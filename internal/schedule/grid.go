// Package schedule is the task scheduling and calendar projection engine:
// date-grid construction for navigation, projection of tasks into
// recurrence rules, materialization of concrete occurrences for a visible
// window, and conflict checking for reschedule edits.
//
// Everything here is stateless; callers pass the task snapshot in and get
// derived values out.
package schedule

import "time"

// EmptyCell marks a leading or trailing padding cell in a month matrix row.
const EmptyCell = 0

// MonthMatrix returns the weeks of the given month as rows of seven cells.
// Each cell is a day of month, or EmptyCell for padding before day 1 and
// after the last day. Weeks start on Monday; Sunday is rotated to the last
// column. Grids are laid out in local calendar time, so the day boundary
// matches the user's wall-clock date.
func MonthMatrix(year int, month time.Month) [][7]int {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	lead := mondayIndex(first.Weekday())

	// Zeroth day of the following month is the last day of this one.
	daysInMonth := time.Date(year, month+1, 0, 0, 0, 0, 0, time.Local).Day()

	matrix := make([][7]int, 0, 6)

	var row [7]int
	day := 1
	for i := lead; i < 7; i++ {
		row[i] = day
		day++
	}
	matrix = append(matrix, row)

	for day <= daysInMonth {
		row = [7]int{}
		for i := 0; i < 7 && day <= daysInMonth; i++ {
			row[i] = day
			day++
		}
		matrix = append(matrix, row)
	}

	return matrix
}

// WeekRange returns the seven consecutive dates (local midnight) of the
// Monday-to-Sunday week containing date.
func WeekRange(date time.Time) [7]time.Time {
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	monday := d.AddDate(0, 0, -mondayIndex(d.Weekday()))

	var week [7]time.Time
	for i := range week {
		week[i] = monday.AddDate(0, 0, i)
	}
	return week
}

// mondayIndex rotates time.Weekday (Sunday=0) so Monday=0 and Sunday=6.
func mondayIndex(w time.Weekday) int {
	return (int(w) + 6) % 7
}
