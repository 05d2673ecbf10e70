package model

import "errors"

var (
	ErrTaskNotFound   = errors.New("task not found")
	ErrEmptyTitle     = errors.New("task title is empty")
	ErrBadTimeRange   = errors.New("start and end time must be set together")
	ErrMissingDueDate = errors.New("task due date is missing")
)
