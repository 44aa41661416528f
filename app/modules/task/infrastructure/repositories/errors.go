package taskdb

import "errors"

var (
	// ErrNotFound indicates the task does not exist.
	ErrNotFound = errors.New("background task not found")

	// ErrNoRowsAffected indicates an update matched no task.
	ErrNoRowsAffected = errors.New("no rows affected")
)
