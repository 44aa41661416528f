package venuedb

import "errors"

var (
	// ErrNotFound indicates the requested venue does not exist.
	ErrNotFound = errors.New("venue not found")

	// ErrCloneExists indicates a clone for (canonical venue, entity) was inserted concurrently.
	ErrCloneExists = errors.New("venue clone already exists for entity")
)
