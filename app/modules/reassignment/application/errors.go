package reassignmentservice

import "errors"

var (
	// ErrQueueNotConfigured is returned before any mutation when async
	// dispatch is required but no queue is wired.
	ErrQueueNotConfigured = errors.New("reassignment queue is not configured")

	// ErrInvalidInput marks a request rejected before any lookup.
	ErrInvalidInput = errors.New("invalid reassignment input")
)
