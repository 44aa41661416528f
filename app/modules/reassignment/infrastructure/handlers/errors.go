package reassignmenthandlers

import (
	"errors"
	"fmt"
)

// ErrInvalidArguments is returned when an operation's arguments cannot be decoded.
var ErrInvalidArguments = errors.New("invalid operation arguments")

// UnknownOperationError names an operation missing from the command registry.
type UnknownOperationError struct {
	Operation string
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("unknown operation: %q", e.Operation)
}
