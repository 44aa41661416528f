package playervenuedb

import "errors"

// ErrNotFound indicates no aggregate exists for the visit key.
var ErrNotFound = errors.New("player venue not found")
