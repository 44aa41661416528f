package gamedb

import "errors"

var (
	// ErrNotFound indicates the requested game or player does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrNoRowsAffected indicates an update matched no rows.
	ErrNoRowsAffected = errors.New("no rows affected")

	// ErrSummaryGuard indicates a venues-visited decrement would go below zero.
	ErrSummaryGuard = errors.New("player summary venues visited already at zero")
)
