package store

import "errors"

var (
	// ErrNoContext is returned by operations that need a bound context record.
	ErrNoContext = errors.New("dyntable: no context record bound")

	// ErrRowNotFound is returned when a row ID is not in the collection.
	ErrRowNotFound = errors.New("dyntable: row not found")
)
