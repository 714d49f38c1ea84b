package domain

import "errors"

var (
	// ErrMissingInput is returned when a required input file cannot be found.
	ErrMissingInput = errors.New("missing input")
	// ErrStaleRecord is returned when a persisted record was produced with
	// different parameters than requested and strict checking is on.
	ErrStaleRecord = errors.New("stale climatology record")
	// ErrNotFound is returned when a named product or division does not exist.
	ErrNotFound = errors.New("not found")
)
