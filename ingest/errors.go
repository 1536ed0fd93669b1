package ingest

import "errors"

var (
	// ErrUnorderedBoundaries is returned when boundary line numbers are not
	// strictly increasing or not positive.
	ErrUnorderedBoundaries = errors.New("boundary markers are not strictly increasing")

	// ErrBoundaryPastEOF is returned when the log ends before a boundary that
	// is not the final one.
	ErrBoundaryPastEOF = errors.New("log file ended before boundary")

	// ErrInvalidPattern is returned when an extraction pattern fails to
	// compile.
	ErrInvalidPattern = errors.New("invalid extraction pattern")

	// ErrIndexVersion is returned when a saved index was written by an
	// incompatible version.
	ErrIndexVersion = errors.New("unsupported index version")

	// ErrIndexMismatch is returned when a saved index was built from a
	// different log file.
	ErrIndexMismatch = errors.New("index does not match log file")
)
