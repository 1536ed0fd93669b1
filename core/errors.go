package core

import "errors"

var (
	// ErrMissingUniqueID is returned when a record reaches commit without the
	// UNIQUE_ID extracted from section A. The id joins every output table, so
	// such a record cannot be written.
	ErrMissingUniqueID = errors.New("record has no unique id")
)
