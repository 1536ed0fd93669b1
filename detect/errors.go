package detect

import "errors"

var (
	// ErrInvalidLayout is returned when a category layout file fails schema
	// or structural validation.
	ErrInvalidLayout = errors.New("invalid category layout")
)
