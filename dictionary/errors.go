package dictionary

import "errors"

var (
	// ErrSeedAfterResolve is returned when a category is seeded after Resolve
	// has already assigned ids in it.
	ErrSeedAfterResolve = errors.New("dictionary category seeded after resolve")

	// ErrNilWriter is returned by Flush when no PairWriter is supplied.
	ErrNilWriter = errors.New("dictionary flush requires a pair writer")
)
