package storage

import "errors"

// Storage error constants
var (
	// ErrPrepareStatement is returned when an output statement fails to
	// compile. It aborts the run before any record is written.
	ErrPrepareStatement = errors.New("failed to prepare statement")

	// ErrTableConflict is returned when two output tables would share a name
	ErrTableConflict = errors.New("output table name conflict")

	// ErrNoTransaction is returned when a write is attempted outside Begin
	// and Commit
	ErrNoTransaction = errors.New("no open transaction")

	// ErrTransactionOpen is returned by Begin when a transaction is already
	// open
	ErrTransactionOpen = errors.New("transaction already open")

	// ErrUnknownCategory is returned for a dictionary category with no table
	ErrUnknownCategory = errors.New("unknown dictionary category")
)
