package outbound

import "errors"

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write lost a race (serialization
	// failure or unique-key collision on concurrent insert). Callers retry
	// a bounded number of times.
	ErrConflict = errors.New("storage conflict")

	// ErrDuplicateEdit is returned when a correction batch carries an edit
	// digest already present in the log; the batch is a redelivery and
	// nothing was written.
	ErrDuplicateEdit = errors.New("duplicate edit")
)
