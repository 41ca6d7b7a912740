package source

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable is returned when the database path is missing or the
	// driver cannot connect.
	ErrSourceUnavailable = errors.New("record source unavailable")

	// ErrNotFound is returned when no dossier matches the identifier.
	ErrNotFound = errors.New("dossier not found")
)

// RowDecodeError describes a row that was skipped because it could not be decoded.
// It is reported alongside the records that did decode and never aborts a batch.
type RowDecodeError struct {
	// Row is the zero-based position of the row in the result set.
	Row int
	// ID is the identifier cell as far as it could be read, possibly empty.
	ID  string
	Err error
}

func (e *RowDecodeError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("row %d (%s): %v", e.Row, e.ID, e.Err)
	}
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowDecodeError) Unwrap() error {
	return e.Err
}

// RemoteWriteFailure reports a write-back that did not reach the database.
// The local annotation document is authoritative and is not rolled back.
type RemoteWriteFailure struct {
	ID  string
	Err error
}

func (e *RemoteWriteFailure) Error() string {
	return fmt.Sprintf("write-back of dossier %s failed: %v", e.ID, e.Err)
}

func (e *RemoteWriteFailure) Unwrap() error {
	return e.Err
}

func unavailable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSourceUnavailable, fmt.Sprintf(format, args...))
}
