package database

import (
	"errors"
	"fmt"
	"strings"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// Sentinel errors for the data layer, matched with errors.Is. Driver
// failures arrive separately, wrapped as *EngineError.
var (
	// ErrNotInitialized is returned when a data operation is attempted on a
	// Store that has not been opened, or has already been closed.
	ErrNotInitialized = errors.New("database: store not initialised")

	// ErrInjectionDetected is returned when an identifier or predicate fails
	// the injection screen. Nothing is executed against the engine.
	ErrInjectionDetected = errors.New("database: injection attempt detected")

	// ErrNotFound is returned when a table or trigger the operation targets
	// does not exist. Absence is a failure, not an empty result.
	ErrNotFound = errors.New("database: object not found")

	// ErrEmptyInput is returned when a schema, row set or column list that
	// must carry content is empty.
	ErrEmptyInput = errors.New("database: empty input")
)

// Bucket names the coarse classification of an engine failure.
// Buckets feed log lines only; callers branch on error identity, never on
// the bucket.
type Bucket string

// Engine error buckets.
const (
	BucketProgramming Bucket = "programming"
	BucketIntegrity   Bucket = "integrity"
	BucketOperational Bucket = "operational"
	BucketGeneric     Bucket = "generic"
)

// EngineError wraps a driver-level failure with its classification bucket
// and the operation that triggered it. The original driver message is
// preserved verbatim via Unwrap.
type EngineError struct {
	Bucket Bucket
	Op     string
	Err    error
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	return fmt.Sprintf("database: %s failed (%s): %v", e.Op, e.Bucket, e.Err)
}

// Unwrap returns the underlying driver error.
func (e *EngineError) Unwrap() error { return e.Err }

// engineError classifies err and wraps it for the caller.
func engineError(op string, err error) *EngineError {
	return &EngineError{Bucket: classify(err), Op: op, Err: err}
}

// classify sorts a driver error into one of the four buckets.
// SQLite result codes are used where the driver exposes them; otherwise the
// message is inspected.
func classify(err error) Bucket {
	var se sqlite3.Error
	if errors.As(err, &se) {
		switch se.Code {
		case sqlite3.ErrError, sqlite3.ErrMisuse, sqlite3.ErrRange:
			return BucketProgramming
		case sqlite3.ErrConstraint:
			return BucketIntegrity
		case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrCorrupt,
			sqlite3.ErrIoErr, sqlite3.ErrFull, sqlite3.ErrCantOpen,
			sqlite3.ErrProtocol, sqlite3.ErrNotADB:
			return BucketOperational
		default:
			return BucketGeneric
		}
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "syntax error"), strings.Contains(msg, "no such"):
		return BucketProgramming
	case strings.Contains(msg, "constraint"):
		return BucketIntegrity
	case strings.Contains(msg, "locked"), strings.Contains(msg, "busy"):
		return BucketOperational
	default:
		return BucketGeneric
	}
}
