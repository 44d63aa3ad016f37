package errs

import "errors"

// Sentinel errors shared by the engines, services and handlers. Callers
// classify failures with errors.Is; extra context is attached via fmt.Errorf
// and %w at the point of failure.
var (
	// ErrNotFound: a referenced user, degree or content node does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation: a malformed answer set or missing required field.
	ErrValidation = errors.New("validation failed")

	// ErrAttemptLimit: the absolute per-node attempt cap has been reached.
	ErrAttemptLimit = errors.New("attempt limit exceeded")

	// ErrConflict: a concurrent writer won the version race. Recoverable by
	// reloading and retrying.
	ErrConflict = errors.New("write conflict")

	// ErrUpstream: the content store, cache or blob storage is unreachable.
	ErrUpstream = errors.New("upstream unavailable")
)
