package videos

import "errors"

var (
	// ErrUnauthorized is returned when an ownership or admin gate fails. It
	// never distinguishes a missing record from one owned by someone else.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is returned by the public resolver when no active share matches.
	ErrNotFound = errors.New("not found")
	// ErrExhaustedRetries means every share code attempt collided.
	ErrExhaustedRetries = errors.New("share code retries exhausted")
	// ErrConstraintViolation signals a storage invariant breach the core did not expect.
	ErrConstraintViolation = errors.New("constraint violation")
	// ErrUpstreamUnavailable wraps failures of the relational or blob store.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrInvalidUpload rejects upload requests that fail validation.
	ErrInvalidUpload = errors.New("invalid upload")
)
