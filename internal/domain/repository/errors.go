package repository

import "errors"

var (
	// ErrObjectNotFound is returned when the backing object does not exist.
	ErrObjectNotFound = errors.New("object not found")

	// ErrBucketNotFound is returned when the configured bucket does not exist.
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrQuotaExceeded is returned when a backend rejects a call because of a quota or rate limit.
	// It is kept distinct from ErrBackendUnavailable so clients can show different guidance.
	ErrQuotaExceeded = errors.New("backend quota exceeded")

	// ErrBackendUnavailable is returned when a backend call fails for any other remote reason.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrNoBackend is returned when no backend is registered for a resolved key.
	ErrNoBackend = errors.New("no backend for object kind")

	// ErrStatsNotFound is returned when no playback statistics exist for a token.
	ErrStatsNotFound = errors.New("playback stats not found")
)
