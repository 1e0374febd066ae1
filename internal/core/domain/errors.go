package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotVisible indicates the artifact never became visible in the
	// object store within the polling bound. Retryable by a later sweep.
	ErrNotVisible = errors.New("artifact not visible")

	// ErrMalformedDocument indicates the uploaded document could not be
	// parsed into a face document. Not retryable without an upstream fix.
	ErrMalformedDocument = errors.New("malformed document")

	// ErrDedupQuery indicates the existing-id query against the face table
	// failed. The run aborts with the artifact untouched.
	ErrDedupQuery = errors.New("dedup query failed")

	// ErrStoreUnavailable indicates a transport-level failure from a store
	// adapter. The run aborts with the artifact untouched.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrRunInProgress indicates another worker holds the lock for this artifact
	ErrRunInProgress = errors.New("artifact run already in progress")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")
)
