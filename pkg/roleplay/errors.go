package roleplay

import "errors"

var (
	// ErrInvalidInput means the user message was empty after
	// sanitization or exceeded the length limit. This is the only error
	// Respond surfaces to callers.
	ErrInvalidInput = errors.New("invalid input")

	// ErrBackendUnavailable means the generative backend could not be
	// reached or has no model loaded.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrBackendTimeout means the backend did not answer within the
	// request deadline.
	ErrBackendTimeout = errors.New("backend timeout")

	// ErrBackend covers every other backend failure (bad status,
	// malformed or empty completion).
	ErrBackend = errors.New("backend error")
)
