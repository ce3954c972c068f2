package storage

import "errors"

// Error taxonomy per §7: validation and not-found are surfaced
// directly to callers and never retried; conflict errors (dimension
// mismatch, stale observation reference) tell the writer to back off.
var (
	ErrNotFound          = errors.New("storage: not found")
	ErrValidation        = errors.New("storage: validation failed")
	ErrDimensionMismatch = errors.New("storage: embedding dimension mismatch")
	ErrConflict          = errors.New("storage: conflict")
)
