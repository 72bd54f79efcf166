// Package apperr defines the error vocabulary shared by every layer and the
// stable status codes that external callers see.
package apperr

import "errors"

var (
	ErrInvalidProof     = errors.New("invalid proof")
	ErrProofFailed      = errors.New("proof failed")
	ErrTypeError        = errors.New("type error")
	ErrInvalidActor     = errors.New("invalid actor")
	ErrInvalidRationale = errors.New("invalid rationale")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	ErrOutOfMemory      = errors.New("out of memory")
	ErrGeneric          = errors.New("generic error")
	ErrNotFound         = errors.New("not found")
)
