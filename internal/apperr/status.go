package apperr

import (
	"errors"
	"fmt"
)

// Status is the stable small-integer outcome code of a boundary call.
// The numeric values are part of the external contract and must not be reordered.
type Status int

const (
	StatusOK Status = iota
	StatusInvalidProof
	StatusProofFailed
	StatusTypeError
	StatusInvalidActor
	StatusInvalidRationale
	StatusInvalidTimestamp
	StatusOutOfMemory
	StatusGenericError
)

var statusNames = [...]string{
	StatusOK:               "ok",
	StatusInvalidProof:     "invalid_proof",
	StatusProofFailed:      "proof_failed",
	StatusTypeError:        "type_error",
	StatusInvalidActor:     "invalid_actor",
	StatusInvalidRationale: "invalid_rationale",
	StatusInvalidTimestamp: "invalid_timestamp",
	StatusOutOfMemory:      "out_of_memory",
	StatusGenericError:     "generic_error",
}

// String returns the snake_case name used in JSON responses and logs.
func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("status(%d)", int(s))
	}
	return statusNames[s]
}

// OK reports whether s is StatusOK.
func (s Status) OK() bool { return s == StatusOK }

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	for i, name := range statusNames {
		if name == string(text) {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("apperr: unknown status %q", text)
}

// Err returns the sentinel error for s, or nil for StatusOK.
func (s Status) Err() error {
	switch s {
	case StatusOK:
		return nil
	case StatusInvalidProof:
		return ErrInvalidProof
	case StatusProofFailed:
		return ErrProofFailed
	case StatusTypeError:
		return ErrTypeError
	case StatusInvalidActor:
		return ErrInvalidActor
	case StatusInvalidRationale:
		return ErrInvalidRationale
	case StatusInvalidTimestamp:
		return ErrInvalidTimestamp
	case StatusOutOfMemory:
		return ErrOutOfMemory
	default:
		return ErrGeneric
	}
}

// StatusOf maps an error chain to its status code. Errors outside the
// vocabulary collapse to StatusGenericError.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrInvalidProof):
		return StatusInvalidProof
	case errors.Is(err, ErrProofFailed):
		return StatusProofFailed
	case errors.Is(err, ErrTypeError):
		return StatusTypeError
	case errors.Is(err, ErrInvalidActor):
		return StatusInvalidActor
	case errors.Is(err, ErrInvalidRationale):
		return StatusInvalidRationale
	case errors.Is(err, ErrInvalidTimestamp):
		return StatusInvalidTimestamp
	case errors.Is(err, ErrOutOfMemory):
		return StatusOutOfMemory
	default:
		return StatusGenericError
	}
}
