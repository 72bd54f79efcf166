package refined

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/promptdb/internal/apperr"
)

// ErrEmpty is returned by checked construction of an empty string.
var ErrEmpty = fmt.Errorf("empty string: %w", apperr.ErrTypeError)

// NonEmpty is an immutable string of at least one byte.
//
// The zero value is the only empty NonEmpty and can only arise from a
// declaration without construction; IsZero detects it.
type NonEmpty struct {
	s string
}

// TryNonEmpty performs checked construction.
func TryNonEmpty(s string) (NonEmpty, error) {
	if err := validation.Validate(s, validation.Required); err != nil {
		return NonEmpty{}, ErrEmpty
	}
	return NonEmpty{s: s}, nil
}

// String returns the wrapped string.
func (n NonEmpty) String() string { return n.s }

// Len returns the length in bytes.
func (n NonEmpty) Len() int { return len(n.s) }

// IsZero reports whether n was declared but never constructed.
func (n NonEmpty) IsZero() bool { return n.s == "" }

// ValidateNonEmpty reports whether b holds at least one byte.
func ValidateNonEmpty(b []byte) bool {
	return len(b) > 0
}
