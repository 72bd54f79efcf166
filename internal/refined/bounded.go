// Package refined provides value types whose invariants hold for every
// reachable instance. Construction is the only place an invariant can be
// established; there are no setters.
package refined

import (
	"fmt"

	"github.com/starford/promptdb/internal/apperr"
)

// ErrOutOfRange is returned by checked construction when the input falls
// outside the type's bounds.
var ErrOutOfRange = fmt.Errorf("value out of range: %w", apperr.ErrTypeError)

// Bounds supplies the inclusive range of a Bounded type. Implementations are
// stateless marker types so that the range is part of the type itself.
type Bounds interface {
	Range() (lo, hi int64)
}

// Bounded is an integer constrained to the range of B.
//
// The value is stored as an offset from the lower bound, so the zero value
// of Bounded[B] is B's minimum rather than an out-of-range 0.
type Bounded[B Bounds] struct {
	off uint64
}

// TryNew performs checked construction: it returns ErrOutOfRange unless
// lo <= v <= hi.
func TryNew[B Bounds](v int64) (Bounded[B], error) {
	lo, hi := bounds[B]()
	if v < lo || v > hi {
		return Bounded[B]{}, fmt.Errorf("%d not in [%d,%d]: %w", v, lo, hi, ErrOutOfRange)
	}
	return Bounded[B]{off: uint64(v - lo)}, nil
}

// Clamp performs clamping construction: inputs below the range saturate to
// the minimum and inputs above it saturate to the maximum.
func Clamp[B Bounds](v int64) Bounded[B] {
	lo, hi := bounds[B]()
	switch {
	case v < lo:
		v = lo
	case v > hi:
		v = hi
	}
	return Bounded[B]{off: uint64(v - lo)}
}

// MustNew is TryNew for compile-time constants. It panics on violation.
func MustNew[B Bounds](v int64) Bounded[B] {
	b, err := TryNew[B](v)
	if err != nil {
		panic(err)
	}
	return b
}

// Value returns the underlying integer.
func (b Bounded[B]) Value() int64 {
	lo, _ := bounds[B]()
	return lo + int64(b.off)
}

// Min returns the lower bound of the type.
func (b Bounded[B]) Min() int64 {
	lo, _ := bounds[B]()
	return lo
}

// Max returns the upper bound of the type.
func (b Bounded[B]) Max() int64 {
	_, hi := bounds[B]()
	return hi
}

func (b Bounded[B]) String() string {
	return fmt.Sprintf("%d", b.Value())
}

func bounds[B Bounds]() (int64, int64) {
	var marker B
	lo, hi := marker.Range()
	if lo > hi {
		panic(fmt.Sprintf("refined: empty range [%d,%d]", lo, hi))
	}
	return lo, hi
}

// Percent is the [0,100] range used by every PROMPT dimension.
type Percent struct{}

// Range implements Bounds.
func (Percent) Range() (int64, int64) { return 0, 100 }

// Score is an integer in [0,100].
type Score = Bounded[Percent]
