package refined

import (
	"errors"
	"math"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/promptdb/internal/apperr"
)

type weekday struct{}

func (weekday) Range() (int64, int64) { return 1, 7 }

type wide struct{}

func (wide) Range() (int64, int64) { return math.MinInt64, math.MaxInt64 }

func TestTryNew_AcceptsBoundsInclusive(t *testing.T) {
	lo, err := TryNew[Percent](0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), lo.Value())

	hi, err := TryNew[Percent](100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), hi.Value())
}

func TestTryNew_RejectsOutOfRange(t *testing.T) {
	for _, v := range []int64{-1, 101, math.MinInt64, math.MaxInt64} {
		_, err := TryNew[Percent](v)
		require.Error(t, err, "v=%d", v)
		assert.ErrorIs(t, err, ErrOutOfRange)
		assert.ErrorIs(t, err, apperr.ErrTypeError)
	}
}

func TestTryNew_FailsIffOutsideRange(t *testing.T) {
	prop := func(v int64) bool {
		_, err := TryNew[weekday](v)
		inRange := v >= 1 && v <= 7
		return (err == nil) == inRange
	}
	require.NoError(t, quick.Check(prop, nil))

	for v := int64(-3); v <= 10; v++ {
		_, err := TryNew[weekday](v)
		assert.Equal(t, v >= 1 && v <= 7, err == nil, "v=%d", v)
	}
}

func TestClamp_NeverEscapesRange(t *testing.T) {
	prop := func(v int64) bool {
		s := Clamp[Percent](v)
		return s.Value() >= 0 && s.Value() <= 100
	}
	require.NoError(t, quick.Check(prop, nil))

	assert.Equal(t, int64(0), Clamp[Percent](math.MinInt64).Value())
	assert.Equal(t, int64(100), Clamp[Percent](math.MaxInt64).Value())
	assert.Equal(t, int64(100), Clamp[Percent](255).Value())
	assert.Equal(t, int64(0), Clamp[Percent](-1).Value())
	assert.Equal(t, int64(42), Clamp[Percent](42).Value())
}

func TestClamp_AgreesWithTryNewInsideRange(t *testing.T) {
	for v := int64(0); v <= 100; v++ {
		checked, err := TryNew[Percent](v)
		require.NoError(t, err)
		assert.Equal(t, checked, Clamp[Percent](v))
	}
}

func TestZeroValueIsMinimum(t *testing.T) {
	var d Bounded[weekday]
	assert.Equal(t, int64(1), d.Value())
	assert.Equal(t, int64(1), d.Min())
	assert.Equal(t, int64(7), d.Max())

	var s Score
	assert.Equal(t, int64(0), s.Value())
}

func TestEquality(t *testing.T) {
	a := MustNew[Percent](55)
	b := Clamp[Percent](55)
	assert.True(t, a == b)
	assert.False(t, a == MustNew[Percent](56))
}

func TestWideRangeRoundTrip(t *testing.T) {
	for _, v := range []int64{math.MinInt64, -1, 0, 1, math.MaxInt64} {
		b, err := TryNew[wide](v)
		require.NoError(t, err)
		assert.Equal(t, v, b.Value())
	}
}

func TestMustNewPanics(t *testing.T) {
	assert.Panics(t, func() { MustNew[Percent](101) })
}

func TestTryNonEmpty(t *testing.T) {
	_, err := TryNonEmpty("")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrTypeError))

	n, err := TryNonEmpty(" ")
	require.NoError(t, err)
	assert.Equal(t, 1, n.Len())
	assert.False(t, n.IsZero())

	prop := func(s string) bool {
		_, err := TryNonEmpty(s)
		return (err == nil) == (len(s) > 0)
	}
	require.NoError(t, quick.Check(prop, nil))
}

func TestValidateNonEmpty(t *testing.T) {
	assert.False(t, ValidateNonEmpty(nil))
	assert.False(t, ValidateNonEmpty([]byte{}))
	assert.True(t, ValidateNonEmpty([]byte{0}))

	var zero NonEmpty
	assert.True(t, zero.IsZero())
}
