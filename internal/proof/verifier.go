// Package proof turns opaque proof blobs into PROMPT scores.
//
// Verification is binary: a blob either yields a fully derived score
// aggregate or an error with zero scores. Decoded dimension values are
// clamped into [0,100]; a decoder may be approximate but the aggregate is
// never out of contract.
package proof

import (
	"fmt"

	"github.com/starford/promptdb/internal/apperr"
	"github.com/starford/promptdb/internal/prompt"
	"github.com/starford/promptdb/internal/refined"
)

const (
	// MaxBlobSize is the inclusive size ceiling of a proof blob.
	MaxBlobSize = 64 << 10
	// DefaultDimension is supplied for any dimension absent from a blob.
	DefaultDimension int64 = 50
)

// Raw holds six decoded, not yet bounded, dimension values in fixed order.
type Raw [6]int64

// DefaultRaw returns a Raw with every dimension at DefaultDimension.
func DefaultRaw() Raw {
	var r Raw
	for i := range r {
		r[i] = DefaultDimension
	}
	return r
}

// Decoder extracts raw dimension values from a blob that already passed the
// size gate. Failures should wrap apperr.ErrProofFailed.
type Decoder interface {
	Decode(blob []byte) (Raw, error)
}

// Verifier checks blobs and builds scores from them.
type Verifier struct {
	dec Decoder
}

// NewVerifier returns a Verifier using dec, or RawDecoder when dec is nil.
func NewVerifier(dec Decoder) *Verifier {
	if dec == nil {
		dec = RawDecoder{}
	}
	return &Verifier{dec: dec}
}

// Verify checks the size gate, decodes, and clamps. On failure the returned
// scores are the zero sentinel.
func (v *Verifier) Verify(blob []byte) (prompt.Scores, error) {
	if err := CheckSize(blob); err != nil {
		return prompt.Scores{}, err
	}
	raw, err := v.dec.Decode(blob)
	if err != nil {
		return prompt.Scores{}, fmt.Errorf("proof: decode: %w", asProofFailed(err))
	}
	return FromRaw(raw), nil
}

// CheckSize enforces non-emptiness and the MaxBlobSize ceiling.
func CheckSize(blob []byte) error {
	if !refined.ValidateNonEmpty(blob) {
		return fmt.Errorf("proof: empty blob: %w", apperr.ErrInvalidProof)
	}
	if len(blob) > MaxBlobSize {
		return fmt.Errorf("proof: blob is %d bytes (max %d): %w", len(blob), MaxBlobSize, apperr.ErrInvalidProof)
	}
	return nil
}

// FromRaw clamps each raw value and derives the aggregate.
func FromRaw(raw Raw) prompt.Scores {
	var dims [6]prompt.Dimension
	for i, v := range raw {
		dims[i] = refined.Clamp[refined.Percent](v)
	}
	return prompt.FromArray(dims)
}

func asProofFailed(err error) error {
	if apperr.StatusOf(err) == apperr.StatusProofFailed {
		return err
	}
	return fmt.Errorf("%w: %w", apperr.ErrProofFailed, err)
}
