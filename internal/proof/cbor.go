package proof

import (
	"fmt"
	"math"
	"math/big"

	"github.com/fxamacker/cbor/v2"

	"github.com/starford/promptdb/internal/apperr"
	"github.com/starford/promptdb/internal/prompt"
)

// CBORDecoder reads a CBOR map keyed by dimension name, e.g.
// {"provenance": 80, "replicability": 70, ...}. Absent keys default to
// DefaultDimension and unknown keys are ignored. Integers outside int64
// saturate to its limits and floats are floored; clamping to a percent
// happens later in FromRaw.
type CBORDecoder struct{}

// Decode implements Decoder.
func (CBORDecoder) Decode(blob []byte) (Raw, error) {
	var fields map[string]any
	if err := cbor.Unmarshal(blob, &fields); err != nil {
		return Raw{}, fmt.Errorf("cbor: %v: %w", err, apperr.ErrProofFailed)
	}
	if fields == nil {
		return Raw{}, fmt.Errorf("cbor: expected a map: %w", apperr.ErrProofFailed)
	}
	raw := DefaultRaw()
	for i, name := range prompt.Dimensions {
		v, ok := fields[string(name)]
		if !ok {
			continue
		}
		n, ok := saturate(v)
		if !ok {
			return Raw{}, fmt.Errorf("cbor: %s: %T is not a number: %w", name, v, apperr.ErrProofFailed)
		}
		raw[i] = n
	}
	return raw, nil
}

// saturate converts a decoded CBOR number to int64, pinning anything out of
// range to math.MinInt64 or math.MaxInt64.
func saturate(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case uint64:
		if n > math.MaxInt64 {
			return math.MaxInt64, true
		}
		return int64(n), true
	case big.Int:
		return saturateBig(&n), true
	case *big.Int:
		return saturateBig(n), true
	case float32:
		return saturateFloat(float64(n)), true
	case float64:
		return saturateFloat(n), true
	default:
		return 0, false
	}
}

func saturateBig(n *big.Int) int64 {
	switch {
	case n.IsInt64():
		return n.Int64()
	case n.Sign() < 0:
		return math.MinInt64
	default:
		return math.MaxInt64
	}
}

// saturateFloat floors f. NaN maps to 0.
func saturateFloat(f float64) int64 {
	f = math.Floor(f)
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	default:
		return int64(f)
	}
}

// EncodeCBOR produces a CBOR-map blob for the given values.
func EncodeCBOR(values Raw) ([]byte, error) {
	fields := make(map[string]int64, len(values))
	for i, name := range prompt.Dimensions {
		fields[string(name)] = values[i]
	}
	return cbor.Marshal(fields)
}

// DecoderFor returns the decoder registered under name.
func DecoderFor(name string) (Decoder, error) {
	switch name {
	case "", "raw":
		return RawDecoder{}, nil
	case "cbor":
		return CBORDecoder{}, nil
	default:
		return nil, fmt.Errorf("proof: unknown decoder %q", name)
	}
}
