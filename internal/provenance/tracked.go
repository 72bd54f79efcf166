package provenance

import "github.com/starford/promptdb/internal/prompt"

// TrackedValue pairs a payload with its provenance and PROMPT scores.
//
// Payload is borrowed from the caller and never copied or retained beyond
// the call that receives it.
type TrackedValue struct {
	Payload    []byte
	Provenance Provenance
	Scores     prompt.Scores
}

// Track assembles a TrackedValue after validating its provenance.
func Track(payload []byte, p Provenance, s prompt.Scores) (TrackedValue, error) {
	if err := p.Validate(); err != nil {
		return TrackedValue{}, err
	}
	return TrackedValue{Payload: payload, Provenance: p, Scores: s}, nil
}
