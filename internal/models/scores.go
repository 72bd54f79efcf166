package models

import "github.com/starford/promptdb/internal/prompt"

// NewScoreSet flattens a score aggregate for the wire.
func NewScoreSet(s prompt.Scores) ScoreSet {
	weakest, _ := s.Weakest()
	return ScoreSet{
		Provenance:    s.Provenance().Value(),
		Replicability: s.Replicability().Value(),
		Objective:     s.Objective().Value(),
		Methodology:   s.Methodology().Value(),
		Publication:   s.Publication().Value(),
		Transparency:  s.Transparency().Value(),
		Overall:       s.Overall().Value(),
		Tier:          string(s.Tier()),
		Weakest:       string(weakest),
	}
}
