// Package prompt implements the six-dimension PROMPT evidence-quality score
// and its derived overall average.
package prompt

import (
	"fmt"

	"github.com/starford/promptdb/internal/refined"
)

// Dimension is a single PROMPT score in [0,100].
type Dimension = refined.Score

// DimensionName identifies one of the six PROMPT dimensions.
type DimensionName string

// The six dimensions in their fixed order. Tie-breaking and wire layouts
// follow this order.
const (
	Provenance    DimensionName = "provenance"
	Replicability DimensionName = "replicability"
	Objective     DimensionName = "objective"
	Methodology   DimensionName = "methodology"
	Publication   DimensionName = "publication"
	Transparency  DimensionName = "transparency"
)

// Dimensions lists every dimension in fixed order.
var Dimensions = [6]DimensionName{
	Provenance, Replicability, Objective, Methodology, Publication, Transparency,
}

// Scores is the PROMPT aggregate. Overall is always floor(sum/6) of the six
// dimensions; it is derived by New and cannot be set independently.
//
// The zero value is the "no scores" sentinel: every dimension and overall
// are 0, which also satisfies the invariant.
type Scores struct {
	dims    [6]Dimension
	overall Dimension
}

// New builds the aggregate from six dimensions and derives overall.
func New(provenance, replicability, objective, methodology, publication, transparency Dimension) Scores {
	dims := [6]Dimension{provenance, replicability, objective, methodology, publication, transparency}
	return Scores{dims: dims, overall: average(dims)}
}

// FromArray is New with the dimensions in fixed order.
func FromArray(dims [6]Dimension) Scores {
	return New(dims[0], dims[1], dims[2], dims[3], dims[4], dims[5])
}

// average floors sum/6. Each input is in [0,100] so the sum is in [0,600]
// and the quotient in [0,100]; TryNew re-checks that bound.
func average(dims [6]Dimension) Dimension {
	var sum int64
	for _, d := range dims {
		sum += d.Value()
	}
	avg, err := refined.TryNew[refined.Percent](sum / 6)
	if err != nil {
		panic(fmt.Sprintf("prompt: average of bounded dimensions out of range: %v", err))
	}
	return avg
}

// ComputeOverall validates six raw values with checked construction and
// returns their floor average.
func ComputeOverall(values [6]int64) (Dimension, error) {
	var dims [6]Dimension
	for i, v := range values {
		d, err := refined.TryNew[refined.Percent](v)
		if err != nil {
			return Dimension{}, fmt.Errorf("prompt: %s: %w", Dimensions[i], err)
		}
		dims[i] = d
	}
	return average(dims), nil
}

func (s Scores) Provenance() Dimension    { return s.dims[0] }
func (s Scores) Replicability() Dimension { return s.dims[1] }
func (s Scores) Objective() Dimension     { return s.dims[2] }
func (s Scores) Methodology() Dimension   { return s.dims[3] }
func (s Scores) Publication() Dimension   { return s.dims[4] }
func (s Scores) Transparency() Dimension  { return s.dims[5] }

// Overall returns the derived average.
func (s Scores) Overall() Dimension { return s.overall }

// Array returns the six dimensions in fixed order.
func (s Scores) Array() [6]Dimension { return s.dims }

// Get returns the dimension with the given name.
func (s Scores) Get(name DimensionName) (Dimension, bool) {
	for i, n := range Dimensions {
		if n == name {
			return s.dims[i], true
		}
	}
	return Dimension{}, false
}

// MeetsMinimum reports whether every one of the six dimensions is at least
// threshold. Overall is not considered.
func (s Scores) MeetsMinimum(threshold int64) bool {
	for _, d := range s.dims {
		if d.Value() < threshold {
			return false
		}
	}
	return true
}

// Weakest returns the lowest-scoring dimension. Ties go to the earliest
// dimension in fixed order.
func (s Scores) Weakest() (DimensionName, Dimension) {
	idx := 0
	for i := 1; i < len(s.dims); i++ {
		if s.dims[i].Value() < s.dims[idx].Value() {
			idx = i
		}
	}
	return Dimensions[idx], s.dims[idx]
}

// Tier classifies the overall score.
func (s Scores) Tier() Tier {
	return TierFor(s.overall.Value())
}

// Map returns the scores keyed by dimension name plus "overall".
func (s Scores) Map() map[string]int64 {
	out := make(map[string]int64, 7)
	for i, n := range Dimensions {
		out[string(n)] = s.dims[i].Value()
	}
	out["overall"] = s.overall.Value()
	return out
}
