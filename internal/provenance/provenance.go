// Package provenance records who changed a value, when, and why.
package provenance

import (
	"fmt"
	"time"

	"github.com/starford/promptdb/internal/apperr"
	"github.com/starford/promptdb/internal/refined"
)

// ActorID identifies who made a change.
type ActorID struct{ refined.NonEmpty }

// Rationale explains why a change was made.
type Rationale struct{ refined.NonEmpty }

// NewActorID performs checked construction of an ActorID.
func NewActorID(s string) (ActorID, error) {
	n, err := refined.TryNonEmpty(s)
	if err != nil {
		return ActorID{}, fmt.Errorf("actor: %w", apperr.ErrInvalidActor)
	}
	return ActorID{n}, nil
}

// NewRationale performs checked construction of a Rationale.
func NewRationale(s string) (Rationale, error) {
	n, err := refined.TryNonEmpty(s)
	if err != nil {
		return Rationale{}, fmt.Errorf("rationale: %w", apperr.ErrInvalidRationale)
	}
	return Rationale{n}, nil
}

// Timestamp is milliseconds since the Unix epoch. It has no range restriction.
type Timestamp int64

// FromTime converts t to a Timestamp.
func FromTime(t time.Time) Timestamp { return Timestamp(t.UnixMilli()) }

// Time converts ts to a UTC time.Time.
func (ts Timestamp) Time() time.Time { return time.UnixMilli(int64(ts)).UTC() }

// Provenance is the who/when/why record attached to every tracked value.
type Provenance struct {
	Actor     ActorID
	Timestamp Timestamp
	Rationale Rationale
}

// New builds a Provenance from raw inputs. The actor is checked before the
// rationale, so when both are empty the error is ErrInvalidActor.
func New(actor string, ts Timestamp, rationale string) (Provenance, error) {
	a, err := NewActorID(actor)
	if err != nil {
		return Provenance{}, err
	}
	r, err := NewRationale(rationale)
	if err != nil {
		return Provenance{}, err
	}
	return Provenance{Actor: a, Timestamp: ts, Rationale: r}, nil
}

// Validate re-checks a Provenance that may have been assembled from zero
// values. Actor is checked first.
func (p Provenance) Validate() error {
	if p.Actor.IsZero() {
		return fmt.Errorf("actor: %w", apperr.ErrInvalidActor)
	}
	if p.Rationale.IsZero() {
		return fmt.Errorf("rationale: %w", apperr.ErrInvalidRationale)
	}
	return nil
}
