package tracker

import (
	"strings"
)

// NormalizeCallsign uppercases a callsign and strips non-alphanumeric
// characters. All entity lookups share this rule, so "DLH-123" and "dlh123"
// address the same tracked entity.
func NormalizeCallsign(callsign string) string {
	var b strings.Builder
	b.Grow(len(callsign))
	for _, r := range strings.ToUpper(callsign) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MapPosition holds the mutable kinematic state of a tracked entity
type MapPosition struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Altitude    float64 `json:"altitude"`
	Groundspeed float64 `json:"groundspeed"`
	Heading     float64 `json:"heading"`
}

// Position returns a copy of the entity's kinematic state
func (p *MapPosition) Position() MapPosition {
	return *p
}

// NetworkIdentity holds the identity of a tracked entity: a process-unique
// object id assigned once for the lifetime of the object and never reused, the
// external network id, the callsign, and the voice frequency.
type NetworkIdentity struct {
	ID         int64   `json:"object_id"`
	ExternalID int     `json:"external_id,omitempty"`
	Callsign   string  `json:"callsign"`
	Frequency  float64 `json:"frequency,omitempty"`
}

// ObjectID returns the process-unique identity of the entity
func (n *NetworkIdentity) ObjectID() int64 {
	return n.ID
}

// NormalizedCallsign returns the callsign under the shared normalization rule
func (n *NetworkIdentity) NormalizedCallsign() string {
	return NormalizeCallsign(n.Callsign)
}

// TrackedEntity is the capability set shared by flights, control stations,
// and synthesized airports
type TrackedEntity interface {
	ObjectID() int64
	NormalizedCallsign() string
	Position() MapPosition
}

// SameEntity reports equality between two tracked entities: same object id,
// or same normalized callsign
func SameEntity(a, b TrackedEntity) bool {
	if a == nil || b == nil {
		return false
	}
	if a.ObjectID() != 0 && a.ObjectID() == b.ObjectID() {
		return true
	}
	return a.NormalizedCallsign() == b.NormalizedCallsign()
}
