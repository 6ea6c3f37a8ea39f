package tracker

import (
	"github.com/vatwatch/vatwatch/pkg/logger"
)

// FlightChange represents a change in the tracked flight set between two
// reconciliation cycles
type FlightChange struct {
	Type     string // "added", "updated", "removed"
	Callsign string
	Flight   *Flight
}

// flightSnapshot captures the fields a change is detected on. Tracked flights
// are mutated in place, so comparisons must be against copied values, not the
// live object.
type flightSnapshot struct {
	callsign string
	position MapPosition
}

// ChangeDetector tracks flight changes between reconciliation cycles for
// WebSocket streaming
type ChangeDetector struct {
	previous map[int64]flightSnapshot
	logger   *logger.Logger
}

// NewChangeDetector creates a new change detector
func NewChangeDetector(log *logger.Logger) *ChangeDetector {
	return &ChangeDetector{
		previous: make(map[int64]flightSnapshot),
		logger:   log.Named("change-detector"),
	}
}

// DetectChanges compares the current flight set with the previous cycle's and
// returns the differences
func (cd *ChangeDetector) DetectChanges(current []*Flight) []FlightChange {
	changes := []FlightChange{}
	seen := make(map[int64]bool, len(current))

	for _, f := range current {
		seen[f.ID] = true
		prev, exists := cd.previous[f.ID]
		if !exists {
			changes = append(changes, FlightChange{Type: "added", Callsign: f.Callsign, Flight: f})
			continue
		}
		if prev.position != f.MapPosition || prev.callsign != f.Callsign {
			changes = append(changes, FlightChange{Type: "updated", Callsign: f.Callsign, Flight: f})
		}
	}

	for id, prev := range cd.previous {
		if !seen[id] {
			changes = append(changes, FlightChange{Type: "removed", Callsign: prev.callsign})
		}
	}

	// Update previous state
	next := make(map[int64]flightSnapshot, len(current))
	for _, f := range current {
		next[f.ID] = flightSnapshot{callsign: f.Callsign, position: f.MapPosition}
	}
	cd.previous = next

	return changes
}
