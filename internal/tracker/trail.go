package tracker

import (
	"math"
	"time"
)

// Waypoint is an immutable position sample on a flight's trail
type Waypoint struct {
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Altitude    float64   `json:"altitude"`
	Groundspeed float64   `json:"groundspeed"`
	Timestamp   time.Time `json:"timestamp"`

	Flight *Flight `json:"-"`

	disposed bool
}

// Dispose releases the waypoint
func (w *Waypoint) Dispose() {
	if w.disposed {
		return
	}
	w.disposed = true
	w.Flight = nil
}

// Disposed reports whether the waypoint has been released
func (w *Waypoint) Disposed() bool {
	return w.disposed
}

// Trail is a bounded, deduplicated position history, newest first
type Trail struct {
	max    int
	scale  float64 // 10^precisionDecimals, used for dedup rounding
	points []*Waypoint
}

// NewTrail creates a trail with the given maximum length and dedup precision
// in decimal places
func NewTrail(max, precisionDecimals int) *Trail {
	if max < 1 {
		max = 1
	}
	return &Trail{
		max:   max,
		scale: math.Pow(10, float64(precisionDecimals)),
	}
}

// Append inserts a waypoint at the front of the trail and reports whether it
// was actually stored. A sample whose rounded location equals the most recent
// entry's is rejected, which keeps a stationary aircraft from growing the
// trail. Insertion beyond the maximum length disposes and drops the oldest
// entry.
func (t *Trail) Append(wp *Waypoint) bool {
	if len(t.points) > 0 {
		head := t.points[0]
		if t.round(head.Latitude) == t.round(wp.Latitude) &&
			t.round(head.Longitude) == t.round(wp.Longitude) {
			return false
		}
	}

	t.points = append([]*Waypoint{wp}, t.points...)

	if len(t.points) > t.max {
		oldest := t.points[len(t.points)-1]
		oldest.Dispose()
		t.points = t.points[:len(t.points)-1]
	}

	return true
}

// Points returns the trail's waypoints, newest first
func (t *Trail) Points() []*Waypoint {
	return t.points
}

// Len returns the number of stored waypoints
func (t *Trail) Len() int {
	return len(t.points)
}

// clear disposes and removes all waypoints
func (t *Trail) clear() {
	for _, wp := range t.points {
		wp.Dispose()
	}
	t.points = nil
}

func (t *Trail) round(v float64) float64 {
	return math.Round(v*t.scale) / t.scale
}
