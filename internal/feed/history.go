package feed

import (
	"time"
)

// UpdateHistory remembers feed update timestamps that have already been
// parsed, most recent first. It is used to detect a payload that has not
// actually advanced since the last successful parse.
type UpdateHistory struct {
	max   int
	items []time.Time
}

// NewUpdateHistory creates an update history keeping at most max entries
func NewUpdateHistory(max int) *UpdateHistory {
	if max < 1 {
		max = 1
	}
	return &UpdateHistory{max: max}
}

// Seen reports whether the given timestamp has already been recorded
func (h *UpdateHistory) Seen(t time.Time) bool {
	for _, item := range h.items {
		if item.Equal(t) {
			return true
		}
	}
	return false
}

// Record adds a timestamp at the front of the history, dropping the oldest
// entry when the cap is exceeded
func (h *UpdateHistory) Record(t time.Time) {
	h.items = append([]time.Time{t}, h.items...)
	if len(h.items) > h.max {
		h.items = h.items[:h.max]
	}
}

// Latest returns the most recently recorded timestamp, or zero if none
func (h *UpdateHistory) Latest() time.Time {
	if len(h.items) == 0 {
		return time.Time{}
	}
	return h.items[0]
}

// Len returns the number of recorded timestamps
func (h *UpdateHistory) Len() int {
	return len(h.items)
}
