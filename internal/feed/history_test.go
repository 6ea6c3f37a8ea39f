package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUpdateHistorySeenAndRecord(t *testing.T) {
	h := NewUpdateHistory(4)

	t0 := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	assert.False(t, h.Seen(t0))

	h.Record(t0)
	assert.True(t, h.Seen(t0))
	assert.Equal(t, 1, h.Len())
}

func TestUpdateHistoryBounded(t *testing.T) {
	h := NewUpdateHistory(3)

	base := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		h.Record(base.Add(time.Duration(i) * time.Minute))
	}

	assert.Equal(t, 3, h.Len())

	// Oldest entries have been evicted and can be recorded again
	assert.False(t, h.Seen(base))
	assert.False(t, h.Seen(base.Add(1*time.Minute)))
	assert.True(t, h.Seen(base.Add(4*time.Minute)))

	assert.Equal(t, base.Add(4*time.Minute), h.Latest())
}

func TestUpdateHistoryLatestEmpty(t *testing.T) {
	h := NewUpdateHistory(4)
	assert.True(t, h.Latest().IsZero())
}
