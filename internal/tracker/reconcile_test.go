package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vatwatch/vatwatch/internal/feed"
)

func testFlight(callsign string, gs float64) *Flight {
	return NewFlightFromRecord(feed.PilotRecord{
		Callsign:    callsign,
		ExternalID:  1000,
		Latitude:    50.0,
		Longitude:   8.5,
		Groundspeed: gs,
	}, 120, 4)
}

func TestReconcileEmptyIncomingKeepsExisting(t *testing.T) {
	existing := []*Flight{testFlight("ABC123", 450)}

	out := Reconcile(existing, nil, nil, nil)

	require.Len(t, out, 1)
	assert.Same(t, existing[0], out[0])
	assert.False(t, out[0].Disposed())
}

func TestReconcileEmptyExistingAddsAll(t *testing.T) {
	incoming := []*Flight{testFlight("ABC123", 450), testFlight("DEF456", 0)}

	var added []*Flight
	out := Reconcile(nil, incoming, func(f *Flight) { added = append(added, f) }, nil)

	assert.Equal(t, incoming, out)
	assert.Equal(t, incoming, added)
}

func TestReconcilePreservesObjectReferences(t *testing.T) {
	original := testFlight("ABC123", 450)
	original.ID = 7

	updated := testFlight("ABC123", 460)
	updated.Latitude = 51.0

	out := Reconcile([]*Flight{original}, []*Flight{updated}, nil, nil)

	require.Len(t, out, 1)
	// The surviving entity is the original object with refreshed fields
	assert.Same(t, original, out[0])
	assert.Equal(t, int64(7), out[0].ID)
	assert.InDelta(t, 460.0, out[0].Groundspeed, 1e-9)
	assert.InDelta(t, 51.0, out[0].Latitude, 1e-9)
}

func TestReconcileMatchesByNormalizedCallsign(t *testing.T) {
	original := testFlight("abc_123", 450)
	incoming := testFlight("ABC123", 460)

	var added []*Flight
	var removed []*Flight
	out := Reconcile([]*Flight{original}, []*Flight{incoming},
		func(f *Flight) { added = append(added, f) },
		func(f *Flight) { removed = append(removed, f) })

	require.Len(t, out, 1)
	assert.Same(t, original, out[0])
	assert.Empty(t, added)
	assert.Empty(t, removed)
}

func TestReconcileDisposesVanished(t *testing.T) {
	gone := testFlight("ABC123", 450)
	stays := testFlight("DEF456", 200)

	var removed []*Flight
	out := Reconcile([]*Flight{gone, stays}, []*Flight{testFlight("DEF456", 210)},
		nil,
		func(f *Flight) { removed = append(removed, f) })

	require.Len(t, out, 1)
	assert.Same(t, stays, out[0])

	require.Len(t, removed, 1)
	assert.Same(t, gone, removed[0])
	assert.True(t, gone.Disposed())
	assert.False(t, stays.Disposed())
}

func TestReconcileMixedAddUpdateRemove(t *testing.T) {
	a := testFlight("AAA111", 100)
	b := testFlight("BBB222", 200)

	incomingB := testFlight("BBB222", 210)
	incomingC := testFlight("CCC333", 300)

	var added, removed []*Flight
	out := Reconcile([]*Flight{a, b}, []*Flight{incomingB, incomingC},
		func(f *Flight) { added = append(added, f) },
		func(f *Flight) { removed = append(removed, f) })

	// Output length matches incoming, in incoming order
	require.Len(t, out, 2)
	assert.Same(t, b, out[0])
	assert.Same(t, incomingC, out[1])

	require.Len(t, added, 1)
	assert.Same(t, incomingC, added[0])

	require.Len(t, removed, 1)
	assert.Same(t, a, removed[0])
	assert.True(t, a.Disposed())
}

func TestReconcileDuplicateCallsignFirstMatchWins(t *testing.T) {
	first := testFlight("ABC123", 100)
	second := testFlight("ABC123", 999)

	out := Reconcile([]*Flight{first, second}, []*Flight{testFlight("ABC123", 150)}, nil, nil)

	require.Len(t, out, 1)
	assert.Same(t, first, out[0])
	// The unmatched duplicate counts as vanished
	assert.True(t, second.Disposed())
}

func TestReconcileOutputConservation(t *testing.T) {
	existing := []*Flight{testFlight("AAA111", 1), testFlight("BBB222", 2), testFlight("CCC333", 3)}
	incoming := []*Flight{testFlight("CCC333", 4), testFlight("DDD444", 5)}

	out := Reconcile(existing, incoming, nil, nil)

	assert.Len(t, out, len(incoming))
}
