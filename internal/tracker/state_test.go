package tracker

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vatwatch/vatwatch/pkg/logger"
)

type fixedElevation struct {
	elevationFt float64
	ok          bool
}

func (e fixedElevation) ElevationAt(lat, lon float64) (float64, bool) {
	return e.elevationFt, e.ok
}

func newTestClassifier(elev ElevationSource) *Classifier {
	return NewClassifier(30, 100, 5.0, elev, logger.NewNop())
}

func TestClassifySpeedRules(t *testing.T) {
	c := newTestClassifier(nil)

	tests := []struct {
		name     string
		gs       float64
		grounded bool
	}{
		{name: "taxi speed", gs: 15, grounded: true},
		{name: "threshold exactly", gs: 30, grounded: true},
		{name: "slow roll", gs: 1, grounded: true},
		{name: "cruise", gs: 400, grounded: false},
		{name: "just above threshold", gs: 31, grounded: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := testFlight("ABC123", tt.gs)
			assert.Equal(t, tt.grounded, c.IsGrounded(f))
		})
	}
}

func TestClassifyZeroSpeedFallsBackToGrounded(t *testing.T) {
	c := newTestClassifier(nil)

	f := testFlight("ABC123", 0)
	assert.True(t, c.IsGrounded(f))
}

func TestClassifyInvalidSpeedFallsBackToGrounded(t *testing.T) {
	c := newTestClassifier(nil)

	f := testFlight("ABC123", math.NaN())
	assert.True(t, c.IsGrounded(f))
}

func TestClassifyHeightAboveGround(t *testing.T) {
	// Field elevation 1000 ft, aircraft reports zero speed
	c := newTestClassifier(fixedElevation{elevationFt: 1000, ok: true})

	low := testFlight("LOW1", 0)
	low.Altitude = 1050
	assert.True(t, c.IsGrounded(low))

	high := testFlight("HIGH1", 0)
	high.Altitude = 1500
	assert.False(t, c.IsGrounded(high))
}

func TestClassifyElevationLookupMissFallsThrough(t *testing.T) {
	c := newTestClassifier(fixedElevation{ok: false})

	f := testFlight("ABC123", 0)
	f.Altitude = 35000
	// Without a usable elevation the zero-speed fallback applies
	assert.True(t, c.IsGrounded(f))
}

func TestClassifySpeedBeatsElevation(t *testing.T) {
	c := newTestClassifier(fixedElevation{elevationFt: 0, ok: true})

	// Reported speed settles it before the elevation rule is consulted
	f := testFlight("ABC123", 450)
	f.Altitude = 50
	assert.False(t, c.IsGrounded(f))
}

func TestIsGroundedCachedPerCycle(t *testing.T) {
	c := newTestClassifier(nil)

	f := testFlight("ABC123", 15)
	assert.True(t, c.IsGrounded(f))

	// Mutating the field without going through UpdateFrom does not change the
	// cached answer
	f.Groundspeed = 400
	assert.True(t, c.IsGrounded(f))

	// UpdateFrom invalidates the cache
	f.UpdateFrom(testFlight("ABC123", 400))
	assert.False(t, c.IsGrounded(f))
}
