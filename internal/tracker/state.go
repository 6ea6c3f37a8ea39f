package tracker

import (
	"math"

	"github.com/vatwatch/vatwatch/internal/geo"
	"github.com/vatwatch/vatwatch/pkg/logger"
)

// ElevationSource provides terrain elevation in feet for a position. The
// lookup itself lives outside this engine; a nil source simply disables the
// height-above-ground rule.
type ElevationSource interface {
	ElevationAt(lat, lon float64) (elevationFt float64, ok bool)
}

// Classifier decides whether a mobile entity is grounded from incomplete and
// unreliable fields. The result is cached on the flight for one
// reconciliation cycle.
type Classifier struct {
	speedThresholdKts float64
	heightAGLFt       float64
	vicinityNM        float64
	elevation         ElevationSource
	logger            *logger.Logger
}

// NewClassifier creates an operating-state classifier
func NewClassifier(speedThresholdKts, heightAGLFt, vicinityNM float64, elevation ElevationSource, log *logger.Logger) *Classifier {
	return &Classifier{
		speedThresholdKts: speedThresholdKts,
		heightAGLFt:       heightAGLFt,
		vicinityNM:        vicinityNM,
		elevation:         elevation,
		logger:            log.Named("grounded"),
	}
}

// IsGrounded reports whether the flight is on the ground, computing and
// caching the classification on first use within a cycle
func (c *Classifier) IsGrounded(f *Flight) bool {
	if f.groundedValid {
		return f.grounded
	}
	f.grounded = c.classify(f)
	f.groundedValid = true
	return f.grounded
}

// classify applies the ordered decision policy; the first applicable rule
// wins
func (c *Classifier) classify(f *Flight) bool {
	gs := f.Groundspeed
	speedValid := !math.IsNaN(gs) && !math.IsInf(gs, 0)

	// Rules 1 and 2: a plausible reported speed settles it either way
	if speedValid && gs >= 1 && gs <= c.speedThresholdKts {
		return true
	}
	if speedValid && gs > c.speedThresholdKts {
		return false
	}

	// Rule 3: height above ground, when terrain elevation is available
	if c.elevation != nil {
		if elev, ok := c.elevation.ElevationAt(f.Latitude, f.Longitude); ok {
			return f.Altitude-elev <= c.heightAGLFt
		}
	}

	// Rule 4: airport vicinity hint. Computed and logged but not factored
	// into the final decision. Feeding it in would change classification
	// for flights parked at fields without ATC coverage, see vicinityHint.
	if hint, code := c.vicinityHint(f); hint {
		c.logger.Debug("Flight within endpoint airport vicinity",
			logger.String("callsign", f.Callsign),
			logger.String("airport", code),
		)
	}

	// Fallback: treats a missing or zero speed as grounded. Unreliable, but
	// the least wrong option when every better signal is absent.
	return !speedValid || gs <= c.speedThresholdKts
}

// vicinityHint reports whether the flight lies within the vicinity window of
// either flight-plan endpoint airport
func (c *Classifier) vicinityHint(f *Flight) (bool, string) {
	if f.Plan == nil {
		return false, ""
	}
	for _, airport := range []*Airport{f.Plan.AirportDeparting, f.Plan.AirportArriving} {
		if airport == nil {
			continue
		}
		w := geo.VicinityWindow(airport.Latitude, airport.Longitude, c.vicinityNM)
		if w.Contains(f.Latitude, f.Longitude) {
			return true, airport.Code()
		}
	}
	return false, ""
}
