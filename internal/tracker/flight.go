package tracker

import (
	"github.com/vatwatch/vatwatch/internal/feed"
)

// Flight is a tracked mobile entity built from a PILOT record
type Flight struct {
	NetworkIdentity
	MapPosition

	PilotName    string  `json:"pilot_name"`
	AircraftType string  `json:"aircraft_type"`
	Transponder  string  `json:"transponder"`
	QNHMb        float64 `json:"qnh_mb,omitempty"`

	Plan  *FlightPlan `json:"flight_plan,omitempty"`
	Trail *Trail      `json:"-"`

	disposed bool

	// Grounded classification cache, valid for one reconciliation cycle
	grounded      bool
	groundedValid bool
}

// FlightPlan is owned 1:1 by a Flight and exists only when both origin and
// destination codes were transmitted
type FlightPlan struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Alternate   string `json:"alternate,omitempty"`
	Route       string `json:"route,omitempty"`
	Remarks     string `json:"remarks,omitempty"`
	FlightRules string `json:"flight_rules,omitempty"`

	// Back-reference to the owning flight; not serialized
	Flight *Flight `json:"-"`

	// Resolved during reconciliation, not at parse time: the airport may not
	// exist yet when the plan is parsed
	AirportDeparting *Airport `json:"-"`
	AirportArriving  *Airport `json:"-"`
}

// NewFlightFromRecord builds a transient Flight from a parsed pilot record.
// The flight has no object id yet; the reconciler assigns one if it becomes
// newly tracked.
func NewFlightFromRecord(rec feed.PilotRecord, trailMax, trailPrecision int) *Flight {
	f := &Flight{
		NetworkIdentity: NetworkIdentity{
			ExternalID: rec.ExternalID,
			Callsign:   rec.Callsign,
			Frequency:  rec.Frequency,
		},
		MapPosition: MapPosition{
			Latitude:    rec.Latitude,
			Longitude:   rec.Longitude,
			Altitude:    rec.Altitude,
			Groundspeed: rec.Groundspeed,
			Heading:     rec.Heading,
		},
		PilotName:    rec.PilotName,
		AircraftType: rec.AircraftType,
		Transponder:  rec.Transponder,
		QNHMb:        rec.QNHMb,
		Trail:        NewTrail(trailMax, trailPrecision),
	}

	if rec.PlannedDepAirport != "" && rec.PlannedDestAirport != "" {
		f.Plan = &FlightPlan{
			Origin:      rec.PlannedDepAirport,
			Destination: rec.PlannedDestAirport,
			Alternate:   rec.PlannedAltAirport,
			Route:       rec.PlannedRoute,
			Remarks:     rec.PlannedRemarks,
			FlightRules: rec.FlightRules,
			Flight:      f,
		}
	}

	return f
}

// UpdateFrom mutates the flight's fields from a fresh record of the same
// callsign. Identity and trail are preserved; the grounded cache is
// invalidated for the new cycle.
func (f *Flight) UpdateFrom(o *Flight) {
	f.ExternalID = o.ExternalID
	f.Callsign = o.Callsign
	f.Frequency = o.Frequency
	f.MapPosition = o.MapPosition

	f.PilotName = o.PilotName
	f.AircraftType = o.AircraftType
	f.Transponder = o.Transponder
	f.QNHMb = o.QNHMb

	switch {
	case o.Plan == nil:
		// Plan withdrawn
		if f.Plan != nil {
			f.Plan.Flight = nil
			f.Plan = nil
		}
	case f.Plan == nil:
		f.Plan = o.Plan
		f.Plan.Flight = f
	default:
		// Keep the plan object, refresh its fields; airport links are
		// re-resolved after airports are finalized
		f.Plan.Origin = o.Plan.Origin
		f.Plan.Destination = o.Plan.Destination
		f.Plan.Alternate = o.Plan.Alternate
		f.Plan.Route = o.Plan.Route
		f.Plan.Remarks = o.Plan.Remarks
		f.Plan.FlightRules = o.Plan.FlightRules
	}

	f.groundedValid = false
}

// Dispose releases the flight's resources. Safe to call more than once; only
// the first call has any effect.
func (f *Flight) Dispose() {
	if f.disposed {
		return
	}
	f.disposed = true

	if f.Plan != nil {
		f.Plan.Flight = nil
		f.Plan.AirportDeparting = nil
		f.Plan.AirportArriving = nil
		f.Plan = nil
	}
	if f.Trail != nil {
		f.Trail.clear()
	}
}

// Disposed reports whether the flight has been torn down
func (f *Flight) Disposed() bool {
	return f.disposed
}
