package feed

import (
	"time"
)

// Status describes the outcome of the most recent poll cycle
type Status int

const (
	StatusInit          Status = iota // Never successfully read
	StatusOk                          // Feed read and parsed, tracked state updated
	StatusNoNewData                   // Feed timestamp already seen, no state change
	StatusReadFailed                  // Transport error talking to the feed
	StatusParsingFailed               // Structurally invalid payload
)

// String returns the human-readable name of the status
func (s Status) String() string {
	switch s {
	case StatusInit:
		return "Init"
	case StatusOk:
		return "Ok"
	case StatusNoNewData:
		return "NoNewData"
	case StatusReadFailed:
		return "ReadFailed"
	case StatusParsingFailed:
		return "ParsingFailed"
	default:
		return "Unknown"
	}
}

// PilotRecord is a transient typed record parsed from one PILOT line of the
// CLIENTS section. It carries no identity; the tracker assigns that during
// reconciliation.
type PilotRecord struct {
	Callsign     string
	ExternalID   int
	PilotName    string
	Frequency    float64
	Latitude     float64
	Longitude    float64
	Altitude     float64
	Groundspeed  float64
	Heading      float64
	AircraftType string
	Transponder  string
	QNHMb        float64

	// Flight plan fields, read only for PILOT rows
	PlannedDepAirport  string
	PlannedDestAirport string
	PlannedAltAirport  string
	PlannedRoute       string
	PlannedRemarks     string
	FlightRules        string
}

// ATCRecord is a transient typed record parsed from one ATC line of the
// CLIENTS section
type ATCRecord struct {
	Callsign       string
	ExternalID     int
	ControllerName string
	Frequency      float64
	Latitude       float64
	Longitude      float64
	Elevation      float64
	AtisText       string
}

// Result is the outcome of parsing one raw feed payload
type Result struct {
	Status           Status
	Flights          []PilotRecord
	ATCUnits         []ATCRecord
	General          map[string]string
	UpdatedAt        time.Time // Value of the GENERAL section's UPDATE field
	ConnectedClients int
}
