package tracker

import (
	"strings"

	"github.com/vatwatch/vatwatch/internal/feed"
)

// Facility is the kind of control a station provides, derived purely from its
// callsign suffix
type Facility int

const (
	FacilityObserver Facility = iota
	FacilityDelivery
	FacilityGround
	FacilityTower
	FacilityApproach
	FacilityArea
	FacilityInformation
)

// String returns the facility name
func (f Facility) String() string {
	switch f {
	case FacilityDelivery:
		return "delivery"
	case FacilityGround:
		return "ground"
	case FacilityTower:
		return "tower"
	case FacilityApproach:
		return "approach"
	case FacilityArea:
		return "area-control"
	case FacilityInformation:
		return "information"
	default:
		return "observer"
	}
}

// ControlStation is a tracked ATC position
type ControlStation struct {
	NetworkIdentity
	MapPosition // Altitude carries the station's reported elevation

	ControllerName string   `json:"controller_name"`
	AtisText       string   `json:"atis_text,omitempty"`
	Facility       Facility `json:"-"`

	disposed bool
}

// NewStationFromRecord builds a transient ControlStation from a parsed ATC
// record
func NewStationFromRecord(rec feed.ATCRecord) *ControlStation {
	return &ControlStation{
		NetworkIdentity: NetworkIdentity{
			ExternalID: rec.ExternalID,
			Callsign:   rec.Callsign,
			Frequency:  rec.Frequency,
		},
		MapPosition: MapPosition{
			Latitude:  rec.Latitude,
			Longitude: rec.Longitude,
			Altitude:  rec.Elevation,
		},
		ControllerName: rec.ControllerName,
		AtisText:       rec.AtisText,
		Facility:       ClassifyFacility(rec.Callsign),
	}
}

// ClassifyFacility maps a station callsign to its facility by suffix
// convention (the segment after the last underscore, e.g. EDDF_TWR)
func ClassifyFacility(callsign string) Facility {
	suffix := callsign
	if idx := strings.LastIndexAny(callsign, "_-"); idx >= 0 {
		suffix = callsign[idx+1:]
	}

	switch strings.ToUpper(suffix) {
	case "DEL":
		return FacilityDelivery
	case "GND":
		return FacilityGround
	case "TWR":
		return FacilityTower
	case "APP", "DEP":
		return FacilityApproach
	case "CTR":
		return FacilityArea
	case "ATIS", "INFO", "FSS":
		return FacilityInformation
	case "OBS":
		return FacilityObserver
	default:
		return FacilityObserver
	}
}

// AirportCode returns the callsign prefix (the portion before the first
// separator) used to group stations into airports
func (s *ControlStation) AirportCode() string {
	if idx := strings.IndexAny(s.Callsign, "_-"); idx >= 0 {
		return strings.ToUpper(s.Callsign[:idx])
	}
	return strings.ToUpper(s.Callsign)
}

// UpdateFrom mutates the station's fields from a fresh record of the same
// callsign
func (s *ControlStation) UpdateFrom(o *ControlStation) {
	s.ExternalID = o.ExternalID
	s.Callsign = o.Callsign
	s.Frequency = o.Frequency
	s.MapPosition = o.MapPosition
	s.ControllerName = o.ControllerName
	s.AtisText = o.AtisText
	s.Facility = o.Facility
}

// Dispose releases the station. Only the first call has any effect.
func (s *ControlStation) Dispose() {
	if s.disposed {
		return
	}
	s.disposed = true
	s.AtisText = ""
}

// Disposed reports whether the station has been torn down
func (s *ControlStation) Disposed() bool {
	return s.disposed
}
