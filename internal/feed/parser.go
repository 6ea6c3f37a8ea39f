package feed

import (
	"fmt"
	"strings"

	"github.com/vatwatch/vatwatch/pkg/logger"
)

// Positional field indexes of a CLIENTS section line
const (
	fieldCallsign    = 0
	fieldID          = 1
	fieldName        = 2
	fieldClientType  = 3
	fieldFrequency   = 4
	fieldLatitude    = 5
	fieldLongitude   = 6
	fieldAltitude    = 7
	fieldGroundspeed = 8
	fieldAircraft    = 9
	fieldDepAirport  = 11
	fieldDestAirport = 13
	fieldTransponder = 17
	fieldVisibility  = 19
	fieldFlightType  = 21
	fieldAltAirport  = 28
	fieldRemarks     = 29
	fieldRoute       = 30
	fieldAtisMessage = 35
	fieldHeading     = 38
	fieldQNHMb       = 40
)

const (
	commentMarker  = ";"
	sectionGeneral = "GENERAL"
	sectionClients = "CLIENTS"

	clientTypePilot = "PILOT"
	clientTypeATC   = "ATC"
)

// Parser turns raw feed payloads into typed records. It owns the update
// history used for staleness detection, so one Parser instance must serve all
// polls of a feed.
type Parser struct {
	history *UpdateHistory
	logger  *logger.Logger
}

// NewParser creates a new feed parser
func NewParser(historyMax int, log *logger.Logger) *Parser {
	return &Parser{
		history: NewUpdateHistory(historyMax),
		logger:  log.Named("feed-parser"),
	}
}

// History exposes the parser's update history
func (p *Parser) History() *UpdateHistory {
	return p.history
}

// Parse converts one raw feed payload into typed records.
//
// Individual malformed client lines are dropped without failing the payload.
// The returned error is non-nil only for structural failures (missing or
// unparsable UPDATE field), in which case the result status is
// StatusParsingFailed. A payload whose UPDATE timestamp was already seen
// yields StatusNoNewData and no records.
func (p *Parser) Parse(raw string) (*Result, error) {
	result := &Result{
		General: make(map[string]string),
	}

	section := ""
	dropped := 0

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)

		if trimmed == "" || strings.HasPrefix(trimmed, commentMarker) {
			continue
		}

		// A line of the form !NAME: opens a new named section
		if strings.HasPrefix(trimmed, "!") {
			section = strings.ToUpper(strings.TrimSuffix(strings.TrimPrefix(trimmed, "!"), ":"))
			continue
		}

		switch section {
		case sectionGeneral:
			p.parseGeneralLine(trimmed, result.General)
		case sectionClients:
			if !p.parseClientLine(trimmed, result) {
				dropped++
			}
		default:
			// Lines in unknown sections are ignored
		}
	}

	if dropped > 0 {
		p.logger.Debug("Dropped malformed client lines", logger.Int("count", dropped))
	}

	// The global update timestamp is the one required field of a payload
	updateRaw, ok := result.General["UPDATE"]
	if !ok {
		result.Status = StatusParsingFailed
		return result, fmt.Errorf("feed payload missing required UPDATE field")
	}
	updatedAt, err := ParseUpdateTime(updateRaw)
	if err != nil {
		result.Status = StatusParsingFailed
		return result, fmt.Errorf("invalid UPDATE timestamp %q: %w", updateRaw, err)
	}
	result.UpdatedAt = updatedAt
	result.ConnectedClients = ToInt(result.General["CONNECTED CLIENTS"], 0)

	// Staleness rule: a payload whose UPDATE value has already been seen
	// produces no state change
	if p.history.Seen(updatedAt) {
		result.Status = StatusNoNewData
		result.Flights = nil
		result.ATCUnits = nil
		return result, nil
	}
	p.history.Record(updatedAt)

	result.Status = StatusOk
	return result, nil
}

// parseGeneralLine parses a KEY = VALUE line of the GENERAL section
func (p *Parser) parseGeneralLine(line string, general map[string]string) {
	idx := strings.Index(line, "=")
	if idx < 0 {
		return
	}
	key := strings.ToUpper(strings.TrimSpace(line[:idx]))
	value := strings.TrimSpace(line[idx+1:])
	if key != "" {
		general[key] = value
	}
}

// parseClientLine parses one colon-delimited CLIENTS line into a pilot or ATC
// record. Returns false if the record was rejected.
func (p *Parser) parseClientLine(line string, result *Result) bool {
	fields := strings.Split(line, ":")

	callsign := strings.TrimSpace(at(fields, fieldCallsign))
	id := strings.TrimSpace(at(fields, fieldID))
	clientType := strings.ToUpper(strings.TrimSpace(at(fields, fieldClientType)))

	// A record missing callsign/type or a numeric id and coordinates is dropped
	if callsign == "" || clientType == "" {
		return false
	}
	if !IsNumeric(id) || !IsNumeric(at(fields, fieldLatitude)) || !IsNumeric(at(fields, fieldLongitude)) {
		return false
	}

	switch clientType {
	case clientTypePilot:
		result.Flights = append(result.Flights, PilotRecord{
			Callsign:           callsign,
			ExternalID:         ToInt(id, 0),
			PilotName:          strings.TrimSpace(at(fields, fieldName)),
			Frequency:          ToFloat(at(fields, fieldFrequency), 0),
			Latitude:           ToFloat(at(fields, fieldLatitude), 0),
			Longitude:          ToFloat(at(fields, fieldLongitude), 0),
			Altitude:           ToFloat(at(fields, fieldAltitude), 0),
			Groundspeed:        ToFloat(at(fields, fieldGroundspeed), 0),
			Heading:            ToFloat(at(fields, fieldHeading), 0),
			AircraftType:       strings.TrimSpace(at(fields, fieldAircraft)),
			Transponder:        strings.TrimSpace(at(fields, fieldTransponder)),
			QNHMb:              ToFloat(at(fields, fieldQNHMb), 0),
			PlannedDepAirport:  strings.ToUpper(strings.TrimSpace(at(fields, fieldDepAirport))),
			PlannedDestAirport: strings.ToUpper(strings.TrimSpace(at(fields, fieldDestAirport))),
			PlannedAltAirport:  strings.ToUpper(strings.TrimSpace(at(fields, fieldAltAirport))),
			PlannedRoute:       strings.TrimSpace(at(fields, fieldRoute)),
			PlannedRemarks:     strings.TrimSpace(at(fields, fieldRemarks)),
			FlightRules:        strings.TrimSpace(at(fields, fieldFlightType)),
		})
		return true

	case clientTypeATC:
		result.ATCUnits = append(result.ATCUnits, ATCRecord{
			Callsign:       callsign,
			ExternalID:     ToInt(id, 0),
			ControllerName: strings.TrimSpace(at(fields, fieldName)),
			Frequency:      ToFloat(at(fields, fieldFrequency), 0),
			Latitude:       ToFloat(at(fields, fieldLatitude), 0),
			Longitude:      ToFloat(at(fields, fieldLongitude), 0),
			Elevation:      ToFloat(at(fields, fieldAltitude), 0),
			AtisText:       strings.TrimSpace(at(fields, fieldAtisMessage)),
		})
		return true

	default:
		// Unknown discriminator value
		return false
	}
}

// at returns the field at index i, or "" when the line is too short
func at(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return ""
	}
	return fields[i]
}
