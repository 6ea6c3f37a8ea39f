package feed

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vatwatch/vatwatch/pkg/logger"
)

// clientLine builds a colon-delimited CLIENTS line from sparse field values
func clientLine(fields map[int]string) string {
	out := make([]string, 41)
	for i, v := range fields {
		out[i] = v
	}
	return strings.Join(out, ":")
}

func pilotLine(callsign string, overrides map[int]string) string {
	fields := map[int]string{
		0:  callsign,
		1:  "1234567",
		2:  "John Doe",
		3:  "PILOT",
		5:  "50.0379",
		6:  "8.5622",
		7:  "350",
		8:  "0",
		9:  "B738",
		11: "EDDF",
		13: "EDDM",
		17: "2000",
		21: "I",
		29: "PBN/A1B1",
		30: "ANEKI Y125 ARPEG",
		38: "90",
		40: "1013",
	}
	for i, v := range overrides {
		fields[i] = v
	}
	return clientLine(fields)
}

func atcLine(callsign string, overrides map[int]string) string {
	fields := map[int]string{
		0:  callsign,
		1:  "7654321",
		2:  "Jane Smith",
		3:  "ATC",
		4:  "118.700",
		5:  "50.0333",
		6:  "8.5705",
		7:  "364",
		35: "Frankfurt Tower information A",
	}
	for i, v := range overrides {
		fields[i] = v
	}
	return clientLine(fields)
}

func payload(update string, clients ...string) string {
	var b strings.Builder
	b.WriteString("; comment line\n")
	b.WriteString("!GENERAL:\n")
	b.WriteString("VERSION = 8\n")
	b.WriteString("UPDATE = " + update + "\n")
	b.WriteString("CONNECTED CLIENTS = " + "42" + "\n")
	b.WriteString("!CLIENTS:\n")
	for _, c := range clients {
		b.WriteString(c + "\n")
	}
	return b.String()
}

func TestParsePilotLine(t *testing.T) {
	p := NewParser(16, logger.NewNop())

	result, err := p.Parse(payload("20240115120000", pilotLine("ABC123", nil)))
	require.NoError(t, err)

	assert.Equal(t, StatusOk, result.Status)
	require.Len(t, result.Flights, 1)

	f := result.Flights[0]
	assert.Equal(t, "ABC123", f.Callsign)
	assert.Equal(t, 1234567, f.ExternalID)
	assert.Equal(t, "John Doe", f.PilotName)
	assert.InDelta(t, 50.0379, f.Latitude, 1e-9)
	assert.InDelta(t, 8.5622, f.Longitude, 1e-9)
	assert.InDelta(t, 350.0, f.Altitude, 1e-9)
	assert.InDelta(t, 0.0, f.Groundspeed, 1e-9)
	assert.InDelta(t, 90.0, f.Heading, 1e-9)
	assert.Equal(t, "B738", f.AircraftType)
	assert.Equal(t, "2000", f.Transponder)
	assert.InDelta(t, 1013.0, f.QNHMb, 1e-9)
	assert.Equal(t, "EDDF", f.PlannedDepAirport)
	assert.Equal(t, "EDDM", f.PlannedDestAirport)
	assert.Equal(t, "ANEKI Y125 ARPEG", f.PlannedRoute)
	assert.Equal(t, "I", f.FlightRules)

	assert.Equal(t, time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC), result.UpdatedAt)
	assert.Equal(t, 42, result.ConnectedClients)
}

func TestParseATCLine(t *testing.T) {
	p := NewParser(16, logger.NewNop())

	result, err := p.Parse(payload("20240115120000", atcLine("EDDF_TWR", nil)))
	require.NoError(t, err)

	require.Len(t, result.ATCUnits, 1)
	st := result.ATCUnits[0]
	assert.Equal(t, "EDDF_TWR", st.Callsign)
	assert.Equal(t, 7654321, st.ExternalID)
	assert.Equal(t, "Jane Smith", st.ControllerName)
	assert.InDelta(t, 118.700, st.Frequency, 1e-9)
	assert.InDelta(t, 364.0, st.Elevation, 1e-9)
	assert.Equal(t, "Frankfurt Tower information A", st.AtisText)
}

func TestParseDropsMalformedLines(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "missing callsign", line: pilotLine("", nil)},
		{name: "missing id", line: pilotLine("ABC123", map[int]string{1: ""})},
		{name: "non-numeric id", line: pilotLine("ABC123", map[int]string{1: "notanid"})},
		{name: "non-numeric atc id", line: atcLine("EDDF_TWR", map[int]string{1: "x"})},
		{name: "missing client type", line: pilotLine("ABC123", map[int]string{3: ""})},
		{name: "unknown client type", line: pilotLine("ABC123", map[int]string{3: "FOLLOWME"})},
		{name: "non-numeric latitude", line: pilotLine("ABC123", map[int]string{5: "N50"})},
		{name: "non-numeric longitude", line: pilotLine("ABC123", map[int]string{6: ""})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser(16, logger.NewNop())
			result, err := p.Parse(payload("20240115120000", tt.line, pilotLine("DEF456", nil)))
			require.NoError(t, err)
			assert.Equal(t, StatusOk, result.Status)
			// The malformed line is dropped, the valid one survives
			require.Len(t, result.Flights, 1)
			assert.Equal(t, "DEF456", result.Flights[0].Callsign)
			assert.Empty(t, result.ATCUnits)
		})
	}
}

func TestParseShortLinePadsMissingFields(t *testing.T) {
	p := NewParser(16, logger.NewNop())

	// Only the first nine fields are present
	line := "ABC123:1234567:John Doe:PILOT::50.0:8.5:350:0"
	result, err := p.Parse(payload("20240115120000", line))
	require.NoError(t, err)

	require.Len(t, result.Flights, 1)
	f := result.Flights[0]
	assert.Equal(t, "", f.PlannedDepAirport)
	assert.Equal(t, "", f.Transponder)
	assert.InDelta(t, 0.0, f.Heading, 1e-9)
}

func TestParseMissingUpdateField(t *testing.T) {
	p := NewParser(16, logger.NewNop())

	raw := "!GENERAL:\nVERSION = 8\n!CLIENTS:\n" + pilotLine("ABC123", nil)
	result, err := p.Parse(raw)
	require.Error(t, err)
	assert.Equal(t, StatusParsingFailed, result.Status)
}

func TestParseInvalidUpdateTimestamp(t *testing.T) {
	p := NewParser(16, logger.NewNop())

	result, err := p.Parse(payload("not-a-timestamp"))
	require.Error(t, err)
	assert.Equal(t, StatusParsingFailed, result.Status)
}

func TestParseRepeatedUpdateYieldsNoNewData(t *testing.T) {
	p := NewParser(16, logger.NewNop())

	first, err := p.Parse(payload("20240115120000", pilotLine("ABC123", nil)))
	require.NoError(t, err)
	assert.Equal(t, StatusOk, first.Status)

	second, err := p.Parse(payload("20240115120000", pilotLine("ABC123", nil)))
	require.NoError(t, err)
	assert.Equal(t, StatusNoNewData, second.Status)
	assert.Nil(t, second.Flights)
	assert.Nil(t, second.ATCUnits)

	third, err := p.Parse(payload("20240115120100", pilotLine("ABC123", nil)))
	require.NoError(t, err)
	assert.Equal(t, StatusOk, third.Status)
	assert.Len(t, third.Flights, 1)
}

func TestParsePlanAirportsUppercased(t *testing.T) {
	p := NewParser(16, logger.NewNop())

	line := pilotLine("ABC123", map[int]string{11: "eddf", 13: "eddm", 28: "edds"})
	result, err := p.Parse(payload("20240115120000", line))
	require.NoError(t, err)

	require.Len(t, result.Flights, 1)
	f := result.Flights[0]
	assert.Equal(t, "EDDF", f.PlannedDepAirport)
	assert.Equal(t, "EDDM", f.PlannedDestAirport)
	assert.Equal(t, "EDDS", f.PlannedAltAirport)
}

func TestParseIgnoresUnknownSections(t *testing.T) {
	p := NewParser(16, logger.NewNop())

	raw := "!GENERAL:\nUPDATE = 20240115120000\n!SERVERS:\nsome:server:line\n!CLIENTS:\n" + pilotLine("ABC123", nil)
	result, err := p.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, StatusOk, result.Status)
	assert.Len(t, result.Flights, 1)
}

func TestParseMixedClientTypes(t *testing.T) {
	p := NewParser(16, logger.NewNop())

	result, err := p.Parse(payload("20240115120000",
		pilotLine("ABC123", nil),
		atcLine("EDDF_TWR", nil),
		pilotLine("DEF456", nil),
		atcLine("EDDF_GND", map[int]string{4: "121.800"}),
	))
	require.NoError(t, err)

	assert.Len(t, result.Flights, 2)
	assert.Len(t, result.ATCUnits, 2)
}
