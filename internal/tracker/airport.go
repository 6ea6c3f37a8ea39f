package tracker

// Airport is not transmitted by the feed; it is synthesized by grouping
// control stations that share a callsign prefix. Its position is the
// arithmetic mean of its member stations' positions.
type Airport struct {
	NetworkIdentity // Callsign carries the airport code
	MapPosition     // Altitude carries the mean elevation

	Stations []*ControlStation `json:"-"`

	FlightsDeparting []*Flight `json:"-"`
	FlightsArriving  []*Flight `json:"-"`

	disposed bool
}

// Code returns the airport identifier
func (a *Airport) Code() string {
	return a.Callsign
}

// addStation appends a member station and recomputes the mean position
func (a *Airport) addStation(st *ControlStation) {
	a.Stations = append(a.Stations, st)
	a.recomputePosition()
}

// recomputePosition sets the airport position to the arithmetic mean of its
// member stations' latitude/longitude/elevation
func (a *Airport) recomputePosition() {
	if len(a.Stations) == 0 {
		return
	}
	var lat, lon, elev float64
	for _, st := range a.Stations {
		lat += st.Latitude
		lon += st.Longitude
		elev += st.Altitude
	}
	n := float64(len(a.Stations))
	a.Latitude = lat / n
	a.Longitude = lon / n
	a.Altitude = elev / n
}

// BuildAirports groups stations by callsign prefix into synthesized airports,
// in order of first appearance. The mean position is recomputed as each
// member is added.
func BuildAirports(stations []*ControlStation) []*Airport {
	byCode := make(map[string]*Airport)
	var airports []*Airport

	for _, st := range stations {
		code := st.AirportCode()
		if code == "" {
			continue
		}
		airport, ok := byCode[code]
		if !ok {
			airport = &Airport{
				NetworkIdentity: NetworkIdentity{Callsign: code},
			}
			byCode[code] = airport
			airports = append(airports, airport)
		}
		airport.addStation(st)
	}

	return airports
}

// LinkFlightsToAirports records bidirectional links between each flight plan
// and its resolved origin/destination airports. Airport flight lists are
// append-if-absent, so a flight is linked at most once per direction.
func LinkFlightsToAirports(flights []*Flight, airports []*Airport) {
	byCode := make(map[string]*Airport, len(airports))
	for _, a := range airports {
		byCode[a.NormalizedCallsign()] = a
	}

	for _, f := range flights {
		if f.Plan == nil {
			continue
		}

		if dep, ok := byCode[NormalizeCallsign(f.Plan.Origin)]; ok {
			f.Plan.AirportDeparting = dep
			dep.FlightsDeparting = appendFlightIfAbsent(dep.FlightsDeparting, f)
		} else {
			f.Plan.AirportDeparting = nil
		}

		if arr, ok := byCode[NormalizeCallsign(f.Plan.Destination)]; ok {
			f.Plan.AirportArriving = arr
			arr.FlightsArriving = appendFlightIfAbsent(arr.FlightsArriving, f)
		} else {
			f.Plan.AirportArriving = nil
		}
	}
}

func appendFlightIfAbsent(flights []*Flight, f *Flight) []*Flight {
	for _, existing := range flights {
		if existing == f {
			return flights
		}
	}
	return append(flights, f)
}

// UpdateFrom replaces the airport's membership and position from a freshly
// aggregated airport of the same code. Flight links are reset; they are
// re-established after reconciliation by LinkFlightsToAirports.
func (a *Airport) UpdateFrom(o *Airport) {
	a.Callsign = o.Callsign
	a.Stations = o.Stations
	a.MapPosition = o.MapPosition
	a.FlightsDeparting = a.FlightsDeparting[:0]
	a.FlightsArriving = a.FlightsArriving[:0]
}

// Dispose tears the airport down once it has no surviving member stations
func (a *Airport) Dispose() {
	if a.disposed {
		return
	}
	a.disposed = true

	for _, f := range a.FlightsDeparting {
		if f.Plan != nil && f.Plan.AirportDeparting == a {
			f.Plan.AirportDeparting = nil
		}
	}
	for _, f := range a.FlightsArriving {
		if f.Plan != nil && f.Plan.AirportArriving == a {
			f.Plan.AirportArriving = nil
		}
	}
	a.Stations = nil
	a.FlightsDeparting = nil
	a.FlightsArriving = nil
}

// Disposed reports whether the airport has been torn down
func (a *Airport) Disposed() bool {
	return a.disposed
}
