package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/vatwatch/vatwatch/internal/config"
	"github.com/vatwatch/vatwatch/internal/feed"
	"github.com/vatwatch/vatwatch/internal/geo"
	"github.com/vatwatch/vatwatch/internal/tracker"
	"github.com/vatwatch/vatwatch/pkg/logger"
)

// Archive is the subset of the storage layer the API reads from
type Archive interface {
	WaypointsByCallsign(callsign string, limit int) ([]tracker.WaypointRecord, error)
	RecentCycles(limit int) ([]tracker.CycleRecord, error)
}

// Handler contains the API handlers
type Handler struct {
	trackerService *tracker.Service
	feedService    *feed.Service
	archive        Archive
	config         *config.Config
	logger         *logger.Logger
}

// NewHandler creates a new API handler. archive may be nil when archival is
// disabled.
func NewHandler(trackerService *tracker.Service, feedService *feed.Service, archive Archive, config *config.Config, log *logger.Logger) *Handler {
	return &Handler{
		trackerService: trackerService,
		feedService:    feedService,
		archive:        archive,
		config:         config,
		logger:         log.Named("api-handler"),
	}
}

// flightView is the API representation of a tracked flight
type flightView struct {
	*tracker.Flight
	Grounded        bool                `json:"grounded"`
	MagneticHeading float64             `json:"magnetic_heading"`
	Trail           []*tracker.Waypoint `json:"trail,omitempty"`
}

// airportView is the API representation of a synthesized airport
type airportView struct {
	*tracker.Airport
	Code             string   `json:"code"`
	Stations         []string `json:"stations"`
	FlightsDeparting []string `json:"flights_departing"`
	FlightsArriving  []string `json:"flights_arriving"`
}

// GetAllFlights returns all tracked flights, optionally filtered
func (h *Handler) GetAllFlights(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	callsign, minAltitude, maxAltitude, groundedFilter, window, includeTrails := parseFlightFilters(r)

	flights := h.trackerService.Flights()

	filtered := make([]*tracker.Flight, 0, len(flights))
	for _, f := range flights {
		if callsign != "" && !strings.Contains(strings.ToUpper(f.Callsign), strings.ToUpper(callsign)) {
			continue
		}
		if f.Altitude < minAltitude || f.Altitude > maxAltitude {
			continue
		}
		if window != nil && !window.Contains(f.Latitude, f.Longitude) {
			continue
		}
		if groundedFilter != nil && h.trackerService.IsGrounded(f) != *groundedFilter {
			continue
		}
		filtered = append(filtered, f)
	}

	views := make([]flightView, 0, len(filtered))
	for _, f := range filtered {
		views = append(views, h.viewOf(f, includeTrails))
	}

	response := map[string]interface{}{
		"timestamp": time.Now().UTC(),
		"count":     len(views),
		"flights":   views,
	}
	WriteJSON(w, http.StatusOK, response)

	h.logger.Debug("GetAllFlights API call completed",
		logger.Duration("duration", time.Since(start)),
		logger.Int("flight_count", len(views)))
}

// GetFlightByCallsign returns a single flight by callsign
func (h *Handler) GetFlightByCallsign(w http.ResponseWriter, r *http.Request) {
	callsign := chi.URLParam(r, "callsign")
	if callsign == "" {
		http.Error(w, "Missing callsign", http.StatusBadRequest)
		return
	}

	flight, found := h.trackerService.FlightByCallsign(callsign)
	if !found {
		http.Error(w, "Flight not found", http.StatusNotFound)
		return
	}

	WriteJSON(w, http.StatusOK, h.viewOf(flight, true))
}

// GetFlightTrail returns the trail for a flight, live points first and
// archived points beyond that when an archive is configured
func (h *Handler) GetFlightTrail(w http.ResponseWriter, r *http.Request) {
	callsign := chi.URLParam(r, "callsign")
	if callsign == "" {
		http.Error(w, "Missing callsign", http.StatusBadRequest)
		return
	}

	limit := h.config.Storage.MaxTrailPointsAPI
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	flight, found := h.trackerService.FlightByCallsign(callsign)
	if !found {
		http.Error(w, "Flight not found", http.StatusNotFound)
		return
	}

	live := flight.Trail.Points()
	if len(live) > limit {
		live = live[:limit]
	}

	var archived []tracker.WaypointRecord
	if h.archive != nil && len(live) < limit {
		var err error
		archived, err = h.archive.WaypointsByCallsign(flight.Callsign, limit-len(live))
		if err != nil {
			h.logger.Error("Failed to load archived trail",
				logger.String("callsign", flight.Callsign),
				logger.Error(err))
			http.Error(w, "Failed to load archived trail", http.StatusInternalServerError)
			return
		}
	}

	response := map[string]interface{}{
		"callsign": flight.Callsign,
		"live":     live,
		"archived": archived,
	}
	WriteJSON(w, http.StatusOK, response)
}

// GetAllAirports returns all synthesized airports
func (h *Handler) GetAllAirports(w http.ResponseWriter, r *http.Request) {
	airports := h.trackerService.Airports()

	views := make([]airportView, 0, len(airports))
	for _, a := range airports {
		views = append(views, airportViewOf(a))
	}

	response := map[string]interface{}{
		"timestamp": time.Now().UTC(),
		"count":     len(views),
		"airports":  views,
	}
	WriteJSON(w, http.StatusOK, response)
}

// GetAirportByCode returns a single airport by its identifier
func (h *Handler) GetAirportByCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		http.Error(w, "Missing airport code", http.StatusBadRequest)
		return
	}

	airport, found := h.trackerService.AirportByCode(code)
	if !found {
		http.Error(w, "Airport not found", http.StatusNotFound)
		return
	}

	WriteJSON(w, http.StatusOK, airportViewOf(airport))
}

// GetAllATC returns all tracked control stations
func (h *Handler) GetAllATC(w http.ResponseWriter, r *http.Request) {
	stations := h.trackerService.ATCUnits()

	type stationView struct {
		*tracker.ControlStation
		Facility string `json:"facility"`
		Airport  string `json:"airport,omitempty"`
	}

	views := make([]stationView, 0, len(stations))
	for _, st := range stations {
		views = append(views, stationView{
			ControlStation: st,
			Facility:       st.Facility.String(),
			Airport:        st.AirportCode(),
		})
	}

	response := map[string]interface{}{
		"timestamp": time.Now().UTC(),
		"count":     len(views),
		"atc":       views,
	}
	WriteJSON(w, http.StatusOK, response)
}

// GetHealth returns the health status of the API
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	status, summary, lastCycle := h.feedService.Status()
	flights, airports, atcUnits := h.trackerService.Counts()

	response := map[string]interface{}{
		"status":        status.String(),
		"status_detail": summary,
		"last_cycle":    lastCycle,
		"flight_count":  flights,
		"airport_count": airports,
		"atc_count":     atcUnits,
	}

	WriteJSON(w, http.StatusOK, response)
}

// GetCycles returns recent poll cycle outcomes from the archive
func (h *Handler) GetCycles(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		http.Error(w, "Archive not available", http.StatusServiceUnavailable)
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	cycles, err := h.archive.RecentCycles(limit)
	if err != nil {
		h.logger.Error("Failed to load poll cycles", logger.Error(err))
		http.Error(w, "Failed to load poll cycles", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"count":  len(cycles),
		"cycles": cycles,
	}
	WriteJSON(w, http.StatusOK, response)
}

// TriggerPoll forces an immediate feed poll outside the regular schedule
func (h *Handler) TriggerPoll(w http.ResponseWriter, r *http.Request) {
	if err := h.feedService.Poll(r.Context()); err != nil {
		if errors.Is(err, feed.ErrPollInProgress) {
			http.Error(w, "Poll already in progress", http.StatusConflict)
			return
		}
		h.logger.Error("Manual poll failed", logger.Error(err))
	}

	status, summary, lastCycle := h.feedService.Status()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":        status.String(),
		"status_detail": summary,
		"last_cycle":    lastCycle,
	})
}

// GetConfig returns the public configuration
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	publicConfig := map[string]interface{}{
		"feed": map[string]interface{}{
			"fetch_interval_seconds": h.config.Feed.FetchIntervalSecs,
			"websocket_feed_updates": h.config.Feed.WebSocketFeedUpdates,
		},
		"tracker": map[string]interface{}{
			"trail_max_length":             h.config.Tracker.TrailMaxLength,
			"trail_while_grounded":         h.config.Tracker.TrailWhileGrounded,
			"grounded_speed_threshold_kts": h.config.Tracker.GroundedSpeedThresholdKts,
			"airport_vicinity_nm":          h.config.Tracker.AirportVicinityNM,
		},
		"storage": map[string]interface{}{
			"type":                 h.config.Storage.Type,
			"max_trail_points_api": h.config.Storage.MaxTrailPointsAPI,
		},
	}

	WriteJSON(w, http.StatusOK, publicConfig)
}

// viewOf builds the API representation of one flight
func (h *Handler) viewOf(f *tracker.Flight, includeTrail bool) flightView {
	view := flightView{
		Flight:          f,
		Grounded:        h.trackerService.IsGrounded(f),
		MagneticHeading: geo.MagneticHeading(f.Heading, f.Latitude, f.Longitude, f.Altitude, time.Now().UTC()),
	}
	if includeTrail {
		points := f.Trail.Points()
		if len(points) > h.config.Storage.MaxTrailPointsAPI {
			points = points[:h.config.Storage.MaxTrailPointsAPI]
		}
		view.Trail = points
	}
	return view
}

// airportViewOf builds the API representation of one airport
func airportViewOf(a *tracker.Airport) airportView {
	stations := make([]string, 0, len(a.Stations))
	for _, st := range a.Stations {
		stations = append(stations, st.Callsign)
	}

	departing := make([]string, 0, len(a.FlightsDeparting))
	for _, f := range a.FlightsDeparting {
		departing = append(departing, f.Callsign)
	}

	arriving := make([]string, 0, len(a.FlightsArriving))
	for _, f := range a.FlightsArriving {
		arriving = append(arriving, f.Callsign)
	}

	return airportView{
		Airport:          a,
		Code:             a.Code(),
		Stations:         stations,
		FlightsDeparting: departing,
		FlightsArriving:  arriving,
	}
}

// parseFlightFilters parses flight filter parameters from the request
func parseFlightFilters(r *http.Request) (string, float64, float64, *bool, *geo.Window, bool) {
	minAltitude := math.Inf(-1)
	maxAltitude := math.Inf(1)

	if minStr := r.URL.Query().Get("min_altitude"); minStr != "" {
		if min, err := strconv.ParseFloat(minStr, 64); err == nil {
			minAltitude = min
		}
	}

	if maxStr := r.URL.Query().Get("max_altitude"); maxStr != "" {
		if max, err := strconv.ParseFloat(maxStr, 64); err == nil {
			maxAltitude = max
		}
	}

	callsign := r.URL.Query().Get("callsign")

	var groundedFilter *bool
	if groundedStr := r.URL.Query().Get("grounded"); groundedStr != "" {
		if grounded, err := strconv.ParseBool(groundedStr); err == nil {
			groundedFilter = &grounded
		}
	}

	var window *geo.Window
	q := r.URL.Query()
	if q.Get("min_lat") != "" && q.Get("max_lat") != "" && q.Get("min_lon") != "" && q.Get("max_lon") != "" {
		minLat, err1 := strconv.ParseFloat(q.Get("min_lat"), 64)
		maxLat, err2 := strconv.ParseFloat(q.Get("max_lat"), 64)
		minLon, err3 := strconv.ParseFloat(q.Get("min_lon"), 64)
		maxLon, err4 := strconv.ParseFloat(q.Get("max_lon"), 64)
		if err1 == nil && err2 == nil && err3 == nil && err4 == nil {
			window = &geo.Window{MinLat: minLat, MaxLat: maxLat, MinLon: minLon, MaxLon: maxLon}
		}
	}

	includeTrails := false
	if trailsStr := q.Get("include_trails"); trailsStr != "" {
		if trails, err := strconv.ParseBool(trailsStr); err == nil {
			includeTrails = trails
		}
	}

	return callsign, minAltitude, maxAltitude, groundedFilter, window, includeTrails
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
