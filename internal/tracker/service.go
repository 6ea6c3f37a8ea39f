package tracker

import (
	"sync"
	"time"

	"github.com/vatwatch/vatwatch/internal/feed"
	"github.com/vatwatch/vatwatch/internal/geo"
	"github.com/vatwatch/vatwatch/internal/websocket"
	"github.com/vatwatch/vatwatch/pkg/logger"
)

// WebSocketServer defines the interface for a WebSocket server
type WebSocketServer interface {
	Broadcast(message *websocket.Message)
}

// CycleRecord is one poll-cycle outcome for the archive journal
type CycleRecord struct {
	Status           string
	FeedUpdate       time.Time
	Flights          int
	Stations         int
	Airports         int
	ConnectedClients int
	CreatedAt        time.Time
}

// WaypointRecord is one archived trail sample
type WaypointRecord struct {
	ObjectID    int64
	Callsign    string
	Latitude    float64
	Longitude   float64
	Altitude    float64
	Groundspeed float64
	Timestamp   time.Time
}

// Storage defines the interface for tracker data archival
type Storage interface {
	InsertCycle(rec CycleRecord) error
	InsertWaypoints(recs []WaypointRecord) error
	WaypointsByCallsign(callsign string, limit int) ([]WaypointRecord, error)
}

// Config contains tracker behavior settings
type Config struct {
	TrailMaxLength            int
	TrailWhileGrounded        bool
	TrailPrecisionDecimals    int
	GroundedSpeedThresholdKts float64
	GroundedHeightAGLFt       float64
	AirportVicinityNM         float64
}

// Service owns the tracked entity collections and performs reconciliation.
// Collections are mutated only inside Apply; all read access goes through the
// same lock, so consumers between cycles always observe a complete state.
type Service struct {
	cfg        Config
	registry   *IdentityRegistry
	classifier *Classifier
	detector   *ChangeDetector
	storage    Storage
	wsServer   WebSocketServer
	logger     *logger.Logger

	mu       sync.RWMutex
	flights  []*Flight
	airports []*Airport
	atcUnits []*ControlStation
}

// NewService creates a tracker service. storage, wsServer, and elevation may
// be nil; the corresponding features are then disabled.
func NewService(cfg Config, storage Storage, wsServer WebSocketServer, elevation ElevationSource, log *logger.Logger) *Service {
	s := &Service{
		cfg:        cfg,
		registry:   NewIdentityRegistry(),
		classifier: NewClassifier(cfg.GroundedSpeedThresholdKts, cfg.GroundedHeightAGLFt, cfg.AirportVicinityNM, elevation, log),
		storage:    storage,
		wsServer:   wsServer,
		logger:     log.Named("tracker"),
	}
	if wsServer != nil {
		s.detector = NewChangeDetector(log)
	}
	return s
}

// Registry exposes the identity registry, mainly for tests
func (s *Service) Registry() *IdentityRegistry {
	return s.registry
}

// Apply merges one parsed feed result into the tracked state. Object
// references held by consumers for surviving entities stay valid and reflect
// the new field values afterwards.
func (s *Service) Apply(result *feed.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()

	incomingFlights := make([]*Flight, 0, len(result.Flights))
	for _, rec := range result.Flights {
		incomingFlights = append(incomingFlights, NewFlightFromRecord(rec, s.cfg.TrailMaxLength, s.cfg.TrailPrecisionDecimals))
	}

	incomingStations := make([]*ControlStation, 0, len(result.ATCUnits))
	for _, rec := range result.ATCUnits {
		incomingStations = append(incomingStations, NewStationFromRecord(rec))
	}

	s.flights = Reconcile(s.flights, incomingFlights,
		func(f *Flight) { s.track(f) },
		func(f *Flight) { s.untrack(f) })
	s.atcUnits = Reconcile(s.atcUnits, incomingStations,
		func(st *ControlStation) { s.track(st) },
		func(st *ControlStation) { s.untrack(st) })

	// Airports are synthesized from the reconciled (stable) station objects,
	// then reconciled themselves so surviving airports keep their identity
	incomingAirports := BuildAirports(s.atcUnits)
	s.airports = Reconcile(s.airports, incomingAirports,
		func(a *Airport) { s.track(a) },
		func(a *Airport) { s.untrack(a) })

	// Airports exist now; resolve flight-plan endpoint links
	LinkFlightsToAirports(s.flights, s.airports)

	archived := s.appendTrails(now)

	if s.storage != nil {
		if err := s.storage.InsertCycle(CycleRecord{
			Status:           result.Status.String(),
			FeedUpdate:       result.UpdatedAt,
			Flights:          len(s.flights),
			Stations:         len(s.atcUnits),
			Airports:         len(s.airports),
			ConnectedClients: result.ConnectedClients,
			CreatedAt:        now,
		}); err != nil {
			s.logger.Error("Failed to archive poll cycle", logger.Error(err))
		}
		if len(archived) > 0 {
			if err := s.storage.InsertWaypoints(archived); err != nil {
				s.logger.Error("Failed to archive waypoints", logger.Error(err))
			}
		}
	}

	if s.detector != nil {
		s.broadcastChanges()
	}

	s.logger.Debug("Reconciliation completed",
		logger.Int("flights", len(s.flights)),
		logger.Int("atc_units", len(s.atcUnits)),
		logger.Int("airports", len(s.airports)),
		logger.Int("waypoints_added", len(archived)),
	)
}

// track assigns a fresh identity to a newly tracked entity
func (s *Service) track(entity TrackedEntity) {
	switch e := entity.(type) {
	case *Flight:
		e.ID = s.registry.Allocate()
	case *ControlStation:
		e.ID = s.registry.Allocate()
	case *Airport:
		e.ID = s.registry.Allocate()
	}
	s.registry.Register(entity)
}

// untrack removes a vanished entity from the object table
func (s *Service) untrack(entity TrackedEntity) {
	s.registry.Unregister(entity.ObjectID())
}

// appendTrails appends the current position of every flight to its trail,
// honoring the grounded/trail configuration, and returns the samples that
// were actually stored
func (s *Service) appendTrails(now time.Time) []WaypointRecord {
	var archived []WaypointRecord

	for _, f := range s.flights {
		if !s.cfg.TrailWhileGrounded && s.classifier.IsGrounded(f) {
			continue
		}

		wp := &Waypoint{
			Latitude:    f.Latitude,
			Longitude:   f.Longitude,
			Altitude:    f.Altitude,
			Groundspeed: f.Groundspeed,
			Timestamp:   now,
			Flight:      f,
		}
		if f.Trail.Append(wp) {
			archived = append(archived, WaypointRecord{
				ObjectID:    f.ID,
				Callsign:    f.Callsign,
				Latitude:    wp.Latitude,
				Longitude:   wp.Longitude,
				Altitude:    wp.Altitude,
				Groundspeed: wp.Groundspeed,
				Timestamp:   wp.Timestamp,
			})
		}
	}

	return archived
}

// AppendWaypoint records one position sample on a flight's trail, applying
// the grounded and dedup rules. Returns whether a waypoint was stored.
func (s *Service) AppendWaypoint(f *Flight, wp *Waypoint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cfg.TrailWhileGrounded && s.classifier.IsGrounded(f) {
		return false
	}
	return f.Trail.Append(wp)
}

// broadcastChanges streams per-flight diffs to WebSocket clients
func (s *Service) broadcastChanges() {
	changes := s.detector.DetectChanges(s.flights)
	if len(changes) == 0 {
		return
	}

	s.logger.Debug("Detected flight changes", logger.Int("change_count", len(changes)))

	for _, change := range changes {
		var messageType string
		switch change.Type {
		case "added":
			messageType = websocket.MessageTypeFlightAdded
		case "updated":
			messageType = websocket.MessageTypeFlightUpdate
		case "removed":
			messageType = websocket.MessageTypeFlightRemoved
		}

		data := map[string]any{
			"type":     change.Type,
			"callsign": change.Callsign,
		}
		if change.Flight != nil {
			data["flight"] = change.Flight
		}

		s.wsServer.Broadcast(&websocket.Message{Type: messageType, Data: data})
	}
}

// IsGrounded classifies a flight's operating state, caching the result for
// the remainder of the cycle
func (s *Service) IsGrounded(f *Flight) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.classifier.IsGrounded(f)
}

// Flights returns the currently tracked flights
func (s *Service) Flights() []*Flight {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Flight, len(s.flights))
	copy(out, s.flights)
	return out
}

// Airports returns the currently synthesized airports
func (s *Service) Airports() []*Airport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Airport, len(s.airports))
	copy(out, s.airports)
	return out
}

// ATCUnits returns the currently tracked control stations
func (s *Service) ATCUnits() []*ControlStation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*ControlStation, len(s.atcUnits))
	copy(out, s.atcUnits)
	return out
}

// FlightByCallsign looks up a flight under the shared normalization rule
func (s *Service) FlightByCallsign(callsign string) (*Flight, bool) {
	key := NormalizeCallsign(callsign)

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.flights {
		if f.NormalizedCallsign() == key {
			return f, true
		}
	}
	return nil, false
}

// FlightByExternalID looks up a flight by its network id
func (s *Service) FlightByExternalID(id int) (*Flight, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.flights {
		if f.ExternalID == id {
			return f, true
		}
	}
	return nil, false
}

// ByObjectID looks up any live tracked entity by its process-unique identity
func (s *Service) ByObjectID(id int64) (TrackedEntity, bool) {
	return s.registry.Lookup(id)
}

// AirportByCode looks up a synthesized airport by its identifier
func (s *Service) AirportByCode(code string) (*Airport, bool) {
	key := NormalizeCallsign(code)

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.airports {
		if a.NormalizedCallsign() == key {
			return a, true
		}
	}
	return nil, false
}

// FlightsWithin returns the flights currently inside a geographic window
func (s *Service) FlightsWithin(w geo.Window) []*Flight {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Flight, 0)
	for _, f := range s.flights {
		if w.Contains(f.Latitude, f.Longitude) {
			out = append(out, f)
		}
	}
	return out
}

// StationsWithin returns the control stations currently inside a geographic
// window
func (s *Service) StationsWithin(w geo.Window) []*ControlStation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*ControlStation, 0)
	for _, st := range s.atcUnits {
		if w.Contains(st.Latitude, st.Longitude) {
			out = append(out, st)
		}
	}
	return out
}

// Counts returns the sizes of the tracked collections
func (s *Service) Counts() (flights, airports, atcUnits int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.flights), len(s.airports), len(s.atcUnits)
}
