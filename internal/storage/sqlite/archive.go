package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/vatwatch/vatwatch/internal/tracker"
	"github.com/vatwatch/vatwatch/pkg/logger"
	_ "modernc.org/sqlite"
)

// ArchiveStorage is a SQLite-based archive for poll cycles and trail waypoints
type ArchiveStorage struct {
	db                *sql.DB
	logger            *logger.Logger
	maxWaypointsInAPI int
}

// NewArchiveStorage creates a new SQLite-based archive storage
func NewArchiveStorage(dbPath string, maxWaypointsInAPI int, log *logger.Logger) (*ArchiveStorage, error) {
	storageLogger := log.Named("sqlite")

	storageLogger.Info("Initializing SQLite storage",
		logger.String("path", dbPath))

	// Open the database
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool limits
	db.SetMaxOpenConns(1) // SQLite only supports one writer at a time
	db.SetMaxIdleConns(1)

	// Set pragmas for better performance and concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA cache_size=10000"); err != nil {
		return nil, fmt.Errorf("failed to set cache size: %w", err)
	}

	// Create tables if they don't exist
	if err := initDatabase(db, storageLogger); err != nil {
		db.Close()
		return nil, err
	}

	storage := &ArchiveStorage{
		db:                db,
		logger:            storageLogger,
		maxWaypointsInAPI: maxWaypointsInAPI,
	}

	return storage, nil
}

// Close closes the database connection
func (s *ArchiveStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// GetDB returns the database connection
func (s *ArchiveStorage) GetDB() *sql.DB {
	return s.db
}

// initDatabase initializes the database schema
func initDatabase(db *sql.DB, log *logger.Logger) error {
	log.Info("Initializing database schema")

	// One row per poll cycle, successful or not
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS poll_cycles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			status TEXT NOT NULL,
			feed_update TIMESTAMP,
			flights INTEGER DEFAULT 0,
			stations INTEGER DEFAULT 0,
			airports INTEGER DEFAULT 0,
			connected_clients INTEGER DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create poll_cycles table: %w", err)
	}

	// Trail samples that survived deduplication
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS waypoints (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			object_id INTEGER NOT NULL,
			callsign TEXT NOT NULL,
			lat REAL,
			lon REAL,
			altitude REAL,
			gs REAL,
			timestamp TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create waypoints table: %w", err)
	}

	// Create indexes for common query patterns
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_waypoints_callsign ON waypoints(callsign)`)
	if err != nil {
		return fmt.Errorf("failed to create waypoints callsign index: %w", err)
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_waypoints_timestamp ON waypoints(timestamp)`)
	if err != nil {
		return fmt.Errorf("failed to create waypoints timestamp index: %w", err)
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_poll_cycles_created_at ON poll_cycles(created_at)`)
	if err != nil {
		return fmt.Errorf("failed to create poll_cycles created_at index: %w", err)
	}

	log.Info("Database schema initialized successfully")
	return nil
}

// InsertCycle records the outcome of one poll cycle
func (s *ArchiveStorage) InsertCycle(rec tracker.CycleRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO poll_cycles (status, feed_update, flights, stations, airports, connected_clients, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.Status, rec.FeedUpdate, rec.Flights, rec.Stations, rec.Airports, rec.ConnectedClients, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert poll cycle: %w", err)
	}
	return nil
}

// InsertWaypoints stores a batch of trail samples in one transaction
func (s *ArchiveStorage) InsertWaypoints(recs []tracker.WaypointRecord) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO waypoints (object_id, callsign, lat, lon, altitude, gs, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare waypoint insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range recs {
		if _, err := stmt.Exec(rec.ObjectID, rec.Callsign, rec.Latitude, rec.Longitude, rec.Altitude, rec.Groundspeed, rec.Timestamp); err != nil {
			return fmt.Errorf("failed to insert waypoint for %s: %w", rec.Callsign, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit waypoint batch: %w", err)
	}

	return nil
}

// WaypointsByCallsign returns the most recent archived samples for a callsign,
// newest first
func (s *ArchiveStorage) WaypointsByCallsign(callsign string, limit int) ([]tracker.WaypointRecord, error) {
	if limit <= 0 || limit > s.maxWaypointsInAPI {
		limit = s.maxWaypointsInAPI
	}

	rows, err := s.db.Query(`
		SELECT object_id, callsign, lat, lon, altitude, gs, timestamp
		FROM waypoints
		WHERE callsign = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`, callsign, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query waypoints: %w", err)
	}
	defer rows.Close()

	var recs []tracker.WaypointRecord
	for rows.Next() {
		var rec tracker.WaypointRecord
		if err := rows.Scan(&rec.ObjectID, &rec.Callsign, &rec.Latitude, &rec.Longitude, &rec.Altitude, &rec.Groundspeed, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan waypoint: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate waypoints: %w", err)
	}

	return recs, nil
}

// RecentCycles returns the most recent poll cycle rows, newest first
func (s *ArchiveStorage) RecentCycles(limit int) ([]tracker.CycleRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`
		SELECT status, feed_update, flights, stations, airports, connected_clients, created_at
		FROM poll_cycles
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query poll cycles: %w", err)
	}
	defer rows.Close()

	var recs []tracker.CycleRecord
	for rows.Next() {
		var rec tracker.CycleRecord
		if err := rows.Scan(&rec.Status, &rec.FeedUpdate, &rec.Flights, &rec.Stations, &rec.Airports, &rec.ConnectedClients, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan poll cycle: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate poll cycles: %w", err)
	}

	return recs, nil
}

// DeleteOlderThan removes archived rows older than the given cutoff and
// returns how many waypoints were deleted
func (s *ArchiveStorage) DeleteOlderThan(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM waypoints WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old waypoints: %w", err)
	}
	deleted, _ := res.RowsAffected()

	if _, err := s.db.Exec(`DELETE FROM poll_cycles WHERE created_at < ?`, cutoff); err != nil {
		return deleted, fmt.Errorf("failed to delete old poll cycles: %w", err)
	}

	return deleted, nil
}
