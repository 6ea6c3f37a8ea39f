package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server  ServerConfig  `toml:"server"`  // HTTP server settings
	Feed    FeedConfig    `toml:"feed"`    // Network data feed settings
	Tracker TrackerConfig `toml:"tracker"` // Entity tracking and trail settings
	Storage StorageConfig `toml:"storage"` // Data persistence settings
	Logging LoggingConfig `toml:"logging"` // Application logging settings
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port               int      `toml:"port"`                  // Primary HTTP port for the server
	Host               string   `toml:"host"`                  // Host address to bind to (e.g., 127.0.0.1 for localhost only, 0.0.0.0 for all interfaces)
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`  // List of origins allowed for CORS requests (use ["*"] for all origins)
	ReadTimeoutSecs    int      `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request (0 = no timeout)
	WriteTimeoutSecs   int      `toml:"write_timeout_seconds"` // Maximum duration for writing the response (0 = no timeout)
	IdleTimeoutSecs    int      `toml:"idle_timeout_seconds"`  // Maximum duration to wait for the next request when keep-alives are enabled
}

// FeedConfig contains network data feed configuration
type FeedConfig struct {
	URL                  string `toml:"url"`                     // URL of the whazzup-style status feed
	FetchIntervalSecs    int    `toml:"fetch_interval_seconds"`  // How often to poll the feed (in seconds)
	RequestTimeoutSecs   int    `toml:"request_timeout_seconds"` // HTTP timeout for feed requests in seconds
	UpdateHistoryMax     int    `toml:"update_history_max"`      // Maximum number of feed update timestamps to remember for staleness detection
	WebSocketFeedUpdates bool   `toml:"websocket_feed_updates"`  // Enable WebSocket streaming of reconciliation changes
}

// TrackerConfig contains entity tracking, trail, and grounded-detection settings
type TrackerConfig struct {
	TrailMaxLength            int     `toml:"trail_max_length"`             // Maximum waypoints kept per flight (oldest dropped beyond this)
	TrailWhileGrounded        bool    `toml:"trail_while_grounded"`         // Record trail waypoints while the flight is on the ground
	TrailPrecisionDecimals    int     `toml:"trail_precision_decimals"`     // Decimal places used when deduplicating consecutive waypoints
	GroundedSpeedThresholdKts float64 `toml:"grounded_speed_threshold_kts"` // Ground speed at or below which a flight counts as grounded
	GroundedHeightAGLFt       float64 `toml:"grounded_height_agl_ft"`       // Height above ground at or below which a flight counts as grounded
	AirportVicinityNM         float64 `toml:"airport_vicinity_nm"`          // Radius of the vicinity window around synthesized airports
}

// StorageConfig contains data persistence configuration
type StorageConfig struct {
	Type              string `toml:"type"`                 // Storage backend type (currently only "sqlite" is supported)
	SQLiteBasePath    string `toml:"sqlite_base_path"`     // Base path for SQLite database files (actual filename is generated per day)
	RetentionHours    int    `toml:"retention_hours"`      // Hours of archived waypoint/cycle data to keep
	CleanupSchedule   string `toml:"cleanup_schedule"`     // Cron spec for the retention sweep (e.g., "@every 1h")
	MaxTrailPointsAPI int    `toml:"max_trail_points_api"` // Maximum number of trail points to return in API responses
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
}

// Load loads the configuration from the given TOML file
func Load(path string) (*Config, error) {
	var config Config

	// Check if the file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	// Read the config file
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.applyEnvOverrides()

	return &config, nil
}

// LoadWithFallback loads the configuration by checking multiple locations in order of preference
func LoadWithFallback(preferredPath string) (*Config, error) {
	// Load .env first so environment overrides apply regardless of config location
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}

	// List of paths to check in order of preference
	searchPaths := []string{
		preferredPath,         // User-specified path (if provided)
		"configs/config.toml", // Legacy location in configs/ folder
		"config.toml",         // Root directory
	}

	// Remove duplicates while preserving order
	uniquePaths := make([]string, 0, len(searchPaths))
	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path != "" && !seen[path] {
			uniquePaths = append(uniquePaths, path)
			seen[path] = true
		}
	}

	var lastErr error
	for _, path := range uniquePaths {
		if _, err := os.Stat(path); err == nil {
			config, err := Load(path)
			if err != nil {
				lastErr = fmt.Errorf("failed to load config from %s: %w", path, err)
				continue
			}
			return config, nil
		}
		lastErr = fmt.Errorf("config file not found: %s", path)
	}

	return nil, fmt.Errorf("config file not found in any of the expected locations: %v. Last error: %w", uniquePaths, lastErr)
}

// applyEnvOverrides lets deployment environments override selected settings
// without editing the config file
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("VATWATCH_FEED_URL"); v != "" {
		c.Feed.URL = v
	}
	if v := os.Getenv("VATWATCH_HTTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("VATWATCH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("VATWATCH_SQLITE_BASE_PATH"); v != "" {
		c.Storage.SQLiteBasePath = v
	}
}

// Validate validates the configuration and applies defaults for unset values
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateFeed(); err != nil {
		return err
	}
	if err := c.validateTracker(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if len(c.Server.CORSAllowedOrigins) == 0 {
		c.Server.CORSAllowedOrigins = []string{"*"}
	}
	return nil
}

func (c *Config) validateFeed() error {
	if c.Feed.URL == "" {
		return fmt.Errorf("feed url is required")
	}
	if c.Feed.FetchIntervalSecs == 0 {
		c.Feed.FetchIntervalSecs = 60
	}
	if c.Feed.FetchIntervalSecs < 1 {
		return fmt.Errorf("fetch_interval_seconds must be positive: %d", c.Feed.FetchIntervalSecs)
	}
	if c.Feed.RequestTimeoutSecs == 0 {
		c.Feed.RequestTimeoutSecs = 30
	}
	if c.Feed.UpdateHistoryMax == 0 {
		c.Feed.UpdateHistoryMax = 32
	}
	return nil
}

func (c *Config) validateTracker() error {
	if c.Tracker.TrailMaxLength == 0 {
		c.Tracker.TrailMaxLength = 120
	}
	if c.Tracker.TrailMaxLength < 1 {
		return fmt.Errorf("trail_max_length must be positive: %d", c.Tracker.TrailMaxLength)
	}
	if c.Tracker.TrailPrecisionDecimals == 0 {
		c.Tracker.TrailPrecisionDecimals = 4
	}
	if c.Tracker.GroundedSpeedThresholdKts == 0 {
		c.Tracker.GroundedSpeedThresholdKts = 30
	}
	if c.Tracker.GroundedSpeedThresholdKts < 1 {
		return fmt.Errorf("grounded_speed_threshold_kts must be at least 1: %f", c.Tracker.GroundedSpeedThresholdKts)
	}
	if c.Tracker.GroundedHeightAGLFt == 0 {
		c.Tracker.GroundedHeightAGLFt = 100
	}
	if c.Tracker.AirportVicinityNM == 0 {
		c.Tracker.AirportVicinityNM = 5.0
	}
	return nil
}

func (c *Config) validateStorage() error {
	if c.Storage.Type == "" {
		c.Storage.Type = "sqlite"
	}
	if c.Storage.Type != "sqlite" {
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}
	if c.Storage.SQLiteBasePath == "" {
		c.Storage.SQLiteBasePath = "data"
	}
	if c.Storage.RetentionHours == 0 {
		c.Storage.RetentionHours = 48
	}
	if c.Storage.CleanupSchedule == "" {
		c.Storage.CleanupSchedule = "@every 1h"
	}
	if c.Storage.MaxTrailPointsAPI == 0 {
		c.Storage.MaxTrailPointsAPI = 500
	}
	return nil
}

func (c *Config) validateLogging() error {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	return nil
}
