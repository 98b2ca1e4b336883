package config

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for syncbridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Syncthing SyncthingConfig `yaml:"syncthing"`
	Events    EventsConfig    `yaml:"events"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SyncthingConfig contains settings for the supervised syncthing process
// and its local REST API.
type SyncthingConfig struct {
	// Binary is the path to the syncthing executable.
	// Default: "/usr/bin/syncthing"
	Binary string `yaml:"binary"`

	// Address is the GUI/REST bind address passed to syncthing.
	// Format: "host:port" (e.g., "127.0.0.1:8384")
	Address string `yaml:"address"`

	// APIKey authenticates requests to syncthing's REST API. The same key
	// is handed to the process via -gui-apikey, so supervisor and API
	// client always agree.
	APIKey string `yaml:"api_key"`

	// HomeDir is syncthing's configuration directory. Empty means the
	// process uses its own default and no -home flag is passed.
	HomeDir string `yaml:"home_dir"`

	// Environment contains extra environment variables for the process.
	// Values here override inherited variables of the same name.
	Environment map[string]string `yaml:"environment"`

	// DenyUpgrade blocks syncthing's built-in auto-upgrade.
	// Default: true — upgrades are the operator's call, not the daemon's.
	DenyUpgrade bool `yaml:"deny_upgrade"`

	// LowPriority runs the process at below-normal scheduling priority.
	LowPriority bool `yaml:"low_priority"`

	// HideDeviceIDs redacts device IDs from republished log output.
	HideDeviceIDs bool `yaml:"hide_device_ids"`

	// MaxImmediateRestarts caps back-to-back implicit restarts before the
	// supervisor gives up. Default: 5
	MaxImmediateRestarts int `yaml:"max_immediate_restarts"`

	// StabilitySeconds is how long a run must survive before the restart
	// counter resets. Default: 60
	StabilitySeconds int `yaml:"stability_seconds"`
}

// EventsConfig contains event consumer settings.
type EventsConfig struct {
	Enabled bool `yaml:"enabled"`

	// BatchLimit is the maximum events requested per long-poll. 0 lets
	// syncthing choose.
	BatchLimit int `yaml:"batch_limit"`

	// ConsumerID names the cursor row in the database, so multiple
	// bridge instances can share one store.
	ConsumerID string `yaml:"consumer_id"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains the local HTTP status API settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	APIKey   string           `yaml:"api_key"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebSocketConfig contains WebSocket log-stream settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings for the
// connection-stats recorder.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`

	// SampleInterval is how often connection stats are sampled, in seconds.
	// Default: 30
	SampleInterval int `yaml:"sample_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings.
// Sizes are megabytes, ages are days.
type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: SYNCBRIDGE_SECTION_KEY
// For example: SYNCBRIDGE_DATABASE_PATH, SYNCBRIDGE_SYNCTHING_API_KEY
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Syncthing: SyncthingConfig{
			Binary:               "/usr/bin/syncthing",
			Address:              "127.0.0.1:8384",
			DenyUpgrade:          true,
			MaxImmediateRestarts: 5,
			StabilitySeconds:     60,
		},
		Events: EventsConfig{
			Enabled:    true,
			ConsumerID: "syncbridge",
		},
		Database: DatabaseConfig{
			Path:        "./data/syncbridge.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "syncbridge",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8480,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			SampleInterval: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: SYNCBRIDGE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Syncthing
	if v := os.Getenv("SYNCBRIDGE_SYNCTHING_BINARY"); v != "" {
		cfg.Syncthing.Binary = v
	}
	if v := os.Getenv("SYNCBRIDGE_SYNCTHING_ADDRESS"); v != "" {
		cfg.Syncthing.Address = v
	}
	if v := os.Getenv("SYNCBRIDGE_SYNCTHING_API_KEY"); v != "" {
		cfg.Syncthing.APIKey = v
	}
	if v := os.Getenv("SYNCBRIDGE_SYNCTHING_HOME"); v != "" {
		cfg.Syncthing.HomeDir = v
	}

	// Database
	if v := os.Getenv("SYNCBRIDGE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("SYNCBRIDGE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("SYNCBRIDGE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("SYNCBRIDGE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("SYNCBRIDGE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("SYNCBRIDGE_API_KEY"); v != "" {
		cfg.API.APIKey = v
	}

	// InfluxDB
	if v := os.Getenv("SYNCBRIDGE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Syncthing validation. The binary path only needs to be non-empty
	// here; whether it exists is checked at process start, so a config
	// written before syncthing is installed still loads.
	if c.Syncthing.Binary == "" {
		errs = append(errs, "syncthing.binary is required")
	}
	if c.Syncthing.Address == "" {
		errs = append(errs, "syncthing.address is required")
	} else if _, _, err := net.SplitHostPort(c.Syncthing.Address); err != nil {
		errs = append(errs, fmt.Sprintf("syncthing.address %q is not a valid host:port", c.Syncthing.Address))
	}
	if c.Syncthing.APIKey == "" {
		errs = append(errs, "syncthing.api_key is required (set SYNCBRIDGE_SYNCTHING_API_KEY environment variable)")
	}
	if c.Syncthing.MaxImmediateRestarts < 0 {
		errs = append(errs, "syncthing.max_immediate_restarts must not be negative")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	const minAPIKeyLength = 16
	if c.API.APIKey == "" {
		errs = append(errs, "api.api_key is required (set SYNCBRIDGE_API_KEY environment variable)")
	} else if len(c.API.APIKey) < minAPIKeyLength {
		errs = append(errs, "api.api_key must be at least 16 characters")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// StabilityWindow returns the supervisor stability window as a Duration.
func (c *SyncthingConfig) StabilityWindow() time.Duration {
	return time.Duration(c.StabilitySeconds) * time.Second
}
