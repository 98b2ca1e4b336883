package config

import (
	"os"
	"path/filepath"
	"testing"
)

// validKeys returns a config with the required secrets filled in so
// individual tests can break one field at a time.
func validTestConfig() *Config {
	cfg := defaultConfig()
	cfg.Syncthing.APIKey = "syncthing-key-0123456789"
	cfg.API.APIKey = "api-key-0123456789abcdef"
	return cfg
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
syncthing:
  binary: "/usr/local/bin/syncthing"
  address: "127.0.0.1:8384"
  api_key: "syncthing-key-0123456789"
  hide_device_ids: true
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
api:
  host: "127.0.0.1"
  port: 8480
  api_key: "api-key-0123456789abcdef"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Syncthing.Binary != "/usr/local/bin/syncthing" {
		t.Errorf("Syncthing.Binary = %q, want %q", cfg.Syncthing.Binary, "/usr/local/bin/syncthing")
	}

	if !cfg.Syncthing.HideDeviceIDs {
		t.Error("Syncthing.HideDeviceIDs = false, want true")
	}

	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}

	if cfg.MQTT.Broker.Host != "localhost" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "localhost")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	// Missing syncthing.api_key and api.api_key
	content := `
syncthing:
  address: "127.0.0.1:8384"
database:
  path: "/tmp/test.db"
api:
  port: 8480
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for missing api keys, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(_ *Config) {},
			wantErr: false,
		},
		{
			name:    "missing syncthing binary",
			mutate:  func(cfg *Config) { cfg.Syncthing.Binary = "" },
			wantErr: true,
		},
		{
			name:    "missing syncthing address",
			mutate:  func(cfg *Config) { cfg.Syncthing.Address = "" },
			wantErr: true,
		},
		{
			name:    "malformed syncthing address",
			mutate:  func(cfg *Config) { cfg.Syncthing.Address = "not-a-hostport" },
			wantErr: true,
		},
		{
			name:    "missing syncthing api key",
			mutate:  func(cfg *Config) { cfg.Syncthing.APIKey = "" },
			wantErr: true,
		},
		{
			name:    "negative restart cap",
			mutate:  func(cfg *Config) { cfg.Syncthing.MaxImmediateRestarts = -1 },
			wantErr: true,
		},
		{
			name:    "missing database path",
			mutate:  func(cfg *Config) { cfg.Database.Path = "" },
			wantErr: true,
		},
		{
			name:    "invalid QoS",
			mutate:  func(cfg *Config) { cfg.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name:    "invalid port low",
			mutate:  func(cfg *Config) { cfg.API.Port = 0 },
			wantErr: true,
		},
		{
			name:    "invalid port high",
			mutate:  func(cfg *Config) { cfg.API.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "missing api key",
			mutate:  func(cfg *Config) { cfg.API.APIKey = "" },
			wantErr: true,
		},
		{
			name:    "api key too short",
			mutate:  func(cfg *Config) { cfg.API.APIKey = "short" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}

	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}

	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
}

func TestSyncthingConfig_StabilityWindow(t *testing.T) {
	cfg := SyncthingConfig{StabilitySeconds: 90}
	if got := cfg.StabilityWindow().Seconds(); got != 90 {
		t.Errorf("StabilityWindow() = %v, want 90", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("SYNCBRIDGE_SYNCTHING_BINARY", "/opt/syncthing/syncthing")
	t.Setenv("SYNCBRIDGE_SYNCTHING_ADDRESS", "127.0.0.1:9384")
	t.Setenv("SYNCBRIDGE_SYNCTHING_API_KEY", "env-syncthing-key")
	t.Setenv("SYNCBRIDGE_SYNCTHING_HOME", "/var/lib/syncthing")
	t.Setenv("SYNCBRIDGE_DATABASE_PATH", "/custom/path.db")
	t.Setenv("SYNCBRIDGE_MQTT_HOST", "mqtt.example.com")
	t.Setenv("SYNCBRIDGE_MQTT_USERNAME", "testuser")
	t.Setenv("SYNCBRIDGE_MQTT_PASSWORD", "testpass")
	t.Setenv("SYNCBRIDGE_API_HOST", "192.168.1.1")
	t.Setenv("SYNCBRIDGE_API_KEY", "env-api-key-0123456789")
	t.Setenv("SYNCBRIDGE_INFLUXDB_TOKEN", "secret-token")

	applyEnvOverrides(cfg)

	if cfg.Syncthing.Binary != "/opt/syncthing/syncthing" {
		t.Errorf("Syncthing.Binary = %q, want %q", cfg.Syncthing.Binary, "/opt/syncthing/syncthing")
	}

	if cfg.Syncthing.Address != "127.0.0.1:9384" {
		t.Errorf("Syncthing.Address = %q, want %q", cfg.Syncthing.Address, "127.0.0.1:9384")
	}

	if cfg.Syncthing.APIKey != "env-syncthing-key" {
		t.Errorf("Syncthing.APIKey = %q, want %q", cfg.Syncthing.APIKey, "env-syncthing-key")
	}

	if cfg.Syncthing.HomeDir != "/var/lib/syncthing" {
		t.Errorf("Syncthing.HomeDir = %q, want %q", cfg.Syncthing.HomeDir, "/var/lib/syncthing")
	}

	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}

	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}

	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}

	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}

	if cfg.API.Host != "192.168.1.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "192.168.1.1")
	}

	if cfg.API.APIKey != "env-api-key-0123456789" {
		t.Errorf("API.APIKey = %q, want %q", cfg.API.APIKey, "env-api-key-0123456789")
	}

	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Syncthing.Binary == "" {
		t.Error("defaultConfig should have non-empty Syncthing.Binary")
	}

	if !cfg.Syncthing.DenyUpgrade {
		t.Error("defaultConfig should deny syncthing auto-upgrade")
	}

	if cfg.Syncthing.MaxImmediateRestarts != 5 {
		t.Errorf("defaultConfig Syncthing.MaxImmediateRestarts = %d, want 5", cfg.Syncthing.MaxImmediateRestarts)
	}

	if cfg.Database.Path == "" {
		t.Error("defaultConfig should have non-empty Database.Path")
	}

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}

	if cfg.API.Port != 8480 {
		t.Errorf("defaultConfig API.Port = %d, want 8480", cfg.API.Port)
	}

	if cfg.Events.ConsumerID == "" {
		t.Error("defaultConfig should have non-empty Events.ConsumerID")
	}
}
