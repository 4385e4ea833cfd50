package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Create a temporary config file
	content := `
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  enabled: true
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
api:
  host: "0.0.0.0"
  port: 8080
security:
  session:
    ttl: 3600
hardware:
  gpio:
    enabled: true
    device_id: "test-relay"
    pins: [17, 18]
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

	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}

	if cfg.MQTT.Broker.Host != "localhost" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "localhost")
	}

	if cfg.Security.Session.TTL != 3600 {
		t.Errorf("Security.Session.TTL = %d, want 3600", cfg.Security.Session.TTL)
	}

	if cfg.Hardware.GPIO.DeviceID != "test-relay" {
		t.Errorf("Hardware.GPIO.DeviceID = %q, want %q", cfg.Hardware.GPIO.DeviceID, "test-relay")
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
	content := `
database:
  path: ""
api:
  port: 8080
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty database.path, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	// validOAuthSecret meets the 32-character minimum requirement
	validOAuthSecret := "test-secret-key-at-least-32-chars!"

	base := func() *Config {
		return &Config{
			Database: DatabaseConfig{Path: "/data/doorman.db"},
			MQTT:     MQTTConfig{QoS: 1},
			API:      APIConfig{Port: 8080},
			Security: SecurityConfig{Session: SessionConfig{TTL: 3600}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: true,
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name:    "invalid port low",
			mutate:  func(c *Config) { c.API.Port = 0 },
			wantErr: true,
		},
		{
			name:    "invalid port high",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "zero session TTL",
			mutate:  func(c *Config) { c.Security.Session.TTL = 0 },
			wantErr: true,
		},
		{
			name: "oauth enabled without secret",
			mutate: func(c *Config) {
				c.Security.OAuth.Issuer = "https://accounts.example.com"
			},
			wantErr: true,
		},
		{
			name: "oauth enabled with short secret",
			mutate: func(c *Config) {
				c.Security.OAuth.Issuer = "https://accounts.example.com"
				c.Security.OAuth.Secret = "short"
			},
			wantErr: true,
		},
		{
			name: "oauth enabled with valid secret",
			mutate: func(c *Config) {
				c.Security.OAuth.Issuer = "https://accounts.example.com"
				c.Security.OAuth.Secret = validOAuthSecret
			},
			wantErr: false,
		},
		{
			name: "gpio enabled without pins",
			mutate: func(c *Config) {
				c.Hardware.GPIO.Enabled = true
				c.Hardware.GPIO.Pins = nil
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
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

func TestConfig_SessionTTL(t *testing.T) {
	cfg := &Config{
		Security: SecurityConfig{Session: SessionConfig{TTL: 7200}},
	}
	if got := cfg.SessionTTL().Hours(); got != 2 {
		t.Errorf("SessionTTL() = %v hours, want 2", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	// Set environment variables
	t.Setenv("DOORMAN_DATABASE_PATH", "/custom/path.db")
	t.Setenv("DOORMAN_MQTT_HOST", "mqtt.example.com")
	t.Setenv("DOORMAN_MQTT_USERNAME", "testuser")
	t.Setenv("DOORMAN_MQTT_PASSWORD", "testpass")
	t.Setenv("DOORMAN_API_HOST", "192.168.1.1")
	t.Setenv("DOORMAN_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("DOORMAN_OAUTH_SECRET", "oauth-shared-secret")

	applyEnvOverrides(cfg)

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

	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}

	if cfg.Security.OAuth.Secret != "oauth-shared-secret" {
		t.Errorf("Security.OAuth.Secret = %q, want %q", cfg.Security.OAuth.Secret, "oauth-shared-secret")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Database.Path == "" {
		t.Error("defaultConfig should have non-empty Database.Path")
	}

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}

	if cfg.API.Port != 8080 {
		t.Errorf("defaultConfig API.Port = %d, want 8080", cfg.API.Port)
	}

	if cfg.Security.Session.TTL != defaultSessionTTL {
		t.Errorf("defaultConfig Security.Session.TTL = %d, want %d", cfg.Security.Session.TTL, defaultSessionTTL)
	}
}
