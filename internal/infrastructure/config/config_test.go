package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Create a temporary config file
	content := `
node:
  name: "kitchen-node"
  channel: 6
  send_repeat: 2
transport:
  mode: "standalone"
  base_port: 47200
rules:
  - pattern: "sensors/+/temperature"
    actions:
      - type: log
bridge:
  enabled: true
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
  topic_prefix: "espnow"
api:
  host: "0.0.0.0"
  port: 8080
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

	if cfg.Node.Name != "kitchen-node" {
		t.Errorf("Node.Name = %q, want %q", cfg.Node.Name, "kitchen-node")
	}

	if cfg.Node.Channel != 6 {
		t.Errorf("Node.Channel = %d, want 6", cfg.Node.Channel)
	}

	if cfg.Node.SendRepeat != 2 {
		t.Errorf("Node.SendRepeat = %d, want 2", cfg.Node.SendRepeat)
	}

	if cfg.Transport.BasePort != 47200 {
		t.Errorf("Transport.BasePort = %d, want 47200", cfg.Transport.BasePort)
	}

	if len(cfg.Rules) != 1 || cfg.Rules[0].Pattern != "sensors/+/temperature" {
		t.Errorf("Rules = %+v, want one rule with pattern sensors/+/temperature", cfg.Rules)
	}

	if cfg.Bridge.Broker.Host != "localhost" {
		t.Errorf("Bridge.Broker.Host = %q, want %q", cfg.Bridge.Broker.Host, "localhost")
	}
}

func TestLoad_PublisherIntervals(t *testing.T) {
	content := `
node:
  name: "pub-node"
publishers:
  - interval: "30s"
    topic: "heartbeat"
    payload: "alive"
  - interval: "5m"
    topic: "report"
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

	if len(cfg.Publishers) != 2 {
		t.Fatalf("got %d publishers, want 2", len(cfg.Publishers))
	}
	if cfg.Publishers[0].Interval != 30*time.Second {
		t.Errorf("Publishers[0].Interval = %v, want 30s", cfg.Publishers[0].Interval)
	}
	if cfg.Publishers[1].Interval != 5*time.Minute {
		t.Errorf("Publishers[1].Interval = %v, want 5m", cfg.Publishers[1].Interval)
	}

	// A malformed duration is a load error, not a silent zero.
	bad := `
node:
  name: "pub-node"
publishers:
  - interval: "soon"
    topic: "heartbeat"
`
	if err := os.WriteFile(configPath, []byte(bad), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	if _, err := Load(configPath); err == nil {
		t.Error("Load() expected error for malformed interval, got nil")
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
node:
  name: "bad-node"
  channel: 15
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for out-of-range channel, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	// valid returns a minimal passing config that each case then breaks
	valid := func() *Config {
		cfg := defaultConfig()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid defaults",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "missing node name",
			mutate:  func(c *Config) { c.Node.Name = "" },
			wantErr: true,
		},
		{
			name:    "channel too low",
			mutate:  func(c *Config) { c.Node.Channel = 0 },
			wantErr: true,
		},
		{
			name:    "channel too high",
			mutate:  func(c *Config) { c.Node.Channel = 15 },
			wantErr: true,
		},
		{
			name:    "send repeat zero",
			mutate:  func(c *Config) { c.Node.SendRepeat = 0 },
			wantErr: true,
		},
		{
			name:    "unknown transport mode",
			mutate:  func(c *Config) { c.Transport.Mode = "adhoc" },
			wantErr: true,
		},
		{
			name:    "managed channel out of range",
			mutate:  func(c *Config) { c.Transport.ManagedChannel = 99 },
			wantErr: true,
		},
		{
			name:    "base port below range",
			mutate:  func(c *Config) { c.Transport.BasePort = 80 },
			wantErr: true,
		},
		{
			name: "rule without pattern",
			mutate: func(c *Config) {
				c.Rules = []RuleConfig{{Actions: []ActionConfig{{Type: "log"}}}}
			},
			wantErr: true,
		},
		{
			name: "rule without actions",
			mutate: func(c *Config) {
				c.Rules = []RuleConfig{{Pattern: "a/b"}}
			},
			wantErr: true,
		},
		{
			name: "unknown action type",
			mutate: func(c *Config) {
				c.Rules = []RuleConfig{{Pattern: "a/b", Actions: []ActionConfig{{Type: "email"}}}}
			},
			wantErr: true,
		},
		{
			name: "publish action without topic",
			mutate: func(c *Config) {
				c.Rules = []RuleConfig{{Pattern: "a/b", Actions: []ActionConfig{{Type: "publish"}}}}
			},
			wantErr: true,
		},
		{
			name: "publisher without interval",
			mutate: func(c *Config) {
				c.Publishers = []PublisherConfig{{Topic: "heartbeat"}}
			},
			wantErr: true,
		},
		{
			name: "publisher without topic",
			mutate: func(c *Config) {
				c.Publishers = []PublisherConfig{{Interval: 30 * time.Second}}
			},
			wantErr: true,
		},
		{
			name: "bridge enabled without host",
			mutate: func(c *Config) {
				c.Bridge.Enabled = true
				c.Bridge.Broker.Host = ""
			},
			wantErr: true,
		},
		{
			name: "bridge invalid qos",
			mutate: func(c *Config) {
				c.Bridge.Enabled = true
				c.Bridge.QoS = 3
			},
			wantErr: true,
		},
		{
			name: "influxdb enabled without url",
			mutate: func(c *Config) {
				c.InfluxDB.Enabled = true
				c.InfluxDB.Bucket = "espnow"
			},
			wantErr: true,
		},
		{
			name: "journal enabled without path",
			mutate: func(c *Config) {
				c.Journal.Enabled = true
				c.Journal.Path = ""
			},
			wantErr: true,
		},
		{
			name: "api enabled with bad port",
			mutate: func(c *Config) {
				c.API.Enabled = true
				c.API.Port = 0
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_EffectiveManagedChannel(t *testing.T) {
	cfg := defaultConfig()
	cfg.Node.Channel = 6

	if got := cfg.EffectiveManagedChannel(); got != 6 {
		t.Errorf("EffectiveManagedChannel() = %d, want node channel 6", got)
	}

	cfg.Transport.ManagedChannel = 11
	if got := cfg.EffectiveManagedChannel(); got != 11 {
		t.Errorf("EffectiveManagedChannel() = %d, want 11", got)
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

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	// Set environment variables
	t.Setenv("ESPNOW_NODE_NAME", "env-node")
	t.Setenv("ESPNOW_NODE_CHANNEL", "9")
	t.Setenv("ESPNOW_TRANSPORT_BIND_HOST", "192.168.1.1")
	t.Setenv("ESPNOW_TRANSPORT_BASE_PORT", "48000")
	t.Setenv("ESPNOW_BRIDGE_HOST", "mqtt.example.com")
	t.Setenv("ESPNOW_BRIDGE_USERNAME", "testuser")
	t.Setenv("ESPNOW_BRIDGE_PASSWORD", "testpass")
	t.Setenv("ESPNOW_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("ESPNOW_JOURNAL_PATH", "/custom/journal.db")

	applyEnvOverrides(cfg)

	if cfg.Node.Name != "env-node" {
		t.Errorf("Node.Name = %q, want %q", cfg.Node.Name, "env-node")
	}

	if cfg.Node.Channel != 9 {
		t.Errorf("Node.Channel = %d, want 9", cfg.Node.Channel)
	}

	if cfg.Transport.BindHost != "192.168.1.1" {
		t.Errorf("Transport.BindHost = %q, want %q", cfg.Transport.BindHost, "192.168.1.1")
	}

	if cfg.Transport.BasePort != 48000 {
		t.Errorf("Transport.BasePort = %d, want 48000", cfg.Transport.BasePort)
	}

	if cfg.Bridge.Broker.Host != "mqtt.example.com" {
		t.Errorf("Bridge.Broker.Host = %q, want %q", cfg.Bridge.Broker.Host, "mqtt.example.com")
	}

	if cfg.Bridge.Auth.Username != "testuser" {
		t.Errorf("Bridge.Auth.Username = %q, want %q", cfg.Bridge.Auth.Username, "testuser")
	}

	if cfg.Bridge.Auth.Password != "testpass" {
		t.Errorf("Bridge.Auth.Password = %q, want %q", cfg.Bridge.Auth.Password, "testpass")
	}

	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}

	if cfg.Journal.Path != "/custom/journal.db" {
		t.Errorf("Journal.Path = %q, want %q", cfg.Journal.Path, "/custom/journal.db")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Node.Name == "" {
		t.Error("defaultConfig should have non-empty Node.Name")
	}

	if cfg.Node.Channel < 1 || cfg.Node.Channel > 14 {
		t.Errorf("defaultConfig Node.Channel = %d, want 1-14", cfg.Node.Channel)
	}

	if cfg.Transport.Mode != "standalone" {
		t.Errorf("defaultConfig Transport.Mode = %q, want %q", cfg.Transport.Mode, "standalone")
	}

	if cfg.Bridge.Broker.Port != 1883 {
		t.Errorf("defaultConfig Bridge.Broker.Port = %d, want 1883", cfg.Bridge.Broker.Port)
	}

	if cfg.API.Port != 8080 {
		t.Errorf("defaultConfig API.Port = %d, want 8080", cfg.API.Port)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaultConfig should validate, got %v", err)
	}
}
