package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the ESP-NOW pub/sub node.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Node       NodeConfig        `yaml:"node"`
	Transport  TransportConfig   `yaml:"transport"`
	Rules      []RuleConfig      `yaml:"rules"`
	Publishers []PublisherConfig `yaml:"publishers"`
	Bridge     BridgeConfig      `yaml:"bridge"`
	InfluxDB   InfluxDBConfig    `yaml:"influxdb"`
	Journal    JournalConfig     `yaml:"journal"`
	API        APIConfig         `yaml:"api"`
	Logging    LoggingConfig     `yaml:"logging"`
}

// NodeConfig identifies this node and its broadcast parameters.
type NodeConfig struct {
	// Name identifies the node in logs, diagnostics and bridge topics.
	Name string `yaml:"name"`

	// Channel is the broadcast channel all peers must share, 1 to 14.
	Channel int `yaml:"channel"`

	// SendRepeat is the broadcast repeat count, recorded for diagnostics.
	SendRepeat int `yaml:"send_repeat"`
}

// TransportConfig contains broadcast medium settings.
type TransportConfig struct {
	// Mode is "standalone" (this node owns the channel) or "managed" (an
	// external stack owns it).
	Mode string `yaml:"mode"`

	// ManagedChannel is the channel the external stack reports in managed
	// mode. Zero means it mirrors node.channel.
	ManagedChannel int `yaml:"managed_channel"`

	// BindHost is the local address the receive socket binds to. Empty
	// means all interfaces.
	BindHost string `yaml:"bind_host"`

	// BasePort is the UDP port for channel 0; channel n uses base_port+n.
	// Zero selects the built-in default.
	BasePort int `yaml:"base_port"`

	// BroadcastAddr is the IPv4 broadcast destination. Empty means the
	// limited broadcast address.
	BroadcastAddr string `yaml:"broadcast_addr"`
}

// RuleConfig binds a subscription pattern to a list of actions.
type RuleConfig struct {
	Pattern string         `yaml:"pattern"`
	Actions []ActionConfig `yaml:"actions"`
}

// ActionConfig describes one action taken when a rule's pattern matches.
type ActionConfig struct {
	// Type is "log", "publish" or "bridge".
	Type string `yaml:"type"`

	// Topic is the destination topic for publish and bridge actions.
	// Empty means the incoming message's topic.
	Topic string `yaml:"topic"`

	// Payload is the payload template for publish actions. Supports the
	// placeholders ${topic}, ${payload} and ${now}. Empty means the
	// incoming message's payload.
	Payload string `yaml:"payload"`
}

// PublisherConfig describes one periodic publisher.
type PublisherConfig struct {
	// Interval between publications, e.g. "30s".
	Interval time.Duration `yaml:"interval"`

	Topic string `yaml:"topic"`

	// Payload template, same placeholders as actions.
	Payload string `yaml:"payload"`
}

// UnmarshalYAML accepts Go duration strings ("30s", "5m") for interval;
// yaml.v3 has no native duration decoding.
func (p *PublisherConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Interval string `yaml:"interval"`
		Topic    string `yaml:"topic"`
		Payload  string `yaml:"payload"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.Interval != "" {
		d, err := time.ParseDuration(raw.Interval)
		if err != nil {
			return fmt.Errorf("parsing publisher interval %q: %w", raw.Interval, err)
		}
		p.Interval = d
	}
	p.Topic = raw.Topic
	p.Payload = raw.Payload
	return nil
}

// BridgeConfig contains MQTT uplink bridge settings.
type BridgeConfig struct {
	Enabled   bool                  `yaml:"enabled"`
	Broker    BridgeBrokerConfig    `yaml:"broker"`
	Auth      BridgeAuthConfig      `yaml:"auth"`
	QoS       int                   `yaml:"qos"`
	Reconnect BridgeReconnectConfig `yaml:"reconnect"`

	// TopicPrefix roots the bridge's MQTT topic tree.
	TopicPrefix string `yaml:"topic_prefix"`
}

// BridgeBrokerConfig contains MQTT broker connection details.
type BridgeBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// BridgeAuthConfig contains MQTT authentication credentials.
type BridgeAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// BridgeReconnectConfig contains MQTT reconnection settings, in seconds.
type BridgeReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// JournalConfig contains the local status journal settings.
type JournalConfig struct {
	Enabled bool `yaml:"enabled"`

	// Path to the SQLite journal file. ":memory:" keeps it in memory.
	Path string `yaml:"path"`

	// Retention limits how many entries Recent returns and how far back
	// pruning keeps entries, in days. Zero disables pruning.
	RetentionDays int `yaml:"retention_days"`
}

// APIConfig contains diagnostics HTTP API settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings, in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: ESPNOW_SECTION_KEY
// For example: ESPNOW_NODE_CHANNEL, ESPNOW_BRIDGE_PASSWORD
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
		Node: NodeConfig{
			Name:       "espnow-node",
			Channel:    1,
			SendRepeat: 1,
		},
		Transport: TransportConfig{
			Mode: "standalone",
		},
		Bridge: BridgeConfig{
			Broker: BridgeBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "espnow-pubsub",
			},
			QoS: 1,
			Reconnect: BridgeReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
			TopicPrefix: "espnow",
		},
		Journal: JournalConfig{
			Path:          "./data/espnow-journal.db",
			RetentionDays: 7,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: ESPNOW_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Node
	if v := os.Getenv("ESPNOW_NODE_NAME"); v != "" {
		cfg.Node.Name = v
	}
	if v := os.Getenv("ESPNOW_NODE_CHANNEL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Node.Channel = n
		}
	}

	// Transport
	if v := os.Getenv("ESPNOW_TRANSPORT_BIND_HOST"); v != "" {
		cfg.Transport.BindHost = v
	}
	if v := os.Getenv("ESPNOW_TRANSPORT_BASE_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Transport.BasePort = n
		}
	}

	// Bridge
	if v := os.Getenv("ESPNOW_BRIDGE_HOST"); v != "" {
		cfg.Bridge.Broker.Host = v
	}
	if v := os.Getenv("ESPNOW_BRIDGE_USERNAME"); v != "" {
		cfg.Bridge.Auth.Username = v
	}
	if v := os.Getenv("ESPNOW_BRIDGE_PASSWORD"); v != "" {
		cfg.Bridge.Auth.Password = v
	}

	// API
	if v := os.Getenv("ESPNOW_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("ESPNOW_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Journal
	if v := os.Getenv("ESPNOW_JOURNAL_PATH"); v != "" {
		cfg.Journal.Path = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Node validation
	if c.Node.Name == "" {
		errs = append(errs, "node.name is required")
	}
	if c.Node.Channel < 1 || c.Node.Channel > 14 {
		errs = append(errs, "node.channel must be between 1 and 14")
	}
	if c.Node.SendRepeat < 1 {
		errs = append(errs, "node.send_repeat must be at least 1")
	}

	// Transport validation
	if c.Transport.Mode != "standalone" && c.Transport.Mode != "managed" {
		errs = append(errs, "transport.mode must be \"standalone\" or \"managed\"")
	}
	if c.Transport.ManagedChannel != 0 && (c.Transport.ManagedChannel < 1 || c.Transport.ManagedChannel > 14) {
		errs = append(errs, "transport.managed_channel must be between 1 and 14")
	}
	if c.Transport.BasePort != 0 && (c.Transport.BasePort < 1024 || c.Transport.BasePort > 65500) {
		errs = append(errs, "transport.base_port must be between 1024 and 65500")
	}

	// Rule validation
	for i, rule := range c.Rules {
		if rule.Pattern == "" {
			errs = append(errs, fmt.Sprintf("rules[%d].pattern is required", i))
		}
		if len(rule.Actions) == 0 {
			errs = append(errs, fmt.Sprintf("rules[%d] must have at least one action", i))
		}
		for j, action := range rule.Actions {
			switch action.Type {
			case "log", "publish", "bridge":
			default:
				errs = append(errs, fmt.Sprintf("rules[%d].actions[%d].type must be \"log\", \"publish\" or \"bridge\"", i, j))
			}
			if action.Type == "publish" && action.Topic == "" {
				errs = append(errs, fmt.Sprintf("rules[%d].actions[%d].topic is required for publish actions", i, j))
			}
		}
	}

	// Publisher validation
	for i, pub := range c.Publishers {
		if pub.Topic == "" {
			errs = append(errs, fmt.Sprintf("publishers[%d].topic is required", i))
		}
		if pub.Interval <= 0 {
			errs = append(errs, fmt.Sprintf("publishers[%d].interval must be positive", i))
		}
	}

	// Bridge validation
	if c.Bridge.Enabled {
		if c.Bridge.Broker.Host == "" {
			errs = append(errs, "bridge.broker.host is required when the bridge is enabled")
		}
		if c.Bridge.QoS < 0 || c.Bridge.QoS > 2 {
			errs = append(errs, "bridge.qos must be 0, 1, or 2")
		}
		if c.Bridge.TopicPrefix == "" {
			errs = append(errs, "bridge.topic_prefix is required when the bridge is enabled")
		}
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
		}
	}

	// Journal validation
	if c.Journal.Enabled && c.Journal.Path == "" {
		errs = append(errs, "journal.path is required when the journal is enabled")
	}

	// API validation
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// EffectiveManagedChannel returns the channel the external stack reports
// in managed mode, falling back to node.channel when unset.
func (c *Config) EffectiveManagedChannel() int {
	if c.Transport.ManagedChannel != 0 {
		return c.Transport.ManagedChannel
	}
	return c.Node.Channel
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
