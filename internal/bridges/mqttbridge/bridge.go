package mqttbridge

import (
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/megageek/esphome-espnow-pubsub/internal/infrastructure/config"
)

// Connection constants.
const (
	// defaultConnectTimeout is the maximum time to wait for initial connection.
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout is the maximum time to wait for publish acknowledgment.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 1000 // milliseconds

	// defaultKeepAlive is the keepalive interval for the connection.
	defaultKeepAlive = 60 * time.Second

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12
)

// Publisher is the mesh-side surface for downlink republication.
// Satisfied by pubsub.Node.
type Publisher interface {
	Publish(topic string, payload []byte)
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Bridge connects the broadcast mesh to an MQTT broker.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - The downlink subscription is restored automatically on reconnect.
type Bridge struct {
	client pahomqtt.Client
	cfg    config.BridgeConfig
	topics Topics

	publisher Publisher

	connected bool
	connMu    sync.RWMutex

	logger   Logger
	loggerMu sync.RWMutex
}

// Connect establishes the broker connection and subscribes to the
// downlink tree.
//
// It performs the following setup:
//  1. Builds connection options from config (broker URL, auth, TLS)
//  2. Sets up auto-reconnect with exponential backoff
//  3. Attempts initial connection with timeout
//  4. Subscribes to the node's downlink pattern
//
// Parameters:
//   - cfg: Bridge configuration from config.yaml
//   - nodeName: This node's name, used in the topic scheme
//   - publisher: Mesh-side publish surface for downlink messages
//
// Returns:
//   - *Bridge: Connected bridge ready for use
//   - error: If disabled or the initial connection fails
func Connect(cfg config.BridgeConfig, nodeName string, publisher Publisher) (*Bridge, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	b := &Bridge{
		cfg:       cfg,
		topics:    Topics{Prefix: cfg.TopicPrefix, Node: nodeName},
		publisher: publisher,
	}

	opts := buildClientOptions(cfg)
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		b.handleConnect()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		b.handleDisconnect(err)
	})

	b.client = pahomqtt.NewClient(opts)
	token := b.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	b.connMu.Lock()
	b.connected = true
	b.connMu.Unlock()

	return b, nil
}

// buildClientOptions creates paho MQTT options from bridge config.
func buildClientOptions(cfg config.BridgeConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port))

	opts.SetClientID(cfg.Broker.ClientID)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	opts.SetCleanSession(true)

	// Auto-reconnect with exponential backoff
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second)
	opts.SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second)

	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)

	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tlsMinVersion})
	}

	return opts
}

// handleConnect runs on every (re)connect and restores the downlink
// subscription; paho drops subscriptions across clean-session reconnects.
func (b *Bridge) handleConnect() {
	b.connMu.Lock()
	b.connected = true
	b.connMu.Unlock()

	pattern := b.topics.DownPattern()
	// #nosec G115 -- qos validated to 0..2 by config
	token := b.client.Subscribe(pattern, byte(b.cfg.QoS), func(_ pahomqtt.Client, msg pahomqtt.Message) {
		b.handleDownlink(msg.Topic(), msg.Payload())
	})
	if token.WaitTimeout(defaultConnectTimeout) && token.Error() == nil {
		b.log().Info("bridge downlink subscribed", "pattern", pattern)
		return
	}
	b.log().Error("bridge downlink subscription failed",
		"pattern", pattern,
		"error", token.Error(),
	)
}

func (b *Bridge) handleDisconnect(err error) {
	b.connMu.Lock()
	b.connected = false
	b.connMu.Unlock()
	b.log().Warn("bridge connection lost", "error", err)
}

// handleDownlink republishes a broker message onto the mesh. Runs on a
// paho goroutine; Node.Publish is non-blocking, so no handoff is needed.
func (b *Bridge) handleDownlink(brokerTopic string, payload []byte) {
	topic, ok := b.topics.FromDown(brokerTopic)
	if !ok {
		b.log().Warn("ignoring message outside downlink tree", "topic", brokerTopic)
		return
	}
	b.publisher.Publish(topic, payload)
}

// PublishUp forwards a mesh message to the broker under the uplink tree.
//
// Parameters:
//   - topic: The mesh topic the message arrived on
//   - payload: The raw payload
//
// Returns:
//   - error: ErrNotConnected or ErrPublishFailed
func (b *Bridge) PublishUp(topic string, payload []byte) error {
	if !b.IsConnected() {
		return ErrNotConnected
	}

	// #nosec G115 -- qos validated to 0..2 by config
	token := b.client.Publish(b.topics.Up(topic), byte(b.cfg.QoS), false, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// IsConnected returns the current connection state.
func (b *Bridge) IsConnected() bool {
	b.connMu.RLock()
	defer b.connMu.RUnlock()
	return b.connected
}

// SetLogger sets a logger for connection and downlink logging.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()
}

func (b *Bridge) log() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	if b.logger != nil {
		return b.logger
	}
	return nopLogger{}
}

// Close disconnects from the broker, allowing pending operations to
// quiesce.
func (b *Bridge) Close() {
	b.connMu.Lock()
	b.connected = false
	b.connMu.Unlock()
	b.client.Disconnect(defaultDisconnectQuiesce)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
