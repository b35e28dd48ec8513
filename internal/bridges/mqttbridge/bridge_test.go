package mqttbridge

import (
	"errors"
	"testing"

	"github.com/megageek/esphome-espnow-pubsub/internal/infrastructure/config"
)

// recordingPublisher captures downlink republications.
type recordingPublisher struct {
	topics   []string
	payloads []string
}

func (p *recordingPublisher) Publish(topic string, payload []byte) {
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, string(payload))
}

func TestConnect_Disabled(t *testing.T) {
	cfg := config.BridgeConfig{Enabled: false}

	_, err := Connect(cfg, "node", &recordingPublisher{})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestBridge_HandleDownlink(t *testing.T) {
	pub := &recordingPublisher{}
	b := &Bridge{
		topics:    Topics{Prefix: "espnow", Node: "node-1"},
		publisher: pub,
	}

	b.handleDownlink("espnow/node-1/down/actuator/valve", []byte("open"))

	if len(pub.topics) != 1 || pub.topics[0] != "actuator/valve" {
		t.Errorf("republished topics = %v, want [actuator/valve]", pub.topics)
	}
	if pub.payloads[0] != "open" {
		t.Errorf("republished payload = %q, want %q", pub.payloads[0], "open")
	}

	// Messages outside the downlink tree are ignored.
	b.handleDownlink("espnow/node-1/up/sensor/temp", []byte("x"))
	b.handleDownlink("espnow/other/down/reset", []byte("x"))
	if len(pub.topics) != 1 {
		t.Errorf("republished %d messages, want 1", len(pub.topics))
	}
}

func TestBridge_PublishUpNotConnected(t *testing.T) {
	b := &Bridge{
		topics: Topics{Prefix: "espnow", Node: "node-1"},
	}

	if err := b.PublishUp("sensor/temp", []byte("21.5")); !errors.Is(err, ErrNotConnected) {
		t.Errorf("PublishUp() error = %v, want ErrNotConnected", err)
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := config.BridgeConfig{
		Enabled: true,
		Broker: config.BridgeBrokerConfig{
			Host:     "broker.local",
			Port:     8883,
			TLS:      true,
			ClientID: "espnow-test",
		},
		Auth: config.BridgeAuthConfig{Username: "u", Password: "p"},
		QoS:  1,
		Reconnect: config.BridgeReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     30,
		},
		TopicPrefix: "espnow",
	}

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 {
		t.Fatalf("got %d brokers, want 1", len(opts.Servers))
	}
	if got := opts.Servers[0].String(); got != "ssl://broker.local:8883" {
		t.Errorf("broker URL = %q, want %q", got, "ssl://broker.local:8883")
	}
	if opts.ClientID != "espnow-test" {
		t.Errorf("ClientID = %q, want %q", opts.ClientID, "espnow-test")
	}
	if opts.Username != "u" {
		t.Errorf("Username = %q, want %q", opts.Username, "u")
	}
	if !opts.AutoReconnect {
		t.Error("AutoReconnect = false, want true")
	}
	if opts.TLSConfig == nil {
		t.Error("TLSConfig is nil for a TLS broker")
	}
}
