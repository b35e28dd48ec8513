package automation

import "fmt"

// Publisher is the interface for broadcasting messages onto the medium.
// Satisfied by pubsub.Node.
type Publisher interface {
	// Publish broadcasts a message. Outcomes are recorded as node
	// diagnostics, not returned.
	Publish(topic string, payload []byte)
}

// BridgePublisher is the interface for forwarding messages to the MQTT
// uplink. Satisfied by mqttbridge.Bridge.
type BridgePublisher interface {
	// PublishUp forwards a received message to the uplink broker.
	PublishUp(topic string, payload []byte) error
}

// Logger is the logging surface actions need.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Action is one configured reaction to a matching message.
type Action interface {
	// Execute runs the action against the triggering message.
	Execute(msg Message) error

	// Describe returns a short form for logs and diagnostics.
	Describe() string
}

// logAction writes the matching message to the log.
type logAction struct {
	logger Logger
}

func (a *logAction) Execute(msg Message) error {
	a.logger.Info("rule matched",
		"topic", msg.Topic,
		"payload", string(msg.Payload),
	)
	return nil
}

func (a *logAction) Describe() string { return "log" }

// publishAction broadcasts a derived message. The topic is fixed; the
// payload template expands against the triggering message.
type publishAction struct {
	publisher Publisher
	topic     string
	payload   string
}

func (a *publishAction) Execute(msg Message) error {
	payload := a.payload
	if payload == "" {
		payload = string(msg.Payload)
	} else {
		payload = Expand(payload, msg)
	}
	a.publisher.Publish(a.topic, []byte(payload))
	return nil
}

func (a *publishAction) Describe() string { return fmt.Sprintf("publish(%s)", a.topic) }

// bridgeAction forwards the message to the MQTT uplink. An empty topic
// forwards under the original topic.
type bridgeAction struct {
	bridge BridgePublisher
	topic  string
}

func (a *bridgeAction) Execute(msg Message) error {
	topic := a.topic
	if topic == "" {
		topic = msg.Topic
	}
	if err := a.bridge.PublishUp(topic, msg.Payload); err != nil {
		return fmt.Errorf("bridging %q: %w", topic, err)
	}
	return nil
}

func (a *bridgeAction) Describe() string {
	if a.topic == "" {
		return "bridge"
	}
	return fmt.Sprintf("bridge(%s)", a.topic)
}
