package espnow

// EventType classifies a network stack lifecycle event.
type EventType int

const (
	// EventConnected fires when the managed stack has associated and its
	// channel is known.
	EventConnected EventType = iota

	// EventDisconnected fires when the managed stack loses association.
	EventDisconnected

	// EventInterfaceStart fires when the managed stack brings an interface
	// up. The session must be re-established afterwards.
	EventInterfaceStart

	// EventInterfaceStop fires when the managed stack takes an interface
	// down.
	EventInterfaceStop
)

// String returns the event type name for logging.
func (t EventType) String() string {
	switch t {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventInterfaceStart:
		return "interface_start"
	case EventInterfaceStop:
		return "interface_stop"
	default:
		return "unknown"
	}
}

// Event is one lifecycle notification from a managed network stack.
// Channel carries the stack's current channel, or 0 when not associated.
type Event struct {
	Type    EventType
	Channel int
}

// NetworkStack is the surface of an external owner of the medium's
// channel. In managed mode the link never sets the channel itself; it
// observes the stack's channel and reacts to its lifecycle events.
type NetworkStack interface {
	// Channel returns the stack's current channel, or 0 when unknown.
	Channel() int

	// Events returns the stream of lifecycle events. The channel is closed
	// when the stack shuts down.
	Events() <-chan Event
}

// StaticStack is a NetworkStack with a fixed channel and an injectable
// event stream. It stands in for a real managed stack in deployments where
// another process owns the channel, and in tests.
type StaticStack struct {
	channel int
	events  chan Event
}

// NewStaticStack creates a stack pinned to the given channel.
func NewStaticStack(channel int) *StaticStack {
	return &StaticStack{
		channel: channel,
		events:  make(chan Event, 8),
	}
}

// Channel returns the fixed channel.
func (s *StaticStack) Channel() int {
	return s.channel
}

// Events returns the event stream.
func (s *StaticStack) Events() <-chan Event {
	return s.events
}

// Emit injects a lifecycle event, dropping it if the stream is full.
func (s *StaticStack) Emit(ev Event) {
	select {
	case s.events <- ev:
	default:
	}
}

// Announce emits the initial connected event carrying the fixed channel.
func (s *StaticStack) Announce() {
	s.Emit(Event{Type: EventConnected, Channel: s.channel})
}
