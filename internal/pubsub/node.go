package pubsub

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// Logger is the logging surface the node needs.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Transport is the readiness and send surface of the link layer.
// Implemented by espnow.Link.
type Transport interface {
	// Ready reports whether the transport has been brought up and a frame
	// can be broadcast.
	Ready() bool

	// Send broadcasts a raw frame to all peers on the configured channel.
	Send(frame []byte) error

	// LastError returns the most recent bring-up error, for diagnostics.
	LastError() error

	// SendFailureStatus maps a Send error to a human-readable status line.
	SendFailureStatus(err error) string
}

// Options configures a Node.
type Options struct {
	// Name identifies this node in logs and diagnostics.
	Name string

	// SendRepeat is the configured broadcast repeat count. It is stored
	// for diagnostics but not acted on by the core send path.
	SendRepeat int
}

// Node is the publish/subscribe core of one process.
//
// Publish encodes frames and hands them to the transport, gated on link
// readiness. OnReceive is the producer side of the receive queue and is
// safe to call from the transport's receive goroutine. Run is the
// dispatcher loop and must be the only consumer of the queue.
type Node struct {
	opts      Options
	transport Transport
	registry  *Registry
	queue     *queue

	sent     atomic.Uint64
	received atomic.Uint64
	lastRSSI atomic.Int64

	statusMu   sync.RWMutex
	lastStatus string

	flushMu sync.RWMutex
	onFlush func()

	logger   Logger
	loggerMu sync.RWMutex
}

// NewNode creates a node bound to the given transport. Subscriptions are
// registered afterwards, during setup, via Subscribe.
func NewNode(opts Options, transport Transport) *Node {
	return &Node{
		opts:      opts,
		transport: transport,
		registry:  NewRegistry(),
		queue:     newQueue(),
	}
}

// SetLogger sets a logger for dispatch and receive-path logging.
// If not set, the node is silent.
func (n *Node) SetLogger(logger Logger) {
	n.loggerMu.Lock()
	n.logger = logger
	n.loggerMu.Unlock()
}

func (n *Node) getLogger() Logger {
	n.loggerMu.RLock()
	defer n.loggerMu.RUnlock()
	return n.logger
}

// SetOnFlush sets the hook invoked after each processed batch to flush
// deferred diagnostic updates (counters, status) toward whatever sink the
// host wired up. The node never blocks on the sink being present.
func (n *Node) SetOnFlush(fn func()) {
	n.flushMu.Lock()
	n.onFlush = fn
	n.flushMu.Unlock()
}

// Registry returns the node's subscription registry.
func (n *Node) Registry() *Registry {
	return n.registry
}

// Subscribe registers a callback for a topic pattern. Must be called
// during setup, before the transport receive path is live.
func (n *Node) Subscribe(pattern string, handler Handler) {
	n.registry.Register(pattern, handler)
}

// Publish broadcasts a (topic, payload) message to all peers.
//
// Publish is fire-and-forget: when the transport is not ready, or the
// send fails, the outcome is recorded as the last-status diagnostic and
// the message is dropped. Nothing is retried and no error escapes to the
// caller; consult LastStatus and the sent counter.
func (n *Node) Publish(topic string, payload []byte) {
	log := n.getLogger()

	if topic == "" {
		n.setStatus("Send failed: Invalid argument (empty topic)")
		if log != nil {
			log.Warn("publish rejected", "error", ErrEmptyTopic)
		}
		return
	}
	if strings.IndexByte(topic, frameSeparator) >= 0 {
		n.setStatus("Send failed: Invalid argument (topic contains zero byte)")
		if log != nil {
			log.Warn("publish rejected", "topic", topic, "error", ErrTopicContainsSeparator)
		}
		return
	}

	if !n.transport.Ready() {
		n.setStatus(fmt.Sprintf("ESP-NOW not initialized (code: %v)", n.transport.LastError()))
		if log != nil {
			log.Error("cannot publish, transport not initialized",
				"topic", topic,
				"error", n.transport.LastError(),
			)
		}
		return
	}

	frame := EncodeFrame(topic, payload)
	if err := n.transport.Send(frame); err != nil {
		n.setStatus(n.transport.SendFailureStatus(err))
		if log != nil {
			log.Error("broadcast send failed", "topic", topic, "error", err)
		}
		return
	}

	n.sent.Add(1)
	n.setStatus("OK")
	if log != nil {
		log.Info("published message", "topic", topic, "payload_len", len(payload))
	}
}

// OnReceive is the producer side of the receive queue, invoked from the
// transport's receive goroutine for every raw frame off the air.
//
// It only validates, decodes and enqueues; matching and callback
// invocation happen later on the dispatcher loop. It must stay
// non-blocking.
func (n *Node) OnReceive(rssi int, data []byte) {
	log := n.getLogger()

	if len(data) == 0 {
		n.setStatus("RX error: invalid len")
		if log != nil {
			log.Warn("dropping received frame", "error", ErrMalformedFrame, "len", 0)
		}
		return
	}

	topic, payload, err := DecodeFrame(data)
	if err != nil {
		n.setStatus("RX error: malformed message")
		if log != nil {
			log.Warn("dropping received frame", "error", err, "len", len(data))
		}
		return
	}

	if n.queue.Enqueue(Message{Topic: topic, Payload: payload}) {
		n.setStatus("RX warning: queue full, dropped oldest")
		if log != nil {
			log.Warn("receive queue full, dropped oldest message", "capacity", QueueCapacity)
		}
	} else {
		n.setStatus("OK")
	}

	n.lastRSSI.Store(int64(rssi))
	n.received.Add(1)
}

// ProcessDueMessages drains the receive queue as a single ordered batch
// and dispatches each message to every matching subscription, in
// registration order. Returns the number of messages processed.
//
// Must only be called from the dispatcher loop context.
func (n *Node) ProcessDueMessages() int {
	batch := n.queue.DrainAll()
	for _, msg := range batch {
		n.dispatch(msg)
	}
	return len(batch)
}

// dispatch fans one message out to all matching subscriptions. A message
// may match zero, one or many patterns; all matches fire. Zero matches is
// not an error.
func (n *Node) dispatch(msg Message) {
	log := n.getLogger()
	matched := false
	for _, sub := range n.registry.Subscriptions() {
		if Matches(sub.Pattern, msg.Topic) {
			matched = true
			if log != nil {
				log.Info("received message",
					"topic", msg.Topic,
					"matched", sub.Pattern,
				)
			}
			sub.Handler(msg.Topic, msg.Payload)
		}
	}
	if !matched && log != nil {
		log.Debug("received message, not subscribed", "topic", msg.Topic)
	}
}

// Run is the dispatcher loop. It parks on the queue's wake signal, drains
// batches until the queue is idle, and after each batch makes one flush
// pass for deferred diagnostics before going back to sleep.
//
// Run blocks until ctx is cancelled.
func (n *Node) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-n.queue.Wake():
			for n.ProcessDueMessages() > 0 {
				n.flushDiagnostics()
			}
		}
	}
}

func (n *Node) flushDiagnostics() {
	n.flushMu.RLock()
	fn := n.onFlush
	n.flushMu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (n *Node) setStatus(status string) {
	n.statusMu.Lock()
	n.lastStatus = status
	n.statusMu.Unlock()
}

// Name returns the configured node name.
func (n *Node) Name() string {
	return n.opts.Name
}

// SendRepeat returns the configured send-repeat count.
func (n *Node) SendRepeat() int {
	return n.opts.SendRepeat
}

// LastStatus returns the most recent human-readable status line.
func (n *Node) LastStatus() string {
	n.statusMu.RLock()
	defer n.statusMu.RUnlock()
	return n.lastStatus
}

// SentCount returns the number of successfully broadcast messages.
func (n *Node) SentCount() uint64 {
	return n.sent.Load()
}

// ReceivedCount returns the number of structurally valid frames received.
func (n *Node) ReceivedCount() uint64 {
	return n.received.Load()
}

// OverflowCount returns the number of drop-oldest queue evictions.
func (n *Node) OverflowCount() uint64 {
	return n.queue.Overflows()
}

// LastRSSI returns the signal strength reported with the most recent
// received frame, or 0 when the transport cannot measure it.
func (n *Node) LastRSSI() int {
	return int(n.lastRSSI.Load())
}

// QueueDepth returns the current receive-queue depth.
func (n *Node) QueueDepth() int {
	return n.queue.Len()
}
