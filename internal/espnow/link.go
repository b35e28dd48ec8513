package espnow

import (
	"context"
	"fmt"
	"sync"
)

// Logger is the logging surface the link needs.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// LinkState is the bring-up state of the broadcast link.
type LinkState int

const (
	// StateUninitialized is the state before Start.
	StateUninitialized LinkState = iota

	// StateInitializing is the transient state while the session is being
	// brought up or re-established.
	StateInitializing

	// StateReady means the session is up and frames can be broadcast.
	StateReady

	// StateChannelMismatch means the externally managed channel differs
	// from the configured one. Terminal until the managed stack reconnects
	// on a compatible channel.
	StateChannelMismatch

	// StateFailed means a driver operation failed during bring-up.
	StateFailed
)

// String returns the state name for logging and diagnostics.
func (s LinkState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateChannelMismatch:
		return "channel_mismatch"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Mode selects who owns the medium's channel.
type Mode string

const (
	// ModeStandalone means the link owns the channel and pins it at
	// bring-up. A channel mismatch cannot occur in this mode.
	ModeStandalone Mode = "standalone"

	// ModeManaged means an external network stack owns the channel. The
	// link observes the channel and refuses to come up when it differs
	// from the configured one.
	ModeManaged Mode = "managed"
)

// LinkConfig configures a Link.
type LinkConfig struct {
	// Mode selects channel ownership.
	Mode Mode

	// Channel is the broadcast channel all peers must share, 1 to 14.
	Channel int
}

// Link is the broadcast link state machine.
//
// It sequences driver bring-up, tracks channel compatibility in managed
// mode, re-establishes the session after network stack events, and gates
// sends on readiness. Configuration setters (SetReceiveHook,
// SetHasSubscribers, SetOnStateChange, SetLogger) must be called before
// Start.
type Link struct {
	cfg    LinkConfig
	driver Driver
	stack  NetworkStack

	mu                sync.Mutex
	state             LinkState
	lastStatus        string
	lastErr           error
	observedChannel   int
	channelCompatible bool
	hasSubscribers    bool
	recvHook          RecvFunc
	confirmed         bool
	closed            bool

	onStateChange func(state LinkState, status string)
	logger        Logger

	cancelWatch context.CancelFunc
	watchDone   chan struct{}
}

// NewLink creates a link over the given driver. stack must be non-nil in
// managed mode and is ignored in standalone mode.
func NewLink(cfg LinkConfig, driver Driver, stack NetworkStack) (*Link, error) {
	if cfg.Channel < 1 || cfg.Channel > 14 {
		return nil, fmt.Errorf("%w: channel %d out of range 1-14", ErrInvalidArgument, cfg.Channel)
	}
	if cfg.Mode != ModeStandalone && cfg.Mode != ModeManaged {
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidArgument, cfg.Mode)
	}
	if cfg.Mode == ModeManaged && stack == nil {
		return nil, fmt.Errorf("%w: managed mode requires a network stack", ErrInvalidArgument)
	}
	return &Link{
		cfg:               cfg,
		driver:            driver,
		stack:             stack,
		state:             StateUninitialized,
		channelCompatible: cfg.Mode == ModeStandalone,
	}, nil
}

// SetLogger sets a logger for bring-up and event logging.
func (l *Link) SetLogger(logger Logger) {
	l.mu.Lock()
	l.logger = logger
	l.mu.Unlock()
}

// SetReceiveHook sets the function invoked for every frame received while
// the receive callback is installed. The hook is resolved at call time, so
// it survives session re-establishment.
func (l *Link) SetReceiveHook(fn RecvFunc) {
	l.mu.Lock()
	l.recvHook = fn
	l.mu.Unlock()
}

// SetHasSubscribers tells the link whether the node expects to receive.
// With subscribers the link disables power save and installs the receive
// callback; without, a standalone link enables maximum power save and the
// callback stays uninstalled.
func (l *Link) SetHasSubscribers(has bool) {
	l.mu.Lock()
	l.hasSubscribers = has
	l.mu.Unlock()
}

// SetOnStateChange sets the hook invoked after every state transition,
// with the new state and the current status line. Called without internal
// locks held.
func (l *Link) SetOnStateChange(fn func(state LinkState, status string)) {
	l.mu.Lock()
	l.onStateChange = fn
	l.mu.Unlock()
}

// Start brings the link up.
//
// In standalone mode the medium is started and pinned to the configured
// channel, then the session is established immediately. In managed mode a
// watcher goroutine follows the stack's events; the session is established
// once the stack reports a known channel, and only when that channel
// matches the configured one.
//
// Start returns an error only for bring-up failures that leave the link
// unusable. A managed-mode channel mismatch is not a Start error: the link
// parks in StateChannelMismatch and reports it through State and Send.
func (l *Link) Start(ctx context.Context) error {
	if l.cfg.Mode == ModeStandalone {
		return l.startStandalone()
	}
	return l.startManaged(ctx)
}

func (l *Link) startStandalone() error {
	l.setState(StateInitializing, "")
	if err := l.driver.EnsureStationMode(); err != nil {
		return l.failInit(fmt.Errorf("set station mode: %w", err))
	}
	if err := l.driver.Start(); err != nil {
		return l.failInit(fmt.Errorf("start medium: %w", err))
	}
	if err := l.driver.SetChannel(l.cfg.Channel); err != nil {
		return l.failInit(fmt.Errorf("set channel %d: %w", l.cfg.Channel, err))
	}
	l.mu.Lock()
	l.observedChannel = l.cfg.Channel
	l.channelCompatible = true
	l.mu.Unlock()
	return l.initSession()
}

func (l *Link) startManaged(ctx context.Context) error {
	watchCtx, cancel := context.WithCancel(ctx)
	l.mu.Lock()
	l.cancelWatch = cancel
	l.watchDone = make(chan struct{})
	l.mu.Unlock()
	go l.watchEvents(watchCtx)

	// The stack may already be associated; if so, bring the session up
	// now instead of waiting for the next connect event.
	if ch := l.stack.Channel(); ch > 0 {
		l.initAfterLink(ch)
	} else {
		l.log().Debug("managed channel not yet known, waiting for stack events")
	}
	return nil
}

// watchEvents follows the managed stack's lifecycle. Connect events carry
// the channel and trigger a full, compatibility-checked bring-up; the
// remaining events invalidate the session and trigger re-establishment.
func (l *Link) watchEvents(ctx context.Context) {
	defer close(l.watchDone)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-l.stack.Events():
			if !ok {
				return
			}
			l.handleEvent(ev)
		}
	}
}

func (l *Link) handleEvent(ev Event) {
	log := l.log()
	switch ev.Type {
	case EventConnected:
		if ev.Channel > 0 {
			log.Debug("stack connected", "channel", ev.Channel)
			l.initAfterLink(ev.Channel)
		} else {
			log.Debug("stack connected but channel unknown, session not established")
		}
	case EventDisconnected, EventInterfaceStart, EventInterfaceStop:
		log.Debug("stack event, re-establishing session", "event", ev.Type.String())
		l.reinit()
	}
}

// initAfterLink records the externally observed channel, checks it against
// the configured one and establishes the session when compatible. On
// mismatch the link parks in StateChannelMismatch; broadcasting on the
// wrong channel would reach no peers.
func (l *Link) initAfterLink(observed int) {
	compatible := observed == l.cfg.Channel

	l.mu.Lock()
	l.observedChannel = observed
	l.channelCompatible = compatible
	l.mu.Unlock()

	if !compatible {
		l.log().Error("configured channel does not match managed channel",
			"configured", l.cfg.Channel,
			"observed", observed,
		)
		l.mu.Lock()
		l.lastErr = ErrChannelMismatch
		l.mu.Unlock()
		l.setState(StateChannelMismatch, "ESP-NOW channel mismatch")
		return
	}
	// Outcome is carried in state and status; nothing to return to here.
	_ = l.initSession()
}

// initSession performs the common bring-up: power save policy, a clean
// session (deinit then init), the broadcast peer, and the receive callback
// when subscribers exist.
func (l *Link) initSession() error {
	l.setState(StateInitializing, "")

	l.mu.Lock()
	hasSubs := l.hasSubscribers
	l.mu.Unlock()

	l.applyPowerSave(hasSubs)

	// Deinit first so a stale session from a previous bring-up never
	// leaks into this one.
	if err := l.driver.DeinitSession(); err != nil {
		l.log().Warn("session deinit before init failed", "error", err)
	}
	if err := l.driver.InitSession(); err != nil {
		return l.failInit(fmt.Errorf("init session: %w", err))
	}

	if err := l.driver.AddBroadcastPeer(l.cfg.Channel); err != nil {
		l.log().Error("failed to register broadcast peer", "error", err)
	}

	l.installReceivePath(hasSubs)

	l.mu.Lock()
	l.confirmed = true
	l.lastErr = nil
	l.mu.Unlock()
	l.setState(StateReady, "ESP-NOW initialized")
	l.log().Info("broadcast session established",
		"channel", l.cfg.Channel,
		"mode", string(l.cfg.Mode),
		"receiving", hasSubs,
	)
	return nil
}

// reinit re-establishes the session after a stack event. It skips the
// channel compatibility check; connect events run the full initAfterLink
// path instead. A link that never completed a bring-up has nothing to
// re-establish and the event is ignored.
func (l *Link) reinit() {
	l.mu.Lock()
	confirmed := l.confirmed
	hasSubs := l.hasSubscribers
	l.mu.Unlock()
	if !confirmed {
		l.log().Debug("ignoring stack event before first session bring-up")
		return
	}

	l.setState(StateInitializing, "")
	if err := l.driver.DeinitSession(); err != nil {
		l.log().Warn("session deinit failed during reinit", "error", err)
	}
	if err := l.driver.InitSession(); err != nil {
		_ = l.failInit(fmt.Errorf("reinit session: %w", err))
		return
	}
	if err := l.driver.AddBroadcastPeer(l.cfg.Channel); err != nil {
		l.log().Error("failed to register broadcast peer", "error", err)
	}
	l.installReceivePath(hasSubs)

	l.mu.Lock()
	l.lastErr = nil
	status := l.lastStatus
	l.mu.Unlock()
	l.setState(StateReady, status)
	l.log().Debug("broadcast session re-established", "channel", l.cfg.Channel)
}

// applyPowerSave applies the receive-driven power policy: subscribers need
// the receiver always on, a standalone send-only node can sleep. Failures
// are logged but never block bring-up.
func (l *Link) applyPowerSave(hasSubs bool) {
	switch {
	case hasSubs:
		if err := l.driver.SetPowerSave(PowerSaveNone); err != nil {
			l.log().Warn("failed to disable power save", "error", err)
		}
	case l.cfg.Mode == ModeStandalone:
		if err := l.driver.SetPowerSave(PowerSaveMax); err != nil {
			l.log().Warn("failed to enable power save for send-only node", "error", err)
		}
	}
}

// installReceivePath installs the receive callback iff subscribers exist.
// The installed callback resolves the hook at call time so hook changes
// take effect without reinstalling.
func (l *Link) installReceivePath(hasSubs bool) {
	if hasSubs {
		err := l.driver.SetReceiveCallback(func(rssi int, data []byte) {
			l.mu.Lock()
			hook := l.recvHook
			l.mu.Unlock()
			if hook != nil {
				hook(rssi, data)
			}
		})
		if err != nil {
			l.log().Error("failed to install receive callback", "error", err)
		}
		return
	}
	if err := l.driver.ClearReceiveCallback(); err != nil {
		l.log().Warn("failed to clear receive callback", "error", err)
	}
}

func (l *Link) failInit(err error) error {
	l.mu.Lock()
	l.lastErr = err
	l.mu.Unlock()
	l.setState(StateFailed, fmt.Sprintf("ESP-NOW init failed: %v", err))
	l.log().Error("broadcast session bring-up failed", "error", err)
	return err
}

func (l *Link) setState(state LinkState, status string) {
	l.mu.Lock()
	l.state = state
	if status != "" {
		l.lastStatus = status
	}
	status = l.lastStatus
	fn := l.onStateChange
	l.mu.Unlock()
	if fn != nil {
		fn(state, status)
	}
}

func (l *Link) log() Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.logger != nil {
		return l.logger
	}
	return nopLogger{}
}

// State returns the current link state.
func (l *Link) State() LinkState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Ready reports whether the session is up and frames can be broadcast.
func (l *Link) Ready() bool {
	return l.State() == StateReady
}

// LastStatus returns the most recent status line from the link itself.
func (l *Link) LastStatus() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastStatus
}

// LastError returns the most recent bring-up error, or nil.
func (l *Link) LastError() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

// ObservedChannel returns the channel last observed on the medium, or 0
// before any observation.
func (l *Link) ObservedChannel() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.observedChannel
}

// ChannelCompatible reports whether the observed channel matches the
// configured one. Always true in standalone mode.
func (l *Link) ChannelCompatible() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.channelCompatible
}

// Send broadcasts one raw frame to all peers. Fails with
// ErrNotInitialized unless the link is ready.
func (l *Link) Send(frame []byte) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrLinkClosed
	}
	ready := l.state == StateReady
	l.mu.Unlock()
	if !ready {
		return fmt.Errorf("%w: link not ready", ErrNotInitialized)
	}
	return l.driver.Send(frame)
}

// SendFailureStatus maps a Send error to its diagnostic status line.
func (l *Link) SendFailureStatus(err error) string {
	return SendFailureStatus(err)
}

// Close stops the event watcher, tears the session down and releases the
// driver. The link is unusable afterwards.
func (l *Link) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	cancel := l.cancelWatch
	done := l.watchDone
	l.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	if err := l.driver.ClearReceiveCallback(); err != nil {
		l.log().Warn("failed to clear receive callback on close", "error", err)
	}
	if err := l.driver.DeinitSession(); err != nil {
		l.log().Warn("failed to deinit session on close", "error", err)
	}
	return l.driver.Close()
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
