package espnow

import "sync"

// MemoryDriver is an in-process Driver for tests. It records every
// lifecycle call and sent frame, lets tests inject failures per
// operation, and delivers frames to the receive callback on demand.
type MemoryDriver struct {
	mu sync.Mutex

	// Fail* make the corresponding operation return the given error.
	FailEnsureStationMode error
	FailStart             error
	FailSetChannel        error
	FailSetPowerSave      error
	FailInitSession       error
	FailAddBroadcastPeer  error
	FailSend              error
	FailSetReceiveCB      error

	stationMode bool
	started     bool
	channel     int
	powerSave   PowerSaveMode
	sessionUp   bool
	peerChannel int
	recvFn      RecvFunc
	closed      bool

	calls     []string
	sent      [][]byte
	initCount int
}

// NewMemoryDriver creates an idle in-memory driver.
func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{}
}

func (d *MemoryDriver) record(call string) {
	d.calls = append(d.calls, call)
}

func (d *MemoryDriver) EnsureStationMode() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("ensure_station_mode")
	if d.FailEnsureStationMode != nil {
		return d.FailEnsureStationMode
	}
	d.stationMode = true
	return nil
}

func (d *MemoryDriver) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("start")
	if d.FailStart != nil {
		return d.FailStart
	}
	d.started = true
	return nil
}

func (d *MemoryDriver) SetChannel(channel int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("set_channel")
	if d.FailSetChannel != nil {
		return d.FailSetChannel
	}
	d.channel = channel
	return nil
}

func (d *MemoryDriver) SetPowerSave(mode PowerSaveMode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("set_power_save")
	if d.FailSetPowerSave != nil {
		return d.FailSetPowerSave
	}
	d.powerSave = mode
	return nil
}

func (d *MemoryDriver) InitSession() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("init_session")
	if d.FailInitSession != nil {
		return d.FailInitSession
	}
	d.sessionUp = true
	d.initCount++
	return nil
}

func (d *MemoryDriver) DeinitSession() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("deinit_session")
	d.sessionUp = false
	return nil
}

func (d *MemoryDriver) AddBroadcastPeer(channel int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("add_broadcast_peer")
	if d.FailAddBroadcastPeer != nil {
		return d.FailAddBroadcastPeer
	}
	d.peerChannel = channel
	return nil
}

func (d *MemoryDriver) Send(frame []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("send")
	if d.FailSend != nil {
		return d.FailSend
	}
	if !d.sessionUp {
		return ErrNotInitialized
	}
	if d.peerChannel == 0 {
		return ErrPeerNotFound
	}
	cp := make([]byte, len(frame))
	copy(cp, frame)
	d.sent = append(d.sent, cp)
	return nil
}

func (d *MemoryDriver) SetReceiveCallback(fn RecvFunc) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("set_receive_callback")
	if d.FailSetReceiveCB != nil {
		return d.FailSetReceiveCB
	}
	d.recvFn = fn
	return nil
}

func (d *MemoryDriver) ClearReceiveCallback() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("clear_receive_callback")
	d.recvFn = nil
	return nil
}

func (d *MemoryDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("close")
	d.closed = true
	return nil
}

// Deliver invokes the receive callback as if a frame arrived off the air.
// Returns false when no callback is installed.
func (d *MemoryDriver) Deliver(rssi int, data []byte) bool {
	d.mu.Lock()
	fn := d.recvFn
	d.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(rssi, data)
	return true
}

// Sent returns copies of the frames handed to Send, in order.
func (d *MemoryDriver) Sent() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([][]byte, len(d.sent))
	copy(out, d.sent)
	return out
}

// Calls returns the recorded operation names, in order.
func (d *MemoryDriver) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.calls))
	copy(out, d.calls)
	return out
}

// Channel returns the last channel set via SetChannel.
func (d *MemoryDriver) Channel() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.channel
}

// PowerSave returns the last applied power policy.
func (d *MemoryDriver) PowerSave() PowerSaveMode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.powerSave
}

// HasReceiveCallback reports whether a receive callback is installed.
func (d *MemoryDriver) HasReceiveCallback() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.recvFn != nil
}

// InitCount returns how many times InitSession succeeded.
func (d *MemoryDriver) InitCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.initCount
}

// SessionUp reports whether the session is currently initialised.
func (d *MemoryDriver) SessionUp() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sessionUp
}
