package espnow

// RecvFunc is invoked by the driver for every raw frame received off the
// medium. rssi is the reported signal strength, or 0 when the medium
// cannot measure it. The data slice is only valid for the duration of the
// call; implementations that retain it must copy.
//
// RecvFunc runs on the driver's receive goroutine and must not block.
type RecvFunc func(rssi int, data []byte)

// PowerSaveMode selects the medium's power management policy.
type PowerSaveMode int

const (
	// PowerSaveNone keeps the receiver always on, for reliable reception.
	PowerSaveNone PowerSaveMode = iota

	// PowerSaveMax allows the medium to sleep aggressively. Suitable only
	// for send-only nodes, as frames arriving during sleep are lost.
	PowerSaveMax
)

// Driver abstracts the broadcast medium beneath the link state machine.
//
// The link calls the methods in a fixed bring-up order: EnsureStationMode,
// Start, SetChannel (standalone mode only), SetPowerSave, DeinitSession,
// InitSession, AddBroadcastPeer, then SetReceiveCallback when the node
// subscribes to anything. Drivers must tolerate DeinitSession before any
// InitSession and duplicate AddBroadcastPeer calls.
//
// All methods except Send and the receive callback are called from the
// link's goroutine only. Send may be called concurrently once the session
// is up.
type Driver interface {
	// EnsureStationMode puts the medium into the operating mode required
	// for peer-to-peer broadcast.
	EnsureStationMode() error

	// Start brings the medium up.
	Start() error

	// SetChannel pins the medium to the given channel. Only called in
	// standalone mode, where the link owns the channel.
	SetChannel(channel int) error

	// SetPowerSave applies the power management policy.
	SetPowerSave(mode PowerSaveMode) error

	// InitSession initialises the broadcast session on the current channel.
	InitSession() error

	// DeinitSession tears the broadcast session down. Not an error when no
	// session exists.
	DeinitSession() error

	// AddBroadcastPeer registers the all-peers broadcast destination on the
	// given channel. Re-registering an existing peer is not an error.
	AddBroadcastPeer(channel int) error

	// Send broadcasts one raw frame to all peers. Returns nil when the
	// frame was handed to the medium; delivery is never confirmed.
	Send(frame []byte) error

	// SetReceiveCallback installs fn as the receive callback, replacing any
	// previous one.
	SetReceiveCallback(fn RecvFunc) error

	// ClearReceiveCallback removes the receive callback. Frames arriving
	// afterwards are dropped by the driver.
	ClearReceiveCallback() error

	// Close releases all driver resources. The driver is unusable after.
	Close() error
}
