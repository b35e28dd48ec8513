package espnow

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// DefaultBasePort is the UDP port corresponding to channel 0. Channel n
// maps to DefaultBasePort+n, so the 14 radio channels occupy a contiguous
// port range.
const DefaultBasePort = 47200

// maxFrameSize bounds a received datagram. The radio this driver emulates
// carries at most 250 bytes per frame, but the UDP medium is not enforced
// to that; oversized datagrams are truncated at the buffer and dropped by
// frame validation upstream.
const maxFrameSize = 2048

// UDPDriverConfig configures a UDPDriver.
type UDPDriverConfig struct {
	// BindHost is the local address to listen on. Empty means all
	// interfaces.
	BindHost string

	// BasePort is the port for channel 0. Zero means DefaultBasePort.
	BasePort int

	// BroadcastAddr is the IPv4 address frames are broadcast to. Empty
	// means the limited broadcast address 255.255.255.255.
	BroadcastAddr string
}

// UDPDriver maps the broadcast radio onto IPv4 UDP broadcast.
//
// The channel number selects a UDP port (BasePort+channel), so processes
// listening on different channels never hear each other, mirroring radio
// channel isolation. Frames are sent to the limited broadcast address,
// the datagram analogue of the all-ones peer address, from a separate
// ephemeral-port socket; datagrams looped back from that socket's own
// port are discarded so a node does not receive its own broadcasts.
//
// The listening socket sets SO_REUSEADDR and SO_REUSEPORT so several
// nodes on one host can share a channel, and the sending socket sets
// SO_BROADCAST, which the net package does not enable by default.
//
// RSSI is not measurable over UDP and is reported as 0.
type UDPDriver struct {
	cfg UDPDriverConfig

	mu        sync.Mutex
	started   bool
	channel   int
	sessionUp bool
	peerAdded bool
	recvConn  *net.UDPConn
	sendConn  *net.UDPConn
	dest      *net.UDPAddr
	recvFn    RecvFunc
	powerSave PowerSaveMode
	closed    bool

	readerDone chan struct{}
}

// NewUDPDriver creates a UDP broadcast driver. The sockets are opened
// lazily: the receive socket when the session comes up, the send socket
// when the broadcast peer is registered.
func NewUDPDriver(cfg UDPDriverConfig) *UDPDriver {
	if cfg.BasePort == 0 {
		cfg.BasePort = DefaultBasePort
	}
	if cfg.BroadcastAddr == "" {
		cfg.BroadcastAddr = "255.255.255.255"
	}
	return &UDPDriver{cfg: cfg}
}

// EnsureStationMode is a no-op on the datagram medium; the socket layer
// has no mode concept.
func (d *UDPDriver) EnsureStationMode() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrInternal
	}
	return nil
}

// Start marks the medium up. Sockets open on InitSession, once the
// channel is known.
func (d *UDPDriver) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrInternal
	}
	d.started = true
	return nil
}

// SetChannel selects the channel and, if a session is already up, rebinds
// the receive socket to the channel's port.
func (d *UDPDriver) SetChannel(channel int) error {
	if channel < 1 || channel > 14 {
		return fmt.Errorf("%w: channel %d out of range 1-14", ErrInvalidArgument, channel)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrInternal
	}
	if d.channel == channel {
		return nil
	}
	d.channel = channel
	if d.sessionUp {
		d.teardownRecvLocked()
		if err := d.setupRecvLocked(); err != nil {
			return err
		}
	}
	return nil
}

// SetPowerSave records the power policy. Datagram sockets have no modem
// sleep, so this only affects diagnostics.
func (d *UDPDriver) SetPowerSave(mode PowerSaveMode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrInternal
	}
	d.powerSave = mode
	return nil
}

// PowerSave returns the recorded power policy.
func (d *UDPDriver) PowerSave() PowerSaveMode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.powerSave
}

// InitSession opens the receive socket on the current channel's port and
// starts the read loop.
func (d *UDPDriver) InitSession() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrInternal
	}
	if !d.started {
		return fmt.Errorf("%w: medium not started", ErrNotInitialized)
	}
	if d.channel == 0 {
		return fmt.Errorf("%w: channel not set", ErrInvalidArgument)
	}
	if d.sessionUp {
		return nil
	}
	if err := d.setupRecvLocked(); err != nil {
		return err
	}
	d.sessionUp = true
	return nil
}

// DeinitSession closes the receive socket and stops the read loop. Not an
// error when no session exists.
func (d *UDPDriver) DeinitSession() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.teardownRecvLocked()
	d.sessionUp = false
	return nil
}

// AddBroadcastPeer opens the sending socket aimed at the broadcast
// address on the channel's port. Re-registering is a no-op.
func (d *UDPDriver) AddBroadcastPeer(channel int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrInternal
	}
	if !d.sessionUp {
		return fmt.Errorf("%w: no session", ErrNotInitialized)
	}
	if d.peerAdded && channel == d.channel {
		return nil
	}

	ip := net.ParseIP(d.cfg.BroadcastAddr)
	if ip == nil {
		return fmt.Errorf("%w: bad broadcast address %q", ErrInvalidArgument, d.cfg.BroadcastAddr)
	}
	dest := &net.UDPAddr{IP: ip, Port: d.cfg.BasePort + channel}

	if d.sendConn == nil {
		conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
		if err != nil {
			return fmt.Errorf("%w: open send socket: %v", ErrInternal, err)
		}
		if err := setBroadcast(conn); err != nil {
			conn.Close()
			return fmt.Errorf("%w: enable broadcast: %v", ErrInternal, err)
		}
		d.sendConn = conn
	}
	d.dest = dest
	d.peerAdded = true
	return nil
}

// Send broadcasts one frame to all peers on the channel.
func (d *UDPDriver) Send(frame []byte) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrInternal
	}
	if !d.sessionUp {
		d.mu.Unlock()
		return fmt.Errorf("%w: no session", ErrNotInitialized)
	}
	if !d.peerAdded || d.sendConn == nil {
		d.mu.Unlock()
		return fmt.Errorf("%w: broadcast peer not registered", ErrPeerNotFound)
	}
	if len(frame) == 0 {
		d.mu.Unlock()
		return fmt.Errorf("%w: empty frame", ErrInvalidArgument)
	}
	conn := d.sendConn
	dest := d.dest
	d.mu.Unlock()

	if _, err := conn.WriteToUDP(frame, dest); err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return nil
}

// SetReceiveCallback installs fn for frames read off the socket.
func (d *UDPDriver) SetReceiveCallback(fn RecvFunc) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrInternal
	}
	d.recvFn = fn
	return nil
}

// ClearReceiveCallback removes the receive callback.
func (d *UDPDriver) ClearReceiveCallback() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recvFn = nil
	return nil
}

// Close tears everything down.
func (d *UDPDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.teardownRecvLocked()
	if d.sendConn != nil {
		d.sendConn.Close()
		d.sendConn = nil
	}
	return nil
}

// setupRecvLocked opens the listening socket for the current channel and
// launches the read loop. Caller holds d.mu.
func (d *UDPDriver) setupRecvLocked() error {
	port := d.cfg.BasePort + d.channel
	addr := net.JoinHostPort(d.cfg.BindHost, strconv.Itoa(port))

	lc := net.ListenConfig{Control: reusePortControl}
	packetConn, err := lc.ListenPacket(context.Background(), "udp4", addr)
	if err != nil {
		return fmt.Errorf("%w: listen %s: %v", ErrInternal, addr, err)
	}
	conn, ok := packetConn.(*net.UDPConn)
	if !ok {
		packetConn.Close()
		return fmt.Errorf("%w: unexpected socket type %T", ErrInternal, packetConn)
	}

	d.recvConn = conn
	d.readerDone = make(chan struct{})
	go d.readLoop(conn, d.readerDone)
	return nil
}

// teardownRecvLocked closes the listening socket and waits for the read
// loop to exit. Caller holds d.mu.
func (d *UDPDriver) teardownRecvLocked() {
	if d.recvConn == nil {
		return
	}
	d.recvConn.Close()
	done := d.readerDone
	d.recvConn = nil
	d.readerDone = nil
	d.mu.Unlock()
	<-done
	d.mu.Lock()
}

// readLoop delivers datagrams to the receive callback until the socket
// closes. Loopback of this process's own broadcasts is filtered by source
// port: sends leave from a dedicated ephemeral-port socket, so a datagram
// sourced from that port is our own.
func (d *UDPDriver) readLoop(conn *net.UDPConn, done chan struct{}) {
	defer close(done)
	buf := make([]byte, maxFrameSize)
	for {
		n, src, err := conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}

		d.mu.Lock()
		ownPort := 0
		if d.sendConn != nil {
			if la, ok := d.sendConn.LocalAddr().(*net.UDPAddr); ok {
				ownPort = la.Port
			}
		}
		fn := d.recvFn
		d.mu.Unlock()

		if src != nil && ownPort != 0 && src.Port == ownPort {
			continue
		}
		if fn != nil {
			fn(0, buf[:n])
		}
	}
}

// setBroadcast enables SO_BROADCAST on the sending socket. The net
// package leaves it off, and limited-broadcast sends fail without it.
func setBroadcast(conn *net.UDPConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}

// reusePortControl sets SO_REUSEADDR and SO_REUSEPORT before bind so
// multiple nodes on one host can share a channel's port.
func reusePortControl(network, address string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			sockErr = err
			return
		}
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}
