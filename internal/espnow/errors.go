package espnow

import (
	"errors"
	"fmt"
)

// Sentinel errors for driver and link operations. Drivers wrap these with
// operation detail via fmt.Errorf("%w: ..."); callers test with errors.Is.
var (
	// ErrNotInitialized indicates a send or session operation before the
	// broadcast session was brought up.
	ErrNotInitialized = errors.New("session not initialized")

	// ErrInvalidArgument indicates a malformed request to the driver, such
	// as an out-of-range channel or a nil frame.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInternal indicates an unexpected failure inside the driver.
	ErrInternal = errors.New("internal driver error")

	// ErrOutOfMemory indicates the driver could not allocate resources for
	// the operation.
	ErrOutOfMemory = errors.New("out of memory")

	// ErrPeerNotFound indicates a send was attempted before the broadcast
	// peer was registered.
	ErrPeerNotFound = errors.New("peer not found")

	// ErrChannelMismatch indicates the externally managed channel differs
	// from the configured one.
	ErrChannelMismatch = errors.New("channel mismatch")

	// ErrLinkClosed indicates the link was shut down.
	ErrLinkClosed = errors.New("link closed")
)

// SendFailureStatus maps a Send error to the human-readable status line
// recorded in diagnostics. Unrecognised errors fall through to a generic
// form carrying the error text.
func SendFailureStatus(err error) string {
	switch {
	case errors.Is(err, ErrNotInitialized):
		return "Send failed: ESP-NOW not initialized"
	case errors.Is(err, ErrInvalidArgument):
		return "Send failed: Invalid argument"
	case errors.Is(err, ErrInternal):
		return "Send failed: Internal error"
	case errors.Is(err, ErrOutOfMemory):
		return "Send failed: Out of memory"
	case errors.Is(err, ErrPeerNotFound):
		return "Send failed: Peer not found"
	default:
		return fmt.Sprintf("Send failed: %v", err)
	}
}
