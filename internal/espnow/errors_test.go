package espnow

import (
	"errors"
	"fmt"
	"testing"
)

func TestSendFailureStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not initialized", ErrNotInitialized, "Send failed: ESP-NOW not initialized"},
		{"invalid argument", ErrInvalidArgument, "Send failed: Invalid argument"},
		{"internal", ErrInternal, "Send failed: Internal error"},
		{"out of memory", ErrOutOfMemory, "Send failed: Out of memory"},
		{"peer not found", ErrPeerNotFound, "Send failed: Peer not found"},
		{
			name: "wrapped sentinel still maps",
			err:  fmt.Errorf("broadcast: %w", ErrPeerNotFound),
			want: "Send failed: Peer not found",
		},
		{
			name: "unknown error falls through",
			err:  errors.New("socket gone"),
			want: "Send failed: socket gone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SendFailureStatus(tt.err); got != tt.want {
				t.Errorf("SendFailureStatus(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}
