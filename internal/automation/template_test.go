package automation

import (
	"strings"
	"testing"
	"time"
)

func TestExpand(t *testing.T) {
	msg := Message{Topic: "sensors/kitchen/temp", Payload: []byte("21.5")}

	tests := []struct {
		name string
		tpl  string
		want string
	}{
		{"no placeholders", "plain text", "plain text"},
		{"topic", "from ${topic}", "from sensors/kitchen/temp"},
		{"payload", "value=${payload}", "value=21.5"},
		{"both", "${topic}=${payload}", "sensors/kitchen/temp=21.5"},
		{"unknown placeholder untouched", "${nope}", "${nope}"},
		{"empty template", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Expand(tt.tpl, msg); got != tt.want {
				t.Errorf("Expand(%q) = %q, want %q", tt.tpl, got, tt.want)
			}
		})
	}
}

func TestExpand_Now(t *testing.T) {
	got := Expand("at ${now}", Message{})

	rest := strings.TrimPrefix(got, "at ")
	if rest == got {
		t.Fatalf("Expand() = %q, want it to keep the literal prefix", got)
	}
	if _, err := time.Parse(time.RFC3339, rest); err != nil {
		t.Errorf("${now} expanded to %q, not RFC 3339: %v", rest, err)
	}
}

func TestExpand_ZeroMessage(t *testing.T) {
	// Periodic publishers expand against a zero message.
	if got := Expand("${topic}|${payload}", Message{}); got != "|" {
		t.Errorf("Expand() against zero message = %q, want %q", got, "|")
	}
}
