package pubsub

import (
	"errors"
	"fmt"
	"testing"
)

// fakeTransport implements Transport for node tests.
type fakeTransport struct {
	ready   bool
	lastErr error
	sendErr error
	sent    [][]byte
}

func (f *fakeTransport) Ready() bool { return f.ready }

func (f *fakeTransport) Send(frame []byte) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	buf := make([]byte, len(frame))
	copy(buf, frame)
	f.sent = append(f.sent, buf)
	return nil
}

func (f *fakeTransport) LastError() error { return f.lastErr }

func (f *fakeTransport) SendFailureStatus(err error) string {
	return fmt.Sprintf("Send failed: %v", err)
}

func TestNode_Publish(t *testing.T) {
	tr := &fakeTransport{ready: true}
	n := NewNode(Options{Name: "test-node"}, tr)

	n.Publish("sensors/temp", []byte("21.5"))

	if got := n.LastStatus(); got != "OK" {
		t.Errorf("LastStatus() = %q, want %q", got, "OK")
	}
	if got := n.SentCount(); got != 1 {
		t.Errorf("SentCount() = %d, want 1", got)
	}
	if len(tr.sent) != 1 {
		t.Fatalf("transport received %d frames, want 1", len(tr.sent))
	}

	topic, payload, err := DecodeFrame(tr.sent[0])
	if err != nil {
		t.Fatalf("sent frame does not decode: %v", err)
	}
	if topic != "sensors/temp" || string(payload) != "21.5" {
		t.Errorf("decoded frame = (%q, %q), want (sensors/temp, 21.5)", topic, payload)
	}
}

func TestNode_PublishBeforeReady(t *testing.T) {
	tr := &fakeTransport{ready: false, lastErr: errors.New("init pending")}
	n := NewNode(Options{}, tr)

	n.Publish("sensors/temp", []byte("21.5"))

	want := "ESP-NOW not initialized (code: init pending)"
	if got := n.LastStatus(); got != want {
		t.Errorf("LastStatus() = %q, want %q", got, want)
	}
	if got := n.SentCount(); got != 0 {
		t.Errorf("SentCount() = %d, want 0", got)
	}
	if len(tr.sent) != 0 {
		t.Errorf("transport received %d frames, want 0", len(tr.sent))
	}
}

func TestNode_PublishInvalidTopic(t *testing.T) {
	tests := []struct {
		name       string
		topic      string
		wantStatus string
	}{
		{
			name:       "empty topic",
			topic:      "",
			wantStatus: "Send failed: Invalid argument (empty topic)",
		},
		{
			name:       "topic with zero byte",
			topic:      "sensors\x00temp",
			wantStatus: "Send failed: Invalid argument (topic contains zero byte)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &fakeTransport{ready: true}
			n := NewNode(Options{}, tr)

			n.Publish(tt.topic, []byte("x"))

			if got := n.LastStatus(); got != tt.wantStatus {
				t.Errorf("LastStatus() = %q, want %q", got, tt.wantStatus)
			}
			if len(tr.sent) != 0 {
				t.Errorf("invalid topic reached the transport: %d frames", len(tr.sent))
			}
		})
	}
}

func TestNode_PublishSendFailure(t *testing.T) {
	tr := &fakeTransport{ready: true, sendErr: errors.New("peer not found")}
	n := NewNode(Options{}, tr)

	n.Publish("sensors/temp", []byte("x"))

	want := "Send failed: peer not found"
	if got := n.LastStatus(); got != want {
		t.Errorf("LastStatus() = %q, want %q", got, want)
	}
	if got := n.SentCount(); got != 0 {
		t.Errorf("SentCount() = %d, want 0", got)
	}
}

func TestNode_ReceiveAndDispatch(t *testing.T) {
	n := NewNode(Options{}, &fakeTransport{ready: true})

	type delivery struct {
		sub     string
		topic   string
		payload string
	}
	var deliveries []delivery
	record := func(sub string) Handler {
		return func(topic string, payload []byte) {
			deliveries = append(deliveries, delivery{sub, topic, string(payload)})
		}
	}

	n.Subscribe("sensors/#", record("hash"))
	n.Subscribe("sensors/+/temp", record("plus"))
	n.Subscribe("other/topic", record("other"))

	n.OnReceive(-42, EncodeFrame("sensors/kitchen/temp", []byte("21.5")))

	if got := n.ReceivedCount(); got != 1 {
		t.Errorf("ReceivedCount() = %d, want 1", got)
	}
	if got := n.LastRSSI(); got != -42 {
		t.Errorf("LastRSSI() = %d, want -42", got)
	}
	if got := n.QueueDepth(); got != 1 {
		t.Errorf("QueueDepth() = %d, want 1", got)
	}

	if got := n.ProcessDueMessages(); got != 1 {
		t.Fatalf("ProcessDueMessages() = %d, want 1", got)
	}

	// Both matching subscriptions fire, in registration order; the
	// non-matching one is skipped.
	if len(deliveries) != 2 {
		t.Fatalf("got %d deliveries, want 2: %+v", len(deliveries), deliveries)
	}
	if deliveries[0].sub != "hash" || deliveries[1].sub != "plus" {
		t.Errorf("dispatch order = [%s %s], want [hash plus]", deliveries[0].sub, deliveries[1].sub)
	}
	for _, d := range deliveries {
		if d.topic != "sensors/kitchen/temp" || d.payload != "21.5" {
			t.Errorf("delivery = %+v, want topic sensors/kitchen/temp payload 21.5", d)
		}
	}

	if got := n.QueueDepth(); got != 0 {
		t.Errorf("QueueDepth() after dispatch = %d, want 0", got)
	}
}

func TestNode_ReceiveMalformed(t *testing.T) {
	tests := []struct {
		name       string
		data       []byte
		wantStatus string
	}{
		{
			name:       "empty frame",
			data:       nil,
			wantStatus: "RX error: invalid len",
		},
		{
			name:       "no separator",
			data:       []byte("garbage"),
			wantStatus: "RX error: malformed message",
		},
		{
			name:       "separator as final byte",
			data:       EncodeFrame("topic", nil),
			wantStatus: "RX error: malformed message",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNode(Options{}, &fakeTransport{ready: true})

			n.OnReceive(0, tt.data)

			if got := n.LastStatus(); got != tt.wantStatus {
				t.Errorf("LastStatus() = %q, want %q", got, tt.wantStatus)
			}
			if got := n.ReceivedCount(); got != 0 {
				t.Errorf("ReceivedCount() = %d, want 0", got)
			}
			if got := n.QueueDepth(); got != 0 {
				t.Errorf("malformed frame was enqueued, QueueDepth() = %d", got)
			}
		})
	}
}

func TestNode_ReceiveOverflow(t *testing.T) {
	n := NewNode(Options{}, &fakeTransport{ready: true})

	for i := 0; i <= QueueCapacity; i++ {
		n.OnReceive(0, EncodeFrame(fmt.Sprintf("t/%d", i), []byte("x")))
	}

	want := "RX warning: queue full, dropped oldest"
	if got := n.LastStatus(); got != want {
		t.Errorf("LastStatus() = %q, want %q", got, want)
	}
	if got := n.OverflowCount(); got != 1 {
		t.Errorf("OverflowCount() = %d, want 1", got)
	}
	// Every frame was structurally valid, dropped or not.
	if got := n.ReceivedCount(); got != QueueCapacity+1 {
		t.Errorf("ReceivedCount() = %d, want %d", got, QueueCapacity+1)
	}
	if got := n.QueueDepth(); got != QueueCapacity {
		t.Errorf("QueueDepth() = %d, want %d", got, QueueCapacity)
	}

	// The oldest message is gone; t/1 is now at the head.
	dispatched := []string{}
	n.Subscribe("#", func(topic string, _ []byte) { dispatched = append(dispatched, topic) })
	n.ProcessDueMessages()

	if len(dispatched) != QueueCapacity {
		t.Fatalf("dispatched %d messages, want %d", len(dispatched), QueueCapacity)
	}
	if dispatched[0] != "t/1" {
		t.Errorf("head after overflow = %q, want %q", dispatched[0], "t/1")
	}
}

func TestNode_FlushHookRunsAfterBatch(t *testing.T) {
	n := NewNode(Options{}, &fakeTransport{ready: true})
	n.Subscribe("#", func(string, []byte) {})

	flushes := 0
	n.SetOnFlush(func() { flushes++ })

	n.OnReceive(0, EncodeFrame("a", []byte("1")))
	n.OnReceive(0, EncodeFrame("b", []byte("2")))

	// Drain the way Run does: process until idle, flushing per batch.
	for n.ProcessDueMessages() > 0 {
		n.flushDiagnostics()
	}

	if flushes == 0 {
		t.Error("flush hook never ran")
	}
}
