package pubsub

import "testing"

func TestRegistry_RegistrationOrder(t *testing.T) {
	r := NewRegistry()

	var order []string
	r.Register("a/#", func(topic string, _ []byte) { order = append(order, "first") })
	r.Register("a/+", func(topic string, _ []byte) { order = append(order, "second") })
	r.Register("b/#", func(topic string, _ []byte) { order = append(order, "third") })

	if got := r.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}

	patterns := r.Patterns()
	want := []string{"a/#", "a/+", "b/#"}
	for i, p := range want {
		if patterns[i] != p {
			t.Errorf("Patterns()[%d] = %q, want %q", i, patterns[i], p)
		}
	}

	// Subscriptions iterate in insertion order.
	for _, sub := range r.Subscriptions() {
		if Matches(sub.Pattern, "a/x") {
			sub.Handler("a/x", nil)
		}
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("dispatch order = %v, want [first second]", order)
	}
}

func TestRegistry_DuplicatePatternFiresTwice(t *testing.T) {
	r := NewRegistry()

	calls := 0
	r.Register("dup/topic", func(string, []byte) { calls++ })
	r.Register("dup/topic", func(string, []byte) { calls++ })

	for _, sub := range r.Subscriptions() {
		if Matches(sub.Pattern, "dup/topic") {
			sub.Handler("dup/topic", nil)
		}
	}

	if calls != 2 {
		t.Errorf("duplicate pattern fired %d times, want 2", calls)
	}
}
