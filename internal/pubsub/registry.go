package pubsub

// Handler is the callback invoked for each message matching a subscription.
//
// Handlers run on the dispatcher loop, never on the receive path. They
// should not block for extended periods as this delays the rest of the
// batch.
type Handler func(topic string, payload []byte)

// Subscription binds a wildcard pattern to a callback. Entries are
// immutable once registered.
type Subscription struct {
	Pattern string
	Handler Handler
}

// Registry holds pattern→callback bindings in registration order.
//
// The registry is append-only: entries are registered during setup, before
// the receive path is live, and there is no runtime unsubscribe. Dispatch
// iterates entries in insertion order, which makes callback invocation
// order deterministic and stable.
//
// Because all mutation happens before concurrent receive can occur, the
// registry needs no locking.
type Registry struct {
	subs []Subscription
}

// NewRegistry creates an empty subscription registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a subscription for the given pattern. No deduplication
// and no priority: a pattern registered twice fires twice, in order.
func (r *Registry) Register(pattern string, handler Handler) {
	r.subs = append(r.subs, Subscription{Pattern: pattern, Handler: handler})
}

// Len returns the number of registered subscriptions.
func (r *Registry) Len() int {
	return len(r.subs)
}

// Subscriptions returns the registered entries in registration order.
// The returned slice is the registry's backing store; callers must not
// mutate it.
func (r *Registry) Subscriptions() []Subscription {
	return r.subs
}

// Patterns returns the registered patterns in registration order.
// Used for configuration dumps and diagnostics.
func (r *Registry) Patterns() []string {
	patterns := make([]string, 0, len(r.subs))
	for _, sub := range r.subs {
		patterns = append(patterns, sub.Pattern)
	}
	return patterns
}
