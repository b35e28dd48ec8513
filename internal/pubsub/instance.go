package pubsub

import "sync"

// The transport's receive hook needs to reach the one active node without
// capturing an instance at registration time: the hook outlives any single
// bring-up of the link and is re-registered across reinitialisations.
// Instead of ad hoc global state, the process-wide instance lives behind an
// explicit registry the hook resolves at call time.
//
// Lifecycle: SetActive when the node is wired up at startup, ClearActive at
// teardown. The registry holds a reference, not ownership.
var (
	activeMu sync.RWMutex
	active   *Node
)

// SetActive registers n as the process-wide active node.
func SetActive(n *Node) {
	activeMu.Lock()
	active = n
	activeMu.Unlock()
}

// Active returns the process-wide active node, or nil when none is
// registered. Safe to call from the transport receive goroutine.
func Active() *Node {
	activeMu.RLock()
	defer activeMu.RUnlock()
	return active
}

// ClearActive removes the process-wide active node registration.
func ClearActive() {
	activeMu.Lock()
	active = nil
	activeMu.Unlock()
}
