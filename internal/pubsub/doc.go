// Package pubsub implements the topic-based publish/subscribe core of the
// ESP-NOW pub/sub node.
//
// This package provides:
//   - MQTT-style wildcard topic matching ('+' single level, '#' multi level)
//   - An append-only subscription registry with deterministic dispatch order
//   - A bounded drop-oldest receive queue bridging the driver receive
//     goroutine and the dispatcher loop
//   - The topic\0payload wire frame codec
//   - The Node, which ties publish, receive and dispatch together
//
// # Architecture
//
// Messages arrive on the transport's receive goroutine, which is treated the
// way an interrupt context is treated on the original hardware: the receive
// path only validates, decodes and enqueues. All matching and callback
// invocation happens on the dispatcher loop (Node.Run), which drains the
// queue one whole batch at a time.
//
//	driver receive → DecodeFrame → queue → Node.Run → Matches → handlers
//
// The queue is the only structure shared between the two contexts. The
// registry is populated during setup, before the receive path is live, and
// is never locked.
//
// # Delivery Semantics
//
// Delivery is best-effort broadcast: no acknowledgment, no retry, no ordering
// guarantee beyond receipt order on a single node. Failures degrade to a
// recorded status string and counters; nothing in this package raises a
// fatal error.
package pubsub
