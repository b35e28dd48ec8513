// Package espnow provides the broadcast link layer for the pub/sub node.
//
// The link models a connectionless, unacknowledged broadcast radio in the
// style of ESP-NOW: every frame is sent to all peers listening on one
// shared channel, delivery is best-effort, and there is no session or
// retransmission. Link owns the bring-up state machine (uninitialized,
// initializing, ready, channel mismatch, failed) and exposes a small send
// and readiness surface to the node.
//
// The physical medium is abstracted behind the Driver interface. UDPDriver
// maps the radio onto IPv4 broadcast datagrams, with the channel number
// selecting a UDP port, so a set of processes on one LAN behaves like a
// set of devices on one radio channel. MemoryDriver is an in-process fake
// for tests.
//
// Channel ownership splits into two modes. In standalone mode the link
// owns the medium and pins it to the configured channel, so a mismatch
// cannot occur. In managed mode an external network stack owns the channel
// and the link can only observe it; when the observed channel differs from
// the configured one the link parks in the channel-mismatch state rather
// than silently broadcasting where no peer listens.
package espnow
