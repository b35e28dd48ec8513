// Package automation provides the rule engine for the pub/sub node.
//
// Rules bind subscription patterns to lists of actions. When a received
// message matches a rule's pattern, its actions run in order: log the
// message, publish a derived message back onto the broadcast medium, or
// forward it to the MQTT uplink bridge.
//
// The package also hosts periodic publishers, which broadcast a templated
// payload on a fixed interval (heartbeats, sensor polls).
//
// # Payload Templates
//
// Publish actions and periodic publishers support a small placeholder
// syntax in payloads and topics:
//
//	${topic}   - the triggering message's topic
//	${payload} - the triggering message's payload
//	${now}     - the current time in RFC 3339
//
// # Thread Safety
//
// The engine is configured once at startup and is then safe for
// concurrent use: handlers run on the dispatcher loop, periodic
// publishers on their own goroutines.
package automation
