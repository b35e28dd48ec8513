// Package mqttbridge uplinks the broadcast pub/sub mesh to an MQTT broker.
//
// The bridge is optional and one-process wide. It forwards selected
// received messages up to the broker (driven by "bridge" rule actions)
// and republishes broker messages down onto the broadcast medium, so a
// home automation stack can reach battery nodes that only speak the
// broadcast protocol.
//
// # Topic Scheme
//
// With prefix P and node name N:
//
//	uplink:   P/N/up/<topic>    (mesh -> broker)
//	downlink: P/N/down/<topic>  (broker -> mesh, republished as <topic>)
//
// # Delivery Semantics
//
// The mesh side stays fire-and-forget: a downlink message is handed to
// the node's Publish and inherits its best-effort semantics. The broker
// side uses the configured QoS.
package mqttbridge
