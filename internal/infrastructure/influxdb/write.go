package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteNodeCounters writes the node's message counters.
//
// This is the primary method for recording pub/sub throughput. The write
// is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - node: Node name (e.g., "greenhouse-01")
//   - sent: Messages successfully broadcast
//   - received: Structurally valid frames received
//   - overflows: Drop-oldest queue evictions
//   - queueDepth: Current receive-queue depth
func (c *Client) WriteNodeCounters(node string, sent, received, overflows uint64, queueDepth int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"node_counters",
		map[string]string{
			"node": node,
		},
		map[string]interface{}{
			"sent":        int64(sent),
			"received":    int64(received),
			"overflows":   int64(overflows),
			"queue_depth": queueDepth,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteLinkState writes the broadcast link's state.
//
// Parameters:
//   - node: Node name
//   - state: Link state name (e.g., "ready", "channel_mismatch")
//   - channel: The channel observed on the medium
//   - compatible: Whether the observed channel matches the configured one
func (c *Client) WriteLinkState(node string, state string, channel int, compatible bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"link_state",
		map[string]string{
			"node":  node,
			"state": state,
		},
		map[string]interface{}{
			"channel":    channel,
			"compatible": compatible,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteRSSI writes the signal strength of the most recent received frame.
//
// Parameters:
//   - node: Node name
//   - rssi: Signal strength in dBm, or 0 when the medium cannot measure it
func (c *Client) WriteRSSI(node string, rssi int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"rssi",
		map[string]string{
			"node": node,
		},
		map[string]interface{}{
			"value": rssi,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "node-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
