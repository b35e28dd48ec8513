package diagnostics

import (
	"time"

	"github.com/megageek/esphome-espnow-pubsub/internal/espnow"
	"github.com/megageek/esphome-espnow-pubsub/internal/pubsub"
)

// Snapshot is a point-in-time view of the node and its link, suitable for
// JSON serialisation in the diagnostics API.
type Snapshot struct {
	Node              string    `json:"node"`
	Timestamp         time.Time `json:"timestamp"`
	LinkState         string    `json:"link_state"`
	LinkStatus        string    `json:"link_status"`
	LastStatus        string    `json:"last_status"`
	ObservedChannel   int       `json:"observed_channel"`
	ChannelCompatible bool      `json:"channel_compatible"`
	SentCount         uint64    `json:"sent_count"`
	ReceivedCount     uint64    `json:"received_count"`
	OverflowCount     uint64    `json:"overflow_count"`
	QueueDepth        int       `json:"queue_depth"`
	LastRSSI          int       `json:"last_rssi"`
	Subscriptions     []string  `json:"subscriptions"`
}

// Collect assembles a snapshot from the node and link.
func Collect(node *pubsub.Node, link *espnow.Link) Snapshot {
	return Snapshot{
		Node:              node.Name(),
		Timestamp:         time.Now().UTC(),
		LinkState:         link.State().String(),
		LinkStatus:        link.LastStatus(),
		LastStatus:        node.LastStatus(),
		ObservedChannel:   link.ObservedChannel(),
		ChannelCompatible: link.ChannelCompatible(),
		SentCount:         node.SentCount(),
		ReceivedCount:     node.ReceivedCount(),
		OverflowCount:     node.OverflowCount(),
		QueueDepth:        node.QueueDepth(),
		LastRSSI:          node.LastRSSI(),
		Subscriptions:     node.Registry().Patterns(),
	}
}
