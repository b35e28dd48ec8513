package mqttbridge

import "strings"

// Topics builds the bridge's MQTT topic strings from the configured
// prefix and node name.
type Topics struct {
	Prefix string
	Node   string
}

// Up returns the broker topic a mesh message is forwarded to.
//
// Example: Topics{"espnow", "greenhouse-01"}.Up("sensor/temp")
// returns "espnow/greenhouse-01/up/sensor/temp".
func (t Topics) Up(topic string) string {
	return t.Prefix + "/" + t.Node + "/up/" + topic
}

// DownPattern returns the wildcard subscription covering all downlink
// topics for this node.
func (t Topics) DownPattern() string {
	return t.Prefix + "/" + t.Node + "/down/#"
}

// FromDown extracts the mesh topic from a downlink broker topic. Returns
// false when the topic is not under this node's downlink tree or the
// remainder is empty.
func (t Topics) FromDown(brokerTopic string) (string, bool) {
	prefix := t.Prefix + "/" + t.Node + "/down/"
	rest, ok := strings.CutPrefix(brokerTopic, prefix)
	if !ok || rest == "" {
		return "", false
	}
	return rest, true
}
