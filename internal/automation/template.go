package automation

import (
	"strings"
	"time"
)

// Message is the triggering message a template expands against. Periodic
// publishers expand against a zero Message.
type Message struct {
	Topic   string
	Payload []byte
}

// Expand substitutes the supported placeholders in tpl.
//
// Placeholders:
//   - ${topic}: msg.Topic
//   - ${payload}: msg.Payload as a string
//   - ${now}: current time, RFC 3339
//
// Unknown placeholders are left untouched.
func Expand(tpl string, msg Message) string {
	if !strings.Contains(tpl, "${") {
		return tpl
	}
	r := strings.NewReplacer(
		"${topic}", msg.Topic,
		"${payload}", string(msg.Payload),
		"${now}", time.Now().UTC().Format(time.RFC3339),
	)
	return r.Replace(tpl)
}
