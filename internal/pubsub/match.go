package pubsub

import "strings"

// Matches reports whether a concrete topic matches a subscription pattern
// using MQTT-style wildcards:
//   - '#' matches all remaining topic levels (must be the last token)
//   - '+' matches exactly one topic level, of any value
//
// Example matches:
//
//	Matches("foo/bar/#", "foo/bar/baz/qux")  => true
//	Matches("foo/+/baz", "foo/x/baz")        => true
//	Matches("foo/+/baz", "foo/x/y/baz")      => false
//	Matches("foo/#", "foo")                  => true
//	Matches("foo/#", "foo/bar")              => true
//	Matches("foo/bar", "foo/bar")            => true
//	Matches("foo/bar", "foo/bar/baz")        => false
//
// The function is pure and total: malformed input never fails, it simply
// yields a deterministic result per the rules above.
func Matches(pattern, topic string) bool {
	pp, tp := 0, 0

	// Walk both strings token by token (split by '/') in lockstep.
	for pp < len(pattern) && tp < len(topic) {
		pn := strings.IndexByte(pattern[pp:], '/')
		tn := strings.IndexByte(topic[tp:], '/')

		var ptok string
		if pn < 0 {
			ptok = pattern[pp:]
		} else {
			ptok = pattern[pp : pp+pn]
		}
		var ttok string
		if tn < 0 {
			ttok = topic[tp:]
		} else {
			ttok = topic[tp : tp+tn]
		}

		switch {
		case ptok == "#":
			// '#' matches all remaining topic levels, but only as the final
			// token of the pattern (strict MQTT semantics). Position decides:
			// no scanning ahead.
			return pn < 0
		case ptok == "+":
			// '+' consumes exactly one topic level; advance both cursors.
		default:
			if ptok != ttok {
				return false
			}
		}

		if pn < 0 {
			pp = len(pattern)
		} else {
			pp += pn + 1
		}
		if tn < 0 {
			tp = len(topic)
		} else {
			tp += tn + 1
		}
	}

	// A trailing '#' matches any remaining topic levels, including zero:
	// "foo/#" matches "foo".
	if pp < len(pattern) && pattern[pp:] == "#" {
		return true
	}

	// Otherwise both sides must be fully consumed at the same point.
	return pp == len(pattern) && tp == len(topic)
}
