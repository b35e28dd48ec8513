package pubsub

import "testing"

func TestMatches(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		topic   string
		want    bool
	}{
		// ==============================
		// Exact matching
		// ==============================
		{"exact single level", "foo", "foo", true},
		{"exact multi level", "foo/bar/baz", "foo/bar/baz", true},
		{"literal mismatch", "foo/bar", "foo/baz", false},
		{"topic longer than pattern", "foo/bar", "foo/bar/baz", false},
		{"pattern longer than topic", "foo/bar/baz", "foo/bar", false},

		// ==============================
		// Single-level wildcard '+'
		// ==============================
		{"plus matches one level", "foo/+/baz", "foo/x/baz", true},
		{"plus does not span levels", "foo/+/baz", "foo/x/y/baz", false},
		{"plus at start", "+/bar", "foo/bar", true},
		{"plus at end", "foo/+", "foo/bar", true},
		{"plus at end needs a level", "foo/+", "foo", false},
		{"plus alone", "+", "foo", true},
		{"plus alone rejects multi level", "+", "foo/bar", false},
		{"multiple plus", "+/+/c", "a/b/c", true},

		// ==============================
		// Multi-level wildcard '#'
		// ==============================
		{"hash matches deeper levels", "foo/bar/#", "foo/bar/baz/qux", true},
		{"hash matches one level", "foo/#", "foo/bar", true},
		{"hash matches zero levels", "foo/#", "foo", true},
		{"hash alone matches anything", "#", "foo/bar/baz", true},
		{"hash alone matches single level", "#", "foo", true},
		{"hash must be last token", "foo/#/bar", "foo/x/bar", false},
		{"hash mid pattern never matches deeper", "foo/#/bar", "foo/a/b/bar", false},

		// ==============================
		// Combined wildcards
		// ==============================
		{"plus then hash", "foo/+/#", "foo/x/y/z", true},
		{"plus then hash needs the plus level", "foo/+/#", "foo", false},

		// ==============================
		// Degenerate input
		// ==============================
		{"empty pattern empty topic", "", "", true},
		{"empty pattern nonempty topic", "", "foo", false},
		{"nonempty pattern empty topic", "foo", "", false},
		{"hash against empty topic", "#", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.pattern, tt.topic); got != tt.want {
				t.Errorf("Matches(%q, %q) = %v, want %v", tt.pattern, tt.topic, got, tt.want)
			}
		})
	}
}
