package moderation

import "testing"

func TestMatchGlobWhitespaceResetDeviation(t *testing.T) {
	cases := []struct {
		pattern, input string
		want            bool
	}{
		{"cat", "concatenate", false},
		{"*cat*", "a cat b", true},
		{"*cat*", "concatenate", true},
		{"cat", "cat", true},
		{"c?t", "cat", true},
		{"c?t", "ct", false},
		{"*", "anything at all", true},
		{"hello*world", "hello world", false},
		{"hello *world", "hello   world", false},
		{"spam", "this is spam", true},
		{"spam", "is this spam ok", true},
	}
	for _, c := range cases {
		if got := MatchGlob(c.pattern, c.input); got != c.want {
			t.Errorf("MatchGlob(%q, %q) = %v, want %v", c.pattern, c.input, got, c.want)
		}
	}
}
