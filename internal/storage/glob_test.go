package storage

import "testing"

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern string
		s       string
		want    bool
	}{
		// Stars
		{"*", "", true},
		{"*", "anything", true},
		{"**", "a", true},
		{"a*", "a", true},
		{"a*", "abc", true},
		{"a*", "ba", false},
		{"*c", "abc", true},
		{"a*c", "abbbc", true},
		{"a*c", "abcd", false},
		{"*a*b*", "xxaxxbxx", true},
		{"*a*b*", "xxbxxaxx", false},
		{"user:*:name", "user:42:name", true},
		{"user:*:name", "user:42:age", false},

		// Question mark
		{"?", "a", true},
		{"?", "", false},
		{"h?llo", "hello", true},
		{"h?llo", "hllo", false},

		// Classes
		{"h[ae]llo", "hallo", true},
		{"h[ae]llo", "hello", true},
		{"h[ae]llo", "hillo", false},
		{"h[^e]llo", "hallo", true},
		{"h[^e]llo", "hello", false},
		{"h[a-b]llo", "hbllo", true},
		{"h[a-b]llo", "hcllo", false},
		{"h[b-a]llo", "hallo", true},
		{"[]", "a", false},
		{"[\\]]", "]", true},
		{"[a-", "-", true},
		{"[abc", "b", true},
		{"*[0-9]", "key7", true},
		{"*[0-9]", "keyx", false},

		// Escapes
		{"\\*", "*", true},
		{"\\*", "a", false},
		{"a\\?", "a?", true},
		{"a\\?", "ab", false},
		{"a\\", "a\\", true},

		// Literals
		{"foo", "foo", true},
		{"foo", "fo", false},
		{"foo", "fooo", false},
		{"", "", true},
		{"", "a", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.s, func(t *testing.T) {
			if got := Match([]byte(tt.pattern), []byte(tt.s)); got != tt.want {
				t.Errorf("Match(%q, %q) = %v, want %v", tt.pattern, tt.s, got, tt.want)
			}
		})
	}
}

func TestLiteralPrefix(t *testing.T) {
	tests := []struct {
		pattern string
		want    string
	}{
		{"*", ""},
		{"user:*", "user:"},
		{"user:?", "user:"},
		{"a[bc]", "a"},
		{"plain", "plain"},
		{"a\\*b*", "a*b"},
		{"end\\", "end\\"},
	}

	for _, tt := range tests {
		if got := string(LiteralPrefix([]byte(tt.pattern))); got != tt.want {
			t.Errorf("LiteralPrefix(%q) = %q, want %q", tt.pattern, got, tt.want)
		}
	}
}

func TestMatchesAll(t *testing.T) {
	if !MatchesAll([]byte("*")) || !MatchesAll([]byte("***")) {
		t.Error("star patterns should match all")
	}
	if MatchesAll([]byte("")) || MatchesAll([]byte("a*")) {
		t.Error("non-star patterns should not match all")
	}
}
