package logger

import "testing"

func TestTruncateForLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		limit  int
		expect string
	}{
		{name: "non-positive limit", input: "hello world", limit: 0, expect: ""},
		{name: "fits", input: "hello", limit: 10, expect: "hello"},
		{name: "cut with ellipsis", input: "hello world", limit: 5, expect: "hello..."},
		{name: "surrounding whitespace", input: "  spaced  ", limit: 5, expect: "space..."},
		{name: "multi-line prompt", input: "JOB REQUIREMENTS:\n- Title: Go\n\n- Level:  senior", limit: 100, expect: "JOB REQUIREMENTS: - Title: Go - Level: senior"},
		{name: "counts runes", input: "привет мир", limit: 6, expect: "привет..."},
		{name: "fenced reply", input: "```json\n{\"a\": 1}\n```", limit: 12, expect: "```json {\"a\"..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := TruncateForLog(tt.input, tt.limit); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}
