package ai

import (
	"strings"
	"testing"
	"time"

	"github.com/spigell/gh-screener/internal/github"
)

func TestTruncatePatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		patch string
		want  string
	}{
		{name: "short passes through", patch: "diff", want: "diff"},
		{name: "exact limit passes through", patch: strings.Repeat("a", MaxPatchChars), want: strings.Repeat("a", MaxPatchChars)},
		{name: "long is cut", patch: strings.Repeat("b", MaxPatchChars+1), want: strings.Repeat("b", MaxPatchChars) + TruncationMarker},
		{name: "counts characters not bytes", patch: strings.Repeat("й", MaxPatchChars), want: strings.Repeat("й", MaxPatchChars)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := TruncatePatch(tt.patch, MaxPatchChars); got != tt.want {
				t.Fatalf("unexpected result of length %d, want length %d", len(got), len(tt.want))
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	commits := []github.Commit{
		{
			SHA:     "0123456789abcdef",
			Repo:    "tool",
			Owner:   "alice",
			Date:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
			Message: "feat: add cache",
			Patch:   strings.Repeat("x", MaxPatchChars+10),
		},
		{SHA: "abc", Repo: "site", Date: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), Message: "init"},
	}

	got := Summarize(commits)
	if len(got) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(got))
	}

	if got[0].SHA != "0123456" {
		t.Fatalf("expected short sha, got %q", got[0].SHA)
	}
	if got[0].Date != "2024-05-01T12:00:00Z" {
		t.Fatalf("unexpected date %q", got[0].Date)
	}
	if !strings.HasSuffix(got[0].Patch, TruncationMarker) {
		t.Fatalf("expected truncated patch")
	}
	if got[1].SHA != "abc" || got[1].Patch != "" {
		t.Fatalf("unexpected second summary: %+v", got[1])
	}

	text := FormatCommits(got)
	if !strings.Contains(text, "--- Commit 0123456 in tool (2024-05-01T12:00:00Z) ---") {
		t.Fatalf("missing commit header in %q", text)
	}
	if strings.Count(text, "Code Changes:") != 1 {
		t.Fatalf("expected code changes only for the commit with a patch")
	}
}
