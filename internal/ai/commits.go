package ai

import (
	"fmt"
	"strings"
	"time"

	"github.com/spigell/gh-screener/internal/github"
)

const (
	// MaxPatchChars bounds a single patch in the prompt.
	MaxPatchChars = 3000
	// TruncationMarker is appended to patches cut at MaxPatchChars.
	TruncationMarker = "\n... (truncated)"

	shortSHALen = 7
)

// CommitSummary is the prompt-ready form of a commit.
type CommitSummary struct {
	SHA     string `json:"sha"`
	Repo    string `json:"repo"`
	Date    string `json:"date"`
	Message string `json:"message"`
	Patch   string `json:"patch"`
}

// TruncatePatch cuts patches longer than limit characters and appends
// TruncationMarker. Shorter patches are returned unchanged.
func TruncatePatch(patch string, limit int) string {
	runes := []rune(patch)
	if len(runes) <= limit {
		return patch
	}
	return string(runes[:limit]) + TruncationMarker
}

// Summarize converts fetched commits, keeping their order.
func Summarize(commits []github.Commit) []CommitSummary {
	out := make([]CommitSummary, 0, len(commits))
	for _, c := range commits {
		sha := c.SHA
		if len(sha) > shortSHALen {
			sha = sha[:shortSHALen]
		}

		out = append(out, CommitSummary{
			SHA:     sha,
			Repo:    c.Repo,
			Date:    c.Date.UTC().Format(time.RFC3339),
			Message: c.Message,
			Patch:   TruncatePatch(c.Patch, MaxPatchChars),
		})
	}
	return out
}

// FormatCommits renders summaries as the commit block of a prompt.
func FormatCommits(commits []CommitSummary) string {
	var b strings.Builder
	for _, c := range commits {
		fmt.Fprintf(&b, "\n--- Commit %s in %s (%s) ---\n", c.SHA, c.Repo, c.Date)
		fmt.Fprintf(&b, "Message: %s\n", c.Message)
		if c.Patch != "" {
			fmt.Fprintf(&b, "Code Changes:\n%s\n", c.Patch)
		}
	}
	return b.String()
}
