package report

import (
	"fmt"
	"strings"

	"github.com/spigell/gh-screener/internal/github"
)

const commitDateLayout = "2006-01-02 15:04"

// Commit renders one commit as a header line, followed by its patch when one
// was fetched.
func Commit(c github.Commit) string {
	message, _, _ := strings.Cut(c.Message, "\n")

	sha := c.SHA
	if len(sha) > 7 {
		sha = sha[:7]
	}

	header := fmt.Sprintf("[%s] %s | %s | %s", c.Date.UTC().Format(commitDateLayout), c.Repo, sha, message)
	if c.Patch == "" {
		return header
	}

	return header + "\n" + strings.Repeat("-", commitWidth) + "\n" + c.Patch + "\n" + strings.Repeat("=", commitWidth)
}

// CommitLog renders the full commit dump of a user.
func CommitLog(history *github.History) string {
	var b strings.Builder

	fmt.Fprintf(&b, "GitHub Commits for %s\n", history.User)
	fmt.Fprintf(&b, "Total: %d commits\n", len(history.Commits))
	b.WriteString(strings.Repeat("=", commitWidth))
	b.WriteString("\n\n")

	for i, c := range history.Commits {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(Commit(c))
	}

	return b.String()
}
