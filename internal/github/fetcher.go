package github

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/spigell/gh-screener/internal/logger"
)

// History is everything fetched for one user.
type History struct {
	User         string       `json:"user"`
	Repositories []Repository `json:"repositories"`
	// Commits are sorted newest first. Only the first PatchLimit carry a patch.
	Commits []Commit `json:"commits"`
	Patches int      `json:"patches_fetched"`
}

// FetchHistory lists all repositories of user, aggregates the commits the user
// authored in them, sorts them newest first and fetches patches for the
// newest PatchLimit commits.
func (c *Client) FetchHistory(ctx context.Context, user string) (*History, error) {
	c.logger.Info("fetching repositories", zap.String("user", user))

	repos, err := c.ListRepositories(ctx, user)
	if err != nil {
		return nil, err
	}

	c.logger.Info("found repositories", zap.String("user", user), zap.Int("count", len(repos)))

	var commits []Commit
	for i, repo := range repos {
		repoCommits, err := c.ListCommits(ctx, repo.Owner, repo.Name, user)
		if err != nil {
			return nil, err
		}

		c.logger.Debug("fetched commits",
			logger.RepoField(repo.Owner, repo.Name),
			zap.Int("repo_index", i+1),
			zap.Int("repos_total", len(repos)),
			zap.Int("count", len(repoCommits)),
		)

		commits = append(commits, repoCommits...)
	}

	SortCommits(commits)

	limit := c.PatchLimit
	if limit < 0 {
		limit = 0
	}
	limit = min(limit, len(commits))

	c.logger.Info("fetching patches",
		zap.String("user", user),
		zap.Int("commits", len(commits)),
		zap.Int("patches", limit),
	)

	for i := range commits[:limit] {
		cm := &commits[i]
		patch, err := c.CommitPatch(ctx, cm.Owner, cm.Repo, cm.SHA)
		if err != nil {
			return nil, fmt.Errorf("fetching patches of %s: %w", user, err)
		}
		cm.Patch = patch
	}

	return &History{
		User:         user,
		Repositories: repos,
		Commits:      commits,
		Patches:      limit,
	}, nil
}

// SortCommits orders commits by author date, newest first. Commits with equal
// dates keep their relative order.
func SortCommits(commits []Commit) {
	sort.SliceStable(commits, func(i, j int) bool {
		return commits[i].Date.After(commits[j].Date)
	})
}
