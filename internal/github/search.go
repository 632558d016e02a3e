package github

import (
	"context"
	"fmt"
	"strings"

	gh "github.com/google/go-github/v82/github"
	"go.uber.org/zap"
)

const (
	LevelAny = "any"
	// DefaultMaxCandidates is used when a search does not ask for a count.
	DefaultMaxCandidates = 10
	// MaxCandidatesLimit bounds the count requested from the web form.
	MaxCandidatesLimit = 50
)

// RepoRange bounds the public repository count of a user, inclusive.
type RepoRange struct {
	Min int `mapstructure:"min" json:"min"`
	Max int `mapstructure:"max" json:"max"`
}

// DefaultLevels maps experience labels to repository counts.
var DefaultLevels = map[string]RepoRange{
	"junior": {Min: 1, Max: 15},
	"mid":    {Min: 15, Max: 40},
	"senior": {Min: 40, Max: 500},
	LevelAny: {Min: 1, Max: 500},
}

type UserSearch struct {
	Language string `json:"language,omitempty"`
	Location string `json:"location,omitempty"`
	Level    string `json:"experience_level,omitempty"`
	Max      int    `json:"max_candidates,omitempty"`
}

// LevelRange resolves a label against levels. Unknown labels resolve to "any".
func LevelRange(levels map[string]RepoRange, label string) RepoRange {
	if len(levels) == 0 {
		levels = DefaultLevels
	}

	label = strings.ToLower(strings.TrimSpace(label))
	if r, ok := levels[label]; ok {
		return r
	}
	if r, ok := levels[LevelAny]; ok {
		return r
	}
	return DefaultLevels[LevelAny]
}

// BuildUserQuery renders the search/users query string.
func BuildUserQuery(s UserSearch, levels map[string]RepoRange) string {
	r := LevelRange(levels, s.Level)

	parts := make([]string, 0, 4)
	if lang := strings.TrimSpace(s.Language); lang != "" {
		parts = append(parts, "language:"+lang)
	}
	if loc := strings.TrimSpace(s.Location); loc != "" {
		parts = append(parts, "location:"+loc)
	}
	parts = append(parts, fmt.Sprintf("repos:%d..%d", r.Min, r.Max), "type:user")

	return strings.Join(parts, " ")
}

// SearchUsers returns up to s.Max logins ordered by repository count. An API
// error yields an empty result.
func (c *Client) SearchUsers(ctx context.Context, s UserSearch, levels map[string]RepoRange) ([]string, error) {
	limit := s.Max
	if limit <= 0 {
		limit = DefaultMaxCandidates
	}

	query := BuildUserQuery(s, levels)
	c.logger.Info("searching users", zap.String("query", query), zap.Int("max", limit))

	result, resp, err := c.gh.Search.Users(bypass(ctx), query, &gh.SearchOptions{
		Sort:        "repositories",
		ListOptions: gh.ListOptions{PerPage: min(limit*2, perPage)},
	})
	if err != nil {
		if err := c.stopListing(resp, err, zap.String("query", query)); err != nil {
			return nil, fmt.Errorf("searching users: %w", err)
		}
		return []string{}, nil
	}

	logins := make([]string, 0, limit)
	for _, u := range result.Users {
		if len(logins) == limit {
			break
		}
		if login := u.GetLogin(); login != "" {
			logins = append(logins, login)
		}
	}

	c.logger.Info("found users", zap.Int("count", len(logins)))
	return logins, nil
}
