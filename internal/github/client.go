// Package github fetches repositories, commits, patches and users from the
// GitHub REST API through go-github.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"
	"go.uber.org/zap"

	"github.com/spigell/gh-screener/internal/logger"
	"github.com/spigell/gh-screener/internal/pacing"
)

const (
	userAgent = "spigell/gh-screener"
	// Max value for per_page on GitHub list endpoints.
	perPage = 100
	// DefaultPatchLimit caps how many of the newest commits get a patch.
	DefaultPatchLimit = 50
)

type Repository struct {
	Name  string `json:"name"`
	Owner string `json:"owner"`
}

type Commit struct {
	SHA     string    `json:"sha"`
	Repo    string    `json:"repo"`
	Owner   string    `json:"owner"`
	Date    time.Time `json:"date"`
	Message string    `json:"message"`
	Patch   string    `json:"patch,omitempty"`
}

type Client struct {
	gh     *gh.Client
	logger *zap.Logger

	// PatchLimit is the number of newest commits FetchHistory fetches patches for.
	PatchLimit int
}

// NewClient creates a GitHub client with the following transport stack:
//  1. go-github (REST client, token auth when token is set)
//  2. go-github-ratelimit (secondary rate limit guard)
//  3. httpcache (ETag conditional requests do not spend quota)
//  4. RetryTransport (connection retries, rate-limit waits)
func NewClient(token string, policy *pacing.Policy, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	cacheTransport := httpcache.NewMemoryCacheTransport()
	cacheTransport.Transport = NewRetryTransport(http.DefaultTransport, policy, logger)

	client := gh.NewClient(github_ratelimit.NewClient(cacheTransport))
	if token = strings.TrimSpace(token); token != "" {
		client = client.WithAuthToken(token)
	} else {
		logger.Warn("no github token configured, requests are unauthenticated and limited to 60 per hour")
	}
	client.UserAgent = userAgent

	return &Client{gh: client, logger: logger, PatchLimit: DefaultPatchLimit}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// It is used by tests to point the client at an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}

	client := gh.NewClient(httpClient)
	client.BaseURL = u
	client.UserAgent = userAgent

	return &Client{gh: client, logger: logger, PatchLimit: DefaultPatchLimit}, nil
}

// ListRepositories returns all repositories of user, page by page, until an
// empty page. An API error ends the listing with what was collected so far.
func (c *Client) ListRepositories(ctx context.Context, user string) ([]Repository, error) {
	if strings.TrimSpace(user) == "" {
		return nil, fmt.Errorf("username is required")
	}

	opts := &gh.RepositoryListByUserOptions{
		Type:        "all",
		ListOptions: gh.ListOptions{PerPage: perPage, Page: 1},
	}

	var repos []Repository
	for {
		page, resp, err := c.gh.Repositories.ListByUser(bypass(ctx), user, opts)
		if err != nil {
			if err := c.stopListing(resp, err, zap.String("user", user), zap.Int("page", opts.Page)); err != nil {
				return nil, fmt.Errorf("listing repositories of %s (page %d): %w", user, opts.Page, err)
			}
			break
		}

		if len(page) == 0 {
			break
		}

		for _, r := range page {
			repos = append(repos, Repository{
				Name:  r.GetName(),
				Owner: r.GetOwner().GetLogin(),
			})
		}

		opts.Page++
	}

	return repos, nil
}

// ListCommits returns commits in owner/repo authored by author. An empty
// repository (409) yields no commits.
func (c *Client) ListCommits(ctx context.Context, owner, repo, author string) ([]Commit, error) {
	opts := &gh.CommitsListOptions{
		Author:      author,
		ListOptions: gh.ListOptions{PerPage: perPage, Page: 1},
	}

	var commits []Commit
	for {
		page, resp, err := c.gh.Repositories.ListCommits(bypass(ctx), owner, repo, opts)
		if err != nil {
			if resp != nil && resp.StatusCode == http.StatusConflict {
				c.logger.Debug("repository is empty", logger.RepoField(owner, repo))
				break
			}
			if err := c.stopListing(resp, err, logger.RepoField(owner, repo), zap.Int("page", opts.Page)); err != nil {
				return nil, fmt.Errorf("listing commits of %s/%s (page %d): %w", owner, repo, opts.Page, err)
			}
			break
		}

		if len(page) == 0 {
			break
		}

		for _, rc := range page {
			commits = append(commits, Commit{
				SHA:     rc.GetSHA(),
				Repo:    repo,
				Owner:   owner,
				Date:    rc.GetCommit().GetAuthor().GetDate().Time,
				Message: rc.GetCommit().GetMessage(),
			})
		}

		opts.Page++
	}

	return commits, nil
}

// CommitPatch returns the unified diff of a commit. An API error yields an
// empty patch. Only transport failures are returned as errors.
func (c *Client) CommitPatch(ctx context.Context, owner, repo, sha string) (string, error) {
	patch, resp, err := c.gh.Repositories.GetCommitRaw(bypass(ctx), owner, repo, sha, gh.RawOptions{Type: gh.Patch})
	if err != nil {
		if err := c.stopListing(resp, err, logger.RepoField(owner, repo), zap.String("sha", sha)); err != nil {
			return "", fmt.Errorf("fetching patch %s in %s/%s: %w", sha, owner, repo, err)
		}
		return "", nil
	}

	return patch, nil
}

// stopListing swallows API errors (a response was received) and returns
// transport errors untouched.
func (c *Client) stopListing(resp *gh.Response, err error, fields ...zap.Field) error {
	if resp == nil || resp.Response == nil {
		return err
	}

	c.logger.Warn("github api returned an error, treating as end of data",
		append(fields, zap.Int("status", resp.StatusCode), zap.Error(err))...,
	)
	return nil
}

// bypass disables go-github's local rate-limit short circuit. RetryTransport
// must see the real 403 to wait for the reset.
func bypass(ctx context.Context) context.Context {
	return context.WithValue(ctx, gh.BypassRateLimitCheck, true)
}
