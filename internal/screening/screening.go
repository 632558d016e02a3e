// Package screening drives the GitHub fetcher and the AI evaluator: single
// profile analysis, job description parsing, candidate search and the
// sequential batch evaluation against a job.
package screening

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/gh-screener/internal/ai"
	"github.com/spigell/gh-screener/internal/github"
	"github.com/spigell/gh-screener/internal/pacing"
)

var (
	ErrNoRepositories = errors.New("no repositories found")
	ErrNoCommits      = errors.New("no commits found")
	// ErrNoEvaluator is returned by operations that need the AI evaluator when
	// none is configured, typically because the API key is missing.
	ErrNoEvaluator = errors.New("ai evaluator is not configured")
)

type HistoryFetcher interface {
	FetchHistory(ctx context.Context, user string) (*github.History, error)
}

type UserSearcher interface {
	SearchUsers(ctx context.Context, s github.UserSearch, levels map[string]github.RepoRange) ([]string, error)
}

// Deps aggregates the collaborators of a Service.
type Deps struct {
	Fetcher   HistoryFetcher
	Searcher  UserSearcher
	Evaluator ai.Evaluator
	Pacing    *pacing.Policy
	Logger    *zap.Logger
	// Levels overrides the experience level table used by search.
	Levels map[string]github.RepoRange
}

type Service struct {
	fetcher   HistoryFetcher
	searcher  UserSearcher
	evaluator ai.Evaluator
	pacing    *pacing.Policy
	logger    *zap.Logger
	levels    map[string]github.RepoRange
}

func New(deps Deps) *Service {
	s := &Service{
		fetcher:   deps.Fetcher,
		searcher:  deps.Searcher,
		evaluator: deps.Evaluator,
		pacing:    deps.Pacing,
		logger:    deps.Logger,
		levels:    deps.Levels,
	}

	if s.pacing == nil {
		s.pacing = pacing.Default()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if len(s.levels) == 0 {
		s.levels = github.DefaultLevels
	}

	return s
}

// HasEvaluator reports whether AI operations are available.
func (s *Service) HasEvaluator() bool {
	return s.evaluator != nil
}

// Fetch returns the commit history of user. A user without repositories or
// without authored commits is reported with ErrNoRepositories or ErrNoCommits.
func (s *Service) Fetch(ctx context.Context, user string) (*github.History, error) {
	user = strings.TrimSpace(user)
	if user == "" {
		return nil, errors.New("username is required")
	}

	history, err := s.fetcher.FetchHistory(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("fetching history of %s: %w", user, err)
	}

	if len(history.Repositories) == 0 {
		return history, fmt.Errorf("%w for %s", ErrNoRepositories, user)
	}
	if len(history.Commits) == 0 {
		return history, fmt.Errorf("%w for %s", ErrNoCommits, user)
	}

	return history, nil
}

// Profile is the result of a single-user analysis.
type Profile struct {
	Username        string                       `json:"username"`
	CommitsAnalyzed int                          `json:"commits_analyzed"`
	History         *github.History              `json:"-"`
	Analysis        ai.Reply[ai.ProfileAnalysis] `json:"analysis"`
}

// AnalyzeProfile fetches the history of user and asks the evaluator for a
// general hiring assessment.
func (s *Service) AnalyzeProfile(ctx context.Context, user string) (*Profile, error) {
	if s.evaluator == nil {
		return nil, ErrNoEvaluator
	}

	history, err := s.Fetch(ctx, user)
	if err != nil {
		return nil, err
	}

	return s.AnalyzeHistory(ctx, history)
}

// AnalyzeHistory evaluates an already fetched history.
func (s *Service) AnalyzeHistory(ctx context.Context, history *github.History) (*Profile, error) {
	if s.evaluator == nil {
		return nil, ErrNoEvaluator
	}

	s.logger.Info("analyzing profile",
		zap.String("user", history.User),
		zap.Int("commits", len(history.Commits)),
		zap.Int("patches", history.Patches),
	)

	analysis, err := s.evaluator.AnalyzeProfile(ctx, history.User, ai.Summarize(history.Commits))
	if err != nil {
		return nil, fmt.Errorf("analyzing %s: %w", history.User, err)
	}

	return &Profile{
		Username:        history.User,
		CommitsAnalyzed: len(history.Commits),
		History:         history,
		Analysis:        analysis,
	}, nil
}

// ParseJob turns a free-text job description into requirements.
func (s *Service) ParseJob(ctx context.Context, text string) (ai.Reply[ai.JobRequirements], error) {
	if s.evaluator == nil {
		return ai.Reply[ai.JobRequirements]{}, ErrNoEvaluator
	}

	reqs, err := s.evaluator.ParseJobDescription(ctx, text)
	if err != nil {
		return reqs, fmt.Errorf("parsing job description: %w", err)
	}

	s.logger.Info("parsed job description",
		zap.String("title", reqs.Value.Title),
		zap.String("level", reqs.Value.Level),
		zap.Strings("required_skills", reqs.Value.RequiredSkills),
		zap.Bool("fallback", reqs.Fallback),
	)

	return reqs, nil
}

// FindCandidates searches GitHub users and returns at most search.Max logins.
func (s *Service) FindCandidates(ctx context.Context, search github.UserSearch) ([]string, error) {
	if s.searcher == nil {
		return nil, errors.New("user search is not configured")
	}
	if search.Max <= 0 {
		search.Max = github.DefaultMaxCandidates
	}

	users, err := s.searcher.SearchUsers(ctx, search, s.levels)
	if err != nil {
		return nil, err
	}

	if len(users) > search.Max {
		users = users[:search.Max]
	}
	return users, nil
}

// SplitUsernames splits a comma or newline separated list, dropping blanks.
func SplitUsernames(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})

	users := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			users = append(users, f)
		}
	}
	return users
}
