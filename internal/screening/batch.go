package screening

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/spigell/gh-screener/internal/ai"
	"github.com/spigell/gh-screener/internal/logger"
)

// Candidate is one evaluated entry of a batch.
type Candidate struct {
	Username        string                `json:"username"`
	CommitsAnalyzed int                   `json:"commits_analyzed"`
	Analysis        ai.Reply[ai.JobMatch] `json:"analysis"`
}

// Summary describes the outcome of a batch.
type Summary struct {
	Requested int
	Evaluated int
	Skipped   int
	Failed    int
}

// Evaluate runs every user through fetch and match, one at a time, pausing
// between candidates. A user without commits is skipped. A failing user is
// logged and skipped without aborting the batch. Results are ordered by job
// fit score, highest first. On cancellation the candidates evaluated so far
// are returned together with the context error.
func (s *Service) Evaluate(ctx context.Context, users []string, reqs ai.JobRequirements) ([]Candidate, Summary, error) {
	summary := Summary{Requested: len(users)}
	results := make([]Candidate, 0, len(users))

	if s.evaluator == nil {
		return results, summary, ErrNoEvaluator
	}

	for i, user := range users {
		if i > 0 {
			if err := s.pacing.BetweenCandidates(ctx); err != nil {
				return s.finish(results, summary), summary, err
			}
		}

		fields := logger.CandidateFields(user, i, len(users))
		s.logger.Info("evaluating candidate", fields...)

		candidate, err := s.evaluateOne(ctx, user, reqs)
		switch {
		case err == nil:
			results = append(results, *candidate)
			summary.Evaluated++
			s.logger.Info("candidate evaluated", append(fields,
				zap.Float64("job_fit_score", candidate.Analysis.Value.FitScore()),
				zap.Int("commits", candidate.CommitsAnalyzed),
			)...)
		case ctx.Err() != nil:
			return s.finish(results, summary), summary, ctx.Err()
		case errors.Is(err, ErrNoCommits), errors.Is(err, ErrNoRepositories):
			summary.Skipped++
			s.logger.Info("skipping candidate", append(fields, zap.String("reason", err.Error()))...)
		default:
			summary.Failed++
			s.logger.Warn("evaluating candidate failed. It will be skipped.", append(fields, zap.Error(err))...)
		}
	}

	return s.finish(results, summary), summary, nil
}

func (s *Service) evaluateOne(ctx context.Context, user string, reqs ai.JobRequirements) (*Candidate, error) {
	history, err := s.Fetch(ctx, user)
	if err != nil {
		return nil, err
	}

	summaries := ai.Summarize(history.Commits)

	analysis, err := s.evaluator.MatchCandidate(ctx, history.User, summaries, reqs)
	if err != nil {
		return nil, fmt.Errorf("matching %s: %w", user, err)
	}

	return &Candidate{
		Username:        history.User,
		CommitsAnalyzed: len(summaries),
		Analysis:        analysis,
	}, nil
}

func (s *Service) finish(results []Candidate, summary Summary) []Candidate {
	SortByFit(results)

	s.logger.Info("batch evaluation finished",
		zap.Int("requested", summary.Requested),
		zap.Int("evaluated", summary.Evaluated),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
	)

	return results
}

// SortByFit orders candidates by job fit score, highest first. A missing
// score counts as zero and ties keep their order.
func SortByFit(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Analysis.Value.FitScore() > candidates[j].Analysis.Value.FitScore()
	})
}
