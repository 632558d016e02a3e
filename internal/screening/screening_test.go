package screening

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/spigell/gh-screener/internal/ai"
	"github.com/spigell/gh-screener/internal/github"
	"github.com/spigell/gh-screener/internal/pacing"
)

type stubFetcher struct {
	histories map[string]*github.History
	errs      map[string]error
	calls     []string
}

func (f *stubFetcher) FetchHistory(_ context.Context, user string) (*github.History, error) {
	f.calls = append(f.calls, user)
	if err := f.errs[user]; err != nil {
		return nil, err
	}
	if h, ok := f.histories[user]; ok {
		return h, nil
	}
	return &github.History{User: user}, nil
}

type stubEvaluator struct {
	scores   map[string]float64
	fail     map[string]error
	profile  ai.Reply[ai.ProfileAnalysis]
	job      ai.Reply[ai.JobRequirements]
	matched  []string
	analyzed []int
	cancel   func()
}

func (e *stubEvaluator) AnalyzeProfile(_ context.Context, _ string, commits []ai.CommitSummary) (ai.Reply[ai.ProfileAnalysis], error) {
	e.analyzed = append(e.analyzed, len(commits))
	return e.profile, nil
}

func (e *stubEvaluator) ParseJobDescription(_ context.Context, _ string) (ai.Reply[ai.JobRequirements], error) {
	return e.job, nil
}

func (e *stubEvaluator) MatchCandidate(_ context.Context, user string, _ []ai.CommitSummary, _ ai.JobRequirements) (ai.Reply[ai.JobMatch], error) {
	e.matched = append(e.matched, user)
	if e.cancel != nil && len(e.matched) == 2 {
		e.cancel()
	}
	if err := e.fail[user]; err != nil {
		return ai.Reply[ai.JobMatch]{}, err
	}

	reply := ai.Reply[ai.JobMatch]{}
	if score, ok := e.scores[user]; ok {
		reply.Value.JobFitScore = &score
	}
	return reply, nil
}

func historyWithCommits(user string, n int) *github.History {
	h := &github.History{User: user, Repositories: []github.Repository{{Name: "repo", Owner: user}}}
	for i := range n {
		h.Commits = append(h.Commits, github.Commit{
			SHA:     "abcdef0123456789",
			Repo:    "repo",
			Owner:   user,
			Date:    time.Date(2024, 1, i+1, 0, 0, 0, 0, time.UTC),
			Message: "change",
		})
	}
	return h
}

func newService(fetcher *stubFetcher, evaluator ai.Evaluator, rec *pacing.Recorder) *Service {
	return New(Deps{
		Fetcher:   fetcher,
		Evaluator: evaluator,
		Pacing:    pacing.Default().WithSleeper(rec.Sleep),
	})
}

func TestEvaluateSurvivesFailingCandidate(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{
		histories: map[string]*github.History{
			"alice": historyWithCommits("alice", 3),
			"bob":   historyWithCommits("bob", 2),
			"carol": historyWithCommits("carol", 4),
			"dave":  historyWithCommits("dave", 1),
		},
		errs: map[string]error{"erin": errors.New("connection reset")},
	}
	evaluator := &stubEvaluator{
		scores: map[string]float64{"alice": 5, "bob": 9, "carol": 7},
		fail:   map[string]error{"dave": errors.New("model overloaded")},
	}
	rec := &pacing.Recorder{}
	svc := newService(fetcher, evaluator, rec)

	users := []string{"alice", "bob", "erin", "dave", "carol", "ghost"}
	results, summary, err := svc.Evaluate(context.Background(), users, ai.JobRequirements{Title: "Backend"})
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}

	var got []string
	for _, r := range results {
		got = append(got, r.Username)
	}
	if want := []string{"bob", "carol", "alice"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected order: got %v want %v", got, want)
	}

	if results[1].CommitsAnalyzed != 4 {
		t.Fatalf("expected carol to have 4 commits analyzed, got %d", results[1].CommitsAnalyzed)
	}

	want := Summary{Requested: 6, Evaluated: 3, Skipped: 1, Failed: 2}
	if summary != want {
		t.Fatalf("unexpected summary: got %+v want %+v", summary, want)
	}

	if waits := rec.Waits(); len(waits) != len(users)-1 {
		t.Fatalf("expected %d pauses, got %v", len(users)-1, waits)
	}
	if rec.Total() != time.Duration(len(users)-1)*time.Second {
		t.Fatalf("unexpected total pause %s", rec.Total())
	}
}

func TestEvaluateMissingScoreSortsLast(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{histories: map[string]*github.History{
		"a": historyWithCommits("a", 1),
		"b": historyWithCommits("b", 1),
		"c": historyWithCommits("c", 1),
	}}
	evaluator := &stubEvaluator{scores: map[string]float64{"b": 3, "c": 3}}
	svc := newService(fetcher, evaluator, &pacing.Recorder{})

	results, _, err := svc.Evaluate(context.Background(), []string{"a", "b", "c"}, ai.JobRequirements{})
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}

	var got []string
	for _, r := range results {
		got = append(got, r.Username)
	}
	if want := []string{"b", "c", "a"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected order: got %v want %v", got, want)
	}
}

func TestEvaluateCancellationReturnsPartialResults(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := &stubFetcher{histories: map[string]*github.History{
		"a": historyWithCommits("a", 1),
		"b": historyWithCommits("b", 1),
		"c": historyWithCommits("c", 1),
	}}
	evaluator := &stubEvaluator{scores: map[string]float64{"a": 1, "b": 2, "c": 3}, cancel: cancel}
	svc := newService(fetcher, evaluator, &pacing.Recorder{})

	results, _, err := svc.Evaluate(ctx, []string{"a", "b", "c"}, ai.JobRequirements{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(results) != 2 || results[0].Username != "b" {
		t.Fatalf("expected partial sorted results [b a], got %+v", results)
	}
	if len(evaluator.matched) != 2 {
		t.Fatalf("expected evaluation to stop after cancellation, matched %v", evaluator.matched)
	}
}

func TestEvaluateWithoutEvaluator(t *testing.T) {
	t.Parallel()

	svc := New(Deps{Fetcher: &stubFetcher{}})
	if _, _, err := svc.Evaluate(context.Background(), []string{"a"}, ai.JobRequirements{}); !errors.Is(err, ErrNoEvaluator) {
		t.Fatalf("expected ErrNoEvaluator, got %v", err)
	}
}

func TestAnalyzeProfile(t *testing.T) {
	t.Parallel()

	score := 8.0
	fetcher := &stubFetcher{histories: map[string]*github.History{"octo": historyWithCommits("octo", 5)}}
	evaluator := &stubEvaluator{profile: ai.Reply[ai.ProfileAnalysis]{Value: ai.ProfileAnalysis{OverallScore: &score}}}
	svc := newService(fetcher, evaluator, &pacing.Recorder{})

	profile, err := svc.AnalyzeProfile(context.Background(), " octo ")
	if err != nil {
		t.Fatalf("AnalyzeProfile returned error: %v", err)
	}
	if profile.Username != "octo" || profile.CommitsAnalyzed != 5 {
		t.Fatalf("unexpected profile: %+v", profile)
	}
	if *profile.Analysis.Value.OverallScore != 8 {
		t.Fatalf("unexpected analysis: %+v", profile.Analysis.Value)
	}
	if !reflect.DeepEqual(evaluator.analyzed, []int{5}) {
		t.Fatalf("expected 5 summaries to be analyzed, got %v", evaluator.analyzed)
	}
}

func TestAnalyzeProfileErrors(t *testing.T) {
	t.Parallel()

	noCommits := &github.History{User: "empty", Repositories: []github.Repository{{Name: "r", Owner: "empty"}}}
	fetcher := &stubFetcher{histories: map[string]*github.History{"empty": noCommits}}
	svc := newService(fetcher, &stubEvaluator{}, &pacing.Recorder{})

	tests := []struct {
		name string
		user string
		want error
	}{
		{name: "no repositories", user: "nobody", want: ErrNoRepositories},
		{name: "no commits", user: "empty", want: ErrNoCommits},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.AnalyzeProfile(context.Background(), tt.user); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if _, err := New(Deps{Fetcher: fetcher}).AnalyzeProfile(context.Background(), "empty"); !errors.Is(err, ErrNoEvaluator) {
		t.Fatalf("expected ErrNoEvaluator, got %v", err)
	}
}

type stubSearcher struct {
	got    github.UserSearch
	levels map[string]github.RepoRange
	users  []string
}

func (s *stubSearcher) SearchUsers(_ context.Context, search github.UserSearch, levels map[string]github.RepoRange) ([]string, error) {
	s.got = search
	s.levels = levels
	return s.users, nil
}

func TestFindCandidatesCapsAndDefaults(t *testing.T) {
	t.Parallel()

	searcher := &stubSearcher{users: []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"}}
	svc := New(Deps{Searcher: searcher})

	users, err := svc.FindCandidates(context.Background(), github.UserSearch{Language: "Go"})
	if err != nil {
		t.Fatalf("FindCandidates returned error: %v", err)
	}
	if len(users) != github.DefaultMaxCandidates {
		t.Fatalf("expected %d users, got %d", github.DefaultMaxCandidates, len(users))
	}
	if searcher.got.Max != github.DefaultMaxCandidates {
		t.Fatalf("expected default max to be forwarded, got %d", searcher.got.Max)
	}
	if !reflect.DeepEqual(searcher.levels, github.DefaultLevels) {
		t.Fatalf("expected default level table, got %v", searcher.levels)
	}
}

func TestSplitUsernames(t *testing.T) {
	t.Parallel()

	got := SplitUsernames(" alice, bob\ncarol\r\n,, \n dave ")
	if want := []string{"alice", "bob", "carol", "dave"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected users: got %v want %v", got, want)
	}
}
