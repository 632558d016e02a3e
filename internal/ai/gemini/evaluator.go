package gemini

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/gh-screener/internal/ai"
	"github.com/spigell/gh-screener/internal/logger"
)

type contentGenerator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

var (
	//go:embed prompts/profile_system.md
	profileSystem string
	//go:embed prompts/profile_user.md
	profileUser string
	//go:embed prompts/job_system.md
	jobSystem string
	//go:embed prompts/job_user.md
	jobUser string
	//go:embed prompts/match_system.md
	matchSystem string
	//go:embed prompts/match_user.md
	matchUser string
)

const (
	defaultMaxLogLength = 200
	unspecified         = "Unspecified"
)

// Rubrics are the system instructions for the three evaluation kinds.
type Rubrics struct {
	Profile string
	Job     string
	Match   string
}

// RubricFiles points at files that replace the embedded rubrics.
type RubricFiles struct {
	Profile string `mapstructure:"profile"`
	Job     string `mapstructure:"job"`
	Match   string `mapstructure:"match"`
}

func DefaultRubrics() Rubrics {
	return Rubrics{Profile: profileSystem, Job: jobSystem, Match: matchSystem}
}

// LoadRubrics returns the embedded rubrics with any configured file applied on top.
func LoadRubrics(files RubricFiles) (Rubrics, error) {
	r := DefaultRubrics()

	for _, o := range []struct {
		path   string
		target *string
	}{
		{files.Profile, &r.Profile},
		{files.Job, &r.Job},
		{files.Match, &r.Match},
	} {
		path := strings.TrimSpace(o.path)
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return Rubrics{}, fmt.Errorf("reading rubric %q: %w", path, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			return Rubrics{}, fmt.Errorf("rubric %q is empty", path)
		}
		*o.target = string(data)
	}

	return r, nil
}

// Evaluator implements ai.Evaluator on top of a Gemini generator.
type Evaluator struct {
	generator contentGenerator
	rubrics   Rubrics
	logger    *zap.Logger
	maxLogLen int
}

var _ ai.Evaluator = (*Evaluator)(nil)

func NewEvaluator(generator contentGenerator, rubrics Rubrics, maxLogLength int, log *zap.Logger) *Evaluator {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Evaluator{
		generator: generator,
		rubrics:   rubrics,
		logger:    logger.WithFields(log),
		maxLogLen: maxLogLength,
	}
}

func (e *Evaluator) AnalyzeProfile(ctx context.Context, user string, commits []ai.CommitSummary) (ai.Reply[ai.ProfileAnalysis], error) {
	if len(commits) == 0 {
		return ai.Reply[ai.ProfileAnalysis]{}, errors.New("no commits to analyze")
	}

	prompt := fill(profileUser, map[string]string{
		"USERNAME":     user,
		"COMMIT_COUNT": strconv.Itoa(len(commits)),
		"COMMITS":      ai.FormatCommits(commits),
	})

	raw, err := e.generate(ctx, "profile", user, e.rubrics.Profile, prompt)
	if err != nil {
		return ai.Reply[ai.ProfileAnalysis]{}, err
	}

	return decode[ai.ProfileAnalysis](e, "profile", user, raw, ai.ProfileFallback), nil
}

func (e *Evaluator) ParseJobDescription(ctx context.Context, text string) (ai.Reply[ai.JobRequirements], error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ai.Reply[ai.JobRequirements]{}, errors.New("job description is empty")
	}

	prompt := fill(jobUser, map[string]string{"JOB_DESCRIPTION": text})

	raw, err := e.generate(ctx, "job", "", e.rubrics.Job, prompt)
	if err != nil {
		return ai.Reply[ai.JobRequirements]{}, err
	}

	return decode[ai.JobRequirements](e, "job", "", raw, ai.JobFallback), nil
}

func (e *Evaluator) MatchCandidate(ctx context.Context, user string, commits []ai.CommitSummary, reqs ai.JobRequirements) (ai.Reply[ai.JobMatch], error) {
	if len(commits) == 0 {
		return ai.Reply[ai.JobMatch]{}, errors.New("no commits to analyze")
	}

	system := fill(e.rubrics.Match, map[string]string{"JOB_REQUIREMENTS": DescribeRequirements(reqs)})
	prompt := fill(matchUser, map[string]string{
		"USERNAME":     user,
		"COMMIT_COUNT": strconv.Itoa(len(commits)),
		"COMMITS":      ai.FormatCommits(commits),
	})

	raw, err := e.generate(ctx, "match", user, system, prompt)
	if err != nil {
		return ai.Reply[ai.JobMatch]{}, err
	}

	return decode[ai.JobMatch](e, "match", user, raw, ai.MatchFallback), nil
}

// DescribeRequirements renders the job context embedded in the match rubric.
func DescribeRequirements(r ai.JobRequirements) string {
	or := func(s string) string {
		if strings.TrimSpace(s) == "" {
			return unspecified
		}
		return s
	}

	var b strings.Builder
	b.WriteString("JOB REQUIREMENTS:\n")
	fmt.Fprintf(&b, "- Title: %s\n", or(r.Title))
	fmt.Fprintf(&b, "- Level: %s\n", or(r.Level))
	fmt.Fprintf(&b, "- Experience: %s years\n", or(r.YearsExperience))
	fmt.Fprintf(&b, "- Domain: %s\n", or(r.Domain))
	fmt.Fprintf(&b, "- Required Skills: %s\n", strings.Join(r.RequiredSkills, ", "))
	fmt.Fprintf(&b, "- Preferred Skills: %s\n", strings.Join(r.PreferredSkills, ", "))
	return b.String()
}

func (e *Evaluator) generate(ctx context.Context, kind, user, system, prompt string) (string, error) {
	fields := []zap.Field{zap.String("kind", kind)}
	if user != "" {
		fields = append(fields, zap.String("user", user))
	}

	e.logger.Debug("gemini generate content request", append(fields,
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, e.maxLogLen)),
	)...)

	raw, err := e.generator.Generate(ctx, system, prompt)
	if err != nil {
		return "", fmt.Errorf("%s evaluation: %w", kind, err)
	}

	e.logger.Debug("gemini generate content response", append(fields,
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.TruncateForLog(raw, e.maxLogLen)),
	)...)

	return raw, nil
}

func decode[T any](e *Evaluator, kind, user, raw string, fallback func(string) map[string]any) ai.Reply[T] {
	reply := ai.Decode[T](raw, fallback)
	if reply.Fallback {
		e.logger.Warn("model reply is not a json object, keeping raw text",
			zap.String("kind", kind),
			zap.String("user", user),
			zap.String("response_preview", logger.TruncateForLog(raw, e.maxLogLen)),
		)
	}
	return reply
}

func fill(template string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
