package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/gh-screener/internal/ai/gemini"
	"github.com/spigell/gh-screener/internal/github"
	"github.com/spigell/gh-screener/internal/logger"
	"github.com/spigell/gh-screener/internal/pacing"
	"github.com/spigell/gh-screener/internal/screening"
	"github.com/spigell/gh-screener/internal/secrets"
)

const (
	providerGemini = "gemini"
	apiKeyHint     = "set GEMINI_API_KEY, GEMINI_API_KEY_FILE or ai.gemini.api-key-file in the configuration file"
	tokenHint      = "set GITHUB_TOKEN, GITHUB_TOKEN_FILE, --token or github.token-file in the configuration file"
)

var errMissingAPIKey = errors.New("gemini api key is not configured")

// application holds everything a command needs.
type application struct {
	config  *Config
	logger  *zap.Logger
	service *screening.Service
	// evaluatorErr explains why the service has no evaluator.
	evaluatorErr error
}

// setup builds the logger, configuration and services. Failures are fatal,
// except for a missing API key which commands handle on their own.
func setup(ctx context.Context) *application {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the gh-screener", zap.String("version", version))
	logger.Debug("starting with config", zap.Any("pacing", config.Pacing), zap.Any("web", config.Web))

	policy := pacing.New(config.Pacing)

	token, err := secrets.LoadOptional(secrets.Source{
		Name:  "github token",
		Value: config.GitHub.Token,
		File:  config.GitHub.TokenFile,
	})
	if err != nil {
		logger.Fatal("loading github token", zap.Error(err), zap.String("hint", tokenHint))
	}

	gh := github.NewClient(token, policy, logger)
	if config.GitHub.PatchLimit > 0 {
		gh.PatchLimit = config.GitHub.PatchLimit
	}

	evaluator, evalErr := newEvaluator(ctx, config.AI.Gemini, policy, logger)
	if evalErr != nil && !errors.Is(evalErr, errMissingAPIKey) {
		logger.Fatal("creating the ai evaluator", zap.Error(evalErr))
	}

	deps := screening.Deps{
		Fetcher:  gh,
		Searcher: gh,
		Pacing:   policy,
		Logger:   logger,
		Levels:   config.Search.Levels,
	}
	// A nil *gemini.Evaluator must not end up inside the interface.
	if evaluator != nil {
		deps.Evaluator = evaluator
	}

	return &application{
		config:       config,
		logger:       logger,
		service:      screening.New(deps),
		evaluatorErr: evalErr,
	}
}

// requireEvaluator stops the command when AI analysis is not available.
func (a *application) requireEvaluator() {
	if a.service.HasEvaluator() {
		return
	}
	a.logger.Fatal("ai analysis is required", zap.Error(a.evaluatorErr), zap.String("hint", apiKeyHint))
}

func newEvaluator(ctx context.Context, cfg *GeminiConfig, policy *pacing.Policy, parent *zap.Logger) (*gemini.Evaluator, error) {
	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.APIKey,
		File:  cfg.APIKeyFile,
	})
	if errors.Is(err, secrets.ErrNotConfigured) {
		return nil, errMissingAPIKey
	}
	if err != nil {
		return nil, err
	}

	rubrics, err := gemini.LoadRubrics(cfg.Prompts)
	if err != nil {
		return nil, err
	}

	model := strings.TrimSpace(cfg.Model)

	genLogger := parent.With(zap.Int("ai_retry_attempts", cfg.MaxRetries))
	generator, err := gemini.NewGenerator(ctx, apiKey, model, cfg.MaxRetries, policy, genLogger)
	if err != nil {
		return nil, fmt.Errorf("creating gemini generator: %w", err)
	}

	evalLogger := logger.WithCommonFields(parent, providerGemini, generator.Model())

	return gemini.NewEvaluator(generator, rubrics, cfg.MaxLogLength, evalLogger), nil
}
