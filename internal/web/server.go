// Package web serves the HTML front end: single profile analysis, job
// matching against a username list and search-driven matching.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/gh-screener/internal/ai"
	"github.com/spigell/gh-screener/internal/github"
	"github.com/spigell/gh-screener/internal/report"
	"github.com/spigell/gh-screener/internal/screening"
)

const (
	DefaultListen        = "127.0.0.1:5000"
	DefaultRatePerMinute = 10
	DefaultBurst         = 3

	shutdownTimeout = 10 * time.Second
)

var levelOptions = []string{github.LevelAny, "junior", "mid", "senior"}

//go:embed templates/*.html
var templateFS embed.FS

// Screener is the part of screening.Service the handlers use.
type Screener interface {
	HasEvaluator() bool
	AnalyzeProfile(ctx context.Context, user string) (*screening.Profile, error)
	ParseJob(ctx context.Context, text string) (ai.Reply[ai.JobRequirements], error)
	FindCandidates(ctx context.Context, search github.UserSearch) ([]string, error)
	Evaluate(ctx context.Context, users []string, reqs ai.JobRequirements) ([]screening.Candidate, screening.Summary, error)
}

type Config struct {
	Listen string `mapstructure:"listen"`
	// RatePerMinute limits analysis requests per client IP. Zero disables it.
	RatePerMinute int      `mapstructure:"rate-per-minute"`
	Burst         int      `mapstructure:"burst"`
	AllowOrigins  []string `mapstructure:"allow-origins"`
}

type Server struct {
	cfg      Config
	screener Screener
	logger   *zap.Logger
	engine   *gin.Engine
}

func New(cfg Config, screener Screener, logger *zap.Logger) (*Server, error) {
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	tmpl, err := template.New("").Funcs(template.FuncMap{
		"markdown": RenderMarkdown,
		"score":    report.Score,
		"join":     strings.Join,
		"inc":      func(i int) int { return i + 1 },
		"levels":   func() []string { return levelOptions },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	s := &Server{cfg: cfg, screener: screener, logger: logger}

	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog())
	if len(cfg.AllowOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: cfg.AllowOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost},
			AllowHeaders: []string{"Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}
	r.SetHTMLTemplate(tmpl)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "ai": screener.HasEvaluator()})
	})

	r.GET("/", s.index)
	r.GET("/match", s.matchForm)
	r.GET("/search", s.searchForm)

	analysis := r.Group("/")
	if cfg.RatePerMinute > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = DefaultBurst
		}
		analysis.Use(newIPLimiter(cfg.RatePerMinute, burst).middleware(logger))
	}
	analysis.POST("/analyze", s.analyze)
	analysis.POST("/match", s.match)
	analysis.POST("/search", s.search)

	r.POST("/api/export", s.export)

	s.engine = r
	return s, nil
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting web server", zap.String("listen", s.cfg.Listen))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving %s: %w", s.cfg.Listen, err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down web server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Debug("request served",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}
