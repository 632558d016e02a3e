package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/gh-screener/internal/ai"
	"github.com/spigell/gh-screener/internal/github"
	"github.com/spigell/gh-screener/internal/report"
	"github.com/spigell/gh-screener/internal/screening"
)

const missingKeyMessage = "AI analysis is unavailable: GEMINI_API_KEY is not configured on the server."

type profilePage struct {
	Error        string
	Username     string
	TotalCommits int
	TotalRepos   int
	Fallback     bool
	Raw          string
	Analysis     ai.ProfileAnalysis
	Metrics      []report.NamedMetric
	RoleFit      []report.RoleFit
}

type formPage struct {
	Error string
	Form  map[string]string
}

type resultsPage struct {
	Error        string
	Mode         string
	Requirements ai.JobRequirements
	Results      []screening.Candidate
	Summary      screening.Summary
	Search       *github.UserSearch
	Export       any
}

func (s *Server) index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", formPage{})
}

func (s *Server) matchForm(c *gin.Context) {
	c.HTML(http.StatusOK, "match.html", formPage{})
}

func (s *Server) searchForm(c *gin.Context) {
	c.HTML(http.StatusOK, "search.html", formPage{Form: map[string]string{"experience_level": github.LevelAny}})
}

func (s *Server) analyze(c *gin.Context) {
	user := strings.TrimSpace(c.PostForm("username"))
	if user == "" {
		c.HTML(http.StatusBadRequest, "profile.html", profilePage{Error: "Please enter a username"})
		return
	}

	profile, err := s.screener.AnalyzeProfile(c.Request.Context(), user)
	if err != nil {
		s.logger.Warn("profile analysis failed", zap.String("user", user), zap.Error(err))
		c.HTML(statusFor(err), "profile.html", profilePage{Username: user, Error: userMessage(user, err)})
		return
	}

	page := profilePage{
		Username:     profile.Username,
		TotalCommits: profile.CommitsAnalyzed,
		TotalRepos:   len(profile.History.Repositories),
		Fallback:     profile.Analysis.Fallback,
		Raw:          profile.Analysis.Raw,
		Analysis:     profile.Analysis.Value,
		Metrics:      report.Metrics(profile.Analysis.Value),
		RoleFit:      report.RoleFits(profile.Analysis.Value),
	}
	c.HTML(http.StatusOK, "profile.html", page)
}

func (s *Server) match(c *gin.Context) {
	form := map[string]string{
		"job_description": strings.TrimSpace(c.PostForm("job_description")),
		"usernames":       strings.TrimSpace(c.PostForm("usernames")),
	}
	fail := func(status int, msg string) {
		c.HTML(status, "match.html", formPage{Error: msg, Form: form})
	}

	if form["job_description"] == "" {
		fail(http.StatusBadRequest, "Please enter a job description")
		return
	}
	if form["usernames"] == "" {
		fail(http.StatusBadRequest, "Please enter candidate usernames")
		return
	}

	users := screening.SplitUsernames(form["usernames"])
	if len(users) == 0 {
		fail(http.StatusBadRequest, "No valid usernames provided")
		return
	}
	if !s.screener.HasEvaluator() {
		fail(http.StatusServiceUnavailable, missingKeyMessage)
		return
	}

	reqs, err := s.screener.ParseJob(c.Request.Context(), form["job_description"])
	if err != nil {
		fail(statusFor(err), userMessage("", err))
		return
	}

	s.rank(c, "match", users, reqs, nil, func(err error) { fail(statusFor(err), userMessage("", err)) })
}

func (s *Server) search(c *gin.Context) {
	form := map[string]string{
		"job_description":  strings.TrimSpace(c.PostForm("job_description")),
		"language":         strings.TrimSpace(c.PostForm("language")),
		"location":         strings.TrimSpace(c.PostForm("location")),
		"experience_level": strings.TrimSpace(c.DefaultPostForm("experience_level", github.LevelAny)),
		"max_candidates":   strings.TrimSpace(c.PostForm("max_candidates")),
	}
	fail := func(status int, msg string) {
		c.HTML(status, "search.html", formPage{Error: msg, Form: form})
	}

	if form["job_description"] == "" {
		fail(http.StatusBadRequest, "Please enter a job description")
		return
	}
	if !s.screener.HasEvaluator() {
		fail(http.StatusServiceUnavailable, missingKeyMessage)
		return
	}

	maxCandidates, err := strconv.Atoi(form["max_candidates"])
	if err != nil || maxCandidates <= 0 {
		maxCandidates = github.DefaultMaxCandidates
	}
	maxCandidates = min(maxCandidates, github.MaxCandidatesLimit)

	reqs, err := s.screener.ParseJob(c.Request.Context(), form["job_description"])
	if err != nil {
		fail(statusFor(err), userMessage("", err))
		return
	}

	search := github.UserSearch{
		Language: form["language"],
		Location: form["location"],
		Level:    form["experience_level"],
		Max:      maxCandidates,
	}

	users, err := s.screener.FindCandidates(c.Request.Context(), search)
	if err != nil {
		fail(statusFor(err), userMessage("", err))
		return
	}
	if len(users) == 0 {
		fail(http.StatusOK, "No candidates found matching search criteria")
		return
	}

	s.rank(c, "search", users, reqs, &search, func(err error) { fail(statusFor(err), userMessage("", err)) })
}

func (s *Server) rank(c *gin.Context, mode string, users []string, reqs ai.Reply[ai.JobRequirements],
	search *github.UserSearch, fail func(error),
) {
	results, summary, err := s.screener.Evaluate(c.Request.Context(), users, reqs.Value)
	if err != nil {
		fail(err)
		return
	}

	c.HTML(http.StatusOK, "results.html", resultsPage{
		Mode:         mode,
		Requirements: reqs.Value,
		Results:      results,
		Summary:      summary,
		Search:       search,
		Export: gin.H{
			"job_requirements": reqs,
			"results":          results,
		},
	})
}

// export echoes the posted JSON back as a downloadable file.
func (s *Server) export(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil || !json.Valid(body) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body must be valid JSON"})
		return
	}

	var out bytes.Buffer
	if err := json.Indent(&out, body, "", "  "); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", "attachment;filename=results.json")
	c.Data(http.StatusOK, "application/json", out.Bytes())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, screening.ErrNoEvaluator):
		return http.StatusServiceUnavailable
	case errors.Is(err, screening.ErrNoRepositories), errors.Is(err, screening.ErrNoCommits):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func userMessage(user string, err error) string {
	switch {
	case errors.Is(err, screening.ErrNoEvaluator):
		return missingKeyMessage
	case errors.Is(err, screening.ErrNoRepositories):
		return fmt.Sprintf("No repositories found for %s", user)
	case errors.Is(err, screening.ErrNoCommits):
		return fmt.Sprintf("No commits found for %s", user)
	default:
		return err.Error()
	}
}
