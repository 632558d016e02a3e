package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/gh-screener/internal/ai"
	"github.com/spigell/gh-screener/internal/github"
	"github.com/spigell/gh-screener/internal/report"
	"github.com/spigell/gh-screener/internal/screening"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Rank GitHub users against a job description",
	Example: `  gh-screener match --jd job.txt --users "user1,user2,user3"
  gh-screener match --jd-text "Looking for junior AI engineer..." --users users.txt
  gh-screener match --jd job.txt --search --language python --location "San Francisco"`,
	Run: func(cmd *cobra.Command, _ []string) {
		match(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().String("jd", "", "path to a job description file (plain text is accepted too)")
	matchCmd.Flags().String("jd-text", "", "job description as text")
	matchCmd.Flags().String("users", "", "comma separated usernames or a path to a file with one username per line")
	matchCmd.Flags().String("users-file", "", "file with one username per line")
	matchCmd.Flags().Bool("search", false, "search GitHub for candidates instead of a username list")
	addSearchFlags(matchCmd)
	matchCmd.Flags().StringP("output", "o", "", "save the ranked report and raw JSON to this file")
	matchCmd.Flags().StringP("format", "f", formatText, "report format: text or json")
	matchCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation before evaluating candidates")
}

func addSearchFlags(cmd *cobra.Command) {
	cmd.Flags().String("language", "", "filter GitHub search by programming language")
	cmd.Flags().String("location", "", "filter GitHub search by location")
	cmd.Flags().String("experience-level", github.LevelAny, "filter by experience level: junior (1-15 repos), mid (15-40), senior (40+) or any")
	cmd.Flags().Int("max-candidates", github.DefaultMaxCandidates, "maximum candidates to evaluate")
}

func searchFromFlags(cmd *cobra.Command) github.UserSearch {
	language, _ := cmd.Flags().GetString("language")
	location, _ := cmd.Flags().GetString("location")
	level, _ := cmd.Flags().GetString("experience-level")
	maxCandidates, _ := cmd.Flags().GetInt("max-candidates")

	return github.UserSearch{Language: language, Location: location, Level: level, Max: maxCandidates}
}

func match(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	env := setup(ctx)
	logger := env.logger
	env.requireEvaluator()

	format, err := reportFormat(cmd)
	if err != nil {
		logger.Fatal("parsing flags", zap.Error(err))
	}

	jdFile, _ := cmd.Flags().GetString("jd")
	jdText, _ := cmd.Flags().GetString("jd-text")
	usersArg, _ := cmd.Flags().GetString("users")
	usersFile, _ := cmd.Flags().GetString("users-file")
	useSearch, _ := cmd.Flags().GetBool("search")

	jd, err := loadJobDescription(jdFile, jdText)
	if err != nil {
		logger.Fatal("loading job description", zap.Error(err), zap.String("hint", "use --jd or --jd-text"))
	}
	if usersArg == "" && usersFile == "" && !useSearch {
		logger.Fatal("candidates are required", zap.String("hint", "use --users, --users-file or --search"))
	}

	logger.Info("parsing job description")
	reqs, err := env.service.ParseJob(ctx, jd)
	if err != nil {
		logger.Fatal("parsing job description", zap.Error(err))
	}

	var users []string
	switch {
	case usersFile != "":
		users, err = readUsernames(usersFile)
	case usersArg != "":
		users, err = loadUsernames(usersArg)
	default:
		search := searchFromFlags(cmd)
		logger.Info("searching github for candidates",
			zap.String("language", search.Language),
			zap.String("location", search.Location),
			zap.String("experience_level", search.Level),
		)
		users, err = env.service.FindCandidates(ctx, search)
	}
	if err != nil {
		logger.Fatal("resolving candidates", zap.Error(err))
	}
	if maxCandidates, _ := cmd.Flags().GetInt("max-candidates"); len(users) > maxCandidates && maxCandidates > 0 {
		logger.Info("limiting candidates", zap.Int("requested", len(users)), zap.Int("max", maxCandidates))
		users = capUsers(users, maxCandidates)
	}

	if len(users) == 0 {
		logger.Info("exiting", zap.String("reason", "no candidates to evaluate"))
		return
	}

	logger.Info("candidates resolved", zap.Int("count", len(users)), zap.Strings("users", users))

	if auto, _ := cmd.Flags().GetBool("auto-approve"); !auto {
		prompt := promptui.Select{
			Label: fmt.Sprintf("Evaluate %d candidates against %q?", len(users), reqs.Value.Title),
			Items: []string{PromptYes, PromptNo},
		}
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
		if action == PromptNo {
			logger.Info("exiting", zap.String("reason", "got no from prompt"))
			return
		}
	}

	results, summary, err := env.service.Evaluate(ctx, users, reqs.Value)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Fatal("evaluating candidates", zap.Error(err))
		}
		logger.Warn("evaluation interrupted, reporting partial results", zap.Int("evaluated", summary.Evaluated))
	}

	text := report.Ranking(results, reqs.Value)
	payload := matchResult{Requirements: reqs, Results: results}
	if err := printReport(format, text, payload); err != nil {
		logger.Fatal("printing report", zap.Error(err))
	}

	if output, _ := cmd.Flags().GetString("output"); output != "" {
		content, err := report.WithRawData(text, results)
		if err != nil {
			logger.Fatal("encoding results", zap.Error(err))
		}
		if err := writeFile(output, content); err != nil {
			logger.Fatal("saving results", zap.Error(err))
		}
		logger.Info("results saved", zap.String("filename", output))
	}
}

// capUsers keeps the first limit users. A non-positive limit keeps all.
func capUsers(users []string, limit int) []string {
	if limit <= 0 || len(users) <= limit {
		return users
	}
	return users[:limit]
}

type matchResult struct {
	Requirements ai.Reply[ai.JobRequirements] `json:"job_requirements"`
	Results      []screening.Candidate        `json:"results"`
}

// loadJobDescription prefers text, then the content of file. A file argument
// that does not exist is taken as the description itself.
func loadJobDescription(file, text string) (string, error) {
	if text = strings.TrimSpace(text); text != "" {
		return text, nil
	}

	file = strings.TrimSpace(file)
	if file == "" {
		return "", errors.New("job description is empty")
	}

	if info, err := os.Stat(file); err == nil && !info.IsDir() {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading job description: %w", err)
		}
		if strings.TrimSpace(string(data)) == "" {
			return "", fmt.Errorf("job description file %q is empty", file)
		}
		return string(data), nil
	}

	return file, nil
}

// loadUsernames reads arg as a file when it exists, otherwise as a comma
// separated list.
func loadUsernames(arg string) ([]string, error) {
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		return readUsernames(arg)
	}
	return screening.SplitUsernames(arg), nil
}

func readUsernames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening usernames file: %w", err)
	}
	defer f.Close()

	var users []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if user := strings.TrimSpace(scanner.Text()); user != "" {
			users = append(users, user)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading usernames file: %w", err)
	}

	return users, nil
}
