package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/gh-screener/internal/report"
	"github.com/spigell/gh-screener/internal/screening"
)

const (
	formatText = "text"
	formatJSON = "json"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <username>",
	Short: "Fetch the commit history of a GitHub user and rate it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		analyze(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringP("output", "o", "", "write the commit log to this file; the rating report goes next to it as <name>_rating.txt")
	analyzeCmd.Flags().Bool("no-rate", false, "skip AI analysis and only fetch commits")
	analyzeCmd.Flags().StringP("format", "f", formatText, "report format: text or json")
}

func analyze(cmd *cobra.Command, user string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	env := setup(ctx)
	logger := env.logger

	output, _ := cmd.Flags().GetString("output")
	noRate, _ := cmd.Flags().GetBool("no-rate")
	format, err := reportFormat(cmd)
	if err != nil {
		logger.Fatal("parsing flags", zap.Error(err))
	}

	if !noRate {
		env.requireEvaluator()
	}

	history, err := env.service.Fetch(ctx, user)
	switch {
	case errors.Is(err, screening.ErrNoRepositories):
		logger.Info("exiting", zap.String("reason", "no repositories found or user doesn't exist"), zap.String("user", user))
		return
	case errors.Is(err, screening.ErrNoCommits):
		logger.Info("exiting", zap.String("reason", "no commits found"), zap.String("user", user))
		return
	case err != nil:
		logger.Fatal("fetching commit history", zap.Error(err))
	}

	logger.Info("fetched commit history",
		zap.String("user", history.User),
		zap.Int("repositories", len(history.Repositories)),
		zap.Int("commits", len(history.Commits)),
		zap.Int("patches", history.Patches),
	)

	if !noRate {
		profile, err := env.service.AnalyzeHistory(ctx, history)
		if err != nil {
			logger.Fatal("analyzing profile", zap.Error(err))
		}

		text := report.Profile(profile.Username, profile.Analysis, profile.CommitsAnalyzed)
		if err := printReport(format, text, profile); err != nil {
			logger.Fatal("printing report", zap.Error(err))
		}

		if output != "" {
			ratingFile := report.RatingPath(output)
			if err := writeFile(ratingFile, text); err != nil {
				logger.Fatal("saving rating report", zap.Error(err))
			}
			logger.Info("rating report saved", zap.String("filename", ratingFile))
		}
	}

	if output != "" {
		if err := writeFile(output, report.CommitLog(history)); err != nil {
			logger.Fatal("saving commits", zap.Error(err))
		}
		logger.Info("commits saved", zap.String("filename", output))
	}
}

func reportFormat(cmd *cobra.Command) (string, error) {
	format, _ := cmd.Flags().GetString("format")
	switch format {
	case formatText, formatJSON:
		return format, nil
	default:
		return "", fmt.Errorf("unknown format %q, expected %s or %s", format, formatText, formatJSON)
	}
}

// printReport writes text, or the JSON encoding of data, to stdout.
func printReport(format, text string, data any) error {
	if format == formatJSON {
		return report.JSON(os.Stdout, data)
	}

	_, err := fmt.Fprintln(os.Stdout, "\n"+text)
	return err
}

func writeFile(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
