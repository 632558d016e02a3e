package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/gh-screener/internal/github"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search GitHub users by language, location and experience level",
	Run: func(cmd *cobra.Command, _ []string) {
		search(cmd)
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	addSearchFlags(searchCmd)
}

func search(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	env := setup(ctx)

	s := searchFromFlags(cmd)
	env.logger.Info("searching github users",
		zap.String("query", github.BuildUserQuery(s, env.config.Search.Levels)),
		zap.Int("max", s.Max),
	)

	users, err := env.service.FindCandidates(ctx, s)
	if err != nil {
		env.logger.Fatal("searching users", zap.Error(err))
	}

	env.logger.Info("found candidates", zap.Int("count", len(users)))

	for _, user := range users {
		fmt.Println(user)
	}
}
