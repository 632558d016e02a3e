package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/gh-screener/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web UI",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("listen", web.DefaultListen, "address to listen on")
	viper.BindPFlag("web.listen", serveCmd.Flags().Lookup("listen"))
	viper.SetDefault("web.rate-per-minute", web.DefaultRatePerMinute)
	viper.SetDefault("web.burst", web.DefaultBurst)
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := setup(ctx)

	if !env.service.HasEvaluator() {
		env.logger.Warn("ai analysis is unavailable, pages will report the missing key",
			zap.Error(env.evaluatorErr),
			zap.String("hint", apiKeyHint),
		)
	}

	if !viper.GetBool("debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	srv, err := web.New(*env.config.Web, env.service, env.logger)
	if err != nil {
		env.logger.Fatal("creating web server", zap.Error(err))
	}

	if err := srv.Run(ctx); err != nil {
		env.logger.Fatal("serving", zap.Error(err))
	}
}
