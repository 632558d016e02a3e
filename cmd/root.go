package cmd

import (
	"errors"
	"log"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/gh-screener/internal/ai/gemini"
	"github.com/spigell/gh-screener/internal/github"
	"github.com/spigell/gh-screener/internal/pacing"
	"github.com/spigell/gh-screener/internal/web"
)

const (
	app       = "gh-screener"
	envPrefix = "GH_SCREENER"
)

type Config struct {
	GitHub *GitHubConfig  `mapstructure:"github"`
	AI     *AIConfig      `mapstructure:"ai"`
	Pacing *pacing.Config `mapstructure:"pacing"`
	Search *SearchConfig  `mapstructure:"search"`
	Web    *web.Config    `mapstructure:"web"`
}

type GitHubConfig struct {
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"token-file"`
	// PatchLimit caps how many of the newest commits get their patch fetched.
	PatchLimit int `mapstructure:"patch-limit"`
}

type AIConfig struct {
	Gemini *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string             `mapstructure:"api-key"`
	APIKeyFile   string             `mapstructure:"api-key-file"`
	Model        string             `mapstructure:"model"`
	MaxRetries   int                `mapstructure:"max-retries"`
	MaxLogLength int                `mapstructure:"max-log-length"`
	Prompts      gemini.RubricFiles `mapstructure:"prompts"`
}

type SearchConfig struct {
	Levels map[string]github.RepoRange `mapstructure:"levels"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "gh-screener evaluates GitHub developers from their commit history and ranks them against a job",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := bindEnv(viper.GetViper()); err != nil {
		log.Fatalf("binding environment variables: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is gh-screener.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().StringP("token", "t", "", "GitHub personal access token (or set GITHUB_TOKEN)")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("github.token", rootCmd.PersistentFlags().Lookup("token"))
}

// bindEnv wires the well-known variables and the GH_SCREENER_ prefix.
func bindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for key, env := range map[string]string{
		"github.token":           "GITHUB_TOKEN",
		"github.token-file":      "GITHUB_TOKEN_FILE",
		"ai.gemini.api-key":      "GEMINI_API_KEY",
		"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return err
		}
	}

	return nil
}

func initConfig() {
	// The version command runs without any configuration.
	if versionCmd.CalledAs() != "" {
		return
	}

	if err := readConfig(viper.GetViper(), cfgFile); err != nil {
		log.Fatal(err)
	}
}

// readConfig loads file, or gh-screener.* from the working directory when file
// is empty. Only an explicitly requested file is mandatory.
func readConfig(v *viper.Viper, file string) error {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(app)
	}

	err := v.ReadInConfig()

	var notFound viper.ConfigFileNotFoundError
	if file == "" && errors.As(err, &notFound) {
		return nil
	}

	return err
}

func getConfig() (*Config, error) {
	return loadConfig(viper.GetViper())
}

// loadConfig decodes v into a Config with every section present.
func loadConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	if err := v.Unmarshal(&config); err != nil {
		return config, err
	}

	if config == nil {
		config = &Config{}
	}
	if config.GitHub == nil {
		config.GitHub = &GitHubConfig{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}
	if config.Pacing == nil {
		config.Pacing = &pacing.Config{}
	}
	if config.Search == nil {
		config.Search = &SearchConfig{}
	}
	if config.Web == nil {
		config.Web = &web.Config{}
	}

	return config, nil
}
