package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"nutricoach/internal/app"
	"nutricoach/internal/config"
	"nutricoach/internal/fatsecret"
	"nutricoach/internal/logging"
)

var (
	// Global flags
	verbose bool
	dataDir string

	// Logger
	logger *zap.Logger

	// Loaded configuration, set in PersistentPreRunE
	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "nutricoach",
	Short: "nutricoach - conversational nutrition coaching agent",
	Long: `nutricoach is a conversational nutrition coach.

It turns free-text meal descriptions into nutrient totals through a
three-tier resolution pipeline (specific lookup, generic lookup, model
estimation), keeps an append-only food journal, derives daily calorie
and macro targets from your body profile, and writes daily and weekly
reports with coaching commentary.

Run without arguments to start the interactive chat interface.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A .env file is optional; real environment variables win.
		_ = godotenv.Load()

		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.Load(dataDir)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if err := logging.Initialize(cfg.DataDir); err != nil {
			logger.Warn("File logging unavailable", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: launch interactive chat
		return runChat(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Data directory (default: ~/.nutricoach)")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newApp builds the full agent from the loaded config.
func newApp() (*app.App, error) {
	a, err := app.New(cfg)
	if errors.Is(err, fatsecret.ErrNoCredentials) {
		return nil, fmt.Errorf("%w\nSet FATSECRET_CONSUMER_KEY and FATSECRET_CONSUMER_SECRET, or fatsecret.consumer_key and fatsecret.consumer_secret in config.yaml", err)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}
