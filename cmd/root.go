package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kozaktomas/securebase/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "securebase",
	Short: "SecureBase website with password and face login",
	Long: `SecureBase serves the marketing site, the feedback form and the
authentication API. Users sign up with a password or with a face descriptor
computed in the browser, and log in by either method.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error), overrides LOG_LEVEL")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// loadConfig reads the environment and installs the global logger.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	zap.ReplaceGlobals(logger)
	return cfg, logger, nil
}
