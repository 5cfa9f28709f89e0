package cli

import (
	"context"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"pulse/internal/config"
)

const EnvConfigFile = "PULSE_CONFIG"

var (
	configFile string
	logLevel   string
	timeout    time.Duration
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "pulse",
	Short: "Client for the PulseAPI endpoint monitoring service",
	Long: `Pulse talks to a PulseAPI backend: manage monitored endpoints, follow
incidents and probe results, and run a local agent that keeps the dashboard
fresh and collects notifications.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configFile)
		if err != nil {
			return err
		}
		if logLevel != "" {
			loaded.Logging.Level = logLevel
		}
		setupLogging(loaded.Logging)
		cfg = loaded

		logrus.WithFields(logrus.Fields{
			"config_file": configFile,
			"api":         cfg.API.BaseURL,
		}).Debug("Configuration loaded")
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command line with os.Args.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	defaultConfig := os.Getenv(EnvConfigFile)
	if defaultConfig == "" {
		defaultConfig = "pulse.yaml"
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", defaultConfig, "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Overall deadline for a command, retries included")
}

func setupLogging(cfg config.LoggingConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stderr)

	if cfg.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
}

// commandContext bounds a one-shot command by the --timeout flag.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
