package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.pilab.hu/taskboard/config"
	"go.pilab.hu/taskboard/log"
)

var (
	cfg       *config.ServerConfig
	appLogger log.Logger
)

var rootCmd = &cobra.Command{
	Use:           "taskboard",
	Short:         "Project task board with an OAuth protected tool gateway for agents",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := config.LoadConfig()
		if err != nil {
			return err
		}
		cfg = loaded

		level, err := zerolog.ParseLevel(cfg.LogLevel)
		if err != nil {
			level = zerolog.InfoLevel
		}
		appLogger = log.NewZerologAdapter(level, cfg.LogPretty)
		if err != nil {
			appLogger.Warn(cmd.Context(), "Invalid LOG_LEVEL configured, defaulting to 'info'", map[string]interface{}{
				"configured_log_level": cfg.LogLevel,
			})
		}
		return nil
	},
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if appLogger != nil {
			appLogger.Error(ctx, "Command failed", err)
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, sweepCmd, apiKeyCmd)
}
