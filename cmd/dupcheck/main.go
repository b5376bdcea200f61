package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lueurxax/dupcheck/internal/app"
	"github.com/lueurxax/dupcheck/internal/platform/config"
)

var (
	cfg    *config.Config
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "dupcheck",
	Short: "Near-duplicate detection for plain-text documents",
	Long: `dupcheck compares each submitted document sentence by sentence against a
corpus of previously accepted documents. Sentences are matched by MinHash
signatures with banded LSH and, when an embedding provider is configured,
verified semantically. Accepted documents join the corpus.

Configuration is read from the environment and an optional .env file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		cfg = loaded
		logger = newLogger(cfg.App.Env, cfg.App.LogLevel)

		return nil
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(appEnv, level string) zerolog.Logger {
	var l zerolog.Logger

	if appEnv == "local" {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	} else {
		l = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		l.Warn().Str("level", level).Msg("unknown log level, using info")

		lvl = zerolog.InfoLevel
	}

	return l.Level(lvl)
}

// openApp builds the application for commands that need the detector.
func openApp(ctx context.Context) (*app.App, error) {
	application, err := app.New(ctx, cfg, &logger)
	if err != nil {
		return nil, fmt.Errorf("failed to start: %w", err)
	}

	return application, nil
}
