package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"cortez.fish/bite-pipeline/internal/cli"
	"cortez.fish/bite-pipeline/internal/config"
	"cortez.fish/bite-pipeline/internal/envelope"
	"cortez.fish/bite-pipeline/internal/logging"
)

func runHealth(args []string) int {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Error().Err(err).Str("data_dir", cfg.DataDir).Msg("health check failed")
		fmt.Fprintf(os.Stderr, "Health check failed: data directory not writable: %v\n", err)
		return 1
	}

	bitePath := filepath.Join(cfg.DataDir, envelope.BiteFile)
	biteEnv, err := envelope.LoadBite(bitePath)
	switch {
	case err != nil:
		logger.Warn().Err(err).Msg("bite snapshot unreadable")
	case biteEnv == nil:
		logger.Info().Str("path", bitePath).Msg("no bite snapshot published yet")
	default:
		logger.Info().
			Time("generated_at", biteEnv.GeneratedAt).
			Int("reports", len(biteEnv.Data.Reports)).
			Msg("bite snapshot readable")
	}

	logger.Info().Str("data_dir", cfg.DataDir).Msg("configuration health check passed")
	fmt.Println("ok: configuration valid, data directory writable")
	return 0
}
