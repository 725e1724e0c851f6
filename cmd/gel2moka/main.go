package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/moka/gel2moka/internal/config"
	"github.com/moka/gel2moka/internal/domain/booking"
	"github.com/moka/gel2moka/internal/platform/db"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var inputFile, outputFile string

	cmd := &cobra.Command{
		Use:          "gel2moka",
		Short:        "Parses output from negneg_cases.py and books all cases into Moka",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), inputFile, outputFile, cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVarP(&inputFile, "input_file", "i", "", "output from negneg_cases.py")
	cmd.Flags().StringVarP(&outputFile, "output_file", "o", "", "tab-separated log file")
	_ = cmd.MarkFlagRequired("input_file")
	_ = cmd.MarkFlagRequired("output_file")
	return cmd
}

func newLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	logger := zerolog.New(w).With().Timestamp().Logger()
	if cfg.IsConsoleLog() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

func run(ctx context.Context, inputFile, outputFile string, logw io.Writer) error {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg, logw).With().Str("run_id", uuid.NewString()).Logger()

	// The case list is checked in full before any connection is made.
	cases, err := readCases(inputFile)
	if err != nil {
		logger.Error().Err(err).Str("input_file", inputFile).Msg("cannot read case list")
		return err
	}
	logger.Info().Int("cases", len(cases)).Str("input_file", inputFile).Msg("case list parsed")

	gw, err := db.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to moka")
		return err
	}
	defer gw.Close()

	results, err := booking.OpenResultLog(outputFile)
	if err != nil {
		logger.Error().Err(err).Str("output_file", outputFile).Msg("cannot open result log")
		return err
	}
	defer results.Close()

	svc := booking.NewService(booking.NewRepoSQL(gw), booking.DefaultAuditIdentity(), logger)

	start := time.Now()
	sum, runErr := svc.Run(ctx, cases, results)
	evt := logger.Info()
	if runErr != nil {
		evt = logger.Error().Err(runErr)
	}
	evt.Int("total", sum.Total).
		Int("success", sum.Success).
		Int("skipped", sum.Skipped).
		Int("errors", sum.Errors).
		Int("remaining", len(cases)-sum.Total).
		Dur("elapsed", time.Since(start)).
		Object("db", db.GetPoolStats(gw)).
		Msg("booking run finished")
	return runErr
}

func readCases(path string) ([]booking.Case, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()

	cases, err := booking.ParseCaseList(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cases, nil
}
