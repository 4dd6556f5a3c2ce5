package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/baderkha/dv-transfer/pkg/migrate"
	"github.com/baderkha/dv-transfer/pkg/migrate/config"
	"github.com/baderkha/dv-transfer/pkg/migrate/config/sourcecfg"
	"github.com/baderkha/dv-transfer/pkg/migrate/config/targetcfg"
	"github.com/baderkha/dv-transfer/pkg/migrate/state"
)

const (
	exitFailed      = 1
	exitMismatch    = 2
	exitInterrupted = 130
)

func waitForInterrupt(ctx context.Context, cancel context.CancelFunc, mger state.Manager, log zerolog.Logger) {
	interruptChannel := make(chan os.Signal, 1)
	signal.Notify(interruptChannel, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interruptChannel)

	select {
	case <-interruptChannel:
		log.Warn().Msg("Interrupt received. Stopping after the current chunk ...")
		mger.OnShutDownEv()
		cancel()
	case <-ctx.Done():
	}
}

func jobFile() string {
	if p := os.Getenv("JOB_FILE"); p != "" {
		return p
	}
	return "job.json"
}

func main() {
	os.Exit(run())
}

func run() int {
	startTime := time.Now()
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime}).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := config.Load[sourcecfg.MYSQL, targetcfg.Cockroach](afero.NewOsFs(), jobFile())
	if err != nil {
		log.Error().Err(err).Msg("could not load job")
		return exitFailed
	}

	migrator, err := migrate.NewMysqlToCockroach(cfg, migrate.WithLogger(log))
	if err != nil {
		log.Error().Err(err).Msg("could not create migrator")
		return exitFailed
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go waitForInterrupt(ctx, cancel, migrator.GetStateManager(), log)

	summary, runErr := migrator.Run(ctx)
	if summary != nil {
		migrate.RenderSummary(os.Stdout, summary)
	}
	log.Info().Str("elapsed", time.Since(startTime).String()).Msg("Time taken")

	switch {
	case runErr == nil:
		return 0
	case errors.Is(runErr, context.Canceled):
		return exitInterrupted
	case errors.Is(runErr, migrate.ErrReconciliationMismatch):
		log.Warn().Msg("Done, check above validation results")
		return exitMismatch
	default:
		log.Error().Err(runErr).Msg("migration failed, re-run to resume")
		return exitFailed
	}
}
