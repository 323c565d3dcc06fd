package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/gestaozabele/recrutamento/internal/config"
	"github.com/gestaozabele/recrutamento/internal/db"
	"github.com/gestaozabele/recrutamento/internal/mirror"
	"github.com/gestaozabele/recrutamento/internal/notify"
	"github.com/gestaozabele/recrutamento/internal/report"
	"github.com/gestaozabele/recrutamento/internal/user"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("worker encerrado com erro")
	}
}

func run() error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.Production() {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer pool.Close()

	mirrorDB, err := mirror.OpenSQLite(ctx, cfg.Mirror.SQLitePath)
	if err != nil {
		return fmt.Errorf("espelho: %w", err)
	}
	defer mirrorDB.Close()

	var alerter mirror.Alerter
	if slack := notify.NewSlackNotifier(cfg.Notifications.SlackWebhookURL); slack != nil {
		alerter = slack
	}
	worker, err := mirror.NewWorker(cfg.RedisURL, cfg.Mirror.Queue, cfg.Mirror.WorkerConcurrency,
		mirror.NewRetryHandler(mirrorDB, alerter))
	if err != nil {
		return fmt.Errorf("worker: %w", err)
	}

	reports := report.NewService(report.NewRepository(pool), mirrorDB, user.NewRepository(pool), cfg.Location)
	scheduler := report.NewScheduler(reports, cfg.Reports.SnapshotCron, cfg.Location)
	if err := scheduler.Start(ctx); err != nil {
		return fmt.Errorf("agendador: %w", err)
	}
	defer scheduler.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("queue", cfg.Mirror.Queue).Msg("worker do espelho iniciado")
		return worker.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("encerrando...")
		return nil
	})
	return g.Wait()
}
