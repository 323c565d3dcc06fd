package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/recrutamento/internal/auth"
	"github.com/gestaozabele/recrutamento/internal/calendar"
	"github.com/gestaozabele/recrutamento/internal/config"
	"github.com/gestaozabele/recrutamento/internal/db"
	internalhttp "github.com/gestaozabele/recrutamento/internal/http"
	"github.com/gestaozabele/recrutamento/internal/mirror"
	"github.com/gestaozabele/recrutamento/internal/notify"
	"github.com/gestaozabele/recrutamento/internal/storage"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("api encerrada com erro")
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

	ctx := context.Background()

	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer pool.Close()

	if cfg.DBAutoMigrate {
		if err := db.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis parse: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	mirrorDB, err := mirror.OpenSQLite(ctx, cfg.Mirror.SQLitePath)
	if err != nil {
		return fmt.Errorf("espelho: %w", err)
	}
	defer mirrorDB.Close()

	queue, err := mirror.NewQueue(cfg.RedisURL, cfg.Mirror.Queue, cfg.Mirror.MaxRetry)
	if err != nil {
		return fmt.Errorf("fila do espelho: %w", err)
	}
	defer queue.Close()

	inbox, err := openInbox(ctx, cfg, pool)
	if err != nil {
		return fmt.Errorf("notificações: %w", err)
	}

	var mailer notify.Mailer
	if cfg.Notifications.SMTPHost != "" {
		n := cfg.Notifications
		mailer = notify.NewSMTPMailer(n.SMTPHost, n.SMTPPort, n.SMTPUser, n.SMTPPassword, n.SMTPFrom, n.SMTPFromName)
	}

	var uploader storage.Uploader = storage.NoopUploader{}
	switch cfg.Storage.Provider {
	case "", "noop":
		// mantém uploader padrão
	case "minio":
		uploader, err = storage.NewMinioUploader(ctx, storage.MinioConfig{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			UseSSL:    cfg.Storage.UseSSL,
			PublicURL: cfg.Storage.PublicURL,
		})
		if err != nil {
			return fmt.Errorf("storage: %w", err)
		}
	default:
		return fmt.Errorf("storage: provedor %s não suportado", cfg.Storage.Provider)
	}

	var cal calendar.Sink = calendar.Noop{}
	if cfg.Calendar.CredentialsFile != "" {
		google, err := calendar.NewGoogle(ctx, cfg.Calendar.CredentialsFile, cfg.Calendar.CalendarID, cfg.Location)
		if err != nil {
			return err
		}
		cal = google
	}

	handler, err := internalhttp.NewRouter(internalhttp.Dependencies{
		Config:   cfg,
		Pool:     pool,
		Redis:    redisClient,
		Mirror:   mirror.NewReplicator(mirrorDB, queue),
		MirrorDB: mirrorDB,
		Inbox:    inbox,
		Mailer:   mailer,
		Uploader: uploader,
		Calendar: cal,
		JWT:      auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessTTL),
		Refresh:  auth.NewRefreshStore(redisClient, cfg.JWTRefreshTTL),
	})
	if err != nil {
		return fmt.Errorf("router: %w", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("API ouvindo em :%d", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("encerrando...")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
