package report

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Snapshotter é a operação agendada.
type Snapshotter interface {
	PersistSnapshots(ctx context.Context) error
}

// Scheduler grava snapshots de relatórios segundo uma expressão cron.
type Scheduler struct {
	cron *cron.Cron
	job  Snapshotter
	spec string
}

func NewScheduler(job Snapshotter, spec string, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron: cron.New(cron.WithLocation(loc), cron.WithLogger(cronLogger{})),
		job:  job,
		spec: spec,
	}
}

// Start regista o job e arranca o cron. ctx é propagado para cada execução.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.run(ctx) }); err != nil {
		return fmt.Errorf("cron %q: %w", s.spec, err)
	}
	s.cron.Start()
	log.Info().Str("spec", s.spec).Msg("agendador de relatórios iniciado")
	return nil
}

// Stop para o cron e espera pelo job em curso.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("agendador de relatórios parado")
}

func (s *Scheduler) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	started := time.Now()
	if err := s.job.PersistSnapshots(ctx); err != nil {
		log.Error().Err(err).Msg("falha ao gravar snapshots de relatórios")
		return
	}
	log.Info().Dur("duracao", time.Since(started)).Msg("snapshots de relatórios concluídos")
}

type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg(msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
