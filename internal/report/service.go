package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/gestaozabele/recrutamento/internal/apperr"
	"github.com/gestaozabele/recrutamento/internal/mirror"
	"github.com/gestaozabele/recrutamento/internal/rbac"
)

const snapshotTable = "relatorios"

// Store carrega as projeções filtradas por janela e visibilidade.
type Store interface {
	CandidateFacts(ctx context.Context, w Window, scope rbac.Scope) ([]CandidateFact, error)
	AnalysisFacts(ctx context.Context, w Window, scope rbac.Scope) ([]AnalysisFact, error)
}

// NameResolver resolve nomes de utilizadores para o ranking.
type NameResolver interface {
	Names(ctx context.Context, ids []string) (map[string]string, error)
}

// DashboardReport é a resposta do dashboard.
type DashboardReport struct {
	Periodo  Period  `json:"periodo"`
	Janela   Window  `json:"janela"`
	Metricas Metrics `json:"metricas"`
}

// FunnelReport é a resposta do funil.
type FunnelReport struct {
	Periodo Period       `json:"periodo"`
	Janela  Window       `json:"janela"`
	Etapas  []StageCount `json:"etapas"`
}

// RankingReport é a resposta do ranking mensal.
type RankingReport struct {
	Mes     int         `json:"mes"`
	Ano     int         `json:"ano"`
	Janela  Window      `json:"janela"`
	Ranking []RankEntry `json:"ranking"`
}

type Service struct {
	store  Store
	mirror mirror.Writer
	names  NameResolver
	loc    *time.Location
	now    func() time.Time
}

func NewService(store Store, writer mirror.Writer, names NameResolver, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{store: store, mirror: writer, names: names, loc: loc, now: time.Now}
}

func (s *Service) facts(ctx context.Context, w Window, scope rbac.Scope) ([]CandidateFact, []AnalysisFact, error) {
	var (
		candidates []CandidateFact
		analyses   []AnalysisFact
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		candidates, err = s.store.CandidateFacts(gctx, w, scope)
		return err
	})
	g.Go(func() error {
		var err error
		analyses, err = s.store.AnalysisFacts(gctx, w, scope)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, apperr.Internal(err)
	}
	return candidates, analyses, nil
}

func (s *Service) window(value string) (Period, Window, error) {
	p, err := ParsePeriod(value)
	if err != nil {
		return "", Window{}, apperr.Validation(err.Error())
	}
	return p, p.Window(s.now(), s.loc), nil
}

func (s *Service) dashboard(ctx context.Context, p Period, w Window, scope rbac.Scope) (*DashboardReport, error) {
	candidates, analyses, err := s.facts(ctx, w, scope)
	if err != nil {
		return nil, err
	}
	return &DashboardReport{Periodo: p, Janela: w, Metricas: Summarize(candidates, analyses)}, nil
}

func (s *Service) funnel(ctx context.Context, p Period, w Window, scope rbac.Scope) (*FunnelReport, error) {
	candidates, err := s.store.CandidateFacts(ctx, w, scope)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &FunnelReport{Periodo: p, Janela: w, Etapas: Funnel(candidates)}, nil
}

// Dashboard resume os candidatos e análises visíveis pelo ator no período.
func (s *Service) Dashboard(ctx context.Context, actor rbac.Actor, period string) (*DashboardReport, error) {
	p, w, err := s.window(period)
	if err != nil {
		return nil, err
	}
	return s.dashboard(ctx, p, w, rbac.ScopeFor(actor))
}

// Funnel conta os candidatos visíveis por etapa do pipeline.
func (s *Service) Funnel(ctx context.Context, actor rbac.Actor, period string) (*FunnelReport, error) {
	p, w, err := s.window(period)
	if err != nil {
		return nil, err
	}
	return s.funnel(ctx, p, w, rbac.ScopeFor(actor))
}

// Rankings calcula o ranking global do mês. month e year a zero usam o mês
// corrente.
func (s *Service) Rankings(ctx context.Context, month, year int) (*RankingReport, error) {
	now := s.now().In(s.loc)
	if month == 0 {
		month = int(now.Month())
	}
	if year == 0 {
		year = now.Year()
	}
	w, err := MonthWindow(month, year, s.loc)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}
	candidates, analyses, err := s.facts(ctx, w, rbac.Scope{Kind: rbac.ScopeAll})
	if err != nil {
		return nil, err
	}

	ids := map[string]struct{}{}
	for _, c := range candidates {
		for _, id := range c.Responsaveis {
			ids[id] = struct{}{}
		}
	}
	for _, a := range analyses {
		ids[a.AnalisadoPor] = struct{}{}
	}
	names := map[string]string{}
	if len(ids) > 0 && s.names != nil {
		list := make([]string, 0, len(ids))
		for id := range ids {
			list = append(list, id)
		}
		if names, err = s.names.Names(ctx, list); err != nil {
			return nil, apperr.Internal(err)
		}
	}
	return &RankingReport{Mes: month, Ano: year, Janela: w, Ranking: Rank(candidates, analyses, names)}, nil
}

func (s *Service) writeSnapshot(ctx context.Context, tipo, periodo string, w Window, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return apperr.Internal(err)
	}
	row := mirror.Row{
		"id":        fmt.Sprintf("%s:%s:%s", tipo, periodo, w.Start.Format("2006-01-02")),
		"tipo":      tipo,
		"periodo":   periodo,
		"inicio":    w.Start,
		"fim":       w.End,
		"ambito":    "global",
		"dados":     string(payload),
		"gerado_em": s.now(),
	}
	if err := s.mirror.Write(ctx, snapshotTable, row); err != nil {
		return apperr.Dependency("falha ao gravar relatório no espelho", err)
	}
	return nil
}

// PersistSnapshots grava no espelho o dashboard e o funil globais de cada
// período e o ranking do mês corrente. O id de cada snapshot deriva do tipo,
// do período e do início da janela, pelo que repetir a operação sobrescreve.
func (s *Service) PersistSnapshots(ctx context.Context) error {
	all := rbac.Scope{Kind: rbac.ScopeAll}
	now := s.now()
	for _, p := range []Period{PeriodWeek, PeriodMonth, PeriodYear} {
		w := p.Window(now, s.loc)
		dash, err := s.dashboard(ctx, p, w, all)
		if err != nil {
			return err
		}
		if err := s.writeSnapshot(ctx, "dashboard", string(p), w, dash.Metricas); err != nil {
			return err
		}
		funnel, err := s.funnel(ctx, p, w, all)
		if err != nil {
			return err
		}
		if err := s.writeSnapshot(ctx, "funil", string(p), w, funnel.Etapas); err != nil {
			return err
		}
	}

	ranking, err := s.Rankings(ctx, 0, 0)
	if err != nil {
		return err
	}
	if err := s.writeSnapshot(ctx, "ranking", "mes", ranking.Janela, ranking.Ranking); err != nil {
		return err
	}
	log.Info().Str("ranking_inicio", ranking.Janela.Start.Format(time.RFC3339)).Msg("snapshots de relatórios gravados")
	return nil
}
