package cvanalysis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/recrutamento/internal/apperr"
	"github.com/gestaozabele/recrutamento/internal/candidate"
	"github.com/gestaozabele/recrutamento/internal/mirror"
	"github.com/gestaozabele/recrutamento/internal/rbac"
	"github.com/gestaozabele/recrutamento/internal/repo"
	"github.com/gestaozabele/recrutamento/internal/util"
)

const mirrorTable = "analises_cv"

type Store interface {
	Create(ctx context.Context, a *Analysis) error
	Get(ctx context.Context, id string) (*Analysis, error)
	List(ctx context.Context, filter ListFilter, scope rbac.Scope) ([]Analysis, error)
	Update(ctx context.Context, a *Analysis) error
	Delete(ctx context.Context, id string) error
}

// CandidateReader confirma que o candidato referido é visível pelo ator.
type CandidateReader interface {
	Get(ctx context.Context, actor rbac.Actor, id string) (*candidate.Candidate, error)
}

// Service gere as análises de CV. Dono e departamento do dono são fixados na
// criação e decidem a visibilidade.
type Service struct {
	store      Store
	mirror     mirror.Sink
	candidates CandidateReader
	now        func() time.Time
}

func NewService(store Store, sink mirror.Sink, candidates CandidateReader) *Service {
	return &Service{store: store, mirror: sink, candidates: candidates, now: time.Now}
}

func notFound() error {
	return apperr.NotFound("Análise de CV não encontrada.")
}

func (s *Service) checkCandidate(ctx context.Context, actor rbac.Actor, id string) error {
	if id == "" || s.candidates == nil {
		return nil
	}
	if _, err := s.candidates.Get(ctx, actor, id); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return apperr.Validation("candidato não encontrado: " + id)
		}
		return err
	}
	return nil
}

// Create regista a análise em nome do ator.
func (s *Service) Create(ctx context.Context, actor rbac.Actor, in CreateInput) (*Analysis, error) {
	if actor.Malformed() {
		return nil, apperr.Forbidden("perfil de utilizador incompleto")
	}
	in.Analise = strings.TrimSpace(in.Analise)
	if in.Analise == "" {
		return nil, apperr.Validation("O campo 'analise' é obrigatório.")
	}
	if err := util.ValidateStruct(in); err != nil {
		return nil, err
	}
	candidatoID := strings.TrimSpace(in.CandidatoID)
	if err := s.checkCandidate(ctx, actor, candidatoID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	a := &Analysis{
		ID:               util.NewID(),
		CandidatoID:      candidatoID,
		Analise:          in.Analise,
		Classificacao:    strings.TrimSpace(in.Classificacao),
		Status:           strings.TrimSpace(in.Status),
		Dono:             actor.ID,
		DepartamentoDono: actor.Department,
		AnalisadoPor:     actor.ID,
		DataAnalise:      now,
		CriadoEm:         now,
		AtualizadoEm:     now,
	}
	if in.Pontuacao != nil {
		a.Pontuacao = *in.Pontuacao
	}
	if a.Status == "" {
		a.Status = StatusDefault
	}

	if err := s.store.Create(ctx, a); err != nil {
		return nil, apperr.Internal(err)
	}
	s.mirror.Replicate(ctx, mirrorTable, a.MirrorRow(false))
	return a, nil
}

// Get devolve a análise se o ator a puder ver.
func (s *Service) Get(ctx context.Context, actor rbac.Actor, id string) (*Analysis, error) {
	a, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, notFound()
		}
		return nil, apperr.Internal(err)
	}
	if !rbac.CanAccess(actor, a.PolicyTarget(), rbac.Read) {
		return nil, notFound()
	}
	return a, nil
}

func (s *Service) List(ctx context.Context, actor rbac.Actor, filter ListFilter) ([]Analysis, error) {
	list, err := s.store.List(ctx, filter, rbac.ScopeFor(actor))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return list, nil
}

// Update aplica os campos permitidos. Alterar a análise ou a pontuação
// regista o ator como analista.
func (s *Service) Update(ctx context.Context, actor rbac.Actor, id string, in UpdateInput) (*Analysis, error) {
	if err := util.ValidateStruct(in); err != nil {
		return nil, err
	}
	a, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !rbac.CanAccess(actor, a.PolicyTarget(), rbac.Write) {
		return nil, apperr.Forbidden("Sem permissão para atualizar esta análise.")
	}

	now := s.now().UTC()
	reanalysed := false
	if in.CandidatoID != nil {
		id := strings.TrimSpace(*in.CandidatoID)
		if err := s.checkCandidate(ctx, actor, id); err != nil {
			return nil, err
		}
		a.CandidatoID = id
	}
	if in.Analise != nil {
		text := strings.TrimSpace(*in.Analise)
		if text == "" {
			return nil, apperr.Validation("O campo 'analise' é obrigatório.")
		}
		reanalysed = reanalysed || text != a.Analise
		a.Analise = text
	}
	if in.Pontuacao != nil {
		reanalysed = reanalysed || *in.Pontuacao != a.Pontuacao
		a.Pontuacao = *in.Pontuacao
	}
	if in.Classificacao != nil {
		a.Classificacao = strings.TrimSpace(*in.Classificacao)
	}
	if in.Status != nil {
		if status := strings.TrimSpace(*in.Status); status != "" {
			a.Status = status
		}
	}
	if reanalysed {
		a.AnalisadoPor = actor.ID
		a.DataAnalise = now
	}
	a.AtualizadoEm = now

	if err := s.store.Update(ctx, a); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, notFound()
		}
		return nil, apperr.Internal(err)
	}
	s.mirror.Replicate(ctx, mirrorTable, a.MirrorRow(false))
	return a, nil
}

// Delete remove a análise da base primária; no espelho a linha fica marcada
// como excluída.
func (s *Service) Delete(ctx context.Context, actor rbac.Actor, id string) error {
	a, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if !rbac.CanAccess(actor, a.PolicyTarget(), rbac.Write) {
		return apperr.Forbidden("Sem permissão para excluir esta análise.")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return notFound()
		}
		return apperr.Internal(err)
	}
	a.AtualizadoEm = s.now().UTC()
	s.mirror.Replicate(ctx, mirrorTable, a.MirrorRow(true))
	log.Info().Str("analise_id", id).Str("usuario_id", actor.ID).Msg("análise de CV excluída")
	return nil
}
