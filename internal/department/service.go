package department

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gestaozabele/recrutamento/internal/apperr"
	"github.com/gestaozabele/recrutamento/internal/mirror"
	"github.com/gestaozabele/recrutamento/internal/rbac"
	"github.com/gestaozabele/recrutamento/internal/repo"
	"github.com/gestaozabele/recrutamento/internal/util"
)

const mirrorTable = "departamentos"

type Store interface {
	Create(ctx context.Context, d *Department) error
	Get(ctx context.Context, id string) (*Department, error)
	List(ctx context.Context, status string) ([]Department, error)
	Update(ctx context.Context, d *Department) error
}

// AgencyChecker confirma que uma agência existe e está ativa.
type AgencyChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// UserChecker confirma que um utilizador existe e está ativo.
type UserChecker interface {
	IsActive(ctx context.Context, id string) (bool, error)
}

// Service gere os departamentos. Apenas Admin e Manager escrevem.
type Service struct {
	store    Store
	mirror   mirror.Sink
	agencies AgencyChecker
	users    UserChecker
	now      func() time.Time
}

func NewService(store Store, sink mirror.Sink, agencies AgencyChecker, users UserChecker) *Service {
	return &Service{store: store, mirror: sink, agencies: agencies, users: users, now: time.Now}
}

func (s *Service) validateRefs(ctx context.Context, managerID string, agencias []string) error {
	if managerID != "" && s.users != nil {
		ok, err := s.users.IsActive(ctx, managerID)
		if err != nil {
			return apperr.Internal(err)
		}
		if !ok {
			return apperr.Validation("manager inexistente ou inativo")
		}
	}
	if s.agencies == nil {
		return nil
	}
	for _, id := range agencias {
		ok, err := s.agencies.Exists(ctx, id)
		if err != nil {
			return apperr.Internal(err)
		}
		if !ok {
			return apperr.Validation("agência não encontrada: " + id)
		}
	}
	return nil
}

func uniqueIDs(ids []string) []string {
	out := []string{}
	for _, id := range ids {
		out = util.AppendUnique(out, strings.TrimSpace(id))
	}
	return out
}

// Create regista um departamento do conjunto fixo.
func (s *Service) Create(ctx context.Context, actor rbac.Actor, in CreateInput) (*Department, error) {
	if !rbac.CanManageOrganization(actor) {
		return nil, apperr.Forbidden("apenas Admin e Manager gerem departamentos")
	}
	if err := util.ValidateStruct(in); err != nil {
		return nil, err
	}
	nome := strings.TrimSpace(in.Nome)
	if !rbac.ValidDepartment(nome) {
		return nil, apperr.Validation("departamento inválido").WithDetails(map[string]any{"permitidos": rbac.Departments})
	}
	d := &Department{
		ID:        util.NewID(),
		Nome:      nome,
		Descricao: strings.TrimSpace(in.Descricao),
		ManagerID: strings.TrimSpace(in.ManagerID),
		Agencias:  uniqueIDs(in.Agencias),
		Status:    StatusAtivo,
	}
	if err := s.validateRefs(ctx, d.ManagerID, d.Agencias); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	d.CriadoEm, d.AtualizadoEm = now, now
	if err := s.store.Create(ctx, d); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, apperr.Conflict("departamento já registado")
		}
		return nil, apperr.Internal(err)
	}
	s.mirror.Replicate(ctx, mirrorTable, d.MirrorRow())
	return d, nil
}

func (s *Service) List(ctx context.Context, status string) ([]Department, error) {
	deps, err := s.store.List(ctx, status)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return deps, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Department, error) {
	d, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperr.NotFound("departamento não encontrado")
		}
		return nil, apperr.Internal(err)
	}
	return d, nil
}

func (s *Service) save(ctx context.Context, d *Department) error {
	d.AtualizadoEm = s.now().UTC()
	if err := s.store.Update(ctx, d); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperr.NotFound("departamento não encontrado")
		}
		return apperr.Internal(err)
	}
	s.mirror.Replicate(ctx, mirrorTable, d.MirrorRow())
	return nil
}

// Update altera descrição, manager e agências. O nome é fixo.
func (s *Service) Update(ctx context.Context, actor rbac.Actor, id string, in UpdateInput) (*Department, error) {
	if !rbac.CanManageOrganization(actor) {
		return nil, apperr.Forbidden("apenas Admin e Manager gerem departamentos")
	}
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	managerID, agencias := d.ManagerID, d.Agencias
	if in.ManagerID != nil {
		managerID = strings.TrimSpace(*in.ManagerID)
	}
	if in.Agencias != nil {
		agencias = uniqueIDs(*in.Agencias)
	}
	if err := s.validateRefs(ctx, managerID, agencias); err != nil {
		return nil, err
	}
	if in.Descricao != nil {
		d.Descricao = strings.TrimSpace(*in.Descricao)
	}
	d.ManagerID, d.Agencias = managerID, agencias

	if err := s.save(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) Inactivate(ctx context.Context, actor rbac.Actor, id string) (*Department, error) {
	if !rbac.CanManageOrganization(actor) {
		return nil, apperr.Forbidden("apenas Admin e Manager gerem departamentos")
	}
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status == StatusInativo {
		return nil, apperr.Validation("departamento já está inativo")
	}
	d.Status = StatusInativo
	if err := s.save(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}
