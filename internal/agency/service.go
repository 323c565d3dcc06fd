package agency

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gestaozabele/recrutamento/internal/apperr"
	"github.com/gestaozabele/recrutamento/internal/mirror"
	"github.com/gestaozabele/recrutamento/internal/rbac"
	"github.com/gestaozabele/recrutamento/internal/repo"
	"github.com/gestaozabele/recrutamento/internal/util"
)

const mirrorTable = "agencias"

// Store é a persistência usada pelo serviço.
type Store interface {
	Create(ctx context.Context, a *Agency) error
	Get(ctx context.Context, id string) (*Agency, error)
	List(ctx context.Context, filter ListFilter) ([]Agency, error)
	Update(ctx context.Context, a *Agency) error
}

// UserChecker confirma que um id corresponde a um utilizador ativo.
type UserChecker interface {
	IsActive(ctx context.Context, id string) (bool, error)
}

// Service contém as regras de gestão de agências. Mantém um cache curto do
// estado de cada agência para as verificações de associação.
type Service struct {
	store    Store
	mirror   mirror.Sink
	users    UserChecker
	cache    sync.Map
	cacheTTL time.Duration
	now      func() time.Time
}

type cachedStatus struct {
	active   bool
	expireAt time.Time
}

// NewService cria uma nova instância de Service.
func NewService(store Store, sink mirror.Sink, users UserChecker) *Service {
	return &Service{store: store, mirror: sink, users: users, cacheTTL: 2 * time.Minute, now: time.Now}
}

// Exists indica se a agência existe e está ativa. Satisfaz user.AgencyChecker.
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	if v, ok := s.cache.Load(id); ok {
		entry := v.(cachedStatus)
		if s.now().Before(entry.expireAt) {
			return entry.active, nil
		}
		s.cache.Delete(id)
	}

	a, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	s.remember(a)
	return a.Active(), nil
}

func (s *Service) remember(a *Agency) {
	s.cache.Store(a.ID, cachedStatus{active: a.Active(), expireAt: s.now().Add(s.cacheTTL)})
}

func (s *Service) requireManager(actor rbac.Actor) error {
	if !rbac.CanManageOrganization(actor) {
		return apperr.Forbidden("apenas Admin e Manager gerem agências")
	}
	return nil
}

func (s *Service) checkUsers(ctx context.Context, ids ...string) error {
	if s.users == nil {
		return nil
	}
	for _, id := range ids {
		ok, err := s.users.IsActive(ctx, id)
		if err != nil {
			return apperr.Internal(err)
		}
		if !ok {
			return apperr.Validation("utilizador inexistente ou inativo: " + id)
		}
	}
	return nil
}

func validDepartments(deps []string) error {
	for _, dep := range deps {
		if !rbac.ValidDepartment(dep) {
			return apperr.Validation("departamento inválido: " + dep)
		}
	}
	return nil
}

func cleanIDs(ids []string) []string {
	out := []string{}
	for _, id := range ids {
		out = util.AppendUnique(out, strings.TrimSpace(id))
	}
	return out
}

// Create regista uma agência.
func (s *Service) Create(ctx context.Context, actor rbac.Actor, in CreateInput) (*Agency, error) {
	if err := s.requireManager(actor); err != nil {
		return nil, err
	}
	if err := util.ValidateStruct(in); err != nil {
		return nil, err
	}
	a := &Agency{
		ID:            util.NewID(),
		Nome:          strings.TrimSpace(in.Nome),
		ManagerID:     strings.TrimSpace(in.ManagerID),
		Diretores:     cleanIDs(in.Diretores),
		Departamentos: cleanIDs(in.Departamentos),
		Employees:     cleanIDs(in.Employees),
		Morada:        strings.TrimSpace(in.Morada),
		Status:        StatusAtivo,
	}
	if err := validDepartments(a.Departamentos); err != nil {
		return nil, err
	}
	if err := s.checkUsers(ctx, append([]string{a.ManagerID}, a.Diretores...)...); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	a.CriadoEm, a.AtualizadoEm = now, now
	if err := s.store.Create(ctx, a); err != nil {
		return nil, apperr.Internal(err)
	}
	s.remember(a)
	s.mirror.Replicate(ctx, mirrorTable, a.MirrorRow())
	return a, nil
}

// List devolve todas as agências ao Admin e as associações ativas aos demais.
func (s *Service) List(ctx context.Context, actor rbac.Actor, status string) ([]Agency, error) {
	filter := ListFilter{Status: status}
	if actor.Role != rbac.RoleAdmin {
		filter.IDs = []string{}
		for _, m := range actor.Agencies {
			if m.Status == rbac.MembershipActive {
				filter.IDs = append(filter.IDs, m.AgencyID)
			}
		}
	}
	agencies, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return agencies, nil
}

// Get devolve a agência a Admin ou a membros ativos.
func (s *Service) Get(ctx context.Context, actor rbac.Actor, id string) (*Agency, error) {
	if !actor.CanAccessAgency(id) {
		return nil, apperr.Forbidden("sem acesso à agência")
	}
	return s.load(ctx, id)
}

func (s *Service) load(ctx context.Context, id string) (*Agency, error) {
	a, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperr.NotFound("agência não encontrada")
		}
		return nil, apperr.Internal(err)
	}
	return a, nil
}

func (s *Service) save(ctx context.Context, a *Agency) error {
	a.AtualizadoEm = s.now().UTC()
	if err := s.store.Update(ctx, a); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperr.NotFound("agência não encontrada")
		}
		return apperr.Internal(err)
	}
	s.remember(a)
	s.mirror.Replicate(ctx, mirrorTable, a.MirrorRow())
	return nil
}

// Update altera os campos permitidos.
func (s *Service) Update(ctx context.Context, actor rbac.Actor, id string, in UpdateInput) (*Agency, error) {
	if err := s.requireManager(actor); err != nil {
		return nil, err
	}
	if err := util.ValidateStruct(in); err != nil {
		return nil, err
	}
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Nome != nil {
		a.Nome = strings.TrimSpace(*in.Nome)
	}
	if in.ManagerID != nil {
		managerID := strings.TrimSpace(*in.ManagerID)
		if managerID == "" {
			return nil, apperr.Validation("manager_id obrigatório")
		}
		if err := s.checkUsers(ctx, managerID); err != nil {
			return nil, err
		}
		a.ManagerID = managerID
	}
	if in.Diretores != nil {
		diretores := cleanIDs(*in.Diretores)
		if err := s.checkUsers(ctx, diretores...); err != nil {
			return nil, err
		}
		a.Diretores = diretores
	}
	if in.Departamentos != nil {
		deps := cleanIDs(*in.Departamentos)
		if err := validDepartments(deps); err != nil {
			return nil, err
		}
		a.Departamentos = deps
	}
	if in.Employees != nil {
		a.Employees = cleanIDs(*in.Employees)
	}
	if in.Morada != nil {
		a.Morada = strings.TrimSpace(*in.Morada)
	}

	if err := s.save(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Inactivate desativa a agência; associações existentes deixam de dar acesso
// através de Exists.
func (s *Service) Inactivate(ctx context.Context, actor rbac.Actor, id string) (*Agency, error) {
	if err := s.requireManager(actor); err != nil {
		return nil, err
	}
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.Active() {
		return nil, apperr.Validation("agência já está inativa")
	}
	a.Status = StatusInativo
	if err := s.save(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}
