package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/recrutamento/internal/apperr"
	"github.com/gestaozabele/recrutamento/internal/auth"
	"github.com/gestaozabele/recrutamento/internal/mirror"
	"github.com/gestaozabele/recrutamento/internal/notify"
	"github.com/gestaozabele/recrutamento/internal/rbac"
	"github.com/gestaozabele/recrutamento/internal/repo"
	"github.com/gestaozabele/recrutamento/internal/storage"
	"github.com/gestaozabele/recrutamento/internal/util"
)

const mirrorTable = "usuarios"

// Store é a persistência usada pelo serviço.
type Store interface {
	Create(ctx context.Context, u *User) error
	CreateFirstAdmin(ctx context.Context, u *User) error
	Get(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, filter ListFilter, scope rbac.Scope) ([]User, error)
	Update(ctx context.Context, u *User) error
	TeamOf(ctx context.Context, brokerID string) ([]string, error)
	Names(ctx context.Context, ids []string) (map[string]string, error)
	TouchLogin(ctx context.Context, id string, at time.Time) error
}

// AgencyChecker confirma a existência de uma agência ativa.
type AgencyChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Service aplica a hierarquia de papéis à gestão de utilizadores.
type Service struct {
	store    Store
	mirror   mirror.Sink
	uploader storage.Uploader
	agencies AgencyChecker
	now      func() time.Time
}

func NewService(store Store, sink mirror.Sink, uploader storage.Uploader, agencies AgencyChecker) *Service {
	if uploader == nil {
		uploader = storage.NoopUploader{}
	}
	return &Service{store: store, mirror: sink, uploader: uploader, agencies: agencies, now: time.Now}
}

// FindActor carrega o ator autenticado. Brokers recebem a lista da equipa.
func (s *Service) FindActor(ctx context.Context, id string) (rbac.Actor, error) {
	u, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return rbac.Actor{}, apperr.NotFound("utilizador não encontrado")
		}
		return rbac.Actor{}, apperr.Internal(err)
	}
	if !u.Active() {
		return rbac.Actor{}, apperr.Unauthorized("conta desativada")
	}

	var team []string
	if u.Role.Category() == rbac.CategoryBroker {
		team, err = s.store.TeamOf(ctx, u.ID)
		if err != nil {
			return rbac.Actor{}, apperr.Internal(err)
		}
	}
	return u.Actor(team), nil
}

// Contact satisfaz notify.Directory.
func (s *Service) Contact(ctx context.Context, userID string) (notify.Contact, error) {
	u, err := s.store.Get(ctx, userID)
	if err != nil {
		return notify.Contact{}, err
	}
	return notify.Contact{Name: u.Nome, Email: u.Email}, nil
}

// Names devolve nomes para apresentação (rankings, histórico).
func (s *Service) Names(ctx context.Context, ids []string) (map[string]string, error) {
	return s.store.Names(ctx, ids)
}

// IsActive indica se o id corresponde a um utilizador ativo.
func (s *Service) IsActive(ctx context.Context, id string) (bool, error) {
	u, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return u.Active(), nil
}

func (s *Service) load(ctx context.Context, id string) (*User, error) {
	u, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperr.NotFound("utilizador não encontrado")
		}
		return nil, apperr.Internal(err)
	}
	return u, nil
}

// loadVisible devolve 404 quando o ator não vê o registo.
func (s *Service) loadVisible(ctx context.Context, actor rbac.Actor, id string) (*User, error) {
	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rbac.CanAccess(actor, u.PolicyTarget(), rbac.Read) {
		return nil, apperr.NotFound("utilizador não encontrado")
	}
	return u, nil
}

func (s *Service) save(ctx context.Context, u *User) error {
	u.AtualizadoEm = s.now().UTC()
	if err := s.store.Update(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return apperr.Conflict("email já registado")
		}
		if errors.Is(err, repo.ErrNotFound) {
			return apperr.NotFound("utilizador não encontrado")
		}
		return apperr.Internal(err)
	}
	s.mirror.Replicate(ctx, mirrorTable, u.MirrorRow())
	return nil
}

// validateAssignment verifica departamento e broker exigidos pelo papel.
func (s *Service) validateAssignment(ctx context.Context, role rbac.Role, department, brokerID string) error {
	if role.RequiresDepartment() {
		if department == "" {
			return apperr.Validation("departamento obrigatório para " + string(role))
		}
		if !rbac.ValidDepartment(department) {
			return apperr.Validation("departamento inválido")
		}
	} else if department != "" && !rbac.ValidDepartment(department) {
		return apperr.Validation("departamento inválido")
	}

	if role.RequiresBroker() {
		if brokerID == "" {
			return apperr.Validation("broker_equipa_id obrigatório para Consultor")
		}
		broker, err := s.load(ctx, brokerID)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return apperr.Validation("broker não encontrado")
			}
			return err
		}
		if broker.Role != rbac.RoleBroker || !broker.Active() {
			return apperr.Validation("broker_equipa_id deve referir um Broker de Equipa ativo")
		}
	}
	return nil
}

func (s *Service) newUser(ctx context.Context, in CreateInput, role rbac.Role, author string) (*User, error) {
	if err := util.ValidateStruct(in); err != nil {
		return nil, err
	}
	department := strings.TrimSpace(in.Departamento)
	if err := s.validateAssignment(ctx, role, department, in.BrokerEquipaID); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Senha)
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			return nil, apperr.Validation(err.Error())
		}
		return nil, apperr.Internal(err)
	}

	now := s.now().UTC()
	u := &User{
		ID:             util.NewID(),
		Nome:           strings.TrimSpace(in.Nome),
		Email:          util.NormalizeEmail(in.Email),
		SenhaHash:      hash,
		Role:           role,
		Departamento:   department,
		BrokerEquipaID: strings.TrimSpace(in.BrokerEquipaID),
		ResponsavelID:  strings.TrimSpace(in.ResponsavelID),
		Telefone:       strings.TrimSpace(in.Telefone),
		Status:         StatusAtivo,
		Agencias:       []AgencyMembership{},
		CriadoEm:       now,
		AtualizadoEm:   now,
	}
	if !role.RequiresBroker() {
		u.BrokerEquipaID = ""
	}
	u.appendHistory("criacao", "Utilizador criado com papel "+string(role), author, now)
	return u, nil
}

// Create cria um utilizador respeitando quem pode criar cada papel.
func (s *Service) Create(ctx context.Context, actor rbac.Actor, in CreateInput) (*User, error) {
	role, err := rbac.ParseRole(in.Role)
	if err != nil {
		return nil, apperr.Validation("papel inválido")
	}
	department := strings.TrimSpace(in.Departamento)
	if !rbac.CanCreateRole(actor, role, department) {
		return nil, apperr.Forbidden("sem permissão para criar utilizadores com papel " + string(role))
	}

	u, err := s.newUser(ctx, in, role, actor.ID)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, apperr.Conflict("email já registado")
		}
		return nil, apperr.Internal(err)
	}
	s.mirror.Replicate(ctx, mirrorTable, u.MirrorRow())
	return u, nil
}

// Get devolve um utilizador visível pelo ator.
func (s *Service) Get(ctx context.Context, actor rbac.Actor, id string) (*User, error) {
	return s.loadVisible(ctx, actor, id)
}

// List aplica o predicado de visibilidade à listagem.
func (s *Service) List(ctx context.Context, actor rbac.Actor, filter ListFilter) ([]User, error) {
	users, err := s.store.List(ctx, filter, rbac.ScopeFor(actor))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return users, nil
}

// Update altera campos de perfil.
func (s *Service) Update(ctx context.Context, actor rbac.Actor, id string, in UpdateInput) (*User, error) {
	if err := util.ValidateStruct(in); err != nil {
		return nil, err
	}
	u, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !rbac.CanManageUser(actor, u.PolicyTarget()) {
		return nil, apperr.Forbidden("sem permissão para alterar este utilizador")
	}

	changed := []string{}
	if in.Nome != nil {
		nome := strings.TrimSpace(*in.Nome)
		if nome == "" {
			return nil, apperr.Validation("nome obrigatório")
		}
		u.Nome = nome
		changed = append(changed, "nome")
	}
	if in.Email != nil {
		u.Email = util.NormalizeEmail(*in.Email)
		changed = append(changed, "email")
	}
	if in.Telefone != nil {
		u.Telefone = strings.TrimSpace(*in.Telefone)
		changed = append(changed, "telefone")
	}
	if in.Departamento != nil {
		department := strings.TrimSpace(*in.Departamento)
		if department != u.Departamento {
			if actor.ID == u.ID || !rbac.CanCreateRole(actor, u.Role, department) {
				return nil, apperr.Forbidden("sem permissão para mudar o departamento")
			}
			if err := s.validateAssignment(ctx, u.Role, department, u.BrokerEquipaID); err != nil {
				return nil, err
			}
			u.Departamento = department
			changed = append(changed, "departamento")
		}
	}
	if len(changed) == 0 {
		return u, nil
	}

	u.appendHistory("atualizacao", "Campos alterados: "+strings.Join(changed, ", "), actor.ID, s.now().UTC())
	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ChangeRole promove ou rebaixa o utilizador.
func (s *Service) ChangeRole(ctx context.Context, actor rbac.Actor, id, roleValue string) (*User, error) {
	role, err := rbac.ParseRole(roleValue)
	if err != nil {
		return nil, apperr.Validation("papel inválido")
	}
	u, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !rbac.CanAssignRole(actor, u.PolicyTarget(), u.Role, role) {
		return nil, apperr.Forbidden("sem permissão para atribuir o papel " + string(role))
	}
	if err := s.validateAssignment(ctx, role, u.Departamento, u.BrokerEquipaID); err != nil {
		return nil, err
	}

	old := u.Role
	u.Role = role
	if !role.RequiresBroker() {
		u.BrokerEquipaID = ""
	}
	u.appendHistory("papel", fmt.Sprintf("Papel alterado de %s para %s", old, role), actor.ID, s.now().UTC())
	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Inactivate desativa a conta; nunca a do próprio ator.
func (s *Service) Inactivate(ctx context.Context, actor rbac.Actor, id, motivo string) (*User, error) {
	u, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !rbac.CanInactivateUser(actor, u.PolicyTarget()) {
		return nil, apperr.Forbidden("sem permissão para inativar este utilizador")
	}
	if !u.Active() {
		return nil, apperr.Validation("utilizador já está inativo")
	}

	u.Status = StatusInativo
	content := "Utilizador inativado"
	if motivo = strings.TrimSpace(motivo); motivo != "" {
		content += ": " + motivo
	}
	u.appendHistory("inativacao", content, actor.ID, s.now().UTC())
	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Reactivate volta a ativar a conta.
func (s *Service) Reactivate(ctx context.Context, actor rbac.Actor, id string) (*User, error) {
	u, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !rbac.CanInactivateUser(actor, u.PolicyTarget()) {
		return nil, apperr.Forbidden("sem permissão para reativar este utilizador")
	}
	if u.Active() {
		return nil, apperr.Validation("utilizador já está ativo")
	}

	u.Status = StatusAtivo
	u.appendHistory("reativacao", "Utilizador reativado", actor.ID, s.now().UTC())
	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ChangePassword troca a senha. O próprio precisa da senha atual; gestores
// podem redefinir sem ela.
func (s *Service) ChangePassword(ctx context.Context, actor rbac.Actor, id, current, next string) error {
	u, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return err
	}
	if !rbac.CanManageUser(actor, u.PolicyTarget()) {
		return apperr.Forbidden("sem permissão para alterar a senha")
	}
	if actor.ID == u.ID && !auth.VerifyPassword(current, u.SenhaHash) {
		return apperr.Validation("senha atual incorreta")
	}

	hash, err := auth.HashPassword(next)
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			return apperr.Validation(err.Error())
		}
		return apperr.Internal(err)
	}
	u.SenhaHash = hash
	u.appendHistory("senha", "Senha alterada", actor.ID, s.now().UTC())
	return s.save(ctx, u)
}

// UpdatePhoto envia a fotografia para o armazenamento e guarda o URL.
func (s *Service) UpdatePhoto(ctx context.Context, actor rbac.Actor, id, fileName, contentType string, body []byte) (*User, error) {
	u, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !rbac.CanManageUser(actor, u.PolicyTarget()) {
		return nil, apperr.Forbidden("sem permissão para alterar a fotografia")
	}
	if !storage.IsImage(contentType) {
		return nil, apperr.Validation("formato de imagem não suportado")
	}

	result, err := s.uploader.Upload(ctx, storage.UploadInput{
		Key:          storage.ObjectKey("fotos/"+u.ID, fileName),
		Body:         body,
		ContentType:  contentType,
		CacheControl: "public, max-age=86400",
	})
	if err != nil {
		return nil, apperr.Dependency("falha ao guardar a fotografia", err)
	}

	u.FotoURL = result.URL
	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) requireOrganizationManager(actor rbac.Actor, u *User) error {
	if !rbac.CanManageUser(actor, u.PolicyTarget()) || (actor.ID == u.ID && !actor.Role.TopTier()) {
		return apperr.Forbidden("sem permissão para gerir associações deste utilizador")
	}
	return nil
}

// AddAgency associa (ou reativa a associação a) uma agência.
func (s *Service) AddAgency(ctx context.Context, actor rbac.Actor, id, agencyID string) (*User, error) {
	agencyID = strings.TrimSpace(agencyID)
	if agencyID == "" {
		return nil, apperr.Validation("agencia_id obrigatório")
	}
	u, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireOrganizationManager(actor, u); err != nil {
		return nil, err
	}
	if s.agencies != nil {
		ok, err := s.agencies.Exists(ctx, agencyID)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if !ok {
			return nil, apperr.Validation("agência não encontrada")
		}
	}

	now := s.now().UTC()
	found := false
	for i := range u.Agencias {
		if u.Agencias[i].AgenciaID != agencyID {
			continue
		}
		found = true
		if u.Agencias[i].Status == rbac.MembershipActive {
			return u, nil
		}
		u.Agencias[i].Status = rbac.MembershipActive
		u.Agencias[i].DataAssociacao = now
		u.Agencias[i].AssociadoPor = actor.ID
		u.Agencias[i].DataInativacao = nil
		u.Agencias[i].InativadoPor = ""
	}
	if !found {
		u.Agencias = append(u.Agencias, AgencyMembership{
			AgenciaID:      agencyID,
			Status:         rbac.MembershipActive,
			DataAssociacao: now,
			AssociadoPor:   actor.ID,
		})
	}
	u.appendHistory("agencia", "Associado à agência "+agencyID, actor.ID, now)
	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// RemoveAgency inativa a associação sem a apagar.
func (s *Service) RemoveAgency(ctx context.Context, actor rbac.Actor, id, agencyID string) (*User, error) {
	u, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireOrganizationManager(actor, u); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	changed := false
	for i := range u.Agencias {
		if u.Agencias[i].AgenciaID == agencyID && u.Agencias[i].Status == rbac.MembershipActive {
			u.Agencias[i].Status = rbac.MembershipInactive
			u.Agencias[i].DataInativacao = &now
			u.Agencias[i].InativadoPor = actor.ID
			changed = true
		}
	}
	if !changed {
		return nil, apperr.NotFound("associação não encontrada")
	}
	u.appendHistory("agencia", "Removido da agência "+agencyID, actor.ID, now)
	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// SetManager define o responsável hierárquico.
func (s *Service) SetManager(ctx context.Context, actor rbac.Actor, id, managerID string) (*User, error) {
	u, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireOrganizationManager(actor, u); err != nil {
		return nil, err
	}
	if managerID == u.ID {
		return nil, apperr.Validation("utilizador não pode ser responsável de si próprio")
	}
	if managerID != "" {
		manager, err := s.load(ctx, managerID)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return nil, apperr.Validation("responsável não encontrado")
			}
			return nil, err
		}
		if !manager.Active() {
			return nil, apperr.Validation("responsável inativo")
		}
	}

	u.ResponsavelID = managerID
	u.appendHistory("atualizacao", "Responsável definido: "+managerID, actor.ID, s.now().UTC())
	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// SetBroker liga um Consultor a um Broker de Equipa.
func (s *Service) SetBroker(ctx context.Context, actor rbac.Actor, id, brokerID string) (*User, error) {
	u, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireOrganizationManager(actor, u); err != nil {
		return nil, err
	}
	if !u.Role.RequiresBroker() {
		return nil, apperr.Validation("apenas consultores pertencem a uma equipa de broker")
	}
	if err := s.validateAssignment(ctx, u.Role, u.Departamento, brokerID); err != nil {
		return nil, err
	}

	u.BrokerEquipaID = brokerID
	u.appendHistory("atualizacao", "Broker de equipa definido: "+brokerID, actor.ID, s.now().UTC())
	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	log.Info().Str("usuario_id", u.ID).Str("broker_id", brokerID).Msg("consultor movido de equipa")
	return u, nil
}
