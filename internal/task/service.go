package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gestaozabele/recrutamento/internal/apperr"
	"github.com/gestaozabele/recrutamento/internal/mirror"
	"github.com/gestaozabele/recrutamento/internal/notify"
	"github.com/gestaozabele/recrutamento/internal/rbac"
	"github.com/gestaozabele/recrutamento/internal/repo"
	"github.com/gestaozabele/recrutamento/internal/util"
)

const mirrorTable = "tarefas"

type Store interface {
	Create(ctx context.Context, t *Task) error
	Get(ctx context.Context, id string) (*Task, error)
	List(ctx context.Context, filter ListFilter, scope rbac.Scope) ([]Task, error)
	Update(ctx context.Context, t *Task) error
	Delete(ctx context.Context, id string) error
}

// UserChecker confirma que um utilizador existe e está ativo.
type UserChecker interface {
	IsActive(ctx context.Context, id string) (bool, error)
}

// Service gere as tarefas. A visibilidade é calculada em cada leitura.
type Service struct {
	store    Store
	mirror   mirror.Sink
	notifier notify.Sink
	users    UserChecker
	now      func() time.Time
}

func NewService(store Store, sink mirror.Sink, notifier notify.Sink, users UserChecker) *Service {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Service{store: store, mirror: sink, notifier: notifier, users: users, now: time.Now}
}

func notFound() error {
	return apperr.NotFound("Tarefa não encontrada.")
}

func cleanIDs(ids []string) []string {
	out := []string{}
	for _, id := range ids {
		out = util.AppendUnique(out, strings.TrimSpace(id))
	}
	return out
}

func (s *Service) checkUsers(ctx context.Context, ids ...string) error {
	if s.users == nil {
		return nil
	}
	for _, id := range ids {
		if id == "" {
			continue
		}
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

func checkDates(data time.Time, prazo *time.Time) error {
	if prazo != nil && prazo.Before(data) {
		return apperr.Validation("o prazo não pode ser anterior à data da tarefa")
	}
	return nil
}

func (s *Service) notifyAssignee(ctx context.Context, actor rbac.Actor, t *Task) {
	if t.Destinatario == "" || t.Destinatario == actor.ID {
		return
	}
	notify.Fire(ctx, s.notifier, notify.Event{
		UserID:  t.Destinatario,
		Type:    notify.TypeTaskAssigned,
		Content: fmt.Sprintf("Foi-lhe atribuída a tarefa %q.", t.Titulo),
		Data:    map[string]string{"tarefa_id": t.ID, "criador": t.Criador},
	})
}

// Create regista a tarefa. Sem departamento explícito herda o do criador.
func (s *Service) Create(ctx context.Context, actor rbac.Actor, in CreateInput) (*Task, error) {
	if actor.Malformed() {
		return nil, apperr.Forbidden("perfil de utilizador incompleto")
	}
	in.Titulo, in.Descricao = strings.TrimSpace(in.Titulo), strings.TrimSpace(in.Descricao)
	if in.Titulo == "" || in.Descricao == "" {
		return nil, apperr.Validation("Os campos 'título' e 'descrição' são obrigatórios.")
	}
	if err := util.ValidateStruct(in); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	t := &Task{
		ID:            util.NewID(),
		Titulo:        in.Titulo,
		Descricao:     in.Descricao,
		Data:          now,
		Prazo:         in.Prazo,
		Status:        strings.TrimSpace(in.Status),
		Criador:       actor.ID,
		Destinatario:  strings.TrimSpace(in.Destinatario),
		Responsaveis:  cleanIDs(in.Responsaveis),
		Acompanhantes: cleanIDs(in.Acompanhantes),
		Departamento:  strings.TrimSpace(in.Departamento),
		CriadoEm:      now,
		AtualizadoEm:  now,
	}
	if in.Data != nil {
		t.Data = in.Data.UTC()
	}
	if t.Status == "" {
		t.Status = StatusPendente
	}
	if !ValidStatus(t.Status) {
		return nil, apperr.Validation("status de tarefa inválido").WithDetails(map[string]any{"permitidos": Statuses})
	}
	if t.Departamento == "" {
		t.Departamento = actor.Department
	}
	if t.Departamento != "" && !rbac.ValidDepartment(t.Departamento) {
		return nil, apperr.Validation("departamento inválido")
	}
	if err := checkDates(t.Data, t.Prazo); err != nil {
		return nil, err
	}
	refs := append([]string{t.Destinatario}, t.Responsaveis...)
	if err := s.checkUsers(ctx, append(refs, t.Acompanhantes...)...); err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, t); err != nil {
		return nil, apperr.Internal(err)
	}
	s.mirror.Replicate(ctx, mirrorTable, t.MirrorRow(false))
	s.notifyAssignee(ctx, actor, t)
	return t, nil
}

func (s *Service) Get(ctx context.Context, actor rbac.Actor, id string) (*Task, error) {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, notFound()
		}
		return nil, apperr.Internal(err)
	}
	if !rbac.CanAccess(actor, t.PolicyTarget(), rbac.Read) {
		return nil, notFound()
	}
	return t, nil
}

func (s *Service) List(ctx context.Context, actor rbac.Actor, filter ListFilter) ([]Task, error) {
	if filter.Status != "" && !ValidStatus(filter.Status) {
		return nil, apperr.Validation("status de tarefa inválido")
	}
	list, err := s.store.List(ctx, filter, rbac.ScopeFor(actor))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return list, nil
}

// Update aplica os campos permitidos. Um novo destinatário é notificado.
func (s *Service) Update(ctx context.Context, actor rbac.Actor, id string, in UpdateInput) (*Task, error) {
	t, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !rbac.CanAccess(actor, t.PolicyTarget(), rbac.Write) {
		return nil, apperr.Forbidden("Sem permissão para atualizar esta tarefa.")
	}

	previousAssignee := t.Destinatario
	if in.Titulo != nil {
		if t.Titulo = strings.TrimSpace(*in.Titulo); t.Titulo == "" {
			return nil, apperr.Validation("O campo 'título' é obrigatório.")
		}
	}
	if in.Descricao != nil {
		if t.Descricao = strings.TrimSpace(*in.Descricao); t.Descricao == "" {
			return nil, apperr.Validation("O campo 'descrição' é obrigatório.")
		}
	}
	if in.Data != nil {
		t.Data = in.Data.UTC()
	}
	if in.Prazo != nil {
		t.Prazo = in.Prazo
	}
	if in.Status != nil {
		status := strings.TrimSpace(*in.Status)
		if !ValidStatus(status) {
			return nil, apperr.Validation("status de tarefa inválido").WithDetails(map[string]any{"permitidos": Statuses})
		}
		t.Status = status
	}
	var added []string
	if in.Destinatario != nil {
		t.Destinatario = strings.TrimSpace(*in.Destinatario)
		added = append(added, t.Destinatario)
	}
	if in.Responsaveis != nil {
		t.Responsaveis = cleanIDs(*in.Responsaveis)
		added = append(added, t.Responsaveis...)
	}
	if in.Acompanhantes != nil {
		t.Acompanhantes = cleanIDs(*in.Acompanhantes)
		added = append(added, t.Acompanhantes...)
	}
	if err := checkDates(t.Data, t.Prazo); err != nil {
		return nil, err
	}
	if err := s.checkUsers(ctx, added...); err != nil {
		return nil, err
	}
	t.AtualizadoEm = s.now().UTC()

	if err := s.store.Update(ctx, t); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, notFound()
		}
		return nil, apperr.Internal(err)
	}
	s.mirror.Replicate(ctx, mirrorTable, t.MirrorRow(false))
	if t.Destinatario != previousAssignee {
		s.notifyAssignee(ctx, actor, t)
	}
	return t, nil
}

// Delete remove a tarefa. O espelho guarda a linha marcada como excluída.
func (s *Service) Delete(ctx context.Context, actor rbac.Actor, id string) error {
	t, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if !rbac.CanAccess(actor, t.PolicyTarget(), rbac.Write) {
		return apperr.Forbidden("Sem permissão para excluir esta tarefa.")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return notFound()
		}
		return apperr.Internal(err)
	}
	t.AtualizadoEm = s.now().UTC()
	s.mirror.Replicate(ctx, mirrorTable, t.MirrorRow(true))
	return nil
}
