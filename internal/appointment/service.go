package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/recrutamento/internal/apperr"
	"github.com/gestaozabele/recrutamento/internal/calendar"
	"github.com/gestaozabele/recrutamento/internal/mirror"
	"github.com/gestaozabele/recrutamento/internal/notify"
	"github.com/gestaozabele/recrutamento/internal/rbac"
	"github.com/gestaozabele/recrutamento/internal/repo"
	"github.com/gestaozabele/recrutamento/internal/util"
)

const mirrorTable = "agendamentos"

type Store interface {
	Create(ctx context.Context, a *Appointment) error
	Get(ctx context.Context, id string) (*Appointment, error)
	List(ctx context.Context, filter ListFilter, scope rbac.Scope) ([]Appointment, error)
	Update(ctx context.Context, a *Appointment) error
}

// UserDirectory valida participantes e resolve os seus e-mails para o
// calendário externo.
type UserDirectory interface {
	IsActive(ctx context.Context, id string) (bool, error)
	Contact(ctx context.Context, userID string) (notify.Contact, error)
}

// Service gere agendamentos. A sincronização com o calendário e as
// notificações nunca falham o pedido.
type Service struct {
	store    Store
	mirror   mirror.Sink
	calendar calendar.Sink
	notifier notify.Sink
	users    UserDirectory
	loc      *time.Location
	now      func() time.Time
}

func NewService(store Store, sink mirror.Sink, cal calendar.Sink, notifier notify.Sink, users UserDirectory, loc *time.Location) *Service {
	if cal == nil {
		cal = calendar.Noop{}
	}
	if notifier == nil {
		notifier = notify.Discard{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{store: store, mirror: sink, calendar: cal, notifier: notifier, users: users, loc: loc, now: time.Now}
}

func notFound() error {
	return apperr.NotFound("Compromisso não encontrado")
}

// parseStart valida data e horário e devolve o instante no fuso configurado
// com o horário normalizado para HH:mm.
func (s *Service) parseStart(data, horario string) (time.Time, string, error) {
	data, horario = strings.TrimSpace(data), strings.TrimSpace(horario)
	if _, err := time.Parse(dateLayout, data); err != nil || len(data) != len(dateLayout) {
		return time.Time{}, "", apperr.Validation("Data deve estar no formato YYYY-MM-DD")
	}
	clock, err := time.Parse(timeLayout, horario)
	if err != nil || len(horario) < 4 || len(horario) > 5 {
		return time.Time{}, "", apperr.Validation("Horário deve estar no formato HH:mm")
	}
	normalized := clock.Format(timeLayout)
	start, err := time.ParseInLocation(dateLayout+" "+timeLayout, data+" "+normalized, s.loc)
	if err != nil {
		return time.Time{}, "", apperr.Validation("data ou horário inválidos")
	}
	return start, normalized, nil
}

func (s *Service) checkParticipants(ctx context.Context, ids []string) error {
	if s.users == nil {
		return nil
	}
	for _, id := range ids {
		ok, err := s.users.IsActive(ctx, id)
		if err != nil {
			return apperr.Internal(err)
		}
		if !ok {
			return apperr.Validation("participante inexistente ou inativo: " + id)
		}
	}
	return nil
}

func cleanIDs(ids []string, organizer string) []string {
	out := []string{}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == organizer {
			continue
		}
		out = util.AppendUnique(out, id)
	}
	return out
}

func (s *Service) calendarEvent(ctx context.Context, a *Appointment) calendar.Event {
	ev := calendar.Event{
		Title:       a.Titulo,
		Description: a.Descricao,
		Location:    a.Local,
		Start:       a.Inicio,
		End:         a.Inicio.Add(defaultDuration),
	}
	if s.users == nil {
		return ev
	}
	for _, id := range a.Participantes {
		contact, err := s.users.Contact(ctx, id)
		if err != nil || contact.Email == "" {
			continue
		}
		ev.Attendees = append(ev.Attendees, contact.Email)
	}
	return ev
}

func (s *Service) invite(ctx context.Context, a *Appointment, ids []string) {
	when := a.Inicio.In(s.loc).Format("02/01/2006 15:04")
	for _, id := range ids {
		notify.Fire(ctx, s.notifier, notify.Event{
			UserID:  id,
			Type:    notify.TypeAppointmentInvite,
			Content: fmt.Sprintf("Foi convidado para %q em %s.", a.Titulo, when),
			Data:    map[string]string{"agendamento_id": a.ID, "organizador": a.Organizador},
		})
	}
}

func (s *Service) persist(ctx context.Context, a *Appointment) error {
	if err := s.store.Update(ctx, a); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return notFound()
		}
		return apperr.Internal(err)
	}
	s.mirror.Replicate(ctx, mirrorTable, a.MirrorRow())
	return nil
}

// syncCalendar propaga o agendamento ao calendário externo. Falhas são
// registadas e ignoradas.
func (s *Service) syncCalendar(ctx context.Context, a *Appointment) {
	logger := log.With().Str("component", "calendar").Str("agendamento_id", a.ID).Logger()
	if a.GoogleEventID == "" {
		id, err := s.calendar.Create(ctx, s.calendarEvent(ctx, a))
		if err != nil {
			logger.Warn().Err(err).Msg("falha ao criar evento externo")
			return
		}
		if id == "" {
			return
		}
		a.GoogleEventID = id
		if err := s.persist(ctx, a); err != nil {
			logger.Warn().Err(err).Msg("falha ao guardar google_event_id")
		}
		return
	}
	if err := s.calendar.Update(ctx, a.GoogleEventID, s.calendarEvent(ctx, a)); err != nil {
		logger.Warn().Err(err).Msg("falha ao atualizar evento externo")
	}
}

// Create agenda um compromisso organizado pelo ator. Datas no passado são
// rejeitadas.
func (s *Service) Create(ctx context.Context, actor rbac.Actor, in CreateInput) (*Appointment, error) {
	if actor.Malformed() {
		return nil, apperr.Forbidden("perfil de utilizador incompleto")
	}
	in.Titulo = strings.TrimSpace(in.Titulo)
	if in.Titulo == "" || strings.TrimSpace(in.Data) == "" || strings.TrimSpace(in.Horario) == "" {
		return nil, apperr.Validation("Campos obrigatórios: título, data e horário")
	}
	if err := util.ValidateStruct(in); err != nil {
		return nil, err
	}
	start, horario, err := s.parseStart(in.Data, in.Horario)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if start.Before(now) {
		return nil, apperr.Validation("Não é possível criar compromissos com data/hora no passado")
	}
	participants := cleanIDs(in.Participantes, actor.ID)
	if err := s.checkParticipants(ctx, participants); err != nil {
		return nil, err
	}

	tipo := in.Tipo
	if tipo == "" {
		tipo = TipoOutro
	}
	now = now.UTC()
	a := &Appointment{
		ID:            util.NewID(),
		Titulo:        in.Titulo,
		Descricao:     strings.TrimSpace(in.Descricao),
		Data:          strings.TrimSpace(in.Data),
		Horario:       horario,
		Inicio:        start,
		Participantes: participants,
		Tipo:          tipo,
		Local:         strings.TrimSpace(in.Local),
		Status:        StatusPendente,
		Organizador:   actor.ID,
		Departamento:  actor.Department,
		Historico:     []HistoryEntry{},
		CriadoEm:      now,
		AtualizadoEm:  now,
	}
	a.appendHistory(HistoryCreated, actor.ID, now)

	if err := s.store.Create(ctx, a); err != nil {
		return nil, apperr.Internal(err)
	}
	s.mirror.Replicate(ctx, mirrorTable, a.MirrorRow())
	s.syncCalendar(ctx, a)
	s.invite(ctx, a, a.Participantes)
	return a, nil
}

func (s *Service) Get(ctx context.Context, actor rbac.Actor, id string) (*Appointment, error) {
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

// loadForWrite devolve 404 a quem não vê o agendamento e 403 a quem vê mas
// não é o organizador.
func (s *Service) loadForWrite(ctx context.Context, actor rbac.Actor, id, message string) (*Appointment, error) {
	a, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !rbac.CanAccess(actor, a.PolicyTarget(), rbac.Write) {
		return nil, apperr.Forbidden(message)
	}
	return a, nil
}

func (s *Service) List(ctx context.Context, actor rbac.Actor, filter ListFilter) ([]Appointment, error) {
	for _, d := range []string{filter.From, filter.To} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(dateLayout, d); err != nil {
			return nil, apperr.Validation("Data deve estar no formato YYYY-MM-DD")
		}
	}
	list, err := s.store.List(ctx, filter, rbac.ScopeFor(actor))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return list, nil
}

// Today lista os agendamentos visíveis do dia corrente no fuso configurado.
func (s *Service) Today(ctx context.Context, actor rbac.Actor) ([]Appointment, error) {
	today := s.now().In(s.loc).Format(dateLayout)
	return s.List(ctx, actor, ListFilter{From: today, To: today})
}

// Period lista os agendamentos visíveis entre duas datas inclusivas.
func (s *Service) Period(ctx context.Context, actor rbac.Actor, start, end string) ([]Appointment, error) {
	if start == "" || end == "" {
		return nil, apperr.Validation("início e fim do período são obrigatórios")
	}
	if end < start {
		return nil, apperr.Validation("o fim do período é anterior ao início")
	}
	return s.List(ctx, actor, ListFilter{From: start, To: end})
}

// Update altera o agendamento. Apenas o organizador escreve.
func (s *Service) Update(ctx context.Context, actor rbac.Actor, id string, in UpdateInput) (*Appointment, error) {
	if err := util.ValidateStruct(in); err != nil {
		return nil, err
	}
	a, err := s.loadForWrite(ctx, actor, id, "Apenas o organizador pode atualizar o compromisso")
	if err != nil {
		return nil, err
	}
	if a.Status == StatusCancelado {
		return nil, apperr.Validation("compromisso cancelado não pode ser alterado")
	}

	if in.Data != nil || in.Horario != nil {
		data, horario := a.Data, a.Horario
		if in.Data != nil {
			data = strings.TrimSpace(*in.Data)
		}
		if in.Horario != nil {
			horario = *in.Horario
		}
		start, normalized, err := s.parseStart(data, horario)
		if err != nil {
			return nil, err
		}
		if start.Before(s.now()) {
			return nil, apperr.Validation("Não é possível agendar compromissos com data/hora no passado")
		}
		a.Data, a.Horario, a.Inicio = data, normalized, start
	}
	if in.Titulo != nil {
		a.Titulo = strings.TrimSpace(*in.Titulo)
	}
	if in.Descricao != nil {
		a.Descricao = strings.TrimSpace(*in.Descricao)
	}
	if in.Tipo != nil {
		a.Tipo = *in.Tipo
	}
	if in.Local != nil {
		a.Local = strings.TrimSpace(*in.Local)
	}
	if in.Status != nil {
		a.Status = *in.Status
	}
	now := s.now().UTC()
	a.AtualizadoEm = now
	a.appendHistory(HistoryUpdated, actor.ID, now)

	if err := s.persist(ctx, a); err != nil {
		return nil, err
	}
	s.syncCalendar(ctx, a)
	return a, nil
}

// Cancel cancela o agendamento e remove o evento externo.
func (s *Service) Cancel(ctx context.Context, actor rbac.Actor, id string) (*Appointment, error) {
	a, err := s.loadForWrite(ctx, actor, id, "Apenas o organizador pode cancelar o compromisso")
	if err != nil {
		return nil, err
	}
	if a.Status == StatusCancelado {
		return nil, apperr.Validation("compromisso já está cancelado")
	}
	now := s.now().UTC()
	a.Status = StatusCancelado
	a.AtualizadoEm = now
	a.appendHistory(HistoryCancelled, actor.ID, now)
	if err := s.persist(ctx, a); err != nil {
		return nil, err
	}

	if a.GoogleEventID != "" {
		if err := s.calendar.Delete(ctx, a.GoogleEventID); err != nil {
			log.Warn().Err(err).Str("component", "calendar").Str("agendamento_id", a.ID).Msg("falha ao remover evento externo")
		}
	}
	return a, nil
}

// AddParticipant junta um utilizador e envia-lhe o convite.
func (s *Service) AddParticipant(ctx context.Context, actor rbac.Actor, id, userID string) (*Appointment, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperr.Validation("user_id obrigatório")
	}
	a, err := s.loadForWrite(ctx, actor, id, "Apenas o organizador pode gerir participantes")
	if err != nil {
		return nil, err
	}
	if userID == a.Organizador || util.Contains(a.Participantes, userID) {
		return a, nil
	}
	if err := s.checkParticipants(ctx, []string{userID}); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	a.Participantes = append(a.Participantes, userID)
	a.AtualizadoEm = now
	a.appendHistory(HistoryUpdated, actor.ID, now)
	if err := s.persist(ctx, a); err != nil {
		return nil, err
	}
	s.syncCalendar(ctx, a)
	s.invite(ctx, a, []string{userID})
	return a, nil
}

// RemoveParticipant retira um utilizador da lista de participantes.
func (s *Service) RemoveParticipant(ctx context.Context, actor rbac.Actor, id, userID string) (*Appointment, error) {
	a, err := s.loadForWrite(ctx, actor, id, "Apenas o organizador pode gerir participantes")
	if err != nil {
		return nil, err
	}
	if !util.Contains(a.Participantes, userID) {
		return a, nil
	}
	now := s.now().UTC()
	a.Participantes = util.Remove(a.Participantes, userID)
	if a.Participantes == nil {
		a.Participantes = []string{}
	}
	a.AtualizadoEm = now
	a.appendHistory(HistoryUpdated, actor.ID, now)
	if err := s.persist(ctx, a); err != nil {
		return nil, err
	}
	s.syncCalendar(ctx, a)
	return a, nil
}
