package notify

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

// Contact é o destino de e-mail de um utilizador.
type Contact struct {
	Name  string
	Email string
}

// Directory resolve o contacto de um utilizador.
type Directory interface {
	Contact(ctx context.Context, userID string) (Contact, error)
}

// Mailer envia mensagens de e-mail.
type Mailer interface {
	Send(ctx context.Context, to Contact, subject, body string) error
}

// Dispatcher grava a notificação na caixa e, se configurado, envia e-mail em
// segundo plano.
type Dispatcher struct {
	inbox     Inbox
	mailer    Mailer
	directory Directory
	now       func() time.Time
	timeout   time.Duration
}

// NewDispatcher cria o dispatcher. mailer e directory podem ser nil.
func NewDispatcher(inbox Inbox, mailer Mailer, directory Directory) *Dispatcher {
	return &Dispatcher{
		inbox:     inbox,
		mailer:    mailer,
		directory: directory,
		now:       time.Now,
		timeout:   20 * time.Second,
	}
}

// Emit implementa Sink.
func (d *Dispatcher) Emit(ctx context.Context, ev Event) error {
	if ev.UserID == "" {
		return errors.New("notify: destinatário obrigatório")
	}
	if ev.ID == "" {
		ev.ID = newEventID()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = d.now().UTC()
	}

	if err := d.inbox.Save(ctx, ev); err != nil {
		return err
	}

	if d.mailer != nil && d.directory != nil {
		go d.sendMail(context.WithoutCancel(ctx), ev)
	}
	return nil
}

func (d *Dispatcher) sendMail(ctx context.Context, ev Event) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	logger := log.With().Str("component", "notify").Str("usuario_id", ev.UserID).Logger()
	contact, err := d.directory.Contact(ctx, ev.UserID)
	if err != nil {
		logger.Warn().Err(err).Msg("contacto indisponível")
		return
	}
	if contact.Email == "" {
		return
	}
	if err := d.mailer.Send(ctx, contact, subjectFor(ev.Type), ev.Content); err != nil {
		logger.Warn().Err(err).Msg("falha ao enviar e-mail")
	}
}

func subjectFor(eventType string) string {
	switch eventType {
	case TypeReferralSuccess:
		return "A sua indicação foi recrutada"
	case TypeTaskAssigned:
		return "Nova tarefa atribuída"
	case TypeAppointmentInvite:
		return "Novo agendamento"
	default:
		return "Notificação"
	}
}
