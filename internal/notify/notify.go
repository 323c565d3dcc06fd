// Package notify entrega notificações internas, e-mails e alertas operacionais.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Tipos de notificação.
const (
	TypeReferralSuccess   = "indicacao_sucesso"
	TypeTaskAssigned      = "tarefa_atribuida"
	TypeAppointmentInvite = "agendamento_convite"
)

// ErrNotFound é devolvido quando a notificação não pertence ao utilizador.
var ErrNotFound = errors.New("notificação não encontrada")

// Event é uma notificação dirigida a um utilizador.
type Event struct {
	ID        string            `json:"id" dynamodbav:"id"`
	UserID    string            `json:"usuario_id" dynamodbav:"usuario_id"`
	Type      string            `json:"tipo" dynamodbav:"tipo"`
	Content   string            `json:"conteudo" dynamodbav:"conteudo"`
	Data      map[string]string `json:"dados,omitempty" dynamodbav:"dados,omitempty"`
	Read      bool              `json:"lida" dynamodbav:"lida"`
	CreatedAt time.Time         `json:"criado_em" dynamodbav:"criado_em"`
}

// Sink recebe eventos a entregar.
type Sink interface {
	Emit(ctx context.Context, ev Event) error
}

// Inbox guarda as notificações consultáveis pela aplicação.
type Inbox interface {
	Save(ctx context.Context, ev Event) error
	List(ctx context.Context, userID string, limit int) ([]Event, error)
	MarkRead(ctx context.Context, userID, id string) error
}

// Fire emite o evento sem propagar falhas; o erro fica apenas no log.
func Fire(ctx context.Context, sink Sink, ev Event) {
	if sink == nil {
		return
	}
	if err := sink.Emit(ctx, ev); err != nil {
		log.Warn().Err(err).Str("component", "notify").Str("tipo", ev.Type).
			Str("usuario_id", ev.UserID).Msg("falha ao emitir notificação")
	}
}

// Discard ignora todos os eventos.
type Discard struct{}

func (Discard) Emit(context.Context, Event) error { return nil }

func newEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
