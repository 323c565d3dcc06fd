package appointment

import (
	"time"

	"github.com/gestaozabele/recrutamento/internal/mirror"
	"github.com/gestaozabele/recrutamento/internal/rbac"
)

const (
	StatusPendente   = "pendente"
	StatusConfirmado = "confirmado"
	StatusCancelado  = "cancelado"
)

const (
	TipoEntrevista  = "entrevista"
	TipoReuniao     = "reuniao"
	TipoTreinamento = "treinamento"
	TipoOutro       = "outro"
)

const (
	HistoryCreated   = "criacao"
	HistoryUpdated   = "atualizacao"
	HistoryCancelled = "cancelamento"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
	// Duração assumida no calendário externo.
	defaultDuration = time.Hour
)

// HistoryEntry regista quem alterou o agendamento e quando.
type HistoryEntry struct {
	Tipo  string    `json:"tipo"`
	Data  time.Time `json:"data"`
	Autor string    `json:"autor"`
}

// Appointment é um compromisso com participantes internos.
type Appointment struct {
	ID            string         `json:"id"`
	Titulo        string         `json:"titulo"`
	Descricao     string         `json:"descricao,omitempty"`
	Data          string         `json:"data"`
	Horario       string         `json:"horario"`
	Inicio        time.Time      `json:"inicio"`
	Participantes []string       `json:"participantes"`
	Tipo          string         `json:"tipo"`
	Local         string         `json:"local,omitempty"`
	Status        string         `json:"status"`
	Organizador   string         `json:"organizador"`
	Departamento  string         `json:"departamento,omitempty"`
	GoogleEventID string         `json:"google_event_id,omitempty"`
	Historico     []HistoryEntry `json:"historico"`
	CriadoEm      time.Time      `json:"criado_em"`
	AtualizadoEm  time.Time      `json:"atualizado_em"`
}

func (a *Appointment) appendHistory(tipo, author string, now time.Time) {
	a.Historico = append(a.Historico, HistoryEntry{Tipo: tipo, Data: now, Autor: author})
}

// PolicyTarget expõe organizador e participantes ao avaliador de acesso.
// Só o organizador escreve.
func (a Appointment) PolicyTarget() rbac.Target {
	return rbac.Target{
		Kind:        rbac.KindAppointment,
		Department:  a.Departamento,
		OwnerID:     a.Organizador,
		Responsible: a.Participantes,
	}
}

func (a Appointment) MirrorRow() mirror.Row {
	return mirror.Row{
		"id":              a.ID,
		"titulo":          a.Titulo,
		"data":            a.Data,
		"horario":         a.Horario,
		"tipo":            a.Tipo,
		"status":          a.Status,
		"organizador":     a.Organizador,
		"departamento":    a.Departamento,
		"participantes":   a.Participantes,
		"google_event_id": a.GoogleEventID,
		"atualizado_em":   a.AtualizadoEm,
	}
}

type CreateInput struct {
	Titulo        string   `json:"titulo" validate:"required,min=3"`
	Descricao     string   `json:"descricao"`
	Data          string   `json:"data" validate:"required"`
	Horario       string   `json:"horario" validate:"required"`
	Participantes []string `json:"participantes"`
	Tipo          string   `json:"tipo" validate:"omitempty,oneof=entrevista reuniao treinamento outro"`
	Local         string   `json:"local"`
}

type UpdateInput struct {
	Titulo    *string `json:"titulo" validate:"omitempty,min=3"`
	Descricao *string `json:"descricao"`
	Data      *string `json:"data"`
	Horario   *string `json:"horario"`
	Tipo      *string `json:"tipo" validate:"omitempty,oneof=entrevista reuniao treinamento outro"`
	Local     *string `json:"local"`
	Status    *string `json:"status" validate:"omitempty,oneof=pendente confirmado"`
}

// ListFilter restringe por intervalo de datas inclusivo (YYYY-MM-DD).
type ListFilter struct {
	From   string
	To     string
	Status string
	Tipo   string
}
