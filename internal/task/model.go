package task

import (
	"time"

	"github.com/gestaozabele/recrutamento/internal/mirror"
	"github.com/gestaozabele/recrutamento/internal/rbac"
)

const (
	StatusPendente    = "Pendente"
	StatusEmProgresso = "Em Progresso"
	StatusConcluida   = "Concluída"
	StatusCancelada   = "Cancelada"
)

// Statuses lista os estados aceites.
var Statuses = []string{StatusPendente, StatusEmProgresso, StatusConcluida, StatusCancelada}

func ValidStatus(s string) bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// Task é uma tarefa atribuída entre utilizadores.
type Task struct {
	ID            string     `json:"id"`
	Titulo        string     `json:"titulo"`
	Descricao     string     `json:"descricao"`
	Data          time.Time  `json:"data"`
	Prazo         *time.Time `json:"prazo,omitempty"`
	Status        string     `json:"status"`
	Criador       string     `json:"criador"`
	Destinatario  string     `json:"destinatario,omitempty"`
	Responsaveis  []string   `json:"responsaveis"`
	Acompanhantes []string   `json:"acompanhantes"`
	Departamento  string     `json:"departamento,omitempty"`
	CriadoEm      time.Time  `json:"criado_em"`
	AtualizadoEm  time.Time  `json:"atualizado_em"`
}

func (t Task) PolicyTarget() rbac.Target {
	return rbac.Target{
		Kind:        rbac.KindTask,
		Department:  t.Departamento,
		OwnerID:     t.Criador,
		AssigneeID:  t.Destinatario,
		Responsible: t.Responsaveis,
		Observers:   t.Acompanhantes,
	}
}

func (t Task) MirrorRow(excluido bool) mirror.Row {
	return mirror.Row{
		"id":            t.ID,
		"titulo":        t.Titulo,
		"status":        t.Status,
		"criador":       t.Criador,
		"destinatario":  t.Destinatario,
		"responsaveis":  t.Responsaveis,
		"acompanhantes": t.Acompanhantes,
		"departamento":  t.Departamento,
		"prazo":         t.Prazo,
		"excluido":      excluido,
		"atualizado_em": t.AtualizadoEm,
	}
}

type CreateInput struct {
	Titulo        string     `json:"titulo" validate:"required"`
	Descricao     string     `json:"descricao" validate:"required"`
	Data          *time.Time `json:"data"`
	Prazo         *time.Time `json:"prazo"`
	Status        string     `json:"status"`
	Destinatario  string     `json:"destinatario"`
	Responsaveis  []string   `json:"responsaveis"`
	Acompanhantes []string   `json:"acompanhantes"`
	Departamento  string     `json:"departamento"`
}

type UpdateInput struct {
	Titulo        *string    `json:"titulo"`
	Descricao     *string    `json:"descricao"`
	Data          *time.Time `json:"data"`
	Prazo         *time.Time `json:"prazo"`
	Status        *string    `json:"status"`
	Destinatario  *string    `json:"destinatario"`
	Responsaveis  *[]string  `json:"responsaveis"`
	Acompanhantes *[]string  `json:"acompanhantes"`
}

type ListFilter struct {
	Status       string
	Destinatario string
	Limit        int
	Offset       int
}
