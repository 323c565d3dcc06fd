package department

import (
	"time"

	"github.com/gestaozabele/recrutamento/internal/mirror"
)

const (
	StatusAtivo   = "ativo"
	StatusInativo = "inativo"
)

// Department representa um departamento da organização.
type Department struct {
	ID           string    `json:"id"`
	Nome         string    `json:"nome"`
	Descricao    string    `json:"descricao,omitempty"`
	ManagerID    string    `json:"manager_id,omitempty"`
	Agencias     []string  `json:"agencias"`
	Status       string    `json:"status"`
	CriadoEm     time.Time `json:"criado_em"`
	AtualizadoEm time.Time `json:"atualizado_em"`
}

func (d Department) MirrorRow() mirror.Row {
	return mirror.Row{
		"id":            d.ID,
		"nome":          d.Nome,
		"descricao":     d.Descricao,
		"manager_id":    d.ManagerID,
		"agencias":      d.Agencias,
		"status":        d.Status,
		"atualizado_em": d.AtualizadoEm,
	}
}

type CreateInput struct {
	Nome      string   `json:"nome" validate:"required"`
	Descricao string   `json:"descricao"`
	ManagerID string   `json:"manager_id"`
	Agencias  []string `json:"agencias"`
}

type UpdateInput struct {
	Descricao *string   `json:"descricao"`
	ManagerID *string   `json:"manager_id"`
	Agencias  *[]string `json:"agencias"`
}
