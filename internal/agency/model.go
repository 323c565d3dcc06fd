package agency

import (
	"time"

	"github.com/gestaozabele/recrutamento/internal/mirror"
)

const (
	StatusAtivo   = "ativo"
	StatusInativo = "inativo"
)

// Agency representa uma agência da rede.
type Agency struct {
	ID            string    `json:"id"`
	Nome          string    `json:"nome"`
	ManagerID     string    `json:"manager_id"`
	Diretores     []string  `json:"diretores"`
	Departamentos []string  `json:"departamentos"`
	Employees     []string  `json:"employees"`
	Morada        string    `json:"morada,omitempty"`
	Status        string    `json:"status"`
	CriadoEm      time.Time `json:"criado_em"`
	AtualizadoEm  time.Time `json:"atualizado_em"`
}

// Active indica agência ativa.
func (a Agency) Active() bool {
	return a.Status == StatusAtivo
}

// MirrorRow devolve a linha do espelho.
func (a Agency) MirrorRow() mirror.Row {
	return mirror.Row{
		"id":            a.ID,
		"nome":          a.Nome,
		"manager_id":    a.ManagerID,
		"diretores":     a.Diretores,
		"departamentos": a.Departamentos,
		"employees":     a.Employees,
		"morada":        a.Morada,
		"status":        a.Status,
		"atualizado_em": a.AtualizadoEm,
	}
}

// CreateInput é o payload de criação.
type CreateInput struct {
	Nome          string   `json:"nome" validate:"required,min=2"`
	ManagerID     string   `json:"manager_id" validate:"required"`
	Diretores     []string `json:"diretores"`
	Departamentos []string `json:"departamentos"`
	Employees     []string `json:"employees"`
	Morada        string   `json:"morada"`
}

// UpdateInput lista os campos editáveis.
type UpdateInput struct {
	Nome          *string   `json:"nome" validate:"omitempty,min=2"`
	ManagerID     *string   `json:"manager_id"`
	Diretores     *[]string `json:"diretores"`
	Departamentos *[]string `json:"departamentos"`
	Employees     *[]string `json:"employees"`
	Morada        *string   `json:"morada"`
}

// ListFilter filtra a listagem.
type ListFilter struct {
	Status string
	IDs    []string
}
