package cvanalysis

import (
	"time"

	"github.com/gestaozabele/recrutamento/internal/mirror"
	"github.com/gestaozabele/recrutamento/internal/rbac"
)

// StatusDefault é o estado de uma análise criada sem estado explícito.
const StatusDefault = "Em análise"

// Analysis é a análise de um CV, opcionalmente ligada a um candidato.
type Analysis struct {
	ID               string    `json:"id"`
	CandidatoID      string    `json:"candidato_id,omitempty"`
	Analise          string    `json:"analise"`
	Pontuacao        float64   `json:"pontuacao"`
	Classificacao    string    `json:"classificacao,omitempty"`
	Status           string    `json:"status"`
	Dono             string    `json:"dono"`
	DepartamentoDono string    `json:"departamento_dono"`
	AnalisadoPor     string    `json:"analisado_por"`
	DataAnalise      time.Time `json:"data_analise"`
	CriadoEm         time.Time `json:"criado_em"`
	AtualizadoEm     time.Time `json:"atualizado_em"`
}

// PolicyTarget expõe os metadados usados pelo avaliador de acesso.
func (a Analysis) PolicyTarget() rbac.Target {
	return rbac.Target{
		Kind:       rbac.KindCVAnalysis,
		Department: a.DepartamentoDono,
		OwnerID:    a.Dono,
	}
}

// MirrorRow devolve a linha do espelho. excluido marca remoções físicas.
func (a Analysis) MirrorRow(excluido bool) mirror.Row {
	return mirror.Row{
		"id":                a.ID,
		"candidato_id":      a.CandidatoID,
		"pontuacao":         a.Pontuacao,
		"classificacao":     a.Classificacao,
		"status":            a.Status,
		"dono":              a.Dono,
		"departamento_dono": a.DepartamentoDono,
		"analisado_por":     a.AnalisadoPor,
		"data_analise":      a.DataAnalise,
		"excluido":          excluido,
		"atualizado_em":     a.AtualizadoEm,
	}
}

type CreateInput struct {
	CandidatoID   string   `json:"candidato_id"`
	Analise       string   `json:"analise" validate:"required"`
	Pontuacao     *float64 `json:"pontuacao" validate:"omitempty,min=0,max=100"`
	Classificacao string   `json:"classificacao"`
	Status        string   `json:"status"`
}

type UpdateInput struct {
	CandidatoID   *string  `json:"candidato_id"`
	Analise       *string  `json:"analise"`
	Pontuacao     *float64 `json:"pontuacao" validate:"omitempty,min=0,max=100"`
	Classificacao *string  `json:"classificacao"`
	Status        *string  `json:"status"`
}

type ListFilter struct {
	Status        string
	Classificacao string
	CandidatoID   string
	Limit         int
	Offset        int
}
