package candidate

import (
	"time"

	"github.com/gestaozabele/recrutamento/internal/mirror"
	"github.com/gestaozabele/recrutamento/internal/rbac"
)

const (
	StatusAtivo   = "ativo"
	StatusInativo = "inativo"
)

// Tipos de entrada no histórico.
const (
	HistorySystem       = "sistema"
	HistoryUpdate       = "atualizacao"
	HistoryInteraction  = "interacao"
	HistoryInactivation = "inativacao"
	HistoryStatusChange = "mudanca_status"
	HistoryReactivation = "reativacao"
)

// Candidate é o registo de um candidato no funil de recrutamento.
type Candidate struct {
	ID                   string                `json:"id"`
	ChaveNatural         string                `json:"-"`
	Nome                 string                `json:"nome"`
	Email                string                `json:"email"`
	Telefone             string                `json:"telefone"`
	NIF                  string                `json:"nif,omitempty"`
	Skills               []string              `json:"skills"`
	AnosExperiencia      int                   `json:"anos_experiencia"`
	Especializacao       string                `json:"especializacao,omitempty"`
	Cidade               string                `json:"cidade,omitempty"`
	Distrito             string                `json:"distrito,omitempty"`
	TipoContato          string                `json:"tipo_contato,omitempty"`
	Importancia          string                `json:"importancia,omitempty"`
	OrigemContato        string                `json:"origem_contato,omitempty"`
	Departamento         string                `json:"departamento"`
	AgenciaID            string                `json:"agencia_id,omitempty"`
	Observacoes          string                `json:"observacoes,omitempty"`
	Status               string                `json:"status"`
	MotivoInativacao     string                `json:"motivo_inativacao,omitempty"`
	PipelineStatus       Stage                 `json:"pipeline_status"`
	Indicacao            bool                  `json:"indicacao"`
	NivelIndicacao       string                `json:"nivel_indicacao,omitempty"`
	ResponsavelIndicacao string                `json:"responsavel_indicacao,omitempty"`
	Documentos           []Document            `json:"documentos"`
	Responsaveis         []Responsible         `json:"responsaveis"`
	Historico            []HistoryEntry        `json:"historico"`
	Metricas             map[Stage]StageMetric `json:"metricas"`
	Versao               int64                 `json:"versao"`
	CriadoEm             time.Time             `json:"criado_em"`
	AtualizadoEm         time.Time             `json:"atualizado_em"`
}

// Responsible é um utilizador com responsabilidade sobre o candidato.
type Responsible struct {
	UserID         string    `json:"user_id"`
	DataAtribuicao time.Time `json:"data_atribuicao"`
	Status         string    `json:"status"`
}

// HistoryEntry é uma entrada imutável do histórico.
type HistoryEntry struct {
	Tipo     string    `json:"tipo"`
	Conteudo string    `json:"conteudo"`
	Data     time.Time `json:"data"`
	Autor    string    `json:"autor"`
}

// StageMetric guarda a entrada numa etapa e quanto tempo lá ficou.
type StageMetric struct {
	Entrada       *time.Time `json:"entrada,omitempty"`
	PermanenciaMs *int64     `json:"permanencia_ms,omitempty"`
}

// Document é um ficheiro anexado ao candidato.
type Document struct {
	Nome       string    `json:"nome"`
	URL        string    `json:"url"`
	Key        string    `json:"key"`
	Tipo       string    `json:"tipo"`
	EnviadoPor string    `json:"enviado_por"`
	EnviadoEm  time.Time `json:"enviado_em"`
}

func (c *Candidate) appendHistory(tipo, conteudo, autor string, at time.Time) {
	c.Historico = append(c.Historico, HistoryEntry{Tipo: tipo, Conteudo: conteudo, Data: at, Autor: autor})
}

// PolicyTarget descreve o candidato para o avaliador de acesso; apenas
// responsáveis ativos contam.
func (c *Candidate) PolicyTarget() rbac.Target {
	return rbac.Target{
		Kind:        rbac.KindCandidate,
		Department:  c.Departamento,
		Responsible: ActiveResponsibles(c),
	}
}

// MirrorRow devolve a linha do espelho.
func (c *Candidate) MirrorRow() mirror.Row {
	return mirror.Row{
		"id":                    c.ID,
		"nome":                  c.Nome,
		"email":                 c.Email,
		"telefone":              c.Telefone,
		"nif":                   c.NIF,
		"departamento":          c.Departamento,
		"agencia_id":            c.AgenciaID,
		"origem_contato":        c.OrigemContato,
		"importancia":           c.Importancia,
		"status":                c.Status,
		"motivo_inativacao":     c.MotivoInativacao,
		"pipeline_status":       string(c.PipelineStatus),
		"indicacao":             c.Indicacao,
		"nivel_indicacao":       c.NivelIndicacao,
		"responsavel_indicacao": c.ResponsavelIndicacao,
		"responsaveis":          c.Responsaveis,
		"metricas":              c.Metricas,
		"criado_em":             c.CriadoEm,
		"atualizado_em":         c.AtualizadoEm,
	}
}

// CreateInput é o payload de criação.
type CreateInput struct {
	Nome                 string   `json:"nome" validate:"required"`
	Email                string   `json:"email" validate:"required,email"`
	Telefone             string   `json:"telefone" validate:"required"`
	NIF                  string   `json:"nif"`
	Skills               []string `json:"skills"`
	AnosExperiencia      int      `json:"anos_experiencia" validate:"gte=0"`
	Especializacao       string   `json:"especializacao"`
	Cidade               string   `json:"cidade"`
	Distrito             string   `json:"distrito"`
	TipoContato          string   `json:"tipo_contato"`
	Importancia          string   `json:"importancia"`
	OrigemContato        string   `json:"origem_contato"`
	Departamento         string   `json:"departamento"`
	AgenciaID            string   `json:"agencia_id"`
	Observacoes          string   `json:"observacoes"`
	Indicacao            bool     `json:"indicacao"`
	NivelIndicacao       string   `json:"nivel_indicacao"`
	ResponsavelIndicacao string   `json:"responsavel_indicacao"`
}

// UpdateInput enumera os campos editáveis. Estado, responsáveis, histórico e
// métricas só mudam pelas rotas próprias.
type UpdateInput struct {
	Nome                 *string   `json:"nome"`
	Email                *string   `json:"email" validate:"omitempty,email"`
	Telefone             *string   `json:"telefone"`
	NIF                  *string   `json:"nif"`
	Skills               *[]string `json:"skills"`
	AnosExperiencia      *int      `json:"anos_experiencia" validate:"omitempty,gte=0"`
	Especializacao       *string   `json:"especializacao"`
	Cidade               *string   `json:"cidade"`
	Distrito             *string   `json:"distrito"`
	TipoContato          *string   `json:"tipo_contato"`
	Importancia          *string   `json:"importancia"`
	OrigemContato        *string   `json:"origem_contato"`
	Departamento         *string   `json:"departamento"`
	AgenciaID            *string   `json:"agencia_id"`
	Observacoes          *string   `json:"observacoes"`
	Indicacao            *bool     `json:"indicacao"`
	NivelIndicacao       *string   `json:"nivel_indicacao"`
	ResponsavelIndicacao *string   `json:"responsavel_indicacao"`
}

// ListFilter reúne os filtros da listagem.
type ListFilter struct {
	Status         string
	PipelineStatus string
	Departamento   string
	OrigemContato  string
	Localizacao    string
	Skills         []string
	Experiencia    int
	// CVAnalisado filtra por existência de análise de CV ligada; nil ignora.
	CVAnalisado    *bool
	Sort           string
	Limit          int
	Offset         int
}
