package user

import (
	"time"

	"github.com/gestaozabele/recrutamento/internal/mirror"
	"github.com/gestaozabele/recrutamento/internal/rbac"
)

const (
	StatusAtivo   = "ativo"
	StatusInativo = "inativo"
)

// User é o registo de um colaborador.
type User struct {
	ID             string             `json:"id"`
	Nome           string             `json:"nome"`
	Email          string             `json:"email"`
	SenhaHash      string             `json:"-"`
	Role           rbac.Role          `json:"role"`
	Departamento   string             `json:"departamento,omitempty"`
	BrokerEquipaID string             `json:"broker_equipa_id,omitempty"`
	ResponsavelID  string             `json:"responsavel_id,omitempty"`
	Telefone       string             `json:"telefone,omitempty"`
	FotoURL        string             `json:"foto_url,omitempty"`
	Status         string             `json:"status"`
	Agencias       []AgencyMembership `json:"agencias"`
	Historico      []HistoryEntry     `json:"historico"`
	UltimoLogin    *time.Time         `json:"ultimo_login,omitempty"`
	CriadoEm       time.Time          `json:"criado_em"`
	AtualizadoEm   time.Time          `json:"atualizado_em"`
}

// AgencyMembership é a associação do utilizador a uma agência.
type AgencyMembership struct {
	AgenciaID      string     `json:"agencia_id"`
	Status         string     `json:"status"`
	DataAssociacao time.Time  `json:"data_associacao"`
	AssociadoPor   string     `json:"associado_por"`
	DataInativacao *time.Time `json:"data_inativacao,omitempty"`
	InativadoPor   string     `json:"inativado_por,omitempty"`
}

// HistoryEntry regista alterações administrativas do utilizador.
type HistoryEntry struct {
	Tipo     string    `json:"tipo"`
	Conteudo string    `json:"conteudo"`
	Data     time.Time `json:"data"`
	Autor    string    `json:"autor"`
}

// Active indica conta ativa.
func (u User) Active() bool {
	return u.Status == StatusAtivo
}

// PolicyTarget descreve o utilizador para o avaliador de acesso.
func (u User) PolicyTarget() rbac.Target {
	return rbac.Target{
		Kind:       rbac.KindUser,
		Department: u.Departamento,
		SubjectID:  u.ID,
		Role:       u.Role,
		BrokerID:   u.BrokerEquipaID,
	}
}

// Actor converte o registo no ator usado pelas regras de acesso.
func (u User) Actor(team []string) rbac.Actor {
	memberships := make([]rbac.AgencyMembership, 0, len(u.Agencias))
	for _, m := range u.Agencias {
		memberships = append(memberships, rbac.AgencyMembership{AgencyID: m.AgenciaID, Status: m.Status})
	}
	return rbac.Actor{
		ID:         u.ID,
		Name:       u.Nome,
		Role:       u.Role,
		Department: u.Departamento,
		BrokerID:   u.BrokerEquipaID,
		Team:       team,
		Agencies:   memberships,
	}
}

func (u *User) appendHistory(tipo, conteudo, autor string, at time.Time) {
	u.Historico = append(u.Historico, HistoryEntry{Tipo: tipo, Conteudo: conteudo, Data: at, Autor: autor})
}

// MirrorRow devolve a linha do espelho, sem credenciais.
func (u User) MirrorRow() mirror.Row {
	return mirror.Row{
		"id":               u.ID,
		"nome":             u.Nome,
		"email":            u.Email,
		"role":             string(u.Role),
		"departamento":     u.Departamento,
		"broker_equipa_id": u.BrokerEquipaID,
		"responsavel_id":   u.ResponsavelID,
		"telefone":         u.Telefone,
		"foto_url":         u.FotoURL,
		"status":           u.Status,
		"agencias":         u.Agencias,
		"atualizado_em":    u.AtualizadoEm,
	}
}

// CreateInput é o payload de criação de utilizador.
type CreateInput struct {
	Nome           string `json:"nome" validate:"required,min=2"`
	Email          string `json:"email" validate:"required,email"`
	Senha          string `json:"senha" validate:"required,min=8"`
	Role           string `json:"role" validate:"required"`
	Departamento   string `json:"departamento"`
	BrokerEquipaID string `json:"broker_equipa_id"`
	ResponsavelID  string `json:"responsavel_id"`
	Telefone       string `json:"telefone"`
}

// UpdateInput enumera os campos de perfil editáveis. Papel, senha, estado e
// associações têm rotas próprias.
type UpdateInput struct {
	Nome         *string `json:"nome" validate:"omitempty,min=2"`
	Email        *string `json:"email" validate:"omitempty,email"`
	Telefone     *string `json:"telefone"`
	Departamento *string `json:"departamento"`
}

// ListFilter filtra a listagem.
type ListFilter struct {
	Status       string
	Role         string
	Departamento string
	Limit        int
	Offset       int
}
