package candidate

import (
	"errors"
	"time"
)

var (
	// ErrResponsibleNotFound indica que o utilizador não consta dos responsáveis.
	ErrResponsibleNotFound = errors.New("responsável não encontrado")
	// ErrLastResponsible impede deixar o candidato sem responsáveis ativos.
	ErrLastResponsible = errors.New("o candidato precisa de pelo menos um responsável ativo")
	// ErrInvalidResponsibleStatus indica estado diferente de ativo ou inativo.
	ErrInvalidResponsibleStatus = errors.New("estado de responsável inválido")
)

// AttachResponsible junta userID aos responsáveis. Se já existir, com qualquer
// estado, nada muda e devolve false. label é o nome mostrado no histórico.
func AttachResponsible(c *Candidate, userID, label, author string, now time.Time) bool {
	for _, r := range c.Responsaveis {
		if r.UserID == userID {
			return false
		}
	}
	c.Responsaveis = append(c.Responsaveis, Responsible{UserID: userID, DataAtribuicao: now, Status: StatusAtivo})
	if label == "" {
		label = userID
	}
	c.appendHistory(HistorySystem, "Novo responsável adicionado: "+label, author, now)
	return true
}

// IsActiveResponsible indica se userID é responsável ativo.
func IsActiveResponsible(c *Candidate, userID string) bool {
	for _, r := range c.Responsaveis {
		if r.UserID == userID && r.Status == StatusAtivo {
			return true
		}
	}
	return false
}

// ActiveResponsibles devolve os ids dos responsáveis ativos, pela ordem de
// atribuição.
func ActiveResponsibles(c *Candidate) []string {
	ids := make([]string, 0, len(c.Responsaveis))
	for _, r := range c.Responsaveis {
		if r.Status == StatusAtivo {
			ids = append(ids, r.UserID)
		}
	}
	return ids
}

// SetResponsibleStatus ativa ou inativa um responsável sem o remover.
// Devolve false quando o estado já era o pedido.
func SetResponsibleStatus(c *Candidate, userID, status, label, author string, now time.Time) (bool, error) {
	if status != StatusAtivo && status != StatusInativo {
		return false, ErrInvalidResponsibleStatus
	}
	idx := -1
	for i, r := range c.Responsaveis {
		if r.UserID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, ErrResponsibleNotFound
	}
	if c.Responsaveis[idx].Status == status {
		return false, nil
	}
	if status == StatusInativo && len(ActiveResponsibles(c)) == 1 {
		return false, ErrLastResponsible
	}

	c.Responsaveis[idx].Status = status
	if label == "" {
		label = userID
	}
	content := "Responsável inativado: " + label
	if status == StatusAtivo {
		content = "Responsável reativado: " + label
		c.Responsaveis[idx].DataAtribuicao = now
	}
	c.appendHistory(HistorySystem, content, author, now)
	return true, nil
}
