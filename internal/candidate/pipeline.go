package candidate

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Stage é uma etapa do funil de recrutamento.
type Stage string

const (
	StageIdentificacao Stage = "identificacao"
	StageLead          Stage = "lead"
	StageChamada       Stage = "chamada"
	StageAgendamento   Stage = "agendamento"
	StageEntrevista    Stage = "entrevista"
	StageTestePratico  Stage = "teste_pratico"
	StageOferta        Stage = "oferta"
	StageRecrutado     Stage = "recrutado"
	StageInativo       Stage = "inativo"
)

// Stages lista as etapas pela ordem do funil.
var Stages = []Stage{
	StageIdentificacao, StageLead, StageChamada, StageAgendamento, StageEntrevista,
	StageTestePratico, StageOferta, StageRecrutado, StageInativo,
}

var (
	// ErrStatusRequired indica pedido de transição sem etapa de destino.
	ErrStatusRequired = errors.New("novo status é obrigatório")
	// ErrUnknownStage indica etapa fora do funil.
	ErrUnknownStage = errors.New("status de pipeline inválido")
	// ErrTransitionNotAllowed indica movimento recusado pela tabela estrita.
	ErrTransitionNotAllowed = errors.New("transição de pipeline não permitida")
)

// ParseStage valida o nome de uma etapa.
func ParseStage(v string) (Stage, error) {
	v = strings.TrimSpace(v)
	for _, s := range Stages {
		if string(s) == v {
			return s, nil
		}
	}
	return "", ErrUnknownStage
}

// strictTransitions permite avançar, recuar uma etapa e inativar a partir de
// qualquer ponto. inativo só reabre no início do funil.
var strictTransitions = map[Stage][]Stage{
	StageIdentificacao: {StageLead, StageChamada, StageInativo},
	StageLead:          {StageIdentificacao, StageChamada, StageAgendamento, StageInativo},
	StageChamada:       {StageLead, StageAgendamento, StageInativo},
	StageAgendamento:   {StageChamada, StageEntrevista, StageInativo},
	StageEntrevista:    {StageAgendamento, StageTestePratico, StageOferta, StageRecrutado, StageInativo},
	StageTestePratico:  {StageEntrevista, StageOferta, StageRecrutado, StageInativo},
	StageOferta:        {StageEntrevista, StageRecrutado, StageInativo},
	StageRecrutado:     {StageInativo},
	StageInativo:       {StageIdentificacao, StageLead},
}

// Referral é o evento gerado quando um candidato indicado é recrutado.
type Referral struct {
	ReferrerID    string
	CandidateID   string
	CandidateName string
	Tier          string
}

// Pipeline aplica as transições de etapa. Em modo estrito só aceita os
// movimentos de strictTransitions.
type Pipeline struct {
	Strict bool
}

// Allowed indica se o movimento é aceite.
func (p Pipeline) Allowed(from, to Stage) bool {
	if !p.Strict {
		return true
	}
	for _, next := range strictTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition move o candidato para newStatus, atualiza métricas e histórico.
// Devolve o evento de indicação quando aplicável; persistir e notificar fica
// com quem chama.
func (p Pipeline) Transition(c *Candidate, newStatus, actorID, note string, now time.Time) (*Referral, error) {
	if strings.TrimSpace(newStatus) == "" {
		return nil, ErrStatusRequired
	}
	to, err := ParseStage(newStatus)
	if err != nil {
		return nil, err
	}
	from := c.PipelineStatus
	if !p.Allowed(from, to) {
		return nil, fmt.Errorf("%w: %s para %s", ErrTransitionNotAllowed, from, to)
	}

	if c.Metricas == nil {
		c.Metricas = map[Stage]StageMetric{}
	}
	if prev, ok := c.Metricas[from]; ok && prev.Entrada != nil {
		dwell := now.Sub(*prev.Entrada).Milliseconds()
		prev.PermanenciaMs = &dwell
		c.Metricas[from] = prev
	}
	// Reentrar numa etapa só renova a entrada; a permanência anterior fica
	// até à próxima saída.
	entered := now
	m := c.Metricas[to]
	m.Entrada = &entered
	c.Metricas[to] = m
	c.PipelineStatus = to

	content := fmt.Sprintf("Status alterado de %s para %s", from, to)
	if note = strings.TrimSpace(note); note != "" {
		content += ": " + note
	}
	c.appendHistory(HistoryStatusChange, content, actorID, now)

	if to == StageRecrutado && c.Indicacao && c.ResponsavelIndicacao != "" {
		return &Referral{
			ReferrerID:    c.ResponsavelIndicacao,
			CandidateID:   c.ID,
			CandidateName: c.Nome,
			Tier:          c.NivelIndicacao,
		}, nil
	}
	return nil, nil
}
