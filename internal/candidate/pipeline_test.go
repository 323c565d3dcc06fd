package candidate

import (
	"errors"
	"testing"
	"time"
)

func newCandidate(stage Stage, entered time.Time) *Candidate {
	return &Candidate{
		ID:             "c1",
		Nome:           "Ana",
		PipelineStatus: stage,
		Responsaveis:   []Responsible{{UserID: "r", Status: StatusAtivo}},
		Metricas:       map[Stage]StageMetric{stage: {Entrada: &entered}},
	}
}

func TestTransitionRecordsMetrics(t *testing.T) {
	entered := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	now := entered.Add(90 * time.Minute)
	c := newCandidate(StageLead, entered)

	ref, err := Pipeline{}.Transition(c, "chamada", "r", "primeiro contacto", now)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if ref != nil {
		t.Fatal("no referral expected")
	}
	if c.PipelineStatus != StageChamada {
		t.Fatalf("expected chamada, got %s", c.PipelineStatus)
	}
	if got := c.Metricas[StageChamada].Entrada; got == nil || !got.Equal(now) {
		t.Fatalf("entered chamada mismatch: %v", got)
	}
	dwell := c.Metricas[StageLead].PermanenciaMs
	if dwell == nil || *dwell != (90*time.Minute).Milliseconds() {
		t.Fatalf("dwell lead mismatch: %v", dwell)
	}
	last := c.Historico[len(c.Historico)-1]
	if last.Tipo != HistoryStatusChange || last.Conteudo != "Status alterado de lead para chamada: primeiro contacto" {
		t.Fatalf("unexpected history %+v", last)
	}
}

func TestTransitionKeepsDwellOnSameStage(t *testing.T) {
	entered := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	now := entered.Add(5 * time.Second)
	c := newCandidate(StageLead, entered)

	if _, err := (Pipeline{}).Transition(c, "lead", "r", "", now); err != nil {
		t.Fatalf("transition: %v", err)
	}
	m := c.Metricas[StageLead]
	if m.PermanenciaMs == nil || *m.PermanenciaMs != 5000 {
		t.Fatalf("dwell must survive a same stage move: %v", m.PermanenciaMs)
	}
	if m.Entrada == nil || !m.Entrada.Equal(now) {
		t.Fatalf("entry must be renewed: %v", m.Entrada)
	}
}

func TestReenteringStageKeepsPreviousDwell(t *testing.T) {
	entered := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	c := newCandidate(StageLead, entered)

	if _, err := (Pipeline{}).Transition(c, "chamada", "r", "", entered.Add(time.Hour)); err != nil {
		t.Fatalf("to chamada: %v", err)
	}
	back := entered.Add(2 * time.Hour)
	if _, err := (Pipeline{}).Transition(c, "lead", "r", "", back); err != nil {
		t.Fatalf("back to lead: %v", err)
	}
	m := c.Metricas[StageLead]
	if m.PermanenciaMs == nil || *m.PermanenciaMs != time.Hour.Milliseconds() {
		t.Fatalf("previous dwell must be kept: %v", m.PermanenciaMs)
	}
	if m.Entrada == nil || !m.Entrada.Equal(back) {
		t.Fatalf("entry must be the re-entry time: %v", m.Entrada)
	}
}

func TestTransitionWithoutPreviousEntry(t *testing.T) {
	c := &Candidate{PipelineStatus: StageIdentificacao}
	now := time.Now()
	if _, err := (Pipeline{}).Transition(c, "lead", "r", "", now); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if c.Metricas[StageIdentificacao].PermanenciaMs != nil {
		t.Fatal("dwell must not be computed without an entry time")
	}
	if c.Historico[0].Conteudo != "Status alterado de identificacao para lead" {
		t.Fatalf("unexpected history %q", c.Historico[0].Conteudo)
	}
}

func TestTransitionValidation(t *testing.T) {
	c := newCandidate(StageLead, time.Now())
	if _, err := (Pipeline{}).Transition(c, "  ", "r", "", time.Now()); !errors.Is(err, ErrStatusRequired) {
		t.Fatalf("expected ErrStatusRequired, got %v", err)
	}
	if _, err := (Pipeline{}).Transition(c, "contratado", "r", "", time.Now()); !errors.Is(err, ErrUnknownStage) {
		t.Fatalf("expected ErrUnknownStage, got %v", err)
	}
	if c.PipelineStatus != StageLead || len(c.Historico) != 0 {
		t.Fatal("failed transition must not mutate the candidate")
	}
}

func TestPermissiveAllowsAnyJump(t *testing.T) {
	for _, from := range Stages {
		for _, to := range Stages {
			if !(Pipeline{}).Allowed(from, to) {
				t.Fatalf("permissive pipeline rejected %s -> %s", from, to)
			}
		}
	}
}

func TestStrictTable(t *testing.T) {
	strict := Pipeline{Strict: true}
	c := newCandidate(StageRecrutado, time.Now())
	if _, err := strict.Transition(c, "identificacao", "r", "", time.Now()); !errors.Is(err, ErrTransitionNotAllowed) {
		t.Fatalf("expected ErrTransitionNotAllowed, got %v", err)
	}
	for _, from := range Stages {
		if from != StageInativo && !strict.Allowed(from, StageInativo) {
			t.Fatalf("inativo must be reachable from %s", from)
		}
	}
	if !strict.Allowed(StageEntrevista, StageRecrutado) {
		t.Fatal("entrevista -> recrutado must be allowed")
	}
}

func TestReferralEvent(t *testing.T) {
	c := newCandidate(StageLead, time.Now().Add(-time.Hour))
	c.Indicacao = true
	c.NivelIndicacao = "ouro"
	c.ResponsavelIndicacao = "U7"

	ref, err := Pipeline{}.Transition(c, "recrutado", "r", "", time.Now())
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if ref == nil || ref.ReferrerID != "U7" || ref.CandidateID != "c1" {
		t.Fatalf("unexpected referral %+v", ref)
	}

	c2 := newCandidate(StageLead, time.Now())
	c2.Indicacao = true
	if ref, _ := (Pipeline{}).Transition(c2, "recrutado", "r", "", time.Now()); ref != nil {
		t.Fatal("referral requires a referring actor")
	}
}
