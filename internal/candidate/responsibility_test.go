package candidate

import (
	"errors"
	"testing"
	"time"
)

func TestAttachResponsibleIdempotent(t *testing.T) {
	c := &Candidate{}
	now := time.Now()

	if !AttachResponsible(c, "u1", "Rui", "u1", now) {
		t.Fatal("first attach must change the candidate")
	}
	if AttachResponsible(c, "u1", "Rui", "u1", now) {
		t.Fatal("second attach must be a no-op")
	}
	if len(c.Responsaveis) != 1 || len(c.Historico) != 1 {
		t.Fatalf("expected one responsible and one note, got %d/%d", len(c.Responsaveis), len(c.Historico))
	}
	if c.Historico[0].Tipo != HistorySystem || c.Historico[0].Conteudo != "Novo responsável adicionado: Rui" {
		t.Fatalf("unexpected history %+v", c.Historico[0])
	}
	if !IsActiveResponsible(c, "u1") || IsActiveResponsible(c, "u2") {
		t.Fatal("active responsible check mismatch")
	}
}

func TestAttachKeepsInactiveEntry(t *testing.T) {
	c := &Candidate{Responsaveis: []Responsible{{UserID: "u1", Status: StatusInativo}}}
	if AttachResponsible(c, "u1", "", "u2", time.Now()) {
		t.Fatal("existing entry must not be duplicated")
	}
	if IsActiveResponsible(c, "u1") {
		t.Fatal("attach must not reactivate")
	}
}

func TestSetResponsibleStatus(t *testing.T) {
	c := &Candidate{Responsaveis: []Responsible{
		{UserID: "u1", Status: StatusAtivo},
		{UserID: "u2", Status: StatusAtivo},
	}}
	now := time.Now()

	if _, err := SetResponsibleStatus(c, "u3", StatusInativo, "", "u1", now); !errors.Is(err, ErrResponsibleNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := SetResponsibleStatus(c, "u1", "pausado", "", "u1", now); !errors.Is(err, ErrInvalidResponsibleStatus) {
		t.Fatalf("expected invalid status, got %v", err)
	}
	changed, err := SetResponsibleStatus(c, "u1", StatusInativo, "", "u2", now)
	if err != nil || !changed {
		t.Fatalf("deactivate: %v %v", changed, err)
	}
	if _, err := SetResponsibleStatus(c, "u2", StatusInativo, "", "u2", now); !errors.Is(err, ErrLastResponsible) {
		t.Fatalf("expected last responsible error, got %v", err)
	}
	if len(c.Responsaveis) != 2 {
		t.Fatal("responsibles must never be removed")
	}
	if got := ActiveResponsibles(c); len(got) != 1 || got[0] != "u2" {
		t.Fatalf("unexpected active set %v", got)
	}
	if changed, _ := SetResponsibleStatus(c, "u1", StatusAtivo, "", "u2", now); !changed {
		t.Fatal("reactivation must change the candidate")
	}
}

func TestNaturalKey(t *testing.T) {
	local, err := NormalizePhone("911000000")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	intl, err := NormalizePhone("+351 911 000 000")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if local != "+351911000000" || local != intl {
		t.Fatalf("expected E.164 equality, got %q %q", local, intl)
	}
	if _, err := NormalizePhone("telefone"); !errors.Is(err, ErrInvalidPhone) {
		t.Fatalf("expected invalid phone, got %v", err)
	}
	if NaturalKey(" Ana ", "A@X.com", local) != NaturalKey("Ana", "a@x.com", intl) {
		t.Fatal("natural key must ignore surrounding spaces and email case")
	}
	if NaturalKey("Ana", "a@x.com", local) == NaturalKey("Ana Maria", "a@x.com", local) {
		t.Fatal("different names must not collide")
	}
}
