package util

import (
	"testing"

	"github.com/gestaozabele/recrutamento/internal/apperr"
)

type sample struct {
	Nome  string `json:"nome" validate:"required"`
	Score int    `json:"pontuacao" validate:"gte=0,lte=100"`
}

func TestValidateStruct(t *testing.T) {
	if err := ValidateStruct(sample{Nome: "Ana", Score: 50}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := ValidateStruct(sample{Score: 50})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err.Error() != "nome obrigatório" {
		t.Fatalf("unexpected message %q", err.Error())
	}

	if err := ValidateStruct(sample{Nome: "x", Score: 101}); err == nil {
		t.Fatal("expected range error")
	}
}

func TestSliceHelpers(t *testing.T) {
	ids := AppendUnique(nil, "a")
	ids = AppendUnique(ids, "a")
	ids = AppendUnique(ids, "b")
	if len(ids) != 2 {
		t.Fatalf("expected 2 ids, got %v", ids)
	}
	ids = Remove(ids, "a")
	if len(ids) != 1 || ids[0] != "b" {
		t.Fatalf("unexpected ids %v", ids)
	}
	if NormalizeEmail("  Ana@X.COM ") != "ana@x.com" {
		t.Fatal("email not normalized")
	}
}
