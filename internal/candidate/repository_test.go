package candidate

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gestaozabele/recrutamento/internal/apperr"
	"github.com/gestaozabele/recrutamento/internal/rbac"
)

func TestListQuerySkillsOverlap(t *testing.T) {
	query, args := listQuery(ListFilter{Skills: []string{"go", "sql"}}, rbac.Scope{Kind: rbac.ScopeAll})
	if !strings.Contains(query, " WHERE skills && $1 ") {
		t.Fatalf("skills must match by overlap: %s", query)
	}
	if strings.Contains(query, "@>") {
		t.Fatalf("skills must not require every entry: %s", query)
	}
	skills, ok := args[0].([]string)
	if !ok || len(skills) != 2 {
		t.Fatalf("unexpected args %v", args)
	}
}

func TestListQueryAnalysedFilter(t *testing.T) {
	analysed, pending := true, false

	query, _ := listQuery(ListFilter{CVAnalisado: &analysed}, rbac.Scope{Kind: rbac.ScopeAll})
	if !strings.Contains(query, "WHERE EXISTS (SELECT 1 FROM analises_cv a WHERE a.candidato_id = candidatos.id)") {
		t.Fatalf("missing analysed condition: %s", query)
	}
	query, _ = listQuery(ListFilter{CVAnalisado: &pending}, rbac.Scope{Kind: rbac.ScopeAll})
	if !strings.Contains(query, "WHERE NOT EXISTS (SELECT 1 FROM analises_cv") {
		t.Fatalf("missing pending condition: %s", query)
	}
	query, _ = listQuery(ListFilter{}, rbac.Scope{Kind: rbac.ScopeAll})
	if strings.Contains(query, "analises_cv") {
		t.Fatalf("nil filter must not touch analyses: %s", query)
	}
}

func TestListQueryScopeAndPaging(t *testing.T) {
	query, args := listQuery(ListFilter{Status: StatusAtivo, Limit: 10, Offset: 20},
		rbac.Scope{Kind: rbac.ScopeDepartment, Department: "RH"})
	if !strings.Contains(query, " WHERE status = $1 AND departamento = $2 ") {
		t.Fatalf("unexpected where: %s", query)
	}
	if !strings.HasSuffix(query, " LIMIT $3 OFFSET $4") {
		t.Fatalf("unexpected paging: %s", query)
	}
	if len(args) != 4 || args[2] != 10 || args[3] != 20 {
		t.Fatalf("unexpected args %v", args)
	}
}

func TestParseFilterAnalysed(t *testing.T) {
	filter, err := parseFilter(httptest.NewRequest("GET", "/candidates?cv_analisado=false&skills=go,%20sql", nil))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if filter.CVAnalisado == nil || *filter.CVAnalisado {
		t.Fatalf("cv_analisado=false must be kept: %v", filter.CVAnalisado)
	}
	if len(filter.Skills) != 2 || filter.Skills[1] != "sql" {
		t.Fatalf("unexpected skills %v", filter.Skills)
	}

	filter, _ = parseFilter(httptest.NewRequest("GET", "/candidates", nil))
	if filter.CVAnalisado != nil {
		t.Fatal("absent cv_analisado must stay nil")
	}
	if _, err := parseFilter(httptest.NewRequest("GET", "/candidates?cv_analisado=talvez", nil)); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation, got %v", err)
	}
}
