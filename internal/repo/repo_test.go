package repo

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gestaozabele/recrutamento/internal/rbac"
)

func TestApplyScope(t *testing.T) {
	members := func(ph string) string { return "dono = ANY(" + ph + ")" }

	var q Query
	q.Add("status = " + q.Arg("ativo"))
	q.ApplyScope(rbac.Scope{Kind: rbac.ScopeDepartment, Department: "RH"}, "departamento", members)
	if got := q.Where(); got != " WHERE status = $1 AND departamento = $2" {
		t.Fatalf("unexpected where %q", got)
	}
	if len(q.Args()) != 2 || q.Args()[1] != "RH" {
		t.Fatalf("unexpected args %v", q.Args())
	}

	var m Query
	m.ApplyScope(rbac.Scope{Kind: rbac.ScopeMembers, ActorIDs: []string{"a", "b"}}, "departamento", members)
	if got := m.Where(); got != " WHERE (dono = ANY($1))" {
		t.Fatalf("unexpected where %q", got)
	}

	var all Query
	all.ApplyScope(rbac.Scope{Kind: rbac.ScopeAll}, "departamento", members)
	if all.Where() != "" {
		t.Fatal("scope all must not filter")
	}

	var none Query
	none.ApplyScope(rbac.Scope{}, "departamento", members)
	if none.Where() != " WHERE FALSE" {
		t.Fatal("empty scope must match nothing")
	}
}

func TestOrderBy(t *testing.T) {
	allowed := map[string]string{"nome": "nome", "criado_em": "criado_em"}
	if got := OrderBy("nome:asc", allowed, "criado_em DESC"); got != " ORDER BY nome ASC, id ASC" {
		t.Fatalf("unexpected %q", got)
	}
	if got := OrderBy("senha_hash:asc", allowed, "criado_em DESC"); got != " ORDER BY criado_em DESC" {
		t.Fatalf("unknown column must fall back, got %q", got)
	}
}

func TestTranslate(t *testing.T) {
	if !errors.Is(Translate(pgx.ErrNoRows), ErrNotFound) {
		t.Fatal("no rows must map to not found")
	}
	if !errors.Is(Translate(&pgconn.PgError{Code: "23505"}), ErrDuplicate) {
		t.Fatal("unique violation must map to duplicate")
	}
}
