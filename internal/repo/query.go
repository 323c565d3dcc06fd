package repo

import (
	"fmt"
	"strings"

	"github.com/gestaozabele/recrutamento/internal/rbac"
)

// Query acumula cláusulas WHERE e argumentos posicionais do pgx.
type Query struct {
	clauses []string
	args    []any
}

// Arg regista um argumento e devolve o placeholder correspondente.
func (q *Query) Arg(v any) string {
	q.args = append(q.args, v)
	return fmt.Sprintf("$%d", len(q.args))
}

// Add acrescenta uma cláusula já com placeholders.
func (q *Query) Add(clause string) {
	q.clauses = append(q.clauses, clause)
}

// Where devolve " WHERE ..." ou string vazia.
func (q *Query) Where() string {
	if len(q.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(q.clauses, " AND ")
}

// Args devolve os argumentos acumulados.
func (q *Query) Args() []any {
	return q.args
}

// ApplyScope traduz o predicado de visibilidade para SQL. departmentExpr é a
// coluna de departamento da tabela e members recebe o placeholder do array
// de ids e devolve a condição de pertença.
func (q *Query) ApplyScope(scope rbac.Scope, departmentExpr string, members func(ph string) string) {
	switch scope.Kind {
	case rbac.ScopeAll:
	case rbac.ScopeDepartment:
		q.Add(departmentExpr + " = " + q.Arg(scope.Department))
	case rbac.ScopeMembers:
		q.Add("(" + members(q.Arg(scope.ActorIDs)) + ")")
	default:
		q.Add("FALSE")
	}
}

// OrderBy valida "campo:asc|desc" contra as colunas permitidas.
func OrderBy(sort string, allowed map[string]string, fallback string) string {
	field, dir, _ := strings.Cut(strings.TrimSpace(sort), ":")
	col, ok := allowed[strings.TrimSpace(field)]
	if !ok {
		return " ORDER BY " + fallback
	}
	if strings.EqualFold(strings.TrimSpace(dir), "asc") {
		return " ORDER BY " + col + " ASC, id ASC"
	}
	return " ORDER BY " + col + " DESC, id DESC"
}

// Page normaliza limit/offset.
func Page(limit, offset int) (int, int) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
