package task

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gestaozabele/recrutamento/internal/rbac"
	"github.com/gestaozabele/recrutamento/internal/repo"
)

const taskColumns = `id, titulo, descricao, data, prazo, status, criador, destinatario, responsaveis,
    acompanhantes, departamento, criado_em, atualizado_em`

// Repository provê acesso à tabela tarefas.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*Task, error) {
	var t Task
	if err := row.Scan(&t.ID, &t.Titulo, &t.Descricao, &t.Data, &t.Prazo, &t.Status, &t.Criador,
		&t.Destinatario, &t.Responsaveis, &t.Acompanhantes, &t.Departamento, &t.CriadoEm, &t.AtualizadoEm); err != nil {
		return nil, repo.Translate(err)
	}
	if t.Responsaveis == nil {
		t.Responsaveis = []string{}
	}
	if t.Acompanhantes == nil {
		t.Acompanhantes = []string{}
	}
	return &t, nil
}

// membersSQL reproduz a pertença de tarefa do avaliador de acesso.
func membersSQL(ph string) string {
	return "criador = ANY(" + ph + ") OR destinatario = ANY(" + ph + ") OR responsaveis && " + ph +
		" OR acompanhantes && " + ph
}

func (r *Repository) Create(ctx context.Context, t *Task) error {
	_, err := r.pool.Exec(ctx, `
        INSERT INTO tarefas (`+taskColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
    `, t.ID, t.Titulo, t.Descricao, t.Data, t.Prazo, t.Status, t.Criador, t.Destinatario, t.Responsaveis,
		t.Acompanhantes, t.Departamento, t.CriadoEm, t.AtualizadoEm)
	return repo.Translate(err)
}

func (r *Repository) Get(ctx context.Context, id string) (*Task, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tarefas WHERE id = $1`, id)
	return scanTask(row)
}

func (r *Repository) List(ctx context.Context, filter ListFilter, scope rbac.Scope) ([]Task, error) {
	var q repo.Query
	if filter.Status != "" {
		q.Add("status = " + q.Arg(filter.Status))
	}
	if filter.Destinatario != "" {
		q.Add("destinatario = " + q.Arg(filter.Destinatario))
	}
	q.ApplyScope(scope, "departamento", membersSQL)
	limit, offset := repo.Page(filter.Limit, filter.Offset)
	sql := `SELECT ` + taskColumns + ` FROM tarefas` + q.Where() +
		` ORDER BY prazo ASC NULLS LAST, data DESC, id ASC LIMIT ` + q.Arg(limit) + ` OFFSET ` + q.Arg(offset)

	rows, err := r.pool.Query(ctx, sql, q.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (r *Repository) Update(ctx context.Context, t *Task) error {
	tag, err := r.pool.Exec(ctx, `
        UPDATE tarefas
        SET titulo = $2, descricao = $3, data = $4, prazo = $5, status = $6, destinatario = $7,
            responsaveis = $8, acompanhantes = $9, atualizado_em = $10
        WHERE id = $1
    `, t.ID, t.Titulo, t.Descricao, t.Data, t.Prazo, t.Status, t.Destinatario, t.Responsaveis,
		t.Acompanhantes, t.AtualizadoEm)
	if err != nil {
		return repo.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tarefas WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}
