package department

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gestaozabele/recrutamento/internal/repo"
)

const departmentColumns = `id, nome, descricao, manager_id, agencias, status, criado_em, atualizado_em`

// Repository provê acesso à tabela departamentos.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDepartment(row rowScanner) (*Department, error) {
	var d Department
	if err := row.Scan(&d.ID, &d.Nome, &d.Descricao, &d.ManagerID, &d.Agencias, &d.Status,
		&d.CriadoEm, &d.AtualizadoEm); err != nil {
		return nil, repo.Translate(err)
	}
	return &d, nil
}

// Create insere o departamento. Nome duplicado devolve repo.ErrDuplicate.
func (r *Repository) Create(ctx context.Context, d *Department) error {
	_, err := r.pool.Exec(ctx, `
        INSERT INTO departamentos (`+departmentColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `, d.ID, d.Nome, d.Descricao, d.ManagerID, d.Agencias, d.Status, d.CriadoEm, d.AtualizadoEm)
	return repo.Translate(err)
}

func (r *Repository) Get(ctx context.Context, id string) (*Department, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+departmentColumns+` FROM departamentos WHERE id = $1`, id)
	return scanDepartment(row)
}

func (r *Repository) List(ctx context.Context, status string) ([]Department, error) {
	var q repo.Query
	if status != "" {
		q.Add("status = " + q.Arg(status))
	}
	rows, err := r.pool.Query(ctx, `SELECT `+departmentColumns+` FROM departamentos`+q.Where()+` ORDER BY nome ASC`, q.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	deps := []Department{}
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		deps = append(deps, *d)
	}
	return deps, rows.Err()
}

func (r *Repository) Update(ctx context.Context, d *Department) error {
	tag, err := r.pool.Exec(ctx, `
        UPDATE departamentos SET descricao = $2, manager_id = $3, agencias = $4, status = $5, atualizado_em = $6
        WHERE id = $1
    `, d.ID, d.Descricao, d.ManagerID, d.Agencias, d.Status, d.AtualizadoEm)
	if err != nil {
		return repo.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}
