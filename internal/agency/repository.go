package agency

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gestaozabele/recrutamento/internal/repo"
)

const agencyColumns = `id, nome, manager_id, diretores, departamentos, employees, morada, status, criado_em, atualizado_em`

// Repository provê acesso à tabela agencias.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria um novo repositório de agências.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgency(row rowScanner) (*Agency, error) {
	var a Agency
	if err := row.Scan(&a.ID, &a.Nome, &a.ManagerID, &a.Diretores, &a.Departamentos, &a.Employees,
		&a.Morada, &a.Status, &a.CriadoEm, &a.AtualizadoEm); err != nil {
		return nil, repo.Translate(err)
	}
	return &a, nil
}

// Create insere a agência.
func (r *Repository) Create(ctx context.Context, a *Agency) error {
	_, err := r.pool.Exec(ctx, `
        INSERT INTO agencias (`+agencyColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `, a.ID, a.Nome, a.ManagerID, a.Diretores, a.Departamentos, a.Employees, a.Morada, a.Status,
		a.CriadoEm, a.AtualizadoEm)
	return repo.Translate(err)
}

// Get busca por id.
func (r *Repository) Get(ctx context.Context, id string) (*Agency, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+agencyColumns+` FROM agencias WHERE id = $1`, id)
	return scanAgency(row)
}

// List devolve as agências, opcionalmente restritas a ids.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Agency, error) {
	var q repo.Query
	if filter.Status != "" {
		q.Add("status = " + q.Arg(filter.Status))
	}
	if filter.IDs != nil {
		q.Add("id = ANY(" + q.Arg(filter.IDs) + ")")
	}

	rows, err := r.pool.Query(ctx, `SELECT `+agencyColumns+` FROM agencias`+q.Where()+` ORDER BY nome ASC`, q.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	agencies := []Agency{}
	for rows.Next() {
		a, err := scanAgency(rows)
		if err != nil {
			return nil, err
		}
		agencies = append(agencies, *a)
	}
	return agencies, rows.Err()
}

// Update grava os campos mutáveis.
func (r *Repository) Update(ctx context.Context, a *Agency) error {
	tag, err := r.pool.Exec(ctx, `
        UPDATE agencias SET nome = $2, manager_id = $3, diretores = $4, departamentos = $5,
            employees = $6, morada = $7, status = $8, atualizado_em = $9
        WHERE id = $1
    `, a.ID, a.Nome, a.ManagerID, a.Diretores, a.Departamentos, a.Employees, a.Morada, a.Status, a.AtualizadoEm)
	if err != nil {
		return repo.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}
