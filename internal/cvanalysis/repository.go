package cvanalysis

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gestaozabele/recrutamento/internal/rbac"
	"github.com/gestaozabele/recrutamento/internal/repo"
)

const analysisColumns = `id, candidato_id, analise, pontuacao, classificacao, status, dono, departamento_dono,
    analisado_por, data_analise, criado_em, atualizado_em`

// Repository provê acesso à tabela analises_cv.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (*Analysis, error) {
	var a Analysis
	if err := row.Scan(&a.ID, &a.CandidatoID, &a.Analise, &a.Pontuacao, &a.Classificacao, &a.Status,
		&a.Dono, &a.DepartamentoDono, &a.AnalisadoPor, &a.DataAnalise, &a.CriadoEm, &a.AtualizadoEm); err != nil {
		return nil, repo.Translate(err)
	}
	return &a, nil
}

func (r *Repository) Create(ctx context.Context, a *Analysis) error {
	_, err := r.pool.Exec(ctx, `
        INSERT INTO analises_cv (`+analysisColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    `, a.ID, a.CandidatoID, a.Analise, a.Pontuacao, a.Classificacao, a.Status, a.Dono, a.DepartamentoDono,
		a.AnalisadoPor, a.DataAnalise, a.CriadoEm, a.AtualizadoEm)
	return repo.Translate(err)
}

func (r *Repository) Get(ctx context.Context, id string) (*Analysis, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+analysisColumns+` FROM analises_cv WHERE id = $1`, id)
	return scanAnalysis(row)
}

// List devolve as análises visíveis pelo escopo, mais recentes primeiro.
func (r *Repository) List(ctx context.Context, filter ListFilter, scope rbac.Scope) ([]Analysis, error) {
	var q repo.Query
	if filter.Status != "" {
		q.Add("status = " + q.Arg(filter.Status))
	}
	if filter.Classificacao != "" {
		q.Add("classificacao = " + q.Arg(filter.Classificacao))
	}
	if filter.CandidatoID != "" {
		q.Add("candidato_id = " + q.Arg(filter.CandidatoID))
	}
	q.ApplyScope(scope, "departamento_dono", func(ph string) string {
		return "dono = ANY(" + ph + ")"
	})
	limit, offset := repo.Page(filter.Limit, filter.Offset)
	sql := `SELECT ` + analysisColumns + ` FROM analises_cv` + q.Where() +
		` ORDER BY data_analise DESC, id DESC LIMIT ` + q.Arg(limit) + ` OFFSET ` + q.Arg(offset)

	rows, err := r.pool.Query(ctx, sql, q.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Analysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *Repository) Update(ctx context.Context, a *Analysis) error {
	tag, err := r.pool.Exec(ctx, `
        UPDATE analises_cv
        SET candidato_id = $2, analise = $3, pontuacao = $4, classificacao = $5, status = $6,
            analisado_por = $7, data_analise = $8, atualizado_em = $9
        WHERE id = $1
    `, a.ID, a.CandidatoID, a.Analise, a.Pontuacao, a.Classificacao, a.Status, a.AnalisadoPor,
		a.DataAnalise, a.AtualizadoEm)
	if err != nil {
		return repo.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM analises_cv WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}
