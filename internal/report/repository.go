package report

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gestaozabele/recrutamento/internal/candidate"
	"github.com/gestaozabele/recrutamento/internal/rbac"
	"github.com/gestaozabele/recrutamento/internal/repo"
)

// Repository lê as projeções usadas nos relatórios.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CandidateFacts devolve os candidatos criados na janela e visíveis pelo escopo.
func (r *Repository) CandidateFacts(ctx context.Context, w Window, scope rbac.Scope) ([]CandidateFact, error) {
	var q repo.Query
	q.Add("criado_em >= " + q.Arg(w.Start))
	q.Add("criado_em < " + q.Arg(w.End))
	q.ApplyScope(scope, "departamento", candidate.MembersSQL)

	rows, err := r.pool.Query(ctx, `SELECT id, status, pipeline_status, responsaveis FROM candidatos`+q.Where(), q.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []CandidateFact{}
	for rows.Next() {
		var (
			f        CandidateFact
			pipeline string
			raw      []byte
		)
		if err := rows.Scan(&f.ID, &f.Status, &pipeline, &raw); err != nil {
			return nil, err
		}
		f.PipelineStatus = candidate.Stage(pipeline)
		var responsaveis []candidate.Responsible
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &responsaveis); err != nil {
				return nil, err
			}
		}
		for _, resp := range responsaveis {
			f.Responsaveis = append(f.Responsaveis, resp.UserID)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// AnalysisFacts devolve as análises de CV criadas na janela e visíveis pelo escopo.
func (r *Repository) AnalysisFacts(ctx context.Context, w Window, scope rbac.Scope) ([]AnalysisFact, error) {
	var q repo.Query
	q.Add("criado_em >= " + q.Arg(w.Start))
	q.Add("criado_em < " + q.Arg(w.End))
	q.ApplyScope(scope, "departamento_dono", func(ph string) string {
		return "dono = ANY(" + ph + ")"
	})

	rows, err := r.pool.Query(ctx, `SELECT id, analisado_por, pontuacao FROM analises_cv`+q.Where(), q.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []AnalysisFact{}
	for rows.Next() {
		var f AnalysisFact
		if err := rows.Scan(&f.ID, &f.AnalisadoPor, &f.Pontuacao); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
