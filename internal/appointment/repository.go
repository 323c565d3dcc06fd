package appointment

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gestaozabele/recrutamento/internal/rbac"
	"github.com/gestaozabele/recrutamento/internal/repo"
)

const appointmentColumns = `id, titulo, descricao, data, horario, inicio, participantes, tipo, local, status,
    organizador, departamento, google_event_id, historico, criado_em, atualizado_em`

// Repository provê acesso à tabela agendamentos.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (*Appointment, error) {
	var a Appointment
	var history []byte
	if err := row.Scan(&a.ID, &a.Titulo, &a.Descricao, &a.Data, &a.Horario, &a.Inicio, &a.Participantes,
		&a.Tipo, &a.Local, &a.Status, &a.Organizador, &a.Departamento, &a.GoogleEventID, &history,
		&a.CriadoEm, &a.AtualizadoEm); err != nil {
		return nil, repo.Translate(err)
	}
	if err := json.Unmarshal(history, &a.Historico); err != nil {
		return nil, err
	}
	if a.Participantes == nil {
		a.Participantes = []string{}
	}
	if a.Historico == nil {
		a.Historico = []HistoryEntry{}
	}
	return &a, nil
}

func membersSQL(ph string) string {
	return "organizador = ANY(" + ph + ") OR participantes && " + ph
}

func (r *Repository) Create(ctx context.Context, a *Appointment) error {
	history, err := json.Marshal(a.Historico)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
        INSERT INTO agendamentos (`+appointmentColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
    `, a.ID, a.Titulo, a.Descricao, a.Data, a.Horario, a.Inicio, a.Participantes, a.Tipo, a.Local, a.Status,
		a.Organizador, a.Departamento, a.GoogleEventID, history, a.CriadoEm, a.AtualizadoEm)
	return repo.Translate(err)
}

func (r *Repository) Get(ctx context.Context, id string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM agendamentos WHERE id = $1`, id)
	return scanAppointment(row)
}

// List ordena por data e horário.
func (r *Repository) List(ctx context.Context, filter ListFilter, scope rbac.Scope) ([]Appointment, error) {
	var q repo.Query
	if filter.From != "" {
		q.Add("data >= " + q.Arg(filter.From))
	}
	if filter.To != "" {
		q.Add("data <= " + q.Arg(filter.To))
	}
	if filter.Status != "" {
		q.Add("status = " + q.Arg(filter.Status))
	}
	if filter.Tipo != "" {
		q.Add("tipo = " + q.Arg(filter.Tipo))
	}
	q.ApplyScope(scope, "departamento", membersSQL)

	rows, err := r.pool.Query(ctx, `SELECT `+appointmentColumns+` FROM agendamentos`+q.Where()+
		` ORDER BY data ASC, horario ASC, id ASC`, q.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *Repository) Update(ctx context.Context, a *Appointment) error {
	history, err := json.Marshal(a.Historico)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
        UPDATE agendamentos
        SET titulo = $2, descricao = $3, data = $4, horario = $5, inicio = $6, participantes = $7, tipo = $8,
            local = $9, status = $10, google_event_id = $11, historico = $12, atualizado_em = $13
        WHERE id = $1
    `, a.ID, a.Titulo, a.Descricao, a.Data, a.Horario, a.Inicio, a.Participantes, a.Tipo, a.Local, a.Status,
		a.GoogleEventID, history, a.AtualizadoEm)
	if err != nil {
		return repo.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}
