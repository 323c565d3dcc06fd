package notify

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresInbox guarda notificações na tabela notificacoes.
type PostgresInbox struct {
	pool *pgxpool.Pool
}

func NewPostgresInbox(pool *pgxpool.Pool) *PostgresInbox {
	return &PostgresInbox{pool: pool}
}

func (p *PostgresInbox) Save(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, `
        INSERT INTO notificacoes (id, usuario_id, tipo, conteudo, dados, lida, criado_em)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, ev.ID, ev.UserID, ev.Type, ev.Content, data, ev.Read, ev.CreatedAt)
	return err
}

func (p *PostgresInbox) List(ctx context.Context, userID string, limit int) ([]Event, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := p.pool.Query(ctx, `
        SELECT id, usuario_id, tipo, conteudo, dados, lida, criado_em
        FROM notificacoes
        WHERE usuario_id = $1
        ORDER BY criado_em DESC
        LIMIT $2
    `, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var (
			ev   Event
			data []byte
		)
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.Type, &ev.Content, &data, &ev.Read, &ev.CreatedAt); err != nil {
			return nil, err
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &ev.Data); err != nil {
				return nil, err
			}
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (p *PostgresInbox) MarkRead(ctx context.Context, userID, id string) error {
	tag, err := p.pool.Exec(ctx, `UPDATE notificacoes SET lida = true WHERE id = $1 AND usuario_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
