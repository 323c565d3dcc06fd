package user

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gestaozabele/recrutamento/internal/db"
	"github.com/gestaozabele/recrutamento/internal/rbac"
	"github.com/gestaozabele/recrutamento/internal/repo"
)

// ErrAlreadyBootstrapped indica que já existem utilizadores.
var ErrAlreadyBootstrapped = errors.New("sistema já inicializado")

const userColumns = `id, nome, email, senha_hash, role, departamento, broker_equipa_id, responsavel_id,
        telefone, foto_url, status, agencias, historico, ultimo_login, criado_em, atualizado_em`

// Repository provê acesso à tabela usuarios.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		u    User
		role string
	)
	err := row.Scan(&u.ID, &u.Nome, &u.Email, &u.SenhaHash, &role, &u.Departamento, &u.BrokerEquipaID,
		&u.ResponsavelID, &u.Telefone, &u.FotoURL, &u.Status, &u.Agencias, &u.Historico, &u.UltimoLogin,
		&u.CriadoEm, &u.AtualizadoEm)
	if err != nil {
		return nil, repo.Translate(err)
	}
	u.Role = rbac.Role(role)
	if u.Agencias == nil {
		u.Agencias = []AgencyMembership{}
	}
	if u.Historico == nil {
		u.Historico = []HistoryEntry{}
	}
	return &u, nil
}

func insertArgs(u *User) ([]any, error) {
	agencias, err := json.Marshal(u.Agencias)
	if err != nil {
		return nil, err
	}
	historico, err := json.Marshal(u.Historico)
	if err != nil {
		return nil, err
	}
	return []any{u.ID, u.Nome, u.Email, u.SenhaHash, string(u.Role), u.Departamento, u.BrokerEquipaID,
		u.ResponsavelID, u.Telefone, u.FotoURL, u.Status, agencias, historico, u.UltimoLogin,
		u.CriadoEm, u.AtualizadoEm}, nil
}

const insertUser = `
        INSERT INTO usuarios (` + userColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

// Create insere o utilizador.
func (r *Repository) Create(ctx context.Context, u *User) error {
	args, err := insertArgs(u)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, insertUser, args...)
	return repo.Translate(err)
}

// CreateFirstAdmin insere o primeiro utilizador apenas se a tabela estiver
// vazia. O lock exclusivo serializa pedidos concorrentes.
func (r *Repository) CreateFirstAdmin(ctx context.Context, u *User) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `LOCK TABLE usuarios IN EXCLUSIVE MODE`); err != nil {
			return err
		}
		var count int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM usuarios`).Scan(&count); err != nil {
			return err
		}
		if count > 0 {
			return ErrAlreadyBootstrapped
		}
		args, err := insertArgs(u)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, insertUser, args...)
		return repo.Translate(err)
	})
}

// Get busca por id.
func (r *Repository) Get(ctx context.Context, id string) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM usuarios WHERE id = $1`, id)
	return scanUser(row)
}

// GetByEmail busca por e-mail normalizado.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM usuarios WHERE email = $1`, strings.ToLower(email))
	return scanUser(row)
}

// List lista utilizadores visíveis pelo predicado.
func (r *Repository) List(ctx context.Context, filter ListFilter, scope rbac.Scope) ([]User, error) {
	var q repo.Query
	if filter.Status != "" {
		q.Add("status = " + q.Arg(filter.Status))
	}
	if filter.Role != "" {
		q.Add("role = " + q.Arg(filter.Role))
	}
	if filter.Departamento != "" {
		q.Add("departamento = " + q.Arg(filter.Departamento))
	}
	q.ApplyScope(scope, "departamento", func(ph string) string {
		return "id = ANY(" + ph + ") OR broker_equipa_id = ANY(" + ph + ")"
	})

	limit, offset := repo.Page(filter.Limit, filter.Offset)
	query := `SELECT ` + userColumns + ` FROM usuarios` + q.Where() +
		` ORDER BY nome ASC, id ASC LIMIT ` + q.Arg(limit) + ` OFFSET ` + q.Arg(offset)

	rows, err := r.pool.Query(ctx, query, q.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// Update grava todos os campos mutáveis.
func (r *Repository) Update(ctx context.Context, u *User) error {
	agencias, err := json.Marshal(u.Agencias)
	if err != nil {
		return err
	}
	historico, err := json.Marshal(u.Historico)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
        UPDATE usuarios SET nome = $2, email = $3, senha_hash = $4, role = $5, departamento = $6,
            broker_equipa_id = $7, responsavel_id = $8, telefone = $9, foto_url = $10, status = $11,
            agencias = $12, historico = $13, atualizado_em = $14
        WHERE id = $1
    `, u.ID, u.Nome, u.Email, u.SenhaHash, string(u.Role), u.Departamento, u.BrokerEquipaID,
		u.ResponsavelID, u.Telefone, u.FotoURL, u.Status, agencias, historico, u.AtualizadoEm)
	if err != nil {
		return repo.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// TeamOf devolve os ids ativos cuja equipa é a do broker.
func (r *Repository) TeamOf(ctx context.Context, brokerID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM usuarios WHERE broker_equipa_id = $1 AND status = 'ativo' ORDER BY id`, brokerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Names devolve o nome de cada id existente.
func (r *Repository) Names(ctx context.Context, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT id, nome FROM usuarios WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id, nome string
		if err := rows.Scan(&id, &nome); err != nil {
			return nil, err
		}
		names[id] = nome
	}
	return names, rows.Err()
}

// TouchLogin regista o último acesso.
func (r *Repository) TouchLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE usuarios SET ultimo_login = $2 WHERE id = $1`, id, at)
	return err
}

// Ping verifica a ligação à base primária.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
