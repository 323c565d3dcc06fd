package repo

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound é retornado quando nenhum registro é encontrado.
	ErrNotFound = errors.New("registro não encontrado")
	// ErrVersionConflict indica que o registo mudou desde a leitura.
	ErrVersionConflict = errors.New("registo alterado concorrentemente")
	// ErrDuplicate indica violação de unicidade.
	ErrDuplicate = errors.New("registo duplicado")
)

const uniqueViolation = "23505"

// Translate converte erros do driver nos sentinelas do pacote.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}
