package mirror

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrUnknownTable indica tabela ou coluna fora do esquema do espelho.
var ErrUnknownTable = errors.New("espelho: tabela ou coluna desconhecida")

// SQLiteWriter grava linhas no espelho SQLite.
type SQLiteWriter struct {
	db      *sql.DB
	columns map[string]map[string]struct{}
}

// OpenSQLite abre (ou cria) o ficheiro do espelho e aplica as migrações.
func OpenSQLite(ctx context.Context, path string) (*SQLiteWriter, error) {
	dsn := "file::memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(1)

	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		conn.Close()
		return nil, err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, conn, fsys)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := provider.Up(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("espelho: migrações: %w", err)
	}

	w := &SQLiteWriter{db: conn}
	if err := w.loadColumns(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return w, nil
}

func (w *SQLiteWriter) loadColumns(ctx context.Context) error {
	rows, err := w.db.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'goose_%' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return err
	}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return err
		}
		tables = append(tables, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	w.columns = make(map[string]map[string]struct{}, len(tables))
	for _, table := range tables {
		cols, err := w.db.QueryContext(ctx, `SELECT name FROM pragma_table_info(?)`, table)
		if err != nil {
			return err
		}
		set := map[string]struct{}{}
		for cols.Next() {
			var name string
			if err := cols.Scan(&name); err != nil {
				cols.Close()
				return err
			}
			set[name] = struct{}{}
		}
		cols.Close()
		w.columns[table] = set
	}
	return nil
}

// Write faz upsert da linha por id.
func (w *SQLiteWriter) Write(ctx context.Context, table string, row Row) error {
	allowed, ok := w.columns[table]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	if id, _ := row["id"].(string); id == "" {
		return errors.New("espelho: linha sem id")
	}

	values, err := normalize(row)
	if err != nil {
		return err
	}

	cols := make([]string, 0, len(values))
	for col := range values {
		if _, ok := allowed[col]; !ok {
			return fmt.Errorf("%w: %s.%s", ErrUnknownTable, table, col)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	args := make([]any, len(cols))
	placeholders := make([]string, len(cols))
	updates := make([]string, 0, len(cols))
	for i, col := range cols {
		args[i] = values[col]
		placeholders[i] = "?"
		if col != "id" {
			updates = append(updates, col+" = excluded."+col)
		}
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(id) DO ",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	if len(updates) == 0 {
		query += "NOTHING"
	} else {
		query += "UPDATE SET " + strings.Join(updates, ", ")
	}

	if _, err := w.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("espelho: %s: %w", table, err)
	}
	return nil
}

// Ping verifica a ligação.
func (w *SQLiteWriter) Ping(ctx context.Context) error {
	return w.db.PingContext(ctx)
}

// DB expõe a ligação para leitura em testes e ferramentas.
func (w *SQLiteWriter) DB() *sql.DB {
	return w.db
}

// Close fecha a base.
func (w *SQLiteWriter) Close() error {
	return w.db.Close()
}
