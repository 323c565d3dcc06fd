package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
)

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
	commitErr  error
}

func (f *fakeTx) Commit(ctx context.Context) error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(ctx context.Context) error {
	if f.committed {
		return pgx.ErrTxClosed
	}
	f.rolledBack = true
	return nil
}

type fakeBeginner struct {
	tx  *fakeTx
	err error
}

func (f *fakeBeginner) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tx, nil
}

func TestWithTxCommits(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}
	if err := WithTx(context.Background(), b, func(ctx context.Context, tx pgx.Tx) error { return nil }); err != nil {
		t.Fatalf("with tx: %v", err)
	}
	if !b.tx.committed || b.tx.rolledBack {
		t.Fatalf("expected commit only: %+v", b.tx)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}
	boom := errors.New("falhou")
	err := WithTx(context.Background(), b, func(ctx context.Context, tx pgx.Tx) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("original error must be returned, got %v", err)
	}
	if b.tx.committed || !b.tx.rolledBack {
		t.Fatalf("expected rollback only: %+v", b.tx)
	}

	b = &fakeBeginner{tx: &fakeTx{commitErr: errors.New("conexão perdida")}}
	if err := WithTx(context.Background(), b, func(ctx context.Context, tx pgx.Tx) error { return nil }); err == nil {
		t.Fatal("commit failure must surface")
	}
	if !b.tx.rolledBack {
		t.Fatal("failed commit must roll back")
	}
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}
	defer func() {
		if recover() == nil {
			t.Fatal("panic must propagate")
		}
		if !b.tx.rolledBack {
			t.Fatal("panic must roll back")
		}
	}()
	_ = WithTx(context.Background(), b, func(ctx context.Context, tx pgx.Tx) error { panic("inesperado") })
}

func TestWithTxBeginError(t *testing.T) {
	boom := errors.New("pool fechado")
	err := WithTx(context.Background(), &fakeBeginner{err: boom}, func(ctx context.Context, tx pgx.Tx) error {
		t.Fatal("fn must not run")
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected begin error, got %v", err)
	}
}
