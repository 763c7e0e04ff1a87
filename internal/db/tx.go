package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"resto-be/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Executor is the subset of *sql.DB and *sql.Tx the repositories use.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Transactor runs fn inside one database transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type txState struct {
	tx    *sql.Tx
	hooks []func(context.Context)
}

type txKey struct{}

func stateFrom(ctx context.Context) (*txState, bool) {
	st, ok := ctx.Value(txKey{}).(*txState)
	return st, ok
}

// Conn returns the transaction bound to ctx, or fallback when there is none.
func Conn(ctx context.Context, fallback *sql.DB) Executor {
	if st, ok := stateFrom(ctx); ok {
		return st.tx
	}
	return fallback
}

func InTx(ctx context.Context) bool {
	_, ok := stateFrom(ctx)
	return ok
}

// AfterCommit queues hook to run once the transaction in ctx commits. Hooks are
// dropped on rollback. Outside a transaction the hook runs immediately.
func AfterCommit(ctx context.Context, hook func(ctx context.Context)) {
	if st, ok := stateFrom(ctx); ok {
		st.hooks = append(st.hooks, hook)
		return
	}
	hook(ctx)
}

type TxManager struct {
	db          *sql.DB
	maxAttempts int
	backoff     time.Duration
}

func NewTxManager(db *sql.DB, maxAttempts int) *TxManager {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &TxManager{db: db, maxAttempts: maxAttempts, backoff: 50 * time.Millisecond}
}

// WithinTx commits when fn returns nil and rolls back otherwise. Calls nested in
// an existing transaction join it. Serialization failures, deadlocks and lock
// timeouts restart the whole unit.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if InTx(ctx) {
		return fn(ctx)
	}

	log := logger.FromCtx(ctx).With(zap.String("layer", "db"))

	for attempt := 1; ; attempt++ {
		hooks, err := m.runOnce(ctx, fn)
		if err == nil {
			for _, hook := range hooks {
				hook(ctx)
			}
			return nil
		}

		if attempt >= m.maxAttempts || !IsRetryable(err) {
			return err
		}

		wait := m.backoff << (attempt - 1)
		log.Warn("retrying transaction",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (m *TxManager) runOnce(ctx context.Context, fn func(ctx context.Context) error) ([]func(context.Context), error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logger.FromCtx(ctx).Error("failed to rollback transaction", zap.Error(rbErr))
		}
	}()

	st := &txState{tx: tx}
	if err := fn(context.WithValue(ctx, txKey{}, st)); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true

	return st.hooks, nil
}

// Postgres error codes that are safe to retry from scratch.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

func IsRetryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch pqErr.Code {
	case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
		return true
	}
	return false
}
