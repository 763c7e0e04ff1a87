package db

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T, attempts int) (*TxManager, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	m := NewTxManager(conn, attempts)
	m.backoff = 0
	return m, mock
}

func TestWithinTx_CommitRunsHooksInOrder(t *testing.T) {
	m, mock := newManager(t, 1)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var calls []string
	err := m.WithinTx(context.Background(), func(ctx context.Context) error {
		assert.True(t, InTx(ctx))
		AfterCommit(ctx, func(ctx context.Context) {
			assert.False(t, InTx(ctx))
			calls = append(calls, "first")
		})
		AfterCommit(ctx, func(context.Context) { calls = append(calls, "second") })

		_, err := Conn(ctx, nil).ExecContext(ctx, "UPDATE orders SET total = 0")
		calls = append(calls, "body")
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"body", "first", "second"}, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_RollbackDropsHooks(t *testing.T) {
	m, mock := newManager(t, 3)
	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("stock shortage")
	hookRan := false

	err := m.WithinTx(context.Background(), func(ctx context.Context) error {
		AfterCommit(ctx, func(context.Context) { hookRan = true })
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.False(t, hookRan)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_CommitFailure(t *testing.T) {
	m, mock := newManager(t, 1)
	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("connection lost"))

	hookRan := false
	err := m.WithinTx(context.Background(), func(ctx context.Context) error {
		AfterCommit(ctx, func(context.Context) { hookRan = true })
		return nil
	})

	assert.ErrorContains(t, err, "failed to commit transaction")
	assert.False(t, hookRan)
}

func TestWithinTx_RetriesSerializationFailure(t *testing.T) {
	m, mock := newManager(t, 2)

	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectCommit()

	attempts := 0
	hooks := 0
	err := m.WithinTx(context.Background(), func(ctx context.Context) error {
		attempts++
		AfterCommit(ctx, func(context.Context) { hooks++ })
		if attempts == 1 {
			return &pq.Error{Code: "40001"}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 1, hooks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_GivesUpAfterMaxAttempts(t *testing.T) {
	m, mock := newManager(t, 2)
	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectRollback()

	attempts := 0
	err := m.WithinTx(context.Background(), func(ctx context.Context) error {
		attempts++
		return &pq.Error{Code: "40P01"}
	})

	assert.Error(t, err)
	assert.Equal(t, 2, attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_NestedJoinsOuter(t *testing.T) {
	m, mock := newManager(t, 1)
	mock.ExpectBegin()
	mock.ExpectCommit()

	err := m.WithinTx(context.Background(), func(outer context.Context) error {
		return m.WithinTx(outer, func(inner context.Context) error {
			assert.Same(t, Conn(outer, nil), Conn(inner, nil))
			return nil
		})
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAfterCommit_WithoutTransactionRunsNow(t *testing.T) {
	ran := false
	AfterCommit(context.Background(), func(context.Context) { ran = true })
	assert.True(t, ran)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&pq.Error{Code: "40001"}))
	assert.True(t, IsRetryable(&pq.Error{Code: "55P03"}))
	assert.False(t, IsRetryable(&pq.Error{Code: "23505"}))
	assert.False(t, IsRetryable(errors.New("plain")))
}
