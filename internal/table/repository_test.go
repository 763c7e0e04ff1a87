package table

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"resto-be/internal/apperr"
	"resto-be/internal/db"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_GetByID(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	repo := NewRepository(conn)
	columns := []string{"id", "name", "state", "room_id", "room_name"}

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(`SELECT t.id, t.name, t.state, r.id, r.name FROM tables t JOIN rooms r ON r.id = t.room_id WHERE t.id = \$1$`).
			WithArgs(int64(4)).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(4, "T4", "AVAILABLE", 1, "Terrace"))

		tbl, err := repo.GetByID(context.Background(), 4)
		require.NoError(t, err)
		assert.Equal(t, StateAvailable, tbl.State)
		assert.Equal(t, "Terrace", tbl.RoomName)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM tables t`).
			WithArgs(int64(9)).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByID(context.Background(), 9)
		assert.True(t, errors.Is(err, apperr.ErrNotFound))
	})

	t.Run("DBError", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM tables t`).
			WillReturnError(errors.New("db error"))

		_, err := repo.GetByID(context.Background(), 4)
		assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetByID_LocksInTx(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	repo := NewRepository(conn)
	tm := db.NewTxManager(conn, 1)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM tables t JOIN rooms r ON r.id = t.room_id WHERE t.id = \$1 FOR UPDATE OF t`).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "state", "room_id", "room_name"}).
			AddRow(4, "T4", "OPEN", 1, "Terrace"))
	mock.ExpectCommit()

	err = tm.WithinTx(context.Background(), func(ctx context.Context) error {
		tbl, err := repo.GetByID(ctx, 4)
		if err != nil {
			return err
		}
		assert.Equal(t, StateOpen, tbl.State)
		return nil
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpdateState(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	repo := NewRepository(conn)
	query := `UPDATE tables SET state = \$1, updated_at = NOW\(\) WHERE id = \$2`

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs("OPEN", int64(4)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.UpdateState(context.Background(), 4, StateOpen))
	})

	t.Run("Missing", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs("OPEN", int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateState(context.Background(), 5, StateOpen)
		assert.True(t, errors.Is(err, apperr.ErrNotFound))
	})

	t.Run("InvalidState", func(t *testing.T) {
		err := repo.UpdateState(context.Background(), 4, State("BROKEN"))
		assert.True(t, errors.Is(err, apperr.ErrBadInput))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
