package table

import (
	"context"
	"database/sql"
	"errors"

	"resto-be/internal/apperr"
	"resto-be/internal/db"
	"resto-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	// GetByID locks the table row when ctx carries a transaction.
	GetByID(ctx context.Context, id int64) (*Table, error)
	UpdateState(ctx context.Context, id int64, state State) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Table, error) {
	const op = "table.GetByID"

	query := `
		SELECT t.id, t.name, t.state, r.id, r.name
		FROM tables t
		JOIN rooms r ON r.id = t.room_id
		WHERE t.id = $1
	`
	if db.InTx(ctx) {
		query += " FOR UPDATE OF t"
	}

	var t Table
	err := db.Conn(ctx, r.db).QueryRowContext(ctx, query, id).
		Scan(&t.ID, &t.Name, &t.State, &t.RoomID, &t.RoomName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errTableNotFound(op, id)
	}
	if err != nil {
		logger.FromCtx(ctx).Error("failed to load table",
			zap.String("layer", "repository"),
			zap.String("method", "GetByID"),
			zap.Int64("table_id", id),
			zap.Error(err),
		)
		return nil, apperr.Internal(op, err)
	}

	return &t, nil
}

func (r *repository) UpdateState(ctx context.Context, id int64, state State) error {
	const op = "table.UpdateState"

	if !state.Valid() {
		return apperr.BadInput(op, "invalid table state %q", state)
	}

	res, err := db.Conn(ctx, r.db).ExecContext(ctx, `
		UPDATE tables
		SET state = $1, updated_at = NOW()
		WHERE id = $2
	`, state, id)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to update table state",
			zap.String("layer", "repository"),
			zap.String("method", "UpdateState"),
			zap.Int64("table_id", id),
			zap.String("state", string(state)),
			zap.Error(err),
		)
		return apperr.Internal(op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Internal(op, err)
	}
	if n == 0 {
		return errTableNotFound(op, id)
	}
	return nil
}
