package payment

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"resto-be/internal/db"
	"resto-be/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	SavePayments(ctx context.Context, orderID int64, payments []Payment) error
	GetPaymentsByOrders(ctx context.Context, orderIDs []int64) (map[int64][]Payment, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// SavePayments inserts every payment of one order in a single statement.
func (r *repository) SavePayments(ctx context.Context, orderID int64, payments []Payment) error {
	if len(payments) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO order_payments (order_id, amount, method) VALUES ")
	args := make([]any, 0, len(payments)*3)
	for i, p := range payments {
		if i > 0 {
			sb.WriteString(", ")
		}
		n := i * 3
		fmt.Fprintf(&sb, "($%d, $%d, $%d)", n+1, n+2, n+3)
		args = append(args, orderID, p.Amount.Round(2), p.Method)
	}

	if _, err := db.Conn(ctx, r.db).ExecContext(ctx, sb.String(), args...); err != nil {
		logger.FromCtx(ctx).Error("failed to save payments",
			zap.String("layer", "repository"),
			zap.String("method", "SavePayments"),
			zap.Int64("order_id", orderID),
			zap.Int("count", len(payments)),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (r *repository) GetPaymentsByOrders(ctx context.Context, orderIDs []int64) (map[int64][]Payment, error) {
	out := make(map[int64][]Payment)
	if len(orderIDs) == 0 {
		return out, nil
	}

	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, `
		SELECT id, order_id, amount, method, created_at
		FROM order_payments
		WHERE order_id = ANY($1)
		ORDER BY order_id, id
	`, pq.Array(orderIDs))
	if err != nil {
		logger.FromCtx(ctx).Error("failed to load payments",
			zap.String("layer", "repository"),
			zap.String("method", "GetPaymentsByOrders"),
			zap.Error(err),
		)
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.OrderID, &p.Amount, &p.Method, &p.CreatedAt); err != nil {
			return nil, err
		}
		out[p.OrderID] = append(out[p.OrderID], p)
	}
	return out, rows.Err()
}
