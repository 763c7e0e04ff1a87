package order

import (
	"context"
	"database/sql"
	"errors"

	"resto-be/internal/db"
	"resto-be/internal/logger"
	"resto-be/internal/table"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Repository interface {
	Create(ctx context.Context, o *Order) error
	// GetForUpdate loads an active order and locks its row when ctx carries a transaction.
	GetForUpdate(ctx context.Context, id int64) (*Order, error)
	// GetByID includes cancelled and deleted orders.
	GetByID(ctx context.Context, id int64) (*Order, error)
	UpdateHeader(ctx context.Context, o *Order) error
	InsertLineItem(ctx context.Context, item *LineItem) error
	SumActiveSubtotals(ctx context.Context, orderID int64) (decimal.Decimal, error)
	// SoftDelete reports false when the order is missing or already inactive.
	SoftDelete(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context, page Page) ([]*Order, error)
	ListActiveForTableStates(ctx context.Context, orderStates []State, tableStates []table.State) ([]*Order, error)
	LineItemsByOrders(ctx context.Context, orderIDs []int64) (map[int64][]LineItem, error)
	ListLineItems(ctx context.Context, page Page) ([]LineItem, error)
	GetLineItem(ctx context.Context, id int64) (*LineItem, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const orderColumns = `o.id, o.date, o.state, o.number_customers, o.comment, o.total, o.tip,
	o.is_active, o.table_id, o.till_period_id, o.closed_at, o.created_at, o.updated_at`

const tableColumns = `t.name, t.state, r.id, r.name`

const lineItemColumns = `d.id, d.order_id, d.product_id, d.product_name, d.quantity, d.unitary_price,
	d.toppings_extra_cost, d.subtotal, d.comment, d.command_number, d.is_active, d.created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner, withTable bool) (*Order, error) {
	var o Order
	dest := []any{
		&o.ID, &o.Date, &o.State, &o.NumberCustomers, &o.Comment, &o.Total, &o.Tip,
		&o.IsActive, &o.TableID, &o.TillPeriodID, &o.ClosedAt, &o.CreatedAt, &o.UpdatedAt,
	}

	var tName, tState, rName sql.NullString
	var rID sql.NullInt64
	if withTable {
		dest = append(dest, &tName, &tState, &rID, &rName)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	if withTable && o.TableID != nil && tName.Valid {
		o.Table = &table.Table{
			ID:       *o.TableID,
			Name:     tName.String,
			State:    table.State(tState.String),
			RoomID:   rID.Int64,
			RoomName: rName.String,
		}
	}
	return &o, nil
}

func scanLineItem(row scanner) (LineItem, error) {
	var it LineItem
	err := row.Scan(
		&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitaryPrice,
		&it.ToppingsExtraCost, &it.Subtotal, &it.Comment, &it.CommandNumber, &it.IsActive, &it.CreatedAt,
	)
	return it, err
}

func (r *repository) Create(ctx context.Context, o *Order) error {
	err := db.Conn(ctx, r.db).QueryRowContext(ctx, `
		INSERT INTO orders (date, state, number_customers, comment, total, tip, is_active, table_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`,
		o.Date, o.State, o.NumberCustomers, o.Comment,
		o.Total.Round(2), o.Tip.Round(2), o.IsActive, o.TableID,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to create order",
			zap.String("layer", "repository"),
			zap.String("method", "Create"),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (r *repository) GetForUpdate(ctx context.Context, id int64) (*Order, error) {
	const op = "order.GetForUpdate"

	query := `SELECT ` + orderColumns + ` FROM orders o WHERE o.id = $1 AND o.is_active`
	if db.InTx(ctx) {
		query += " FOR UPDATE"
	}

	o, err := scanOrder(db.Conn(ctx, r.db).QueryRowContext(ctx, query, id), false)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errOrderNotFound(op, id)
	}
	if err != nil {
		logger.FromCtx(ctx).Error("failed to load order",
			zap.String("layer", "repository"),
			zap.String("method", "GetForUpdate"),
			zap.Int64("order_id", id),
			zap.Error(err),
		)
		return nil, err
	}
	return o, nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Order, error) {
	const op = "order.GetByID"

	row := db.Conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT `+orderColumns+`, `+tableColumns+`
		FROM orders o
		LEFT JOIN tables t ON t.id = o.table_id
		LEFT JOIN rooms r ON r.id = t.room_id
		WHERE o.id = $1
	`, id)

	o, err := scanOrder(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errOrderNotFound(op, id)
	}
	if err != nil {
		logger.FromCtx(ctx).Error("failed to load order",
			zap.String("layer", "repository"),
			zap.String("method", "GetByID"),
			zap.Int64("order_id", id),
			zap.Error(err),
		)
		return nil, err
	}
	return o, nil
}

func (r *repository) UpdateHeader(ctx context.Context, o *Order) error {
	const op = "order.UpdateHeader"

	res, err := db.Conn(ctx, r.db).ExecContext(ctx, `
		UPDATE orders
		SET state = $1,
			table_id = $2,
			number_customers = $3,
			comment = $4,
			total = $5,
			tip = $6,
			till_period_id = $7,
			closed_at = $8,
			is_active = $9,
			updated_at = NOW()
		WHERE id = $10
	`,
		o.State, o.TableID, o.NumberCustomers, o.Comment,
		o.Total.Round(2), o.Tip.Round(2), o.TillPeriodID, o.ClosedAt, o.IsActive,
		o.ID,
	)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to update order",
			zap.String("layer", "repository"),
			zap.String("method", "UpdateHeader"),
			zap.Int64("order_id", o.ID),
			zap.Error(err),
		)
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errOrderNotFound(op, o.ID)
	}
	return nil
}

// InsertLineItem writes the item, its toppings and its promotion selections, and
// fills in the generated ids.
func (r *repository) InsertLineItem(ctx context.Context, item *LineItem) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "InsertLineItem"),
		zap.Int64("order_id", item.OrderID),
		zap.Int64("product_id", item.ProductID),
	)
	conn := db.Conn(ctx, r.db)

	err := conn.QueryRowContext(ctx, `
		INSERT INTO order_details (
			order_id, product_id, product_name, quantity, unitary_price,
			toppings_extra_cost, subtotal, comment, command_number, is_active
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`,
		item.OrderID, item.ProductID, item.ProductName, item.Quantity, item.UnitaryPrice.Round(2),
		item.ToppingsExtraCost.Round(2), item.Subtotal.Round(2), item.Comment, item.CommandNumber, item.IsActive,
	).Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		log.Error("failed to insert line item", zap.Error(err))
		return err
	}

	for i := range item.Toppings {
		item.Toppings[i].LineItemID = item.ID
		if err := insertTopping(ctx, conn, &item.Toppings[i]); err != nil {
			log.Error("failed to insert topping", zap.Error(err))
			return err
		}
	}

	for i := range item.Selections {
		sel := &item.Selections[i]
		sel.LineItemID = item.ID

		err := conn.QueryRowContext(ctx, `
			INSERT INTO order_detail_promotion_selections (
				order_detail_id, slot_id, slot_name, selected_product_id, product_name, extra_cost_applied
			)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, sel.LineItemID, sel.SlotID, sel.SlotName, sel.SelectedProductID, sel.ProductName, sel.ExtraCostApplied.Round(2),
		).Scan(&sel.ID)
		if err != nil {
			log.Error("failed to insert promotion selection", zap.Error(err))
			return err
		}

		for j := range sel.Toppings {
			sel.Toppings[j].LineItemID = item.ID
			sel.Toppings[j].SelectionID = &sel.ID
			if err := insertTopping(ctx, conn, &sel.Toppings[j]); err != nil {
				log.Error("failed to insert selection topping", zap.Error(err))
				return err
			}
		}
	}

	return nil
}

func insertTopping(ctx context.Context, conn db.Executor, t *LineItemTopping) error {
	return conn.QueryRowContext(ctx, `
		INSERT INTO order_detail_toppings (
			order_detail_id, promotion_selection_id, unit_index, topping_id, topping_name, unit_of_measure, extra_cost
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, t.LineItemID, t.SelectionID, t.UnitIndex, t.ToppingID, t.ToppingName, t.UnitOfMeasure, t.ExtraCost.Round(2),
	).Scan(&t.ID)
}

func (r *repository) SumActiveSubtotals(ctx context.Context, orderID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := db.Conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT COALESCE(SUM(subtotal), 0)
		FROM order_details
		WHERE order_id = $1 AND is_active
	`, orderID).Scan(&total)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to sum subtotals",
			zap.String("layer", "repository"),
			zap.String("method", "SumActiveSubtotals"),
			zap.Int64("order_id", orderID),
			zap.Error(err),
		)
		return decimal.Zero, err
	}
	return total, nil
}

func (r *repository) SoftDelete(ctx context.Context, id int64) (bool, error) {
	res, err := db.Conn(ctx, r.db).ExecContext(ctx, `
		UPDATE orders
		SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND is_active
	`, id)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to delete order",
			zap.String("layer", "repository"),
			zap.String("method", "SoftDelete"),
			zap.Int64("order_id", id),
			zap.Error(err),
		)
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *repository) List(ctx context.Context, page Page) ([]*Order, error) {
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, `
		SELECT `+orderColumns+`, `+tableColumns+`
		FROM orders o
		LEFT JOIN tables t ON t.id = o.table_id
		LEFT JOIN rooms r ON r.id = t.room_id
		WHERE o.is_active
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT $1 OFFSET $2
	`, page.Limit, page.offset())
	if err != nil {
		logger.FromCtx(ctx).Error("failed to list orders",
			zap.String("layer", "repository"),
			zap.String("method", "List"),
			zap.Error(err),
		)
		return nil, err
	}
	return collectOrders(rows)
}

func (r *repository) ListActiveForTableStates(ctx context.Context, orderStates []State, tableStates []table.State) ([]*Order, error) {
	ostates := make([]string, len(orderStates))
	for i, s := range orderStates {
		ostates[i] = string(s)
	}
	ts := make([]string, len(tableStates))
	for i, s := range tableStates {
		ts[i] = string(s)
	}

	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, `
		SELECT `+orderColumns+`, `+tableColumns+`
		FROM orders o
		JOIN tables t ON t.id = o.table_id
		JOIN rooms r ON r.id = t.room_id
		WHERE o.is_active AND o.state = ANY($1) AND t.state = ANY($2)
		ORDER BY o.created_at, o.id
	`, pq.Array(ostates), pq.Array(ts))
	if err != nil {
		logger.FromCtx(ctx).Error("failed to list active orders",
			zap.String("layer", "repository"),
			zap.String("method", "ListActiveForTableStates"),
			zap.Error(err),
		)
		return nil, err
	}
	return collectOrders(rows)
}

func collectOrders(rows *sql.Rows) ([]*Order, error) {
	defer rows.Close()

	var out []*Order
	for rows.Next() {
		o, err := scanOrder(rows, true)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *repository) LineItemsByOrders(ctx context.Context, orderIDs []int64) (map[int64][]LineItem, error) {
	out := make(map[int64][]LineItem)
	if len(orderIDs) == 0 {
		return out, nil
	}

	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, `
		SELECT `+lineItemColumns+`
		FROM order_details d
		WHERE d.order_id = ANY($1)
		ORDER BY d.order_id, d.id
	`, pq.Array(orderIDs))
	if err != nil {
		logger.FromCtx(ctx).Error("failed to load line items",
			zap.String("layer", "repository"),
			zap.String("method", "LineItemsByOrders"),
			zap.Error(err),
		)
		return nil, err
	}

	items, err := collectLineItems(rows)
	if err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, items); err != nil {
		return nil, err
	}

	for _, it := range items {
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out, nil
}

func (r *repository) ListLineItems(ctx context.Context, page Page) ([]LineItem, error) {
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, `
		SELECT `+lineItemColumns+`
		FROM order_details d
		ORDER BY d.created_at DESC, d.id DESC
		LIMIT $1 OFFSET $2
	`, page.Limit, page.offset())
	if err != nil {
		logger.FromCtx(ctx).Error("failed to list line items",
			zap.String("layer", "repository"),
			zap.String("method", "ListLineItems"),
			zap.Error(err),
		)
		return nil, err
	}

	items, err := collectLineItems(rows)
	if err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) GetLineItem(ctx context.Context, id int64) (*LineItem, error) {
	row := db.Conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT `+lineItemColumns+`
		FROM order_details d
		WHERE d.id = $1
	`, id)

	it, err := scanLineItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errLineItemNotFound("order.GetLineItem", id)
	}
	if err != nil {
		logger.FromCtx(ctx).Error("failed to load line item",
			zap.String("layer", "repository"),
			zap.String("method", "GetLineItem"),
			zap.Int64("line_item_id", id),
			zap.Error(err),
		)
		return nil, err
	}

	items := []LineItem{it}
	if err := r.loadChildren(ctx, items); err != nil {
		return nil, err
	}
	return &items[0], nil
}

func collectLineItems(rows *sql.Rows) ([]LineItem, error) {
	defer rows.Close()

	var items []LineItem
	for rows.Next() {
		it, err := scanLineItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// loadChildren attaches toppings and promotion selections to items in two queries.
func (r *repository) loadChildren(ctx context.Context, items []LineItem) error {
	if len(items) == 0 {
		return nil
	}

	ids := make([]int64, len(items))
	index := make(map[int64]int, len(items))
	for i, it := range items {
		ids[i] = it.ID
		index[it.ID] = i
	}

	conn := db.Conn(ctx, r.db)

	selRows, err := conn.QueryContext(ctx, `
		SELECT id, order_detail_id, slot_id, slot_name, selected_product_id, product_name, extra_cost_applied
		FROM order_detail_promotion_selections
		WHERE order_detail_id = ANY($1)
		ORDER BY order_detail_id, id
	`, pq.Array(ids))
	if err != nil {
		return err
	}

	type selRef struct{ item, sel int }
	selections := make(map[int64]selRef)
	for selRows.Next() {
		var s PromotionSelection
		if err := selRows.Scan(&s.ID, &s.LineItemID, &s.SlotID, &s.SlotName, &s.SelectedProductID, &s.ProductName, &s.ExtraCostApplied); err != nil {
			selRows.Close()
			return err
		}
		i := index[s.LineItemID]
		items[i].Selections = append(items[i].Selections, s)
		selections[s.ID] = selRef{item: i, sel: len(items[i].Selections) - 1}
	}
	selRows.Close()
	if err := selRows.Err(); err != nil {
		return err
	}

	topRows, err := conn.QueryContext(ctx, `
		SELECT id, order_detail_id, promotion_selection_id, unit_index, topping_id, topping_name, unit_of_measure, extra_cost
		FROM order_detail_toppings
		WHERE order_detail_id = ANY($1)
		ORDER BY order_detail_id, promotion_selection_id NULLS FIRST, unit_index, id
	`, pq.Array(ids))
	if err != nil {
		return err
	}
	defer topRows.Close()

	for topRows.Next() {
		var t LineItemTopping
		if err := topRows.Scan(&t.ID, &t.LineItemID, &t.SelectionID, &t.UnitIndex, &t.ToppingID, &t.ToppingName, &t.UnitOfMeasure, &t.ExtraCost); err != nil {
			return err
		}
		if t.SelectionID != nil {
			if ref, ok := selections[*t.SelectionID]; ok {
				items[ref.item].Selections[ref.sel].Toppings = append(items[ref.item].Selections[ref.sel].Toppings, t)
				continue
			}
		}
		i := index[t.LineItemID]
		items[i].Toppings = append(items[i].Toppings, t)
	}
	return topRows.Err()
}
