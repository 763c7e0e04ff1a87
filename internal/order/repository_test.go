package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"resto-be/internal/apperr"
	"resto-be/internal/db"
	"resto-be/internal/table"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderCols = []string{
	"id", "date", "state", "number_customers", "comment", "total", "tip",
	"is_active", "table_id", "till_period_id", "closed_at", "created_at", "updated_at",
}

var orderWithTableCols = append(append([]string(nil), orderCols...), "table_name", "table_state", "room_id", "room_name")

var lineItemCols = []string{
	"id", "order_id", "product_id", "product_name", "quantity", "unitary_price",
	"toppings_extra_cost", "subtotal", "comment", "command_number", "is_active", "created_at",
}

func TestRepository_Create(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	repo := NewRepository(conn)
	now := time.Now()
	tableID := int64(4)
	o := &Order{Date: now, State: StateOpen, NumberCustomers: 2, Total: dec("0"), Tip: dec("0"), IsActive: true, TableID: &tableID}

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO orders \(date, state, number_customers, comment, total, tip, is_active, table_id\)`).
			WithArgs(now, "OPEN", 2, "", dec("0"), dec("0"), true, int64(4)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(21, now, now))

		require.NoError(t, repo.Create(context.Background(), o))
		assert.Equal(t, int64(21), o.ID)
	})

	t.Run("DBError", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO orders`).WillReturnError(errors.New("db error"))
		assert.Error(t, repo.Create(context.Background(), o))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetForUpdate(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	repo := NewRepository(conn)
	now := time.Now()

	t.Run("OutsideTxDoesNotLock", func(t *testing.T) {
		mock.ExpectQuery(`FROM orders o WHERE o.id = \$1 AND o.is_active$`).
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows(orderCols).
				AddRow(7, now, "OPEN", 2, "", "120.50", "0", true, 4, nil, nil, now, now))

		o, err := repo.GetForUpdate(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, StateOpen, o.State)
		assert.True(t, dec("120.5").Equal(o.Total))
		require.NotNil(t, o.TableID)
		assert.Equal(t, int64(4), *o.TableID)
		assert.Nil(t, o.TillPeriodID)
		assert.Nil(t, o.ClosedAt)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(`FROM orders o WHERE o.id = \$1 AND o.is_active`).
			WithArgs(int64(8)).
			WillReturnRows(sqlmock.NewRows(orderCols))

		_, err := repo.GetForUpdate(context.Background(), 8)
		assert.True(t, errors.Is(err, apperr.ErrNotFound))
	})

	t.Run("LocksInTx", func(t *testing.T) {
		tm := db.NewTxManager(conn, 1)

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM orders o WHERE o.id = \$1 AND o.is_active FOR UPDATE$`).
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows(orderCols).
				AddRow(7, now, "PENDING_PAYMENT", 2, "", "120.50", "0", true, 4, nil, nil, now, now))
		mock.ExpectCommit()

		err := tm.WithinTx(context.Background(), func(ctx context.Context) error {
			o, err := repo.GetForUpdate(ctx, 7)
			if err != nil {
				return err
			}
			assert.Equal(t, StatePendingPayment, o.State)
			return nil
		})
		require.NoError(t, err)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetByID(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	repo := NewRepository(conn)
	now := time.Now()

	t.Run("WithTable", func(t *testing.T) {
		mock.ExpectQuery(`FROM orders o LEFT JOIN tables t ON t.id = o.table_id LEFT JOIN rooms r ON r.id = t.room_id WHERE o.id = \$1`).
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows(orderWithTableCols).
				AddRow(7, now, "OPEN", 2, "window", "0", "0", true, 4, nil, nil, now, now, "T4", "OPEN", 1, "Terrace"))

		o, err := repo.GetByID(context.Background(), 7)
		require.NoError(t, err)
		require.NotNil(t, o.Table)
		assert.Equal(t, "T4", o.Table.Name)
		assert.Equal(t, table.StateOpen, o.Table.State)
		assert.Equal(t, "window", o.Comment)
	})

	t.Run("CancelledWithoutTable", func(t *testing.T) {
		mock.ExpectQuery(`FROM orders o LEFT JOIN tables t`).
			WithArgs(int64(8)).
			WillReturnRows(sqlmock.NewRows(orderWithTableCols).
				AddRow(8, now, "CANCELLED", 2, "", "300", "0", false, nil, nil, nil, now, now, nil, nil, nil, nil))

		o, err := repo.GetByID(context.Background(), 8)
		require.NoError(t, err)
		assert.False(t, o.IsActive)
		assert.Nil(t, o.TableID)
		assert.Nil(t, o.Table)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(`FROM orders o LEFT JOIN tables t`).
			WithArgs(int64(9)).
			WillReturnRows(sqlmock.NewRows(orderWithTableCols))

		_, err := repo.GetByID(context.Background(), 9)
		assert.True(t, errors.Is(err, apperr.ErrNotFound))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpdateHeader(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	repo := NewRepository(conn)
	closedAt := time.Now()
	till := int64(3)
	o := &Order{ID: 7, State: StateClosed, NumberCustomers: 2, Total: dec("850"), Tip: dec("150"), TillPeriodID: &till, ClosedAt: &closedAt, IsActive: true}

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(`UPDATE orders SET state = \$1, table_id = \$2, .* WHERE id = \$10`).
			WithArgs("CLOSED", nil, 2, "", dec("850"), dec("150"), int64(3), closedAt, true, int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.UpdateHeader(context.Background(), o))
	})

	t.Run("Missing", func(t *testing.T) {
		mock.ExpectExec(`UPDATE orders SET state`).WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateHeader(context.Background(), o)
		assert.True(t, errors.Is(err, apperr.ErrNotFound))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_InsertLineItem(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	repo := NewRepository(conn)
	now := time.Now()

	item := &LineItem{
		OrderID: 7, ProductID: 50, ProductName: "Combo", Quantity: 1,
		UnitaryPrice: dec("2880"), ToppingsExtraCost: dec("380"), Subtotal: dec("2880"),
		CommandNumber: "20260310-0001", IsActive: true,
		Toppings: []LineItemTopping{{UnitIndex: 0, ToppingID: 8, ToppingName: "Ketchup", UnitOfMeasure: "ml", ExtraCost: dec("0")}},
		Selections: []PromotionSelection{{
			SlotID: 2, SlotName: "Sides", SelectedProductID: 11, ProductName: "Fries", ExtraCostApplied: dec("50"),
			Toppings: []LineItemTopping{{UnitIndex: 0, ToppingID: 7, ToppingName: "Cheddar", UnitOfMeasure: "g", ExtraCost: dec("80")}},
		}},
	}

	mock.ExpectQuery(`INSERT INTO order_details`).
		WithArgs(int64(7), int64(50), "Combo", 1, dec("2880"), dec("380"), dec("2880"), "", "20260310-0001", true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(100, now))
	mock.ExpectQuery(`INSERT INTO order_detail_toppings`).
		WithArgs(int64(100), nil, 0, int64(8), "Ketchup", "ml", dec("0")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(500))
	mock.ExpectQuery(`INSERT INTO order_detail_promotion_selections`).
		WithArgs(int64(100), int64(2), "Sides", int64(11), "Fries", dec("50")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(900))
	mock.ExpectQuery(`INSERT INTO order_detail_toppings`).
		WithArgs(int64(100), int64(900), 0, int64(7), "Cheddar", "g", dec("80")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(501))

	require.NoError(t, repo.InsertLineItem(context.Background(), item))

	assert.Equal(t, int64(100), item.ID)
	assert.Equal(t, int64(100), item.Toppings[0].LineItemID)
	assert.Equal(t, int64(900), item.Selections[0].ID)
	require.NotNil(t, item.Selections[0].Toppings[0].SelectionID)
	assert.Equal(t, int64(900), *item.Selections[0].Toppings[0].SelectionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_InsertLineItem_ToppingFailure(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	repo := NewRepository(conn)
	item := &LineItem{OrderID: 7, ProductID: 1, Quantity: 1, Toppings: []LineItemTopping{{ToppingID: 8}}}

	mock.ExpectQuery(`INSERT INTO order_details`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(100, time.Now()))
	mock.ExpectQuery(`INSERT INTO order_detail_toppings`).
		WillReturnError(errors.New("fk violation"))

	assert.Error(t, repo.InsertLineItem(context.Background(), item))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_SumActiveSubtotals(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	repo := NewRepository(conn)

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(subtotal\), 0\) FROM order_details WHERE order_id = \$1 AND is_active`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow("850.00"))

	total, err := repo.SumActiveSubtotals(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, dec("850").Equal(total))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_SoftDelete(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	repo := NewRepository(conn)
	query := `UPDATE orders SET is_active = FALSE, updated_at = NOW\(\) WHERE id = \$1 AND is_active`

	mock.ExpectExec(query).WithArgs(int64(7)).WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err := repo.SoftDelete(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectExec(query).WithArgs(int64(7)).WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err = repo.SoftDelete(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_List(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	repo := NewRepository(conn)
	now := time.Now()

	mock.ExpectQuery(`WHERE o.is_active ORDER BY o.created_at DESC, o.id DESC LIMIT \$1 OFFSET \$2`).
		WithArgs(20, 40).
		WillReturnRows(sqlmock.NewRows(orderWithTableCols).
			AddRow(7, now, "OPEN", 2, "", "0", "0", true, 4, nil, nil, now, now, "T4", "OPEN", 1, "Terrace").
			AddRow(6, now, "CLOSED", 4, "", "90", "10", true, nil, 3, now, now, now, nil, nil, nil, nil))

	orders, err := repo.List(context.Background(), Page{Page: 3, Limit: 20})
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.NotNil(t, orders[0].Table)
	assert.Nil(t, orders[1].Table)
	require.NotNil(t, orders[1].TillPeriodID)
	assert.Equal(t, int64(3), *orders[1].TillPeriodID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListActiveForTableStates(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	repo := NewRepository(conn)

	mock.ExpectQuery(`WHERE o.is_active AND o.state = ANY\(\$1\) AND t.state = ANY\(\$2\)`).
		WithArgs(pq.Array([]string{"OPEN", "PENDING_PAYMENT"}), pq.Array([]string{"OPEN", "PENDING_PAYMENT"})).
		WillReturnRows(sqlmock.NewRows(orderWithTableCols))

	orders, err := repo.ListActiveForTableStates(context.Background(),
		[]State{StateOpen, StatePendingPayment},
		[]table.State{table.StateOpen, table.StatePendingPayment},
	)
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_LineItemsByOrders(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	repo := NewRepository(conn)
	now := time.Now()

	mock.ExpectQuery(`FROM order_details d WHERE d.order_id = ANY\(\$1\)`).
		WithArgs(pq.Array([]int64{7, 8})).
		WillReturnRows(sqlmock.NewRows(lineItemCols).
			AddRow(100, 7, 10, "Burger", 2, "1150.00", "300.00", "2300.00", "", "20260310-0001", true, now).
			AddRow(101, 8, 50, "Combo", 1, "2880.00", "380.00", "2880.00", "", "20260310-0002", true, now))
	mock.ExpectQuery(`FROM order_detail_promotion_selections WHERE order_detail_id = ANY\(\$1\)`).
		WithArgs(pq.Array([]int64{100, 101})).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_detail_id", "slot_id", "slot_name", "selected_product_id", "product_name", "extra_cost_applied"}).
			AddRow(900, 101, 2, "Sides", 11, "Fries", "50.00"))
	mock.ExpectQuery(`FROM order_detail_toppings WHERE order_detail_id = ANY\(\$1\)`).
		WithArgs(pq.Array([]int64{100, 101})).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_detail_id", "promotion_selection_id", "unit_index", "topping_id", "topping_name", "unit_of_measure", "extra_cost"}).
			AddRow(500, 100, nil, 0, 7, "Cheddar", "g", "150.00").
			AddRow(501, 100, nil, 1, 7, "Cheddar", "g", "150.00").
			AddRow(502, 101, 900, 0, 7, "Cheddar", "g", "80.00"))

	got, err := repo.LineItemsByOrders(context.Background(), []int64{7, 8})
	require.NoError(t, err)

	require.Len(t, got[7], 1)
	assert.Len(t, got[7][0].Toppings, 2)
	assert.Equal(t, 1, got[7][0].Toppings[1].UnitIndex)

	require.Len(t, got[8], 1)
	assert.Empty(t, got[8][0].Toppings)
	require.Len(t, got[8][0].Selections, 1)
	require.Len(t, got[8][0].Selections[0].Toppings, 1)
	assert.True(t, dec("80").Equal(got[8][0].Selections[0].Toppings[0].ExtraCost))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListLineItems(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	repo := NewRepository(conn)

	mock.ExpectQuery(`FROM order_details d ORDER BY d.created_at DESC, d.id DESC LIMIT \$1 OFFSET \$2`).
		WithArgs(10, 0).
		WillReturnRows(sqlmock.NewRows(lineItemCols))

	items, err := repo.ListLineItems(context.Background(), Page{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetLineItem(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	repo := NewRepository(conn)
	now := time.Now()

	t.Run("Found", func(t *testing.T) {
		mock.ExpectQuery(`FROM order_details d WHERE d.id = \$1`).
			WithArgs(int64(100)).
			WillReturnRows(sqlmock.NewRows(lineItemCols).
				AddRow(100, 7, 10, "Burger", 1, "1000.00", "0", "1000.00", "no onion", "20260310-0001", true, now))
		mock.ExpectQuery(`FROM order_detail_promotion_selections`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "order_detail_id", "slot_id", "slot_name", "selected_product_id", "product_name", "extra_cost_applied"}))
		mock.ExpectQuery(`FROM order_detail_toppings`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "order_detail_id", "promotion_selection_id", "unit_index", "topping_id", "topping_name", "unit_of_measure", "extra_cost"}))

		it, err := repo.GetLineItem(context.Background(), 100)
		require.NoError(t, err)
		assert.Equal(t, "no onion", it.Comment)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(`FROM order_details d WHERE d.id = \$1`).
			WithArgs(int64(101)).
			WillReturnRows(sqlmock.NewRows(lineItemCols))

		_, err := repo.GetLineItem(context.Background(), 101)
		assert.True(t, errors.Is(err, apperr.ErrNotFound))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
