package order

import (
	"context"
	"fmt"
	"sort"
	"time"

	"resto-be/internal/apperr"
	"resto-be/internal/db"
	"resto-be/internal/events"
	"resto-be/internal/logger"
	"resto-be/internal/metrics"
	"resto-be/internal/payment"
	"resto-be/internal/pricing"
	"resto-be/internal/printer"
	"resto-be/internal/product"
	"resto-be/internal/table"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Service interface {
	OpenOrder(ctx context.Context, in OpenInput) (*Order, error)
	UpdateOrder(ctx context.Context, id int64, in UpdateInput) (*Order, error)
	MarkOrderAsPendingPayment(ctx context.Context, id int64) (*PendingResult, error)
	CloseOrder(ctx context.Context, id int64, in CloseInput) (*Order, error)
	CancelOrder(ctx context.Context, id int64) (*Order, error)
	TransferOrder(ctx context.Context, id int64, in TransferInput) (*Order, error)
	DeleteOrder(ctx context.Context, id int64) error

	GetOrderByID(ctx context.Context, id int64) (*Order, error)
	GetAllOrders(ctx context.Context, page Page) ([]*Order, error)
	GetOrderDetails(ctx context.Context, page Page) ([]LineItem, error)
	GetOrdersForOpenOrPendingTables(ctx context.Context) ([]*Order, error)
	OrderDetailsByID(ctx context.Context, id int64) (*LineItem, error)
}

// Deps are the collaborators of the order engine.
type Deps struct {
	Repo     Repository
	Tx       db.Transactor
	Catalog  Catalog
	Tables   TableService
	Till     TillService
	Stock    StockService
	Payments payment.Repository
	Commands CommandSequence
	Printer  printer.Printer
	Bus      events.Bus
	Metrics  *metrics.Registry
	Location *time.Location
}

type service struct {
	Deps
	now func() time.Time
}

func NewService(d Deps) Service {
	if d.Metrics == nil {
		d.Metrics = metrics.NewRegistry()
	}
	if d.Location == nil {
		d.Location = time.Local
	}
	return &service{Deps: d, now: time.Now}
}

func (s *service) OpenOrder(ctx context.Context, in OpenInput) (*Order, error) {
	const op = "order.OpenOrder"
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "OpenOrder"),
		zap.Int64("table_id", in.TableID),
	)

	if in.TableID <= 0 {
		return nil, errInvalidID(op, "tableId", in.TableID)
	}
	if in.NumberCustomers < 1 {
		return nil, apperr.BadInput(op, "numberCustomers must be at least 1, got %d", in.NumberCustomers)
	}

	var created *Order
	err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		tbl, err := s.Tables.GetByID(ctx, in.TableID)
		if err != nil {
			return err
		}
		if tbl.State != table.StateAvailable {
			return apperr.Conflict(op, "table %d is %s, not AVAILABLE", tbl.ID, tbl.State)
		}

		if err := s.Tables.UpdateState(ctx, tbl.ID, table.StateOpen); err != nil {
			return err
		}
		tbl.State = table.StateOpen

		now := s.now()
		o := &Order{
			Date:            businessDay(now, s.Location),
			State:           StateOpen,
			NumberCustomers: in.NumberCustomers,
			Comment:         in.Comment,
			Total:           decimal.Zero,
			Tip:             decimal.Zero,
			IsActive:        true,
			TableID:         &tbl.ID,
		}
		if err := s.Repo.Create(ctx, o); err != nil {
			return err
		}
		o.Table = tbl
		created = o

		db.AfterCommit(ctx, func(ctx context.Context) {
			s.Metrics.OrdersOpened.Inc()
			s.publish(ctx, events.OrderCreated, AdaptResponse(o))
		})
		return nil
	})
	if err != nil {
		return nil, s.fail(log, op, err)
	}

	log.Info("order opened", zap.Int64("order_id", created.ID))
	return created, nil
}

func (s *service) UpdateOrder(ctx context.Context, id int64, in UpdateInput) (*Order, error) {
	const op = "order.UpdateOrder"
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "UpdateOrder"),
		zap.Int64("order_id", id),
		zap.Int("products", len(in.ProductsDetails)),
	)

	if id <= 0 {
		return nil, errInvalidID(op, "orderId", id)
	}
	if in.State != nil && *in.State != StateOpen {
		return nil, apperr.Conflict(op, "order state can only be set to OPEN, got %s", *in.State)
	}
	if in.NumberCustomers != nil && *in.NumberCustomers < 1 {
		return nil, apperr.BadInput(op, "numberCustomers must be at least 1, got %d", *in.NumberCustomers)
	}
	if in.TableID != nil && *in.TableID <= 0 {
		return nil, errInvalidID(op, "tableId", *in.TableID)
	}

	timer := metrics.StartTimer()

	// One command number per call, drawn before the transaction so retries reuse it.
	var commandNumber string
	if len(in.ProductsDetails) > 0 {
		n, err := s.Commands.Next(ctx)
		if err != nil {
			return nil, s.fail(log, op, err)
		}
		commandNumber = n
	}

	var (
		updated *Order
		added   []LineItem
	)
	err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		added = added[:0]

		o, err := s.Repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		var tableEvents []tableChange
		switch o.State {
		case StateOpen:
		case StatePendingPayment:
			if in.State == nil {
				return apperr.Conflict(op, "order %d is PENDING_PAYMENT; reopen it before changing it", id)
			}
			o.State = StateOpen
			if o.TableID != nil {
				if err := s.Tables.UpdateState(ctx, *o.TableID, table.StateOpen); err != nil {
					return err
				}
				tableEvents = append(tableEvents, tableChange{ID: *o.TableID, State: table.StateOpen})
			}
		case StateClosed:
			return errOrderClosed(op, id)
		default:
			return apperr.Conflict(op, "order %d is %s", id, o.State)
		}

		if in.TableID != nil && (o.TableID == nil || *o.TableID != *in.TableID) {
			changes, err := s.reassignTable(ctx, op, o, *in.TableID)
			if err != nil {
				return err
			}
			tableEvents = append(tableEvents, changes...)
		}
		if in.NumberCustomers != nil {
			o.NumberCustomers = *in.NumberCustomers
		}
		if in.Comment != nil {
			o.Comment = *in.Comment
		}

		if len(in.ProductsDetails) > 0 {
			items, err := s.addLineItems(ctx, o.ID, in.ProductsDetails, commandNumber)
			if err != nil {
				return err
			}
			added = items

			total, err := s.Repo.SumActiveSubtotals(ctx, o.ID)
			if err != nil {
				return err
			}
			o.Total = total
		}

		if err := s.Repo.UpdateHeader(ctx, o); err != nil {
			return err
		}

		full, err := s.loadGraph(ctx, o.ID)
		if err != nil {
			return err
		}
		updated = full

		db.AfterCommit(ctx, func(ctx context.Context) {
			s.Metrics.OrdersUpdated.Inc()
			s.Metrics.LineItemsAdded.Add(uint64(len(added)))
			if len(added) > 0 {
				s.printKitchen(ctx, full, added, commandNumber)
			}
			s.publish(ctx, events.OrderUpdated, AdaptResponse(full))
			for _, c := range tableEvents {
				s.publish(ctx, events.TableUpdated, c)
			}
		})
		return nil
	})
	if err != nil {
		return nil, s.fail(log, op, err)
	}

	log.Info("order updated",
		zap.Int("line_items_added", len(added)),
		zap.String("command_number", commandNumber),
		zap.Duration("elapsed", timer.Duration()),
	)
	return updated, nil
}

// addLineItems prices, deducts stock for and persists each detail in caller order.
func (s *service) addLineItems(ctx context.Context, orderID int64, details []ProductDetail, commandNumber string) ([]LineItem, error) {
	reqs := make([]pricing.LineRequest, len(details))
	for i, d := range details {
		reqs[i] = d.lineRequest()
	}

	productIDs, toppingIDs := pricing.RequiredIDs(reqs)
	menu, err := s.Catalog.LoadMenu(ctx, productIDs, toppingIDs)
	if err != nil {
		return nil, err
	}
	ctx = product.WithMenu(ctx, menu)

	items := make([]LineItem, 0, len(details))
	for i, d := range details {
		quote, err := pricing.Price(menu, reqs[i])
		if err != nil {
			return nil, err
		}

		if err := s.Stock.DeductStock(ctx, reqs[i]); err != nil {
			return nil, err
		}

		item := newLineItem(orderID, quote, d.Comment, commandNumber)
		if err := s.Repo.InsertLineItem(ctx, &item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func newLineItem(orderID int64, q *pricing.Quote, comment, commandNumber string) LineItem {
	item := LineItem{
		OrderID:           orderID,
		ProductID:         q.Product.ID,
		ProductName:       q.Product.Name,
		Quantity:          q.Quantity,
		UnitaryPrice:      q.DisplayUnitaryPrice(),
		ToppingsExtraCost: q.ExtraCost,
		Subtotal:          q.Subtotal,
		Comment:           comment,
		CommandNumber:     commandNumber,
		IsActive:          true,
	}

	item.Toppings = toLineToppings(q.Toppings)
	for _, sel := range q.Selections {
		item.Selections = append(item.Selections, PromotionSelection{
			SlotID:            sel.SlotID,
			SlotName:          sel.SlotName,
			SelectedProductID: sel.ProductID,
			ProductName:       sel.ProductName,
			ExtraCostApplied:  sel.ExtraCostApplied,
			Toppings:          toLineToppings(sel.Toppings),
		})
	}
	return item
}

func toLineToppings(applied []pricing.AppliedTopping) []LineItemTopping {
	if len(applied) == 0 {
		return nil
	}
	out := make([]LineItemTopping, len(applied))
	for i, t := range applied {
		out[i] = LineItemTopping{
			UnitIndex:     t.UnitIndex,
			ToppingID:     t.ToppingID,
			ToppingName:   t.Name,
			UnitOfMeasure: t.UnitOfMeasure,
			ExtraCost:     t.ExtraCost,
		}
	}
	return out
}

// reassignTable moves the order to an AVAILABLE table and frees the previous one.
func (s *service) reassignTable(ctx context.Context, op string, o *Order, tableID int64) ([]tableChange, error) {
	tbl, err := s.Tables.GetByID(ctx, tableID)
	if err != nil {
		return nil, err
	}
	if tbl.State != table.StateAvailable {
		return nil, apperr.Conflict(op, "table %d is %s, not AVAILABLE", tbl.ID, tbl.State)
	}

	var changes []tableChange
	if o.TableID != nil {
		if err := s.Tables.UpdateState(ctx, *o.TableID, table.StateAvailable); err != nil {
			return nil, err
		}
		changes = append(changes, tableChange{ID: *o.TableID, State: table.StateAvailable})
	}

	state := tableStateFor(o.State)
	if err := s.Tables.UpdateState(ctx, tbl.ID, state); err != nil {
		return nil, err
	}
	changes = append(changes, tableChange{ID: tbl.ID, State: state})

	o.TableID = &tbl.ID
	return changes, nil
}

func (s *service) MarkOrderAsPendingPayment(ctx context.Context, id int64) (*PendingResult, error) {
	const op = "order.MarkOrderAsPendingPayment"
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "MarkOrderAsPendingPayment"),
		zap.Int64("order_id", id),
	)

	if id <= 0 {
		return nil, errInvalidID(op, "orderId", id)
	}

	result := &PendingResult{}
	err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.Repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if o.State != StateOpen {
			return errWrongState(op, id, o.State, StateOpen)
		}

		o.State = StatePendingPayment
		if err := s.Repo.UpdateHeader(ctx, o); err != nil {
			return err
		}
		if o.TableID != nil {
			if err := s.Tables.UpdateState(ctx, *o.TableID, table.StatePendingPayment); err != nil {
				return err
			}
		}

		full, err := s.loadGraph(ctx, id)
		if err != nil {
			return err
		}
		result.Order = full

		db.AfterCommit(ctx, func(ctx context.Context) {
			s.Metrics.OrdersPending.Inc()
			resp := AdaptResponse(full)

			if err := s.Printer.PrintTicketOrder(ctx, ticketFor(full, s.now())); err != nil {
				s.Metrics.PrintFailures.Inc()
				result.PrintError = err.Error()
				logger.FromCtx(ctx).Warn("ticket print failed",
					zap.Int64("order_id", full.ID),
					zap.Error(err),
				)
			} else {
				result.TicketPrinted = true
				s.publish(ctx, events.OrderTicketPrinted, resp)
			}
			s.publish(ctx, events.OrderUpdatePending, resp)
		})
		return nil
	})
	if err != nil {
		return nil, s.fail(log, op, err)
	}

	log.Info("order pending payment", zap.Bool("ticket_printed", result.TicketPrinted))
	return result, nil
}

func (s *service) CloseOrder(ctx context.Context, id int64, in CloseInput) (*Order, error) {
	const op = "order.CloseOrder"
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CloseOrder"),
		zap.Int64("order_id", id),
	)

	if id <= 0 {
		return nil, errInvalidID(op, "orderId", id)
	}
	if !in.Total.IsPositive() {
		return nil, apperr.BadInput(op, "total must be greater than 0")
	}
	if err := payment.Validate(in.Payments); err != nil {
		return nil, err
	}

	declared := in.Total.Round(pricing.MoneyScale)
	timer := metrics.StartTimer()

	var closed *Order
	err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		period, err := s.Till.GetOpenPeriodForToday(ctx)
		if err != nil {
			return err
		}
		if period == nil || !period.IsOpen() {
			return apperr.Conflict(op, "there is no open till period for today")
		}

		o, err := s.Repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if o.State != StatePendingPayment {
			return errWrongState(op, id, o.State, StatePendingPayment)
		}

		if paid := payment.Sum(in.Payments); !paid.Equal(declared) {
			return apperr.BadInput(op, "payments add up to %s but the declared total is %s",
				paid.StringFixed(2), declared.StringFixed(2))
		}

		consumed, err := s.Repo.SumActiveSubtotals(ctx, id)
		if err != nil {
			return err
		}
		tip := declared.Sub(consumed)
		if tip.IsNegative() {
			return apperr.BadInput(op, "declared total %s is below the consumed %s",
				declared.StringFixed(2), consumed.StringFixed(2))
		}

		now := s.now()
		o.Tip = tip
		o.Total = consumed
		o.State = StateClosed
		o.ClosedAt = &now
		o.TillPeriodID = &period.ID
		if err := s.Repo.UpdateHeader(ctx, o); err != nil {
			return err
		}

		if o.TableID != nil {
			if err := s.Tables.UpdateState(ctx, *o.TableID, table.StateAvailable); err != nil {
				return err
			}
		}

		if err := s.Payments.SavePayments(ctx, id, in.Payments); err != nil {
			return err
		}

		full, err := s.loadGraph(ctx, id)
		if err != nil {
			return err
		}
		closed = full

		db.AfterCommit(ctx, func(ctx context.Context) {
			s.Metrics.OrdersClosed.Inc()
			s.publish(ctx, events.OrderUpdateClose, AdaptResponse(full))
		})
		return nil
	})
	if err != nil {
		return nil, s.fail(log, op, err)
	}

	log.Info("order closed",
		zap.String("total", closed.Total.StringFixed(2)),
		zap.String("tip", closed.Tip.StringFixed(2)),
		zap.Duration("elapsed", timer.Duration()),
	)
	return closed, nil
}

func (s *service) CancelOrder(ctx context.Context, id int64) (*Order, error) {
	const op = "order.CancelOrder"
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CancelOrder"),
		zap.Int64("order_id", id),
	)

	if id <= 0 {
		return nil, errInvalidID(op, "orderId", id)
	}

	var cancelled *Order
	err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.Repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if o.State == StateClosed {
			return errOrderClosed(op, id)
		}

		previousTable := o.TableID
		o.TableID = nil
		o.State = StateCancelled
		o.IsActive = false
		if err := s.Repo.UpdateHeader(ctx, o); err != nil {
			return err
		}
		cancelled = o

		// Table repair runs after commit and outside the transaction: a failure
		// there must not undo the cancellation.
		db.AfterCommit(ctx, func(ctx context.Context) {
			s.Metrics.OrdersCancelled.Inc()
			if previousTable != nil {
				if err := s.Tables.UpdateState(ctx, *previousTable, table.StateAvailable); err != nil {
					logger.FromCtx(ctx).Error("failed to reset table after cancel",
						zap.Int64("order_id", id),
						zap.Int64("table_id", *previousTable),
						zap.Error(err),
					)
				} else {
					s.publish(ctx, events.TableUpdated, tableChange{ID: *previousTable, State: table.StateAvailable})
				}
			}
			s.publish(ctx, events.OrderDeleted, deletedPayload{OrderID: id, TableID: previousTable, State: StateCancelled})
		})
		return nil
	})
	if err != nil {
		return nil, s.fail(log, op, err)
	}

	log.Info("order cancelled")
	return cancelled, nil
}

func (s *service) TransferOrder(ctx context.Context, id int64, in TransferInput) (*Order, error) {
	const op = "order.TransferOrder"
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "TransferOrder"),
		zap.Int64("order_id", id),
		zap.Int64("from_table_id", in.FromTableID),
		zap.Int64("to_table_id", in.ToTableID),
	)

	switch {
	case id <= 0:
		return nil, errInvalidID(op, "orderId", id)
	case in.FromTableID <= 0:
		return nil, errInvalidID(op, "fromTableId", in.FromTableID)
	case in.ToTableID <= 0:
		return nil, errInvalidID(op, "toTableId", in.ToTableID)
	case in.FromTableID == in.ToTableID:
		return nil, apperr.BadInput(op, "source and destination table are the same")
	}

	var transferred *Order
	err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.Repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if o.State == StateClosed {
			return errOrderClosed(op, id)
		}

		// Lock both tables in id order.
		ids := []int64{in.FromTableID, in.ToTableID}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		tables := make(map[int64]*table.Table, 2)
		for _, tid := range ids {
			tbl, err := s.Tables.GetByID(ctx, tid)
			if err != nil {
				return err
			}
			tables[tid] = tbl
		}

		if o.TableID == nil || *o.TableID != in.FromTableID {
			return apperr.Conflict(op, "order %d is not on table %d", id, in.FromTableID)
		}
		dest := tables[in.ToTableID]
		if dest.State != table.StateAvailable {
			return apperr.Conflict(op, "table %d is %s, not AVAILABLE", dest.ID, dest.State)
		}

		o.TableID = &dest.ID
		if err := s.Repo.UpdateHeader(ctx, o); err != nil {
			return err
		}
		if err := s.Tables.UpdateState(ctx, in.FromTableID, table.StateClosed); err != nil {
			return err
		}
		if err := s.Tables.UpdateState(ctx, in.ToTableID, table.StateOpen); err != nil {
			return err
		}

		full, err := s.loadGraph(ctx, id)
		if err != nil {
			return err
		}
		transferred = full

		db.AfterCommit(ctx, func(ctx context.Context) {
			s.Metrics.OrdersTransferred.Inc()
			s.publish(ctx, events.OrderUpdated, AdaptResponse(full))
			s.publish(ctx, events.TableUpdated, tableChange{ID: in.FromTableID, State: table.StateClosed})
			s.publish(ctx, events.TableUpdated, tableChange{ID: in.ToTableID, State: table.StateOpen})
		})
		return nil
	})
	if err != nil {
		return nil, s.fail(log, op, err)
	}

	log.Info("order transferred")
	return transferred, nil
}

func (s *service) DeleteOrder(ctx context.Context, id int64) error {
	const op = "order.DeleteOrder"
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "DeleteOrder"),
		zap.Int64("order_id", id),
	)

	if id <= 0 {
		return errInvalidID(op, "orderId", id)
	}

	err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := s.Repo.SoftDelete(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return errOrderNotFound(op, id)
		}

		db.AfterCommit(ctx, func(ctx context.Context) {
			s.Metrics.OrdersDeleted.Inc()
			s.publish(ctx, events.OrderDeleted, deletedPayload{OrderID: id})
		})
		return nil
	})
	if err != nil {
		return s.fail(log, op, err)
	}

	log.Info("order deleted")
	return nil
}

func (s *service) GetOrderByID(ctx context.Context, id int64) (*Order, error) {
	const op = "order.GetOrderByID"
	if id <= 0 {
		return nil, errInvalidID(op, "orderId", id)
	}

	o, err := s.loadGraph(ctx, id)
	if err != nil {
		return nil, s.fail(s.queryLog(ctx, "GetOrderByID"), op, err)
	}
	return o, nil
}

func (s *service) GetAllOrders(ctx context.Context, page Page) ([]*Order, error) {
	const op = "order.GetAllOrders"

	page, err := validatePage(op, page)
	if err != nil {
		return nil, err
	}

	orders, err := s.Repo.List(ctx, page)
	if err != nil {
		return nil, s.fail(s.queryLog(ctx, "GetAllOrders"), op, err)
	}
	if err := s.attachChildren(ctx, orders); err != nil {
		return nil, s.fail(s.queryLog(ctx, "GetAllOrders"), op, err)
	}
	return orders, nil
}

func (s *service) GetOrderDetails(ctx context.Context, page Page) ([]LineItem, error) {
	const op = "order.GetOrderDetails"

	page, err := validatePage(op, page)
	if err != nil {
		return nil, err
	}

	items, err := s.Repo.ListLineItems(ctx, page)
	if err != nil {
		return nil, s.fail(s.queryLog(ctx, "GetOrderDetails"), op, err)
	}
	return items, nil
}

func (s *service) GetOrdersForOpenOrPendingTables(ctx context.Context) ([]*Order, error) {
	const op = "order.GetOrdersForOpenOrPendingTables"

	orders, err := s.Repo.ListActiveForTableStates(ctx,
		[]State{StateOpen, StatePendingPayment},
		[]table.State{table.StateOpen, table.StatePendingPayment},
	)
	if err != nil {
		return nil, s.fail(s.queryLog(ctx, "GetOrdersForOpenOrPendingTables"), op, err)
	}
	if err := s.attachChildren(ctx, orders); err != nil {
		return nil, s.fail(s.queryLog(ctx, "GetOrdersForOpenOrPendingTables"), op, err)
	}
	return orders, nil
}

func (s *service) OrderDetailsByID(ctx context.Context, id int64) (*LineItem, error) {
	const op = "order.OrderDetailsByID"
	if id <= 0 {
		return nil, errInvalidID(op, "orderDetailId", id)
	}

	item, err := s.Repo.GetLineItem(ctx, id)
	if err != nil {
		return nil, s.fail(s.queryLog(ctx, "OrderDetailsByID"), op, err)
	}
	return item, nil
}

// loadGraph reads the order with its table, line items and payments.
func (s *service) loadGraph(ctx context.Context, id int64) (*Order, error) {
	o, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.attachChildren(ctx, []*Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *service) attachChildren(ctx context.Context, orders []*Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}

	items, err := s.Repo.LineItemsByOrders(ctx, ids)
	if err != nil {
		return err
	}
	payments, err := s.Payments.GetPaymentsByOrders(ctx, ids)
	if err != nil {
		return err
	}

	for _, o := range orders {
		o.LineItems = items[o.ID]
		o.Payments = payments[o.ID]
	}
	return nil
}

func validatePage(op string, p Page) (Page, error) {
	if p.Page < 1 || p.Limit < 1 {
		return p, apperr.BadInput(op, "page and limit must be positive integers, got page=%d limit=%d", p.Page, p.Limit)
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p, nil
}

// fail classifies err at the operation boundary. Unclassified errors are
// internal: they are counted and logged with their cause, and only the
// classification reaches the caller.
func (s *service) fail(log *zap.Logger, op string, err error) error {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		s.Metrics.TxFailures.Inc()
		log.Error("operation failed", zap.String("op", op), zap.Error(err))
		return apperr.Internal(op, err)
	}
	log.Warn("operation rejected", zap.String("op", op), zap.String("kind", string(kind)), zap.Error(err))
	return err
}

func (s *service) queryLog(ctx context.Context, method string) *zap.Logger {
	return logger.FromCtx(ctx).With(zap.String("layer", "service"), zap.String("method", method))
}

func (s *service) publish(ctx context.Context, name string, payload any) {
	if err := s.Bus.Publish(ctx, name, payload); err != nil {
		s.Metrics.EventFailures.Inc()
		logger.FromCtx(ctx).Warn("failed to publish event",
			zap.String("event", name),
			zap.Error(err),
		)
	}
}

func (s *service) printKitchen(ctx context.Context, o *Order, added []LineItem, commandNumber string) {
	ticket := kitchenTicketFor(o, added, commandNumber, s.now())
	if _, err := s.Printer.PrintKitchenOrder(ctx, ticket); err != nil {
		s.Metrics.PrintFailures.Inc()
		logger.FromCtx(ctx).Warn("kitchen print failed",
			zap.Int64("order_id", o.ID),
			zap.String("command_number", commandNumber),
			zap.Error(err),
		)
	}
}

type tableChange struct {
	ID    int64       `json:"id"`
	State table.State `json:"state"`
}

type deletedPayload struct {
	OrderID int64  `json:"orderId"`
	TableID *int64 `json:"tableId,omitempty"`
	State   State  `json:"state,omitempty"`
}

func tableStateFor(s State) table.State {
	if s == StatePendingPayment {
		return table.StatePendingPayment
	}
	return table.StateOpen
}

func businessDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func kitchenTicketFor(o *Order, added []LineItem, commandNumber string, now time.Time) printer.KitchenTicket {
	ticket := printer.KitchenTicket{
		CommandNumber: commandNumber,
		OrderID:       o.ID,
		CreatedAt:     now,
	}
	if o.Table != nil {
		ticket.TableName = o.Table.Name
		ticket.RoomName = o.Table.RoomName
	}

	for _, it := range added {
		ki := printer.KitchenItem{
			Quantity:    it.Quantity,
			ProductName: it.ProductName,
			Comment:     it.Comment,
		}
		for _, t := range it.Toppings {
			ki.Toppings = append(ki.Toppings, fmt.Sprintf("#%d %s", t.UnitIndex+1, t.ToppingName))
		}
		for _, sel := range it.Selections {
			line := fmt.Sprintf("%s: %s", sel.SlotName, sel.ProductName)
			for _, t := range sel.Toppings {
				line += " +" + t.ToppingName
			}
			ki.Selections = append(ki.Selections, line)
		}
		ticket.Items = append(ticket.Items, ki)
	}
	return ticket
}

func ticketFor(o *Order, now time.Time) printer.Ticket {
	ticket := printer.Ticket{
		OrderID:         o.ID,
		NumberCustomers: o.NumberCustomers,
		Total:           o.Total,
		PrintedAt:       now,
	}
	if o.Table != nil {
		ticket.TableName = o.Table.Name
	}
	for _, it := range o.LineItems {
		if !it.IsActive {
			continue
		}
		ticket.Lines = append(ticket.Lines, printer.TicketLine{
			Quantity:     it.Quantity,
			ProductName:  it.ProductName,
			UnitaryPrice: it.UnitaryPrice,
			Subtotal:     it.Subtotal,
		})
	}
	return ticket
}
