package order

import (
	"time"

	"resto-be/internal/payment"
	"resto-be/internal/pricing"
	"resto-be/internal/table"

	"github.com/shopspring/decimal"
)

type State string

const (
	StateOpen           State = "OPEN"
	StatePendingPayment State = "PENDING_PAYMENT"
	StateClosed         State = "CLOSED"
	StateCancelled      State = "CANCELLED"
)

// Order is the aggregate root. Children are owned by value and reference the
// order by id only.
type Order struct {
	ID              int64
	Date            time.Time
	State           State
	NumberCustomers int
	Comment         string
	Total           decimal.Decimal
	Tip             decimal.Decimal
	IsActive        bool
	TableID         *int64
	TillPeriodID    *int64
	ClosedAt        *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Table     *table.Table
	LineItems []LineItem
	Payments  []payment.Payment
}

// LineItem is an order_details row. Names and prices are snapshots taken when
// the item was added.
type LineItem struct {
	ID                int64
	OrderID           int64
	ProductID         int64
	ProductName       string
	Quantity          int
	UnitaryPrice      decimal.Decimal
	ToppingsExtraCost decimal.Decimal
	Subtotal          decimal.Decimal
	Comment           string
	CommandNumber     string
	IsActive          bool
	CreatedAt         time.Time

	Toppings   []LineItemTopping
	Selections []PromotionSelection
}

// LineItemTopping applies to one physical unit: UnitIndex is in [0, quantity) of
// the line. When SelectionID is set the topping belongs to that promotion pick,
// and UnitIndex is the promotion unit the pick was made for.
type LineItemTopping struct {
	ID            int64
	LineItemID    int64
	SelectionID   *int64
	UnitIndex     int
	ToppingID     int64
	ToppingName   string
	UnitOfMeasure string
	ExtraCost     decimal.Decimal
}

type PromotionSelection struct {
	ID                int64
	LineItemID        int64
	SlotID            int64
	SlotName          string
	SelectedProductID int64
	ProductName       string
	ExtraCostApplied  decimal.Decimal

	Toppings []LineItemTopping
}

type OpenInput struct {
	TableID         int64
	NumberCustomers int
	Comment         string
}

// ProductDetail is one line item requested by an update.
type ProductDetail struct {
	ProductID           int64
	Quantity            int
	Comment             string
	ToppingsPerUnit     [][]int64
	PromotionSelections []pricing.PromotionSelection
}

func (d ProductDetail) lineRequest() pricing.LineRequest {
	return pricing.LineRequest{
		ProductID:           d.ProductID,
		Quantity:            d.Quantity,
		ToppingsPerUnit:     d.ToppingsPerUnit,
		PromotionSelections: d.PromotionSelections,
	}
}

type UpdateInput struct {
	TableID         *int64
	NumberCustomers *int
	Comment         *string
	State           *State
	ProductsDetails []ProductDetail
}

type CloseInput struct {
	Total    decimal.Decimal
	Payments []payment.Payment
}

type TransferInput struct {
	FromTableID int64
	ToTableID   int64
}

// PendingResult reports the ticket print outcome, which never reverts the transition.
type PendingResult struct {
	Order         *Order
	TicketPrinted bool
	PrintError    string
}

type Page struct {
	Page  int
	Limit int
}

const MaxPageLimit = 100

func (p Page) offset() int {
	return (p.Page - 1) * p.Limit
}
