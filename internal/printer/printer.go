// Package printer renders kitchen commands and customer tickets. Which device
// receives them is decided once at startup by New.
package printer

import (
	"context"
	"time"

	"resto-be/internal/config"

	"github.com/shopspring/decimal"
)

type Printer interface {
	// PrintKitchenOrder returns the command number printed on the ticket.
	PrintKitchenOrder(ctx context.Context, ticket KitchenTicket) (string, error)
	PrintTicketOrder(ctx context.Context, ticket Ticket) error
}

type KitchenItem struct {
	Quantity    int
	ProductName string
	Comment     string
	Toppings    []string
	Selections  []string
}

type KitchenTicket struct {
	CommandNumber string
	OrderID       int64
	TableName     string
	RoomName      string
	Items         []KitchenItem
	CreatedAt     time.Time
}

type TicketLine struct {
	Quantity     int
	ProductName  string
	UnitaryPrice decimal.Decimal
	Subtotal     decimal.Decimal
}

type Ticket struct {
	OrderID         int64
	TableName       string
	NumberCustomers int
	Lines           []TicketLine
	Total           decimal.Decimal
	PrintedAt       time.Time
}

func New(cfg *config.Config) Printer {
	if cfg.PrinterMode == config.PrinterNetwork {
		return NewNetwork(cfg.PrinterAddr)
	}
	return NewSimulated()
}
