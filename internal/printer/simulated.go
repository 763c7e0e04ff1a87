package printer

import (
	"context"

	"resto-be/internal/logger"

	"go.uber.org/zap"
)

// Simulated writes rendered tickets to the log instead of a device.
type Simulated struct{}

func NewSimulated() *Simulated {
	return &Simulated{}
}

func (s *Simulated) PrintKitchenOrder(ctx context.Context, ticket KitchenTicket) (string, error) {
	logger.FromCtx(ctx).Info("kitchen order printed (simulated)",
		zap.String("command_number", ticket.CommandNumber),
		zap.Int64("order_id", ticket.OrderID),
		zap.String("ticket", RenderKitchen(ticket)),
	)
	return ticket.CommandNumber, nil
}

func (s *Simulated) PrintTicketOrder(ctx context.Context, ticket Ticket) error {
	logger.FromCtx(ctx).Info("ticket printed (simulated)",
		zap.Int64("order_id", ticket.OrderID),
		zap.String("ticket", RenderTicket(ticket)),
	)
	return nil
}
