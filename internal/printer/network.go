package printer

import (
	"context"
	"fmt"
	"net"
	"time"

	"resto-be/internal/logger"

	"go.uber.org/zap"
)

// ESC/POS full cut.
var cutPaper = []byte{0x1d, 0x56, 0x00}

// Network sends raw text to a receipt printer listening on a TCP port (usually 9100).
type Network struct {
	addr    string
	timeout time.Duration
	dialer  net.Dialer
}

func NewNetwork(addr string) *Network {
	return &Network{addr: addr, timeout: 5 * time.Second}
}

func (n *Network) PrintKitchenOrder(ctx context.Context, ticket KitchenTicket) (string, error) {
	if err := n.send(ctx, RenderKitchen(ticket)); err != nil {
		return "", fmt.Errorf("print kitchen order %s: %w", ticket.CommandNumber, err)
	}
	return ticket.CommandNumber, nil
}

func (n *Network) PrintTicketOrder(ctx context.Context, ticket Ticket) error {
	if err := n.send(ctx, RenderTicket(ticket)); err != nil {
		return fmt.Errorf("print ticket for order %d: %w", ticket.OrderID, err)
	}
	return nil
}

func (n *Network) send(ctx context.Context, body string) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	conn, err := n.dialer.DialContext(ctx, "tcp", n.addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}

	payload := append([]byte(body+"\n\n\n"), cutPaper...)
	if _, err := conn.Write(payload); err != nil {
		return err
	}

	logger.FromCtx(ctx).Debug("sent to printer",
		zap.String("addr", n.addr),
		zap.Int("bytes", len(payload)),
	)
	return nil
}
