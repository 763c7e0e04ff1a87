package printer

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"resto-be/internal/config"
	"resto-be/internal/logger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func sampleKitchen() KitchenTicket {
	return KitchenTicket{
		CommandNumber: "20260310-0004",
		OrderID:       42,
		TableName:     "T3",
		RoomName:      "Terrace",
		CreatedAt:     time.Date(2026, 3, 10, 20, 15, 0, 0, time.UTC),
		Items: []KitchenItem{
			{Quantity: 2, ProductName: "Burger", Toppings: []string{"Cheddar"}, Comment: "no onion"},
			{Quantity: 1, ProductName: "Combo", Selections: []string{"Drinks: Cola"}},
		},
	}
}

func TestRenderKitchen(t *testing.T) {
	out := RenderKitchen(sampleKitchen())

	assert.Contains(t, out, "COMMAND 20260310-0004")
	assert.Contains(t, out, "Terrace / T3")
	assert.Contains(t, out, "  2 x Burger\n")
	assert.Contains(t, out, "+ Cheddar")
	assert.Contains(t, out, "* no onion")
	assert.Contains(t, out, "> Drinks: Cola")
}

func TestRenderTicket(t *testing.T) {
	out := RenderTicket(Ticket{
		OrderID:         42,
		TableName:       "T3",
		NumberCustomers: 2,
		Lines: []TicketLine{
			{Quantity: 3, ProductName: "Burger", UnitaryPrice: decimal.RequireFromString("1033.33"), Subtotal: decimal.RequireFromString("3099.99")},
		},
		Total: decimal.RequireFromString("3099.99"),
	})

	assert.Contains(t, out, "3 x Burger @ 1033.33")
	assert.Contains(t, out, "3099.99\n")
	assert.Contains(t, out, "TOTAL")
}

func TestNew_ChoosesStrategy(t *testing.T) {
	assert.IsType(t, &Simulated{}, New(&config.Config{PrinterMode: config.PrinterSimulated}))
	assert.IsType(t, &Network{}, New(&config.Config{PrinterMode: config.PrinterNetwork, PrinterAddr: "10.0.0.5:9100"}))
}

func TestSimulated_LogsTicket(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	restore := logger.Replace(zap.New(core))
	defer restore()

	number, err := NewSimulated().PrintKitchenOrder(context.Background(), sampleKitchen())
	require.NoError(t, err)
	assert.Equal(t, "20260310-0004", number)

	entries := logs.FilterMessage("kitchen order printed (simulated)").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ContextMap()["ticket"], "Burger")
}

func TestNetwork_SendsPayload(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		b, _ := io.ReadAll(conn)
		received <- b
	}()

	number, err := NewNetwork(ln.Addr().String()).PrintKitchenOrder(context.Background(), sampleKitchen())
	require.NoError(t, err)
	assert.Equal(t, "20260310-0004", number)

	select {
	case b := <-received:
		assert.Contains(t, string(b), "COMMAND 20260310-0004")
		assert.Equal(t, cutPaper, b[len(b)-len(cutPaper):])
	case <-time.After(2 * time.Second):
		t.Fatal("printer did not receive the ticket")
	}
}

func TestNetwork_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	err = NewNetwork(addr).PrintTicketOrder(context.Background(), Ticket{OrderID: 9})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "print ticket for order 9")
}
