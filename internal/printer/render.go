package printer

import (
	"fmt"
	"strings"
)

const lineWidth = 42

func RenderKitchen(t KitchenTicket) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "COMMAND %s\n", t.CommandNumber)
	fmt.Fprintf(&sb, "Order #%d  %s / %s\n", t.OrderID, t.RoomName, t.TableName)
	fmt.Fprintf(&sb, "%s\n", t.CreatedAt.Format("2006-01-02 15:04"))
	sb.WriteString(strings.Repeat("-", lineWidth) + "\n")

	for _, it := range t.Items {
		fmt.Fprintf(&sb, "%3d x %s\n", it.Quantity, it.ProductName)
		for _, s := range it.Selections {
			fmt.Fprintf(&sb, "      > %s\n", s)
		}
		for _, tp := range it.Toppings {
			fmt.Fprintf(&sb, "      + %s\n", tp)
		}
		if it.Comment != "" {
			fmt.Fprintf(&sb, "      * %s\n", it.Comment)
		}
	}

	return sb.String()
}

func RenderTicket(t Ticket) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Order #%d  Table %s  (%d pax)\n", t.OrderID, t.TableName, t.NumberCustomers)
	fmt.Fprintf(&sb, "%s\n", t.PrintedAt.Format("2006-01-02 15:04"))
	sb.WriteString(strings.Repeat("-", lineWidth) + "\n")

	for _, l := range t.Lines {
		left := fmt.Sprintf("%d x %s @ %s", l.Quantity, l.ProductName, l.UnitaryPrice.StringFixed(2))
		right := l.Subtotal.StringFixed(2)
		sb.WriteString(pad(left, right))
	}

	sb.WriteString(strings.Repeat("-", lineWidth) + "\n")
	sb.WriteString(pad("TOTAL", t.Total.StringFixed(2)))
	return sb.String()
}

func pad(left, right string) string {
	gap := lineWidth - len(left) - len(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right + "\n"
}
