package order

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type OrderResponse struct {
	ID              int64              `json:"id"`
	Date            string             `json:"date"`
	State           State              `json:"state"`
	NumberCustomers int                `json:"numberCustomers"`
	Comment         string             `json:"comment"`
	Total           float64            `json:"total"`
	Tip             float64            `json:"tip"`
	IsActive        bool               `json:"isActive"`
	ClosedAt        *time.Time         `json:"closedAt,omitempty"`
	TillPeriodID    *int64             `json:"tillPeriodId,omitempty"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
	Table           *TableSummary      `json:"table"`
	OrderDetails    []LineItemResponse `json:"orderDetails"`
	Payments        []PaymentResponse  `json:"payments"`
	PaymentSummary  PaymentSummary     `json:"paymentSummary"`
}

type TableSummary struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	State    string `json:"state"`
	RoomID   int64  `json:"roomId"`
	RoomName string `json:"roomName"`
}

type LineItemResponse struct {
	ID                int64               `json:"id"`
	OrderID           int64               `json:"orderId"`
	ProductID         int64               `json:"productId"`
	ProductName       string              `json:"productName"`
	Quantity          int                 `json:"quantity"`
	UnitaryPrice      float64             `json:"unitaryPrice"`
	ToppingsExtraCost float64             `json:"toppingsExtraCost"`
	Subtotal          float64             `json:"subtotal"`
	Comment           string              `json:"commentOfProduct"`
	CommandNumber     string              `json:"commandNumber"`
	IsActive          bool                `json:"isActive"`
	Toppings          []string            `json:"toppings"`
	ToppingsPerUnit   [][]string          `json:"toppingsPerUnit"`
	Selections        []SelectionResponse `json:"promotionSelections"`
}

type SelectionResponse struct {
	SlotID           int64    `json:"slotId"`
	SlotName         string   `json:"slotName"`
	ProductID        int64    `json:"selectedProductId"`
	ProductName      string   `json:"productName"`
	ExtraCostApplied float64  `json:"extraCostApplied"`
	Toppings         []string `json:"toppings"`
}

type PaymentResponse struct {
	Amount float64 `json:"amount"`
	Method string  `json:"methodOfPayment"`
}

type PaymentSummary struct {
	Total    float64            `json:"total"`
	ByMethod map[string]float64 `json:"byMethod"`
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// AdaptResponse flattens the order graph for transport and event payloads.
func AdaptResponse(o *Order) *OrderResponse {
	if o == nil {
		return nil
	}

	resp := &OrderResponse{
		ID:              o.ID,
		Date:            o.Date.Format("2006-01-02"),
		State:           o.State,
		NumberCustomers: o.NumberCustomers,
		Comment:         o.Comment,
		Total:           money(o.Total),
		Tip:             money(o.Tip),
		IsActive:        o.IsActive,
		ClosedAt:        o.ClosedAt,
		TillPeriodID:    o.TillPeriodID,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		OrderDetails:    make([]LineItemResponse, 0, len(o.LineItems)),
		Payments:        make([]PaymentResponse, 0, len(o.Payments)),
		PaymentSummary:  PaymentSummary{ByMethod: map[string]float64{}},
	}

	if o.Table != nil {
		resp.Table = &TableSummary{
			ID:       o.Table.ID,
			Name:     o.Table.Name,
			State:    string(o.Table.State),
			RoomID:   o.Table.RoomID,
			RoomName: o.Table.RoomName,
		}
	}

	for i := range o.LineItems {
		resp.OrderDetails = append(resp.OrderDetails, AdaptLineItem(&o.LineItems[i]))
	}

	paid := decimal.Zero
	byMethod := map[string]decimal.Decimal{}
	for _, p := range o.Payments {
		resp.Payments = append(resp.Payments, PaymentResponse{Amount: money(p.Amount), Method: string(p.Method)})
		paid = paid.Add(p.Amount)
		byMethod[string(p.Method)] = byMethod[string(p.Method)].Add(p.Amount)
	}
	resp.PaymentSummary.Total = money(paid)
	for m, v := range byMethod {
		resp.PaymentSummary.ByMethod[m] = money(v)
	}

	return resp
}

func AdaptLineItem(it *LineItem) LineItemResponse {
	r := LineItemResponse{
		ID:                it.ID,
		OrderID:           it.OrderID,
		ProductID:         it.ProductID,
		ProductName:       it.ProductName,
		Quantity:          it.Quantity,
		UnitaryPrice:      money(it.UnitaryPrice),
		ToppingsExtraCost: money(it.ToppingsExtraCost),
		Subtotal:          money(it.Subtotal),
		Comment:           it.Comment,
		CommandNumber:     it.CommandNumber,
		IsActive:          it.IsActive,
		Toppings:          []string{},
		ToppingsPerUnit:   make([][]string, it.Quantity),
		Selections:        []SelectionResponse{},
	}
	for i := range r.ToppingsPerUnit {
		r.ToppingsPerUnit[i] = []string{}
	}

	toppings := append([]LineItemTopping(nil), it.Toppings...)
	sort.SliceStable(toppings, func(i, j int) bool { return toppings[i].UnitIndex < toppings[j].UnitIndex })
	for _, t := range toppings {
		r.Toppings = append(r.Toppings, t.ToppingName)
		if t.UnitIndex >= 0 && t.UnitIndex < len(r.ToppingsPerUnit) {
			r.ToppingsPerUnit[t.UnitIndex] = append(r.ToppingsPerUnit[t.UnitIndex], t.ToppingName)
		}
	}

	for _, sel := range it.Selections {
		sr := SelectionResponse{
			SlotID:           sel.SlotID,
			SlotName:         sel.SlotName,
			ProductID:        sel.SelectedProductID,
			ProductName:      sel.ProductName,
			ExtraCostApplied: money(sel.ExtraCostApplied),
			Toppings:         []string{},
		}
		for _, t := range sel.Toppings {
			sr.Toppings = append(sr.Toppings, t.ToppingName)
		}
		r.Selections = append(r.Selections, sr)
	}
	return r
}

func AdaptResponses(orders []*Order) []*OrderResponse {
	out := make([]*OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, AdaptResponse(o))
	}
	return out
}
