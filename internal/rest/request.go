package rest

import (
	"resto-be/internal/order"
	"resto-be/internal/payment"
	"resto-be/internal/pricing"

	"github.com/shopspring/decimal"
)

type openOrderRequest struct {
	TableID         int64  `json:"tableId"`
	NumberCustomers int    `json:"numberCustomers"`
	Comment         string `json:"comment"`
}

func (r openOrderRequest) input() order.OpenInput {
	return order.OpenInput{TableID: r.TableID, NumberCustomers: r.NumberCustomers, Comment: r.Comment}
}

type updateOrderRequest struct {
	TableID         *int64                 `json:"tableId"`
	NumberCustomers *int                   `json:"numberCustomers"`
	Comment         *string                `json:"comment"`
	State           *string                `json:"state"`
	ProductsDetails []productDetailRequest `json:"productsDetails"`
}

type productDetailRequest struct {
	ProductID           int64                       `json:"productId"`
	Quantity            int                         `json:"quantity"`
	Comment             string                      `json:"commentOfProduct"`
	ToppingsPerUnit     [][]int64                   `json:"toppingsPerUnit"`
	PromotionSelections []promotionSelectionRequest `json:"promotionSelections"`
}

type promotionSelectionRequest struct {
	SlotID             int64     `json:"slotId"`
	SelectedProductIDs []int64   `json:"selectedProductIds"`
	ToppingsPerProduct [][]int64 `json:"toppingsPerProduct"`
}

func (r updateOrderRequest) input() order.UpdateInput {
	in := order.UpdateInput{
		TableID:         r.TableID,
		NumberCustomers: r.NumberCustomers,
		Comment:         r.Comment,
	}
	if r.State != nil {
		s := order.State(*r.State)
		in.State = &s
	}

	for _, d := range r.ProductsDetails {
		detail := order.ProductDetail{
			ProductID:       d.ProductID,
			Quantity:        d.Quantity,
			Comment:         d.Comment,
			ToppingsPerUnit: d.ToppingsPerUnit,
		}
		for _, sel := range d.PromotionSelections {
			detail.PromotionSelections = append(detail.PromotionSelections, pricing.PromotionSelection{
				SlotID:             sel.SlotID,
				SelectedProductIDs: sel.SelectedProductIDs,
				ToppingsPerProduct: sel.ToppingsPerProduct,
			})
		}
		in.ProductsDetails = append(in.ProductsDetails, detail)
	}
	return in
}

type closeOrderRequest struct {
	Total    decimal.Decimal  `json:"total"`
	Payments []paymentRequest `json:"payments"`
}

type paymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"methodOfPayment"`
}

func (r closeOrderRequest) input() order.CloseInput {
	in := order.CloseInput{Total: r.Total}
	for _, p := range r.Payments {
		in.Payments = append(in.Payments, payment.Payment{Amount: p.Amount, Method: payment.Method(p.Method)})
	}
	return in
}

type transferOrderRequest struct {
	FromTableID int64 `json:"fromTableId"`
	ToTableID   int64 `json:"toTableId"`
}

func (r transferOrderRequest) input() order.TransferInput {
	return order.TransferInput{FromTableID: r.FromTableID, ToTableID: r.ToTableID}
}

type pendingResponse struct {
	Order         *order.OrderResponse `json:"order"`
	TicketPrinted bool                 `json:"ticketPrinted"`
	PrintError    string               `json:"printError,omitempty"`
}
