package payment

import (
	"time"

	"resto-be/internal/apperr"

	"github.com/shopspring/decimal"
)

const opValidate = "payment.Validate"

type Method string

const (
	MethodCash       Method = "CASH"
	MethodDebitCard  Method = "DEBIT_CARD"
	MethodCreditCard Method = "CREDIT_CARD"
	MethodTransfer   Method = "TRANSFER"
	MethodQR         Method = "QR"
)

func (m Method) Valid() bool {
	switch m {
	case MethodCash, MethodDebitCard, MethodCreditCard, MethodTransfer, MethodQR:
		return true
	}
	return false
}

// Validate rejects an empty list, non-positive amounts and unknown methods.
func Validate(payments []Payment) error {
	if len(payments) == 0 {
		return apperr.BadInput(opValidate, "at least one payment is required")
	}
	for i, p := range payments {
		if !p.Amount.IsPositive() {
			return apperr.BadInput(opValidate, "payment %d: amount must be greater than 0", i)
		}
		if !p.Method.Valid() {
			return apperr.BadInput(opValidate, "payment %d: unknown method %q", i, p.Method)
		}
	}
	return nil
}

// Payment is one tender used to settle an order at close time.
type Payment struct {
	ID        int64
	OrderID   int64
	Amount    decimal.Decimal
	Method    Method
	CreatedAt time.Time
}

// Sum adds every amount.
func Sum(payments []Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}
