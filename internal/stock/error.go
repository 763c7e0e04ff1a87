package stock

import "resto-be/internal/apperr"

const opDeduct = "stock.DeductStock"

func errInsufficientProduct(id int64, qty int) error {
	return apperr.Conflict(opDeduct, "insufficient stock for product %d (need %d)", id, qty)
}

func errInsufficientIngredient(id int64, amount string) error {
	return apperr.Conflict(opDeduct, "insufficient stock for ingredient %d (need %s)", id, amount)
}
