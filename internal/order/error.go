package order

import "resto-be/internal/apperr"

func errOrderNotFound(op string, id int64) error {
	return apperr.NotFound(op, "order %d not found", id)
}

func errInvalidID(op, field string, id int64) error {
	return apperr.BadInput(op, "%s must be a positive id, got %d", field, id)
}

func errWrongState(op string, id int64, state State, want State) error {
	return apperr.BadInput(op, "order %d is %s, expected %s", id, state, want)
}

func errOrderClosed(op string, id int64) error {
	return apperr.Conflict(op, "order %d is already closed", id)
}

func errLineItemNotFound(op string, id int64) error {
	return apperr.NotFound(op, "order detail %d not found", id)
}
