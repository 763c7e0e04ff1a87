package table

import "resto-be/internal/apperr"

func errTableNotFound(op string, id int64) error {
	return apperr.NotFound(op, "table %d not found", id)
}
