package order

import (
	"context"

	"resto-be/internal/pricing"
	"resto-be/internal/product"
	"resto-be/internal/table"
	"resto-be/internal/till"
)

// Collaborators the engine consumes. Each is satisfied by the matching package's
// repository or service.

type Catalog interface {
	LoadMenu(ctx context.Context, productIDs, toppingIDs []int64) (*product.Menu, error)
}

type TableService interface {
	GetByID(ctx context.Context, id int64) (*table.Table, error)
	UpdateState(ctx context.Context, id int64, state table.State) error
}

type TillService interface {
	GetOpenPeriodForToday(ctx context.Context) (*till.Period, error)
}

type StockService interface {
	DeductStock(ctx context.Context, req pricing.LineRequest) error
}

type CommandSequence interface {
	Next(ctx context.Context) (string, error)
}
