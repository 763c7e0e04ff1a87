package stock

import (
	"sort"

	"github.com/shopspring/decimal"
)

// RecipeLine is the amount of one ingredient consumed by one unit of a compound product.
type RecipeLine struct {
	ProductID    int64
	IngredientID int64
	Quantity     decimal.Decimal
}

// Plan aggregates every decrement one line item needs, keyed by row id.
type Plan struct {
	Products    map[int64]int
	Ingredients map[int64]decimal.Decimal
}

func newPlan() *Plan {
	return &Plan{
		Products:    make(map[int64]int),
		Ingredients: make(map[int64]decimal.Decimal),
	}
}

func (p *Plan) addIngredient(id int64, amount decimal.Decimal) {
	if amount.IsZero() {
		return
	}
	p.Ingredients[id] = p.Ingredients[id].Add(amount)
}

func (p *Plan) Empty() bool {
	return len(p.Products) == 0 && len(p.Ingredients) == 0
}

// productIDs and ingredientIDs return ascending ids so concurrent deductions lock rows in the same order.
func (p *Plan) productIDs() []int64 {
	ids := make([]int64, 0, len(p.Products))
	for id := range p.Products {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (p *Plan) ingredientIDs() []int64 {
	ids := make([]int64, 0, len(p.Ingredients))
	for id := range p.Ingredients {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
