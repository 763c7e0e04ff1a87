package pricing

import (
	"sort"

	"resto-be/internal/apperr"
	"resto-be/internal/product"

	"github.com/shopspring/decimal"
)

const (
	InternalScale = 4
	MoneyScale    = 2
)

type LineRequest struct {
	ProductID int64
	Quantity  int
	// ToppingsPerUnit holds one topping list per physical unit; empty means no toppings.
	ToppingsPerUnit     [][]int64
	PromotionSelections []PromotionSelection
}

type PromotionSelection struct {
	SlotID             int64
	SelectedProductIDs []int64
	// ToppingsPerProduct is aligned with SelectedProductIDs when present.
	ToppingsPerProduct [][]int64
}

type AppliedTopping struct {
	UnitIndex     int
	ToppingID     int64
	Name          string
	UnitOfMeasure string
	ExtraCost     decimal.Decimal
}

type AppliedSelection struct {
	SlotID           int64
	SlotName         string
	ProductID        int64
	ProductName      string
	ExtraCostApplied decimal.Decimal
	Toppings         []AppliedTopping
}

type Quote struct {
	Product      product.Product
	Quantity     int
	UnitaryPrice decimal.Decimal
	ExtraCost    decimal.Decimal
	Subtotal     decimal.Decimal
	Toppings     []AppliedTopping
	Selections   []AppliedSelection
}

// DisplayUnitaryPrice is the persisted, two-decimal unitary price.
func (q *Quote) DisplayUnitaryPrice() decimal.Decimal {
	return q.UnitaryPrice.Round(MoneyScale)
}

const op = "pricing.Price"

// Price quotes one line item. It performs no I/O: everything it needs must be in menu.
func Price(menu *product.Menu, req LineRequest) (*Quote, error) {
	if req.Quantity < 1 {
		return nil, apperr.BadInput(op, "quantity must be at least 1, got %d", req.Quantity)
	}

	p, ok := menu.Products[req.ProductID]
	if !ok || !p.Active {
		return nil, apperr.NotFound(op, "product %d not found", req.ProductID)
	}

	if len(req.ToppingsPerUnit) > 0 && len(req.ToppingsPerUnit) != req.Quantity {
		return nil, apperr.BadInput(op,
			"product %d: toppings given for %d units but quantity is %d",
			p.ID, len(req.ToppingsPerUnit), req.Quantity)
	}

	q := &Quote{Product: p, Quantity: req.Quantity, ExtraCost: decimal.Zero}

	for unit, toppingIDs := range req.ToppingsPerUnit {
		applied, extra, err := priceToppings(menu, p.ID, unit, toppingIDs)
		if err != nil {
			return nil, err
		}
		q.Toppings = append(q.Toppings, applied...)
		q.ExtraCost = q.ExtraCost.Add(extra)
	}

	switch {
	case p.Kind == product.KindPromotion:
		selections, extra, err := pricePromotion(menu, p, req.Quantity, req.PromotionSelections)
		if err != nil {
			return nil, err
		}
		q.Selections = selections
		q.ExtraCost = q.ExtraCost.Add(extra)
	case len(req.PromotionSelections) > 0:
		return nil, apperr.BadInput(op, "product %d is not a promotion but has promotion selections", p.ID)
	}

	qty := decimal.NewFromInt(int64(req.Quantity))
	q.UnitaryPrice = p.Price.Add(q.ExtraCost.DivRound(qty, InternalScale))
	// subtotal == persisted unitary price x quantity, with no further rounding
	q.Subtotal = q.DisplayUnitaryPrice().Mul(qty)

	return q, nil
}

func priceToppings(menu *product.Menu, productID int64, unit int, toppingIDs []int64) ([]AppliedTopping, decimal.Decimal, error) {
	extra := decimal.Zero
	applied := make([]AppliedTopping, 0, len(toppingIDs))

	for _, id := range toppingIDs {
		t, ok := menu.Toppings[id]
		if !ok || !t.Active {
			return nil, extra, apperr.NotFound(op, "topping %d not found", id)
		}

		cfg, ok := menu.ToppingGroups[product.ToppingGroupKey{ProductID: productID, GroupID: t.GroupID}]
		if !ok {
			return nil, extra, apperr.BadInput(op,
				"product %d has no configuration for topping group %d", productID, t.GroupID)
		}

		cost := decimal.Zero
		if cfg.ChargeExtra {
			cost = cfg.ExtraCost
		}
		extra = extra.Add(cost)

		applied = append(applied, AppliedTopping{
			UnitIndex:     unit,
			ToppingID:     t.ID,
			Name:          t.Name,
			UnitOfMeasure: t.UnitOfMeasure,
			ExtraCost:     cost,
		})
	}
	return applied, extra, nil
}

// pricePromotion validates and prices the slot picks of a promotion line. A
// slot's picks are spread evenly over the line's units in request order, so the
// toppings of a pick are recorded against the promotion unit that pick belongs to.
func pricePromotion(menu *product.Menu, promo product.Product, quantity int, selections []PromotionSelection) ([]AppliedSelection, decimal.Decimal, error) {
	extra := decimal.Zero

	picks := make(map[int64]int)
	for _, sel := range selections {
		if _, ok := menu.Slot(promo.ID, sel.SlotID); !ok {
			return nil, extra, apperr.NotFound(op, "slot %d is not part of promotion %d", sel.SlotID, promo.ID)
		}
		if len(sel.ToppingsPerProduct) > 0 && len(sel.ToppingsPerProduct) != len(sel.SelectedProductIDs) {
			return nil, extra, apperr.BadInput(op,
				"slot %d: toppings given for %d products but %d were selected",
				sel.SlotID, len(sel.ToppingsPerProduct), len(sel.SelectedProductIDs))
		}
		picks[sel.SlotID] += len(sel.SelectedProductIDs)
	}

	assignments := append([]product.SlotAssignment(nil), menu.Slots[promo.ID]...)
	sort.Slice(assignments, func(i, j int) bool { return assignments[i].SlotID < assignments[j].SlotID })
	for _, a := range assignments {
		if got := picks[a.SlotID]; got != a.Quantity {
			return nil, extra, apperr.BadInput(op,
				"slot %d (%s) requires %d products, got %d", a.SlotID, a.SlotName, a.Quantity, got)
		}
	}

	var applied []AppliedSelection
	seen := make(map[int64]int, len(assignments))
	for _, sel := range selections {
		slot, _ := menu.Slot(promo.ID, sel.SlotID)

		for i, productID := range sel.SelectedProductIDs {
			unit := pickUnit(seen[slot.SlotID], slot.Quantity, quantity)
			seen[slot.SlotID]++

			opt, ok := slot.Options[productID]
			if !ok || !opt.Active {
				return nil, extra, apperr.BadInput(op,
					"product %d is not an active option of slot %d (%s)", productID, slot.SlotID, slot.SlotName)
			}

			picked, ok := menu.Products[productID]
			if !ok || !picked.Active {
				return nil, extra, apperr.NotFound(op, "product %d not found", productID)
			}

			as := AppliedSelection{
				SlotID:           slot.SlotID,
				SlotName:         slot.SlotName,
				ProductID:        picked.ID,
				ProductName:      picked.Name,
				ExtraCostApplied: opt.ExtraCost,
			}
			extra = extra.Add(opt.ExtraCost)

			if len(sel.ToppingsPerProduct) > 0 {
				toppings, toppingExtra, err := priceToppings(menu, picked.ID, unit, sel.ToppingsPerProduct[i])
				if err != nil {
					return nil, extra, err
				}
				as.Toppings = toppings
				extra = extra.Add(toppingExtra)
			}

			applied = append(applied, as)
		}
	}

	return applied, extra, nil
}

// pickUnit maps the n-th pick of a slot requiring `required` picks onto a unit
// in [0, quantity).
func pickUnit(n, required, quantity int) int {
	if required <= 0 || quantity <= 1 {
		return 0
	}
	unit := n * quantity / required
	if unit >= quantity {
		return quantity - 1
	}
	return unit
}

// RequiredIDs lists every product and topping referenced by reqs, for loading a Menu.
func RequiredIDs(reqs []LineRequest) (productIDs, toppingIDs []int64) {
	products := make(map[int64]bool)
	toppings := make(map[int64]bool)

	addToppings := func(lists [][]int64) {
		for _, list := range lists {
			for _, id := range list {
				toppings[id] = true
			}
		}
	}

	for _, r := range reqs {
		products[r.ProductID] = true
		addToppings(r.ToppingsPerUnit)
		for _, sel := range r.PromotionSelections {
			for _, id := range sel.SelectedProductIDs {
				products[id] = true
			}
			addToppings(sel.ToppingsPerProduct)
		}
	}

	return sortedKeys(products), sortedKeys(toppings)
}

func sortedKeys(m map[int64]bool) []int64 {
	out := make([]int64, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
