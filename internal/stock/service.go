package stock

import (
	"context"

	"resto-be/internal/apperr"
	"resto-be/internal/logger"
	"resto-be/internal/pricing"
	"resto-be/internal/product"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Service interface {
	// DeductStock decrements everything one line item consumes. It runs in the
	// caller's transaction and either applies every decrement or returns an error.
	// A menu attached with product.WithMenu is used when it covers the request.
	DeductStock(ctx context.Context, req pricing.LineRequest) error
}

type service struct {
	repo    Repository
	catalog product.Repository
}

func NewService(repo Repository, catalog product.Repository) Service {
	return &service{repo: repo, catalog: catalog}
}

func (s *service) DeductStock(ctx context.Context, req pricing.LineRequest) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "DeductStock"),
		zap.Int64("product_id", req.ProductID),
		zap.Int("quantity", req.Quantity),
	)

	productIDs, toppingIDs := pricing.RequiredIDs([]pricing.LineRequest{req})
	menu, ok := product.MenuFromCtx(ctx)
	if !ok || !menu.Covers(productIDs, toppingIDs) {
		var err error
		menu, err = s.catalog.LoadMenu(ctx, productIDs, toppingIDs)
		if err != nil {
			log.Error("failed to load catalog", zap.Error(err))
			return apperr.Internal(opDeduct, err)
		}
	}

	var compound []int64
	for _, id := range productIDs {
		if p, ok := menu.Products[id]; ok && p.Kind == product.KindCompound {
			compound = append(compound, id)
		}
	}

	recipes, err := s.repo.LoadRecipes(ctx, compound)
	if err != nil {
		log.Error("failed to load recipes", zap.Error(err))
		return apperr.Internal(opDeduct, err)
	}

	plan, err := buildPlan(menu, recipes, req)
	if err != nil {
		log.Warn("stock plan rejected", zap.Error(err))
		return err
	}
	if plan.Empty() {
		log.Debug("nothing to deduct")
		return nil
	}

	for _, id := range plan.productIDs() {
		qty := plan.Products[id]
		ok, err := s.repo.DeductProduct(ctx, id, qty)
		if err != nil {
			log.Error("failed to deduct product stock", zap.Int64("stock_product_id", id), zap.Error(err))
			return apperr.Internal(opDeduct, err)
		}
		if !ok {
			log.Warn("insufficient product stock", zap.Int64("stock_product_id", id), zap.Int("need", qty))
			return errInsufficientProduct(id, qty)
		}
	}

	for _, id := range plan.ingredientIDs() {
		amount := plan.Ingredients[id]
		ok, err := s.repo.DeductIngredient(ctx, id, amount)
		if err != nil {
			log.Error("failed to deduct ingredient stock", zap.Int64("ingredient_id", id), zap.Error(err))
			return apperr.Internal(opDeduct, err)
		}
		if !ok {
			log.Warn("insufficient ingredient stock", zap.Int64("ingredient_id", id), zap.String("need", amount.String()))
			return errInsufficientIngredient(id, amount.String())
		}
	}

	log.Debug("stock deducted",
		zap.Int("products", len(plan.Products)),
		zap.Int("ingredients", len(plan.Ingredients)),
	)
	return nil
}

// buildPlan expands a line item into row decrements. Promotion picks count as one
// unit of the picked product each, plus the toppings chosen for that pick.
func buildPlan(menu *product.Menu, recipes map[int64][]RecipeLine, req pricing.LineRequest) (*Plan, error) {
	plan := newPlan()

	addProduct := func(id int64, qty int) error {
		p, ok := menu.Products[id]
		if !ok {
			return apperr.NotFound(opDeduct, "product %d not found", id)
		}
		switch p.Kind {
		case product.KindSimple:
			plan.Products[id] += qty
		case product.KindCompound:
			n := decimal.NewFromInt(int64(qty))
			for _, line := range recipes[id] {
				plan.addIngredient(line.IngredientID, line.Quantity.Mul(n))
			}
		}
		return nil
	}

	addToppings := func(ids []int64) error {
		for _, id := range ids {
			t, ok := menu.Toppings[id]
			if !ok {
				return apperr.NotFound(opDeduct, "topping %d not found", id)
			}
			plan.addIngredient(t.IngredientID, t.Portion)
		}
		return nil
	}

	if err := addProduct(req.ProductID, req.Quantity); err != nil {
		return nil, err
	}
	for _, toppings := range req.ToppingsPerUnit {
		if err := addToppings(toppings); err != nil {
			return nil, err
		}
	}

	for _, sel := range req.PromotionSelections {
		for i, id := range sel.SelectedProductIDs {
			if err := addProduct(id, 1); err != nil {
				return nil, err
			}
			if i < len(sel.ToppingsPerProduct) {
				if err := addToppings(sel.ToppingsPerProduct[i]); err != nil {
					return nil, err
				}
			}
		}
	}

	return plan, nil
}
