package stock

import (
	"context"
	"database/sql"

	"resto-be/internal/db"
	"resto-be/internal/logger"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Repository interface {
	LoadRecipes(ctx context.Context, productIDs []int64) (map[int64][]RecipeLine, error)
	// DeductProduct reports false when the product has less than qty in stock.
	DeductProduct(ctx context.Context, productID int64, qty int) (bool, error)
	DeductIngredient(ctx context.Context, ingredientID int64, amount decimal.Decimal) (bool, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) LoadRecipes(ctx context.Context, productIDs []int64) (map[int64][]RecipeLine, error) {
	recipes := make(map[int64][]RecipeLine)
	if len(productIDs) == 0 {
		return recipes, nil
	}

	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, `
		SELECT product_id, ingredient_id, quantity
		FROM product_recipes
		WHERE product_id = ANY($1)
		ORDER BY product_id, ingredient_id
	`, pq.Array(productIDs))
	if err != nil {
		logger.FromCtx(ctx).Error("failed to load recipes",
			zap.String("layer", "repository"),
			zap.String("method", "LoadRecipes"),
			zap.Error(err),
		)
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var l RecipeLine
		if err := rows.Scan(&l.ProductID, &l.IngredientID, &l.Quantity); err != nil {
			return nil, err
		}
		recipes[l.ProductID] = append(recipes[l.ProductID], l)
	}
	return recipes, rows.Err()
}

func (r *repository) DeductProduct(ctx context.Context, productID int64, qty int) (bool, error) {
	res, err := db.Conn(ctx, r.db).ExecContext(ctx, `
		UPDATE products
		SET stock = stock - $1
		WHERE id = $2 AND stock >= $1
	`, qty, productID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *repository) DeductIngredient(ctx context.Context, ingredientID int64, amount decimal.Decimal) (bool, error) {
	res, err := db.Conn(ctx, r.db).ExecContext(ctx, `
		UPDATE ingredients
		SET stock = stock - $1
		WHERE id = $2 AND stock >= $1
	`, amount, ingredientID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
