package product

import (
	"context"
	"database/sql"

	"resto-be/internal/db"
	"resto-be/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	LoadMenu(ctx context.Context, productIDs, toppingIDs []int64) (*Menu, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// LoadMenu fetches products, their topping-group configuration, the requested
// toppings and the slot layout of any promotion among the products.
func (r *repository) LoadMenu(ctx context.Context, productIDs, toppingIDs []int64) (*Menu, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "LoadMenu"),
		zap.Int64s("product_ids", productIDs),
	)

	menu := NewMenu()
	if len(productIDs) == 0 {
		return menu, nil
	}

	conn := db.Conn(ctx, r.db)

	promotions, err := r.loadProducts(ctx, conn, menu, productIDs)
	if err != nil {
		log.Error("failed to load products", zap.Error(err))
		return nil, err
	}

	if err := r.loadToppingGroups(ctx, conn, menu, productIDs); err != nil {
		log.Error("failed to load topping groups", zap.Error(err))
		return nil, err
	}

	if len(toppingIDs) > 0 {
		if err := r.loadToppings(ctx, conn, menu, toppingIDs); err != nil {
			log.Error("failed to load toppings", zap.Error(err))
			return nil, err
		}
	}

	if len(promotions) > 0 {
		if err := r.loadSlots(ctx, conn, menu, promotions); err != nil {
			log.Error("failed to load promotion slots", zap.Error(err))
			return nil, err
		}
	}

	log.Debug("menu loaded",
		zap.Int("products", len(menu.Products)),
		zap.Int("toppings", len(menu.Toppings)),
		zap.Int("promotions", len(promotions)),
	)

	return menu, nil
}

func (r *repository) loadProducts(ctx context.Context, conn db.Executor, menu *Menu, ids []int64) ([]int64, error) {
	rows, err := conn.QueryContext(ctx, `
		SELECT id, name, kind, price, is_active
		FROM products
		WHERE id = ANY($1)
	`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var promotions []int64
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Kind, &p.Price, &p.Active); err != nil {
			return nil, err
		}
		menu.Products[p.ID] = p
		if p.Kind == KindPromotion {
			promotions = append(promotions, p.ID)
		}
	}
	return promotions, rows.Err()
}

func (r *repository) loadToppingGroups(ctx context.Context, conn db.Executor, menu *Menu, productIDs []int64) error {
	rows, err := conn.QueryContext(ctx, `
		SELECT product_id, topping_group_id, charge_extra, extra_cost
		FROM product_topping_groups
		WHERE product_id = ANY($1)
	`, pq.Array(productIDs))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var c ToppingGroupConfig
		if err := rows.Scan(&c.ProductID, &c.GroupID, &c.ChargeExtra, &c.ExtraCost); err != nil {
			return err
		}
		menu.ToppingGroups[ToppingGroupKey{ProductID: c.ProductID, GroupID: c.GroupID}] = c
	}
	return rows.Err()
}

func (r *repository) loadToppings(ctx context.Context, conn db.Executor, menu *Menu, ids []int64) error {
	rows, err := conn.QueryContext(ctx, `
		SELECT t.id, i.name, t.topping_group_id, t.ingredient_id, u.name, t.portion, t.is_active
		FROM toppings t
		JOIN ingredients i ON i.id = t.ingredient_id
		JOIN units_of_measure u ON u.id = t.unit_of_measure_id
		WHERE t.id = ANY($1)
	`, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var t Topping
		if err := rows.Scan(&t.ID, &t.Name, &t.GroupID, &t.IngredientID, &t.UnitOfMeasure, &t.Portion, &t.Active); err != nil {
			return err
		}
		menu.Toppings[t.ID] = t
	}
	return rows.Err()
}

func (r *repository) loadSlots(ctx context.Context, conn db.Executor, menu *Menu, promotionIDs []int64) error {
	rows, err := conn.QueryContext(ctx, `
		SELECT a.promotion_id, a.slot_id, s.name, a.quantity
		FROM promotion_slot_assignments a
		JOIN promotion_slots s ON s.id = a.slot_id
		WHERE a.promotion_id = ANY($1)
		ORDER BY a.promotion_id, a.slot_id
	`, pq.Array(promotionIDs))
	if err != nil {
		return err
	}

	var slotIDs []int64
	seen := make(map[int64]bool)
	for rows.Next() {
		a := SlotAssignment{Options: make(map[int64]SlotOption)}
		if err := rows.Scan(&a.PromotionID, &a.SlotID, &a.SlotName, &a.Quantity); err != nil {
			rows.Close()
			return err
		}
		menu.Slots[a.PromotionID] = append(menu.Slots[a.PromotionID], a)
		if !seen[a.SlotID] {
			seen[a.SlotID] = true
			slotIDs = append(slotIDs, a.SlotID)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if len(slotIDs) == 0 {
		return nil
	}

	optRows, err := conn.QueryContext(ctx, `
		SELECT slot_id, product_id, extra_cost, is_active
		FROM promotion_slot_options
		WHERE slot_id = ANY($1)
	`, pq.Array(slotIDs))
	if err != nil {
		return err
	}
	defer optRows.Close()

	options := make(map[int64]map[int64]SlotOption)
	for optRows.Next() {
		var slotID int64
		var o SlotOption
		if err := optRows.Scan(&slotID, &o.ProductID, &o.ExtraCost, &o.Active); err != nil {
			return err
		}
		if options[slotID] == nil {
			options[slotID] = make(map[int64]SlotOption)
		}
		options[slotID][o.ProductID] = o
	}
	if err := optRows.Err(); err != nil {
		return err
	}

	for promotionID, assignments := range menu.Slots {
		for i := range assignments {
			for productID, opt := range options[assignments[i].SlotID] {
				assignments[i].Options[productID] = opt
			}
		}
		menu.Slots[promotionID] = assignments
	}
	return nil
}
