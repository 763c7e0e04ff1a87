package product

import "context"

type menuKey struct{}

// WithMenu attaches a catalog snapshot already loaded for the request.
func WithMenu(ctx context.Context, m *Menu) context.Context {
	return context.WithValue(ctx, menuKey{}, m)
}

func MenuFromCtx(ctx context.Context) (*Menu, bool) {
	m, ok := ctx.Value(menuKey{}).(*Menu)
	return m, ok && m != nil
}

// Covers reports whether every listed product and topping is in the snapshot.
func (m *Menu) Covers(productIDs, toppingIDs []int64) bool {
	for _, id := range productIDs {
		if _, ok := m.Products[id]; !ok {
			return false
		}
	}
	for _, id := range toppingIDs {
		if _, ok := m.Toppings[id]; !ok {
			return false
		}
	}
	return true
}
