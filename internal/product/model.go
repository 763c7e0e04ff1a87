package product

import "github.com/shopspring/decimal"

type Kind string

const (
	// KindSimple products are sold as-is and keep their own stock count.
	KindSimple Kind = "SIMPLE"
	// KindCompound products are prepared from recipe ingredients.
	KindCompound  Kind = "COMPOUND"
	KindPromotion Kind = "PROMOTION"
)

type Product struct {
	ID     int64
	Name   string
	Kind   Kind
	Price  decimal.Decimal
	Active bool
}

type ToppingGroupKey struct {
	ProductID int64
	GroupID   int64
}

// ToppingGroupConfig is how a topping group behaves on one specific product.
type ToppingGroupConfig struct {
	ProductID   int64
	GroupID     int64
	ChargeExtra bool
	ExtraCost   decimal.Decimal
}

type Topping struct {
	ID            int64
	Name          string
	GroupID       int64
	IngredientID  int64
	UnitOfMeasure string
	Portion       decimal.Decimal
	Active        bool
}

type SlotOption struct {
	ProductID int64
	ExtraCost decimal.Decimal
	Active    bool
}

// SlotAssignment declares how many picks a promotion requires from one slot.
type SlotAssignment struct {
	PromotionID int64
	SlotID      int64
	SlotName    string
	Quantity    int
	Options     map[int64]SlotOption
}

// Menu is a read-only snapshot of the catalog rows one request needs.
type Menu struct {
	Products      map[int64]Product
	ToppingGroups map[ToppingGroupKey]ToppingGroupConfig
	Toppings      map[int64]Topping
	Slots         map[int64][]SlotAssignment
}

func NewMenu() *Menu {
	return &Menu{
		Products:      make(map[int64]Product),
		ToppingGroups: make(map[ToppingGroupKey]ToppingGroupConfig),
		Toppings:      make(map[int64]Topping),
		Slots:         make(map[int64][]SlotAssignment),
	}
}

func (m *Menu) Slot(promotionID, slotID int64) (SlotAssignment, bool) {
	for _, a := range m.Slots[promotionID] {
		if a.SlotID == slotID {
			return a, true
		}
	}
	return SlotAssignment{}, false
}
