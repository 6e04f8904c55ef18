package models

// ItemKind tags which of the three catalog families a record belongs to.
// Movements, barcodes, commission programs and the analysis ignore list all
// carry the kind alongside the item id.
type ItemKind string

const (
	KindTire      ItemKind = "tire"
	KindWheel     ItemKind = "wheel"
	KindSparePart ItemKind = "spare_part"
)

// AllKinds is the iteration order used by reports and the recommender.
var AllKinds = []ItemKind{KindTire, KindWheel, KindSparePart}

func (k ItemKind) Valid() bool {
	return k == KindTire || k == KindWheel || k == KindSparePart
}

// MovementTable returns the ledger table backing a kind. All three tables
// share the StockMovement row shape.
func MovementTable(k ItemKind) string {
	switch k {
	case KindTire:
		return "tire_movements"
	case KindWheel:
		return "wheel_movements"
	case KindSparePart:
		return "spare_part_movements"
	}
	return ""
}

// StockItem is the common lifecycle surface of the three catalog families.
// Handlers use it to run the movement arithmetic without caring which table
// the item lives in.
type StockItem interface {
	ItemID() uint
	CurrentQuantity() int
	SetQuantity(q int)
	Deleted() bool
	BrandName() string
	// Label is a short human description used in notification messages.
	Label() string
}
