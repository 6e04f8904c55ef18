// Package permissions maps caller roles to write capabilities and
// field-level visibility. The filters are pure: they take a record by value
// and return a copy with the fields the role may not see set to null, so
// the response shape stays stable across roles.
package permissions

import "tirestock-backend/models"

type Role string

const (
	RoleAdmin          Role = "admin"
	RoleEditor         Role = "editor"
	RoleRetailSales    Role = "retail_sales"
	RoleWholesaleSales Role = "wholesale_sales"
	RoleAccountant     Role = "accountant"
	RoleViewer         Role = "viewer"
)

func Valid(r Role) bool {
	switch r {
	case RoleAdmin, RoleEditor, RoleRetailSales, RoleWholesaleSales, RoleAccountant, RoleViewer:
		return true
	}
	return false
}

// CanWrite reports whether the role may create/update catalog records and
// record arbitrary movements.
func CanWrite(r Role) bool {
	return r == RoleAdmin || r == RoleEditor
}

// CanScannerWrite reports whether the role may record movements of the
// given type. retail_sales carries a scanner and may only receive stock
// (IN) and take returns (RETURN).
func CanScannerWrite(r Role, movementType string) bool {
	if CanWrite(r) {
		return true
	}
	if r == RoleRetailSales {
		return movementType == models.MovementIn || movementType == models.MovementReturn
	}
	return false
}

func CanHardDelete(r Role) bool { return r == RoleAdmin }

func CanViewCost(r Role) bool {
	return r == RoleAdmin || r == RoleEditor || r == RoleAccountant
}

func CanViewWholesale(r Role) bool {
	return r == RoleAdmin || r == RoleEditor || r == RoleWholesaleSales || r == RoleAccountant
}

func CanViewRetail(r Role) bool {
	return r == RoleAdmin || r == RoleEditor || r == RoleRetailSales || r == RoleAccountant
}

func CanViewCommission(r Role) bool { return r == RoleAdmin }

// FilterTire nulls the price fields the role may not see.
func FilterTire(r Role, t models.Tire) models.Tire {
	if !CanViewCost(r) {
		t.CostSC = nil
		t.CostDunlop = nil
		t.CostOnline = nil
	}
	if !CanViewWholesale(r) {
		t.WholesalePrice1 = nil
		t.WholesalePrice2 = nil
	}
	if !CanViewRetail(r) {
		t.PricePerItem = nil
		t.PromotionID = nil
		t.Promotion = nil
	}
	return t
}

func FilterWheel(r Role, w models.Wheel) models.Wheel {
	if !CanViewCost(r) {
		w.Cost = nil
		w.CostOnline = nil
	}
	if !CanViewWholesale(r) {
		w.WholesalePrice1 = nil
		w.WholesalePrice2 = nil
	}
	if !CanViewRetail(r) {
		w.RetailPrice = nil
	}
	return w
}

func FilterSparePart(r Role, s models.SparePart) models.SparePart {
	if !CanViewCost(r) {
		s.Cost = nil
		s.CostOnline = nil
	}
	if !CanViewWholesale(r) {
		s.WholesalePrice1 = nil
		s.WholesalePrice2 = nil
	}
	if !CanViewRetail(r) {
		s.RetailPrice = nil
	}
	return s
}

// FilterMovement hides commission data from everyone but admin.
func FilterMovement(r Role, m models.StockMovement) models.StockMovement {
	if !CanViewCommission(r) {
		m.AccruedCommission = nil
	}
	return m
}
