package models

import (
	"time"

	"github.com/google/uuid"
)

// Movement event types.
const (
	MovementIn     = "IN"
	MovementOut    = "OUT"
	MovementReturn = "RETURN"
)

// Return sub-attribution, required when Type is RETURN.
const (
	ReturnCustomerOnline          = "online"
	ReturnCustomerStorefrontShop  = "storefront_shop"
	ReturnCustomerStorefrontWalk  = "storefront_walkin"
)

// StockMovement is one append to an item's ledger. The same row shape backs
// three tables (tire_movements, wheel_movements, spare_part_movements);
// queries always go through db.Table(models.MovementTable(kind)).
//
// RemainingQuantity is the item's on-hand count immediately after this
// movement, i.e. the fold of the item's history up to and including it.
type StockMovement struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	Timestamp           time.Time  `gorm:"not null;index" json:"timestamp"`
	ItemID              uint       `gorm:"not null;index" json:"item_id"`
	Type                string     `gorm:"not null" json:"type"`
	QuantityChange      int        `gorm:"not null" json:"quantity_change"`
	RemainingQuantity   int        `gorm:"not null" json:"remaining_quantity"`
	Notes               *string    `json:"notes"`
	ImageRef            *string    `json:"image_ref"`
	UserID              uuid.UUID  `gorm:"type:uuid" json:"user_id"`
	ChannelID           uint       `gorm:"not null;index" json:"channel_id"`
	OnlinePlatformID    *uint      `json:"online_platform_id"`
	WholesaleCustomerID *uint      `json:"wholesale_customer_id"`
	ReturnCustomerType  *string    `json:"return_customer_type"`
	AccruedCommission   *float64   `json:"accrued_commission"`
}

// SignedChange is the movement's contribution to the running balance:
// IN and RETURN add stock, OUT removes it.
func (m *StockMovement) SignedChange() int {
	if m.Type == MovementOut {
		return -m.QuantityChange
	}
	return m.QuantityChange
}
