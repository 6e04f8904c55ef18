package models

import "time"

// Promotion kinds.
const (
	PromoBuyXGetY           = "buy_x_get_y"
	PromoPercentageDiscount = "percentage_discount"
	PromoFixedPricePerN     = "fixed_price_per_n"
)

// Promotion transforms a tire's base price into a bundled effective price
// while active. V1/V2 meaning depends on Kind: buy_x_get_y uses (x, y),
// percentage_discount uses (percent, -), fixed_price_per_n uses (price, n)
// where a null n means the standard set of 4.
type Promotion struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null;uniqueIndex" json:"name"`
	Kind      string    `gorm:"not null" json:"kind"`
	V1        float64   `gorm:"not null" json:"v1"`
	V2        *float64  `json:"v2"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"last_updated_at"`
}
