package models

import (
	"fmt"
	"time"
)

type Tire struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	Brand             string     `gorm:"not null;index" json:"brand"`
	Model             string     `gorm:"not null" json:"model"`
	Size              string     `gorm:"not null" json:"size"`
	YearOfManufacture *int       `json:"year_of_manufacture"`
	Quantity          int        `gorm:"not null;default:0" json:"quantity"`
	CostSC            *float64   `gorm:"column:cost_sc" json:"cost_sc"`
	CostDunlop        *float64   `json:"cost_dunlop"`
	CostOnline        *float64   `json:"cost_online"`
	WholesalePrice1   *float64   `json:"wholesale_price1"`
	WholesalePrice2   *float64   `json:"wholesale_price2"`
	PricePerItem      *float64   `gorm:"not null" json:"price_per_item"`
	PromotionID       *uint      `json:"promotion_id"`
	Promotion         *Promotion `gorm:"foreignKey:PromotionID" json:"promotion,omitempty"`
	IsDeleted         bool       `gorm:"not null;default:false;index" json:"is_deleted"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"last_updated_at"`
}

func (t *Tire) ItemID() uint         { return t.ID }
func (t *Tire) CurrentQuantity() int { return t.Quantity }
func (t *Tire) SetQuantity(q int)    { t.Quantity = q }
func (t *Tire) Deleted() bool        { return t.IsDeleted }
func (t *Tire) BrandName() string    { return t.Brand }

func (t *Tire) Label() string {
	return fmt.Sprintf("%s %s %s", t.Brand, t.Model, t.Size)
}
