package models

import (
	"fmt"
	"time"
)

type Wheel struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Brand           string    `gorm:"not null;index" json:"brand"`
	Model           string    `gorm:"not null" json:"model"`
	Diameter        string    `gorm:"not null" json:"diameter"`
	PCD             string    `gorm:"column:pcd;not null" json:"pcd"`
	Width           string    `gorm:"not null" json:"width"`
	ET              *string   `gorm:"column:et" json:"et"`
	Color           *string   `json:"color"`
	Quantity        int       `gorm:"not null;default:0" json:"quantity"`
	Cost            *float64  `json:"cost"`
	CostOnline      *float64  `json:"cost_online"`
	WholesalePrice1 *float64  `json:"wholesale_price1"`
	WholesalePrice2 *float64  `json:"wholesale_price2"`
	RetailPrice     *float64  `gorm:"not null" json:"retail_price"`
	ImageRef        *string   `json:"image_ref"`
	IsDeleted       bool      `gorm:"not null;default:false;index" json:"is_deleted"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"last_updated_at"`
}

func (w *Wheel) ItemID() uint         { return w.ID }
func (w *Wheel) CurrentQuantity() int { return w.Quantity }
func (w *Wheel) SetQuantity(q int)    { w.Quantity = q }
func (w *Wheel) Deleted() bool        { return w.IsDeleted }
func (w *Wheel) BrandName() string    { return w.Brand }

func (w *Wheel) Label() string {
	return fmt.Sprintf("%s %s %sx%s", w.Brand, w.Model, w.Diameter, w.Width)
}

// SpecString is the composite size string used by search and report ordering.
func (w *Wheel) SpecString() string {
	return fmt.Sprintf("%sx%s %s", w.Diameter, w.Width, w.PCD)
}
