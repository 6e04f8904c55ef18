package models

import "time"

type SparePart struct {
	ID              uint               `gorm:"primaryKey" json:"id"`
	Name            string             `gorm:"not null;index" json:"name"`
	PartNumber      *string            `json:"part_number"`
	Brand           *string            `json:"brand"`
	Description     *string            `json:"description"`
	CategoryID      *uint              `json:"category_id"`
	Category        *SparePartCategory `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Quantity        int                `gorm:"not null;default:0" json:"quantity"`
	Cost            *float64           `json:"cost"`
	CostOnline      *float64           `json:"cost_online"`
	WholesalePrice1 *float64           `json:"wholesale_price1"`
	WholesalePrice2 *float64           `json:"wholesale_price2"`
	RetailPrice     *float64           `gorm:"not null" json:"retail_price"`
	ImageRef        *string            `json:"image_ref"`
	IsDeleted       bool               `gorm:"not null;default:false;index" json:"is_deleted"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"last_updated_at"`
}

func (s *SparePart) ItemID() uint         { return s.ID }
func (s *SparePart) CurrentQuantity() int { return s.Quantity }
func (s *SparePart) SetQuantity(q int)    { s.Quantity = q }
func (s *SparePart) Deleted() bool        { return s.IsDeleted }

func (s *SparePart) BrandName() string {
	if s.Brand != nil {
		return *s.Brand
	}
	return ""
}

func (s *SparePart) Label() string {
	if s.PartNumber != nil && *s.PartNumber != "" {
		return s.Name + " (" + *s.PartNumber + ")"
	}
	return s.Name
}

// SparePartCategory nodes form a forest. DeleteCategory refuses nodes that
// still have children or active spare parts.
type SparePartCategory struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	DisplayName string    `gorm:"not null" json:"display_name"`
	ParentID    *uint     `json:"parent_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"last_updated_at"`
}
