package models

import (
	"time"

	"github.com/google/uuid"
)

// CommissionProgram attributes a fixed commission per unit to retail
// storefront OUT events on one item between StartDate and EndDate
// (inclusive; a null EndDate means open-ended). Dates are civil dates in
// the display zone, stored at midnight UTC.
type CommissionProgram struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	ItemKind      ItemKind   `gorm:"not null;index:idx_commission_item" json:"item_kind"`
	ItemID        uint       `gorm:"not null;index:idx_commission_item" json:"item_id"`
	StartDate     time.Time  `gorm:"not null" json:"start_date"`
	EndDate       *time.Time `json:"end_date"`
	AmountPerItem float64    `gorm:"not null" json:"amount_per_item"`
	CreatedBy     uuid.UUID  `gorm:"type:uuid" json:"created_by"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Covers reports whether the program window contains the civil date d
// (truncated to midnight).
func (p *CommissionProgram) Covers(d time.Time) bool {
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	if day.Before(p.StartDate) {
		return false
	}
	if p.EndDate != nil && day.After(*p.EndDate) {
		return false
	}
	return true
}
