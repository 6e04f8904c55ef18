package models

import "time"

// Barcode binds a scanned code to exactly one item across all three kinds.
// Code is globally unique; at most one primary barcode per item.
type Barcode struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ItemKind  ItemKind  `gorm:"not null;index:idx_barcodes_item" json:"item_kind"`
	ItemID    uint      `gorm:"not null;index:idx_barcodes_item" json:"item_id"`
	Code      string    `gorm:"not null;uniqueIndex" json:"code"`
	IsPrimary bool      `gorm:"not null;default:false" json:"is_primary"`
	CreatedAt time.Time `json:"created_at"`
}
