package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ReconciliationOpen      = "open"
	ReconciliationCompleted = "completed"
)

// Reconciliation is the per-day record pairing the system's movement log
// with the staff-authored manager ledger. Date is the civil day at midnight
// UTC and is unique. The manager ledger is stored verbatim.
type Reconciliation struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Date          time.Time      `gorm:"not null;uniqueIndex" json:"date"`
	OpenerUserID  uuid.UUID      `gorm:"type:uuid" json:"opener_user_id"`
	Status        string         `gorm:"not null;default:open" json:"status"`
	ManagerLedger datatypes.JSON `json:"manager_ledger"`
	CompletedAt   *time.Time     `json:"completed_at"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"last_updated_at"`
}
