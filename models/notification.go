package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification is one row of the user-visible event stream. Every engine
// write appends one.
type Notification struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	ActorUserID uuid.UUID `gorm:"type:uuid" json:"actor_user_id"`
	Message     string    `gorm:"not null" json:"message"`
	IsRead      bool      `gorm:"not null;default:false;index" json:"is_read"`
}

// ActivityLog is the audit trail, one row per authenticated request.
// Rows older than the configured retention are pruned.
type ActivityLog struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
	UserID        uuid.UUID `gorm:"type:uuid" json:"user_id"`
	EndpointLabel string    `json:"endpoint_label"`
	Method        string    `json:"method"`
	Path          string    `json:"path"`
}

type Announcement struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"not null" json:"title"`
	Body      string    `json:"body"`
	CreatedBy uuid.UUID `gorm:"type:uuid" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

type Feedback struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid" json:"user_id"`
	Message   string    `gorm:"not null" json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
