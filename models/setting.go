package models

import "time"

// Setting is a simple key/value row for engine state that survives
// restarts, e.g. the activity-log pruner's last run time and the chatbot
// minimum-profit threshold.
type Setting struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"last_updated_at"`
}

// Well-known setting keys.
const (
	SettingActivityLogPrunedAt = "activity_log_last_pruned_at"
	SettingChatbotMinProfit    = "chatbot_min_profit_per_tire"
)

// BrandLeadTime remembers the restock lead time per brand for the reorder
// recommender. Brands without a row default to 7 days.
type BrandLeadTime struct {
	Brand     string    `gorm:"primaryKey" json:"brand"`
	Days      int       `gorm:"not null" json:"days"`
	UpdatedAt time.Time `json:"last_updated_at"`
}

const DefaultLeadTimeDays = 7

// AnalysisIgnore hides an item from the reorder recommender until restored.
type AnalysisIgnore struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ItemKind  ItemKind  `gorm:"not null;uniqueIndex:idx_analysis_ignore_item" json:"item_kind"`
	ItemID    uint      `gorm:"not null;uniqueIndex:idx_analysis_ignore_item" json:"item_id"`
	CreatedAt time.Time `json:"created_at"`
}
