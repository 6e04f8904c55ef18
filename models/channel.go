package models

import "time"

// Canonical sales channel names. The movement rules key off these, so the
// seeder creates them and catalog code never renames them.
const (
	ChannelReceivePurchase     = "receive-purchase"
	ChannelReceiveReturn       = "receive-return"
	ChannelStorefrontRetail    = "storefront-retail"
	ChannelStorefrontWholesale = "storefront-wholesale"
	ChannelOnline              = "online"
)

type SalesChannel struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"not null;uniqueIndex" json:"name"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsReceiving reports whether the channel is one of the receive-* channels,
// which are reserved for IN and RETURN events.
func (c *SalesChannel) IsReceiving() bool {
	return c.Name == ChannelReceivePurchase || c.Name == ChannelReceiveReturn
}

type OnlinePlatform struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type WholesaleCustomer struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Phone     *string   `json:"phone"`
	Notes     *string   `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}
