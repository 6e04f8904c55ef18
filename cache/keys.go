package cache

import "time"

// Key catalog. List keys are prefixed per kind so a writer can invalidate
// every filtered variant with one DeleteByPrefix.
const (
	KeyReferenceChannels   = "ref:channels"
	KeyReferencePlatforms  = "ref:platforms"
	KeyReferenceWholesale  = "ref:wholesale_customers"
	KeyPromotionList       = "promotions:list"
	KeyCategoryTree        = "categories:tree"
	KeyUnreadNotifications = "notifications:unread_count"
	KeyWholesaleSummary    = "wholesale:summary"
)

func KeyBrandList(kind string) string { return "brands:" + kind }
func ItemListPrefix(kind string) string { return "items:" + kind + ":" }

// TTLs: reference data changes rarely, catalog lists churn, the unread
// badge just needs to be roughly right.
const (
	TTLReference = 6 * time.Hour
	TTLItemList  = 5 * time.Minute
	TTLUnread    = 5 * time.Minute
)
