package handlers

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	"tirestock-backend/cache"
	"tirestock-backend/config"
	"tirestock-backend/models"
	"tirestock-backend/permissions"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// callerID returns the authenticated user's id, or uuid.Nil when the
// request skipped auth (the chatbot endpoint).
func callerID(c *gin.Context) uuid.UUID {
	v, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil
	}
	id, _ := v.(uuid.UUID)
	return id
}

func callerRole(c *gin.Context) permissions.Role {
	v, exists := c.Get("user_role")
	if !exists {
		return permissions.RoleViewer
	}
	r, _ := v.(string)
	return permissions.Role(r)
}

func parseUintParam(c *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(n), true
}

func parseKind(c *gin.Context) (models.ItemKind, bool) {
	kind := models.ItemKind(c.Param("kind"))
	return kind, kind.Valid()
}

// parseCivilDate parses YYYY-MM-DD as midnight in the display zone.
func parseCivilDate(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, config.DisplayZone())
}

// dayBoundsUTC returns the UTC instants bounding the civil day that
// contains d in the display zone: [start, end).
func dayBoundsUTC(d time.Time) (time.Time, time.Time) {
	loc := config.DisplayZone()
	local := d.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}

// civilDateUTC truncates d to its civil date in the display zone,
// represented as midnight UTC. Used as the canonical key for per-day rows
// (reconciliation) and commission windows.
func civilDateUTC(d time.Time) time.Time {
	local := d.In(config.DisplayZone())
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// notify appends one row to the user-visible event stream. Notification
// failures never fail the write they describe.
func notify(db *gorm.DB, actor uuid.UUID, message string) {
	n := models.Notification{ActorUserID: actor, Message: message}
	if err := db.Create(&n).Error; err != nil {
		log.Printf("notification write failed: %v", err)
	}
}

// invalidateCatalog drops every cache key a catalog or movement writer
// could have made stale. Called after commit.
func invalidateCatalog(c *gin.Context, store cache.Cache, kind models.ItemKind) {
	invalidateCatalogKeys(c.Request.Context(), store, kind)
}

// invalidateCatalogKeys is the context-free variant for background jobs,
// which must drop the keys after their own commits, not when the request
// that started them returns.
func invalidateCatalogKeys(ctx context.Context, store cache.Cache, kind models.ItemKind) {
	store.Delete(ctx, cache.KeyBrandList(string(kind)), cache.KeyUnreadNotifications, cache.KeyWholesaleSummary)
	store.DeleteByPrefix(ctx, cache.ItemListPrefix(string(kind)))
}

func invalidateReference(c *gin.Context, store cache.Cache) {
	store.Delete(c.Request.Context(),
		cache.KeyReferenceChannels, cache.KeyReferencePlatforms, cache.KeyReferenceWholesale)
}

// normalizeKey lowercases and trims the string parts of catalog
// uniqueness keys so lookups stay case-insensitive.
func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
