package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tirestock-backend/analytics"
	"tirestock-backend/models"
	"tirestock-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AnalyticsHandler struct {
	DB *gorm.DB
}

const defaultAnalysisWindowDays = 30

type analyticsLine struct {
	ItemKind models.ItemKind      `json:"item_kind"`
	ItemID   uint                 `json:"item_id"`
	Label    string               `json:"label"`
	Brand    string               `json:"brand"`
	Quantity int                  `json:"quantity"`
	Outlook  analytics.Assessment `json:"outlook"`
}

// soldInWindow is OUT minus RETURN per item over [start, end).
func soldInWindow(db *gorm.DB, kind models.ItemKind, start, end time.Time) (map[uint]int, error) {
	var rows []struct {
		ItemID uint
		Qty    int
	}
	err := db.Table(models.MovementTable(kind)).
		Select("item_id, SUM(CASE type WHEN 'OUT' THEN quantity_change WHEN 'RETURN' THEN -quantity_change ELSE 0 END) AS qty").
		Where("timestamp >= ? AND timestamp < ?", start, end).
		Group("item_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uint]int, len(rows))
	for _, r := range rows {
		out[r.ItemID] = r.Qty
	}
	return out, nil
}

// leadTimes loads every stored brand lead time, keyed by normalized brand.
func leadTimes(db *gorm.DB) (map[string]int, error) {
	var rows []models.BrandLeadTime
	if err := db.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[normalizeKey(r.Brand)] = r.Days
	}
	return out, nil
}

func leadTimeFor(stored map[string]int, brand string) int {
	if days, ok := stored[normalizeKey(brand)]; ok {
		return days
	}
	return models.DefaultLeadTimeDays
}

// ignoredSet loads the ignore list for one kind.
func ignoredSet(db *gorm.DB, kind models.ItemKind) (map[uint]bool, error) {
	var rows []models.AnalysisIgnore
	if err := db.Where("item_kind = ?", kind).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[uint]bool, len(rows))
	for _, r := range rows {
		out[r.ItemID] = true
	}
	return out, nil
}

func windowDaysParam(c *gin.Context) int {
	days, err := strconv.Atoi(c.DefaultQuery("window_days", strconv.Itoa(defaultAnalysisWindowDays)))
	if err != nil || days < 1 {
		return defaultAnalysisWindowDays
	}
	return days
}

// matchesFilter applies the optional search/brand filters.
func matchesFilter(label, brand, search, brandFilter string) bool {
	if brandFilter != "" && normalizeKey(brand) != normalizeKey(brandFilter) {
		return false
	}
	if search != "" && !strings.Contains(normalizeKey(label), normalizeKey(search)) {
		return false
	}
	return true
}

func (h *AnalyticsHandler) kindLines(kind models.ItemKind, windowDays int, search, brandFilter string) ([]analyticsLine, error) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -windowDays)

	sold, err := soldInWindow(h.DB, kind, start, end)
	if err != nil {
		return nil, err
	}
	stored, err := leadTimes(h.DB)
	if err != nil {
		return nil, err
	}
	ignored, err := ignoredSet(h.DB, kind)
	if err != nil {
		return nil, err
	}

	var lines []analyticsLine
	appendLine := func(item models.StockItem) {
		if ignored[item.ItemID()] {
			return
		}
		if !matchesFilter(item.Label(), item.BrandName(), search, brandFilter) {
			return
		}
		lines = append(lines, analyticsLine{
			ItemKind: kind,
			ItemID:   item.ItemID(),
			Label:    item.Label(),
			Brand:    item.BrandName(),
			Quantity: item.CurrentQuantity(),
			Outlook: analytics.Assess(item.CurrentQuantity(), sold[item.ItemID()],
				windowDays, leadTimeFor(stored, item.BrandName())),
		})
	}

	switch kind {
	case models.KindTire:
		var tires []models.Tire
		if err := h.DB.Where("is_deleted = ?", false).Order("brand asc, model asc, size asc").Find(&tires).Error; err != nil {
			return nil, err
		}
		for i := range tires {
			appendLine(&tires[i])
		}
	case models.KindWheel:
		var wheels []models.Wheel
		if err := h.DB.Where("is_deleted = ?", false).Order("brand asc, model asc").Find(&wheels).Error; err != nil {
			return nil, err
		}
		for i := range wheels {
			appendLine(&wheels[i])
		}
	case models.KindSparePart:
		var parts []models.SparePart
		if err := h.DB.Where("is_deleted = ?", false).Order("name asc").Find(&parts).Error; err != nil {
			return nil, err
		}
		for i := range parts {
			appendLine(&parts[i])
		}
	}
	return lines, nil
}

// GetRecommendations reports the reorder outlook for every active,
// non-ignored item in scope. Scope is one kind via :kind, filtered by
// optional search and brand query params.
func (h *AnalyticsHandler) GetRecommendations(c *gin.Context) {
	kind, ok := parseKind(c)
	if !ok {
		respondError(c, ErrValidation, "Unknown item kind")
		return
	}
	windowDays := windowDaysParam(c)

	lines, err := h.kindLines(kind, windowDays, c.Query("search"), c.Query("brand"))
	if err != nil {
		respondError(c, ErrInternal, "Failed to build analysis")
		return
	}
	if lines == nil {
		lines = []analyticsLine{}
	}
	c.JSON(http.StatusOK, gin.H{
		"window_days": windowDays,
		"items":       lines,
	})
}

// RecalcItem reassesses a single item, called after a lead-time edit so
// the UI can refresh one row without rebuilding the whole report.
func (h *AnalyticsHandler) RecalcItem(c *gin.Context) {
	kind, ok := parseKind(c)
	if !ok {
		respondError(c, ErrValidation, "Unknown item kind")
		return
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondError(c, ErrValidation, "Invalid id")
		return
	}
	windowDays := windowDaysParam(c)

	item, err := loadItem(h.DB, kind, id)
	if err != nil {
		respondError(c, ErrNotFound, "Item not found")
		return
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -windowDays)
	sold, err := soldInWindow(h.DB, kind, start, end)
	if err != nil {
		respondError(c, ErrInternal, "Failed to build analysis")
		return
	}
	stored, err := leadTimes(h.DB)
	if err != nil {
		respondError(c, ErrInternal, "Failed to build analysis")
		return
	}

	c.JSON(http.StatusOK, analyticsLine{
		ItemKind: kind,
		ItemID:   item.ItemID(),
		Label:    item.Label(),
		Brand:    item.BrandName(),
		Quantity: item.CurrentQuantity(),
		Outlook: analytics.Assess(item.CurrentQuantity(), sold[item.ItemID()],
			windowDays, leadTimeFor(stored, item.BrandName())),
	})
}

type leadTimeRequest struct {
	Brand string `json:"brand" binding:"required"`
	Days  int    `json:"days" binding:"required,gte=1"`
}

// SetLeadTime upserts the restock lead time for a brand.
func (h *AnalyticsHandler) SetLeadTime(c *gin.Context) {
	var req leadTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrValidation, utils.SanitizeValidationError(err))
		return
	}

	row := models.BrandLeadTime{Brand: strings.TrimSpace(req.Brand), Days: req.Days}
	if err := h.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "brand"}},
		DoUpdates: clause.AssignmentColumns([]string{"days", "updated_at"}),
	}).Create(&row).Error; err != nil {
		respondError(c, ErrInternal, "Failed to store lead time")
		return
	}

	notify(h.DB, callerID(c), fmt.Sprintf("Set lead time for %s to %d days", row.Brand, row.Days))
	c.JSON(http.StatusOK, row)
}

func (h *AnalyticsHandler) GetLeadTimes(c *gin.Context) {
	var rows []models.BrandLeadTime
	if err := h.DB.Order("brand asc").Find(&rows).Error; err != nil {
		respondError(c, ErrInternal, "Failed to fetch lead times")
		return
	}
	c.JSON(http.StatusOK, rows)
}

// IgnoreItem removes an item from the reorder report until restored.
func (h *AnalyticsHandler) IgnoreItem(c *gin.Context) {
	kind, ok := parseKind(c)
	if !ok {
		respondError(c, ErrValidation, "Unknown item kind")
		return
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondError(c, ErrValidation, "Invalid id")
		return
	}
	if _, err := loadItem(h.DB, kind, id); err != nil {
		respondError(c, ErrNotFound, "Item not found")
		return
	}

	row := models.AnalysisIgnore{ItemKind: kind, ItemID: id}
	if err := h.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		respondError(c, ErrInternal, "Failed to ignore item")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item ignored"})
}

// RestoreItem puts an ignored item back into the reorder report.
func (h *AnalyticsHandler) RestoreItem(c *gin.Context) {
	kind, ok := parseKind(c)
	if !ok {
		respondError(c, ErrValidation, "Unknown item kind")
		return
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondError(c, ErrValidation, "Invalid id")
		return
	}

	result := h.DB.Where("item_kind = ? AND item_id = ?", kind, id).Delete(&models.AnalysisIgnore{})
	if result.Error != nil {
		respondError(c, ErrInternal, "Failed to restore item")
		return
	}
	if result.RowsAffected == 0 {
		respondError(c, ErrNotFound, "Item is not ignored")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item restored"})
}
