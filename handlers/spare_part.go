package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"tirestock-backend/cache"
	"tirestock-backend/models"
	"tirestock-backend/permissions"
	"tirestock-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type SparePartHandler struct {
	DB    *gorm.DB
	Cache cache.Cache
}

type sparePartRequest struct {
	Name            string   `json:"name" binding:"required"`
	PartNumber      *string  `json:"part_number"`
	Brand           *string  `json:"brand"`
	Description     *string  `json:"description"`
	CategoryID      *uint    `json:"category_id"`
	Quantity        int      `json:"quantity" binding:"gte=0"`
	Cost            *float64 `json:"cost"`
	CostOnline      *float64 `json:"cost_online"`
	WholesalePrice1 *float64 `json:"wholesale_price1"`
	WholesalePrice2 *float64 `json:"wholesale_price2"`
	RetailPrice     *float64 `json:"retail_price" binding:"required"`
	ImageRef        *string  `json:"image_ref"`
}

// sparePartDuplicateQuery matches (name, part_number) when a part number is
// present, else (name, brand).
func sparePartDuplicateQuery(db *gorm.DB, req *sparePartRequest) *gorm.DB {
	q := db.Model(&models.SparePart{}).Where("LOWER(name) = LOWER(?)", req.Name)
	if req.PartNumber != nil && *req.PartNumber != "" {
		return q.Where("LOWER(part_number) = LOWER(?)", *req.PartNumber)
	}
	if req.Brand != nil {
		return q.Where("LOWER(brand) = LOWER(?)", *req.Brand)
	}
	return q.Where("brand IS NULL")
}

func normalizeBrandPtr(brand *string) *string {
	if brand == nil {
		return nil
	}
	b := normalizeKey(*brand)
	return &b
}

func (h *SparePartHandler) CreateSparePart(c *gin.Context) {
	var req sparePartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrValidation, utils.SanitizeValidationError(err))
		return
	}

	var count int64
	sparePartDuplicateQuery(h.DB, &req).Count(&count)
	if count > 0 {
		respondError(c, ErrDuplicateKey, "A spare part with this name already exists")
		return
	}

	if req.CategoryID != nil {
		var cat models.SparePartCategory
		if err := h.DB.First(&cat, *req.CategoryID).Error; err != nil {
			respondError(c, ErrNotFound, "Category not found")
			return
		}
	}

	part := models.SparePart{
		Name:            req.Name,
		PartNumber:      req.PartNumber,
		Brand:           normalizeBrandPtr(req.Brand),
		Description:     req.Description,
		CategoryID:      req.CategoryID,
		Quantity:        req.Quantity,
		Cost:            req.Cost,
		CostOnline:      req.CostOnline,
		WholesalePrice1: req.WholesalePrice1,
		WholesalePrice2: req.WholesalePrice2,
		RetailPrice:     req.RetailPrice,
		ImageRef:        req.ImageRef,
	}

	tx := h.DB.Begin()
	if err := tx.Create(&part).Error; err != nil {
		tx.Rollback()
		respondError(c, ErrInternal, "Failed to create spare part")
		return
	}
	if err := recordInitialStock(tx, c, models.KindSparePart, part.ID, part.Quantity, "initial stock"); err != nil {
		tx.Rollback()
		respondError(c, ErrInternal, "Failed to record initial stock")
		return
	}
	if err := tx.Commit().Error; err != nil {
		respondError(c, ErrInternal, "Failed to create spare part")
		return
	}

	notify(h.DB, callerID(c), fmt.Sprintf("Created spare part %s", part.Label()))
	invalidateCatalog(c, h.Cache, models.KindSparePart)

	c.JSON(http.StatusCreated, part)
}

func (h *SparePartHandler) UpdateSparePart(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondError(c, ErrValidation, "Invalid id")
		return
	}

	var part models.SparePart
	if err := h.DB.First(&part, id).Error; err != nil {
		respondError(c, ErrNotFound, "Spare part not found")
		return
	}
	if part.IsDeleted {
		respondError(c, ErrStaleItem, "Spare part is deleted")
		return
	}

	var req sparePartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrValidation, utils.SanitizeValidationError(err))
		return
	}

	var count int64
	sparePartDuplicateQuery(h.DB, &req).Where("id <> ?", id).Count(&count)
	if count > 0 {
		respondError(c, ErrDuplicateKey, "A spare part with this name already exists")
		return
	}

	if req.CategoryID != nil {
		var cat models.SparePartCategory
		if err := h.DB.First(&cat, *req.CategoryID).Error; err != nil {
			respondError(c, ErrNotFound, "Category not found")
			return
		}
	}

	part.Name = req.Name
	part.PartNumber = req.PartNumber
	part.Brand = normalizeBrandPtr(req.Brand)
	part.Description = req.Description
	part.CategoryID = req.CategoryID
	part.Cost = req.Cost
	part.CostOnline = req.CostOnline
	part.WholesalePrice1 = req.WholesalePrice1
	part.WholesalePrice2 = req.WholesalePrice2
	part.RetailPrice = req.RetailPrice
	part.ImageRef = req.ImageRef

	if err := h.DB.Save(&part).Error; err != nil {
		respondError(c, ErrInternal, "Failed to update spare part")
		return
	}

	notify(h.DB, callerID(c), fmt.Sprintf("Updated spare part %s", part.Label()))
	invalidateCatalog(c, h.Cache, models.KindSparePart)

	c.JSON(http.StatusOK, part)
}

func (h *SparePartHandler) GetSparePart(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondError(c, ErrValidation, "Invalid id")
		return
	}

	var part models.SparePart
	if err := h.DB.Preload("Category").Where("id = ? AND is_deleted = ?", id, false).First(&part).Error; err != nil {
		respondError(c, ErrNotFound, "Spare part not found")
		return
	}

	c.JSON(http.StatusOK, permissions.FilterSparePart(callerRole(c), part))
}

func (h *SparePartHandler) GetSpareParts(c *gin.Context) {
	role := callerRole(c)
	categoryID := c.Query("category_id")
	search := c.Query("search")

	cacheKey := cache.ItemListPrefix(string(models.KindSparePart)) + "cat=" + categoryID + "&q=" + search + "&role=" + string(role)
	if cached, ok := h.Cache.Get(c.Request.Context(), cacheKey); ok {
		c.Data(http.StatusOK, "application/json", []byte(cached))
		return
	}

	query := h.DB.Preload("Category").Where("is_deleted = ?", false)
	if categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("LOWER(name) LIKE LOWER(?) OR LOWER(part_number) LIKE LOWER(?) OR brand LIKE LOWER(?)", like, like, like)
	}

	var parts []models.SparePart
	if err := query.Order("name asc").Find(&parts).Error; err != nil {
		respondError(c, ErrInternal, "Failed to fetch spare parts")
		return
	}

	for i := range parts {
		parts[i] = permissions.FilterSparePart(role, parts[i])
	}

	if payload, err := json.Marshal(parts); err == nil {
		h.Cache.Set(c.Request.Context(), cacheKey, string(payload), cache.TTLItemList)
	}
	c.JSON(http.StatusOK, parts)
}

// SearchSpareParts: substring over name, part number and brand.
func (h *SparePartHandler) SearchSpareParts(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusOK, []models.SparePart{})
		return
	}

	like := "%" + q + "%"
	var parts []models.SparePart
	if err := h.DB.Where("is_deleted = ?", false).
		Where("LOWER(name) LIKE LOWER(?) OR LOWER(part_number) LIKE LOWER(?) OR brand LIKE LOWER(?)", like, like, like).
		Order("name asc").
		Limit(searchLimit).
		Find(&parts).Error; err != nil {
		respondError(c, ErrInternal, "Search failed")
		return
	}

	role := callerRole(c)
	for i := range parts {
		parts[i] = permissions.FilterSparePart(role, parts[i])
	}
	c.JSON(http.StatusOK, parts)
}

func (h *SparePartHandler) DeleteSparePart(c *gin.Context) {
	softDeleteItem(c, h.DB, h.Cache, models.KindSparePart)
}

func (h *SparePartHandler) RestoreSparePart(c *gin.Context) {
	restoreItem(c, h.DB, h.Cache, models.KindSparePart)
}
