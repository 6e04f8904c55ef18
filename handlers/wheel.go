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

type WheelHandler struct {
	DB    *gorm.DB
	Cache cache.Cache
}

type wheelRequest struct {
	Brand           string   `json:"brand" binding:"required"`
	Model           string   `json:"model" binding:"required"`
	Diameter        string   `json:"diameter" binding:"required"`
	PCD             string   `json:"pcd" binding:"required"`
	Width           string   `json:"width" binding:"required"`
	ET              *string  `json:"et"`
	Color           *string  `json:"color"`
	Quantity        int      `json:"quantity" binding:"gte=0"`
	Cost            *float64 `json:"cost"`
	CostOnline      *float64 `json:"cost_online"`
	WholesalePrice1 *float64 `json:"wholesale_price1"`
	WholesalePrice2 *float64 `json:"wholesale_price2"`
	RetailPrice     *float64 `json:"retail_price" binding:"required"`
	ImageRef        *string  `json:"image_ref"`
}

// wheelDuplicateQuery matches the uniqueness key
// (brand, model, diameter, width, pcd, color, et); the nullable parts
// compare null-equals-null.
func wheelDuplicateQuery(db *gorm.DB, req *wheelRequest) *gorm.DB {
	q := db.Model(&models.Wheel{}).
		Where("brand = ? AND model = ? AND diameter = ? AND width = ? AND pcd = ?",
			normalizeKey(req.Brand), normalizeKey(req.Model), req.Diameter, req.Width, req.PCD)
	if req.Color != nil {
		q = q.Where("LOWER(color) = LOWER(?)", *req.Color)
	} else {
		q = q.Where("color IS NULL")
	}
	if req.ET != nil {
		q = q.Where("et = ?", *req.ET)
	} else {
		q = q.Where("et IS NULL")
	}
	return q
}

func (h *WheelHandler) CreateWheel(c *gin.Context) {
	var req wheelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrValidation, utils.SanitizeValidationError(err))
		return
	}

	var count int64
	wheelDuplicateQuery(h.DB, &req).Count(&count)
	if count > 0 {
		respondError(c, ErrDuplicateKey, "A wheel with this specification already exists")
		return
	}

	wheel := models.Wheel{
		Brand:           normalizeKey(req.Brand),
		Model:           normalizeKey(req.Model),
		Diameter:        req.Diameter,
		PCD:             req.PCD,
		Width:           req.Width,
		ET:              req.ET,
		Color:           req.Color,
		Quantity:        req.Quantity,
		Cost:            req.Cost,
		CostOnline:      req.CostOnline,
		WholesalePrice1: req.WholesalePrice1,
		WholesalePrice2: req.WholesalePrice2,
		RetailPrice:     req.RetailPrice,
		ImageRef:        req.ImageRef,
	}

	tx := h.DB.Begin()
	if err := tx.Create(&wheel).Error; err != nil {
		tx.Rollback()
		respondError(c, ErrInternal, "Failed to create wheel")
		return
	}
	if err := recordInitialStock(tx, c, models.KindWheel, wheel.ID, wheel.Quantity, "initial stock"); err != nil {
		tx.Rollback()
		respondError(c, ErrInternal, "Failed to record initial stock")
		return
	}
	if err := tx.Commit().Error; err != nil {
		respondError(c, ErrInternal, "Failed to create wheel")
		return
	}

	notify(h.DB, callerID(c), fmt.Sprintf("Created wheel %s", wheel.Label()))
	invalidateCatalog(c, h.Cache, models.KindWheel)

	c.JSON(http.StatusCreated, wheel)
}

func (h *WheelHandler) UpdateWheel(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondError(c, ErrValidation, "Invalid id")
		return
	}

	var wheel models.Wheel
	if err := h.DB.First(&wheel, id).Error; err != nil {
		respondError(c, ErrNotFound, "Wheel not found")
		return
	}
	if wheel.IsDeleted {
		respondError(c, ErrStaleItem, "Wheel is deleted")
		return
	}

	var req wheelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrValidation, utils.SanitizeValidationError(err))
		return
	}

	var count int64
	wheelDuplicateQuery(h.DB, &req).Where("id <> ?", id).Count(&count)
	if count > 0 {
		respondError(c, ErrDuplicateKey, "A wheel with this specification already exists")
		return
	}

	wheel.Brand = normalizeKey(req.Brand)
	wheel.Model = normalizeKey(req.Model)
	wheel.Diameter = req.Diameter
	wheel.PCD = req.PCD
	wheel.Width = req.Width
	wheel.ET = req.ET
	wheel.Color = req.Color
	wheel.Cost = req.Cost
	wheel.CostOnline = req.CostOnline
	wheel.WholesalePrice1 = req.WholesalePrice1
	wheel.WholesalePrice2 = req.WholesalePrice2
	wheel.RetailPrice = req.RetailPrice
	wheel.ImageRef = req.ImageRef

	if err := h.DB.Save(&wheel).Error; err != nil {
		respondError(c, ErrInternal, "Failed to update wheel")
		return
	}

	notify(h.DB, callerID(c), fmt.Sprintf("Updated wheel %s", wheel.Label()))
	invalidateCatalog(c, h.Cache, models.KindWheel)

	c.JSON(http.StatusOK, wheel)
}

func (h *WheelHandler) GetWheel(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondError(c, ErrValidation, "Invalid id")
		return
	}

	var wheel models.Wheel
	if err := h.DB.Where("id = ? AND is_deleted = ?", id, false).First(&wheel).Error; err != nil {
		respondError(c, ErrNotFound, "Wheel not found")
		return
	}

	c.JSON(http.StatusOK, permissions.FilterWheel(callerRole(c), wheel))
}

func (h *WheelHandler) GetWheels(c *gin.Context) {
	role := callerRole(c)
	brand := c.Query("brand")
	search := c.Query("search")

	cacheKey := cache.ItemListPrefix(string(models.KindWheel)) + "brand=" + brand + "&q=" + search + "&role=" + string(role)
	if cached, ok := h.Cache.Get(c.Request.Context(), cacheKey); ok {
		c.Data(http.StatusOK, "application/json", []byte(cached))
		return
	}

	query := h.DB.Where("is_deleted = ?", false)
	if brand != "" {
		query = query.Where("brand = ?", normalizeKey(brand))
	}
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("brand LIKE LOWER(?) OR model LIKE LOWER(?) OR pcd LIKE ? OR (diameter || 'x' || width) LIKE ?", like, like, like, like)
	}

	var wheels []models.Wheel
	if err := query.Order("brand asc, model asc, diameter asc, width asc").Find(&wheels).Error; err != nil {
		respondError(c, ErrInternal, "Failed to fetch wheels")
		return
	}

	for i := range wheels {
		wheels[i] = permissions.FilterWheel(role, wheels[i])
	}

	if payload, err := json.Marshal(wheels); err == nil {
		h.Cache.Set(c.Request.Context(), cacheKey, string(payload), cache.TTLItemList)
	}
	c.JSON(http.StatusOK, wheels)
}

// SearchWheels: substring over brand, model, pcd and the composite
// diameter x width size string.
func (h *WheelHandler) SearchWheels(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusOK, []models.Wheel{})
		return
	}

	like := "%" + q + "%"
	var wheels []models.Wheel
	if err := h.DB.Where("is_deleted = ?", false).
		Where("brand LIKE LOWER(?) OR model LIKE LOWER(?) OR pcd LIKE ? OR (diameter || 'x' || width) LIKE ?", like, like, like, like).
		Order("brand asc, model asc, diameter asc").
		Limit(searchLimit).
		Find(&wheels).Error; err != nil {
		respondError(c, ErrInternal, "Search failed")
		return
	}

	role := callerRole(c)
	for i := range wheels {
		wheels[i] = permissions.FilterWheel(role, wheels[i])
	}
	c.JSON(http.StatusOK, wheels)
}

func (h *WheelHandler) DeleteWheel(c *gin.Context) {
	softDeleteItem(c, h.DB, h.Cache, models.KindWheel)
}

func (h *WheelHandler) RestoreWheel(c *gin.Context) {
	restoreItem(c, h.DB, h.Cache, models.KindWheel)
}

func (h *WheelHandler) GetBrands(c *gin.Context) {
	listBrands(c, h.DB, h.Cache, models.KindWheel, &models.Wheel{})
}
