package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"tirestock-backend/cache"
	"tirestock-backend/models"
	"tirestock-backend/permissions"
	"tirestock-backend/pricing"
	"tirestock-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// searchLimit caps keyword search results per kind (auto-complete and the
// chatbot both consume this).
const searchLimit = 20

type TireHandler struct {
	DB    *gorm.DB
	Cache cache.Cache
}

type tireRequest struct {
	Brand             string   `json:"brand" binding:"required"`
	Model             string   `json:"model" binding:"required"`
	Size              string   `json:"size" binding:"required"`
	YearOfManufacture *int     `json:"year_of_manufacture"`
	Quantity          int      `json:"quantity" binding:"gte=0"`
	CostSC            *float64 `json:"cost_sc"`
	CostDunlop        *float64 `json:"cost_dunlop"`
	CostOnline        *float64 `json:"cost_online"`
	WholesalePrice1   *float64 `json:"wholesale_price1"`
	WholesalePrice2   *float64 `json:"wholesale_price2"`
	PricePerItem      *float64 `json:"price_per_item" binding:"required"`
	PromotionID       *uint    `json:"promotion_id"`
}

func channelByName(tx *gorm.DB, name string) (*models.SalesChannel, error) {
	var ch models.SalesChannel
	if err := tx.Where("name = ?", name).First(&ch).Error; err != nil {
		return nil, err
	}
	return &ch, nil
}

// recordInitialStock appends the opening IN movement for an item created
// with a non-zero quantity, keeping the ledger fold equal to the mirror
// from day one.
func recordInitialStock(tx *gorm.DB, c *gin.Context, kind models.ItemKind, itemID uint, qty int, note string) error {
	if qty <= 0 {
		return nil
	}
	ch, err := channelByName(tx, models.ChannelReceivePurchase)
	if err != nil {
		return err
	}
	zero := 0.0
	m := models.StockMovement{
		Timestamp:         nowUTC(),
		ItemID:            itemID,
		Type:              models.MovementIn,
		QuantityChange:    qty,
		RemainingQuantity: qty,
		Notes:             &note,
		UserID:            callerID(c),
		ChannelID:         ch.ID,
		AccruedCommission: &zero,
	}
	return tx.Table(models.MovementTable(kind)).Create(&m).Error
}

func (h *TireHandler) CreateTire(c *gin.Context) {
	var req tireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrValidation, utils.SanitizeValidationError(err))
		return
	}

	brand := normalizeKey(req.Brand)
	model := normalizeKey(req.Model)

	var count int64
	h.DB.Model(&models.Tire{}).
		Where("brand = ? AND model = ? AND LOWER(size) = LOWER(?)", brand, model, req.Size).
		Count(&count)
	if count > 0 {
		respondError(c, ErrDuplicateKey, "A tire with this brand, model and size already exists")
		return
	}

	if req.PromotionID != nil {
		var promo models.Promotion
		if err := h.DB.First(&promo, *req.PromotionID).Error; err != nil {
			respondError(c, ErrNotFound, "Promotion not found")
			return
		}
	}

	tire := models.Tire{
		Brand:             brand,
		Model:             model,
		Size:              req.Size,
		YearOfManufacture: req.YearOfManufacture,
		Quantity:          req.Quantity,
		CostSC:            req.CostSC,
		CostDunlop:        req.CostDunlop,
		CostOnline:        req.CostOnline,
		WholesalePrice1:   req.WholesalePrice1,
		WholesalePrice2:   req.WholesalePrice2,
		PricePerItem:      req.PricePerItem,
		PromotionID:       req.PromotionID,
	}

	tx := h.DB.Begin()
	if err := tx.Create(&tire).Error; err != nil {
		tx.Rollback()
		respondError(c, ErrInternal, "Failed to create tire")
		return
	}
	if err := recordInitialStock(tx, c, models.KindTire, tire.ID, tire.Quantity, "initial stock"); err != nil {
		tx.Rollback()
		respondError(c, ErrInternal, "Failed to record initial stock")
		return
	}
	if err := tx.Commit().Error; err != nil {
		respondError(c, ErrInternal, "Failed to create tire")
		return
	}

	notify(h.DB, callerID(c), fmt.Sprintf("Created tire %s", tire.Label()))
	invalidateCatalog(c, h.Cache, models.KindTire)

	c.JSON(http.StatusCreated, tire)
}

func (h *TireHandler) UpdateTire(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondError(c, ErrValidation, "Invalid id")
		return
	}

	var tire models.Tire
	if err := h.DB.First(&tire, id).Error; err != nil {
		respondError(c, ErrNotFound, "Tire not found")
		return
	}
	if tire.IsDeleted {
		respondError(c, ErrStaleItem, "Tire is deleted")
		return
	}

	var req tireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrValidation, utils.SanitizeValidationError(err))
		return
	}

	brand := normalizeKey(req.Brand)
	model := normalizeKey(req.Model)

	var count int64
	h.DB.Model(&models.Tire{}).
		Where("brand = ? AND model = ? AND LOWER(size) = LOWER(?) AND id <> ?", brand, model, req.Size, id).
		Count(&count)
	if count > 0 {
		respondError(c, ErrDuplicateKey, "A tire with this brand, model and size already exists")
		return
	}

	if req.PromotionID != nil {
		var promo models.Promotion
		if err := h.DB.First(&promo, *req.PromotionID).Error; err != nil {
			respondError(c, ErrNotFound, "Promotion not found")
			return
		}
	}

	tire.Brand = brand
	tire.Model = model
	tire.Size = req.Size
	tire.YearOfManufacture = req.YearOfManufacture
	tire.CostSC = req.CostSC
	tire.CostDunlop = req.CostDunlop
	tire.CostOnline = req.CostOnline
	tire.WholesalePrice1 = req.WholesalePrice1
	tire.WholesalePrice2 = req.WholesalePrice2
	tire.PricePerItem = req.PricePerItem
	tire.PromotionID = req.PromotionID
	// Quantity is ledger-owned; catalog updates never touch it.

	if err := h.DB.Save(&tire).Error; err != nil {
		respondError(c, ErrInternal, "Failed to update tire")
		return
	}

	notify(h.DB, callerID(c), fmt.Sprintf("Updated tire %s", tire.Label()))
	invalidateCatalog(c, h.Cache, models.KindTire)

	c.JSON(http.StatusOK, tire)
}

func (h *TireHandler) GetTire(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondError(c, ErrValidation, "Invalid id")
		return
	}

	var tire models.Tire
	if err := h.DB.Preload("Promotion").Where("id = ? AND is_deleted = ?", id, false).First(&tire).Error; err != nil {
		respondError(c, ErrNotFound, "Tire not found")
		return
	}

	role := callerRole(c)
	resp := gin.H{"tire": permissions.FilterTire(role, tire)}
	if tire.Promotion != nil && tire.Promotion.IsActive && permissions.CanViewRetail(role) && tire.PricePerItem != nil {
		if quote, err := pricing.Evaluate(*tire.PricePerItem, *tire.Promotion); err == nil {
			if role == permissions.RoleRetailSales {
				// Retail staff see the bundle price only.
				quote.PerUnit = nil
			}
			resp["promotion_price"] = quote
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (h *TireHandler) GetTires(c *gin.Context) {
	role := callerRole(c)
	brand := c.Query("brand")
	search := c.Query("search")

	cacheKey := cache.ItemListPrefix(string(models.KindTire)) + "brand=" + brand + "&q=" + search + "&role=" + string(role)
	if cached, ok := h.Cache.Get(c.Request.Context(), cacheKey); ok {
		c.Data(http.StatusOK, "application/json", []byte(cached))
		return
	}

	query := h.DB.Preload("Promotion").Where("is_deleted = ?", false)
	if brand != "" {
		query = query.Where("brand = ?", normalizeKey(brand))
	}
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("brand LIKE LOWER(?) OR model LIKE LOWER(?) OR LOWER(size) LIKE LOWER(?)", like, like, like)
	}

	var tires []models.Tire
	if err := query.Order("brand asc, model asc, size asc").Find(&tires).Error; err != nil {
		respondError(c, ErrInternal, "Failed to fetch tires")
		return
	}

	for i := range tires {
		tires[i] = permissions.FilterTire(role, tires[i])
	}

	if payload, err := json.Marshal(tires); err == nil {
		h.Cache.Set(c.Request.Context(), cacheKey, string(payload), cache.TTLItemList)
	}
	c.JSON(http.StatusOK, tires)
}

// SearchTires is the keyword search used by auto-complete: case-insensitive
// substring over brand, model and size, capped at searchLimit.
func (h *TireHandler) SearchTires(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusOK, []models.Tire{})
		return
	}

	like := "%" + q + "%"
	var tires []models.Tire
	if err := h.DB.Where("is_deleted = ?", false).
		Where("brand LIKE LOWER(?) OR model LIKE LOWER(?) OR LOWER(size) LIKE LOWER(?)", like, like, like).
		Order("brand asc, model asc, size asc").
		Limit(searchLimit).
		Find(&tires).Error; err != nil {
		respondError(c, ErrInternal, "Search failed")
		return
	}

	role := callerRole(c)
	for i := range tires {
		tires[i] = permissions.FilterTire(role, tires[i])
	}
	c.JSON(http.StatusOK, tires)
}

func (h *TireHandler) DeleteTire(c *gin.Context) {
	softDeleteItem(c, h.DB, h.Cache, models.KindTire)
}

func (h *TireHandler) RestoreTire(c *gin.Context) {
	restoreItem(c, h.DB, h.Cache, models.KindTire)
}

// GetBrands lists distinct tire brands, cached.
func (h *TireHandler) GetBrands(c *gin.Context) {
	listBrands(c, h.DB, h.Cache, models.KindTire, &models.Tire{})
}
