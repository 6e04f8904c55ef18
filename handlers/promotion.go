package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"tirestock-backend/cache"
	"tirestock-backend/models"
	"tirestock-backend/pricing"
	"tirestock-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type PromotionHandler struct {
	DB    *gorm.DB
	Cache cache.Cache
}

type promotionRequest struct {
	Name     string   `json:"name" binding:"required"`
	Kind     string   `json:"kind" binding:"required,oneof=buy_x_get_y percentage_discount fixed_price_per_n"`
	V1       float64  `json:"v1" binding:"required"`
	V2       *float64 `json:"v2"`
	IsActive *bool    `json:"is_active"`
}

// validatePromotionValues runs the evaluator against a nominal base price
// so malformed parameter combinations are rejected at write time.
func validatePromotionValues(req *promotionRequest) error {
	probe := models.Promotion{Kind: req.Kind, V1: req.V1, V2: req.V2}
	_, err := pricing.Evaluate(1000, probe)
	return err
}

func (h *PromotionHandler) CreatePromotion(c *gin.Context) {
	var req promotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrValidation, utils.SanitizeValidationError(err))
		return
	}
	if err := validatePromotionValues(&req); err != nil {
		respondError(c, ErrValidation, err.Error())
		return
	}

	var count int64
	h.DB.Model(&models.Promotion{}).Where("name = ?", req.Name).Count(&count)
	if count > 0 {
		respondError(c, ErrDuplicateKey, "A promotion with this name already exists")
		return
	}

	promo := models.Promotion{
		Name:     req.Name,
		Kind:     req.Kind,
		V1:       req.V1,
		V2:       req.V2,
		IsActive: true,
	}
	if req.IsActive != nil {
		promo.IsActive = *req.IsActive
	}

	if err := h.DB.Create(&promo).Error; err != nil {
		respondError(c, ErrInternal, "Failed to create promotion")
		return
	}

	notify(h.DB, callerID(c), fmt.Sprintf("Created promotion %s", promo.Name))
	h.Cache.Delete(c.Request.Context(), cache.KeyPromotionList)
	invalidateCatalog(c, h.Cache, models.KindTire)

	c.JSON(http.StatusCreated, promo)
}

func (h *PromotionHandler) UpdatePromotion(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondError(c, ErrValidation, "Invalid id")
		return
	}

	var promo models.Promotion
	if err := h.DB.First(&promo, id).Error; err != nil {
		respondError(c, ErrNotFound, "Promotion not found")
		return
	}

	var req promotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrValidation, utils.SanitizeValidationError(err))
		return
	}
	if err := validatePromotionValues(&req); err != nil {
		respondError(c, ErrValidation, err.Error())
		return
	}

	var count int64
	h.DB.Model(&models.Promotion{}).Where("name = ? AND id <> ?", req.Name, id).Count(&count)
	if count > 0 {
		respondError(c, ErrDuplicateKey, "A promotion with this name already exists")
		return
	}

	promo.Name = req.Name
	promo.Kind = req.Kind
	promo.V1 = req.V1
	promo.V2 = req.V2
	if req.IsActive != nil {
		promo.IsActive = *req.IsActive
	}

	if err := h.DB.Save(&promo).Error; err != nil {
		respondError(c, ErrInternal, "Failed to update promotion")
		return
	}

	notify(h.DB, callerID(c), fmt.Sprintf("Updated promotion %s", promo.Name))
	h.Cache.Delete(c.Request.Context(), cache.KeyPromotionList)
	invalidateCatalog(c, h.Cache, models.KindTire)

	c.JSON(http.StatusOK, promo)
}

// DeletePromotion removes a promotion and detaches it from every tire that
// referenced it.
func (h *PromotionHandler) DeletePromotion(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondError(c, ErrValidation, "Invalid id")
		return
	}

	var promo models.Promotion
	if err := h.DB.First(&promo, id).Error; err != nil {
		respondError(c, ErrNotFound, "Promotion not found")
		return
	}

	tx := h.DB.Begin()
	if err := tx.Model(&models.Tire{}).Where("promotion_id = ?", id).Update("promotion_id", nil).Error; err != nil {
		tx.Rollback()
		respondError(c, ErrInternal, "Failed to detach promotion from tires")
		return
	}
	if err := tx.Delete(&promo).Error; err != nil {
		tx.Rollback()
		respondError(c, ErrInternal, "Failed to delete promotion")
		return
	}
	if err := tx.Commit().Error; err != nil {
		respondError(c, ErrInternal, "Failed to delete promotion")
		return
	}

	notify(h.DB, callerID(c), fmt.Sprintf("Deleted promotion %s", promo.Name))
	h.Cache.Delete(c.Request.Context(), cache.KeyPromotionList)
	invalidateCatalog(c, h.Cache, models.KindTire)

	c.JSON(http.StatusOK, gin.H{"message": "Promotion deleted"})
}

func (h *PromotionHandler) GetPromotions(c *gin.Context) {
	if cached, ok := h.Cache.Get(c.Request.Context(), cache.KeyPromotionList); ok {
		c.Data(http.StatusOK, "application/json", []byte(cached))
		return
	}

	var promos []models.Promotion
	if err := h.DB.Order("name asc").Find(&promos).Error; err != nil {
		respondError(c, ErrInternal, "Failed to fetch promotions")
		return
	}

	if payload, err := json.Marshal(promos); err == nil {
		h.Cache.Set(c.Request.Context(), cache.KeyPromotionList, string(payload), cache.TTLItemList)
	}
	c.JSON(http.StatusOK, promos)
}

// EvaluatePrice quotes a base price under a stored promotion without
// touching any tire. Used by the UI price preview.
func (h *PromotionHandler) EvaluatePrice(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondError(c, ErrValidation, "Invalid id")
		return
	}

	var req struct {
		BasePrice float64 `json:"base_price" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrValidation, utils.SanitizeValidationError(err))
		return
	}

	var promo models.Promotion
	if err := h.DB.First(&promo, id).Error; err != nil {
		respondError(c, ErrNotFound, "Promotion not found")
		return
	}

	quote, err := pricing.Evaluate(req.BasePrice, promo)
	if err != nil {
		respondError(c, ErrValidation, err.Error())
		return
	}
	c.JSON(http.StatusOK, quote)
}
