package handlers

import (
	"fmt"
	"net/http"

	"tirestock-backend/models"
	"tirestock-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type BarcodeHandler struct {
	DB *gorm.DB
}

type attachBarcodeRequest struct {
	ItemKind  models.ItemKind `json:"item_kind" binding:"required"`
	ItemID    uint            `json:"item_id" binding:"required"`
	Code      string          `json:"code" binding:"required"`
	IsPrimary bool            `json:"is_primary"`
}

// AttachBarcode binds a code to an item. Codes are globally unique across
// all three kinds; at most one primary barcode per item.
func (h *BarcodeHandler) AttachBarcode(c *gin.Context) {
	var req attachBarcodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrValidation, utils.SanitizeValidationError(err))
		return
	}
	if !req.ItemKind.Valid() {
		respondError(c, ErrValidation, "Unknown item kind")
		return
	}

	item, err := loadItem(h.DB, req.ItemKind, req.ItemID)
	if err != nil {
		respondError(c, ErrNotFound, "Item not found")
		return
	}
	if item.Deleted() {
		respondError(c, ErrStaleItem, "Item is deleted")
		return
	}

	var existing models.Barcode
	if err := h.DB.Where("code = ?", req.Code).First(&existing).Error; err == nil {
		respondError(c, ErrBarcodeConflict,
			fmt.Sprintf("Barcode already bound to %s #%d", existing.ItemKind, existing.ItemID))
		return
	}

	tx := h.DB.Begin()
	if req.IsPrimary {
		// Demote any current primary so the item keeps a single primary.
		if err := tx.Model(&models.Barcode{}).
			Where("item_kind = ? AND item_id = ? AND is_primary = ?", req.ItemKind, req.ItemID, true).
			Update("is_primary", false).Error; err != nil {
			tx.Rollback()
			respondError(c, ErrInternal, "Failed to attach barcode")
			return
		}
	}

	barcode := models.Barcode{
		ItemKind:  req.ItemKind,
		ItemID:    req.ItemID,
		Code:      req.Code,
		IsPrimary: req.IsPrimary,
	}
	if err := tx.Create(&barcode).Error; err != nil {
		tx.Rollback()
		respondError(c, ErrBarcodeConflict, "Barcode already exists")
		return
	}
	if err := tx.Commit().Error; err != nil {
		respondError(c, ErrInternal, "Failed to attach barcode")
		return
	}

	notify(h.DB, callerID(c), fmt.Sprintf("Attached barcode %s to %s", req.Code, item.Label()))
	c.JSON(http.StatusCreated, barcode)
}

func (h *BarcodeHandler) DetachBarcode(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondError(c, ErrValidation, "Invalid id")
		return
	}

	var barcode models.Barcode
	if err := h.DB.First(&barcode, id).Error; err != nil {
		respondError(c, ErrNotFound, "Barcode not found")
		return
	}

	if err := h.DB.Delete(&barcode).Error; err != nil {
		respondError(c, ErrInternal, "Failed to detach barcode")
		return
	}

	notify(h.DB, callerID(c), fmt.Sprintf("Detached barcode %s", barcode.Code))
	c.JSON(http.StatusOK, gin.H{"message": "Barcode detached"})
}

// ResolveBarcode looks up the item a scanned code points at. Used by the
// scanner flow before recording IN/RETURN movements.
func (h *BarcodeHandler) ResolveBarcode(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		respondError(c, ErrValidation, "code is required")
		return
	}

	var barcode models.Barcode
	if err := h.DB.Where("code = ?", code).First(&barcode).Error; err != nil {
		respondError(c, ErrNotFound, "Barcode not found")
		return
	}

	item, err := loadItem(h.DB, barcode.ItemKind, barcode.ItemID)
	if err != nil {
		respondError(c, ErrNotFound, "Item not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"item_kind": barcode.ItemKind,
		"item_id":   barcode.ItemID,
		"label":     item.Label(),
		"quantity":  item.CurrentQuantity(),
	})
}

// ListBarcodes lists the barcodes of one item.
func (h *BarcodeHandler) ListBarcodes(c *gin.Context) {
	kind := models.ItemKind(c.Query("item_kind"))
	if !kind.Valid() {
		respondError(c, ErrValidation, "Unknown item kind")
		return
	}

	var barcodes []models.Barcode
	if err := h.DB.Where("item_kind = ? AND item_id = ?", kind, c.Query("item_id")).
		Order("is_primary desc, id asc").Find(&barcodes).Error; err != nil {
		respondError(c, ErrInternal, "Failed to fetch barcodes")
		return
	}
	c.JSON(http.StatusOK, barcodes)
}
