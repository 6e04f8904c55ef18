package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"tirestock-backend/cache"
	"tirestock-backend/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Shared lifecycle plumbing for the three catalog families.

func nowUTC() time.Time { return time.Now().UTC() }

func loadItem(db *gorm.DB, kind models.ItemKind, id uint) (models.StockItem, error) {
	switch kind {
	case models.KindTire:
		t := &models.Tire{}
		if err := db.First(t, id).Error; err != nil {
			return nil, err
		}
		return t, nil
	case models.KindWheel:
		w := &models.Wheel{}
		if err := db.First(w, id).Error; err != nil {
			return nil, err
		}
		return w, nil
	case models.KindSparePart:
		s := &models.SparePart{}
		if err := db.First(s, id).Error; err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// softDeleteItem flags an item deleted. Items still holding stock cannot be
// deleted; run the stock out first.
func softDeleteItem(c *gin.Context, db *gorm.DB, store cache.Cache, kind models.ItemKind) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondError(c, ErrValidation, "Invalid id")
		return
	}

	item, err := loadItem(db, kind, id)
	if err != nil {
		respondError(c, ErrNotFound, "Item not found")
		return
	}
	if item.Deleted() {
		respondError(c, ErrStaleItem, "Item is already deleted")
		return
	}
	if item.CurrentQuantity() > 0 {
		respondError(c, ErrNotEmpty, fmt.Sprintf("Item still has %d in stock", item.CurrentQuantity()))
		return
	}

	if err := db.Model(item).Update("is_deleted", true).Error; err != nil {
		respondError(c, ErrInternal, "Failed to delete item")
		return
	}

	notify(db, callerID(c), fmt.Sprintf("Deleted %s", item.Label()))
	invalidateCatalog(c, store, kind)

	c.JSON(http.StatusOK, gin.H{"message": "Item deleted"})
}

// restoreItem undoes a soft delete. Admin only (enforced by routing).
func restoreItem(c *gin.Context, db *gorm.DB, store cache.Cache, kind models.ItemKind) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondError(c, ErrValidation, "Invalid id")
		return
	}

	item, err := loadItem(db, kind, id)
	if err != nil {
		respondError(c, ErrNotFound, "Item not found")
		return
	}
	if !item.Deleted() {
		respondError(c, ErrConflictingState, "Item is not deleted")
		return
	}

	if err := db.Model(item).Update("is_deleted", false).Error; err != nil {
		respondError(c, ErrInternal, "Failed to restore item")
		return
	}

	notify(db, callerID(c), fmt.Sprintf("Restored %s", item.Label()))
	invalidateCatalog(c, store, kind)

	c.JSON(http.StatusOK, gin.H{"message": "Item restored"})
}

// listBrands returns the distinct brands of a kind, cached for list
// filters and import auto-complete.
func listBrands(c *gin.Context, db *gorm.DB, store cache.Cache, kind models.ItemKind, model interface{}) {
	key := cache.KeyBrandList(string(kind))
	if cached, ok := store.Get(c.Request.Context(), key); ok {
		c.Data(http.StatusOK, "application/json", []byte(cached))
		return
	}

	var brands []string
	if err := db.Model(model).
		Where("is_deleted = ? AND brand IS NOT NULL", false).
		Distinct().Order("brand asc").Pluck("brand", &brands).Error; err != nil {
		respondError(c, ErrInternal, "Failed to fetch brands")
		return
	}

	if payload, err := json.Marshal(brands); err == nil {
		store.Set(c.Request.Context(), key, string(payload), cache.TTLItemList)
	}
	c.JSON(http.StatusOK, brands)
}
