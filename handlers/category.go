package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"tirestock-backend/cache"
	"tirestock-backend/models"
	"tirestock-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CategoryHandler manages the spare-part category forest.
type CategoryHandler struct {
	DB    *gorm.DB
	Cache cache.Cache
}

type categoryRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
	ParentID    *uint  `json:"parent_id"`
}

type categoryNode struct {
	models.SparePartCategory
	Children []*categoryNode `json:"children"`
}

func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrValidation, utils.SanitizeValidationError(err))
		return
	}

	if req.ParentID != nil {
		var parent models.SparePartCategory
		if err := h.DB.First(&parent, *req.ParentID).Error; err != nil {
			respondError(c, ErrNotFound, "Parent category not found")
			return
		}
	}

	cat := models.SparePartCategory{DisplayName: req.DisplayName, ParentID: req.ParentID}
	if err := h.DB.Create(&cat).Error; err != nil {
		respondError(c, ErrInternal, "Failed to create category")
		return
	}

	notify(h.DB, callerID(c), fmt.Sprintf("Created category %s", cat.DisplayName))
	h.Cache.Delete(c.Request.Context(), cache.KeyCategoryTree)

	c.JSON(http.StatusCreated, cat)
}

// wouldCycle walks up from the proposed parent; if it reaches the category
// being re-parented the move would close a cycle.
func (h *CategoryHandler) wouldCycle(id uint, parentID *uint) (bool, error) {
	for parentID != nil {
		if *parentID == id {
			return true, nil
		}
		var parent models.SparePartCategory
		if err := h.DB.First(&parent, *parentID).Error; err != nil {
			return false, err
		}
		parentID = parent.ParentID
	}
	return false, nil
}

func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondError(c, ErrValidation, "Invalid id")
		return
	}

	var cat models.SparePartCategory
	if err := h.DB.First(&cat, id).Error; err != nil {
		respondError(c, ErrNotFound, "Category not found")
		return
	}

	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrValidation, utils.SanitizeValidationError(err))
		return
	}

	if req.ParentID != nil {
		if *req.ParentID == id {
			respondError(c, ErrValidation, "A category cannot be its own parent")
			return
		}
		var parent models.SparePartCategory
		if err := h.DB.First(&parent, *req.ParentID).Error; err != nil {
			respondError(c, ErrNotFound, "Parent category not found")
			return
		}
		cycle, err := h.wouldCycle(id, req.ParentID)
		if err != nil {
			respondError(c, ErrInternal, "Failed to validate category tree")
			return
		}
		if cycle {
			respondError(c, ErrValidation, "Move would create a category cycle")
			return
		}
	}

	cat.DisplayName = req.DisplayName
	cat.ParentID = req.ParentID
	if err := h.DB.Save(&cat).Error; err != nil {
		respondError(c, ErrInternal, "Failed to update category")
		return
	}

	notify(h.DB, callerID(c), fmt.Sprintf("Updated category %s", cat.DisplayName))
	h.Cache.Delete(c.Request.Context(), cache.KeyCategoryTree)

	c.JSON(http.StatusOK, cat)
}

// DeleteCategory refuses categories that still have children or active
// spare parts.
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondError(c, ErrValidation, "Invalid id")
		return
	}

	var cat models.SparePartCategory
	if err := h.DB.First(&cat, id).Error; err != nil {
		respondError(c, ErrNotFound, "Category not found")
		return
	}

	var children int64
	h.DB.Model(&models.SparePartCategory{}).Where("parent_id = ?", id).Count(&children)
	if children > 0 {
		respondError(c, ErrInUse, "Category still has sub-categories")
		return
	}

	var parts int64
	h.DB.Model(&models.SparePart{}).Where("category_id = ? AND is_deleted = ?", id, false).Count(&parts)
	if parts > 0 {
		respondError(c, ErrInUse, "Category is still used by spare parts")
		return
	}

	if err := h.DB.Delete(&cat).Error; err != nil {
		respondError(c, ErrInternal, "Failed to delete category")
		return
	}

	notify(h.DB, callerID(c), fmt.Sprintf("Deleted category %s", cat.DisplayName))
	h.Cache.Delete(c.Request.Context(), cache.KeyCategoryTree)

	c.JSON(http.StatusOK, gin.H{"message": "Category deleted"})
}

// GetCategoryTree returns the whole forest, cached.
func (h *CategoryHandler) GetCategoryTree(c *gin.Context) {
	if cached, ok := h.Cache.Get(c.Request.Context(), cache.KeyCategoryTree); ok {
		c.Data(http.StatusOK, "application/json", []byte(cached))
		return
	}

	var cats []models.SparePartCategory
	if err := h.DB.Order("display_name asc").Find(&cats).Error; err != nil {
		respondError(c, ErrInternal, "Failed to fetch categories")
		return
	}

	nodes := make(map[uint]*categoryNode, len(cats))
	for i := range cats {
		nodes[cats[i].ID] = &categoryNode{SparePartCategory: cats[i], Children: []*categoryNode{}}
	}
	// Walk the ordered slice, not the map, so siblings keep their
	// display_name order on every call.
	var roots []*categoryNode
	for i := range cats {
		n := nodes[cats[i].ID]
		if n.ParentID != nil {
			if parent, ok := nodes[*n.ParentID]; ok {
				parent.Children = append(parent.Children, n)
				continue
			}
		}
		roots = append(roots, n)
	}

	if payload, err := json.Marshal(roots); err == nil {
		h.Cache.Set(c.Request.Context(), cache.KeyCategoryTree, string(payload), cache.TTLReference)
	}
	c.JSON(http.StatusOK, roots)
}
