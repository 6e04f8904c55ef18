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

// ReferenceHandler serves the attribution tables movements point at:
// sales channels, online platforms and wholesale customers.
type ReferenceHandler struct {
	DB    *gorm.DB
	Cache cache.Cache
}

func serveCachedList(c *gin.Context, store cache.Cache, key string, load func() (interface{}, error)) {
	if cached, ok := store.Get(c.Request.Context(), key); ok {
		c.Data(http.StatusOK, "application/json", []byte(cached))
		return
	}

	data, err := load()
	if err != nil {
		respondError(c, ErrInternal, "Failed to fetch reference data")
		return
	}
	if payload, err := json.Marshal(data); err == nil {
		store.Set(c.Request.Context(), key, string(payload), cache.TTLReference)
	}
	c.JSON(http.StatusOK, data)
}

func (h *ReferenceHandler) GetChannels(c *gin.Context) {
	serveCachedList(c, h.Cache, cache.KeyReferenceChannels, func() (interface{}, error) {
		var channels []models.SalesChannel
		err := h.DB.Order("name asc").Find(&channels).Error
		return channels, err
	})
}

func (h *ReferenceHandler) GetPlatforms(c *gin.Context) {
	serveCachedList(c, h.Cache, cache.KeyReferencePlatforms, func() (interface{}, error) {
		var platforms []models.OnlinePlatform
		err := h.DB.Order("name asc").Find(&platforms).Error
		return platforms, err
	})
}

type platformRequest struct {
	Name string `json:"name" binding:"required,min=2,max=50"`
}

func (h *ReferenceHandler) CreatePlatform(c *gin.Context) {
	var req platformRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrValidation, utils.SanitizeValidationError(err))
		return
	}

	var count int64
	h.DB.Model(&models.OnlinePlatform{}).Where("name = ?", req.Name).Count(&count)
	if count > 0 {
		respondError(c, ErrDuplicateKey, "Platform already exists")
		return
	}

	p := models.OnlinePlatform{Name: req.Name}
	if err := h.DB.Create(&p).Error; err != nil {
		respondError(c, ErrInternal, "Failed to create platform")
		return
	}

	notify(h.DB, callerID(c), "Added online platform "+p.Name)
	invalidateReference(c, h.Cache)
	c.JSON(http.StatusCreated, p)
}

func (h *ReferenceHandler) GetWholesaleCustomers(c *gin.Context) {
	serveCachedList(c, h.Cache, cache.KeyReferenceWholesale, func() (interface{}, error) {
		var customers []models.WholesaleCustomer
		err := h.DB.Order("name asc").Find(&customers).Error
		return customers, err
	})
}

type wholesaleCustomerRequest struct {
	Name  string  `json:"name" binding:"required,min=2,max=100"`
	Phone *string `json:"phone"`
	Notes *string `json:"notes"`
}

func (h *ReferenceHandler) CreateWholesaleCustomer(c *gin.Context) {
	var req wholesaleCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrValidation, utils.SanitizeValidationError(err))
		return
	}

	w := models.WholesaleCustomer{Name: req.Name, Phone: req.Phone, Notes: req.Notes}
	if err := h.DB.Create(&w).Error; err != nil {
		respondError(c, ErrInternal, "Failed to create wholesale customer")
		return
	}

	notify(h.DB, callerID(c), "Added wholesale customer "+w.Name)
	invalidateReference(c, h.Cache)
	h.Cache.Delete(c.Request.Context(), cache.KeyWholesaleSummary)
	c.JSON(http.StatusCreated, w)
}

func (h *ReferenceHandler) UpdateWholesaleCustomer(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondError(c, ErrValidation, "Invalid id")
		return
	}

	var w models.WholesaleCustomer
	if err := h.DB.First(&w, id).Error; err != nil {
		respondError(c, ErrNotFound, "Wholesale customer not found")
		return
	}

	var req wholesaleCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrValidation, utils.SanitizeValidationError(err))
		return
	}

	w.Name = req.Name
	w.Phone = req.Phone
	w.Notes = req.Notes
	if err := h.DB.Save(&w).Error; err != nil {
		respondError(c, ErrInternal, "Failed to update wholesale customer")
		return
	}

	invalidateReference(c, h.Cache)
	h.Cache.Delete(c.Request.Context(), cache.KeyWholesaleSummary)
	c.JSON(http.StatusOK, w)
}

// GetWholesaleSummary totals each wholesale customer's purchase and
// return volume across all three kinds, cached for the customer list.
func (h *ReferenceHandler) GetWholesaleSummary(c *gin.Context) {
	if cached, ok := h.Cache.Get(c.Request.Context(), cache.KeyWholesaleSummary); ok {
		c.Data(http.StatusOK, "application/json", []byte(cached))
		return
	}

	var customers []models.WholesaleCustomer
	if err := h.DB.Order("name asc").Find(&customers).Error; err != nil {
		respondError(c, ErrInternal, "Failed to fetch wholesale customers")
		return
	}

	type summaryRow struct {
		CustomerID    uint   `json:"customer_id"`
		Name          string `json:"name"`
		UnitsBought   int    `json:"units_bought"`
		UnitsReturned int    `json:"units_returned"`
		Movements     int64  `json:"movements"`
	}
	byID := make(map[uint]*summaryRow, len(customers))
	rows := make([]*summaryRow, 0, len(customers))
	for _, w := range customers {
		r := &summaryRow{CustomerID: w.ID, Name: w.Name}
		byID[w.ID] = r
		rows = append(rows, r)
	}

	for _, kind := range models.AllKinds {
		var sums []struct {
			WholesaleCustomerID uint
			Type                string
			Qty                 int
			N                   int64
		}
		if err := h.DB.Table(models.MovementTable(kind)).
			Select("wholesale_customer_id, type, SUM(quantity_change) AS qty, COUNT(*) AS n").
			Where("wholesale_customer_id IS NOT NULL").
			Group("wholesale_customer_id, type").
			Scan(&sums).Error; err != nil {
			respondError(c, ErrInternal, "Failed to build wholesale summary")
			return
		}
		for _, s := range sums {
			r, ok := byID[s.WholesaleCustomerID]
			if !ok {
				continue
			}
			switch s.Type {
			case models.MovementOut:
				r.UnitsBought += s.Qty
			case models.MovementReturn:
				r.UnitsReturned += s.Qty
			}
			r.Movements += s.N
		}
	}

	if payload, err := json.Marshal(rows); err == nil {
		h.Cache.Set(c.Request.Context(), cache.KeyWholesaleSummary, string(payload), cache.TTLItemList)
	}
	c.JSON(http.StatusOK, rows)
}

func (h *ReferenceHandler) DeleteWholesaleCustomer(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondError(c, ErrValidation, "Invalid id")
		return
	}

	var w models.WholesaleCustomer
	if err := h.DB.First(&w, id).Error; err != nil {
		respondError(c, ErrNotFound, "Wholesale customer not found")
		return
	}

	for _, kind := range models.AllKinds {
		var n int64
		h.DB.Table(models.MovementTable(kind)).Where("wholesale_customer_id = ?", id).Count(&n)
		if n > 0 {
			respondError(c, ErrInUse, fmt.Sprintf("Customer has %d recorded movements", n))
			return
		}
	}

	if err := h.DB.Delete(&w).Error; err != nil {
		respondError(c, ErrInternal, "Failed to delete wholesale customer")
		return
	}

	invalidateReference(c, h.Cache)
	h.Cache.Delete(c.Request.Context(), cache.KeyWholesaleSummary)
	c.JSON(http.StatusOK, gin.H{"message": "Wholesale customer deleted"})
}
