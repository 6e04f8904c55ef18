package handlers

import (
	"fmt"
	"net/http"
	"time"

	"tirestock-backend/cache"
	"tirestock-backend/config"
	"tirestock-backend/models"
	"tirestock-backend/permissions"
	"tirestock-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MovementHandler struct {
	DB    *gorm.DB
	Cache cache.Cache
}

type recordMovementRequest struct {
	ItemID              uint    `json:"item_id" binding:"required"`
	Type                string  `json:"type" binding:"required,oneof=IN OUT RETURN"`
	Quantity            int     `json:"quantity" binding:"required"`
	ChannelID           uint    `json:"channel_id" binding:"required"`
	OnlinePlatformID    *uint   `json:"online_platform_id"`
	WholesaleCustomerID *uint   `json:"wholesale_customer_id"`
	ReturnCustomerType  *string `json:"return_customer_type"`
	Notes               *string `json:"notes"`
	ImageRef            *string `json:"image_ref"`
}

// loadItemForUpdate locks the item row so concurrent OUTs serialize on it.
func loadItemForUpdate(tx *gorm.DB, kind models.ItemKind, id uint) (models.StockItem, *apiError) {
	var item models.StockItem
	var err error
	switch kind {
	case models.KindTire:
		t := &models.Tire{}
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(t, id).Error
		item = t
	case models.KindWheel:
		w := &models.Wheel{}
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(w, id).Error
		item = w
	case models.KindSparePart:
		s := &models.SparePart{}
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(s, id).Error
		item = s
	}
	if err == gorm.ErrRecordNotFound {
		return nil, newAPIError(ErrNotFound, "Item not found")
	}
	if err != nil {
		return nil, newAPIError(ErrInternal, "Failed to load item")
	}
	if item.Deleted() {
		return nil, newAPIError(ErrStaleItem, "Item is deleted")
	}
	return item, nil
}

// validateChannel enforces the channel/sub-attribution rules:
//
//	IN      -> receive-purchase only, no sub-attribution
//	RETURN  -> receive-return only, return_customer_type required;
//	           online needs a platform, storefront_shop a wholesale customer
//	OUT     -> any non-receiving channel; online needs a platform,
//	           wholesale needs a wholesale customer
func validateChannel(tx *gorm.DB, req *recordMovementRequest) (*models.SalesChannel, *apiError) {
	var channel models.SalesChannel
	if err := tx.First(&channel, req.ChannelID).Error; err != nil {
		return nil, newAPIError(ErrNotFound, "Sales channel not found")
	}

	switch req.Type {
	case models.MovementIn:
		if channel.Name != models.ChannelReceivePurchase {
			return nil, newAPIError(ErrChannelRule, "IN movements must use the receive-purchase channel")
		}
		if req.ReturnCustomerType != nil || req.OnlinePlatformID != nil || req.WholesaleCustomerID != nil {
			return nil, newAPIError(ErrChannelRule, "IN movements carry no sub-attribution")
		}

	case models.MovementReturn:
		if channel.Name != models.ChannelReceiveReturn {
			return nil, newAPIError(ErrChannelRule, "RETURN movements must use the receive-return channel")
		}
		if req.ReturnCustomerType == nil {
			return nil, newAPIError(ErrChannelRule, "RETURN movements require return_customer_type")
		}
		switch *req.ReturnCustomerType {
		case models.ReturnCustomerOnline:
			if req.OnlinePlatformID == nil {
				return nil, newAPIError(ErrChannelRule, "Online returns require online_platform_id")
			}
		case models.ReturnCustomerStorefrontShop:
			if req.WholesaleCustomerID == nil {
				return nil, newAPIError(ErrChannelRule, "Shop returns require wholesale_customer_id")
			}
		case models.ReturnCustomerStorefrontWalk:
			// walk-in returns carry no further attribution
		default:
			return nil, newAPIError(ErrChannelRule, "Unknown return_customer_type")
		}

	case models.MovementOut:
		if channel.IsReceiving() {
			return nil, newAPIError(ErrChannelRule, "OUT movements cannot use a receive channel")
		}
		if req.ReturnCustomerType != nil {
			return nil, newAPIError(ErrChannelRule, "OUT movements carry no return_customer_type")
		}
		if channel.Name == models.ChannelOnline && req.OnlinePlatformID == nil {
			return nil, newAPIError(ErrChannelRule, "Online sales require online_platform_id")
		}
		if channel.Name == models.ChannelStorefrontWholesale && req.WholesaleCustomerID == nil {
			return nil, newAPIError(ErrChannelRule, "Wholesale sales require wholesale_customer_id")
		}
	}

	if req.OnlinePlatformID != nil {
		var p models.OnlinePlatform
		if err := tx.First(&p, *req.OnlinePlatformID).Error; err != nil {
			return nil, newAPIError(ErrNotFound, "Online platform not found")
		}
	}
	if req.WholesaleCustomerID != nil {
		var w models.WholesaleCustomer
		if err := tx.First(&w, *req.WholesaleCustomerID).Error; err != nil {
			return nil, newAPIError(ErrNotFound, "Wholesale customer not found")
		}
	}

	return &channel, nil
}

// accrueCommission returns the commission earned by an OUT movement on the
// retail storefront channel when a program covers the movement's civil
// date, zero otherwise.
func accrueCommission(tx *gorm.DB, kind models.ItemKind, itemID uint, movementType string, channel *models.SalesChannel, ts time.Time, qty int) float64 {
	if movementType != models.MovementOut || channel.Name != config.RetailChannelName() {
		return 0
	}
	var programs []models.CommissionProgram
	if err := tx.Where("item_kind = ? AND item_id = ?", kind, itemID).Find(&programs).Error; err != nil {
		return 0
	}
	day := civilDateUTC(ts)
	for _, p := range programs {
		if p.Covers(day) {
			return p.AmountPerItem * float64(qty)
		}
	}
	return 0
}

// RecordMovement appends one IN/OUT/RETURN event and mirrors the resulting
// quantity onto the item row inside the same transaction.
func (h *MovementHandler) RecordMovement(c *gin.Context) {
	kind, ok := parseKind(c)
	if !ok {
		respondError(c, ErrValidation, "Unknown item kind")
		return
	}

	var req recordMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrValidation, utils.SanitizeValidationError(err))
		return
	}
	if req.Quantity < 1 {
		respondError(c, ErrValidation, "quantity must be at least 1")
		return
	}

	role := callerRole(c)
	if !permissions.CanScannerWrite(role, req.Type) {
		respondError(c, ErrUnauthorized, "Role may not record this movement type")
		return
	}

	var created models.StockMovement
	var label string

	tx := h.DB.Begin()

	channel, aerr := validateChannel(tx, &req)
	if aerr != nil {
		tx.Rollback()
		respondError(c, aerr.Code, aerr.Message)
		return
	}

	item, aerr := loadItemForUpdate(tx, kind, req.ItemID)
	if aerr != nil {
		tx.Rollback()
		respondError(c, aerr.Code, aerr.Message)
		return
	}
	label = item.Label()

	before := item.CurrentQuantity()
	var after int
	switch req.Type {
	case models.MovementOut:
		if before < req.Quantity {
			tx.Rollback()
			respondError(c, ErrInsufficientStock, fmt.Sprintf("Only %d in stock", before))
			return
		}
		after = before - req.Quantity
	default:
		after = before + req.Quantity
	}

	now := time.Now().UTC()
	commission := accrueCommission(tx, kind, req.ItemID, req.Type, channel, now, req.Quantity)

	created = models.StockMovement{
		Timestamp:           now,
		ItemID:              req.ItemID,
		Type:                req.Type,
		QuantityChange:      req.Quantity,
		RemainingQuantity:   after,
		Notes:               req.Notes,
		ImageRef:            req.ImageRef,
		UserID:              callerID(c),
		ChannelID:           req.ChannelID,
		OnlinePlatformID:    req.OnlinePlatformID,
		WholesaleCustomerID: req.WholesaleCustomerID,
		ReturnCustomerType:  req.ReturnCustomerType,
		AccruedCommission:   &commission,
	}
	if err := tx.Table(models.MovementTable(kind)).Create(&created).Error; err != nil {
		tx.Rollback()
		respondError(c, ErrInternal, "Failed to record movement")
		return
	}

	item.SetQuantity(after)
	if err := tx.Save(item).Error; err != nil {
		tx.Rollback()
		respondError(c, ErrInternal, "Failed to update item quantity")
		return
	}

	if err := tx.Commit().Error; err != nil {
		respondError(c, ErrInternal, "Failed to record movement")
		return
	}

	notify(h.DB, callerID(c), fmt.Sprintf("%s %d x %s (%d left)", req.Type, req.Quantity, label, after))
	invalidateCatalog(c, h.Cache, kind)

	c.JSON(http.StatusCreated, permissions.FilterMovement(callerRole(c), created))
}

type amendMovementRequest struct {
	Type                *string `json:"type"`
	Quantity            *int    `json:"quantity"`
	ChannelID           *uint   `json:"channel_id"`
	OnlinePlatformID    *uint   `json:"online_platform_id"`
	WholesaleCustomerID *uint   `json:"wholesale_customer_id"`
	ReturnCustomerType  *string `json:"return_customer_type"`
	Notes               *string `json:"notes"`
	ImageRef            *string `json:"image_ref"`
}

// balanceBefore infers the on-hand count just before m from its recorded
// remaining quantity. Histories may open mid-stream (legacy stock created
// before the ledger), so folding from zero is not an option here.
func balanceBefore(m *models.StockMovement) int {
	return m.RemainingQuantity - m.SignedChange()
}

// refold recomputes remaining quantities for movements, starting from the
// given balance, in (timestamp, id) order. It fails if any intermediate
// balance would go negative. The caller persists the updated rows.
func refold(start int, movements []models.StockMovement) (int, *apiError) {
	balance := start
	for i := range movements {
		balance += movements[i].SignedChange()
		if balance < 0 {
			return 0, newAPIError(ErrAmendBreaksInvariant,
				fmt.Sprintf("Movement %d would leave stock at %d", movements[i].ID, balance))
		}
		movements[i].RemainingQuantity = balance
	}
	return balance, nil
}

// laterMovements loads the item's movements at or after the given
// movement's position, exclusive of the movement itself, ordered by
// (timestamp, id).
func laterMovements(tx *gorm.DB, kind models.ItemKind, m *models.StockMovement) ([]models.StockMovement, error) {
	var out []models.StockMovement
	err := tx.Table(models.MovementTable(kind)).
		Where("item_id = ? AND (timestamp > ? OR (timestamp = ? AND id > ?))", m.ItemID, m.Timestamp, m.Timestamp, m.ID).
		Order("timestamp asc, id asc").
		Find(&out).Error
	return out, err
}

// AmendMovement changes an existing movement and re-applies the quantity
// arithmetic to every later movement of the same item. Nothing is persisted
// if the amendment would drive any balance below zero.
func (h *MovementHandler) AmendMovement(c *gin.Context) {
	kind, ok := parseKind(c)
	if !ok {
		respondError(c, ErrValidation, "Unknown item kind")
		return
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondError(c, ErrValidation, "Invalid movement id")
		return
	}

	var req amendMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrValidation, utils.SanitizeValidationError(err))
		return
	}
	if req.Quantity != nil && *req.Quantity < 1 {
		respondError(c, ErrValidation, "quantity must be at least 1")
		return
	}
	if req.Type != nil && *req.Type != models.MovementIn && *req.Type != models.MovementOut && *req.Type != models.MovementReturn {
		respondError(c, ErrValidation, "type must be IN, OUT or RETURN")
		return
	}

	tx := h.DB.Begin()

	var m models.StockMovement
	if err := tx.Table(models.MovementTable(kind)).First(&m, id).Error; err != nil {
		tx.Rollback()
		respondError(c, ErrNotFound, "Movement not found")
		return
	}

	item, aerr := loadItemForUpdate(tx, kind, m.ItemID)
	if aerr != nil {
		tx.Rollback()
		respondError(c, aerr.Code, aerr.Message)
		return
	}

	opening := balanceBefore(&m)

	if req.Type != nil {
		m.Type = *req.Type
		// Sub-attribution that no longer applies is dropped rather than
		// rejected: amending RETURN->OUT should not require the caller to
		// clear return_customer_type explicitly.
		if m.Type != models.MovementReturn {
			m.ReturnCustomerType = nil
		}
		if m.Type == models.MovementIn {
			m.OnlinePlatformID = nil
			m.WholesaleCustomerID = nil
		}
	}
	if req.Quantity != nil {
		m.QuantityChange = *req.Quantity
	}
	if req.ChannelID != nil {
		m.ChannelID = *req.ChannelID
	}
	if req.OnlinePlatformID != nil {
		m.OnlinePlatformID = req.OnlinePlatformID
	}
	if req.WholesaleCustomerID != nil {
		m.WholesaleCustomerID = req.WholesaleCustomerID
	}
	if req.ReturnCustomerType != nil {
		m.ReturnCustomerType = req.ReturnCustomerType
	}
	if req.Notes != nil {
		m.Notes = req.Notes
	}
	if req.ImageRef != nil {
		m.ImageRef = req.ImageRef
	}

	checkReq := recordMovementRequest{
		ItemID:              m.ItemID,
		Type:                m.Type,
		Quantity:            m.QuantityChange,
		ChannelID:           m.ChannelID,
		OnlinePlatformID:    m.OnlinePlatformID,
		WholesaleCustomerID: m.WholesaleCustomerID,
		ReturnCustomerType:  m.ReturnCustomerType,
	}
	channel, aerr := validateChannel(tx, &checkReq)
	if aerr != nil {
		tx.Rollback()
		respondError(c, aerr.Code, aerr.Message)
		return
	}

	later, err := laterMovements(tx, kind, &m)
	if err != nil {
		tx.Rollback()
		respondError(c, ErrInternal, "Failed to load movement history")
		return
	}

	chain := append([]models.StockMovement{m}, later...)
	final, aerr := refold(opening, chain)
	if aerr != nil {
		tx.Rollback()
		respondError(c, aerr.Code, aerr.Message)
		return
	}

	commission := accrueCommission(tx, kind, m.ItemID, chain[0].Type, channel, chain[0].Timestamp, chain[0].QuantityChange)
	chain[0].AccruedCommission = &commission

	for i := range chain {
		if err := tx.Table(models.MovementTable(kind)).Save(&chain[i]).Error; err != nil {
			tx.Rollback()
			respondError(c, ErrInternal, "Failed to update movements")
			return
		}
	}

	item.SetQuantity(final)
	if err := tx.Save(item).Error; err != nil {
		tx.Rollback()
		respondError(c, ErrInternal, "Failed to update item quantity")
		return
	}

	if err := tx.Commit().Error; err != nil {
		respondError(c, ErrInternal, "Failed to amend movement")
		return
	}

	notify(h.DB, callerID(c), fmt.Sprintf("Amended movement #%d of %s", m.ID, item.Label()))
	invalidateCatalog(c, h.Cache, kind)

	c.JSON(http.StatusOK, permissions.FilterMovement(callerRole(c), chain[0]))
}

// DeleteMovement removes a movement and re-applies the arithmetic to every
// later movement of the item. Admin only.
func (h *MovementHandler) DeleteMovement(c *gin.Context) {
	kind, ok := parseKind(c)
	if !ok {
		respondError(c, ErrValidation, "Unknown item kind")
		return
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondError(c, ErrValidation, "Invalid movement id")
		return
	}

	tx := h.DB.Begin()

	var m models.StockMovement
	if err := tx.Table(models.MovementTable(kind)).First(&m, id).Error; err != nil {
		tx.Rollback()
		respondError(c, ErrNotFound, "Movement not found")
		return
	}

	item, aerr := loadItemForUpdate(tx, kind, m.ItemID)
	if aerr != nil {
		tx.Rollback()
		respondError(c, aerr.Code, aerr.Message)
		return
	}

	opening := balanceBefore(&m)

	later, err := laterMovements(tx, kind, &m)
	if err != nil {
		tx.Rollback()
		respondError(c, ErrInternal, "Failed to load movement history")
		return
	}

	final, aerr := refold(opening, later)
	if aerr != nil {
		tx.Rollback()
		respondError(c, aerr.Code, aerr.Message)
		return
	}

	if err := tx.Table(models.MovementTable(kind)).Delete(&models.StockMovement{}, m.ID).Error; err != nil {
		tx.Rollback()
		respondError(c, ErrInternal, "Failed to delete movement")
		return
	}
	for i := range later {
		if err := tx.Table(models.MovementTable(kind)).Save(&later[i]).Error; err != nil {
			tx.Rollback()
			respondError(c, ErrInternal, "Failed to update movements")
			return
		}
	}

	item.SetQuantity(final)
	if err := tx.Save(item).Error; err != nil {
		tx.Rollback()
		respondError(c, ErrInternal, "Failed to update item quantity")
		return
	}

	if err := tx.Commit().Error; err != nil {
		respondError(c, ErrInternal, "Failed to delete movement")
		return
	}

	notify(h.DB, callerID(c), fmt.Sprintf("Deleted movement #%d of %s", m.ID, item.Label()))
	invalidateCatalog(c, h.Cache, kind)

	c.JSON(http.StatusOK, gin.H{"message": "Movement deleted", "item_quantity": final})
}

// GetHistory lists an item's movements, newest first. Accepts optional
// date filters (YYYY-MM-DD, civil days in the display zone).
func (h *MovementHandler) GetHistory(c *gin.Context) {
	kind, ok := parseKind(c)
	if !ok {
		respondError(c, ErrValidation, "Unknown item kind")
		return
	}

	query := h.DB.Table(models.MovementTable(kind)).Order("timestamp desc, id desc")

	if itemID := c.Query("item_id"); itemID != "" {
		query = query.Where("item_id = ?", itemID)
	}
	if from := c.Query("from"); from != "" {
		d, err := parseCivilDate(from)
		if err != nil {
			respondError(c, ErrValidation, "Invalid from date")
			return
		}
		start, _ := dayBoundsUTC(d)
		query = query.Where("timestamp >= ?", start)
	}
	if to := c.Query("to"); to != "" {
		d, err := parseCivilDate(to)
		if err != nil {
			respondError(c, ErrValidation, "Invalid to date")
			return
		}
		_, end := dayBoundsUTC(d)
		query = query.Where("timestamp < ?", end)
	}

	var movements []models.StockMovement
	if err := query.Limit(500).Find(&movements).Error; err != nil {
		respondError(c, ErrInternal, "Failed to fetch movements")
		return
	}

	role := callerRole(c)
	for i := range movements {
		movements[i] = permissions.FilterMovement(role, movements[i])
	}
	c.JSON(http.StatusOK, movements)
}

// rebuildItemQuantities folds one item's ledger from zero, rewriting each
// row's remaining quantity and the item mirror. Running it twice with no
// intervening writes is a no-op.
func rebuildItemQuantities(db *gorm.DB, kind models.ItemKind, itemID uint) error {
	tx := db.Begin()

	item, aerr := loadItemForUpdate(tx, kind, itemID)
	if aerr != nil {
		tx.Rollback()
		return aerr
	}

	var movements []models.StockMovement
	if err := tx.Table(models.MovementTable(kind)).
		Where("item_id = ?", itemID).
		Order("timestamp asc, id asc").
		Find(&movements).Error; err != nil {
		tx.Rollback()
		return err
	}

	balance := 0
	for i := range movements {
		balance += movements[i].SignedChange()
		if movements[i].RemainingQuantity != balance {
			movements[i].RemainingQuantity = balance
			if err := tx.Table(models.MovementTable(kind)).Save(&movements[i]).Error; err != nil {
				tx.Rollback()
				return err
			}
		}
	}

	item.SetQuantity(balance)
	if err := tx.Save(item).Error; err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
