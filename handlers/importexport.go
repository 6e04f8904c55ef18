package handlers

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"tirestock-backend/cache"
	"tirestock-backend/dtos"
	"tirestock-backend/models"
	"tirestock-backend/permissions"
	"tirestock-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ImportHandler ingests pre-parsed spreadsheet rows as a background job
// and serves the grouped export. Matching precedence per row: existing_id,
// then primary_barcode, then the kind's uniqueness key.
type ImportHandler struct {
	DB    *gorm.DB
	Cache cache.Cache
}

// applyQuantityDelta reconciles an imported quantity with the current one
// by appending an implicit movement, so the ledger stays the source of
// truth through bulk edits. Negative deltas land on the retail storefront
// channel and accrue commission like any other sale there.
func applyQuantityDelta(tx *gorm.DB, kind models.ItemKind, itemID uint, delta int, actor uuid.UUID) error {
	if delta == 0 {
		return nil
	}

	item, aerr := loadItemForUpdate(tx, kind, itemID)
	if aerr != nil {
		return aerr
	}

	after := item.CurrentQuantity() + delta
	if after < 0 {
		return fmt.Errorf("import would leave stock at %d", after)
	}

	movementType := models.MovementIn
	qty := delta
	channelName := models.ChannelReceivePurchase
	if delta < 0 {
		movementType = models.MovementOut
		qty = -delta
		channelName = models.ChannelStorefrontRetail
	}
	ch, err := channelByName(tx, channelName)
	if err != nil {
		return err
	}

	ts := nowUTC()
	note := "bulk import"
	commission := accrueCommission(tx, kind, itemID, movementType, ch, ts, qty)
	m := models.StockMovement{
		Timestamp:         ts,
		ItemID:            itemID,
		Type:              movementType,
		QuantityChange:    qty,
		RemainingQuantity: after,
		Notes:             &note,
		UserID:            actor,
		ChannelID:         ch.ID,
		AccruedCommission: &commission,
	}
	if err := tx.Table(models.MovementTable(kind)).Create(&m).Error; err != nil {
		return err
	}

	item.SetQuantity(after)
	return tx.Save(item).Error
}

// attachPrimaryBarcode binds a barcode during import, failing on codes
// already bound to a different item.
func attachPrimaryBarcode(tx *gorm.DB, kind models.ItemKind, itemID uint, code string) error {
	var existing models.Barcode
	err := tx.Where("code = ?", code).First(&existing).Error
	if err == nil {
		if existing.ItemKind == kind && existing.ItemID == itemID {
			return nil
		}
		return fmt.Errorf("barcode %s is bound to %s %d", code, existing.ItemKind, existing.ItemID)
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}

	if err := tx.Model(&models.Barcode{}).
		Where("item_kind = ? AND item_id = ? AND is_primary = ?", kind, itemID, true).
		Update("is_primary", false).Error; err != nil {
		return err
	}
	b := models.Barcode{ItemKind: kind, ItemID: itemID, Code: code, IsPrimary: true}
	return tx.Create(&b).Error
}

// matchByBarcode resolves an item id of the given kind from a barcode.
func matchByBarcode(tx *gorm.DB, kind models.ItemKind, code string) (uint, bool) {
	var b models.Barcode
	if err := tx.Where("code = ? AND item_kind = ?", code, kind).First(&b).Error; err != nil {
		return 0, false
	}
	return b.ItemID, true
}

type tireImportRequest struct {
	Rows []dtos.TireImportRow `json:"rows" binding:"required,min=1"`
}

func (h *ImportHandler) ImportTires(c *gin.Context) {
	var req tireImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrValidation, utils.SanitizeValidationError(err))
		return
	}

	job := utils.Store.CreateJob(dtos.JobKindImport, len(req.Rows))
	actor := callerID(c)
	db := h.DB

	go func() {
		utils.Store.SetProcessing(job.ID)
		for i, row := range req.Rows {
			if err := importTireRow(db, row, actor); err != nil {
				utils.Store.AddError(job.ID, i+1, fmt.Sprintf("%s %s %s", row.Brand, row.Model, row.Size), err.Error())
			} else {
				utils.Store.AddProcessed(job.ID)
			}
		}
		invalidateCatalogKeys(context.Background(), h.Cache, models.KindTire)
		utils.Store.CompleteJob(job.ID, dtos.JobStatusCompleted)
	}()

	notify(h.DB, actor, fmt.Sprintf("Started tire import of %d rows", len(req.Rows)))
	c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID})
}

func importTireRow(db *gorm.DB, row dtos.TireImportRow, actor uuid.UUID) error {
	if row.Brand == "" || row.Model == "" || row.Size == "" {
		return fmt.Errorf("brand, model and size are required")
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var tire models.Tire
		matched := false

		if row.ExistingID != nil {
			if err := tx.First(&tire, *row.ExistingID).Error; err != nil {
				return fmt.Errorf("existing_id %d not found", *row.ExistingID)
			}
			matched = true
		}
		if !matched && row.PrimaryBarcode != nil {
			if id, ok := matchByBarcode(tx, models.KindTire, *row.PrimaryBarcode); ok {
				if err := tx.First(&tire, id).Error; err != nil {
					return err
				}
				matched = true
			}
		}
		if !matched {
			err := tx.Where("brand = ? AND model = ? AND LOWER(size) = LOWER(?)",
				normalizeKey(row.Brand), normalizeKey(row.Model), row.Size).
				First(&tire).Error
			if err == nil {
				matched = true
			} else if err != gorm.ErrRecordNotFound {
				return err
			}
		}

		if matched {
			tire.Brand = normalizeKey(row.Brand)
			tire.Model = normalizeKey(row.Model)
			tire.Size = row.Size
			tire.YearOfManufacture = row.Year
			if row.CostSC != nil {
				tire.CostSC = row.CostSC
			}
			if row.CostDunlop != nil {
				tire.CostDunlop = row.CostDunlop
			}
			if row.WholesalePrice1 != nil {
				tire.WholesalePrice1 = row.WholesalePrice1
			}
			if row.WholesalePrice2 != nil {
				tire.WholesalePrice2 = row.WholesalePrice2
			}
			if row.PricePerItem != nil {
				tire.PricePerItem = row.PricePerItem
			}
			if err := tx.Save(&tire).Error; err != nil {
				return err
			}
			if err := applyQuantityDelta(tx, models.KindTire, tire.ID, row.Quantity-tire.Quantity, actor); err != nil {
				return err
			}
		} else {
			if row.PricePerItem == nil {
				return fmt.Errorf("price_per_item is required for new tires")
			}
			tire = models.Tire{
				Brand:             normalizeKey(row.Brand),
				Model:             normalizeKey(row.Model),
				Size:              row.Size,
				YearOfManufacture: row.Year,
				CostSC:            row.CostSC,
				CostDunlop:        row.CostDunlop,
				WholesalePrice1:   row.WholesalePrice1,
				WholesalePrice2:   row.WholesalePrice2,
				PricePerItem:      row.PricePerItem,
			}
			if err := tx.Create(&tire).Error; err != nil {
				return err
			}
			if err := applyQuantityDelta(tx, models.KindTire, tire.ID, row.Quantity, actor); err != nil {
				return err
			}
		}

		if row.PrimaryBarcode != nil && *row.PrimaryBarcode != "" {
			if err := attachPrimaryBarcode(tx, models.KindTire, tire.ID, *row.PrimaryBarcode); err != nil {
				return err
			}
		}
		return nil
	})
}

type wheelImportRequest struct {
	Rows []dtos.WheelImportRow `json:"rows" binding:"required,min=1"`
}

func (h *ImportHandler) ImportWheels(c *gin.Context) {
	var req wheelImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrValidation, utils.SanitizeValidationError(err))
		return
	}

	job := utils.Store.CreateJob(dtos.JobKindImport, len(req.Rows))
	actor := callerID(c)
	db := h.DB

	go func() {
		utils.Store.SetProcessing(job.ID)
		for i, row := range req.Rows {
			if err := importWheelRow(db, row, actor); err != nil {
				utils.Store.AddError(job.ID, i+1, fmt.Sprintf("%s %s", row.Brand, row.Model), err.Error())
			} else {
				utils.Store.AddProcessed(job.ID)
			}
		}
		invalidateCatalogKeys(context.Background(), h.Cache, models.KindWheel)
		utils.Store.CompleteJob(job.ID, dtos.JobStatusCompleted)
	}()

	notify(h.DB, actor, fmt.Sprintf("Started wheel import of %d rows", len(req.Rows)))
	c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID})
}

func importWheelRow(db *gorm.DB, row dtos.WheelImportRow, actor uuid.UUID) error {
	if row.Brand == "" || row.Model == "" || row.Diameter == "" || row.Width == "" {
		return fmt.Errorf("brand, model, diameter and width are required")
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var wheel models.Wheel
		matched := false

		if row.ExistingID != nil {
			if err := tx.First(&wheel, *row.ExistingID).Error; err != nil {
				return fmt.Errorf("existing_id %d not found", *row.ExistingID)
			}
			matched = true
		}
		if !matched && row.PrimaryBarcode != nil {
			if id, ok := matchByBarcode(tx, models.KindWheel, *row.PrimaryBarcode); ok {
				if err := tx.First(&wheel, id).Error; err != nil {
					return err
				}
				matched = true
			}
		}
		if !matched {
			key := wheelRequest{
				Brand:    row.Brand,
				Model:    row.Model,
				Diameter: row.Diameter,
				PCD:      row.PCD,
				Width:    row.Width,
				ET:       row.ET,
				Color:    row.Color,
			}
			err := wheelDuplicateQuery(tx, &key).First(&wheel).Error
			if err == nil {
				matched = true
			} else if err != gorm.ErrRecordNotFound {
				return err
			}
		}

		if matched {
			wheel.Brand = normalizeKey(row.Brand)
			wheel.Model = normalizeKey(row.Model)
			wheel.Diameter = row.Diameter
			wheel.PCD = row.PCD
			wheel.Width = row.Width
			wheel.ET = row.ET
			wheel.Color = row.Color
			if row.Cost != nil {
				wheel.Cost = row.Cost
			}
			if row.WholesalePrice1 != nil {
				wheel.WholesalePrice1 = row.WholesalePrice1
			}
			if row.WholesalePrice2 != nil {
				wheel.WholesalePrice2 = row.WholesalePrice2
			}
			if row.RetailPrice != nil {
				wheel.RetailPrice = row.RetailPrice
			}
			if err := tx.Save(&wheel).Error; err != nil {
				return err
			}
			if err := applyQuantityDelta(tx, models.KindWheel, wheel.ID, row.Quantity-wheel.Quantity, actor); err != nil {
				return err
			}
		} else {
			if row.RetailPrice == nil {
				return fmt.Errorf("retail_price is required for new wheels")
			}
			wheel = models.Wheel{
				Brand:           normalizeKey(row.Brand),
				Model:           normalizeKey(row.Model),
				Diameter:        row.Diameter,
				PCD:             row.PCD,
				Width:           row.Width,
				ET:              row.ET,
				Color:           row.Color,
				Cost:            row.Cost,
				WholesalePrice1: row.WholesalePrice1,
				WholesalePrice2: row.WholesalePrice2,
				RetailPrice:     row.RetailPrice,
			}
			if err := tx.Create(&wheel).Error; err != nil {
				return err
			}
			if err := applyQuantityDelta(tx, models.KindWheel, wheel.ID, row.Quantity, actor); err != nil {
				return err
			}
		}

		if row.PrimaryBarcode != nil && *row.PrimaryBarcode != "" {
			if err := attachPrimaryBarcode(tx, models.KindWheel, wheel.ID, *row.PrimaryBarcode); err != nil {
				return err
			}
		}
		return nil
	})
}

type sparePartImportRequest struct {
	Rows []dtos.SparePartImportRow `json:"rows" binding:"required,min=1"`
}

func (h *ImportHandler) ImportSpareParts(c *gin.Context) {
	var req sparePartImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrValidation, utils.SanitizeValidationError(err))
		return
	}

	job := utils.Store.CreateJob(dtos.JobKindImport, len(req.Rows))
	actor := callerID(c)
	db := h.DB

	go func() {
		utils.Store.SetProcessing(job.ID)
		for i, row := range req.Rows {
			if err := importSparePartRow(db, row, actor); err != nil {
				utils.Store.AddError(job.ID, i+1, row.Name, err.Error())
			} else {
				utils.Store.AddProcessed(job.ID)
			}
		}
		invalidateCatalogKeys(context.Background(), h.Cache, models.KindSparePart)
		utils.Store.CompleteJob(job.ID, dtos.JobStatusCompleted)
	}()

	notify(h.DB, actor, fmt.Sprintf("Started spare part import of %d rows", len(req.Rows)))
	c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID})
}

func importSparePartRow(db *gorm.DB, row dtos.SparePartImportRow, actor uuid.UUID) error {
	if row.Name == "" {
		return fmt.Errorf("name is required")
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if row.CategoryID != nil {
			var cat models.SparePartCategory
			if err := tx.First(&cat, *row.CategoryID).Error; err != nil {
				return fmt.Errorf("category %d not found", *row.CategoryID)
			}
		}

		var part models.SparePart
		matched := false

		if row.ExistingID != nil {
			if err := tx.First(&part, *row.ExistingID).Error; err != nil {
				return fmt.Errorf("existing_id %d not found", *row.ExistingID)
			}
			matched = true
		}
		if !matched && row.PrimaryBarcode != nil {
			if id, ok := matchByBarcode(tx, models.KindSparePart, *row.PrimaryBarcode); ok {
				if err := tx.First(&part, id).Error; err != nil {
					return err
				}
				matched = true
			}
		}
		if !matched {
			key := sparePartRequest{
				Name:       row.Name,
				PartNumber: row.PartNumber,
				Brand:      row.Brand,
			}
			err := sparePartDuplicateQuery(tx, &key).First(&part).Error
			if err == nil {
				matched = true
			} else if err != gorm.ErrRecordNotFound {
				return err
			}
		}

		if matched {
			part.Name = row.Name
			part.PartNumber = row.PartNumber
			part.Brand = normalizeBrandPtr(row.Brand)
			part.CategoryID = row.CategoryID
			if row.Cost != nil {
				part.Cost = row.Cost
			}
			if row.WholesalePrice1 != nil {
				part.WholesalePrice1 = row.WholesalePrice1
			}
			if row.WholesalePrice2 != nil {
				part.WholesalePrice2 = row.WholesalePrice2
			}
			if row.RetailPrice != nil {
				part.RetailPrice = row.RetailPrice
			}
			if err := tx.Save(&part).Error; err != nil {
				return err
			}
			if err := applyQuantityDelta(tx, models.KindSparePart, part.ID, row.Quantity-part.Quantity, actor); err != nil {
				return err
			}
		} else {
			if row.RetailPrice == nil {
				return fmt.Errorf("retail_price is required for new spare parts")
			}
			part = models.SparePart{
				Name:            row.Name,
				PartNumber:      row.PartNumber,
				Brand:           normalizeBrandPtr(row.Brand),
				CategoryID:      row.CategoryID,
				Cost:            row.Cost,
				WholesalePrice1: row.WholesalePrice1,
				WholesalePrice2: row.WholesalePrice2,
				RetailPrice:     row.RetailPrice,
			}
			if err := tx.Create(&part).Error; err != nil {
				return err
			}
			if err := applyQuantityDelta(tx, models.KindSparePart, part.ID, row.Quantity, actor); err != nil {
				return err
			}
		}

		if row.PrimaryBarcode != nil && *row.PrimaryBarcode != "" {
			if err := attachPrimaryBarcode(tx, models.KindSparePart, part.ID, *row.PrimaryBarcode); err != nil {
				return err
			}
		}
		return nil
	})
}

type exportGroup struct {
	Name  string        `json:"name"`
	Items []interface{} `json:"items"`
}

// ExportItems returns the full role-filtered catalog of one kind, grouped
// the way the spreadsheet lays it out.
func (h *ImportHandler) ExportItems(c *gin.Context) {
	kind, ok := parseKind(c)
	if !ok {
		respondError(c, ErrValidation, "Unknown item kind")
		return
	}
	role := callerRole(c)

	var groups []exportGroup
	appendItem := func(group string, item interface{}) {
		if len(groups) == 0 || groups[len(groups)-1].Name != group {
			groups = append(groups, exportGroup{Name: group})
		}
		groups[len(groups)-1].Items = append(groups[len(groups)-1].Items, item)
	}

	switch kind {
	case models.KindTire:
		var tires []models.Tire
		if err := h.DB.Where("is_deleted = ?", false).Order("brand asc, model asc, size asc").Find(&tires).Error; err != nil {
			respondError(c, ErrInternal, "Failed to export")
			return
		}
		for i := range tires {
			appendItem(tires[i].Brand, permissions.FilterTire(role, tires[i]))
		}
	case models.KindWheel:
		var wheels []models.Wheel
		if err := h.DB.Where("is_deleted = ?", false).Order("brand asc, model asc, diameter asc").Find(&wheels).Error; err != nil {
			respondError(c, ErrInternal, "Failed to export")
			return
		}
		for i := range wheels {
			appendItem(wheels[i].Brand, permissions.FilterWheel(role, wheels[i]))
		}
	case models.KindSparePart:
		var parts []models.SparePart
		if err := h.DB.Preload("Category").Where("is_deleted = ?", false).Order("name asc").Find(&parts).Error; err != nil {
			respondError(c, ErrInternal, "Failed to export")
			return
		}
		byCategory := map[string][]models.SparePart{}
		var names []string
		for i := range parts {
			group := "Uncategorized"
			if parts[i].Category != nil {
				group = parts[i].Category.DisplayName
			}
			if _, seen := byCategory[group]; !seen {
				names = append(names, group)
			}
			byCategory[group] = append(byCategory[group], parts[i])
		}
		sort.Strings(names)
		for _, name := range names {
			for _, p := range byCategory[name] {
				appendItem(name, permissions.FilterSparePart(role, p))
			}
		}
	}

	if groups == nil {
		groups = []exportGroup{}
	}
	c.JSON(http.StatusOK, gin.H{"kind": kind, "groups": groups})
}
