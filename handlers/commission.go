package handlers

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"tirestock-backend/config"
	"tirestock-backend/dtos"
	"tirestock-backend/models"
	"tirestock-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CommissionHandler struct {
	DB *gorm.DB
}

type commissionProgramRequest struct {
	ItemKind      string  `json:"item_kind" binding:"required,oneof=tire wheel spare_part"`
	ItemID        uint    `json:"item_id" binding:"required"`
	StartDate     string  `json:"start_date" binding:"required"`
	EndDate       *string `json:"end_date"`
	AmountPerItem float64 `json:"amount_per_item" binding:"required,gt=0"`
}

// CreateProgram opens a commission window on one item. Windows on the
// same item may not overlap.
func (h *CommissionHandler) CreateProgram(c *gin.Context) {
	var req commissionProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrValidation, utils.SanitizeValidationError(err))
		return
	}

	kind := models.ItemKind(req.ItemKind)
	start, err := parseCivilDate(req.StartDate)
	if err != nil {
		respondError(c, ErrValidation, "Invalid start_date")
		return
	}
	startDay := civilDateUTC(start)

	var endDay *time.Time
	if req.EndDate != nil {
		end, err := parseCivilDate(*req.EndDate)
		if err != nil {
			respondError(c, ErrValidation, "Invalid end_date")
			return
		}
		d := civilDateUTC(end)
		if d.Before(startDay) {
			respondError(c, ErrValidation, "end_date is before start_date")
			return
		}
		endDay = &d
	}

	if _, err := loadItem(h.DB, kind, req.ItemID); err != nil {
		respondError(c, ErrNotFound, "Item not found")
		return
	}

	var existing []models.CommissionProgram
	if err := h.DB.Where("item_kind = ? AND item_id = ?", kind, req.ItemID).Find(&existing).Error; err != nil {
		respondError(c, ErrInternal, "Failed to check existing programs")
		return
	}
	for _, p := range existing {
		if p.Covers(startDay) || (endDay != nil && p.Covers(*endDay)) ||
			(!startDay.After(p.StartDate) && (endDay == nil || !endDay.Before(p.StartDate))) {
			respondError(c, ErrConflictingState, "An overlapping commission program already exists for this item")
			return
		}
	}

	program := models.CommissionProgram{
		ItemKind:      kind,
		ItemID:        req.ItemID,
		StartDate:     startDay,
		EndDate:       endDay,
		AmountPerItem: req.AmountPerItem,
		CreatedBy:     callerID(c),
	}
	if err := h.DB.Create(&program).Error; err != nil {
		respondError(c, ErrInternal, "Failed to create commission program")
		return
	}

	notify(h.DB, callerID(c), fmt.Sprintf("Opened commission program #%d on %s %d", program.ID, kind, req.ItemID))
	c.JSON(http.StatusCreated, program)
}

func (h *CommissionHandler) DeleteProgram(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondError(c, ErrValidation, "Invalid id")
		return
	}

	var program models.CommissionProgram
	if err := h.DB.First(&program, id).Error; err != nil {
		respondError(c, ErrNotFound, "Commission program not found")
		return
	}
	if err := h.DB.Delete(&program).Error; err != nil {
		respondError(c, ErrInternal, "Failed to delete commission program")
		return
	}

	notify(h.DB, callerID(c), fmt.Sprintf("Deleted commission program #%d", program.ID))
	c.JSON(http.StatusOK, gin.H{"message": "Commission program deleted"})
}

// GetPrograms lists programs, optionally scoped to one item.
func (h *CommissionHandler) GetPrograms(c *gin.Context) {
	query := h.DB.Order("start_date desc, id desc")
	if kind := c.Query("item_kind"); kind != "" {
		if !models.ItemKind(kind).Valid() {
			respondError(c, ErrValidation, "Unknown item kind")
			return
		}
		query = query.Where("item_kind = ?", kind)
	}
	if itemID := c.Query("item_id"); itemID != "" {
		query = query.Where("item_id = ?", itemID)
	}

	var programs []models.CommissionProgram
	if err := query.Find(&programs).Error; err != nil {
		respondError(c, ErrInternal, "Failed to fetch commission programs")
		return
	}
	c.JSON(http.StatusOK, programs)
}

type commissionReportLine struct {
	ItemKind  models.ItemKind        `json:"item_kind"`
	ItemID    uint                   `json:"item_id"`
	Label     string                 `json:"label"`
	UnitsSold int                    `json:"units_sold"`
	Total     float64                `json:"total_commission"`
	Movements []models.StockMovement `json:"movements"`
}

// GetReport sums accrued commission over a civil date range, grouped by
// item, with the contributing movements attached for drill-down.
func (h *CommissionHandler) GetReport(c *gin.Context) {
	from, err := parseCivilDate(c.Query("from"))
	if err != nil {
		respondError(c, ErrValidation, "Invalid from date")
		return
	}
	to, err := parseCivilDate(c.Query("to"))
	if err != nil {
		respondError(c, ErrValidation, "Invalid to date")
		return
	}
	start, _ := dayBoundsUTC(from)
	_, end := dayBoundsUTC(to)
	if end.Before(start) {
		respondError(c, ErrValidation, "to is before from")
		return
	}

	var lines []commissionReportLine
	grand := 0.0

	for _, kind := range models.AllKinds {
		var movements []models.StockMovement
		if err := h.DB.Table(models.MovementTable(kind)).
			Where("type = ? AND timestamp >= ? AND timestamp < ? AND accrued_commission > 0",
				models.MovementOut, start, end).
			Order("item_id asc, timestamp asc, id asc").
			Find(&movements).Error; err != nil {
			respondError(c, ErrInternal, "Failed to fetch movements")
			return
		}

		byItem := map[uint]*commissionReportLine{}
		var order []uint
		for _, m := range movements {
			line, seen := byItem[m.ItemID]
			if !seen {
				line = &commissionReportLine{ItemKind: kind, ItemID: m.ItemID}
				if item, err := loadItem(h.DB, kind, m.ItemID); err == nil {
					line.Label = item.Label()
				}
				byItem[m.ItemID] = line
				order = append(order, m.ItemID)
			}
			line.UnitsSold += m.QuantityChange
			if m.AccruedCommission != nil {
				line.Total += *m.AccruedCommission
				grand += *m.AccruedCommission
			}
			line.Movements = append(line.Movements, m)
		}
		for _, id := range order {
			lines = append(lines, *byItem[id])
		}
	}

	if lines == nil {
		lines = []commissionReportLine{}
	}
	c.JSON(http.StatusOK, gin.H{
		"from":             c.Query("from"),
		"to":               c.Query("to"),
		"grand_total":      grand,
		"items":            lines,
		"retail_channel":   config.RetailChannelName(),
	})
}

// RepairAccruals recomputes the stored commission on every OUT movement
// from the program table. Runs as a background job; returns the job id.
func (h *CommissionHandler) RepairAccruals(c *gin.Context) {
	var total int64
	for _, kind := range models.AllKinds {
		var n int64
		h.DB.Table(models.MovementTable(kind)).Where("type = ?", models.MovementOut).Count(&n)
		total += n
	}

	job := utils.Store.CreateJob(dtos.JobKindCommissionRepair, int(total))
	db := h.DB

	go func() {
		utils.Store.SetProcessing(job.ID)

		var retail models.SalesChannel
		if err := db.Where("name = ?", config.RetailChannelName()).First(&retail).Error; err != nil {
			log.Printf("commission repair: retail channel missing: %v", err)
			utils.Store.CompleteJob(job.ID, dtos.JobStatusFailed)
			return
		}

		for _, kind := range models.AllKinds {
			var movements []models.StockMovement
			if err := db.Table(models.MovementTable(kind)).
				Where("type = ?", models.MovementOut).
				Order("id asc").
				Find(&movements).Error; err != nil {
				utils.Store.AddError(job.ID, 0, string(kind), err.Error())
				continue
			}

			var programs []models.CommissionProgram
			if err := db.Where("item_kind = ?", kind).Find(&programs).Error; err != nil {
				utils.Store.AddError(job.ID, 0, string(kind), err.Error())
				continue
			}
			byItem := map[uint][]models.CommissionProgram{}
			for _, p := range programs {
				byItem[p.ItemID] = append(byItem[p.ItemID], p)
			}

			for i := range movements {
				m := &movements[i]
				want := 0.0
				if m.ChannelID == retail.ID {
					day := civilDateUTC(m.Timestamp)
					for _, p := range byItem[m.ItemID] {
						if p.Covers(day) {
							want = p.AmountPerItem * float64(m.QuantityChange)
							break
						}
					}
				}
				have := 0.0
				if m.AccruedCommission != nil {
					have = *m.AccruedCommission
				}
				if have != want {
					if err := db.Table(models.MovementTable(kind)).
						Where("id = ?", m.ID).
						Update("accrued_commission", want).Error; err != nil {
						utils.Store.AddError(job.ID, int(m.ID), string(kind), err.Error())
					}
				}
				utils.Store.AddProcessed(job.ID)
			}
		}

		utils.Store.CompleteJob(job.ID, dtos.JobStatusCompleted)
	}()

	c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID})
}
