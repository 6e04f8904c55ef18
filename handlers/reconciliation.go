package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"tirestock-backend/models"
	"tirestock-backend/permissions"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ReconciliationHandler struct {
	DB *gorm.DB
}

// GetOrCreate returns the reconciliation row for the given civil date,
// creating an open one on first access. Concurrent first calls race on
// the unique date index; the loser re-reads the winner's row.
func (h *ReconciliationHandler) GetOrCreate(c *gin.Context) {
	d, err := parseCivilDate(c.Query("date"))
	if err != nil {
		respondError(c, ErrValidation, "Invalid date")
		return
	}
	day := civilDateUTC(d)

	var rec models.Reconciliation
	err = h.DB.Where("date = ?", day).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		rec = models.Reconciliation{
			Date:         day,
			OpenerUserID: callerID(c),
			Status:       models.ReconciliationOpen,
		}
		if createErr := h.DB.Create(&rec).Error; createErr != nil {
			if err := h.DB.Where("date = ?", day).First(&rec).Error; err != nil {
				respondError(c, ErrInternal, "Failed to open reconciliation")
				return
			}
		}
	} else if err != nil {
		respondError(c, ErrInternal, "Failed to fetch reconciliation")
		return
	}

	c.JSON(http.StatusOK, rec)
}

type managerLedgerRequest struct {
	ManagerLedger datatypes.JSON `json:"manager_ledger" binding:"required"`
}

// UpdateManagerLedger replaces the staff-authored ledger on an open day.
// The payload is stored verbatim; the engine never interprets it.
func (h *ReconciliationHandler) UpdateManagerLedger(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondError(c, ErrValidation, "Invalid id")
		return
	}

	var req managerLedgerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrValidation, "manager_ledger is required")
		return
	}

	var rec models.Reconciliation
	if err := h.DB.First(&rec, id).Error; err != nil {
		respondError(c, ErrNotFound, "Reconciliation not found")
		return
	}
	if rec.Status == models.ReconciliationCompleted {
		respondError(c, ErrConflictingState, "Reconciliation is already completed")
		return
	}

	rec.ManagerLedger = req.ManagerLedger
	if err := h.DB.Save(&rec).Error; err != nil {
		respondError(c, ErrInternal, "Failed to update manager ledger")
		return
	}

	c.JSON(http.StatusOK, rec)
}

// Complete closes the day. Completing twice is a conflict; the first
// completion wins and keeps its timestamp.
func (h *ReconciliationHandler) Complete(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondError(c, ErrValidation, "Invalid id")
		return
	}

	tx := h.DB.Begin()

	var rec models.Reconciliation
	if err := tx.First(&rec, id).Error; err != nil {
		tx.Rollback()
		respondError(c, ErrNotFound, "Reconciliation not found")
		return
	}
	if rec.Status == models.ReconciliationCompleted {
		tx.Rollback()
		respondError(c, ErrConflictingState, "Reconciliation is already completed")
		return
	}

	now := time.Now().UTC()
	rec.Status = models.ReconciliationCompleted
	rec.CompletedAt = &now
	if err := tx.Save(&rec).Error; err != nil {
		tx.Rollback()
		respondError(c, ErrInternal, "Failed to complete reconciliation")
		return
	}
	if err := tx.Commit().Error; err != nil {
		respondError(c, ErrInternal, "Failed to complete reconciliation")
		return
	}

	notify(h.DB, callerID(c), fmt.Sprintf("Completed reconciliation for %s", rec.Date.Format("2006-01-02")))
	c.JSON(http.StatusOK, rec)
}

// GetCrossReference returns the day's reconciliation row together with
// every movement the system recorded that civil day, so staff can check
// the manager ledger against the ledger line by line.
func (h *ReconciliationHandler) GetCrossReference(c *gin.Context) {
	d, err := parseCivilDate(c.Query("date"))
	if err != nil {
		respondError(c, ErrValidation, "Invalid date")
		return
	}
	day := civilDateUTC(d)
	start, end := dayBoundsUTC(d)

	var rec *models.Reconciliation
	var found models.Reconciliation
	if err := h.DB.Where("date = ?", day).First(&found).Error; err == nil {
		rec = &found
	}

	role := callerRole(c)
	movements := map[string][]models.StockMovement{}
	for _, kind := range models.AllKinds {
		var rows []models.StockMovement
		if err := h.DB.Table(models.MovementTable(kind)).
			Where("timestamp >= ? AND timestamp < ?", start, end).
			Order("timestamp asc, id asc").
			Find(&rows).Error; err != nil {
			respondError(c, ErrInternal, "Failed to fetch movements")
			return
		}
		for i := range rows {
			rows[i] = permissions.FilterMovement(role, rows[i])
		}
		movements[string(kind)] = rows
	}

	c.JSON(http.StatusOK, gin.H{
		"date":           c.Query("date"),
		"reconciliation": rec,
		"movements":      movements,
	})
}

// ListReconciliations returns recent days, newest first.
func (h *ReconciliationHandler) ListReconciliations(c *gin.Context) {
	var recs []models.Reconciliation
	if err := h.DB.Order("date desc").Limit(60).Find(&recs).Error; err != nil {
		respondError(c, ErrInternal, "Failed to fetch reconciliations")
		return
	}
	c.JSON(http.StatusOK, recs)
}
