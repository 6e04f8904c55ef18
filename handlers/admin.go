package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"tirestock-backend/cache"
	"tirestock-backend/config"
	"tirestock-backend/dtos"
	"tirestock-backend/models"
	"tirestock-backend/permissions"
	"tirestock-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AdminHandler struct {
	DB    *gorm.DB
	Cache cache.Cache
}

// pruneActivityLog deletes activity rows older than the retention window.
// The last-pruned marker is advanced with a compare-and-swap on the
// settings row so concurrent dashboard reads run the pruner at most once
// per interval.
func pruneActivityLog(db *gorm.DB) {
	keepDays := config.ActivityLogKeepDays()
	now := time.Now().UTC()
	due := now.Add(-24 * time.Hour)

	var setting models.Setting
	err := db.Where("key = ?", models.SettingActivityLogPrunedAt).First(&setting).Error
	if err == nil {
		last, parseErr := time.Parse(time.RFC3339, setting.Value)
		if parseErr == nil && last.After(due) {
			return
		}
		result := db.Model(&models.Setting{}).
			Where("key = ? AND value = ?", models.SettingActivityLogPrunedAt, setting.Value).
			Update("value", now.Format(time.RFC3339))
		if result.Error != nil || result.RowsAffected == 0 {
			// Another request won the swap and is pruning.
			return
		}
	} else if err == gorm.ErrRecordNotFound {
		setting = models.Setting{Key: models.SettingActivityLogPrunedAt, Value: now.Format(time.RFC3339)}
		if err := db.Create(&setting).Error; err != nil {
			return
		}
	} else {
		return
	}

	cutoff := now.AddDate(0, 0, -keepDays)
	result := db.Where("created_at < ?", cutoff).Delete(&models.ActivityLog{})
	if result.Error != nil {
		log.Printf("activity log prune failed: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		log.Printf("pruned %d activity log rows older than %d days", result.RowsAffected, keepDays)
	}
}

// GetDashboard summarizes the engine state for the admin landing page and
// opportunistically runs the activity-log pruner.
func (h *AdminHandler) GetDashboard(c *gin.Context) {
	pruneActivityLog(h.DB)

	type kindSummary struct {
		Items    int64 `json:"items"`
		Deleted  int64 `json:"deleted"`
		Quantity int64 `json:"quantity"`
	}
	kinds := map[string]kindSummary{}

	count := func(model interface{}) kindSummary {
		var s kindSummary
		h.DB.Model(model).Where("is_deleted = ?", false).Count(&s.Items)
		h.DB.Model(model).Where("is_deleted = ?", true).Count(&s.Deleted)
		var total struct{ Quantity int64 }
		h.DB.Model(model).Where("is_deleted = ?", false).
			Select("COALESCE(SUM(quantity), 0) AS quantity").Scan(&total)
		s.Quantity = total.Quantity
		return s
	}
	kinds[string(models.KindTire)] = count(&models.Tire{})
	kinds[string(models.KindWheel)] = count(&models.Wheel{})
	kinds[string(models.KindSparePart)] = count(&models.SparePart{})

	start, end := dayBoundsUTC(time.Now())
	var movementsToday int64
	for _, kind := range models.AllKinds {
		var n int64
		h.DB.Table(models.MovementTable(kind)).
			Where("timestamp >= ? AND timestamp < ?", start, end).Count(&n)
		movementsToday += n
	}

	var unread int64
	h.DB.Model(&models.Notification{}).Where("is_read = ?", false).Count(&unread)

	var openReconciliations int64
	h.DB.Model(&models.Reconciliation{}).Where("status = ?", models.ReconciliationOpen).Count(&openReconciliations)

	var users int64
	h.DB.Model(&models.User{}).Where("is_active = ?", true).Count(&users)

	c.JSON(http.StatusOK, gin.H{
		"kinds":                kinds,
		"movements_today":      movementsToday,
		"unread_notifications": unread,
		"open_reconciliations": openReconciliations,
		"active_users":         users,
	})
}

// RebuildQuantities refolds ledgers from zero. With item_kind and item_id
// query params it repairs one item synchronously; without them it walks
// every item as a background job.
func (h *AdminHandler) RebuildQuantities(c *gin.Context) {
	if kindParam := c.Query("item_kind"); kindParam != "" {
		kind := models.ItemKind(kindParam)
		if !kind.Valid() {
			respondError(c, ErrValidation, "Unknown item kind")
			return
		}
		var id uint
		if _, err := fmt.Sscanf(c.Query("item_id"), "%d", &id); err != nil {
			respondError(c, ErrValidation, "Invalid item_id")
			return
		}
		if err := rebuildItemQuantities(h.DB, kind, id); err != nil {
			respondAPIError(c, err)
			return
		}
		invalidateCatalog(c, h.Cache, kind)
		c.JSON(http.StatusOK, gin.H{"message": "Item quantities rebuilt"})
		return
	}

	type target struct {
		kind models.ItemKind
		id   uint
	}
	var targets []target
	collect := func(kind models.ItemKind, model interface{}) {
		var ids []uint
		h.DB.Model(model).Order("id asc").Pluck("id", &ids)
		for _, id := range ids {
			targets = append(targets, target{kind, id})
		}
	}
	collect(models.KindTire, &models.Tire{})
	collect(models.KindWheel, &models.Wheel{})
	collect(models.KindSparePart, &models.SparePart{})

	job := utils.Store.CreateJob(dtos.JobKindRebuild, len(targets))
	db := h.DB

	go func() {
		utils.Store.SetProcessing(job.ID)
		for _, t := range targets {
			if err := rebuildItemQuantities(db, t.kind, t.id); err != nil {
				utils.Store.AddError(job.ID, int(t.id), string(t.kind), err.Error())
			}
			utils.Store.AddProcessed(job.ID)
		}
		for _, kind := range models.AllKinds {
			invalidateCatalogKeys(context.Background(), h.Cache, kind)
		}
		utils.Store.CompleteJob(job.ID, dtos.JobStatusCompleted)
	}()

	c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID})
}

// GetJobStatus polls a background job.
func (h *AdminHandler) GetJobStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, ErrValidation, "Invalid job id")
		return
	}
	job, ok := utils.Store.GetJob(id)
	if !ok {
		respondError(c, ErrNotFound, "Job not found")
		return
	}
	c.JSON(http.StatusOK, job)
}

// HardDeleteItem permanently removes an item with its movements, barcodes,
// commission programs and analysis state. Soft delete first; this is the
// irreversible step.
func (h *AdminHandler) HardDeleteItem(c *gin.Context) {
	kind, ok := parseKind(c)
	if !ok {
		respondError(c, ErrValidation, "Unknown item kind")
		return
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondError(c, ErrValidation, "Invalid id")
		return
	}
	if !permissions.CanHardDelete(callerRole(c)) {
		respondError(c, ErrUnauthorized, "Only admin may hard delete")
		return
	}

	item, err := loadItem(h.DB, kind, id)
	if err != nil {
		respondError(c, ErrNotFound, "Item not found")
		return
	}
	if !item.Deleted() {
		respondError(c, ErrConflictingState, "Soft delete the item before hard deleting")
		return
	}
	label := item.Label()

	tx := h.DB.Begin()
	steps := []error{
		tx.Table(models.MovementTable(kind)).Where("item_id = ?", id).Delete(&models.StockMovement{}).Error,
		tx.Where("item_kind = ? AND item_id = ?", kind, id).Delete(&models.Barcode{}).Error,
		tx.Where("item_kind = ? AND item_id = ?", kind, id).Delete(&models.CommissionProgram{}).Error,
		tx.Where("item_kind = ? AND item_id = ?", kind, id).Delete(&models.AnalysisIgnore{}).Error,
		tx.Delete(item).Error,
	}
	for _, err := range steps {
		if err != nil {
			tx.Rollback()
			respondError(c, ErrInternal, "Failed to hard delete item")
			return
		}
	}
	if err := tx.Commit().Error; err != nil {
		respondError(c, ErrInternal, "Failed to hard delete item")
		return
	}

	notify(h.DB, callerID(c), fmt.Sprintf("Permanently deleted %s", label))
	invalidateCatalog(c, h.Cache, kind)
	c.JSON(http.StatusOK, gin.H{"message": "Item permanently deleted"})
}

// GetDeletedItems lists soft-deleted items of one kind for the restore UI.
func (h *AdminHandler) GetDeletedItems(c *gin.Context) {
	kind, ok := parseKind(c)
	if !ok {
		respondError(c, ErrValidation, "Unknown item kind")
		return
	}

	switch kind {
	case models.KindTire:
		var tires []models.Tire
		if err := h.DB.Where("is_deleted = ?", true).Order("brand asc, model asc").Find(&tires).Error; err != nil {
			respondError(c, ErrInternal, "Failed to fetch deleted items")
			return
		}
		c.JSON(http.StatusOK, tires)
	case models.KindWheel:
		var wheels []models.Wheel
		if err := h.DB.Where("is_deleted = ?", true).Order("brand asc, model asc").Find(&wheels).Error; err != nil {
			respondError(c, ErrInternal, "Failed to fetch deleted items")
			return
		}
		c.JSON(http.StatusOK, wheels)
	case models.KindSparePart:
		var parts []models.SparePart
		if err := h.DB.Where("is_deleted = ?", true).Order("name asc").Find(&parts).Error; err != nil {
			respondError(c, ErrInternal, "Failed to fetch deleted items")
			return
		}
		c.JSON(http.StatusOK, parts)
	}
}

type createUserRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name"`
	Role     string `json:"role" binding:"required"`
}

func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrValidation, utils.SanitizeValidationError(err))
		return
	}
	if !permissions.Valid(permissions.Role(req.Role)) {
		respondError(c, ErrValidation, "Unknown role")
		return
	}

	var count int64
	h.DB.Model(&models.User{}).Where("username = ?", req.Username).Count(&count)
	if count > 0 {
		respondError(c, ErrDuplicateKey, "Username is taken")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(c, ErrInternal, "Failed to hash password")
		return
	}

	user := models.User{
		Username: req.Username,
		Password: string(hash),
		Name:     req.Name,
		Role:     req.Role,
		IsActive: true,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		respondError(c, ErrInternal, "Failed to create user")
		return
	}

	notify(h.DB, callerID(c), fmt.Sprintf("Created user %s (%s)", user.Username, user.Role))
	c.JSON(http.StatusCreated, user)
}

func (h *AdminHandler) GetUsers(c *gin.Context) {
	var users []models.User
	if err := h.DB.Order("username asc").Find(&users).Error; err != nil {
		respondError(c, ErrInternal, "Failed to fetch users")
		return
	}
	c.JSON(http.StatusOK, users)
}

type updateUserRequest struct {
	Name     *string `json:"name"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
	Password *string `json:"password"`
}

// UpdateUser patches name, role, active flag or password. Admins cannot
// deactivate or demote themselves.
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, ErrValidation, "Invalid user id")
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrValidation, utils.SanitizeValidationError(err))
		return
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", id).Error; err != nil {
		respondError(c, ErrNotFound, "User not found")
		return
	}

	self := user.ID == callerID(c)
	if self && req.IsActive != nil && !*req.IsActive {
		respondError(c, ErrConflictingState, "Cannot deactivate your own account")
		return
	}
	if self && req.Role != nil && *req.Role != string(permissions.RoleAdmin) {
		respondError(c, ErrConflictingState, "Cannot change your own role")
		return
	}

	if req.Role != nil {
		if !permissions.Valid(permissions.Role(*req.Role)) {
			respondError(c, ErrValidation, "Unknown role")
			return
		}
		user.Role = *req.Role
	}
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if req.Password != nil {
		if len(*req.Password) < 8 {
			respondError(c, ErrValidation, "Password must be at least 8 characters")
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			respondError(c, ErrInternal, "Failed to hash password")
			return
		}
		user.Password = string(hash)
	}

	if err := h.DB.Save(&user).Error; err != nil {
		respondError(c, ErrInternal, "Failed to update user")
		return
	}

	notify(h.DB, callerID(c), fmt.Sprintf("Updated user %s", user.Username))
	c.JSON(http.StatusOK, user)
}

type settingRequest struct {
	Key   string `json:"key" binding:"required"`
	Value string `json:"value" binding:"required"`
}

// UpsertSetting stores a runtime knob, e.g. the chatbot profit threshold.
func (h *AdminHandler) UpsertSetting(c *gin.Context) {
	var req settingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrValidation, utils.SanitizeValidationError(err))
		return
	}

	setting := models.Setting{Key: req.Key, Value: req.Value}
	if err := h.DB.Save(&setting).Error; err != nil {
		respondError(c, ErrInternal, "Failed to store setting")
		return
	}

	notify(h.DB, callerID(c), fmt.Sprintf("Changed setting %s", setting.Key))
	c.JSON(http.StatusOK, setting)
}

func (h *AdminHandler) GetSettings(c *gin.Context) {
	var settings []models.Setting
	if err := h.DB.Order("key asc").Find(&settings).Error; err != nil {
		respondError(c, ErrInternal, "Failed to fetch settings")
		return
	}
	c.JSON(http.StatusOK, settings)
}

// GetActivityLog lists recent audit rows.
func (h *AdminHandler) GetActivityLog(c *gin.Context) {
	query := h.DB.Order("created_at desc, id desc").Limit(200)
	if userID := c.Query("user_id"); userID != "" {
		query = query.Where("user_id = ?", userID)
	}

	var logs []models.ActivityLog
	if err := query.Find(&logs).Error; err != nil {
		respondError(c, ErrInternal, "Failed to fetch activity log")
		return
	}
	c.JSON(http.StatusOK, logs)
}
