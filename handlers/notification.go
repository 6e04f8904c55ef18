package handlers

import (
	"net/http"
	"strconv"

	"tirestock-backend/cache"
	"tirestock-backend/models"
	"tirestock-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type NotificationHandler struct {
	DB    *gorm.DB
	Cache cache.Cache
}

// GetNotifications lists the event stream, newest first.
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	query := h.DB.Order("created_at desc, id desc").Limit(100)
	if c.Query("unread") == "true" {
		query = query.Where("is_read = ?", false)
	}

	var notifications []models.Notification
	if err := query.Find(&notifications).Error; err != nil {
		respondError(c, ErrInternal, "Failed to fetch notifications")
		return
	}
	c.JSON(http.StatusOK, notifications)
}

// GetUnreadCount serves the badge counter, cached briefly since every
// page load asks for it.
func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	if cached, ok := h.Cache.Get(c.Request.Context(), cache.KeyUnreadNotifications); ok {
		if n, err := strconv.ParseInt(cached, 10, 64); err == nil {
			c.JSON(http.StatusOK, gin.H{"unread": n})
			return
		}
	}

	var count int64
	if err := h.DB.Model(&models.Notification{}).Where("is_read = ?", false).Count(&count).Error; err != nil {
		respondError(c, ErrInternal, "Failed to count notifications")
		return
	}

	h.Cache.Set(c.Request.Context(), cache.KeyUnreadNotifications, strconv.FormatInt(count, 10), cache.TTLUnread)
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// MarkAllRead flips every unread notification.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	if err := h.DB.Model(&models.Notification{}).Where("is_read = ?", false).Update("is_read", true).Error; err != nil {
		respondError(c, ErrInternal, "Failed to mark notifications read")
		return
	}
	h.Cache.Delete(c.Request.Context(), cache.KeyUnreadNotifications)
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked read"})
}

type announcementRequest struct {
	Title string `json:"title" binding:"required"`
	Body  string `json:"body"`
}

func (h *NotificationHandler) CreateAnnouncement(c *gin.Context) {
	var req announcementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrValidation, utils.SanitizeValidationError(err))
		return
	}

	a := models.Announcement{
		Title:     req.Title,
		Body:      req.Body,
		CreatedBy: callerID(c),
	}
	if err := h.DB.Create(&a).Error; err != nil {
		respondError(c, ErrInternal, "Failed to create announcement")
		return
	}

	notify(h.DB, callerID(c), "Posted announcement: "+a.Title)
	c.JSON(http.StatusCreated, a)
}

func (h *NotificationHandler) GetAnnouncements(c *gin.Context) {
	var announcements []models.Announcement
	if err := h.DB.Order("created_at desc").Limit(50).Find(&announcements).Error; err != nil {
		respondError(c, ErrInternal, "Failed to fetch announcements")
		return
	}
	c.JSON(http.StatusOK, announcements)
}

func (h *NotificationHandler) DeleteAnnouncement(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondError(c, ErrValidation, "Invalid id")
		return
	}
	result := h.DB.Delete(&models.Announcement{}, id)
	if result.Error != nil {
		respondError(c, ErrInternal, "Failed to delete announcement")
		return
	}
	if result.RowsAffected == 0 {
		respondError(c, ErrNotFound, "Announcement not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Announcement deleted"})
}

type feedbackRequest struct {
	Message string `json:"message" binding:"required,min=3"`
}

// SubmitFeedback stores a staff message for the admins.
func (h *NotificationHandler) SubmitFeedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrValidation, utils.SanitizeValidationError(err))
		return
	}

	f := models.Feedback{
		UserID:  callerID(c),
		Message: req.Message,
	}
	if err := h.DB.Create(&f).Error; err != nil {
		respondError(c, ErrInternal, "Failed to submit feedback")
		return
	}
	c.JSON(http.StatusCreated, f)
}

func (h *NotificationHandler) GetFeedback(c *gin.Context) {
	var feedback []models.Feedback
	if err := h.DB.Order("created_at desc").Limit(100).Find(&feedback).Error; err != nil {
		respondError(c, ErrInternal, "Failed to fetch feedback")
		return
	}
	c.JSON(http.StatusOK, feedback)
}
