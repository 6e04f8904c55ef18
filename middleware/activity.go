package middleware

import (
	"log"

	"tirestock-backend/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ActivityLogger appends one audit row per authenticated request, after the
// handler finishes. Failures are logged and never fail the request.
func ActivityLogger(db *gorm.DB, label string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		userID, exists := c.Get("user_id")
		if !exists {
			return
		}
		uid, ok := userID.(uuid.UUID)
		if !ok {
			return
		}

		entry := models.ActivityLog{
			UserID:        uid,
			EndpointLabel: label,
			Method:        c.Request.Method,
			Path:          c.Request.URL.Path,
		}
		if err := db.Create(&entry).Error; err != nil {
			log.Printf("activity log write failed: %v", err)
		}
	}
}
