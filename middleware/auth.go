package middleware

import (
	"net/http"
	"os"
	"strings"

	"tirestock-backend/permissions"
	"tirestock-backend/utils"

	"github.com/gin-gonic/gin"
)

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "message": "Authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "message": "Invalid authorization header format"})
			c.Abort()
			return
		}

		token := parts[1]
		claims, err := utils.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "message": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("user_role", claims.Role)
		c.Set("username", claims.Username)
		c.Next()
	}
}

func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get("user_role")
		if !exists || role != string(permissions.RoleAdmin) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized", "message": "Admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// EditorMiddleware requires a role with full catalog write capability.
func EditorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get("user_role")
		if !exists || !permissions.CanWrite(permissions.Role(role.(string))) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized", "message": "Editor access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// ChatbotMiddleware authenticates the chatbot read endpoint with a shared
// secret header instead of a user token.
func ChatbotMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := os.Getenv("CHATBOT_API_KEY")
		if secret == "" || c.GetHeader("X-Api-Key") != secret {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "message": "Invalid API key"})
			c.Abort()
			return
		}
		c.Next()
	}
}
