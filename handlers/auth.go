package handlers

import (
	"net/http"

	"tirestock-backend/models"
	"tirestock-backend/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthHandler struct {
	DB *gorm.DB
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login checks credentials and mints a JWT carrying the caller identity.
// Inactive accounts and bad passwords get the same answer.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrValidation, utils.SanitizeValidationError(err))
		return
	}

	var user models.User
	if err := h.DB.Where("username = ?", req.Username).First(&user).Error; err != nil {
		respondError(c, ErrUnauthorized, "Invalid credentials")
		return
	}
	if !user.IsActive {
		respondError(c, ErrUnauthorized, "Invalid credentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		respondError(c, ErrUnauthorized, "Invalid credentials")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		respondError(c, ErrInternal, "Failed to issue token")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}

// GetProfile returns the authenticated caller's account.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	var user models.User
	if err := h.DB.First(&user, "id = ?", callerID(c)).Error; err != nil {
		respondError(c, ErrNotFound, "User not found")
		return
	}
	c.JSON(http.StatusOK, user)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

// ChangePassword lets any authenticated user rotate their own password.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrValidation, utils.SanitizeValidationError(err))
		return
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", callerID(c)).Error; err != nil {
		respondError(c, ErrNotFound, "User not found")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		respondError(c, ErrUnauthorized, "Current password is incorrect")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		respondError(c, ErrInternal, "Failed to hash password")
		return
	}
	if err := h.DB.Model(&user).Update("password", string(hash)).Error; err != nil {
		respondError(c, ErrInternal, "Failed to change password")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password changed"})
}
