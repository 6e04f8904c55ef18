package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Stable error identifiers. Clients branch on these; the message is for
// humans and may change.
const (
	ErrUnauthorized         = "Unauthorized"
	ErrNotFound             = "NotFound"
	ErrDuplicateKey         = "DuplicateKey"
	ErrBarcodeConflict      = "BarcodeConflict"
	ErrInsufficientStock    = "InsufficientStock"
	ErrChannelRule          = "ChannelRuleViolation"
	ErrAmendBreaksInvariant = "AmendBreaksInvariant"
	ErrInUse                = "InUse"
	ErrNotEmpty             = "NotEmpty"
	ErrStaleItem            = "StaleItem"
	ErrValidation           = "ValidationError"
	ErrConflictingState     = "ConflictingState"
	ErrInternal             = "Internal"
)

var errorStatus = map[string]int{
	ErrUnauthorized:         http.StatusForbidden,
	ErrNotFound:             http.StatusNotFound,
	ErrDuplicateKey:         http.StatusConflict,
	ErrBarcodeConflict:      http.StatusConflict,
	ErrInsufficientStock:    http.StatusBadRequest,
	ErrChannelRule:          http.StatusBadRequest,
	ErrAmendBreaksInvariant: http.StatusConflict,
	ErrInUse:                http.StatusConflict,
	ErrNotEmpty:             http.StatusConflict,
	ErrStaleItem:            http.StatusConflict,
	ErrValidation:           http.StatusBadRequest,
	ErrConflictingState:     http.StatusConflict,
	ErrInternal:             http.StatusInternalServerError,
}

func respondError(c *gin.Context, code, message string) {
	status, ok := errorStatus[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"error": code, "message": message})
}

// apiError carries a stable code through internal call chains that end in
// respondError.
type apiError struct {
	Code    string
	Message string
}

func (e *apiError) Error() string { return e.Code + ": " + e.Message }

func newAPIError(code, message string) *apiError {
	return &apiError{Code: code, Message: message}
}

func respondAPIError(c *gin.Context, err error) {
	if ae, ok := err.(*apiError); ok {
		respondError(c, ae.Code, ae.Message)
		return
	}
	respondError(c, ErrInternal, "Unexpected error")
}
