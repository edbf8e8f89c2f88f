package blacklist

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/walletguard/internal/validation"
)

// Handler provides admin HTTP endpoints for the blacklist.
type Handler struct {
	store Store
}

// NewHandler creates a new blacklist handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterAdminRoutes sets up admin-only blacklist routes.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.GET("/blacklist", h.List)
	r.POST("/blacklist", h.Add)
	r.DELETE("/blacklist/:address", h.Remove)
}

// List handles GET /admin/blacklist
func (h *Handler) List(c *gin.Context) {
	entries, err := h.store.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to list blacklist entries",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"count":   len(entries),
	})
}

// AddRequest is the blacklist entry payload.
type AddRequest struct {
	Address  string `json:"address" binding:"required"`
	Reason   string `json:"reason"`
	Category string `json:"category"`
	Severity string `json:"severity"`
}

// Add handles POST /admin/blacklist
func (h *Handler) Add(c *gin.Context) {
	var req AddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "address is required",
		})
		return
	}

	address := validation.SanitizeAddress(req.Address)
	if !validation.IsValidEthAddress(address) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_address",
			"message": "address must be a valid Ethereum address (0x + 40 hex chars)",
		})
		return
	}

	entry := &Entry{
		Address:  address,
		Reason:   req.Reason,
		Category: req.Category,
		Severity: req.Severity,
		AddedAt:  time.Now(),
	}
	if entry.Severity == "" {
		entry.Severity = "HIGH"
	}

	if err := h.store.Add(c.Request.Context(), entry); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to add blacklist entry",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"entry": entry})
}

// Remove handles DELETE /admin/blacklist/:address
func (h *Handler) Remove(c *gin.Context) {
	address := validation.SanitizeAddress(c.Param("address"))
	if !validation.IsValidEthAddress(address) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_address",
			"message": "address must be a valid Ethereum address (0x + 40 hex chars)",
		})
		return
	}

	if err := h.store.Remove(c.Request.Context(), address); err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Address is not blacklisted",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to remove blacklist entry",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "entry removed"})
}
