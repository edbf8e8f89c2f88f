package alert

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Handler provides HTTP endpoints for alerts.
type Handler struct {
	store Store
}

// NewHandler creates a new alert handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes sets up alert routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/alerts/recent", h.Recent)
	r.GET("/alerts/latest", h.Latest)
	r.POST("/alerts/:id/acknowledge", h.Acknowledge)
}

// Recent handles GET /alerts/recent
func (h *Handler) Recent(c *gin.Context) {
	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	alerts, err := h.store.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to load alerts",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// Latest handles GET /alerts/latest. Returns 204 when no alert exists so
// pollers can distinguish "nothing yet" from an error.
func (h *Handler) Latest(c *gin.Context) {
	a, err := h.store.Latest(c.Request.Context())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.Status(http.StatusNoContent)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to load latest alert",
		})
		return
	}

	c.JSON(http.StatusOK, a)
}

// AcknowledgeRequest is the acknowledgement payload.
type AcknowledgeRequest struct {
	By string `json:"acknowledged_by"`
}

// Acknowledge handles POST /alerts/:id/acknowledge
func (h *Handler) Acknowledge(c *gin.Context) {
	id := c.Param("id")

	var req AcknowledgeRequest
	_ = c.ShouldBindJSON(&req)
	if req.By == "" {
		req.By = "operator"
	}

	if err := h.store.Acknowledge(c.Request.Context(), id, req.By); err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Alert not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to acknowledge alert",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "alert acknowledged"})
}
