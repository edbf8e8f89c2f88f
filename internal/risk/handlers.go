package risk

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/walletguard/internal/logging"
	"github.com/mbd888/walletguard/internal/validation"
)

// Handler provides HTTP endpoints for risk analysis.
type Handler struct {
	engine *Engine
	store  Store
}

// NewHandler creates a new risk handler.
func NewHandler(engine *Engine, store Store) *Handler {
	return &Handler{engine: engine, store: store}
}

// RegisterRoutes sets up risk analysis routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/analyze/:address", h.Analyze)
	r.GET("/wallets/:address/assessments", h.History)
}

// Analyze handles GET /analyze/:address
func (h *Handler) Analyze(c *gin.Context) {
	address := validation.SanitizeAddress(c.Param("address"))
	if !validation.IsValidEthAddress(address) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_address",
			"message": "address must be a valid Ethereum address (0x + 40 hex chars)",
		})
		return
	}

	assessment, err := h.engine.Analyze(c.Request.Context(), address)
	if err != nil {
		logging.L(c.Request.Context()).Error("analysis failed", "address", address, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "analysis_failed",
			"message": "Failed to analyze wallet",
		})
		return
	}

	c.JSON(http.StatusOK, assessment)
}

// History handles GET /wallets/:address/assessments
func (h *Handler) History(c *gin.Context) {
	address := validation.SanitizeAddress(c.Param("address"))
	if !validation.IsValidEthAddress(address) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_address",
			"message": "address must be a valid Ethereum address (0x + 40 hex chars)",
		})
		return
	}

	limit := 20
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	assessments, err := h.store.HistoryFor(c.Request.Context(), address, limit)
	if err != nil {
		if errors.Is(err, ErrNoAssessment) {
			c.JSON(http.StatusOK, gin.H{"assessments": []*Assessment{}, "count": 0})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to load assessment history",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"assessments": assessments,
		"count":       len(assessments),
	})
}
