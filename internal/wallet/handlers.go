package wallet

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/walletguard/internal/alert"
	"github.com/mbd888/walletguard/internal/logging"
	"github.com/mbd888/walletguard/internal/validation"
)

// StatusEvents receives admin status changes for realtime fanout.
type StatusEvents interface {
	PublishStatusChange(address, from, to string, score float64)
}

// Handler provides HTTP endpoints for wallet state.
type Handler struct {
	store  Store
	alerts *alert.Sink
	events StatusEvents
}

// NewHandler creates a new wallet handler. alerts may be nil.
func NewHandler(store Store, alerts *alert.Sink) *Handler {
	return &Handler{store: store, alerts: alerts}
}

// WithEvents attaches a realtime emitter for status changes.
func (h *Handler) WithEvents(events StatusEvents) *Handler {
	h.events = events
	return h
}

// RegisterRoutes sets up public wallet routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/wallets", h.ListWallets)
	r.GET("/wallets/:address", h.GetWallet)
}

// RegisterAdminRoutes sets up admin-only wallet routes.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.PUT("/wallets/:address/status", h.SetStatus)
}

// ListWallets handles GET /wallets
func (h *Handler) ListWallets(c *gin.Context) {
	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	wallets, err := h.store.List(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to list wallets",
		})
		return
	}

	// Optional filters on status and minimum score.
	if status := c.Query("status"); status != "" {
		filtered := wallets[:0]
		for _, w := range wallets {
			if string(w.Status) == status {
				filtered = append(filtered, w)
			}
		}
		wallets = filtered
	}
	if ms := c.Query("min_score"); ms != "" {
		if minScore, err := strconv.ParseFloat(ms, 64); err == nil {
			filtered := wallets[:0]
			for _, w := range wallets {
				if w.RiskScore >= minScore {
					filtered = append(filtered, w)
				}
			}
			wallets = filtered
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"wallets": wallets,
		"count":   len(wallets),
	})
}

// GetWallet handles GET /wallets/:address
func (h *Handler) GetWallet(c *gin.Context) {
	address := validation.SanitizeAddress(c.Param("address"))
	if !validation.IsValidEthAddress(address) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_address",
			"message": "address must be a valid Ethereum address (0x + 40 hex chars)",
		})
		return
	}

	w, err := h.store.Get(c.Request.Context(), address)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Wallet is not tracked",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to load wallet",
		})
		return
	}

	c.JSON(http.StatusOK, w)
}

// StatusChangeRequest is the admin override payload.
type StatusChangeRequest struct {
	Status string `json:"status" binding:"required"`
	By     string `json:"changed_by"`
	Reason string `json:"reason"`
}

// SetStatus handles PUT /wallets/:address/status. This is the only path
// that can move a wallet to a less severe status.
func (h *Handler) SetStatus(c *gin.Context) {
	ctx := c.Request.Context()

	address := validation.SanitizeAddress(c.Param("address"))
	if !validation.IsValidEthAddress(address) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_address",
			"message": "address must be a valid Ethereum address (0x + 40 hex chars)",
		})
		return
	}

	var req StatusChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "status is required",
		})
		return
	}

	status := Status(req.Status)
	if !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_status",
			"message": "status must be one of: active, under_review, suspended, frozen",
		})
		return
	}

	w, err := h.store.GetOrCreate(ctx, address)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to load wallet",
		})
		return
	}

	previous := w.Status
	by := req.By
	if by == "" {
		by = "admin"
	}
	w.Override(status, by, time.Now())
	if req.Reason != "" {
		w.Notes = req.Reason
	}

	if err := h.store.Save(ctx, w); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to save wallet",
		})
		return
	}

	logging.L(ctx).Info("admin status override",
		"address", address, "from", previous, "to", status, "by", by)

	if h.alerts != nil && previous != status {
		h.alerts.Raise(ctx, address, "STATUS_OVERRIDE", alert.SeverityMedium,
			fmt.Sprintf("account status changed from %s to %s by %s", previous, status, by),
			w.RiskScore)
	}
	if h.events != nil && previous != status {
		h.events.PublishStatusChange(address, string(previous), string(status), w.RiskScore)
	}

	c.JSON(http.StatusOK, gin.H{
		"wallet":          w,
		"previous_status": previous,
	})
}
