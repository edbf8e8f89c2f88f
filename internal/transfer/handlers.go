package transfer

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/walletguard/internal/ledger"
	"github.com/mbd888/walletguard/internal/logging"
	"github.com/mbd888/walletguard/internal/validation"
)

// Handler provides HTTP endpoints for protected transfers.
type Handler struct {
	gate     *Gate
	warnings WarningStore
	blocked  BlockedStore
	ledger   ledger.Store
}

// NewHandler creates a new transfer handler.
func NewHandler(gate *Gate, warnings WarningStore, blocked BlockedStore, led ledger.Store) *Handler {
	return &Handler{gate: gate, warnings: warnings, blocked: blocked, ledger: led}
}

// RegisterRoutes sets up the read-only transfer routes. The transfer
// endpoint itself is registered via RegisterTransferRoutes so the server
// can attach its own rate limit middleware.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/wallet/:address/balance", h.GetBalance)
	r.GET("/wallet/:address/transactions", h.GetTransactions)
	r.GET("/wallet/:address/warnings", h.GetWarnings)
	r.GET("/blocked-transfers", h.ListBlocked)
}

// RegisterTransferRoutes sets up the transfer decision endpoint.
func (h *Handler) RegisterTransferRoutes(r *gin.RouterGroup) {
	r.POST("/transfer/protected", h.ProtectedTransfer)
}

// ProtectedTransfer handles POST /transfer/protected
func (h *Handler) ProtectedTransfer(c *gin.Context) {
	// BodyWithJSON so the sender-keyed rate limit middleware and this
	// handler can both read the body.
	var req Request
	if err := c.ShouldBindBodyWithJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "from_address, to_address and amount are required",
		})
		return
	}

	decision, err := h.gate.Process(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_request",
				"message": err.Error(),
			})
			return
		}
		logging.L(c.Request.Context()).Error("transfer processing failed",
			"sender", req.Sender, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to process transfer",
		})
		return
	}

	c.JSON(http.StatusOK, decision)
}

// GetBalance handles GET /wallet/:address/balance
func (h *Handler) GetBalance(c *gin.Context) {
	address := validation.SanitizeAddress(c.Param("address"))
	if !validation.IsValidEthAddress(address) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_address",
			"message": "address must be a valid Ethereum address (0x + 40 hex chars)",
		})
		return
	}

	balance, err := h.ledger.Balance(c.Request.Context(), address)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to compute balance",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address": address,
		"balance": balance,
	})
}

// GetTransactions handles GET /wallet/:address/transactions
func (h *Handler) GetTransactions(c *gin.Context) {
	address := validation.SanitizeAddress(c.Param("address"))
	if !validation.IsValidEthAddress(address) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_address",
			"message": "address must be a valid Ethereum address (0x + 40 hex chars)",
		})
		return
	}

	limit := parseLimit(c, 50)
	txs, err := h.ledger.History(c.Request.Context(), address, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to load transaction history",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address":      address,
		"transactions": txs,
		"count":        len(txs),
	})
}

// GetWarnings handles GET /wallet/:address/warnings
func (h *Handler) GetWarnings(c *gin.Context) {
	address := validation.SanitizeAddress(c.Param("address"))
	if !validation.IsValidEthAddress(address) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_address",
			"message": "address must be a valid Ethereum address (0x + 40 hex chars)",
		})
		return
	}

	warnings, err := h.warnings.For(c.Request.Context(), address, parseLimit(c, 20))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to load warnings",
		})
		return
	}

	count, err := h.warnings.Count(c.Request.Context(), address)
	if err != nil {
		count = len(warnings)
	}

	c.JSON(http.StatusOK, gin.H{
		"address":            address,
		"warnings":           warnings,
		"warning_count":      count,
		"warnings_remaining": max(MaxWarnings-count, 0),
	})
}

// ListBlocked handles GET /blocked-transfers
func (h *Handler) ListBlocked(c *gin.Context) {
	blocked, err := h.blocked.Recent(c.Request.Context(), parseLimit(c, 50))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to load blocked transfers",
		})
		return
	}

	byReason := make(map[string]int)
	for _, b := range blocked {
		byReason[b.Reason]++
	}

	c.JSON(http.StatusOK, gin.H{
		"blocked_transfers": blocked,
		"count":             len(blocked),
		"by_reason":         byReason,
	})
}

func parseLimit(c *gin.Context, fallback int) int {
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 200 {
			return parsed
		}
	}
	return fallback
}
