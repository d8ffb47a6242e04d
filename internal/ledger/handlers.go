package ledger

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Audit log pagination.
const (
	defaultAuditLimit = 20
	maxAuditLimit     = 100
)

// Handler provides HTTP endpoints over the ledger.
type Handler struct {
	ledger *Ledger
}

// NewHandler creates a ledger handler.
func NewHandler(l *Ledger) *Handler {
	return &Handler{ledger: l}
}

// RegisterRoutes sets up history and audit routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/users/:id/history", h.UserHistory)
	r.GET("/audit", h.AuditLog)
}

// UserHistory handles GET /api/v1/users/:id/history
func (h *Handler) UserHistory(c *gin.Context) {
	userID := c.Param("id")

	entries, err := h.ledger.History(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to load history"})
		return
	}
	stats, err := h.ledger.Stats(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to load stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":      userID,
		"transactions": entries,
		"stats":        stats,
	})
}

// auditEntry is the summarized form shown in the audit log.
type auditEntry struct {
	TransactionID string    `json:"transaction_id"`
	UserID        string    `json:"user_id"`
	Amount        float64   `json:"amount"`
	RiskScore     float64   `json:"risk_score"`
	Decision      string    `json:"decision"`
	Scenario      string    `json:"scenario"`
	CreatedAt     time.Time `json:"created_at"`
}

// AuditLog handles GET /api/v1/audit?limit=n
func (h *Handler) AuditLog(c *gin.Context) {
	limit := defaultAuditLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}

	entries, err := h.ledger.RecentGlobal(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to load audit log"})
		return
	}

	out := make([]auditEntry, len(entries))
	for i, e := range entries {
		out[i] = auditEntry{
			TransactionID: e.ID,
			UserID:        e.UserID,
			Amount:        e.Amount,
			RiskScore:     e.RiskScore,
			Decision:      e.Decision,
			Scenario:      e.Scenario,
			CreatedAt:     e.CreatedAt,
		}
	}

	c.JSON(http.StatusOK, gin.H{"entries": out, "count": len(out)})
}
