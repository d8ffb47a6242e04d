package decision

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anikabisht/Trace-Bank/internal/logging"
)

// Handler exposes the evaluation pipeline over HTTP.
type Handler struct {
	engine *Engine
}

// NewHandler creates the transaction evaluation handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// RegisterRoutes sets up the evaluation route.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/transactions", h.Evaluate)
}

// Evaluate handles POST /api/v1/transactions
func (h *Handler) Evaluate(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "malformed request body"})
		return
	}
	req.ClientIP = c.ClientIP()

	result, err := h.engine.Evaluate(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrPermissionDenied):
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "permission_denied",
				"message": "location permission is required to evaluate transactions",
			})
		case errors.Is(err, ErrInvalidRequest):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		default:
			// Coarse category only; details stay in the logs.
			logging.L(c.Request.Context()).Error("evaluation failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "evaluation failed"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}
