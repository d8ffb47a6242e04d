package policy

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler provides HTTP endpoints for reading and updating the policy.
type Handler struct {
	policy   *Policy
	onUpdate func(Thresholds)
}

// NewHandler creates a policy handler.
func NewHandler(p *Policy) *Handler {
	return &Handler{policy: p}
}

// OnUpdate registers a callback invoked after each successful update.
func (h *Handler) OnUpdate(fn func(Thresholds)) {
	h.onUpdate = fn
}

// RegisterRoutes sets up policy routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/policy", h.Get)
	r.PUT("/policy", h.Update)
}

// Get handles GET /api/v1/policy
func (h *Handler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"policy": h.policy.Snapshot()})
}

// Update handles PUT /api/v1/policy
func (h *Handler) Update(c *gin.Context) {
	var req struct {
		ReviewCutoff *float64 `json:"review_cutoff"`
		BlockCutoff  *float64 `json:"block_cutoff"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "invalid body"})
		return
	}

	// Omitted fields keep their current value; both are swapped atomically.
	current := h.policy.Snapshot()
	review, block := current.ReviewCutoff, current.BlockCutoff
	if req.ReviewCutoff != nil {
		review = *req.ReviewCutoff
	}
	if req.BlockCutoff != nil {
		block = *req.BlockCutoff
	}

	if err := h.policy.Update(review, block); err != nil {
		if errors.Is(err, ErrInvalidThresholds) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_thresholds", "message": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to update policy"})
		return
	}

	updated := h.policy.Snapshot()
	if h.onUpdate != nil {
		h.onUpdate(updated)
	}
	c.JSON(http.StatusOK, gin.H{"policy": updated})
}
