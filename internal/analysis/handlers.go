package analysis

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spendwatch/spendwatch/internal/logging"
)

// Handler provides the HTTP endpoint that triggers an analysis run.
type Handler struct {
	service *Service
}

// NewHandler creates a new analysis handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up analysis routes under the given group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/analyze", h.Analyze)
}

// Analyze handles POST /api/analyze. It scores every stored transaction that
// has no result yet and reports how many were analyzed.
func (h *Handler) Analyze(c *gin.Context) {
	ctx := c.Request.Context()

	stats, err := h.service.Run(ctx)
	if errors.Is(err, ErrRunInProgress) {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "analysis_in_progress",
			"message": "an analysis run is already in progress",
		})
		return
	}
	if err != nil {
		logging.L(ctx).Error("analysis run failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "analysis_failed",
			"message": "analysis run failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "analysis complete",
		"analyzed": stats.Analyzed,
		"flagged":  stats.Flagged,
		"skipped":  stats.Skipped,
		"failed":   stats.Failed,
	})
}
