// Package reporting serves the anomaly listing, dashboard, and heatmap
// endpoints on top of committed analysis results.
package reporting

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/spendwatch/spendwatch/internal/anomaly"
	"github.com/spendwatch/spendwatch/internal/logging"
	"github.com/spendwatch/spendwatch/internal/pagination"
	"github.com/spendwatch/spendwatch/internal/scoring"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Handler provides read-only HTTP endpoints over anomaly results.
type Handler struct {
	store anomaly.Store
}

// NewHandler creates a new reporting handler.
func NewHandler(store anomaly.Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes sets up reporting routes under the given group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/anomalies", h.ListAnomalies)
	r.GET("/anomalies/:id", h.GetAnomaly)

	r.GET("/dashboard/overview", h.Overview)
	r.GET("/dashboard/risk-distribution", h.RiskDistribution)
	r.GET("/dashboard/top-vendors", h.TopVendors)

	r.GET("/heatmap/location", h.heatmapHandler(h.store.HeatmapByLocation))
	r.GET("/heatmap/department", h.heatmapHandler(h.store.HeatmapByDepartment))
	r.GET("/heatmap/time", h.heatmapHandler(h.store.HeatmapByTime))
}

// ListAnomalies handles GET /api/anomalies. Results are ordered by ascending
// anomaly score with cursor pagination; risk and location filter optionally.
func (h *Handler) ListAnomalies(c *gin.Context) {
	ctx := c.Request.Context()

	filter := anomaly.ListFilter{Limit: defaultListLimit}

	if raw := c.Query("risk"); raw != "" {
		level, ok := scoring.ParseRiskLevel(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_risk",
				"message": "risk must be one of LOW, MEDIUM, HIGH",
			})
			return
		}
		filter.Risk = &level
	}
	filter.Location = c.Query("location")

	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxListLimit {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_limit",
				"message": "limit must be between 1 and 200",
			})
			return
		}
		filter.Limit = n
	}

	cursor, err := pagination.Decode(c.Query("cursor"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_cursor",
			"message": "cursor is malformed",
		})
		return
	}
	filter.Cursor = cursor

	records, err := h.store.List(ctx, filter)
	if err != nil {
		logging.L(ctx).Error("anomaly listing failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "failed to list anomalies",
		})
		return
	}

	page, next, more := pagination.ComputePage(records, filter.Limit, func(r *anomaly.Record) (float64, int64) {
		return r.Score, r.TransactionID
	})
	if page == nil {
		page = []*anomaly.Record{}
	}
	c.JSON(http.StatusOK, gin.H{
		"anomalies":   page,
		"next_cursor": next,
		"has_more":    more,
	})
}

// GetAnomaly handles GET /api/anomalies/:id.
func (h *Handler) GetAnomaly(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_id",
			"message": "id must be an integer",
		})
		return
	}

	rec, err := h.store.Get(ctx, id)
	if errors.Is(err, anomaly.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "no anomaly result for this transaction",
		})
		return
	}
	if err != nil {
		logging.L(ctx).Error("anomaly lookup failed", "transaction_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "failed to load anomaly",
		})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Overview handles GET /api/dashboard/overview.
func (h *Handler) Overview(c *gin.Context) {
	ctx := c.Request.Context()

	ov, err := h.store.Overview(ctx)
	if err != nil {
		logging.L(ctx).Error("overview query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "failed to compute overview",
		})
		return
	}
	c.JSON(http.StatusOK, ov)
}

// RiskDistribution handles GET /api/dashboard/risk-distribution.
func (h *Handler) RiskDistribution(c *gin.Context) {
	ctx := c.Request.Context()

	dist, err := h.store.RiskDistribution(ctx)
	if err != nil {
		logging.L(ctx).Error("risk distribution query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "failed to compute risk distribution",
		})
		return
	}

	// Stable order, every level present.
	out := make([]gin.H, 0, len(scoring.Levels()))
	for _, level := range scoring.Levels() {
		out = append(out, gin.H{"risk_level": level, "count": dist[level]})
	}
	c.JSON(http.StatusOK, gin.H{"distribution": out})
}

// TopVendors handles GET /api/dashboard/top-vendors.
func (h *Handler) TopVendors(c *gin.Context) {
	ctx := c.Request.Context()

	limit := 10
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxListLimit {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_limit",
				"message": "limit must be between 1 and 200",
			})
			return
		}
		limit = n
	}

	vendors, err := h.store.TopVendors(ctx, limit)
	if err != nil {
		logging.L(ctx).Error("top vendors query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "failed to rank vendors",
		})
		return
	}
	if vendors == nil {
		vendors = []*anomaly.VendorSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"vendors": vendors})
}

// heatmapHandler builds a handler around one of the store's heatmap views.
// All three accept an optional ?risk= filter.
func (h *Handler) heatmapHandler(view func(context.Context, *scoring.RiskLevel) ([]*anomaly.HeatCell, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var risk *scoring.RiskLevel
		if raw := c.Query("risk"); raw != "" {
			level, ok := scoring.ParseRiskLevel(raw)
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{
					"error":   "invalid_risk",
					"message": "risk must be one of LOW, MEDIUM, HIGH",
				})
				return
			}
			risk = &level
		}

		cells, err := view(ctx, risk)
		if err != nil {
			logging.L(ctx).Error("heatmap query failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "query_failed",
				"message": "failed to compute heatmap",
			})
			return
		}
		if cells == nil {
			cells = []*anomaly.HeatCell{}
		}
		c.JSON(http.StatusOK, gin.H{"cells": cells})
	}
}
