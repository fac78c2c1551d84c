package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusforms/registry-api/internal/models"
	"github.com/campusforms/registry-api/internal/service"
	"github.com/campusforms/registry-api/pkg/response"
)

type statsComputer interface {
	Compute(ctx context.Context) (models.Statistics, bool, error)
}

// StatsHandler exposes the dashboard statistics endpoint.
type StatsHandler struct {
	stats   statsComputer
	metrics *service.MetricsService
}

// NewStatsHandler constructs StatsHandler.
func NewStatsHandler(stats statsComputer, metrics *service.MetricsService) *StatsHandler {
	return &StatsHandler{stats: stats, metrics: metrics}
}

// Get godoc
// @Summary Registration statistics
// @Tags Stats
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /students/stats [get]
func (h *StatsHandler) Get(c *gin.Context) {
	stats, cacheHit, err := h.stats.Compute(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordStatsCache(cacheHit)
	response.JSON(c, http.StatusOK, stats, nil, map[string]interface{}{"cache_hit": cacheHit})
}
