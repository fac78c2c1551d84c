package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusforms/registry-api/internal/models"
	"github.com/campusforms/registry-api/internal/service"
	appErrors "github.com/campusforms/registry-api/pkg/errors"
	"github.com/campusforms/registry-api/pkg/response"
)

type backendSelector interface {
	Active() models.BackendKind
	Switch(ctx context.Context, target models.BackendKind, confirmed bool) (bool, error)
}

type availabilityProber interface {
	Probe(ctx context.Context) models.ProbeResult
}

// SwitchBackendRequest carries the switch target and the outcome of the
// client's confirmation dialog. Without confirm the switch is a no-op.
type SwitchBackendRequest struct {
	Target  models.BackendKind `json:"target"`
	Confirm bool               `json:"confirm"`
}

// BackendHandler exposes selector state and the switch operation.
type BackendHandler struct {
	selector backendSelector
	prober   availabilityProber
	metrics  *service.MetricsService
}

// NewBackendHandler constructs BackendHandler.
func NewBackendHandler(selector backendSelector, prober availabilityProber, metrics *service.MetricsService) *BackendHandler {
	return &BackendHandler{selector: selector, prober: prober, metrics: metrics}
}

// Status godoc
// @Summary Active backend and legacy reachability
// @Tags Backend
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /backend [get]
func (h *BackendHandler) Status(c *gin.Context) {
	probe := h.prober.Probe(c.Request.Context())
	h.metrics.ObserveProbe(probe)

	status := models.BackendStatus{
		Active:     h.selector.Active(),
		Probe:      &probe,
		ObservedAt: time.Now().UTC(),
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Switch godoc
// @Summary Switch the active backend
// @Tags Backend
// @Accept json
// @Produce json
// @Param payload body SwitchBackendRequest true "Switch request"
// @Success 200 {object} response.Envelope
// @Router /backend/switch [post]
func (h *BackendHandler) Switch(c *gin.Context) {
	var req SwitchBackendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	switched, err := h.selector.Switch(c.Request.Context(), req.Target, req.Confirm)
	if err != nil {
		response.Error(c, err)
		return
	}
	// Metrics and cache invalidation run through the selector's observers.
	response.JSON(c, http.StatusOK, gin.H{
		"switched": switched,
		"active":   h.selector.Active(),
	}, nil)
}
