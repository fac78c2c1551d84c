package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/campusforms/registry-api/pkg/errors"
	"github.com/campusforms/registry-api/pkg/response"
)

type rosterExporter interface {
	CSV(ctx context.Context) (string, []byte, error)
	PDF(ctx context.Context) (string, []byte, error)
}

// ExportHandler serves roster downloads.
type ExportHandler struct {
	exports rosterExporter
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports rosterExporter) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Download godoc
// @Summary Export the roster
// @Tags Students
// @Param format query string false "csv (default) or pdf"
// @Success 200
// @Router /students/export [get]
func (h *ExportHandler) Download(c *gin.Context) {
	var (
		filename    string
		payload     []byte
		contentType string
		err         error
	)

	switch c.DefaultQuery("format", "csv") {
	case "csv":
		filename, payload, err = h.exports.CSV(c.Request.Context())
		contentType = "text/csv"
	case "pdf":
		filename, payload, err = h.exports.PDF(c.Request.Context())
		contentType = "application/pdf"
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
		return
	}

	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, payload)
}
