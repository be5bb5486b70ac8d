package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/octobees/leads-prospector/internal/service"
)

// ExportHandler streams the business table as a CSV download.
type ExportHandler struct {
	exporter *service.Exporter
}

// NewExportHandler constructs an ExportHandler.
func NewExportHandler(exporter *service.Exporter) *ExportHandler {
	return &ExportHandler{exporter: exporter}
}

// Download handles GET /export requests.
func (h *ExportHandler) Download(c echo.Context) error {
	filename := fmt.Sprintf("negocios_%s.csv", time.Now().Format("20060102_150405"))

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	res.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	res.WriteHeader(http.StatusOK)

	// Headers are already sent; a failure here can only truncate the body.
	if err := h.exporter.WriteCSV(c.Request().Context(), res); err != nil {
		c.Logger().Errorf("export csv: %v", err)
	}
	return nil
}
