package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/octobees/leads-prospector/internal/service"
)

// BusinessesHandler exposes the stored business catalogue and its reports.
type BusinessesHandler struct {
	stats *service.StatsService
}

// NewBusinessesHandler creates a new handler instance.
func NewBusinessesHandler(stats *service.StatsService) *BusinessesHandler {
	return &BusinessesHandler{stats: stats}
}

// List handles GET /businesses requests.
func (h *BusinessesHandler) List(c echo.Context) error {
	page, err := h.stats.ListBusinesses(
		c.Request().Context(),
		strings.TrimSpace(c.QueryParam("category")),
		parseIntDefault(c.QueryParam("page"), 1),
		parseIntDefault(c.QueryParam("per_page"), 20),
	)
	if err != nil {
		return Error(c, http.StatusInternalServerError, "failed to list businesses")
	}
	return Success(c, http.StatusOK, "businesses retrieved", page)
}

// Stats handles GET /stats requests.
func (h *BusinessesHandler) Stats(c echo.Context) error {
	stats, err := h.stats.Stats(c.Request().Context())
	if err != nil {
		return Error(c, http.StatusInternalServerError, "failed to load stats")
	}
	return Success(c, http.StatusOK, "stats retrieved", stats)
}

// Reports handles GET /reports requests.
func (h *BusinessesHandler) Reports(c echo.Context) error {
	reports, err := h.stats.Reports(c.Request().Context())
	if err != nil {
		return Error(c, http.StatusInternalServerError, "failed to load reports")
	}
	return Success(c, http.StatusOK, "reports retrieved", reports)
}

func parseIntDefault(input string, fallback int) int {
	if input == "" {
		return fallback
	}
	if value, err := strconv.Atoi(input); err == nil {
		return value
	}
	return fallback
}
