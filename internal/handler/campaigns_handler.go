package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/octobees/leads-prospector/internal/dto"
	"github.com/octobees/leads-prospector/internal/service"
)

// CampaignCoordinator starts campaigns in the background and reports their state.
type CampaignCoordinator interface {
	StartDiscovery(req service.DiscoveryRequest) error
	StartOutreach(req service.OutreachRequest) error
	Status() service.StatusSnapshot
}

// CampaignDefaults fill request fields the caller left out.
type CampaignDefaults struct {
	MaxResults      int
	MaxMessages     int
	MessagesPerHour int
}

// CampaignsHandler exposes the campaign control endpoints.
type CampaignsHandler struct {
	coordinator CampaignCoordinator
	defaults    CampaignDefaults
}

// NewCampaignsHandler constructs a CampaignsHandler.
func NewCampaignsHandler(coordinator CampaignCoordinator, defaults CampaignDefaults) *CampaignsHandler {
	return &CampaignsHandler{coordinator: coordinator, defaults: defaults}
}

// StartDiscovery handles POST /campaigns/discovery requests.
func (h *CampaignsHandler) StartDiscovery(c echo.Context) error {
	var req dto.StartDiscoveryRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}

	keywords := make([]string, 0, len(req.Keywords))
	for _, keyword := range req.Keywords {
		if keyword = strings.TrimSpace(keyword); keyword != "" {
			keywords = append(keywords, keyword)
		}
	}
	if len(keywords) == 0 {
		return rejected(c, http.StatusBadRequest, "at least one keyword is required")
	}
	if req.MaxResults == 0 {
		req.MaxResults = h.defaults.MaxResults
	}

	err := h.coordinator.StartDiscovery(service.DiscoveryRequest{
		SearchTerms:       keywords,
		MaxResultsPerTerm: req.MaxResults,
	})
	return h.started(c, "discovery", err)
}

// StartOutreach handles POST /campaigns/outreach requests.
func (h *CampaignsHandler) StartOutreach(c echo.Context) error {
	var req dto.StartOutreachRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}
	if req.MaxMessages == 0 {
		req.MaxMessages = h.defaults.MaxMessages
	}
	if req.MessagesPerHour == 0 {
		req.MessagesPerHour = h.defaults.MessagesPerHour
	}

	err := h.coordinator.StartOutreach(service.OutreachRequest{
		MaxMessages:     req.MaxMessages,
		MessagesPerHour: req.MessagesPerHour,
		CategoryFilter:  strings.TrimSpace(req.CategoryFilter),
		TestMode:        req.TestMode,
	})
	return h.started(c, "outreach", err)
}

// Status handles GET /campaigns/status requests.
func (h *CampaignsHandler) Status(c echo.Context) error {
	return Success(c, http.StatusOK, "campaign status", h.coordinator.Status())
}

func (h *CampaignsHandler) started(c echo.Context, kind string, err error) error {
	switch {
	case err == nil:
		return c.JSON(http.StatusAccepted, APIResponse{
			Status:  "success",
			Message: kind + " started",
			Data:    dto.StartResponse{Accepted: true},
		})
	case errors.Is(err, service.ErrAlreadyRunning):
		return rejected(c, http.StatusConflict, kind+" campaign already running")
	default:
		return rejected(c, http.StatusBadRequest, err.Error())
	}
}

func rejected(c echo.Context, status int, reason string) error {
	return c.JSON(status, APIResponse{
		Status:  "error",
		Message: reason,
		Data:    dto.StartResponse{Accepted: false, Reason: reason},
	})
}
