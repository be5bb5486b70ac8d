package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/octobees/leads-prospector/internal/auth"
	"github.com/octobees/leads-prospector/internal/config"
	"github.com/octobees/leads-prospector/internal/handler"
	middlewarepkg "github.com/octobees/leads-prospector/internal/middleware"
	"github.com/octobees/leads-prospector/internal/service"
)

// Handlers aggregates HTTP handlers used by the router.
type Handlers struct {
	Auth        *handler.AuthHandler
	Campaigns   *handler.CampaignsHandler
	Businesses  *handler.BusinessesHandler
	Export      *handler.ExportHandler
	AdminUpload *handler.AdminUploadHandler
}

// Register wires all HTTP routes for the API.
func Register(e *echo.Echo, cfg *config.Config, jwtManager *auth.JWTManager, handlers Handlers) {
	e.GET("/healthz", func(c echo.Context) error {
		return handler.Success(c, http.StatusOK, "service healthy", map[string]any{"status": "ok"})
	})

	e.POST("/auth/login", handlers.Auth.Login)

	secured := e.Group("")
	secured.Use(middlewarepkg.JWT(jwtManager), middlewarepkg.RequireRole(service.RoleOperator))

	startLimit := middlewarepkg.CampaignStartLimiter(cfg.RateLimitCampaignStart)
	campaigns := secured.Group("/campaigns")
	campaigns.POST("/discovery", handlers.Campaigns.StartDiscovery, startLimit)
	campaigns.POST("/outreach", handlers.Campaigns.StartOutreach, startLimit)
	campaigns.GET("/status", handlers.Campaigns.Status)

	secured.GET("/businesses", handlers.Businesses.List)
	secured.GET("/stats", handlers.Businesses.Stats)
	secured.GET("/reports", handlers.Businesses.Reports)
	secured.GET("/export", handlers.Export.Download)

	if handlers.AdminUpload != nil {
		secured.POST("/admin/upload-csv", handlers.AdminUpload.UploadCSV)
	}
}
