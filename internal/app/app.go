// Package app assembles the store, browser factory and campaign services
// shared by the HTTP server and the command-line tool.
package app

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/octobees/leads-prospector/internal/auth"
	"github.com/octobees/leads-prospector/internal/config"
	"github.com/octobees/leads-prospector/internal/database"
	"github.com/octobees/leads-prospector/internal/driver"
	"github.com/octobees/leads-prospector/internal/handler"
	"github.com/octobees/leads-prospector/internal/ledger"
	"github.com/octobees/leads-prospector/internal/repository"
	"github.com/octobees/leads-prospector/internal/router"
	"github.com/octobees/leads-prospector/internal/selectors"
	"github.com/octobees/leads-prospector/internal/service"
)

// App holds every long-lived component built from the configuration.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Store     repository.Store
	Ledger    *ledger.Ledger
	Selectors *selectors.Selectors
	JWT       *auth.JWTManager

	Auth      *service.AuthService
	Discovery *service.DiscoveryService
	Outreach  *service.OutreachService
	Exporter  *service.Exporter
	Importer  *service.Importer
	Stats     *service.StatsService

	closers []func()
}

// NewLogger builds a production zap logger at the given level name.
func NewLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "json"
	return cfg.Build()
}

// New opens the store named by cfg.DatabaseURL and wires the services.
// drivers may be nil, in which case a Chrome-backed factory is used.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, drivers driver.Factory) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	a.Store = store

	sel := selectors.Default()
	if cfg.Campaign.SelectorsFile != "" {
		if sel, err = selectors.Load(cfg.Campaign.SelectorsFile); err != nil {
			a.Close()
			return nil, err
		}
	}
	a.Selectors = sel

	template, err := service.LoadMessageTemplate(cfg.Campaign.MessageTemplateFile)
	if err != nil {
		a.Close()
		return nil, err
	}
	prefix, err := service.CountryPrefix(cfg.Campaign.PhoneRegion)
	if err != nil {
		a.Close()
		return nil, err
	}

	if drivers == nil {
		drivers = driver.NewRodFactory(driver.Options{
			Headless:     cfg.Browser.Headless,
			Bin:          cfg.Browser.Bin,
			ProfileDir:   cfg.Browser.ProfileDir,
			ScrollSettle: cfg.Browser.ScrollSettle,
		}, logger.Named("browser"))
	}

	var delays service.DiscoveryDelays
	if cfg.Campaign.HumanDelays {
		delays = service.HumanDelays()
	}
	channel := service.DefaultChannelOptions()
	channel.AuthTimeout = cfg.Campaign.AuthTimeout
	channel.ComposerTimeout = cfg.Campaign.ComposerTimeout
	if !cfg.Campaign.HumanDelays {
		channel.BeforeSubmit, channel.AfterSubmit = 0, 0
	}

	a.Ledger = ledger.New(store)
	a.JWT = auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	a.Auth = service.NewAuthService(cfg.AdminEmail, cfg.AdminPasswordHash, a.JWT)
	a.Exporter = service.NewExporter(store.Businesses, cfg.Campaign.ExportDir)
	a.Importer = service.NewImporter(a.Ledger, logger.Named("import"))
	a.Stats = service.NewStatsService(store)
	a.Discovery = service.NewDiscoveryService(a.Ledger, store.Sessions, drivers, sel, a.Exporter, service.DiscoveryOptions{
		LocaleSuffix: cfg.Campaign.SearchLocaleSuffix,
		Delays:       delays,
	}, logger.Named("discovery"))
	a.Outreach = service.NewOutreachService(a.Ledger, drivers, sel, service.OutreachOptions{
		Template:        template,
		CountryPrefix:   prefix,
		MessagesPerHour: cfg.Campaign.MaxMessagesPerHour,
		Channel:         channel,
	}, logger.Named("outreach"))

	return a, nil
}

// NewCoordinator binds a campaign coordinator to ctx.
func (a *App) NewCoordinator(ctx context.Context) *service.Coordinator {
	return service.NewCoordinator(ctx, a.Discovery, a.Outreach, a.Logger.Named("coordinator"))
}

// Handlers builds the HTTP handlers served by the router.
func (a *App) Handlers(coordinator handler.CampaignCoordinator) router.Handlers {
	return router.Handlers{
		Auth: handler.NewAuthHandler(a.Auth),
		Campaigns: handler.NewCampaignsHandler(coordinator, handler.CampaignDefaults{
			MaxResults:      a.Config.Campaign.MaxScrapingResults,
			MessagesPerHour: a.Config.Campaign.MaxMessagesPerHour,
		}),
		Businesses:  handler.NewBusinessesHandler(a.Stats),
		Export:      handler.NewExportHandler(a.Exporter),
		AdminUpload: handler.NewAdminUploadHandler(a.Importer),
	}
}

// Close releases the store.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) openStore(ctx context.Context) (repository.Store, error) {
	dialect, target, err := database.ParseURL(a.Config.DatabaseURL)
	if err != nil {
		return repository.Store{}, err
	}

	switch dialect {
	case database.DialectPostgres:
		pool, err := database.Connect(ctx, target)
		if err != nil {
			return repository.Store{}, err
		}
		if err := database.MigratePostgres(ctx, pool); err != nil {
			pool.Close()
			return repository.Store{}, fmt.Errorf("migrate postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		a.Logger.Info("store opened", zap.String("dialect", string(dialect)))
		return repository.NewPGXStore(pool), nil
	default:
		db, err := database.OpenSQLite(ctx, target)
		if err != nil {
			return repository.Store{}, err
		}
		a.closers = append(a.closers, func() { db.Close() })
		a.Logger.Info("store opened", zap.String("dialect", string(dialect)), zap.String("path", target))
		return repository.NewSQLiteStore(db), nil
	}
}
