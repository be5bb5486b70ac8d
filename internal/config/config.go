package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// RateLimitConfig indicates how many requests are allowed within a given interval.
type RateLimitConfig struct {
	Requests int
	Interval time.Duration
}

// BrowserConfig controls the Chrome instance used by both campaigns.
type BrowserConfig struct {
	Headless     bool
	Bin          string
	ProfileDir   string
	ScrollSettle time.Duration
}

// CampaignConfig holds the defaults and limits applied to campaign runs.
type CampaignConfig struct {
	MaxMessagesPerHour  int
	MaxScrapingResults  int
	ExportDir           string
	PhoneRegion         string
	SearchLocaleSuffix  string
	SelectorsFile       string
	MessageTemplateFile string
	AuthTimeout         time.Duration
	ComposerTimeout     time.Duration
	HumanDelays         bool
}

// Config aggregates application-wide configuration values.
type Config struct {
	DatabaseURL            string
	JWTSecret              string
	Port                   string
	AdminEmail             string
	AdminPasswordHash      string
	LogLevel               string
	RateLimitCampaignStart RateLimitConfig
	TokenTTL               time.Duration
	Browser                BrowserConfig
	Campaign               CampaignConfig
}

// Load reads configuration from environment variables and applies sane defaults.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:       getEnv("DATABASE_URL", "sqlite:///data/prospeccao.db"),
		JWTSecret:         getEnv("JWT_SECRET", "dev-secret"),
		Port:              getEnv("PORT", "8080"),
		AdminEmail:        getEnv("ADMIN_EMAIL", "admin@example.com"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		TokenTTL:          parseDuration(getEnv("JWT_TTL", "24h")),
		Browser: BrowserConfig{
			Bin:        os.Getenv("CHROME_BIN"),
			ProfileDir: getEnv("BROWSER_PROFILE_DIR", "data/chrome_profile"),
		},
		Campaign: CampaignConfig{
			ExportDir:           getEnv("EXPORT_DIR", "export"),
			PhoneRegion:         strings.ToUpper(getEnv("PHONE_REGION", "BR")),
			SearchLocaleSuffix:  getEnv("SEARCH_LOCALE_SUFFIX", "Curitiba"),
			SelectorsFile:       os.Getenv("SELECTORS_FILE"),
			MessageTemplateFile: os.Getenv("MESSAGE_TEMPLATE_FILE"),
		},
	}

	rl, err := parseRateLimit(getEnv("RATE_LIMIT_CAMPAIGN_START", "5/min"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_CAMPAIGN_START value: %w", err)
	}
	cfg.RateLimitCampaignStart = rl

	if cfg.Browser.Headless, err = parseBool("BROWSER_HEADLESS", "true"); err != nil {
		return nil, err
	}
	if cfg.Browser.ScrollSettle, err = parseStrictDuration("SCROLL_SETTLE", "3s"); err != nil {
		return nil, err
	}
	if cfg.Campaign.MaxMessagesPerHour, err = parsePositiveInt("MAX_MESSAGES_PER_HOUR", "10"); err != nil {
		return nil, err
	}
	if cfg.Campaign.MaxScrapingResults, err = parsePositiveInt("MAX_SCRAPING_RESULTS", "100"); err != nil {
		return nil, err
	}
	if cfg.Campaign.AuthTimeout, err = parseStrictDuration("AUTH_TIMEOUT", "120s"); err != nil {
		return nil, err
	}
	if cfg.Campaign.ComposerTimeout, err = parseStrictDuration("COMPOSER_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.Campaign.HumanDelays, err = parseBool("HUMAN_DELAYS", "true"); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseRateLimit(value string) (RateLimitConfig, error) {
	parts := strings.Split(value, "/")
	if len(parts) != 2 {
		return RateLimitConfig{}, fmt.Errorf("expected format <requests>/<interval>, got %q", value)
	}

	requests, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || requests <= 0 {
		return RateLimitConfig{}, fmt.Errorf("invalid request count: %v", parts[0])
	}

	unit := strings.ToLower(strings.TrimSpace(parts[1]))
	var interval time.Duration
	switch unit {
	case "s", "sec", "second", "seconds":
		interval = time.Second
	case "m", "min", "minute", "minutes":
		interval = time.Minute
	case "h", "hr", "hour", "hours":
		interval = time.Hour
	default:
		return RateLimitConfig{}, fmt.Errorf("unsupported interval unit: %s", unit)
	}

	return RateLimitConfig{Requests: requests, Interval: interval}, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func parseDuration(input string) time.Duration {
	d, err := time.ParseDuration(input)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

func parseStrictDuration(key, fallback string) (time.Duration, error) {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s value %q: expected a positive duration", key, raw)
	}
	return d, nil
}

func parsePositiveInt(key, fallback string) (int, error) {
	raw := getEnv(key, fallback)
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s value %q: expected a positive integer", key, raw)
	}
	return n, nil
}

func parseBool(key, fallback string) (bool, error) {
	raw := getEnv(key, fallback)
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: expected a boolean", key, raw)
	}
	return b, nil
}
