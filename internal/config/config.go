package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Sources SourcesConfig `yaml:"sources" mapstructure:"sources"`
	Search  SearchConfig  `yaml:"search" mapstructure:"search"`
	Repair  RepairConfig  `yaml:"repair" mapstructure:"repair"`
	Crawler CrawlerConfig `yaml:"crawler" mapstructure:"crawler"`
	Alerts  AlertsConfig  `yaml:"alerts" mapstructure:"alerts"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// SourcesConfig configures the marketplace adapters.
type SourcesConfig struct {
	OLXBaseURL      string `yaml:"olx_base_url" mapstructure:"olx_base_url"`
	AutovitBaseURL  string `yaml:"autovit_base_url" mapstructure:"autovit_base_url"`
	FetchTimeoutSec int    `yaml:"fetch_timeout_secs" mapstructure:"fetch_timeout_secs"`
	MaxRetries      int    `yaml:"max_retries" mapstructure:"max_retries"`
	PageCacheTTLSec int    `yaml:"page_cache_ttl_secs" mapstructure:"page_cache_ttl_secs"`
	RatePerHost     int    `yaml:"rate_per_host" mapstructure:"rate_per_host"`
}

// SearchConfig configures the search pipeline.
type SearchConfig struct {
	DefaultLimit    int     `yaml:"default_limit" mapstructure:"default_limit"`
	DefaultPages    int     `yaml:"default_pages" mapstructure:"default_pages"`
	DeepLimit       int     `yaml:"deep_limit" mapstructure:"deep_limit"`
	PerPageEstimate int     `yaml:"per_page_estimate" mapstructure:"per_page_estimate"`
	CacheTTLMin     int     `yaml:"cache_ttl_mins" mapstructure:"cache_ttl_mins"`
	RONPerEUR       float64 `yaml:"ron_per_eur" mapstructure:"ron_per_eur"`
}

// RepairConfig configures the record-repair subsystem.
type RepairConfig struct {
	TimeoutSec     int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxConcurrent  int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	LuxuryFloorEUR int `yaml:"luxury_floor_eur" mapstructure:"luxury_floor_eur"`
}

// CrawlerConfig configures the background crawl loop.
type CrawlerConfig struct {
	TargetsFile      string `yaml:"targets_file" mapstructure:"targets_file"`
	CycleSleepMin    int    `yaml:"cycle_sleep_mins" mapstructure:"cycle_sleep_mins"`
	TargetSleepSec   int    `yaml:"target_sleep_secs" mapstructure:"target_sleep_secs"`
	StaleAfterHours  int    `yaml:"stale_after_hours" mapstructure:"stale_after_hours"`
	DeepSearchLimit  int    `yaml:"deep_search_limit" mapstructure:"deep_search_limit"`
	DeepSearchPages  int    `yaml:"deep_search_pages" mapstructure:"deep_search_pages"`
}

// AlertsConfig configures the alert poll loop.
type AlertsConfig struct {
	PollIntervalSec int    `yaml:"poll_interval_secs" mapstructure:"poll_interval_secs"`
	WebhookURL      string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// FetchTimeout returns the listing-page fetch timeout.
func (s SourcesConfig) FetchTimeout() time.Duration {
	return time.Duration(s.FetchTimeoutSec) * time.Second
}

// PageCacheTTL returns the adapter page-cache TTL.
func (s SourcesConfig) PageCacheTTL() time.Duration {
	return time.Duration(s.PageCacheTTLSec) * time.Second
}

// Timeout returns the per-listing repair fetch timeout. It is shorter
// than the listing fetch timeout: repair is best-effort and must not
// dominate total latency.
func (r RepairConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSec) * time.Second
}

// CacheTTL returns the result-cache TTL.
func (s SearchConfig) CacheTTL() time.Duration {
	return time.Duration(s.CacheTTLMin) * time.Minute
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CARSNIPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "carsniper.sqlite")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"http://localhost:5173"})
	v.SetDefault("sources.olx_base_url", "https://www.olx.ro")
	v.SetDefault("sources.autovit_base_url", "https://www.autovit.ro")
	v.SetDefault("sources.fetch_timeout_secs", 12)
	v.SetDefault("sources.max_retries", 3)
	v.SetDefault("sources.page_cache_ttl_secs", 60)
	v.SetDefault("sources.rate_per_host", 5)
	v.SetDefault("search.default_limit", 50)
	v.SetDefault("search.default_pages", 5)
	v.SetDefault("search.deep_limit", 100)
	v.SetDefault("search.per_page_estimate", 30)
	v.SetDefault("search.cache_ttl_mins", 10)
	v.SetDefault("search.ron_per_eur", 4.97)
	v.SetDefault("repair.timeout_secs", 8)
	v.SetDefault("repair.max_concurrent", 8)
	v.SetDefault("repair.luxury_floor_eur", 15000)
	v.SetDefault("crawler.targets_file", "targets.yaml")
	v.SetDefault("crawler.cycle_sleep_mins", 10)
	v.SetDefault("crawler.target_sleep_secs", 7)
	v.SetDefault("crawler.stale_after_hours", 24)
	v.SetDefault("crawler.deep_search_limit", 1000)
	v.SetDefault("crawler.deep_search_pages", 20)
	v.SetDefault("alerts.poll_interval_secs", 600)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
