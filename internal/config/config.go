// Package config loads and validates venue-ingest configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/JakeFAU/venue-ingest/internal/venue"
)

// EnvPrefix is prepended to every environment override, e.g. VENUE_AIRTABLE_API_KEY.
const EnvPrefix = "VENUE"

// Scraper backends.
const (
	BackendFirecrawl = "firecrawl"
	BackendColly     = "colly"
	BackendHeadless  = "headless"
	// BackendAuto fetches with colly and re-renders script shells in Chrome.
	BackendAuto = "auto"
)

// Storage backends.
const (
	StorageMemory = "memory"
	StorageLocal  = "local"
	StorageGCS    = "gcs"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Firecrawl FirecrawlConfig `mapstructure:"firecrawl"`
	Scraper   ScraperConfig   `mapstructure:"scraper"`
	Airtable  AirtableConfig  `mapstructure:"airtable"`
	Geocoder  GeocoderConfig  `mapstructure:"geocoder"`
	Storage   StorageConfig   `mapstructure:"storage"`
	DB        DBConfig        `mapstructure:"db"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Listings  []ListingConfig `mapstructure:"listings" validate:"dive"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Server    ServerConfig    `mapstructure:"server"`
	Batch     BatchConfig     `mapstructure:"batch"`
}

// PipelineConfig holds the per-run limits and fetch pacing.
type PipelineConfig struct {
	MaxChars            int           `mapstructure:"max_chars" validate:"gt=0"`
	MaxPages            int           `mapstructure:"max_pages" validate:"gt=0"`
	MinContentChars     int           `mapstructure:"min_content_chars" validate:"gte=0"`
	MinContentWords     int           `mapstructure:"min_content_words" validate:"gte=0"`
	MinListingChars     int           `mapstructure:"min_listing_chars" validate:"gte=0"`
	RateLimitDelay      time.Duration `mapstructure:"rate_limit_delay" validate:"gte=0"`
	RateLimitCooldown   time.Duration `mapstructure:"rate_limit_cooldown" validate:"gte=0"`
	ServerErrorCooldown time.Duration `mapstructure:"server_error_cooldown" validate:"gte=0"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	RenderWait          time.Duration `mapstructure:"render_wait" validate:"gte=0"`
	RunTimeout          time.Duration `mapstructure:"run_timeout" validate:"gte=0"`
	// ManualCheckMarker stamps records that need human review. Off by default.
	ManualCheckMarker bool `mapstructure:"manual_check_marker"`
}

// FirecrawlConfig points at the hosted map/scrape service.
type FirecrawlConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`
	APIKey  string `mapstructure:"api_key"`
}

// ScraperConfig selects how pages are fetched.
type ScraperConfig struct {
	Backend            string `mapstructure:"backend" validate:"oneof=firecrawl colly headless auto"`
	UserAgent          string `mapstructure:"user_agent" validate:"required"`
	RespectRobots      bool   `mapstructure:"respect_robots"`
	MaxParallel        int    `mapstructure:"max_parallel" validate:"gte=0"`
	PromotionThreshold int    `mapstructure:"promotion_threshold" validate:"gte=0"`
}

// AirtableConfig addresses the venue table. An empty APIKey selects the
// in-memory record store.
type AirtableConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`
	APIKey  string `mapstructure:"api_key"`
	BaseID  string `mapstructure:"base_id"`
	Table   string `mapstructure:"table"`
	Field   string `mapstructure:"field" validate:"required"`
}

// GeocoderConfig configures the Nominatim client. RPS zero disables pacing.
type GeocoderConfig struct {
	BaseURL   string  `mapstructure:"base_url" validate:"omitempty,url"`
	UserAgent string  `mapstructure:"user_agent"`
	Country   string  `mapstructure:"country"`
	RPS       float64 `mapstructure:"rps" validate:"gte=0"`
}

// StorageConfig selects where artifacts are written.
type StorageConfig struct {
	Backend   string `mapstructure:"backend" validate:"oneof=memory local gcs"`
	BaseDir   string `mapstructure:"base_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// DBConfig controls the run audit table. An empty DSN disables it.
type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	Table           string        `mapstructure:"table"`
	MaxConns        int32         `mapstructure:"max_conns" validate:"gte=0"`
	MinConns        int32         `mapstructure:"min_conns" validate:"gte=0"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime" validate:"gte=0"`
}

// PubSubConfig holds the run event topic. Both fields empty disables publishing.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// CacheConfig enables the Redis page cache when RedisAddr is set.
type CacheConfig struct {
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db" validate:"gte=0"`
	TTL           time.Duration `mapstructure:"ttl" validate:"gte=0"`
}

// ListingConfig is one secondary listing source, in fetch order.
type ListingConfig struct {
	Short string `mapstructure:"short" validate:"required"`
	Label string `mapstructure:"label" validate:"required"`
}

// LoggingConfig toggles zap development features and the optional log file.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	File        string `mapstructure:"file"`
	MaxSizeMB   int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups  int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays  int    `mapstructure:"max_age_days" validate:"gte=0"`
}

// ServerConfig controls the HTTP API and its worker pool.
type ServerConfig struct {
	Port           int           `mapstructure:"port" validate:"gt=0,lte=65535"`
	APIKey         string        `mapstructure:"api_key"`
	Concurrency    int           `mapstructure:"concurrency" validate:"gt=0"`
	QueueDepth     int           `mapstructure:"queue_depth" validate:"gt=0"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gte=0"`
}

// BatchConfig bounds the batch command.
type BatchConfig struct {
	Concurrency int `mapstructure:"concurrency" validate:"gt=0"`
}

// Load builds a Config from an optional file plus the environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Empty defaults register keys so AutomaticEnv overrides reach Unmarshal.
	for _, key := range []string{
		"firecrawl.base_url", "firecrawl.api_key",
		"airtable.base_url", "airtable.api_key", "airtable.base_id",
		"geocoder.base_url", "storage.gcs_bucket", "storage.prefix",
		"db.dsn", "pubsub.project_id", "pubsub.topic_name",
		"cache.redis_addr", "cache.redis_password", "logging.file", "server.api_key",
	} {
		v.SetDefault(key, "")
	}
	v.SetDefault("pipeline.max_chars", 95000)
	v.SetDefault("pipeline.max_pages", 20)
	v.SetDefault("pipeline.min_content_chars", 500)
	v.SetDefault("pipeline.min_content_words", 50)
	v.SetDefault("pipeline.min_listing_chars", 200)
	v.SetDefault("pipeline.rate_limit_delay", "2s")
	v.SetDefault("pipeline.rate_limit_cooldown", "30s")
	v.SetDefault("pipeline.server_error_cooldown", "5s")
	v.SetDefault("pipeline.request_timeout", "120s")
	v.SetDefault("pipeline.render_wait", "8s")
	v.SetDefault("pipeline.run_timeout", "30m")
	v.SetDefault("pipeline.manual_check_marker", false)
	v.SetDefault("scraper.backend", BackendFirecrawl)
	v.SetDefault("scraper.user_agent", "venue-ingest/1.0")
	v.SetDefault("scraper.respect_robots", true)
	v.SetDefault("scraper.max_parallel", 1)
	v.SetDefault("scraper.promotion_threshold", 2048)
	v.SetDefault("airtable.table", "Venues")
	v.SetDefault("airtable.field", "venue_url_scraped")
	v.SetDefault("geocoder.user_agent", "venue-ingest/1.0")
	v.SetDefault("geocoder.country", "France")
	v.SetDefault("geocoder.rps", 1.0)
	v.SetDefault("storage.backend", StorageLocal)
	v.SetDefault("storage.base_dir", "/tmp")
	v.SetDefault("db.table", "venue_runs")
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 14)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.concurrency", 2)
	v.SetDefault("server.queue_depth", 64)
	v.SetDefault("server.request_timeout", "15s")
	v.SetDefault("batch.concurrency", 1)
}

// Validate enforces struct tag rules plus cross-field requirements.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%s failed %s validation", verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("validate config: %w", err)
	}
	if c.Pipeline.MinListingChars > c.Pipeline.MaxChars {
		return fmt.Errorf("pipeline.min_listing_chars must not exceed pipeline.max_chars")
	}
	if c.Scraper.Backend == BackendFirecrawl && c.Firecrawl.APIKey == "" {
		return fmt.Errorf("firecrawl.api_key must be set when scraper.backend is firecrawl")
	}
	if c.Airtable.APIKey != "" && (c.Airtable.BaseID == "" || c.Airtable.Table == "") {
		return fmt.Errorf("airtable.base_id and airtable.table must be set with airtable.api_key")
	}
	switch c.Storage.Backend {
	case StorageGCS:
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set when storage.backend is gcs")
		}
	case StorageLocal:
		if c.Storage.BaseDir == "" {
			return fmt.Errorf("storage.base_dir must be set when storage.backend is local")
		}
	}
	if (c.PubSub.ProjectID == "") != (c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set together")
	}
	if c.DB.MinConns > c.DB.MaxConns && c.DB.MaxConns > 0 {
		return fmt.Errorf("db.min_conns must not exceed db.max_conns")
	}
	return nil
}

// ListingSources returns the configured listing sources as venue listings. It is
// empty when none are configured, letting the processor fall back to its
// built-in set.
func (c Config) ListingSources() []venue.Listing {
	out := make([]venue.Listing, 0, len(c.Listings))
	for _, l := range c.Listings {
		out = append(out, venue.Listing{Short: l.Short, Label: l.Label})
	}
	return out
}
