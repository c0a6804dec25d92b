// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Listing ListingConfig `mapstructure:"listing"`
	TMDB    TMDBConfig    `mapstructure:"tmdb"`
	Crawl   CrawlConfig   `mapstructure:"crawl"`
	DB      DBConfig      `mapstructure:"db"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port               int `mapstructure:"port"`
	ShutdownTimeoutSec int `mapstructure:"shutdown_timeout_seconds"`
}

// ListingConfig points the scraper at the cinema listing site.
type ListingConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	Region   string `mapstructure:"region"`
	RegionID int    `mapstructure:"region_id"`
	Language string `mapstructure:"language"`
	PageSize int    `mapstructure:"page_size"`
}

// TMDBConfig configures the metadata API client.
type TMDBConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	ImageBaseURL   string `mapstructure:"image_base_url"`
	AccessToken    string `mapstructure:"access_token"`
	Language       string `mapstructure:"language"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// CrawlConfig governs pacing and retry behavior of a synchronization run.
type CrawlConfig struct {
	GapDays        int `mapstructure:"gap_days"`
	MaxAttempts    int `mapstructure:"max_attempts"`
	DelayMs        int `mapstructure:"delay_ms"`
	JitterMs       int `mapstructure:"jitter_ms"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// DBConfig controls access to the catalog database.
type DBConfig struct {
	DSN                 string `mapstructure:"dsn"`
	MaxConns            int32  `mapstructure:"max_conns"`
	MinConns            int32  `mapstructure:"min_conns"`
	MaxConnLifetimeMins int    `mapstructure:"max_conn_lifetime_minutes"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CINESYNC")
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
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("listing.base_url", "https://www.cinenews.be")
	v.SetDefault("listing.region", "brabant-wallon")
	v.SetDefault("listing.region_id", 3)
	v.SetDefault("listing.language", "fr")
	v.SetDefault("listing.page_size", 24)
	v.SetDefault("tmdb.base_url", "https://api.themoviedb.org/3")
	v.SetDefault("tmdb.image_base_url", "https://image.tmdb.org/t/p")
	v.SetDefault("tmdb.language", "fr-BE")
	v.SetDefault("tmdb.timeout_seconds", 10)
	v.SetDefault("crawl.gap_days", 7)
	v.SetDefault("crawl.max_attempts", 3)
	v.SetDefault("crawl.delay_ms", 750)
	v.SetDefault("crawl.jitter_ms", 1000)
	v.SetDefault("crawl.timeout_seconds", 20)
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("db.max_conn_lifetime_minutes", 30)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Listing.BaseURL == "" {
		return fmt.Errorf("listing.base_url must be set")
	}
	if c.Listing.Region == "" {
		return fmt.Errorf("listing.region must be set")
	}
	if c.Listing.PageSize <= 0 {
		return fmt.Errorf("listing.page_size must be > 0")
	}
	if c.TMDB.AccessToken == "" {
		return fmt.Errorf("tmdb.access_token must be set")
	}
	if c.Crawl.GapDays <= 0 {
		return fmt.Errorf("crawl.gap_days must be > 0")
	}
	if c.Crawl.MaxAttempts <= 0 {
		return fmt.Errorf("crawl.max_attempts must be > 0")
	}
	if c.DB.DSN == "" {
		return fmt.Errorf("db.dsn must be set")
	}
	return nil
}

// PoliteDelay returns the fixed politeness wait between sequential requests.
func (c CrawlConfig) PoliteDelay() time.Duration {
	return time.Duration(c.DelayMs) * time.Millisecond
}

// PoliteJitter returns the maximum random extra wait on top of PoliteDelay.
func (c CrawlConfig) PoliteJitter() time.Duration {
	return time.Duration(c.JitterMs) * time.Millisecond
}

// FetchTimeout returns the per-request timeout for the listing scraper.
func (c CrawlConfig) FetchTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
