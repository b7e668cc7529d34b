// Package config loads and validates service configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. SAFESCRAPE_SERVER_PORT.
const EnvPrefix = "SAFESCRAPE"

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Scraper   ScraperConfig   `mapstructure:"scraper"`
	Robots    RobotsConfig    `mapstructure:"robots"`
	Lists     ListsConfig     `mapstructure:"lists"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port            int             `mapstructure:"port" validate:"gte=1,lt=65536"`
	RequestTimeout  time.Duration   `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
	CORS            CORSConfig      `mapstructure:"cors"`
}

// RateLimitConfig bounds requests per client. Zero requests disables limiting.
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests" validate:"gte=0"`
	Window   time.Duration `mapstructure:"window"`
}

// CORSConfig lists origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins" validate:"dive,required"`
}

// ScraperConfig tunes the browser and the scrape pipeline.
type ScraperConfig struct {
	UserAgent         string        `mapstructure:"user_agent" validate:"required"`
	Driver            string        `mapstructure:"driver" validate:"oneof=chromedp rod"`
	ExecPath          string        `mapstructure:"exec_path"`
	NoSandbox         bool          `mapstructure:"no_sandbox"`
	SettleDelay       time.Duration `mapstructure:"settle_delay"`
	RedactionMarker   string        `mapstructure:"redaction_marker" validate:"required"`
	FilterConcurrency int           `mapstructure:"filter_concurrency" validate:"gte=1"`
	MinPrefixLength   int           `mapstructure:"min_prefix_length" validate:"gte=1"`
}

// RobotsConfig controls robots.txt document caching. A zero TTL disables it.
type RobotsConfig struct {
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
	CacheSize int           `mapstructure:"cache_size" validate:"gte=0"`
}

// ListsConfig locates the three block-list resources.
type ListsConfig struct {
	Source      string  `mapstructure:"source" validate:"oneof=local gcs memory"`
	BaseDir     string  `mapstructure:"base_dir"`
	Bucket      string  `mapstructure:"bucket"`
	Prefix      string  `mapstructure:"prefix"`
	TermsFile   string  `mapstructure:"terms_file" validate:"required"`
	NamesFile   string  `mapstructure:"names_file" validate:"required"`
	DomainsFile string  `mapstructure:"domains_file" validate:"required"`
	BloomFPRate float64 `mapstructure:"bloom_fp_rate" validate:"gt=0,lt=1"`
	// Inline holds the entries served when Source is "memory".
	Inline InlineListsConfig `mapstructure:"inline"`
}

// InlineListsConfig carries block-list entries in the config itself, for
// development and smoke tests.
type InlineListsConfig struct {
	Terms   []string `mapstructure:"terms"`
	Names   []string `mapstructure:"names"`
	Domains []string `mapstructure:"domains"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// TelemetryConfig names the service in traces.
type TelemetryConfig struct {
	ServiceName    string `mapstructure:"service_name" validate:"required"`
	TracingEnabled bool   `mapstructure:"tracing_enabled"`
}

// Load builds a Config from defaults, an optional file, and the environment.
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
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.request_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.rate_limit.requests", 100)
	v.SetDefault("server.rate_limit.window", "15m")
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("scraper.user_agent", "SafeScrapeBot/1.0")
	v.SetDefault("scraper.driver", "chromedp")
	v.SetDefault("scraper.exec_path", "")
	v.SetDefault("scraper.no_sandbox", true)
	v.SetDefault("scraper.settle_delay", "5s")
	v.SetDefault("scraper.redaction_marker", "***")
	v.SetDefault("scraper.filter_concurrency", 8)
	v.SetDefault("scraper.min_prefix_length", 1)
	v.SetDefault("robots.cache_ttl", "0s")
	v.SetDefault("robots.cache_size", 256)
	v.SetDefault("lists.source", "local")
	v.SetDefault("lists.base_dir", "data")
	v.SetDefault("lists.bucket", "")
	v.SetDefault("lists.prefix", "")
	v.SetDefault("lists.terms_file", "slurs.txt")
	v.SetDefault("lists.names_file", "nsfw-names.txt")
	v.SetDefault("lists.domains_file", "nsfw.txt")
	v.SetDefault("lists.bloom_fp_rate", 0.001)
	v.SetDefault("logging.development", true)
	v.SetDefault("telemetry.service_name", "safescrape")
	v.SetDefault("telemetry.tracing_enabled", false)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	var errs []error
	if c.Server.RequestTimeout < 0 {
		errs = append(errs, errors.New("server.request_timeout must be >= 0"))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be > 0"))
	}
	if c.Server.RateLimit.Requests > 0 && c.Server.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("server.rate_limit.window must be > 0 when rate limiting is enabled"))
	}
	if c.Scraper.SettleDelay < 0 {
		errs = append(errs, errors.New("scraper.settle_delay must be >= 0"))
	}
	if c.Robots.CacheTTL < 0 {
		errs = append(errs, errors.New("robots.cache_ttl must be >= 0"))
	}
	if c.Robots.CacheTTL > 0 && c.Robots.CacheSize <= 0 {
		errs = append(errs, errors.New("robots.cache_size must be > 0 when robots caching is enabled"))
	}
	switch c.Lists.Source {
	case "local":
		if strings.TrimSpace(c.Lists.BaseDir) == "" {
			errs = append(errs, errors.New("lists.base_dir must be set when lists.source is local"))
		}
	case "gcs":
		if strings.TrimSpace(c.Lists.Bucket) == "" {
			errs = append(errs, errors.New("lists.bucket must be set when lists.source is gcs"))
		}
	case "memory":
		inline := c.Lists.Inline
		if len(inline.Terms) == 0 || len(inline.Names) == 0 || len(inline.Domains) == 0 {
			errs = append(errs, errors.New("lists.inline terms, names and domains must be set when lists.source is memory"))
		}
	}
	return errors.Join(errs...)
}

// Addr returns the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
