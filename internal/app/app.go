// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/storage"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/safescrape/internal/api"
	"github.com/JakeFAU/safescrape/internal/browser"
	"github.com/JakeFAU/safescrape/internal/clock/system"
	"github.com/JakeFAU/safescrape/internal/config"
	"github.com/JakeFAU/safescrape/internal/dictionary"
	"github.com/JakeFAU/safescrape/internal/id/uuid"
	"github.com/JakeFAU/safescrape/internal/logging"
	"github.com/JakeFAU/safescrape/internal/policy/ratelimit"
	"github.com/JakeFAU/safescrape/internal/robots"
	"github.com/JakeFAU/safescrape/internal/scrape"
	"github.com/JakeFAU/safescrape/internal/source/gcs"
	"github.com/JakeFAU/safescrape/internal/source/local"
	"github.com/JakeFAU/safescrape/internal/source/memory"
	"github.com/JakeFAU/safescrape/internal/telemetry"
)

// App holds the shared, long-lived services for the application. It is
// built once at startup and closed when the command finishes.
type App struct {
	cfg        config.Config
	logger     *zap.Logger
	store      *dictionary.Store
	browser    scrape.Browser
	engine     *scrape.Engine
	limiter    *ratelimit.Limiter
	tracer     *sdktrace.TracerProvider
	gcsClient  *storage.Client
	ownsLogger bool
}

// Option overrides a collaborator NewApp would otherwise build from config.
type Option func(*options)

type options struct {
	logger  *zap.Logger
	source  dictionary.Source
	browser scrape.Browser
	clock   scrape.Clock
}

// WithLogger uses logger instead of building one from config.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithSource reads block-lists from src instead of lists.source.
func WithSource(src dictionary.Source) Option {
	return func(o *options) { o.source = src }
}

// WithBrowser drives b instead of the configured browser driver.
func WithBrowser(b scrape.Browser) Option {
	return func(o *options) { o.browser = b }
}

// WithClock replaces the system clock.
func WithClock(c scrape.Clock) Option {
	return func(o *options) { o.clock = c }
}

// NewApp creates and initializes an App from cfg. It fails fast when the
// block-lists cannot be loaded, since there is no safe unfiltered default.
func NewApp(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{cfg: cfg, logger: o.logger}
	if a.logger == nil {
		logger, err := logging.New(cfg.Logging.Development)
		if err != nil {
			return nil, err
		}
		a.logger = logger
		a.ownsLogger = true
	}
	l := a.logger
	l.Info("Initializing application services...")

	if cfg.Telemetry.TracingEnabled {
		tp, err := telemetry.InitTracerProvider(ctx, cfg.Telemetry.ServiceName)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init tracing: %w", err)
		}
		a.tracer = tp
	}

	src := o.source
	if src == nil {
		var err error
		src, err = a.newSource(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	a.store = dictionary.NewStore(src, dictionary.Config{
		TermsFile:   cfg.Lists.TermsFile,
		NamesFile:   cfg.Lists.NamesFile,
		DomainsFile: cfg.Lists.DomainsFile,
		BloomFPRate: cfg.Lists.BloomFPRate,
	}, l)
	if _, err := a.store.Load(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("%w: %w", scrape.ErrConfiguration, err)
	}

	a.browser = o.browser
	if a.browser == nil {
		driver, err := browser.New(browser.Config{
			Driver:    cfg.Scraper.Driver,
			UserAgent: cfg.Scraper.UserAgent,
			ExecPath:  cfg.Scraper.ExecPath,
			NoSandbox: cfg.Scraper.NoSandbox,
		}, l)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init browser: %w", err)
		}
		a.browser = driver
	}

	clock := o.clock
	if clock == nil {
		clock = system.New()
	}

	engine, err := scrape.NewEngine(scrape.Config{
		UserAgent:         cfg.Scraper.UserAgent,
		SettleDelay:       cfg.Scraper.SettleDelay,
		RedactionMarker:   cfg.Scraper.RedactionMarker,
		FilterConcurrency: cfg.Scraper.FilterConcurrency,
		MinPrefixLength:   cfg.Scraper.MinPrefixLength,
	}, scrape.Dependencies{
		Browser:      a.browser,
		Dictionaries: a.store,
		Clock:        clock,
		RobotsCache:  robots.NewCache(cfg.Robots.CacheSize, cfg.Robots.CacheTTL),
		Logger:       l,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init engine: %w", err)
	}
	a.engine = engine

	a.limiter = ratelimit.New(ratelimit.Config{
		Requests: cfg.Server.RateLimit.Requests,
		Window:   cfg.Server.RateLimit.Window,
	})

	l.Info("Application services initialized successfully.",
		zap.String("driver", cfg.Scraper.Driver),
		zap.String("lists_source", cfg.Lists.Source),
	)
	return a, nil
}

func (a *App) newSource(ctx context.Context) (dictionary.Source, error) {
	switch a.cfg.Lists.Source {
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}
		a.gcsClient = client
		a.logger.Info("Using GCS list source", zap.String("bucket", a.cfg.Lists.Bucket))
		src, err := gcs.New(client, gcs.Config{Bucket: a.cfg.Lists.Bucket, Prefix: a.cfg.Lists.Prefix})
		if err != nil {
			return nil, fmt.Errorf("init gcs source: %w", err)
		}
		return src, nil
	case "memory":
		a.logger.Info("Using inline list source")
		src := memory.New()
		src.PutLines(a.cfg.Lists.TermsFile, a.cfg.Lists.Inline.Terms...)
		src.PutLines(a.cfg.Lists.NamesFile, a.cfg.Lists.Inline.Names...)
		src.PutLines(a.cfg.Lists.DomainsFile, a.cfg.Lists.Inline.Domains...)
		return src, nil
	case "local", "":
		a.logger.Info("Using local list source", zap.String("base_dir", a.cfg.Lists.BaseDir))
		src, err := local.New(local.Config{BaseDir: a.cfg.Lists.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("init local source: %w", err)
		}
		return src, nil
	default:
		return nil, fmt.Errorf("unknown list source: %s", a.cfg.Lists.Source)
	}
}

// Config returns the configuration the App was built from.
func (a *App) Config() config.Config {
	return a.cfg
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Engine returns the scrape engine.
func (a *App) Engine() *scrape.Engine {
	return a.engine
}

// Dictionaries returns the block-list store.
func (a *App) Dictionaries() *dictionary.Store {
	return a.store
}

// Server builds the HTTP API around the engine.
func (a *App) Server() *api.Server {
	return api.NewServer(a.engine, a.store, api.Options{
		RequestTimeout: a.cfg.Server.RequestTimeout,
		AllowedOrigins: a.cfg.Server.CORS.AllowedOrigins,
		Limiter:        a.limiter,
		IDs:            uuid.New(),
	}, a.logger)
}

// Close shuts down all services in the App. It is safe to call on a
// partially built App.
func (a *App) Close() {
	if a == nil {
		return
	}
	a.logger.Info("Shutting down application services...")
	if closer, ok := a.browser.(interface{ Close() }); ok {
		closer.Close()
	}
	var errs []error
	if a.gcsClient != nil {
		if err := a.gcsClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage client: %w", err))
		}
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(context.Background()); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("Error closing application services", zap.Error(err))
	}
	if a.ownsLogger {
		// Sync fails on stdout/stderr for some terminals; nothing useful to do.
		_ = a.logger.Sync()
	}
}
