package scrape

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/safescrape/internal/dictionary"
	"github.com/JakeFAU/safescrape/internal/domainguard"
	"github.com/JakeFAU/safescrape/internal/metrics"
	"github.com/JakeFAU/safescrape/internal/robots"
	"github.com/JakeFAU/safescrape/internal/textclean"
)

const tracerName = "github.com/JakeFAU/safescrape/internal/scrape"

// DefaultSettleDelay is how long the page may render after DOMContentLoaded.
const DefaultSettleDelay = 5 * time.Second

// Config tunes the engine.
type Config struct {
	UserAgent         string
	SettleDelay       time.Duration
	RedactionMarker   string
	FilterConcurrency int
	MinPrefixLength   int
}

// Dependencies are the collaborators the engine drives.
type Dependencies struct {
	Browser      Browser
	Dictionaries DictionaryLoader
	Clock        Clock
	// RobotsCache is optional; nil fetches robots.txt on every request.
	RobotsCache *robots.Cache
	Logger      *zap.Logger
}

// Engine runs scrape requests. It is safe for concurrent use.
type Engine struct {
	cfg         Config
	browser     Browser
	dicts       DictionaryLoader
	clock       Clock
	robotsCache *robots.Cache
	logger      *zap.Logger
	tracer      trace.Tracer
}

// NewEngine validates deps and returns an Engine.
func NewEngine(cfg Config, deps Dependencies) (*Engine, error) {
	if deps.Browser == nil {
		return nil, errors.New("browser is required")
	}
	if deps.Dictionaries == nil {
		return nil, errors.New("dictionaries are required")
	}
	if deps.Clock == nil {
		return nil, errors.New("clock is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.SettleDelay < 0 {
		cfg.SettleDelay = 0
	}
	if cfg.RedactionMarker == "" {
		cfg.RedactionMarker = DefaultRedactionMarker
	}
	if cfg.FilterConcurrency <= 0 {
		cfg.FilterConcurrency = 1
	}
	return &Engine{
		cfg:         cfg,
		browser:     deps.Browser,
		dicts:       deps.Dictionaries,
		clock:       deps.Clock,
		robotsCache: deps.RobotsCache,
		logger:      deps.Logger.Named("scrape"),
		tracer:      otel.Tracer(tracerName),
	}, nil
}

// Scrape fetches rawURL and returns its verdict and cleaned text. Robots and
// domain refusals are Results; only faults are returned as *Error. The
// browser session, once launched, is closed exactly once on every path.
func (e *Engine) Scrape(ctx context.Context, rawURL string) (result Result, err error) {
	start := e.clock.Now()
	ctx, span := e.tracer.Start(ctx, "scrape", trace.WithAttributes(attribute.String("url", rawURL)))
	defer func() {
		e.finish(span, rawURL, start, result, err)
	}()

	docURL, err := robots.DocumentURL(rawURL)
	if err != nil {
		return Result{Outcome: OutcomeFailed}, fault(StageRobots, ErrInvalidURL, rawURL, err)
	}

	dicts, err := e.dicts.Load(ctx)
	if err != nil {
		return Result{Outcome: OutcomeFailed}, fault(StageDictionary, ErrConfiguration, rawURL, err)
	}

	session, err := e.launch(ctx)
	if err != nil {
		return Result{Outcome: OutcomeFailed}, fault(StageLaunch, ErrTransport, rawURL, err)
	}
	release := e.releaser(session, rawURL)
	defer release()

	verdict, err := e.checkRobots(ctx, session, docURL, rawURL)
	if err != nil {
		return Result{Outcome: OutcomeFailed}, fault(StageRobots, ErrTransport, rawURL, err)
	}
	switch {
	case verdict.Disallowed:
		return disallowed(ReasonRobotsDisallowed), nil
	case !verdict.Allowed:
		return disallowed(ReasonNotExplicitlyAllowed), nil
	}

	if domainguard.IsBlocked(rawURL, dicts.Domains) {
		return blocked(OutcomeBlockedPre, rawURL), nil
	}

	finalURL, err := e.navigate(ctx, session, rawURL)
	if err != nil {
		return Result{Outcome: OutcomeFailed}, fault(StageNavigate, ErrTransport, rawURL, err)
	}

	if err := e.settle(ctx); err != nil {
		return Result{Outcome: OutcomeFailed, FinalURL: finalURL}, fault(StageSettle, ErrTransport, rawURL, err)
	}

	if domainguard.IsBlocked(finalURL, dicts.Domains) {
		release()
		return blocked(OutcomeBlockedPost, finalURL), nil
	}

	fragments, err := e.extract(ctx, session)
	release()
	if err != nil {
		return Result{Outcome: OutcomeFailed, FinalURL: finalURL}, fault(StageExtract, ErrTransport, rawURL, err)
	}

	texts, err := e.filter(ctx, dicts, clean(fragments))
	if err != nil {
		return Result{Outcome: OutcomeFailed, FinalURL: finalURL}, fault(StageFilter, ErrTransport, rawURL, err)
	}

	censored := false
	for _, text := range texts {
		if strings.Contains(text, e.cfg.RedactionMarker) {
			censored = true
			break
		}
	}
	return Result{
		Outcome:          OutcomeDone,
		FinalURL:         finalURL,
		Allowed:          true,
		ContainsCensored: censored,
		FilteredTexts:    texts,
	}, nil
}

func (e *Engine) launch(ctx context.Context) (Session, error) {
	ctx, end := e.stage(ctx, "launch")
	defer end()
	session, err := e.browser.Launch(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, errors.New("browser returned no session")
	}
	return session, nil
}

// releaser returns an idempotent close for session.
func (e *Engine) releaser(session Session, rawURL string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			if err := session.Close(); err != nil {
				e.logger.Warn("Failed to close browser session", zap.String("url", rawURL), zap.Error(err))
			}
		})
	}
}

func (e *Engine) checkRobots(ctx context.Context, session Session, docURL, rawURL string) (robots.Verdict, error) {
	ctx, end := e.stage(ctx, "robots")
	defer end()

	doc, ok := e.robotsCache.Get(docURL)
	if !ok {
		fetched, err := session.FetchDocument(ctx, docURL)
		if err != nil {
			return robots.Verdict{}, fmt.Errorf("fetch %s: %w", docURL, err)
		}
		doc = fetched
		e.robotsCache.Add(docURL, doc)
	}
	return robots.Evaluate(robots.Parse(doc), e.cfg.UserAgent, rawURL), nil
}

func (e *Engine) navigate(ctx context.Context, session Session, rawURL string) (string, error) {
	ctx, end := e.stage(ctx, "navigate")
	defer end()
	finalURL, err := session.Navigate(ctx, rawURL)
	if err != nil {
		return "", err
	}
	if finalURL == "" {
		finalURL = rawURL
	}
	return finalURL, nil
}

func (e *Engine) settle(ctx context.Context) error {
	ctx, end := e.stage(ctx, "settle")
	defer end()
	return e.clock.Sleep(ctx, e.cfg.SettleDelay)
}

func (e *Engine) extract(ctx context.Context, session Session) ([]string, error) {
	ctx, end := e.stage(ctx, "extract")
	defer end()
	return session.ExtractText(ctx)
}

// clean normalizes each fragment, drops the ones left empty, removes repeated
// sentences within a fragment and then repeated fragments.
func clean(fragments []string) []string {
	cleaned := make([]string, 0, len(fragments))
	for _, fragment := range fragments {
		text := textclean.Normalize(fragment)
		if text == "" {
			continue
		}
		cleaned = append(cleaned, textclean.DedupeSentences(text))
	}
	return textclean.DedupeFragments(cleaned)
}

func (e *Engine) filter(ctx context.Context, dicts *dictionary.Dictionaries, fragments []string) ([]string, error) {
	ctx, end := e.stage(ctx, "filter")
	defer end()

	redactor := NewRedactor(dicts, e.cfg.RedactionMarker, e.cfg.MinPrefixLength)
	out := make([]string, len(fragments))
	var redactions atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.FilterConcurrency)
	for i, fragment := range fragments {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			text, n := redactor.Redact(fragment)
			out[i] = text
			redactions.Add(int64(n))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	metrics.AddRedactions(int(redactions.Load()))
	return out, nil
}

// stage opens a child span and returns a func that records its duration.
func (e *Engine) stage(ctx context.Context, name string) (context.Context, func()) {
	start := e.clock.Now()
	ctx, span := e.tracer.Start(ctx, name)
	return ctx, func() {
		metrics.ObserveStage(name, e.clock.Now().Sub(start))
		span.End()
	}
}

func (e *Engine) finish(span trace.Span, rawURL string, start time.Time, result Result, err error) {
	defer span.End()
	outcome := result.Outcome
	if err != nil {
		outcome = OutcomeFailed
	}
	metrics.ObserveScrape(string(outcome))
	span.SetAttributes(attribute.String("outcome", string(outcome)))

	fields := []zap.Field{
		zap.String("url", rawURL),
		zap.String("outcome", string(outcome)),
		zap.Duration("duration", e.clock.Now().Sub(start)),
	}
	if result.FinalURL != "" && result.FinalURL != rawURL {
		fields = append(fields, zap.String("final_url", result.FinalURL))
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if stage, ok := StageOf(err); ok {
			fields = append(fields, zap.String("stage", string(stage)))
		}
		e.logger.Error("Scrape failed", append(fields, zap.Error(err))...)
		return
	}

	switch outcome {
	case OutcomeDisallowed:
		fields = append(fields, zap.String("reason", result.DisallowReason))
	case OutcomeDone:
		fields = append(fields,
			zap.Int("fragments", len(result.FilteredTexts)),
			zap.Bool("contains_censored", result.ContainsCensored),
		)
	}
	e.logger.Info("Scrape finished", fields...)
}
