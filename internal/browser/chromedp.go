package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/safescrape/internal/scrape"
)

// Chromedp launches headless Chrome through the DevTools protocol.
type Chromedp struct {
	cfg         Config
	logger      *zap.Logger
	allocator   context.Context
	allocCancel context.CancelFunc
}

// NewChromedp prepares an allocator. No browser starts until Launch.
func NewChromedp(cfg Config, logger *zap.Logger) *Chromedp {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	if cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox, chromedp.Flag("disable-setuid-sandbox", true))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Chromedp{
		cfg:         cfg,
		logger:      logger,
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}
}

// Close cancels the allocator context, killing any browsers still running.
func (b *Chromedp) Close() {
	b.allocCancel()
}

// Launch starts a browser with one tab. Canceling ctx tears the browser down.
func (b *Chromedp) Launch(ctx context.Context) (scrape.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	browserCtx, cancel := chromedp.NewContext(b.allocator)
	stop := forwardCancel(ctx, cancel)
	if err := chromedp.Run(browserCtx); err != nil {
		stop()
		cancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	return &chromedpSession{ctx: browserCtx, cancel: cancel, stopForward: stop, logger: b.logger}, nil
}

type chromedpSession struct {
	ctx         context.Context
	cancel      context.CancelFunc
	stopForward func()
	logger      *zap.Logger
	closeOnce   sync.Once
	closeErr    error
}

func (s *chromedpSession) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return chromedp.Run(s.ctx, actions...)
}

func (s *chromedpSession) FetchDocument(ctx context.Context, url string) (string, error) {
	var body string
	err := s.run(ctx,
		chromedp.Navigate(url),
		chromedp.Evaluate(invoke(fetchDocumentFn), &body, awaitPromise),
	)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	return body, nil
}

// Navigate issues the navigation and returns once DOMContentLoaded fires,
// without waiting for the load event.
func (s *chromedpSession) Navigate(ctx context.Context, url string) (string, error) {
	lctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	domReady := make(chan struct{})
	var once sync.Once
	chromedp.ListenTarget(lctx, func(ev any) {
		if _, ok := ev.(*page.EventDomContentEventFired); ok {
			once.Do(func() { close(domReady) })
		}
	})

	var finalURL string
	err := s.run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, _, errorText, _, err := page.Navigate(url).Do(ctx)
			if err != nil {
				return err
			}
			if errorText != "" {
				return fmt.Errorf("page load error %s", errorText)
			}
			return nil
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			select {
			case <-domReady:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}),
		chromedp.Location(&finalURL),
	)
	if err != nil {
		return "", fmt.Errorf("navigate %s: %w", url, err)
	}
	return finalURL, nil
}

func (s *chromedpSession) ExtractText(ctx context.Context) ([]string, error) {
	var texts []string
	if err := s.run(ctx, chromedp.Evaluate(invoke(extractTextFn), &texts)); err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	return texts, nil
}

// Close shuts the browser down. Later calls return the first result.
func (s *chromedpSession) Close() error {
	s.closeOnce.Do(func() {
		s.stopForward()
		err := chromedp.Cancel(s.ctx)
		s.cancel()
		if err != nil && !errors.Is(err, context.Canceled) {
			s.closeErr = fmt.Errorf("close chrome: %w", err)
			s.logger.Debug("Browser close reported errors", zap.Error(err))
		}
	})
	return s.closeErr
}

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}
