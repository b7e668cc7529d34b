package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/JakeFAU/safescrape/internal/scrape"
)

// Rod launches Chrome through go-rod's launcher.
type Rod struct {
	cfg    Config
	logger *zap.Logger
}

// NewRod returns a rod driver. No browser starts until Launch.
func NewRod(cfg Config, logger *zap.Logger) *Rod {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Rod{cfg: cfg, logger: logger}
}

// Close is a no-op; every session owns its own process.
func (r *Rod) Close() {}

// Launch starts a browser process and opens a blank page.
func (r *Rod) Launch(ctx context.Context) (scrape.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l := launcher.New().
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		NoSandbox(r.cfg.NoSandbox).
		Leakless(true).
		Headless(true)
	if r.cfg.ExecPath != "" {
		l = l.Bin(r.cfg.ExecPath)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill() // Clean up launched process on connection failure
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}

	p, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, fmt.Errorf("opening page: %w", err)
	}
	if r.cfg.UserAgent != "" {
		if err := p.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: r.cfg.UserAgent}); err != nil {
			_ = browser.Close()
			l.Kill()
			return nil, fmt.Errorf("set user-agent: %w", err)
		}
	}

	return &rodSession{launcher: l, browser: browser, page: p, logger: r.logger}, nil
}

type rodSession struct {
	launcher  *launcher.Launcher
	browser   *rod.Browser
	page      *rod.Page
	logger    *zap.Logger
	closeOnce sync.Once
	closeErr  error
}

func (s *rodSession) FetchDocument(ctx context.Context, url string) (string, error) {
	p := s.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	res, err := p.Eval(fetchDocumentFn)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	return res.Value.Str(), nil
}

func (s *rodSession) Navigate(ctx context.Context, url string) (string, error) {
	p := s.page.Context(ctx)
	wait := p.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := p.Navigate(url); err != nil {
		return "", fmt.Errorf("navigate %s: %w", url, err)
	}
	wait()
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("navigate %s: %w", url, err)
	}
	info, err := p.Info()
	if err != nil {
		return "", fmt.Errorf("read location: %w", err)
	}
	return info.URL, nil
}

func (s *rodSession) ExtractText(ctx context.Context) ([]string, error) {
	res, err := s.page.Context(ctx).Eval(extractTextFn)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	var texts []string
	if err := res.Value.Unmarshal(&texts); err != nil {
		return nil, fmt.Errorf("decode extracted text: %w", err)
	}
	return texts, nil
}

// Close shuts the browser down and kills its process. Later calls return the
// first result.
func (s *rodSession) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if err := s.page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close page: %w", err))
		}
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
		s.launcher.Kill()
		s.closeErr = errors.Join(errs...)
		if s.closeErr != nil {
			s.logger.Debug("Browser close reported errors", zap.Error(s.closeErr))
		}
	})
	return s.closeErr
}
