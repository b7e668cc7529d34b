package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/safescrape/internal/id/uuid"
	"github.com/JakeFAU/safescrape/internal/logging"
	"github.com/JakeFAU/safescrape/internal/metrics"
	"github.com/JakeFAU/safescrape/internal/policy/ratelimit"
	"github.com/JakeFAU/safescrape/internal/scrape"
)

const (
	corsAllowMethods = "GET, OPTIONS"
	corsAllowHeaders = "Content-Type, Authorization"
)

// Scraper runs one scrape for a URL.
type Scraper interface {
	Scrape(ctx context.Context, rawURL string) (scrape.Result, error)
}

// ReadinessChecker reports whether the block-lists are loaded.
type ReadinessChecker interface {
	Loaded() bool
}

// IDGenerator mints request ids.
type IDGenerator interface {
	NewID() (string, error)
}

// Options tunes the transport around the scraper.
type Options struct {
	RequestTimeout time.Duration
	AllowedOrigins []string
	Limiter        *ratelimit.Limiter
	// IDs defaults to UUIDv7 generation.
	IDs IDGenerator
}

// Server wires HTTP handlers to the scrape engine.
type Server struct {
	router  chi.Router
	scraper Scraper
	ready   ReadinessChecker
	opts    Options
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(scraper Scraper, ready ReadinessChecker, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.IDs == nil {
		opts.IDs = uuid.New()
	}
	s := &Server{
		scraper: scraper,
		ready:   ready,
		opts:    opts,
		logger:  logger.Named("api"),
	}
	r := chi.NewRouter()
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.corsMiddleware)
		r.Options("/scrape", s.preflight)
		r.Group(func(r chi.Router) {
			r.Use(s.rateLimitMiddleware)
			if opts.RequestTimeout > 0 {
				r.Use(timeoutMiddleware(opts.RequestTimeout))
			}
			r.Get("/scrape", s.scrape)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if s.ready == nil || !s.ready.Loaded() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "loading"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) preflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) scrape(w http.ResponseWriter, r *http.Request) {
	rawURL := strings.TrimSpace(r.URL.Query().Get("url"))
	if rawURL == "" {
		writeError(w, http.StatusBadRequest, "URL is required")
		return
	}

	result, err := s.scraper.Scrape(r.Context(), rawURL)
	if err != nil {
		logger := logging.FromContext(r.Context(), s.logger)
		if errors.Is(err, scrape.ErrInvalidURL) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(r.Context().Err(), context.DeadlineExceeded) {
			logger.Warn("scrape request timed out", zap.String("url", rawURL), zap.Error(err))
			writeError(w, http.StatusGatewayTimeout, "request timed out")
			return
		}
		stage, _ := scrape.StageOf(err)
		logger.Error("scrape request failed",
			zap.String("url", rawURL),
			zap.String("stage", string(stage)),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if result.Outcome == scrape.OutcomeDisallowed {
		writeError(w, http.StatusForbidden, result.DisallowReason)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if !uuid.Valid(reqID) {
			id, err := s.opts.IDs.NewID()
			if err != nil {
				s.logger.Error("generate request id", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "internal server error")
				return
			}
			reqID = id
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		ctx = logging.WithLogger(ctx, s.logger.With(zap.String("request_id", reqID)))
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		logging.FromContext(r.Context(), s.logger).Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logging.FromContext(r.Context(), s.logger).Error("panic recovered", zap.Any("error", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := s.allowedOrigin(r.Header.Get("Origin")); origin != "" {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", corsAllowMethods)
			h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
			if origin != "*" {
				h.Add("Vary", "Origin")
			}
		}
		next.ServeHTTP(w, r)
	})
}

// allowedOrigin returns the Access-Control-Allow-Origin value for origin, or
// "" when the origin is not allowed.
func (s *Server) allowedOrigin(origin string) string {
	if slices.Contains(s.opts.AllowedOrigins, "*") {
		return "*"
	}
	if origin != "" && slices.Contains(s.opts.AllowedOrigins, origin) {
		return origin
	}
	return ""
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, retryAfter := s.opts.Limiter.Allow(clientKey(r))
		if !ok {
			metrics.ObserveRateLimited()
			if retryAfter > 0 {
				secs := int((retryAfter + time.Second - 1) / time.Second)
				w.Header().Set("Retry-After", strconv.Itoa(secs))
			}
			writeError(w, http.StatusTooManyRequests, "too many requests, please try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// timeoutMiddleware bounds the request context. Handlers observe the deadline
// and write their own response.
func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (rw *statusRecorder) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

func (rw *statusRecorder) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

type requestIDKey struct{}

// RequestID returns the request id assigned by the server, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
