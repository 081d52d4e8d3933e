// Package router wraps chi with the request log and server lifecycle used by
// the selector API.
package router

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// --- ANSI color codes ---
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
)

// Router is a chi mux with a zap request log.
type Router struct {
	mux    *chi.Mux
	logger *zap.Logger
	color  bool
	routes []string // "METHOD PATH", in registration order

	shutdownTimeout time.Duration
}

// Option configures a Router.
type Option func(*Router)

// WithColor colours the request log line for terminal output.
func WithColor(enabled bool) Option {
	return func(r *Router) { r.color = enabled }
}

// WithShutdownTimeout bounds how long Start waits for in-flight requests.
func WithShutdownTimeout(d time.Duration) Option {
	return func(r *Router) { r.shutdownTimeout = d }
}

// New creates a Router. A nil logger discards the request log.
func New(logger *zap.Logger, opts ...Option) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Router{mux: chi.NewRouter(), logger: logger, shutdownTimeout: 5 * time.Second}
	for _, opt := range opts {
		opt(r)
	}
	r.mux.Use(middleware.Recoverer, r.logRequests)
	return r
}

// --- Register paths ---
func (r *Router) register(method, path string, handler http.HandlerFunc) {
	r.mux.Method(method, path, handler)
	r.routes = append(r.routes, method+" "+path)
}

// GET registers a read-only route. The API has no write routes.
func (r *Router) GET(path string, handler http.HandlerFunc) { r.register(http.MethodGet, path, handler) }

// Handle mounts a handler for every method under pattern, e.g. "/swagger/*".
func (r *Router) Handle(pattern string, handler http.Handler) {
	r.mux.Handle(pattern, handler)
	r.routes = append(r.routes, "* "+pattern)
}

// Routes lists the registered routes.
func (r *Router) Routes() []string {
	return append([]string(nil), r.routes...)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// --- Start server ---

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (r *Router) Start(ctx context.Context, addr string) error {
	g, gctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		BaseContext:       func(net.Listener) context.Context { return gctx },
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		r.logger.Info(fmt.Sprintf("Server started on %shttp://localhost%s%s", colorGreen, addr, colorReset), zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), r.shutdownTimeout)
		defer cancel()
		r.logger.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// --- Request log ---

func (r *Router) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(lrw, req)

		duration := time.Since(start)
		msg := fmt.Sprintf("%s %s %d", req.Method, req.URL.Path, lrw.statusCode)
		if r.color {
			msg = fmt.Sprintf("%s%s%s %s %s%d%s %s(%v)%s",
				methodColor(req.Method), req.Method, colorReset,
				req.URL.Path,
				statusColor(lrw.statusCode), lrw.statusCode, colorReset,
				colorBlue, duration, colorReset,
			)
		}
		r.logger.Info(msg,
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", lrw.statusCode),
			zap.Duration("duration", duration),
		)
	})
}

// --- Logging response writer to capture status codes ---
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

// --- Color helpers ---
func statusColor(code int) string {
	switch {
	case code >= 200 && code < 300:
		return colorGreen
	case code >= 300 && code < 400:
		return colorCyan
	case code >= 400 && code < 500:
		return colorYellow
	default:
		return colorRed
	}
}

func methodColor(method string) string {
	switch method {
	case http.MethodGet:
		return colorGreen
	case http.MethodPost:
		return colorBlue
	case http.MethodPut, http.MethodPatch:
		return colorYellow
	case http.MethodDelete:
		return colorRed
	default:
		return colorCyan
	}
}
