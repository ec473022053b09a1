package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/boozedog/chronicle/internal/chronicle"
	"github.com/boozedog/chronicle/internal/config"
	"github.com/boozedog/chronicle/internal/web/handler"
	"github.com/boozedog/chronicle/internal/web/middleware"
	"github.com/boozedog/chronicle/internal/web/sse"
)

// Server is the read-only web viewer for a chronicle root.
type Server struct {
	store  *chronicle.Store
	cfg    config.WebConfig
	broker *sse.Broker
	srv    *http.Server
}

// Idle rate-limit buckets are dropped after clientIdle, checked every sweepEvery.
const (
	clientIdle = 5 * time.Minute
	sweepEvery = 3 * time.Minute
)

// NewServer creates a new web server.
func NewServer(store *chronicle.Store, cfg config.WebConfig) *Server {
	return &Server{
		store: store,
		cfg:   cfg,
	}
}

// Routes returns the viewer's handler with middleware applied.
func (s *Server) Routes(ctx context.Context) http.Handler {
	if s.broker == nil {
		s.broker = sse.NewBroker()
	}
	h := handler.New(s.store, s.broker)

	mux := http.NewServeMux()

	// Pages.
	mux.HandleFunc("GET /{$}", h.Index)
	mux.HandleFunc("GET /partials/events", h.PartialEvents)

	// JSON API.
	mux.HandleFunc("GET /api/chronicles", h.Chronicles)
	mux.HandleFunc("GET /api/events", h.APIEvents)
	mux.HandleFunc("GET /api/tail", h.APITail)
	mux.HandleFunc("GET /api/chain", h.APIChain)
	mux.HandleFunc("GET /api/verify", h.APIVerify)

	// SSE endpoint.
	mux.HandleFunc("GET /events", h.Events)

	limiter := middleware.NewLimiter(s.cfg.RateLimit, s.cfg.Burst, "/events")
	go limiter.Run(ctx, sweepEvery, clientIdle)

	return chain(mux, middleware.CORS(), middleware.ReadOnly(), limiter.Middleware)
}

// chain wraps h so the first middleware listed sees the request first.
func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// ListenAndServe starts the server and blocks until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	root := s.store.Root()
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create root dir: %w", err)
	}

	// Start SSE broker and file watcher.
	s.broker = sse.NewBroker()
	watcher, err := sse.NewWatcher(root, s.broker, sse.DefaultDebounce)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	s.srv = &http.Server{
		Addr:        fmt.Sprintf(":%d", s.cfg.Port),
		Handler:     s.Routes(ctx),
		ReadTimeout: 5 * time.Second,
		// WriteTimeout stays unset: /events is a long-lived stream.
		IdleTimeout: 120 * time.Second,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		slog.Info("shutting down web server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
	}()

	slog.Info("listening", "addr", fmt.Sprintf("http://localhost:%d", s.cfg.Port), "root", root)
	if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
