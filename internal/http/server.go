// Package http serves the JSON API over the cycle and expense services.
package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"spendwise/internal/cache"
	"spendwise/internal/log"
	"spendwise/internal/middleware/ratelimit"
	"spendwise/internal/middleware/security"
	"spendwise/internal/middleware/trace"
	"spendwise/internal/services"
)

// Deps are the collaborators the API needs.
type Deps struct {
	Cycles   *services.CycleService
	Expenses *services.ExpenseService
	// Tools serves the assistant endpoint; nil leaves it unmounted.
	Tools http.Handler
	// Ready reports whether backing stores are reachable; nil means always ready.
	Ready func(ctx context.Context) error
	// CacheManager, when set, is started with the server and stopped on shutdown.
	CacheManager *cache.Manager
	Logger       *log.Logger
	RateLimitRPM int
	HistoryCount int
}

type Server struct {
	http.Server
	cycles       *services.CycleService
	expenses     *services.ExpenseService
	ready        func(ctx context.Context) error
	logger       *log.Logger
	limiter      *ratelimit.Limiter
	detector     *security.Detector
	tracer       *trace.Middleware
	cacheManager *cache.Manager
	historyCount int

	shutdownOnce sync.Once
}

func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	historyCount := deps.HistoryCount
	if historyCount <= 0 {
		historyCount = 6
	}

	s := &Server{
		cycles:       deps.Cycles,
		expenses:     deps.Expenses,
		ready:        deps.Ready,
		logger:       logger.WithComponent(log.ComponentHTTP),
		limiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitRPM}),
		detector:     security.NewDetector(),
		cacheManager: deps.CacheManager,
		historyCount: historyCount,
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	r := mux.NewRouter()
	r.Use(s.tracer.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.flagSuspicious)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	limit := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
	})
	// API routes hang off the root router with full paths. Routes on a path
	// prefix subrouter all match the prefix, which clears a method mismatch
	// recorded by an earlier sibling and turns the 405 into a 404.
	api := func(path string, h http.Handler, methods ...string) {
		r.Handle("/api"+path, limit(h)).Methods(methods...)
	}

	api("/settings", http.HandlerFunc(s.handleGetSettings), http.MethodGet)
	api("/settings", http.HandlerFunc(s.handleUpdateSettings), http.MethodPut)
	api("/categories", http.HandlerFunc(s.handleListCategories), http.MethodGet)

	api("/expenses", http.HandlerFunc(s.handleListExpenses), http.MethodGet)
	api("/expenses", http.HandlerFunc(s.handleCreateExpenses), http.MethodPost)
	api("/expenses/{id}", http.HandlerFunc(s.handleUpdateExpense), http.MethodPut)
	api("/expenses/{id}", http.HandlerFunc(s.handleDeleteExpense), http.MethodDelete)

	api("/cycles", http.HandlerFunc(s.handleCycleHistory), http.MethodGet)
	api("/cycles/current", http.HandlerFunc(s.handleCurrentCycle), http.MethodGet)
	api("/cycles/{id}", http.HandlerFunc(s.handleCycle), http.MethodGet)
	api("/cycles/{id}/compare", http.HandlerFunc(s.handleCompareCycles), http.MethodGet)
	api("/budget", http.HandlerFunc(s.handleBudget), http.MethodGet)

	if deps.Tools != nil {
		api("/mcp", deps.Tools, http.MethodGet, http.MethodPost)
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	if s.cacheManager != nil {
		s.cacheManager.StartCleanup(time.Minute)
	}
	return s
}

// Shutdown stops background cleanup and drains the HTTP server. It is safe to
// call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.cacheManager != nil {
			s.cacheManager.Stop()
		}
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// ListenAndServe treats http.ErrServerClosed as a clean stop.
func (s *Server) ListenAndServe() error {
	if err := s.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) flagSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
				log.FieldClientIP, s.detector.ExtractClientIP(r),
				log.FieldPath, r.URL.Path)
		}
		next.ServeHTTP(w, r)
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			writeError(w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
