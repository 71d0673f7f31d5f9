// Package http exposes the expense tracker as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/i-dipanshu/project-raseed/internal/cache"
	"github.com/i-dipanshu/project-raseed/internal/log"
	"github.com/i-dipanshu/project-raseed/internal/services"
)

type Server struct {
	http.Server
	expenses *services.ExpenseService
	insights *services.InsightService
	logger   *log.Logger

	rateLimiter  *rateLimiter
	metrics      securityMetrics
	statsCache   *cache.LRUCache[services.DashboardStats]
	cacheManager *cache.Manager
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, expenses *services.ExpenseService, insights *services.InsightService, logger *log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		expenses:     expenses,
		insights:     insights,
		logger:       logger.WithComponent(log.ComponentHTTP),
		rateLimiter:  newRateLimiter(),
		statsCache:   cache.NewLRUCache[services.DashboardStats](500, time.Minute),
		cacheManager: cache.NewManager(),
	}

	s.cacheManager.Register(s.statsCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /health-check", s.handleHealth)

	mux.HandleFunc("POST /parse-expense", s.secured(s.handleParseExpense))
	mux.HandleFunc("GET /expenses", s.secured(s.handleListExpenses))
	mux.HandleFunc("GET /expenses/{id}/allocations", s.secured(s.handleAllocations))
	mux.HandleFunc("GET /shared-spaces", s.secured(s.handleSharedSpaces))
	mux.HandleFunc("GET /dashboard/stats", s.secured(s.handleDashboardStats))
	mux.HandleFunc("GET /budget", s.secured(s.handleGetBudget))
	mux.HandleFunc("POST /budget", s.secured(s.handleSetBudget))

	mux.HandleFunc("POST /insights", s.secured(s.handleGenerateInsight))
	mux.HandleFunc("POST /insights/generate", s.secured(s.handleGenerateInsight))
	mux.HandleFunc("GET /insights", s.secured(s.handleListInsights))
	mux.HandleFunc("DELETE /insights/{id}", s.secured(s.handleDeleteInsight))

	return s
}

// Shutdown stops the server and its background cleanup goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		if s.cacheManager != nil {
			s.cacheManager.Stop()
		}
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// secured adds request logging, rate limiting, and security headers around a
// handler.
func (s *Server) secured(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ip := clientIP(r, &s.metrics)

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		if detectSuspiciousRequest(r, &s.metrics) {
			s.logger.WarnContext(ctx, "Suspicious request",
				"request_id", requestID, "client_ip", ip,
				"method", r.Method, "url", r.URL.Path)
		}

		if r.Method == http.MethodPost && !s.rateLimiter.allow(ip, &s.metrics) {
			s.logger.WarnContext(ctx, "Rate limit exceeded",
				"request_id", requestID, "client_ip", ip, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.logger.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", ip)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
