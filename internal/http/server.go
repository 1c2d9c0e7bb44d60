// Package http serves the spendbook UI: server-rendered pages with
// partial swaps for the ledger views.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"spendbook/internal/balance"
	"spendbook/internal/cache"
	"spendbook/internal/ledger"
	applog "spendbook/internal/log"
	"spendbook/internal/recorder"
	"spendbook/internal/stats"
	appweb "spendbook/web"
)

// postRequestsPerMinute bounds mutations per client IP; reads are not
// limited.
const postRequestsPerMinute = 60

type Server struct {
	http.Server
	templates *template.Template

	store   *ledger.Store
	rec     *recorder.Recorder
	tracker *balance.Tracker

	rateLimiter *rateLimiter

	// Derived-view caches, invalidated on every ledger mutation.
	seriesCache *cache.LRU[[]stats.DayTotal]
	chartCache  *cache.LRU[[]byte]
	cacheMgr    *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run
// server. cacheTTL bounds how stale the derived views may get when an
// invalidation is missed (another process writing the same store).
func NewServer(addr string, store *ledger.Store, rec *recorder.Recorder, tracker *balance.Tracker, cacheTTL time.Duration) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		store:       store,
		rec:         rec,
		tracker:     tracker,
		rateLimiter: newRateLimiter(postRequestsPerMinute),
		seriesCache: cache.NewLRU[[]stats.DayTotal](8, cacheTTL),
		chartCache:  cache.NewLRU[[]byte](16, cacheTTL),
		cacheMgr:    cache.NewManager(),
	}

	s.cacheMgr.Register(s.seriesCache)
	s.cacheMgr.Register(s.chartCache)
	s.cacheMgr.StartCleanup(10 * time.Minute)

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/", s.withSecurityHeaders(s.handleIndex))
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.HandleFunc("/items", s.withSecurityHeaders(s.handleAddItem))
	mux.HandleFunc("/items/delete", s.withSecurityHeaders(s.handleDeleteItem))
	mux.HandleFunc("/items/update", s.withSecurityHeaders(s.handleUpdateItem))

	mux.HandleFunc("/balance", s.withSecurityHeaders(s.handleSetBalance))
	mux.HandleFunc("/theme", s.withSecurityHeaders(s.handleSetTheme))
	mux.HandleFunc("/identify", s.withSecurityHeaders(s.handleIdentify))

	mux.HandleFunc("/shopping-list/add", s.withSecurityHeaders(s.handleShoppingAdd))
	mux.HandleFunc("/shopping-list/remove", s.withSecurityHeaders(s.handleShoppingRemove))

	// UI partials
	mux.HandleFunc("/ui/today", s.withSecurityHeaders(s.handleToday))
	mux.HandleFunc("/ui/history", s.withSecurityHeaders(s.handleHistory))
	mux.HandleFunc("/ui/dashboard", s.withSecurityHeaders(s.handleDashboard))
	mux.HandleFunc("/ui/shopping-list", s.withSecurityHeaders(s.handleShoppingList))

	mux.HandleFunc("/chart.png", s.withSecurityHeaders(s.handleChart))

	return s
}

// Shutdown stops the cleanup goroutines and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheMgr.Stop()
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request
// logging to responses.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldClientIP, clientIP,
			applog.FieldUserAgent, r.Header.Get("User-Agent"))

		// Rate limit mutations only; reads are cheap.
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com; style-src 'self' 'unsafe-inline'; img-src 'self' data:; media-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rw.statusCode,
			applog.FieldDuration, duration.Milliseconds(),
			applog.FieldClientIP, clientIP)
	}
}

type requestIDKey struct{}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady checks that the store answers before reporting ready.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.ReadBalance(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "Readiness check failed", "error", err)
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// invalidateViews drops every cached derived view. Called after each
// mutation so the next render recomputes from the store.
func (s *Server) invalidateViews() {
	for _, w := range []stats.Window{stats.WindowWeek, stats.WindowMonth, stats.WindowAll} {
		s.seriesCache.Delete(string(w))
		s.chartCache.Delete(string(w) + "/bar")
		s.chartCache.Delete(string(w) + "/pie")
	}
}

// getSeries returns the windowed daily-totals series, cached per window.
func (s *Server) getSeries(ctx context.Context, w stats.Window) ([]stats.DayTotal, error) {
	key := string(w)
	if series, found := s.seriesCache.Get(key); found {
		slog.DebugContext(ctx, "Series cache hit", "window", key)
		out := make([]stats.DayTotal, len(series))
		copy(out, series)
		return out, nil
	}

	l, err := s.store.ReadLedger(ctx)
	if err != nil {
		return nil, err
	}
	series := stats.FilterByWindow(stats.DailyTotals(l), w, time.Now())
	s.seriesCache.Set(key, series)
	slog.DebugContext(ctx, "Series cached", "window", key, "days", len(series))
	return series, nil
}
