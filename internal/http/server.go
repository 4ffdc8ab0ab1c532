package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"casinoboys/internal/auth"
	"casinoboys/internal/backend"
	"casinoboys/internal/cache"
	"casinoboys/internal/core"
	applog "casinoboys/internal/log"
	"casinoboys/internal/stats"
	appweb "casinoboys/web"
)

type contextKey string

const userIDContextKey contextKey = "user_id"

type Server struct {
	http.Server
	templates   *template.Template
	backend     backend.Backend
	auth        *auth.Manager
	avatarDir   string
	rateLimiter *rateLimiter
	httpLog     *applog.StructuredLogger

	// Per-user read caches, invalidated on every write for that user.
	summaryCache     *cache.LRUCache[stats.Summary]
	leaderboardCache *cache.LRUCache[[]stats.Player]
	cacheManager     *cache.Manager

	shutdownOnce sync.Once
}

// Simple in-memory rate limiter
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes.
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		if rl.stopCleanup != nil {
			close(rl.stopCleanup)
		}
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 60 requests per minute
	client.requests++
	client.lastRequest = now

	return client.requests <= 60
}

// NewServer configures routes and templates, returning a ready-to-run
// http.Server.
func NewServer(addr string, b backend.Backend, authMgr *auth.Manager, avatarDir string) *Server {
	mux := http.NewServeMux()

	logCfg := applog.DefaultConfig()
	logCfg.Component = applog.ComponentHTTP
	httpLogger := applog.New(logCfg)

	// Request-scoped logger with the request ID attached, retrievable via
	// applog.FromContext anywhere below.
	root := applog.Middleware(httpLogger)(
		applog.RequestIDMiddleware(func(*http.Request) string { return generateRequestID() })(mux))

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: root,
		},
		backend:          b,
		auth:             authMgr,
		avatarDir:        avatarDir,
		rateLimiter:      newRateLimiter(),
		httpLog:          applog.NewStructuredLogger(httpLogger),
		summaryCache:     cache.NewLRUCache[stats.Summary](200, 2*time.Minute),
		leaderboardCache: cache.NewLRUCache[[]stats.Player](100, 2*time.Minute),
		cacheManager:     cache.NewManager(),
	}

	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.Register(s.leaderboardCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	// Parse embedded templates at startup.
	t, err := template.New("").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	// Uploaded avatars are served from disk.
	if avatarDir != "" {
		mux.Handle("GET /avatars/", http.StripPrefix("/avatars/", http.FileServer(http.Dir(avatarDir))))
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /login", s.withSecurityHeaders(s.handleLoginPage))
	mux.HandleFunc("POST /login", s.withSecurityHeaders(s.handleLogin))
	mux.HandleFunc("GET /register", s.withSecurityHeaders(s.handleRegisterPage))
	mux.HandleFunc("POST /register", s.withSecurityHeaders(s.handleRegister))
	mux.HandleFunc("POST /logout", s.withSecurityHeaders(s.handleLogout))

	mux.HandleFunc("GET /{$}", s.withSecurityHeaders(s.requireAuth(s.handleDashboard)))
	mux.HandleFunc("GET /sessions", s.withSecurityHeaders(s.requireAuth(s.handleSessions)))
	mux.HandleFunc("POST /sessions", s.withSecurityHeaders(s.requireAuth(s.handleCreateSession)))
	mux.HandleFunc("GET /sessions/{id}", s.withSecurityHeaders(s.requireAuth(s.handleSessionDetail)))

	mux.HandleFunc("POST /transactions", s.withSecurityHeaders(s.requireAuth(s.handleCreateTransaction)))
	mux.HandleFunc("POST /transactions/{id}/delete", s.withSecurityHeaders(s.requireAuth(s.handleDeleteTransaction)))

	mux.HandleFunc("GET /calendar", s.withSecurityHeaders(s.requireAuth(s.handleCalendar)))

	mux.HandleFunc("POST /budgets", s.withSecurityHeaders(s.requireAuth(s.handleCreateBudget)))
	mux.HandleFunc("POST /budgets/{id}/delete", s.withSecurityHeaders(s.requireAuth(s.handleDeleteBudget)))

	mux.HandleFunc("GET /settings", s.withSecurityHeaders(s.requireAuth(s.handleSettings)))
	mux.HandleFunc("POST /settings/profile", s.withSecurityHeaders(s.requireAuth(s.handleUpdateProfile)))
	mux.HandleFunc("POST /settings/avatar", s.withSecurityHeaders(s.requireAuth(s.handleUploadAvatar)))
	mux.HandleFunc("POST /settings/theme", s.withSecurityHeaders(s.requireAuth(s.handleSetTheme)))

	return s
}

// Shutdown stops the server and its background routines exactly once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request
// logging.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		ctx := r.Context()
		s.httpLog.LogHTTPStart(ctx, r, clientIP)

		// Rate limit mutating requests.
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			applog.FromContext(ctx).WarnContext(ctx, "Rate limit exceeded",
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
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com 'unsafe-eval'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.httpLog.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	}
}

// requireAuth resolves the session cookie to a user ID, redirecting
// anonymous requests to the login page.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(auth.CookieName)
		if err != nil {
			s.redirectToLogin(w, r)
			return
		}
		claims, err := s.auth.ParseToken(c.Value)
		if err != nil {
			s.clearSessionCookie(w)
			s.redirectToLogin(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), userIDContextKey, claims.Subject)
		next(w, r.WithContext(ctx))
	}
}

func (s *Server) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	if isHTMX(r) {
		// A redirect inside a partial swap would splice the login page
		// into the DOM; tell HTMX to navigate instead.
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.auth.TTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// userID extracts the authenticated user from the request context.
func userID(r *http.Request) string {
	id, _ := r.Context().Value(userIDContextKey).(string)
	return id
}

// currentProfile loads the authenticated user's profile; a missing row
// (deleted account with a live cookie) is reported as not found.
func (s *Server) currentProfile(r *http.Request) (core.Profile, error) {
	return s.backend.GetProfile(r.Context(), userID(r))
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// render executes a template into the response, logging failures.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded",
			applog.FieldPath, r.URL.Path,
			applog.FieldComponent, applog.ComponentTemplate)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			applog.FieldError, err.Error(),
			applog.FieldComponent, applog.ComponentTemplate,
			"template", name)
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"dollars": formatDollars,
		"dateKey": core.DateKey,
	}
}

// invalidateUserCaches drops the cached aggregates after any write that
// touches this user's transactions.
func (s *Server) invalidateUserCaches(uid, sessionID string) {
	s.summaryCache.Delete(uid)
	if sessionID != "" {
		s.leaderboardCache.Delete(sessionID)
	}
}

// userSummary returns the cached dashboard summary, computing it on miss.
func (s *Server) userSummary(ctx context.Context, uid string) (stats.Summary, []core.Transaction, error) {
	txs, err := s.backend.ListTransactionsByUser(ctx, uid)
	if err != nil {
		return stats.Summary{}, nil, err
	}
	if cached, found := s.summaryCache.Get(uid); found {
		return cached, txs, nil
	}
	summary := stats.Summarize(txs)
	s.summaryCache.Set(uid, summary)
	return summary, txs, nil
}

// sessionLeaderboard returns the cached leaderboard for a session.
func (s *Server) sessionLeaderboard(ctx context.Context, sessionID string) ([]stats.Player, error) {
	if cached, found := s.leaderboardCache.Get(sessionID); found {
		result := make([]stats.Player, len(cached))
		copy(result, cached)
		return result, nil
	}

	txs, err := s.backend.ListTransactionsBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	profiles, err := s.profileIndex(ctx)
	if err != nil {
		return nil, err
	}
	players := stats.BuildLeaderboard(txs, profiles)
	s.leaderboardCache.Set(sessionID, players)
	return players, nil
}

func (s *Server) profileIndex(ctx context.Context) (map[string]core.Profile, error) {
	profiles, err := s.backend.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[string]core.Profile, len(profiles))
	for _, p := range profiles {
		index[p.ID] = p
	}
	return index, nil
}

// writeOrRedirect answers HTMX requests with the partial response and
// full-page form posts with a redirect.
func (s *Server) writeOrRedirect(w http.ResponseWriter, r *http.Request, resp *HTMXResponseBuilder, location string) {
	if isHTMX(r) {
		resp.Write(w)
		return
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}
