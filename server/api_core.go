package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

type api struct {
	store Store
	cfg   Config
	log   *slog.Logger
	bus   *EventBus
	// rate limiting buckets per IP:key
	rlMu sync.Mutex
	rl   map[string]*rateBucket
	// dev password reset tokens (in-memory)
	prMu  sync.Mutex
	prTok map[string]resetReq
}

func newAPI(store Store, cfg Config, log *slog.Logger) *api {
	return &api{store: store, cfg: cfg, log: log, bus: NewEventBus(), rl: map[string]*rateBucket{}, prTok: map[string]resetReq{}}
}

type rateBucket struct {
	count   int
	resetAt time.Time
}

func (a *api) allow(ip, key string, max int, window time.Duration) bool {
	now := time.Now()
	rk := ip + ":" + key
	a.rlMu.Lock()
	b, ok := a.rl[rk]
	if !ok || now.After(b.resetAt) {
		b = &rateBucket{count: 0, resetAt: now.Add(window)}
		a.rl[rk] = b
	}
	if b.count >= max {
		a.rlMu.Unlock()
		return false
	}
	b.count++
	a.rlMu.Unlock()
	return true
}

func (a *api) withRateLimit(name string, max int, window time.Duration, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if !a.allow(ip, name, max, window) {
			writeError(w, 429, "too many requests")
			return
		}
		next(w, r)
	}
}

type resetReq struct {
	Email     string
	ExpiresAt time.Time
}

func (a *api) putResetToken(email, token string, ttl time.Duration) {
	a.prMu.Lock()
	defer a.prMu.Unlock()
	a.prTok[token] = resetReq{Email: email, ExpiresAt: time.Now().Add(ttl)}
}

func (a *api) takeResetToken(token string) (string, bool) {
	a.prMu.Lock()
	defer a.prMu.Unlock()
	req, ok := a.prTok[token]
	if !ok {
		return "", false
	}
	delete(a.prTok, token)
	if time.Now().After(req.ExpiresAt) {
		return "", false
	}
	return req.Email, true
}

// parseDate validates the YYYY-MM-DD route/date parameter. Dates are
// string-keyed throughout, so this is the only place format is checked.
func parseDate(s string) (string, bool) {
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return "", false
	}
	return s, true
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, r.Body)
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": msg})
}

// cookie/session helpers
func (a *api) sameSite() http.SameSite {
	switch strings.ToLower(a.cfg.CookieSameSite) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func (a *api) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.cfg.SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.cfg.CookieSecure,
		SameSite: a.sameSite(),
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
	})
}

func (a *api) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.cfg.SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   a.cfg.CookieSecure,
		SameSite: a.sameSite(),
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

func (a *api) currentUser(r *http.Request) (*User, error) {
	c, err := r.Cookie(a.cfg.SessionCookieName)
	if err != nil || c.Value == "" {
		return nil, ErrNotFound
	}
	u, err := a.store.UserBySession(r.Context(), c.Value)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// requireAuth wraps a handler and enforces a valid session
func (a *api) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := a.currentUser(r); err != nil {
			writeError(w, 401, "unauthorized")
			return
		}
		next(w, r)
	}
}

func withLogging(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: 200}
		start := time.Now()
		next.ServeHTTP(sw, r)
		log.Info("http", "method", r.Method, "path", r.URL.Path, "status", sw.status, "dur_ms", time.Since(start).Milliseconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) { w.status = code; w.ResponseWriter.WriteHeader(code) }

// Implement http.Flusher if underlying writer supports it (needed for SSE)
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (a *api) routes(mux *http.ServeMux) {
	// Auth endpoints
	mux.HandleFunc("POST /api/auth/register", a.withRateLimit("auth", 20, time.Minute, a.handleRegister))
	mux.HandleFunc("POST /api/auth/login", a.withRateLimit("auth", 30, time.Minute, a.handleLogin))
	mux.HandleFunc("POST /api/auth/logout", a.handleLogout)
	mux.HandleFunc("GET /api/auth/me", a.handleMe)
	mux.HandleFunc("GET /api/auth/providers", a.handleAuthProviders)
	mux.HandleFunc("GET /api/auth/oauth/github/start", a.handleGithubStart)
	mux.HandleFunc("GET /api/auth/oauth/github/callback", a.handleGithubCallback)
	mux.HandleFunc("POST /api/auth/reset", a.withRateLimit("auth_reset", 10, time.Minute, a.handleResetRequest))
	mux.HandleFunc("POST /api/auth/reset/confirm", a.withRateLimit("auth_reset", 20, time.Minute, a.handleResetConfirm))
	mux.HandleFunc("PATCH /api/me", a.requireAuth(a.handleUpdateMe))

	mux.HandleFunc("GET /api/health", a.handleHealth)

	// Daily habit board
	mux.HandleFunc("GET /api/days/{date}/habits", a.requireAuth(a.handleHabitsByDate))
	mux.HandleFunc("POST /api/days/{date}/habits", a.requireAuth(a.handleCreateHabit))
	mux.HandleFunc("PATCH /api/habits/{id}", a.requireAuth(a.handleUpdateHabit))
	mux.HandleFunc("DELETE /api/habits/{id}", a.requireAuth(a.handleDeleteHabit))
	mux.HandleFunc("POST /api/habits/{id}/move", a.requireAuth(a.handleMoveHabit))

	// Task kanban
	mux.HandleFunc("GET /api/days/{date}/tasks", a.requireAuth(a.handleTasksByDate))
	mux.HandleFunc("POST /api/days/{date}/tasks", a.requireAuth(a.handleCreateTask))
	mux.HandleFunc("PATCH /api/tasks/{id}", a.requireAuth(a.handleUpdateTask))
	mux.HandleFunc("DELETE /api/tasks/{id}", a.requireAuth(a.handleDeleteTask))
	mux.HandleFunc("POST /api/tasks/{id}/move", a.requireAuth(a.handleMoveTask))

	// Daily note
	mux.HandleFunc("GET /api/days/{date}/note", a.requireAuth(a.handleGetNote))
	mux.HandleFunc("PUT /api/days/{date}/note", a.requireAuth(a.handleSaveNote))

	// History, analytics, offline sync, live events
	mux.HandleFunc("GET /api/history", a.requireAuth(a.handleHistory))
	mux.HandleFunc("GET /api/analytics/summary", a.requireAuth(a.handleAnalyticsSummary))
	mux.HandleFunc("GET /api/quote", a.handleQuote)
	mux.HandleFunc("POST /api/sync", a.requireAuth(a.handleSync))
	mux.HandleFunc("GET /api/days/{date}/events", a.requireAuth(a.handleDayEvents))
}
