package httpx

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hackday/teamportal/internal/domain"
	"github.com/hackday/teamportal/internal/service/redirect"
	"github.com/hackday/teamportal/internal/service/session"
	"github.com/hackday/teamportal/internal/service/submission"
	"github.com/hackday/teamportal/internal/service/team"
	"github.com/hackday/teamportal/internal/ws"
)

// Router wires HTTP endpoints to services.
type Router struct {
	mux         *http.ServeMux
	logger      *slog.Logger
	session     session.Service
	teams       team.Service
	submissions submission.Service
	redirects   redirect.Service
	hub         *ws.Hub
	upgrader    websocket.Upgrader
	limiter     RateLimiter
	storeHealth func(context.Context) error

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
}

const (
	rateWindowDefault  = time.Minute
	rateWindowRealtime = 30 * time.Second
	rateLimitLogin     = 12
	rateLimitUserWrite = 60
	rateLimitUserRead  = 120
	rateLimitResolve   = 300
	rateLimitWebsocket = 30
	healthCheckTimeout = 2 * time.Second
)

// NewRouter assembles routes with dependencies. storeHealth may be nil when
// the backing store has no connectivity to report.
func NewRouter(logger *slog.Logger, sessionSvc session.Service, teamSvc team.Service, submissionSvc submission.Service, redirectSvc redirect.Service, hub *ws.Hub, limiter RateLimiter, storeHealth func(context.Context) error) *Router {
	r := &Router{
		mux:         http.NewServeMux(),
		logger:      logger,
		session:     sessionSvc,
		teams:       teamSvc,
		submissions: submissionSvc,
		redirects:   redirectSvc,
		hub:         hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiter:     limiter,
		storeHealth: storeHealth,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	r.initMetrics()
	r.register()
	return r
}

// ServeHTTP delegates to the underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.HandleFunc("/healthz", r.audit("/healthz", r.handleHealthz))
	r.mux.Handle("/metrics", promhttp.Handler())
	r.mux.HandleFunc("/auth/login", r.audit("/auth/login", r.withRateLimit("/auth/login", rateLimitLogin, rateWindowDefault, rateLimitKeyIP, r.handleLogin)))
	r.mux.HandleFunc("/auth/logout", r.audit("/auth/logout", r.handleLogout))
	r.mux.HandleFunc("/auth/me", r.audit("/auth/me", r.handleMe))
	r.mux.HandleFunc("/teams", r.audit("/teams", r.handlerAuthRate("/teams", rateLimitUserWrite, rateWindowDefault, r.handleTeams)))
	r.mux.HandleFunc("/teams/", r.audit("/teams/", r.handlerAuthRate("/teams/", rateLimitUserWrite, rateWindowDefault, r.handleTeamSubroutes)))
	r.mux.HandleFunc("/submissions", r.audit("/submissions", r.handlerAuthRate("/submissions", rateLimitUserWrite, rateWindowDefault, r.handleSubmissions)))
	r.mux.HandleFunc("/redirects", r.audit("/redirects", r.handlerAuthRate("/redirects", rateLimitUserWrite, rateWindowDefault, r.handleRedirects)))
	r.mux.HandleFunc("/redirects/", r.audit("/redirects/", r.handlerAuthRate("/redirects/", rateLimitUserRead, rateWindowDefault, r.handleRedirectSubroutes)))
	r.mux.HandleFunc("/go/", r.audit("/go/", r.withRateLimit("/go/", rateLimitResolve, rateWindowDefault, rateLimitKeyIP, r.handleResolve)))
	r.mux.HandleFunc("/ws/clicks", r.audit("/ws/clicks", r.handlerAuthRate("/ws/clicks", rateLimitWebsocket, rateWindowRealtime, r.handleClicksWS)))
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, token, err := r.session.Login(req.Context(), payload.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":  user,
		"token": token,
	})
}

func (r *Router) handleLogout(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	if err := r.session.Logout(req.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) handleMe(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	user, err := r.session.CurrentUser(req.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "no active session")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (r *Router) handleTeams(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing for team creation", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	created, err := r.teams.Create(req.Context(), payload.Name, info.user())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (r *Router) handleTeamSubroutes(w http.ResponseWriter, req *http.Request) {
	trimmed := strings.TrimPrefix(req.URL.Path, "/teams/")
	parts := strings.Split(trimmed, "/")
	teamID := parts[0]
	if teamID == "" {
		r.notFound(w)
		return
	}
	switch {
	case len(parts) == 1:
		if req.Method != http.MethodGet {
			r.methodNotAllowed(w)
			return
		}
		found, err := r.teams.Get(req.Context(), teamID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, found)
	case len(parts) == 2 && parts[1] == "members":
		r.handleTeamMembers(w, req, teamID)
	case len(parts) == 2 && parts[1] == "submissions":
		if req.Method != http.MethodGet {
			r.methodNotAllowed(w)
			return
		}
		list, err := r.submissions.ListByTeam(req.Context(), teamID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if list == nil {
			list = []domain.Submission{}
		}
		writeJSON(w, http.StatusOK, list)
	default:
		r.notFound(w)
	}
}

func (r *Router) handleTeamMembers(w http.ResponseWriter, req *http.Request, teamID string) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(payload.Email) == "" || strings.TrimSpace(payload.Name) == "" {
		writeError(w, http.StatusBadRequest, "email and name are required")
		return
	}
	updated, err := r.teams.AddMember(req.Context(), teamID, payload.Email, payload.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (r *Router) handleSubmissions(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload submission.SubmitInput
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	created, err := r.submissions.Submit(req.Context(), payload)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (r *Router) handleRedirects(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		teamID := strings.TrimSpace(req.URL.Query().Get("team_id"))
		if teamID == "" {
			writeError(w, http.StatusBadRequest, "team_id query parameter required")
			return
		}
		links, err := r.redirects.List(req.Context(), teamID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if links == nil {
			links = []domain.RedirectLink{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"links":     links,
			"quota":     redirect.MaxPerTeam,
			"remaining": redirect.MaxPerTeam - len(links),
		})
	case http.MethodPost:
		var payload struct {
			TeamID  string `json:"team_id"`
			Keyword string `json:"keyword"`
			URL     string `json:"url"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		payload.Keyword = strings.TrimSpace(payload.Keyword)
		if payload.TeamID == "" || payload.Keyword == "" || strings.TrimSpace(payload.URL) == "" {
			writeError(w, http.StatusBadRequest, "team_id, keyword and url are required")
			return
		}
		link, err := r.redirects.Add(req.Context(), payload.TeamID, payload.Keyword, payload.URL)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, link)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleRedirectSubroutes(w http.ResponseWriter, req *http.Request) {
	trimmed := strings.TrimPrefix(req.URL.Path, "/redirects/")
	if trimmed == "" || strings.Contains(trimmed, "/") {
		r.notFound(w)
		return
	}
	if trimmed == "stats" {
		if req.Method != http.MethodGet {
			r.methodNotAllowed(w)
			return
		}
		teamID := strings.TrimSpace(req.URL.Query().Get("team_id"))
		if teamID == "" {
			writeError(w, http.StatusBadRequest, "team_id query parameter required")
			return
		}
		stats, err := r.redirects.Stats(req.Context(), teamID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, stats)
		return
	}
	if req.Method != http.MethodDelete {
		r.methodNotAllowed(w)
		return
	}
	if err := r.redirects.Delete(req.Context(), trimmed); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleResolve is the server-side counterpart of the original go/<keyword>
// fragment routing: hit redirects the browser, miss renders an error body.
func (r *Router) handleResolve(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	keyword := strings.TrimPrefix(req.URL.Path, "/go/")
	if keyword == "" || strings.Contains(keyword, "/") {
		r.notFound(w)
		return
	}
	target, err := r.redirects.Resolve(req.Context(), keyword)
	if err != nil {
		if errors.Is(err, redirect.ErrKeywordNotFound) {
			writeError(w, http.StatusNotFound, "keyword not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	http.Redirect(w, req, target, http.StatusFound)
}

func (r *Router) handleClicksWS(w http.ResponseWriter, req *http.Request) {
	if _, ok := authInfoFromContext(req.Context()); !ok {
		r.logger.Error("auth context missing for clicks websocket", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	teamID := req.URL.Query().Get("team_id")
	if teamID == "" {
		writeError(w, http.StatusBadRequest, "team_id query parameter required")
		return
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(conn, r.logger)
	r.hub.Register(teamID, client)
	go func() {
		defer func() {
			r.hub.Unregister(teamID, client)
			client.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	components := make(map[string]any)
	status := "ok"
	if r.storeHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.storeHealth(ctx); err != nil {
			status = "degraded"
			components["store"] = map[string]any{"status": "down", "error": err.Error()}
		} else {
			components["store"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func (r *Router) notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not found")
}

// audit wraps a handler with access logging and request metrics.
func (r *Router) audit(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		r.recordRequestMetrics(req.Method, route, status, duration)

		actor := "anonymous"
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if info, ok := authInfoFromContext(ctx); ok {
			actor = "user"
			fields = append(fields, "user_id", info.UserID)
			if info.TeamID != "" {
				fields = append(fields, "team_id", info.TeamID)
			}
		}
		fields = append(fields, "actor", actor)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}
