// Package httpapi implements the HTTP API gateway for Ganda.
//
// Security:
//   - Optional API key authentication (constant-time comparison); with no
//     keys configured the API is open and a warning is logged at startup
//   - Request body size limits (default 1 MB)
//   - Per-session rate limiting via token bucket
//   - All exec requests logged with correlation IDs
//   - TLS expected via reverse proxy (not handled here)
package httpapi

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/jkaninda/ganda/internal/observability"
	"github.com/jkaninda/ganda/internal/ratelimit"
	"github.com/jkaninda/ganda/internal/sessions"
	"github.com/jkaninda/okapi"
)

const defaultMaxRequestSize = 1 << 20 // 1 MB

// defaultSessionID is used when a request names no session.
const defaultSessionID = "default"

// ErrorBody is the standard error response used in OpenAPI documentation.
type ErrorBody struct {
	Error string `json:"error"`
}

// Config configures the HTTP API gateway.
type Config struct {
	ListenAddr     string // e.g., ":8080"
	EnableDocs     bool
	APIKeys        map[string]string // API key → client label. Keys from env or config.
	MaxRequestSize int64             // Maximum request body in bytes. 0 = 1 MB default.

	// Observability
	MetricsRegistry *prometheus.Registry            // Custom Prometheus registry for /metrics.
	MetricsPath     string                          // Path for metrics endpoint. Default: "/metrics".
	HealthChecker   *observability.HealthChecker    // Health checker for /readyz.
	Metrics         *observability.MetricsCollector // Metrics collector for HTTP middleware.
	Tracer          trace.Tracer                    // OTel tracer for HTTP middleware.
}

// Gateway is the HTTP API gateway.
type Gateway struct {
	config  Config
	manager *sessions.Manager
	limiter *ratelimit.Limiter
	logger  *slog.Logger
	server  *http.Server

	// Extra handlers mounted on the HTTP mux (e.g., the WebSocket terminal endpoint).
	extraRoutes []extraRoute

	okapi *okapi.Okapi
	group *okapi.Group
}

// extraRoute stores an additional handler to be mounted on the HTTP mux.
type extraRoute struct {
	pattern string
	handler http.Handler
}

// NewGateway creates an HTTP API gateway.
func NewGateway(cfg Config, manager *sessions.Manager, rl *ratelimit.Limiter, logger *slog.Logger) *Gateway {
	return &Gateway{
		config:  cfg,
		manager: manager,
		limiter: rl,
		logger:  logger,
		okapi:   okapi.New(okapi.WithMaxMultipartMemory(defaultMaxRequestSize)),
	}
}

// WithOpenAPIDocs enables the OpenAPI documentation UI.
func (g *Gateway) WithOpenAPIDocs() *Gateway {
	g.okapi.WithOpenAPIDocs(
		okapi.OpenAPI{
			Title:   "Ganda",
			Version: "v0.1.0",
		},
	)
	return g
}

// WithHandler mounts an additional handler on the HTTP mux at the given pattern.
// Useful for serving the WebSocket terminal endpoint alongside the API routes.
func (g *Gateway) WithHandler(pattern string, handler http.Handler) *Gateway {
	g.extraRoutes = append(g.extraRoutes, extraRoute{pattern: pattern, handler: handler})
	return g
}

// Start launches the HTTP server and blocks until it exits or ctx is canceled.
func (g *Gateway) Start(ctx context.Context) error {
	// Metrics/tracing middleware (applied globally).
	if g.config.Metrics != nil || g.config.Tracer != nil {
		g.okapi.UseMiddleware(func(next http.Handler) http.Handler {
			return observability.HTTPMetricsMiddleware(g.config.Metrics, g.config.Tracer, next)
		})
	}

	if len(g.config.APIKeys) == 0 {
		g.logger.Warn("no API keys configured; HTTP API authentication is disabled")
	}

	// Authenticated /v1 group.
	g.group = g.okapi.Group("/v1", g.authenticate)

	g.group.Post("/exec", g.handleExec,
		okapi.DocSummary("Execute a command line in a session"),
		okapi.DocTags("Terminal"),
		okapi.DocRequestBody(ExecRequest{}),
		okapi.DocResponse(ExecResponse{}),
		okapi.DocResponse(http.StatusBadRequest, ErrorBody{}),
		okapi.DocResponse(http.StatusUnauthorized, ErrorBody{}),
		okapi.DocResponse(http.StatusTooManyRequests, ErrorBody{}),
	)
	g.group.Get("/sessions", g.handleSessionList,
		okapi.DocSummary("List live sessions"),
		okapi.DocTags("Sessions"),
		okapi.DocResponse([]SessionResponse{}),
	)
	g.group.Get("/sessions/{id}/history", g.handleSessionHistory,
		okapi.DocSummary("Get a session's command history"),
		okapi.DocTags("Sessions"),
		okapi.DocPathParam("id", "string", "Session ID"),
		okapi.DocResponse([]HistoryEntryResponse{}),
		okapi.DocResponse(http.StatusNotFound, ErrorBody{}),
	)
	g.group.Delete("/sessions/{id}", g.handleSessionDelete,
		okapi.DocSummary("Evict a session"),
		okapi.DocTags("Sessions"),
		okapi.DocPathParam("id", "string", "Session ID"),
		okapi.DocResponse(map[string]string{}),
		okapi.DocResponse(http.StatusNotFound, ErrorBody{}),
	)
	g.group.Get("/healthz", g.handleHealth,
		okapi.DocSummary("Authenticated health check"),
		okapi.DocTags("Health"),
		okapi.DocResponse(HealthResponse{}),
	)

	// Extra handlers (e.g., the WebSocket terminal endpoint).
	for _, er := range g.extraRoutes {
		g.okapi.HandleStd("GET", er.pattern, er.handler.ServeHTTP)
	}

	// Observability endpoints (unauthenticated).
	g.okapi.Get("/healthz", g.handleLiveness)
	g.okapi.Get("/readyz", g.handleReadiness)

	if g.config.MetricsRegistry != nil {
		path := g.config.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		g.okapi.HandleStd("GET", path, promhttp.HandlerFor(g.config.MetricsRegistry, promhttp.HandlerOpts{}).ServeHTTP)
	}
	if g.config.EnableDocs {
		g.WithOpenAPIDocs()
	}

	g.server = &http.Server{
		Addr:              g.config.ListenAddr,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	g.logger.Info("http api gateway starting", slog.String("addr", g.config.ListenAddr))

	return g.okapi.StartServer(g.server)
}

// Stop gracefully shuts down the HTTP server.
func (g *Gateway) Stop(_ context.Context) error {
	if g.server == nil {
		return nil
	}
	g.logger.Info("http api gateway stopping")
	return g.okapi.Shutdown(g.server)
}

// --- Handlers ---

// ExecRequest is the JSON body for POST /v1/exec.
type ExecRequest struct {
	Command   string `json:"command"`
	SessionID string `json:"session_id,omitempty"` // Empty = X-Session-ID header, then "default".
}

// ExecResponse is the JSON response for POST /v1/exec.
type ExecResponse struct {
	SessionID  string `json:"session_id"`
	Success    bool   `json:"success"`
	Output     string `json:"output"`
	Action     string `json:"action,omitempty"` // "clear", "end", or empty.
	WorkingDir string `json:"working_dir"`
	Seq        int    `json:"sequence_number,omitempty"`
}

func (g *Gateway) handleExec(c *okapi.Context) error {
	var req ExecRequest
	if err := c.Bind(&req); err != nil {
		return c.AbortBadRequest("invalid request body")
	}

	sessionID := resolveSessionID(req.SessionID, c.Header("X-Session-ID"))

	if g.limiter != nil {
		if err := g.limiter.Allow(sessionID); err != nil {
			return c.AbortTooManyRequests("rate limit exceeded")
		}
	}

	correlationID := newCorrelationID()

	g.logger.Info("http exec",
		slog.String("client", c.GetString("client")),
		slog.String("session_id", sessionID),
		slog.String("correlation_id", correlationID),
	)

	outcome, err := g.manager.Execute(c.Context(), sessionID, req.Command)
	if err != nil {
		if errors.Is(err, sessions.ErrTooManySessions) {
			return c.AbortTooManyRequests("too many active sessions")
		}
		g.logger.Error("exec failed",
			slog.String("session_id", sessionID),
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)
		return c.AbortInternalServerError("execution failed")
	}

	return c.OK(ExecResponse{
		SessionID:  outcome.SessionID,
		Success:    outcome.Result.Success,
		Output:     outcome.Result.Output,
		Action:     outcome.Result.Action.String(),
		WorkingDir: outcome.WorkingDir,
		Seq:        outcome.Seq,
	})
}

// SessionResponse is one session in the GET /v1/sessions list.
type SessionResponse struct {
	ID         string    `json:"id"`
	WorkingDir string    `json:"working_dir"`
	LastUsed   time.Time `json:"last_used"`
	HistoryLen int       `json:"history_len"`
}

func (g *Gateway) handleSessionList(c *okapi.Context) error {
	infos := g.manager.List()
	resp := make([]SessionResponse, len(infos))
	for i, info := range infos {
		resp[i] = SessionResponse{
			ID:         info.ID,
			WorkingDir: info.WorkingDir,
			LastUsed:   info.LastUsed,
			HistoryLen: info.HistoryLen,
		}
	}
	return c.OK(resp)
}

// HistoryEntryResponse is one entry in GET /v1/sessions/{id}/history.
type HistoryEntryResponse struct {
	Seq       int       `json:"sequence_number"`
	Timestamp time.Time `json:"timestamp"`
	Command   string    `json:"command"`
	Args      []string  `json:"args"`
}

func (g *Gateway) handleSessionHistory(c *okapi.Context) error {
	id := c.Param("id")
	if _, ok := g.manager.Lookup(id); !ok {
		return c.JSON(http.StatusNotFound, okapi.M{"error": "session not found"})
	}

	entries := g.manager.History(id)
	if limit := queryLimit(c.Request()); limit > 0 && len(entries) > limit {
		// Most recent entries, still reported oldest first.
		entries = entries[len(entries)-limit:]
	}

	resp := make([]HistoryEntryResponse, len(entries))
	for i, e := range entries {
		resp[i] = HistoryEntryResponse{
			Seq:       e.Seq,
			Timestamp: e.Timestamp,
			Command:   e.Command,
			Args:      e.Args,
		}
	}
	return c.OK(resp)
}

func (g *Gateway) handleSessionDelete(c *okapi.Context) error {
	id := c.Param("id")
	if !g.manager.Evict(id) {
		return c.JSON(http.StatusNotFound, okapi.M{"error": "session not found"})
	}
	g.logger.Info("session deleted via http", slog.String("session_id", id))
	return c.OK(map[string]string{"status": "evicted"})
}

// HealthResponse is the JSON response for the health endpoints.
type HealthResponse struct {
	Status string `json:"status"`
}

func (g *Gateway) handleHealth(c *okapi.Context) error {
	return c.OK(&HealthResponse{Status: "ok"})
}

// handleLiveness is the Kubernetes liveness probe.
func (g *Gateway) handleLiveness(c *okapi.Context) error {
	return c.OK(&HealthResponse{Status: "ok"})
}

// handleReadiness checks all registered dependencies and returns 200 or 503.
func (g *Gateway) handleReadiness(c *okapi.Context) error {
	if g.config.HealthChecker == nil {
		return c.OK(&HealthResponse{Status: "ok"})
	}

	status := g.config.HealthChecker.CheckReady(c.Context())
	code := http.StatusOK
	if status.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, status)
}

// --- Authentication ---

// authenticate validates the bearer API key and stores the client label in
// the request context. With no keys configured every request is accepted.
func (g *Gateway) authenticate(next okapi.HandlerFunc) okapi.HandlerFunc {
	return func(c *okapi.Context) error {
		if len(g.config.APIKeys) == 0 {
			c.Set("client", "anonymous")
			return next(c)
		}

		authHeader := c.Header("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.AbortUnauthorized("missing or invalid Authorization header")
		}
		apiKey := strings.TrimPrefix(authHeader, "Bearer ")

		client, ok := matchAPIKey(g.config.APIKeys, apiKey)
		if !ok {
			return c.AbortUnauthorized("invalid API key")
		}
		c.Set("client", client)
		return next(c)
	}
}

// matchAPIKey compares the presented key against every configured key in
// constant time and returns the matching client label.
func matchAPIKey(keys map[string]string, presented string) (string, bool) {
	client := ""
	found := false
	for key, label := range keys {
		if subtle.ConstantTimeCompare([]byte(presented), []byte(key)) == 1 {
			client = label
			found = true
		}
	}
	return client, found
}

// --- Helpers ---

// resolveSessionID picks the session for a request: body field first, then
// the X-Session-ID header, then the shared default session.
func resolveSessionID(body, header string) string {
	if s := strings.TrimSpace(body); s != "" {
		return s
	}
	if s := strings.TrimSpace(header); s != "" {
		return s
	}
	return defaultSessionID
}

// queryLimit parses the optional ?limit= query parameter. Returns 0 when
// absent or invalid.
func queryLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func newCorrelationID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
