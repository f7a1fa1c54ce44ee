// Package httptransport assembles the public HTTP surface: the shared
// middleware chain, the unauthenticated probes and the protected API.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"docverify/internal/document/handler"
	"docverify/internal/platform/metrics"
	"docverify/internal/ratelimit"
	"docverify/pkg/platform/middleware/auth"
	"docverify/pkg/platform/middleware/metadata"
	request "docverify/pkg/platform/middleware/request"
	"docverify/pkg/platform/middleware/requesttime"
)

// RouterConfig carries everything NewRouter mounts. Nil optional fields turn
// the matching feature off.
type RouterConfig struct {
	Logger    *slog.Logger
	Documents *handler.Handler

	Authenticators []auth.Authenticator

	Limiter        *ratelimit.Limiter
	LimiterMetrics *ratelimit.Metrics

	HTTPMetrics *metrics.Metrics
	// Gatherer backs GET /metrics when set.
	Gatherer prometheus.Gatherer
}

// NewRouter wires the middleware chain and routes. Health and metrics stay
// public; the API group authenticates before rate limiting so buckets are
// keyed by client.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(request.Logger(logger))
	r.Use(request.Recover(logger))
	r.Use(cfg.HTTPMetrics.Middleware)

	cfg.Documents.RegisterHealth(r)
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(cfg.Gatherer))
	}

	r.Group(func(api chi.Router) {
		api.Use(auth.RequireAuth(cfg.Authenticators, logger))
		api.Use(ratelimit.Middleware(cfg.Limiter, cfg.LimiterMetrics, logger))
		cfg.Documents.Register(api)
	})
	return r
}
