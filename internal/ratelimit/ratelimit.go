// Package ratelimit throttles API callers with one token bucket per client.
package ratelimit

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"

	"docverify/pkg/platform/httputil"
	"docverify/pkg/requestcontext"
)

// Config sets the sustained rate, burst and how many distinct callers are
// tracked before the least recently seen bucket is evicted.
type Config struct {
	RequestsPerSecond float64
	Burst             int
	MaxClients        int
}

// Limiter hands out per-key token buckets.
type Limiter struct {
	mu      sync.Mutex
	buckets *lru.Cache[string, *rate.Limiter]
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

// New returns nil when cfg disables limiting.
func New(cfg Config) (*Limiter, error) {
	if cfg.RequestsPerSecond <= 0 {
		return nil, nil
	}
	if cfg.Burst <= 0 {
		cfg.Burst = int(math.Ceil(cfg.RequestsPerSecond))
	}
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = 10000
	}
	buckets, err := lru.New[string, *rate.Limiter](cfg.MaxClients)
	if err != nil {
		return nil, err
	}
	return &Limiter{
		buckets: buckets,
		limit:   rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.Burst,
		now:     time.Now,
	}, nil
}

// Allow takes a token for key. When none is available it reports how long
// until one will be.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	bucket, ok := l.buckets.Get(key)
	if !ok {
		bucket = rate.NewLimiter(l.limit, l.burst)
		l.buckets.Add(key, bucket)
	}
	l.mu.Unlock()

	now := l.now()
	r := bucket.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Metrics counts rejected requests. A nil *Metrics is a valid no-op.
type Metrics struct {
	Rejected prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Rejected: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "docverify_ratelimit_rejected_total",
			Help: "Total number of requests rejected by the per-client rate limiter",
		}),
	}
}

func (m *Metrics) incRejected() {
	if m == nil {
		return
	}
	m.Rejected.Inc()
}

type rateLimitExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"error_description"`
	RetryAfter int    `json:"retry_after"`
}

// Middleware keys buckets by authenticated client, falling back to the
// caller IP for anonymous requests. A nil limiter disables it.
func Middleware(limiter *Limiter, metrics *Metrics, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := requestcontext.ClientID(ctx)
			if key == "" {
				key = "ip:" + requestcontext.ClientIP(ctx)
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.burst))
			allowed, retryAfter := limiter.Allow(key)
			if allowed {
				next.ServeHTTP(w, r)
				return
			}

			metrics.incRejected()
			seconds := int(math.Ceil(retryAfter.Seconds()))
			logger.WarnContext(ctx, "rate limit exceeded",
				"client", key,
				"retry_after_s", seconds,
				"request_id", requestcontext.RequestID(ctx),
			)
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			httputil.WriteJSON(w, http.StatusTooManyRequests, &rateLimitExceededResponse{
				Error:      "rate_limit_exceeded",
				Message:    "Too many requests. Please try again later.",
				RetryAfter: seconds,
			})
		})
	}
}
