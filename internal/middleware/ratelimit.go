package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/radiusdt/agency-portal/internal/config"
	"github.com/radiusdt/agency-portal/internal/metrics"
)

// Upstream endpoints spend ad-platform or model quota and get their own,
// much smaller, token bucket.
var upstreamSuffixes = []string{"/sync", "/insights", "/settings/validate"}

// RateLimitMiddleware implements token bucket rate limiting.
type RateLimitMiddleware struct {
	cfg             config.RateLimitConfig
	logger          *zap.Logger
	metrics         *metrics.Metrics
	generalLimiter  *rate.Limiter
	upstreamLimiter *rate.Limiter
}

// NewRateLimitMiddleware creates the limiter. m may be nil.
func NewRateLimitMiddleware(cfg config.RateLimitConfig, logger *zap.Logger, m *metrics.Metrics) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		cfg:             cfg,
		logger:          logger,
		metrics:         m,
		generalLimiter:  rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		upstreamLimiter: rate.NewLimiter(rate.Limit(cfg.SyncRPS), cfg.SyncBurst),
	}
}

func (rl *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.cfg.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		name, limiter := "general", rl.generalLimiter
		if r.Method == http.MethodPost && isUpstreamEndpoint(r.URL.Path) {
			name, limiter = "upstream", rl.upstreamLimiter
		}

		if !limiter.Allow() {
			rl.logger.Warn("rate limit exceeded",
				zap.String("limiter", name),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
			)
			if rl.metrics != nil {
				rl.metrics.RecordRateLimitHit(name)
			}
			rl.tooManyRequests(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func isUpstreamEndpoint(path string) bool {
	for _, s := range upstreamSuffixes {
		if strings.HasSuffix(path, s) {
			return true
		}
	}
	return false
}

func (rl *RateLimitMiddleware) tooManyRequests(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", "1")
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
}
