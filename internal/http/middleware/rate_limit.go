package middleware

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/diagnosis/bloodcare/internal/http/response"
	"github.com/diagnosis/bloodcare/pkg/logger"
)

// HitCounter counts requests for key inside the current window.
type HitCounter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimitConfig defines rate limiting parameters
type RateLimitConfig struct {
	Name     string                         // scope, so separate limiters never share counters
	Requests int                            // Max requests per window
	Window   time.Duration                  // Time window duration
	KeyFunc  func(r *http.Request) []string // Function to generate rate limit keys
}

type RateLimiter struct {
	counter HitCounter
	config  RateLimitConfig
}

const (
	defaultRateRequests = 20
	defaultRateWindow   = time.Minute
)

func NewRateLimiter(counter HitCounter, config RateLimitConfig) *RateLimiter {
	if config.Requests <= 0 {
		config.Requests = defaultRateRequests
	}
	if config.Window <= 0 {
		config.Window = defaultRateWindow
	}
	if config.KeyFunc == nil {
		config.KeyFunc = ClientIPKeyFunc
	}
	return &RateLimiter{counter: counter, config: config}
}

func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, key := range rl.config.KeyFunc(r) {
				if !rl.allow(r.Context(), key) {
					response.RateLimit(w, "Too many requests. Try again later.")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// allow fails open when the counter is unreachable.
func (rl *RateLimiter) allow(ctx context.Context, key string) bool {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	sum := sha256.Sum256([]byte(key))
	n, err := rl.counter.Hit(ctx, fmt.Sprintf("%s:%x", rl.config.Name, sum), rl.config.Window)
	if err != nil {
		logger.WarnContext(ctx, "rate limit counter unavailable", "error", err)
		return true
	}
	return n <= int64(rl.config.Requests)
}

// ClientIPKeyFunc limits per client address. It trusts only RemoteAddr; run
// chi's RealIP first when a trusted proxy sets the forwarding headers.
func ClientIPKeyFunc(r *http.Request) []string {
	if ip := getClientIP(r); ip != "" {
		return []string{"ip:" + ip}
	}
	return nil
}

func getClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
