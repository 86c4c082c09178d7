package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type clientLimiter struct {
	general  *rate.Limiter
	auth     *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware limits each client IP, with a tighter budget for the
// proxied auth endpoints (login, register, refresh).
type RateLimitMiddleware struct {
	generalRPM int
	authRPM    int
	authPrefix string
	mu         sync.Mutex
	clients    map[string]*clientLimiter
}

// NewRateLimitMiddleware takes requests per minute. A non-positive general
// budget disables general limiting; a zero auth budget falls back to 10 and a
// negative one disables it.
func NewRateLimitMiddleware(generalRPM int, authRPM int) *RateLimitMiddleware {
	if authRPM == 0 {
		authRPM = 10
	}

	return &RateLimitMiddleware{
		generalRPM: generalRPM,
		authRPM:    authRPM,
		authPrefix: apiPrefix + "/auth",
		clients:    map[string]*clientLimiter{},
	}
}

func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		clientIP := extractClientIP(r)
		limiter := m.getLimiter(clientIP)

		target := limiter.general
		if strings.HasPrefix(strings.ToLower(r.URL.Path), m.authPrefix) {
			target = limiter.auth
		}
		if target == nil {
			next.ServeHTTP(w, r)
			return
		}

		if !target.Allow() {
			w.Header().Set("Retry-After", retryAfter(target))
			writeFailure(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *RateLimitMiddleware) getLimiter(clientIP string) *clientLimiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limiter, exists := m.clients[clientIP]; exists {
		limiter.lastSeen = time.Now()
		m.gcLocked()
		return limiter
	}

	created := &clientLimiter{general: perMinute(m.generalRPM), auth: perMinute(m.authRPM), lastSeen: time.Now()}
	m.clients[clientIP] = created
	m.gcLocked()

	return created
}

// perMinute returns nil for a non-positive budget, meaning unlimited.
func perMinute(rpm int) *rate.Limiter {
	if rpm <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm)
}

// retryAfter is the time until the limiter earns one token, in whole seconds.
func retryAfter(limiter *rate.Limiter) string {
	interval := float64(time.Second) / float64(limiter.Limit())
	return strconv.Itoa(int(math.Ceil(interval / float64(time.Second))))
}

func (m *RateLimitMiddleware) gcLocked() {
	if len(m.clients) < 1000 {
		return
	}

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, limiter := range m.clients {
		if limiter.lastSeen.Before(cutoff) {
			delete(m.clients, ip)
		}
	}
}

func extractClientIP(r *http.Request) string {
	forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
	if forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}

	realIP := strings.TrimSpace(r.Header.Get("X-Real-IP"))
	if realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}

	if strings.TrimSpace(r.RemoteAddr) == "" {
		return "unknown"
	}

	return r.RemoteAddr
}
