package http

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"prescription-chatbot/internal/metrics"
)

// Options configures the middleware chain built by Handler.
type Options struct {
	CORSOrigin     string
	RateLimitRPS   float64
	RateLimitBurst int
}

// Handler returns the server wrapped with request logging, metrics, CORS and
// per-client rate limiting of the inference routes.
func (s *Server) Handler(opts Options) http.Handler {
	var h http.Handler = s
	if opts.RateLimitRPS > 0 {
		h = rateLimit(h, newClientLimiter(opts.RateLimitRPS, opts.RateLimitBurst, limiterIdle), s.Metrics)
	}
	h = cors(h, opts.CORSOrigin)
	return logRequests(h, s.Metrics)
}

// routeLabel collapses session ids so metric cardinality stays bounded.
func routeLabel(path string) string {
	if !strings.HasPrefix(path, "/api/sessions/") {
		switch path {
		case "/", "/api/health", "/api/sessions", "/metrics":
			return path
		}
		return "other"
	}
	parts := strings.Split(strings.TrimPrefix(path, "/api/sessions/"), "/")
	switch len(parts) {
	case 1:
		return "/api/sessions/{id}"
	case 2:
		return "/api/sessions/{id}/" + parts[1]
	}
	return "other"
}

// inferenceRoute reports whether the request may reach the model.
func inferenceRoute(r *http.Request) bool {
	if r.Method != http.MethodPost {
		return false
	}
	return strings.HasSuffix(r.URL.Path, "/messages") || strings.HasSuffix(r.URL.Path, "/prescription")
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler, m *metrics.Metrics) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		route := routeLabel(r.URL.Path)
		m.ObserveHTTP(route, rec.status, elapsed)
		if route == "/metrics" {
			return
		}
		entry := logrus.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": elapsed.String(),
		})
		if rec.status >= http.StatusInternalServerError {
			entry.Warn("request failed")
			return
		}
		entry.Info("request served")
	})
}

func cors(next http.Handler, origin string) http.Handler {
	if origin == "" {
		origin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if origin != "*" {
			h.Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limiterIdle is how long a client's bucket survives without requests. A
// fresh bucket starts full, so it must outlast a refill from empty.
const limiterIdle = 10 * time.Minute

// clientLimiter keeps one token bucket per client address. Buckets of idle
// clients are evicted so the table does not grow with every address seen.
type clientLimiter struct {
	limit   rate.Limit
	burst   int
	clients *cache.Cache // client key -> *rate.Limiter
}

func newClientLimiter(rps float64, burst int, idle time.Duration) *clientLimiter {
	if burst < 1 {
		burst = 1
	}
	return &clientLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		clients: cache.New(idle, idle/2),
	}
}

func (c *clientLimiter) allow(key string) bool {
	return c.bucket(key).Allow()
}

func (c *clientLimiter) bucket(key string) *rate.Limiter {
	if v, ok := c.clients.Get(key); ok {
		l := v.(*rate.Limiter)
		c.clients.SetDefault(key, l)
		return l
	}
	l := rate.NewLimiter(c.limit, c.burst)
	if err := c.clients.Add(key, l, cache.DefaultExpiration); err != nil {
		// another request created it first
		if v, ok := c.clients.Get(key); ok {
			return v.(*rate.Limiter)
		}
	}
	return l
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func rateLimit(next http.Handler, limiter *clientLimiter, m *metrics.Metrics) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inferenceRoute(r) && !limiter.allow(clientKey(r)) {
			m.RateLimited()
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate_limited", "Trop de requetes, reessayez plus tard")
			return
		}
		next.ServeHTTP(w, r)
	})
}
