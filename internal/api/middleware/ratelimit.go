package middleware

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/craftlinkhq/craftlink/internal/api/response"
	"github.com/craftlinkhq/craftlink/internal/cache"
)

const defaultRequestsPerMinute = 60

// RateLimit provides sliding-window rate limiting via Redis.
type RateLimit struct {
	cache          cache.Cache
	requestsPerMin int
}

// NewRateLimit creates a new RateLimit middleware.
func NewRateLimit(c cache.Cache, requestsPerMin int) *RateLimit {
	if requestsPerMin <= 0 {
		requestsPerMin = defaultRequestsPerMinute
	}
	return &RateLimit{cache: c, requestsPerMin: requestsPerMin}
}

// Limit applies rate limiting keyed by the authenticated principal.
func (rl *RateLimit) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principalID, ok := GetPrincipalID(r)
		if !ok {
			// No principal means auth middleware didn't run; pass through
			next.ServeHTTP(w, r)
			return
		}
		rl.limitByKey(w, r, next, cache.RateLimitKey(principalID))
	})
}

// LimitByIP applies rate limiting keyed by remote address, for routes that
// run before authentication (login in particular).
func (rl *RateLimit) LimitByIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		rl.limitByKey(w, r, next, cache.LoginRateLimitKey(ip))
	})
}

func (rl *RateLimit) limitByKey(w http.ResponseWriter, r *http.Request, next http.Handler, key string) {
	count, err := rl.cache.IncrWithExpiry(r.Context(), key, 60*time.Second)
	if err != nil {
		// On Redis error, allow the request (fail open)
		next.ServeHTTP(w, r)
		return
	}

	remaining := rl.requestsPerMin - int(count)
	if remaining < 0 {
		remaining = 0
	}
	resetTime := time.Now().Add(60 * time.Second).Unix()

	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.requestsPerMin))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime, 10))

	if count > int64(rl.requestsPerMin) {
		w.Header().Set("Retry-After", "60")
		response.Failure(w, http.StatusTooManyRequests, "Too many requests.")
		return
	}

	next.ServeHTTP(w, r)
}
