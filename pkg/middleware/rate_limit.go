package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/multimart/multimart/backend/go-services/pkg/metrics"
	"golang.org/x/time/rate"
)

// limiterStore is a per-key set of token buckets.
type limiterStore struct {
	m     sync.Map // map[string]*rate.Limiter
	rps   float64
	burst int
}

// get returns (and lazily creates) a token-bucket limiter for the given key
func (s *limiterStore) get(key string) *rate.Limiter {
	if v, ok := s.m.Load(key); ok {
		return v.(*rate.Limiter)
	}
	v, _ := s.m.LoadOrStore(key, rate.NewLimiter(rate.Limit(s.rps), s.burst))
	return v.(*rate.Limiter)
}

// KeyFunc selects the bucket a request is counted against.
type KeyFunc func(c *gin.Context) string

// rateKey prefers the browser client id, then the bearer subject, then the
// client IP. A client id issued on this very request is skipped: dropping
// the cookie must not buy a fresh bucket.
func rateKey(c *gin.Context) string {
	if id := ClientID(c); id != "" && !FreshClient(c) {
		return "client:" + id
	}
	if v, ok := c.Get("claims"); ok {
		if cm, ok2 := v.(map[string]interface{}); ok2 {
			if sub, ok3 := cm["sub"].(string); ok3 && sub != "" {
				return "sub:" + sub
			}
		}
	}
	return "ip:" + clientIP(c)
}

// AddressKey buckets by client IP only, whatever cookie or token the
// request carries.
func AddressKey(c *gin.Context) string {
	return "addr:" + clientIP(c)
}

func clientIP(c *gin.Context) string {
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}

// RateLimitMiddleware returns a Gin middleware enforcing a token-bucket per-key limit.
// rps = allowed events per second, burst = maximum tokens in bucket.
// Each call gets its own set of buckets.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	return RateLimitByKey(rps, burst, rateKey)
}

// RateLimitByKey is RateLimitMiddleware with a custom bucket key.
func RateLimitByKey(rps float64, burst int, key KeyFunc) gin.HandlerFunc {
	store := &limiterStore{rps: rps, burst: burst}
	return func(c *gin.Context) {
		if !store.get(key(c)).Allow() {
			// set common rate limit headers (informational)
			c.Header("Retry-After", "1")
			metrics.RateLimitRejected.WithLabelValues("memory").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("memory").Inc()
		c.Next()
	}
}
