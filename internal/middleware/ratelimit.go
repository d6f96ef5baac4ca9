package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	appErrors "github.com/noah-isme/lesson-booking-api/pkg/errors"
	"github.com/noah-isme/lesson-booking-api/pkg/response"
)

// minLimiterIdle bounds how long an untouched bucket is kept.
const minLimiterIdle = 10 * time.Minute

// KeyedRateLimiter stores a token bucket per caller key. Buckets untouched
// for the idle TTL are evicted; by then they have refilled completely.
type KeyedRateLimiter struct {
	store *gocache.Cache
	mu    sync.Mutex
	r     rate.Limit
	b     int
}

// NewKeyedRateLimiter allows r events per second with bursts of b per key.
// A non-positive idle uses the larger of ten minutes and a full refill.
func NewKeyedRateLimiter(r rate.Limit, b int, idle time.Duration) *KeyedRateLimiter {
	if b <= 0 {
		b = 1
	}
	if idle <= 0 {
		idle = minLimiterIdle
		if r > 0 && r != rate.Inf {
			if refill := time.Duration(float64(b) / float64(r) * float64(time.Second)); refill > idle {
				idle = refill
			}
		}
	}
	return &KeyedRateLimiter{store: gocache.New(idle, idle), r: r, b: b}
}

// Limiter returns the bucket for key, creating it on first use. Every call
// restarts the key's idle TTL.
func (l *KeyedRateLimiter) Limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.cached(key)
	if !ok {
		limiter = rate.NewLimiter(l.r, l.b)
	}
	l.store.SetDefault(key, limiter)
	return limiter
}

func (l *KeyedRateLimiter) cached(key string) (*rate.Limiter, bool) {
	raw, found := l.store.Get(key)
	if !found {
		return nil, false
	}
	limiter, ok := raw.(*rate.Limiter)
	return limiter, ok
}

// Len reports the number of buckets currently held.
func (l *KeyedRateLimiter) Len() int {
	l.store.DeleteExpired()
	return l.store.ItemCount()
}

// retryAfter is the whole number of seconds until one token refills.
func (l *KeyedRateLimiter) retryAfter() int {
	if l.r <= 0 || l.r == rate.Inf {
		return 1
	}
	return int(math.Ceil(1 / float64(l.r)))
}

// RateLimit throttles callers by user id when authenticated and by client
// IP otherwise. A non-positive limit disables throttling.
func RateLimit(perSecond float64, burst int) gin.HandlerFunc {
	if perSecond <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiter := NewKeyedRateLimiter(rate.Limit(perSecond), burst, 0)
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if claims := Claims(c); claims != nil {
			key = "user:" + strconv.Itoa(claims.UserID)
		}
		if !limiter.Limiter(key).Allow() {
			c.Header("Retry-After", strconv.Itoa(limiter.retryAfter()))
			response.Abort(c, appErrors.ErrTooManyRequests)
			return
		}
		c.Next()
	}
}
