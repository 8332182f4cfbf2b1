package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"careaudit-backend/internal/shared/metrics"
	"careaudit-backend/internal/shared/server/respond"
)

const (
	defaultRateLimitGroup = "DEFAULT"

	// Buckets idle this long are refilled anyway, so they can be dropped.
	bucketIdleTTL     = 10 * time.Minute
	pruneBucketsAbove = 10000
)

// RateLimitRule is a token bucket refilled at Rate tokens/second up to Burst.
// PerTenant shares one bucket across every user of a tenant.
type RateLimitRule struct {
	Rate      float64
	Burst     int
	PerTenant bool
}

// RateLimitConfig maps route groups to rules.
type RateLimitConfig struct {
	Rules        map[string]RateLimitRule
	DefaultGroup string
	GroupFor     func(*gin.Context) string
	Limiter      *RateLimiter
}

// RateLimiter holds one bucket per principal and group.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rateBucket
	now     func() time.Time
}

type rateBucket struct {
	tokens float64
	last   time.Time
}

// NewRateLimiter constructs a limiter; now defaults to time.Now.
func NewRateLimiter(now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		buckets: make(map[string]*rateBucket),
		now:     now,
	}
}

// RateLimit throttles requests per route group. The principal is the tenant
// user, the tenant for PerTenant rules, or the client IP when unauthenticated.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Limiter == nil {
		cfg.Limiter = NewRateLimiter(nil)
	}
	if cfg.DefaultGroup == "" {
		cfg.DefaultGroup = defaultRateLimitGroup
	}
	return func(c *gin.Context) {
		group := cfg.DefaultGroup
		if cfg.GroupFor != nil {
			if g := strings.TrimSpace(cfg.GroupFor(c)); g != "" {
				group = g
			}
		}
		rule, ok := cfg.Rules[group]
		if !ok {
			c.Next()
			return
		}
		key := principalKey(c, rule) + "|" + group
		allowed, remaining, retryAfter := cfg.Limiter.Take(key, rule)
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if allowed {
			c.Next()
			return
		}
		metrics.IncRateLimited(group)
		retryAfterMs := retryAfter.Milliseconds()
		if retryAfterMs <= 0 {
			retryAfterMs = 1000
		}
		c.Header("Retry-After", strconv.FormatInt(int64(math.Ceil(float64(retryAfterMs)/1000.0)), 10))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "too many requests", gin.H{
			"group":        group,
			"retryAfterMs": retryAfterMs,
		})
	}
}

func principalKey(c *gin.Context, rule RateLimitRule) string {
	tenant := TenantIDFromContext(c)
	if tenant > 0 && rule.PerTenant {
		return "tenant:" + strconv.FormatInt(tenant, 10)
	}
	if user := strings.TrimSpace(UserIDFromContext(c)); user != "" {
		return strconv.FormatInt(tenant, 10) + ":" + user
	}
	return "ip:" + c.ClientIP()
}

// Allow consumes one token for key and reports the wait when the bucket is empty.
func (l *RateLimiter) Allow(key string, rule RateLimitRule) (bool, time.Duration) {
	ok, _, wait := l.Take(key, rule)
	return ok, wait
}

// Take consumes one token for key. It returns whether the request may
// proceed, the whole tokens left and, when refused, how long until one refills.
func (l *RateLimiter) Take(key string, rule RateLimitRule) (bool, int, time.Duration) {
	if l == nil || rule.Rate <= 0 || rule.Burst <= 0 {
		return true, rule.Burst, 0
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.buckets) > pruneBucketsAbove {
		l.pruneLocked(now)
	}
	bucket, ok := l.buckets[key]
	if !ok {
		bucket = &rateBucket{tokens: float64(rule.Burst), last: now}
		l.buckets[key] = bucket
	}
	if elapsed := now.Sub(bucket.last).Seconds(); elapsed > 0 {
		bucket.tokens = math.Min(float64(rule.Burst), bucket.tokens+elapsed*rule.Rate)
		bucket.last = now
	}
	if bucket.tokens >= 1 {
		bucket.tokens--
		return true, int(bucket.tokens), 0
	}
	waitSec := math.Max(0, (1-bucket.tokens)/rule.Rate)
	return false, 0, time.Duration(math.Ceil(waitSec*1000.0)) * time.Millisecond
}

// Prune drops buckets untouched for the idle TTL and returns how many went.
func (l *RateLimiter) Prune() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pruneLocked(l.now())
}

func (l *RateLimiter) pruneLocked(now time.Time) int {
	n := 0
	for key, b := range l.buckets {
		if now.Sub(b.last) >= bucketIdleTTL {
			delete(l.buckets, key)
			n++
		}
	}
	return n
}
