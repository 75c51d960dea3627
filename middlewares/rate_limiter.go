package middlewares

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/yeremiapane/table-reservation/config"
	"golang.org/x/time/rate"
)

// RateLimiter menyimpan satu token bucket per IP di memori proses.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	ttl     time.Duration
	mu      sync.Mutex
	clients map[string]*clientLimiter
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(rps, burst int, ttl time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		ttl:     ttl,
		clients: make(map[string]*clientLimiter),
	}
}

func (rl *RateLimiter) get(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for k, cl := range rl.clients {
		if now.Sub(cl.lastSeen) > rl.ttl {
			delete(rl.clients, k)
		}
	}
	cl, ok := rl.clients[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.get(c.ClientIP(), time.Now()).Allow() {
			c.Header("Retry-After", "1")
			tooManyRequests(c, 1)
			return
		}
		c.Next()
	}
}

var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local now_ms = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local refill_tokens = tonumber(ARGV[3])
	local interval_ms = tonumber(ARGV[4])
	local ttl_seconds = tonumber(ARGV[5])

	local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
	local tokens = tonumber(state[1])
	local last_refill = tonumber(state[2])
	if tokens == nil or last_refill == nil then
		tokens = capacity
		last_refill = now_ms
	end

	local elapsed = math.max(0, now_ms - last_refill)
	local intervals = math.floor(elapsed / interval_ms)
	if intervals > 0 then
		tokens = math.min(capacity, tokens + (intervals * refill_tokens))
		last_refill = last_refill + (intervals * interval_ms)
	end

	local allowed = 0
	local retry_after_ms = 0
	if tokens > 0 then
		allowed = 1
		tokens = tokens - 1
	else
		retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
	end

	redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
	redis.call('EXPIRE', key, ttl_seconds)
	return { allowed, tokens, retry_after_ms }
`)

// RedisRateLimit shares one bucket per IP across all replicas. When Redis
// errors the request is let through.
func RedisRateLimit(cfg config.RateLimitConfig, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:ip:%s", cfg.Prefix, c.ClientIP())
		vals, err := tokenBucketScript.Run(c.Request.Context(), rdb, []string{key},
			time.Now().UnixMilli(),
			cfg.Capacity,
			cfg.RefillTokens,
			cfg.RefillInterval.Milliseconds(),
			int64(cfg.TTL/time.Second),
		).Int64Slice()
		if err != nil || len(vals) != 3 {
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(vals[1], 10))
		if vals[0] != 1 {
			secs := int(math.Ceil(float64(vals[2]) / 1000.0))
			c.Header("Retry-After", strconv.Itoa(secs))
			tooManyRequests(c, secs)
			return
		}
		c.Next()
	}
}

// RateLimit memilih limiter Redis bila tersedia, selain itu limiter lokal.
func RateLimit(cfg config.RateLimitConfig, rdb *redis.Client) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	if rdb != nil {
		return RedisRateLimit(cfg, rdb)
	}
	return NewRateLimiter(cfg.RefillTokens, cfg.Capacity, cfg.TTL).RateLimit()
}

func tooManyRequests(c *gin.Context, retryAfter int) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"status":      false,
		"message":     "rate limit exceeded",
		"retry_after": retryAfter,
	})
}
