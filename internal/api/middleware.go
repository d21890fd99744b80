package api

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"strategy-core/internal/monitor"
)

const (
	ratePerSecond     = 10
	rateBurst         = 30
	limiterIdleEvict  = 10 * time.Minute
	limiterSweepEvery = time.Minute
)

// limiterPool hands out one token bucket per client IP and evicts buckets
// that have gone quiet, so the map cannot grow without bound.
type limiterPool struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLimiterPool() *limiterPool {
	p := &limiterPool{clients: make(map[string]*clientLimiter)}
	go p.sweep()
	return p
}

func (p *limiterPool) get(ip string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	cl, ok := p.clients[ip]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(ratePerSecond, rateBurst)}
		p.clients[ip] = cl
	}
	cl.lastSeen = time.Now()
	return cl.limiter
}

func (p *limiterPool) sweep() {
	ticker := time.NewTicker(limiterSweepEvery)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-limiterIdleEvict)
		p.mu.Lock()
		for ip, cl := range p.clients {
			if cl.lastSeen.Before(cutoff) {
				delete(p.clients, ip)
			}
		}
		p.mu.Unlock()
	}
}

// RateLimitMiddleware throttles each client IP independently.
func RateLimitMiddleware() gin.HandlerFunc {
	pool := newLimiterPool()
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !pool.get(ip).Allow() {
			log.Printf("[RATE_LIMIT] %s throttled", ip)
			c.JSON(http.StatusTooManyRequests, gin.H{
				"code":  "RATE_LIMITED",
				"error": "too many requests",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// CORSMiddleware allows browser dashboards on other origins to read the API.
// The surface is read-mostly JSON plus a bearer token, nothing more.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequestIDMiddleware tags each request so log lines can be correlated.
// A caller-supplied X-Request-ID is honored.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("RequestID", id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

// TimeoutMiddleware bounds handler time. A handler panic inside the timeout
// goroutine is converted to a 500 rather than lost.
func TimeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		finished := make(chan struct{})
		panicked := make(chan any, 1)

		go func() {
			defer func() {
				if p := recover(); p != nil {
					panicked <- p
				}
			}()
			c.Next()
			close(finished)
		}()

		select {
		case <-finished:
		case p := <-panicked:
			log.Printf("[PANIC] %s %s: %v", c.Request.Method, c.Request.URL.Path, p)
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":  "INTERNAL",
				"error": "internal server error",
			})
			c.Abort()
		case <-ctx.Done():
			log.Printf("[TIMEOUT] %s %s exceeded %v", c.Request.Method, c.Request.URL.Path, timeout)
			c.JSON(http.StatusRequestTimeout, gin.H{
				"code":  "TIMEOUT",
				"error": "request timed out",
			})
			c.Abort()
		}
	}
}

// RequestLogger records one line per request and feeds the API latency
// histogram when metrics are wired.
func RequestLogger(metrics *monitor.SystemMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if metrics != nil {
			metrics.IncrementAPI()
			metrics.APILatency.RecordDuration(latency)
			if status >= 400 {
				metrics.IncrementAPIErrors()
			}
		}

		log.Printf("[API] %s | %s %s | %d | %v | %s",
			shortID(c.GetString("RequestID")), method, path, status, latency, c.ClientIP())
	}
}

func shortID(id string) string {
	if id == "" {
		return "--------"
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
