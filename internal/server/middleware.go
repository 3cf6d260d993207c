package server

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/blockcanvas/indy/internal/indy"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "X-Requested-With"},
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		entry := logger.WithFields(logrus.Fields{
			"method":      strings.ToUpper(c.Request.Method),
			"path":        path,
			"status":      status,
			"duration_ms": time.Since(start).Milliseconds(),
		})

		switch {
		case status >= 500:
			entry.Error("HTTP request")
		case status >= 400:
			entry.Warn("HTTP request")
		default:
			entry.Debug("HTTP request")
		}
	}
}

// entryLimiter hands out one token bucket per site/entry. Buckets of idle
// entries are evicted once the table is full.
type entryLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	buckets *lru.Cache[string, *rate.Limiter]
}

func newEntryLimiter(perSecond float64, burst int) *entryLimiter {
	if perSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	buckets, _ := lru.New[string, *rate.Limiter](1024)
	return &entryLimiter{limit: rate.Limit(perSecond), burst: burst, buckets: buckets}
}

func (l *entryLimiter) allow(key string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets.Get(key)
	if !ok {
		b = rate.NewLimiter(l.limit, l.burst)
		l.buckets.Add(key, b)
	}
	return b.Allow()
}

func tooManyRequests(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorBody{Error: indy.MsgRateLimited, Code: "rate_limited"})
}
