package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
)

const (
	// DefaultRateLimit is requests per window per client IP
	DefaultRateLimit = 120
	// DefaultRateWindow is the rate limit window
	DefaultRateWindow = time.Minute
)

// RateLimit limits requests per client IP over a fixed window. Counters live
// in an in-process TTL store; the window resets when a counter expires.
func RateLimit(limit int, window time.Duration) gin.HandlerFunc {
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	if window <= 0 {
		window = DefaultRateWindow
	}
	counters := gocache.New(window, 2*window)

	return func(c *gin.Context) {
		key := c.ClientIP()

		count, err := counters.IncrementInt64(key, 1)
		if err != nil {
			counters.Add(key, int64(1), window)
			count = 1
		}

		remaining := int64(limit) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(limit) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"statusCode": http.StatusTooManyRequests,
				"error":      "Too Many Requests",
				"message":    fmt.Sprintf("rate limit of %d requests per %v exceeded", limit, window),
			})
			return
		}

		c.Next()
	}
}
