package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// DefaultMaxBodySize caps request bodies at 100kb, matching the server's
// historical body limit
const DefaultMaxBodySize = 100 << 10

// BodySizeLimit rejects oversized request bodies before handlers read them
func BodySizeLimit(maxSize int64) gin.HandlerFunc {
	if maxSize <= 0 {
		maxSize = DefaultMaxBodySize
	}

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead ||
			c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		if c.Request.ContentLength > maxSize {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"statusCode": http.StatusRequestEntityTooLarge,
				"error":      "Request Entity Too Large",
				"message":    "request body exceeds the configured limit",
			})
			return
		}

		// guard against missing/lying Content-Length
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}
