package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/apimgr/floodwatch/src/database"
)

var started = time.Now()

// Health returns a liveness/readiness handler (GET /healthz). The database
// ping decides between healthy and degraded.
func Health(db *database.DB, version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "ok"
		code := http.StatusOK

		if err := db.PingContext(c.Request.Context()); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		c.JSON(code, gin.H{
			"status":         status,
			"version":        version,
			"uptime_seconds": int64(time.Since(started).Seconds()),
		})
	}
}
