package api

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDMiddleware adds unique request ID for tracking
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)
		c.Next()
	}
}

// RequestLogger logs one line per request in the application log format.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		level := "[INFO]"
		if status >= 500 {
			level = "[ERROR]"
		} else if status >= 400 {
			level = "[WARN]"
		}
		log.Printf("%s %s %s %d %v request_id=%s", level, c.Request.Method, c.Request.URL.Path,
			status, time.Since(start).Round(time.Millisecond), c.GetString("request_id"))
	}
}
