package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ThalefangN/get-more-bw-87-sub000/utils"
)

// CORS allows browser clients from any origin.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, x-api-key, x-admin-secret")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// APIKeyAuth validates the x-api-key header against serverKey.
// An empty serverKey lets every request through (dev mode).
func APIKeyAuth(serverKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if serverKey == "" {
			c.Next()
			return
		}

		clientKey := c.GetHeader("x-api-key")
		if subtle.ConstantTimeCompare([]byte(clientKey), []byte(serverKey)) != 1 {
			utils.RespondError(c, http.StatusUnauthorized, "Invalid API Key", nil)
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequestID adds a unique request ID for tracing/debugging
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.New().String()
		c.Set("RequestID", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func SecureHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Next()
	}
}

// MaxBodySize limits the size of the request body
func MaxBodySize(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
