package handlers

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ThalefangN/get-more-bw-87-sub000/db"
)

var serverStartTime = time.Now()

// GET /health
func Health(c *gin.Context) {
	ctx := c.Request.Context()

	dbStatus := "connected"
	dbLatency := "N/A"
	if db.Pool == nil {
		dbStatus = "not initialized"
	} else {
		start := time.Now()
		if err := db.Pool.Ping(ctx); err != nil {
			dbStatus = fmt.Sprintf("error: %v", err)
		} else {
			dbLatency = fmt.Sprintf("%dms", time.Since(start).Milliseconds())
		}
	}

	redisStatus := "connected"
	redisLatency := "N/A"
	if db.RedisClient == nil {
		redisStatus = "not initialized"
	} else {
		start := time.Now()
		if err := db.RedisClient.Ping(ctx).Err(); err != nil {
			redisStatus = fmt.Sprintf("error: %v", err)
		} else {
			redisLatency = fmt.Sprintf("%dms", time.Since(start).Milliseconds())
		}
	}

	uptime := time.Since(serverStartTime)
	uptimeStr := fmt.Sprintf("%dd %dh %dm %ds",
		int(uptime.Hours())/24, int(uptime.Hours())%24, int(uptime.Minutes())%60, int(uptime.Seconds())%60)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"status":  "healthy",
		"server": gin.H{
			"goVersion": runtime.Version(),
			"uptime":    uptimeStr,
			"startedAt": serverStartTime.Format(time.RFC3339),
		},
		"database": gin.H{"status": dbStatus, "latency": dbLatency},
		"redis":    gin.H{"status": redisStatus, "latency": redisLatency},
	})
}
