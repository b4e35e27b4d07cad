package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ThalefangN/get-more-bw-87-sub000/middleware"
	"github.com/ThalefangN/get-more-bw-87-sub000/stores"
	"github.com/ThalefangN/get-more-bw-87-sub000/utils"
)

func RegisterLocationRoutes(r *gin.Engine, authMiddleware gin.HandlerFunc, h *Handler) {
	group := r.Group("/api/v1/location", authMiddleware)
	{
		group.POST("/refresh", h.RefreshLocation)
		group.GET("", h.GetLocation)
	}
}

// POST /api/v1/location/refresh
// Asks the device for a fresh fix. Any failure still answers 200 with the
// default city location and the reason.
func (h *Handler) RefreshLocation(c *gin.Context) {
	pos, live, err := h.Locator.AcquireOrDefault(c.Request.Context(), middleware.UserID(c))
	data := gin.H{
		"location": pos,
		"live":     live,
	}
	if err != nil {
		data["reason"] = err.Error()
		utils.RespondSuccess(c, http.StatusOK, "Using default location", data)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, "Location updated", data)
}

// GET /api/v1/location
func (h *Handler) GetLocation(c *gin.Context) {
	pos, fixedAt, ok, err := stores.LastKnownLocation(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, "Failed to read location", err)
		return
	}
	if !ok {
		utils.RespondSuccess(c, http.StatusOK, "Default location", gin.H{
			"location": h.Locator.Fallback(),
			"live":     false,
		})
		return
	}
	utils.RespondSuccess(c, http.StatusOK, "Last known location", gin.H{
		"location": pos,
		"live":     true,
		"fixedAt":  fixedAt.Format(time.RFC3339),
	})
}
