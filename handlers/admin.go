package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ThalefangN/get-more-bw-87-sub000/stores"
	"github.com/ThalefangN/get-more-bw-87-sub000/utils"
)

func RegisterAdminRoutes(r *gin.Engine, adminMiddleware gin.HandlerFunc) {
	adminGroup := r.Group("/api/v1/admin", adminMiddleware)
	{
		adminGroup.GET("/overview", AdminOverview)
	}
}

// GET /api/v1/admin/overview
func AdminOverview(c *gin.Context) {
	ctx := c.Request.Context()

	counts, err := stores.CountOrdersByStatus(ctx)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, "Failed to count orders", err)
		return
	}
	activeCouriers, err := stores.CountActiveCouriers(ctx)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, "Failed to count couriers", err)
		return
	}
	recent, err := stores.ListRecentOrders(ctx, 20)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, "Failed to load recent orders", err)
		return
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	utils.RespondSuccess(c, http.StatusOK, "Overview", gin.H{
		"ordersByStatus": counts,
		"totalOrders":    total,
		"activeCouriers": activeCouriers,
		"recentOrders":   recent,
	})
}
