package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ThalefangN/get-more-bw-87-sub000/middleware"
	"github.com/ThalefangN/get-more-bw-87-sub000/models"
	"github.com/ThalefangN/get-more-bw-87-sub000/stores"
	"github.com/ThalefangN/get-more-bw-87-sub000/utils"
)

func RegisterCourierRoutes(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	group := r.Group("/api/v1/courier", authMiddleware, middleware.IsCourier())
	{
		// Deliveries
		group.GET("/deliveries", ListMyDeliveries)
		group.PUT("/deliveries/:id/accept", AcceptDelivery)
		group.PUT("/deliveries/:id/complete", CompleteDelivery)

		// Status
		group.PUT("/toggle-active", ToggleCourierActive)
		group.PUT("/location", UpdateCourierLocation)

		// Inbox
		group.GET("/notifications", ListCourierNotifications)
		group.PUT("/notifications/:id/read", MarkCourierNotificationRead)
	}
}

func currentCourier(c *gin.Context) *models.Courier {
	v, _ := c.Get(middleware.ContextCourier)
	courier, _ := v.(*models.Courier)
	return courier
}

// GET /api/v1/courier/deliveries
func ListMyDeliveries(c *gin.Context) {
	orders, err := stores.ListCourierDeliveries(c.Request.Context(), currentCourier(c).ID)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, "Failed to load deliveries", err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, "Deliveries", orders)
}

// PUT /api/v1/courier/deliveries/:id/accept
// Only one courier can win an order; the rest get 409.
func AcceptDelivery(c *gin.Context) {
	courier := currentCourier(c)
	order, err := stores.AcceptDelivery(c.Request.Context(), c.Param("id"), courier.ID)
	if err != nil {
		respondDomainError(c, err, "Failed to accept delivery")
		return
	}
	utils.Logger.Info("Delivery accepted", zap.String("orderId", order.ID), zap.String("courierId", courier.ID))
	utils.RespondSuccess(c, http.StatusOK, "Delivery accepted", order)
}

// PUT /api/v1/courier/deliveries/:id/complete
func CompleteDelivery(c *gin.Context) {
	order, err := stores.CompleteDelivery(c.Request.Context(), c.Param("id"), currentCourier(c).ID)
	if err != nil {
		respondDomainError(c, err, "Failed to complete delivery")
		return
	}
	utils.RespondSuccess(c, http.StatusOK, "Delivery completed", order)
}

// PUT /api/v1/courier/toggle-active
func ToggleCourierActive(c *gin.Context) {
	ctx := c.Request.Context()
	courier := currentCourier(c)
	active := !courier.IsActive
	if err := stores.SetCourierActive(ctx, courier.ID, active); err != nil {
		utils.RespondError(c, http.StatusInternalServerError, "Failed to update status", err)
		return
	}
	if !active {
		if err := stores.RemoveCourierLocation(ctx, courier.ID); err != nil {
			utils.Logger.Warn("Failed to drop courier position", zap.String("courierId", courier.ID), zap.Error(err))
		}
	}
	utils.RespondSuccess(c, http.StatusOK, "Status updated", gin.H{"isActive": active})
}

// PUT /api/v1/courier/location
func UpdateCourierLocation(c *gin.Context) {
	var body struct {
		Lat *float64 `json:"lat" binding:"required"`
		Lng *float64 `json:"lng" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "lat and lng are required", err)
		return
	}
	pos := models.Coordinate{Lat: *body.Lat, Lng: *body.Lng}
	if !pos.Valid() {
		utils.RespondError(c, http.StatusUnprocessableEntity, "Coordinates out of range", nil)
		return
	}
	courier := currentCourier(c)
	if err := stores.UpdateCourierLocation(c.Request.Context(), courier.ID, pos.Lat, pos.Lng); err != nil {
		utils.RespondError(c, http.StatusInternalServerError, "Failed to update location", err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, "Location updated", nil)
}

// GET /api/v1/courier/notifications
func ListCourierNotifications(c *gin.Context) {
	list, err := stores.ListNotifications(c.Request.Context(), currentCourier(c).ID)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, "Failed to load notifications", err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, "Notifications", list)
}

// PUT /api/v1/courier/notifications/:id/read
func MarkCourierNotificationRead(c *gin.Context) {
	if err := stores.MarkNotificationRead(c.Request.Context(), currentCourier(c).ID, c.Param("id")); err != nil {
		respondDomainError(c, err, "Failed to update notification")
		return
	}
	utils.RespondSuccess(c, http.StatusOK, "Notification read", nil)
}
