package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ThalefangN/get-more-bw-87-sub000/middleware"
	"github.com/ThalefangN/get-more-bw-87-sub000/models"
	"github.com/ThalefangN/get-more-bw-87-sub000/stores"
	"github.com/ThalefangN/get-more-bw-87-sub000/utils"
)

func RegisterStoreRoutes(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	group := r.Group("/api/v1/store/:storeId", authMiddleware, middleware.IsStoreOwner())
	{
		group.GET("/orders", ListStoreOrders)
		group.PUT("/orders/:id/approve", ApproveOrder)
		group.PUT("/orders/:id/decline", DeclineOrder)

		group.GET("/products", ListStoreProducts)
		group.POST("/products", CreateStoreProduct)
	}
}

// GET /api/v1/store/:storeId/orders?status=pending
func ListStoreOrders(c *gin.Context) {
	status := models.OrderStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		utils.RespondError(c, http.StatusBadRequest, "Unknown order status", nil)
		return
	}
	orders, err := stores.ListOrdersByStore(c.Request.Context(), c.Param("storeId"), status)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, "Failed to load orders", err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, "Orders", orders)
}

func setStoreOrderStatus(c *gin.Context, to models.OrderStatus, msg string) {
	order, err := stores.UpdateStoreOrderStatus(c.Request.Context(), c.Param("storeId"), c.Param("id"), to)
	if err != nil {
		respondDomainError(c, err, "Failed to update order")
		return
	}
	utils.RespondSuccess(c, http.StatusOK, msg, order)
}

// PUT /api/v1/store/:storeId/orders/:id/approve
func ApproveOrder(c *gin.Context) {
	setStoreOrderStatus(c, models.OrderApproved, "Order approved")
}

// PUT /api/v1/store/:storeId/orders/:id/decline
func DeclineOrder(c *gin.Context) {
	setStoreOrderStatus(c, models.OrderDeclined, "Order declined")
}

// GET /api/v1/store/:storeId/products
func ListStoreProducts(c *gin.Context) {
	products, err := stores.ListProducts(c.Request.Context(), c.Param("storeId"))
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, "Failed to load products", err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, "Products", products)
}

// POST /api/v1/store/:storeId/products
func CreateStoreProduct(c *gin.Context) {
	var body struct {
		Name     string  `json:"name" binding:"required"`
		Price    float64 `json:"price"`
		Stock    int     `json:"stock"`
		ImageURL string  `json:"imageUrl"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Product name is required", err)
		return
	}
	if body.Price < 0 || body.Stock < 0 {
		utils.RespondError(c, http.StatusUnprocessableEntity, "Price and stock cannot be negative", nil)
		return
	}

	p := &models.Product{
		StoreID:  c.Param("storeId"),
		Name:     strings.TrimSpace(body.Name),
		Price:    body.Price,
		Stock:    body.Stock,
		ImageURL: body.ImageURL,
	}
	if err := stores.CreateProduct(c.Request.Context(), p); err != nil {
		utils.RespondError(c, http.StatusInternalServerError, "Failed to add product", err)
		return
	}
	utils.RespondSuccess(c, http.StatusCreated, "Product added", p)
}
