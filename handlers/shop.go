package handlers

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/ThalefangN/get-more-bw-87-sub000/checkout"
	"github.com/ThalefangN/get-more-bw-87-sub000/middleware"
	"github.com/ThalefangN/get-more-bw-87-sub000/models"
	"github.com/ThalefangN/get-more-bw-87-sub000/stores"
	"github.com/ThalefangN/get-more-bw-87-sub000/utils"
)

func RegisterShopRoutes(r *gin.Engine, authMiddleware gin.HandlerFunc, h *Handler) {
	api := r.Group("/api/v1", authMiddleware)
	{
		// Cart
		api.GET("/cart", h.GetCart)
		api.POST("/cart/items", h.AddCartItem)
		api.PUT("/cart/items/:productId", h.UpdateCartItem)
		api.DELETE("/cart/items/:productId", h.RemoveCartItem)

		// Checkout
		api.GET("/checkout", h.GetCheckout)
		api.POST("/checkout/courier", h.CheckoutCourier)
		api.POST("/checkout/payment", h.CheckoutPayment)
		api.POST("/checkout/details", h.CheckoutDetails)
		api.POST("/checkout/next", h.CheckoutNext)
		api.POST("/checkout/back", h.CheckoutBack)
		api.POST("/checkout/confirm", h.ConfirmCheckout)

		// Orders
		api.GET("/orders", ListMyOrders)
		api.GET("/orders/:id/receipt", GetOrderReceipt)
		api.GET("/couriers", ListAvailableCouriers)
	}
}

// ══════════════════════════════════════════════════════════════
// CART
// ══════════════════════════════════════════════════════════════

func cartResponse(items []models.CartItem) gin.H {
	var total float64
	for _, it := range items {
		total += float64(it.Quantity) * it.Price
	}
	return gin.H{"items": items, "total": total}
}

// GET /api/v1/cart
func (h *Handler) GetCart(c *gin.Context) {
	items, err := stores.GetCart(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, "Failed to load cart", err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, "Cart", cartResponse(items))
}

// POST /api/v1/cart/items
func (h *Handler) AddCartItem(c *gin.Context) {
	var body struct {
		ProductID string `json:"productId" binding:"required"`
		Quantity  int    `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request", err)
		return
	}
	if body.Quantity == 0 {
		body.Quantity = 1
	}

	ctx := c.Request.Context()
	userID := middleware.UserID(c)
	product, err := stores.GetProduct(ctx, body.ProductID)
	if err != nil {
		respondDomainError(c, err, "Failed to load product")
		return
	}
	err = stores.AddToCart(ctx, userID, models.CartItem{
		ProductID:   product.ID,
		ProductName: product.Name,
		StoreID:     product.StoreID,
		Quantity:    body.Quantity,
		Price:       product.Price,
	})
	if err != nil {
		respondDomainError(c, err, "Failed to add to cart")
		return
	}
	h.Checkouts.Reset(userID)
	h.respondCart(c, "Added to cart")
}

// PUT /api/v1/cart/items/:productId
func (h *Handler) UpdateCartItem(c *gin.Context) {
	var body struct {
		Quantity int `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request", err)
		return
	}
	userID := middleware.UserID(c)
	if err := stores.SetCartQuantity(c.Request.Context(), userID, c.Param("productId"), body.Quantity); err != nil {
		respondDomainError(c, err, "Failed to update cart")
		return
	}
	h.Checkouts.Reset(userID)
	h.respondCart(c, "Cart updated")
}

// DELETE /api/v1/cart/items/:productId
func (h *Handler) RemoveCartItem(c *gin.Context) {
	userID := middleware.UserID(c)
	if err := stores.RemoveFromCart(c.Request.Context(), userID, c.Param("productId")); err != nil {
		respondDomainError(c, err, "Failed to update cart")
		return
	}
	h.Checkouts.Reset(userID)
	h.respondCart(c, "Removed from cart")
}

func (h *Handler) respondCart(c *gin.Context, msg string) {
	items, err := stores.GetCart(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, "Failed to load cart", err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, msg, cartResponse(items))
}

// ══════════════════════════════════════════════════════════════
// CHECKOUT
// ══════════════════════════════════════════════════════════════

func (h *Handler) flow(c *gin.Context) (*checkout.Flow, bool) {
	f, err := h.Checkouts.Get(middleware.UserID(c))
	if err != nil {
		respondDomainError(c, err, "Failed to load checkout")
		return nil, false
	}
	return f, true
}

// GET /api/v1/checkout
// Returns the checkout in progress or starts one over the active couriers.
func (h *Handler) GetCheckout(c *gin.Context) {
	f, err := h.Checkouts.Open(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, "Failed to load couriers", err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, "Checkout", f.Snapshot())
}

// POST /api/v1/checkout/courier
func (h *Handler) CheckoutCourier(c *gin.Context) {
	var body struct {
		CourierID string `json:"courierId"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request", err)
		return
	}
	f, ok := h.flow(c)
	if !ok {
		return
	}
	if err := f.SelectCourier(body.CourierID); err != nil {
		respondDomainError(c, err, "Failed to select courier")
		return
	}
	utils.RespondSuccess(c, http.StatusOK, "Courier selected", f.Snapshot())
}

// POST /api/v1/checkout/payment
func (h *Handler) CheckoutPayment(c *gin.Context) {
	var body struct {
		Method checkout.PaymentMethod `json:"method"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request", err)
		return
	}
	f, ok := h.flow(c)
	if !ok {
		return
	}
	if err := f.ChoosePayment(body.Method); err != nil {
		respondDomainError(c, err, "Failed to set payment method")
		return
	}
	utils.RespondSuccess(c, http.StatusOK, "Payment method selected", f.Snapshot())
}

// POST /api/v1/checkout/details
func (h *Handler) CheckoutDetails(c *gin.Context) {
	var body checkout.PaymentDetails
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request", err)
		return
	}
	f, ok := h.flow(c)
	if !ok {
		return
	}
	if err := f.SubmitDetails(body); err != nil {
		respondDomainError(c, err, "Failed to save payment details")
		return
	}
	utils.RespondSuccess(c, http.StatusOK, "Payment details accepted", f.Snapshot())
}

// POST /api/v1/checkout/next
func (h *Handler) CheckoutNext(c *gin.Context) {
	f, ok := h.flow(c)
	if !ok {
		return
	}
	if _, err := f.Next(); err != nil {
		respondDomainError(c, err, "Failed to continue")
		return
	}
	utils.RespondSuccess(c, http.StatusOK, "Checkout", f.Snapshot())
}

// POST /api/v1/checkout/back
func (h *Handler) CheckoutBack(c *gin.Context) {
	f, ok := h.flow(c)
	if !ok {
		return
	}
	if _, err := f.Back(); err != nil {
		respondDomainError(c, err, "Failed to go back")
		return
	}
	utils.RespondSuccess(c, http.StatusOK, "Checkout", f.Snapshot())
}

// POST /api/v1/checkout/confirm
// The order write decides success. A failed courier notification is reported
// in the payload, not as an error.
func (h *Handler) ConfirmCheckout(c *gin.Context) {
	var body struct {
		Address string `json:"address"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request", err)
		return
	}
	ctx := c.Request.Context()
	userID := middleware.UserID(c)

	items, err := stores.GetCart(ctx, userID)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, "Failed to load cart", err)
		return
	}
	res, err := h.Checkouts.Confirm(ctx, userID, items, body.Address)
	if err != nil {
		respondDomainError(c, err, "Failed to place order")
		return
	}

	msg := "Order placed! Your courier has been notified."
	if !res.CourierNotified {
		msg = "Order placed! We could not reach your courier yet."
	}
	qr, err := receiptQR(res.Order)
	if err != nil {
		utils.Logger.Error("Failed to generate QR code", zap.String("orderId", res.OrderID), zap.Error(err))
	}
	utils.RespondSuccess(c, http.StatusCreated, msg, gin.H{
		"result":    res,
		"receiptQr": qr,
	})
}

// ══════════════════════════════════════════════════════════════
// ORDERS
// ══════════════════════════════════════════════════════════════

func receiptQR(o *models.Order) (string, error) {
	payload := fmt.Sprintf("getmore://order/%s?total=%.2f", o.ID, o.TotalAmount)
	// Create QR code (Medium redundancy)
	png, err := qrcode.Encode(payload, qrcode.Medium, 256)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// GET /api/v1/orders
func ListMyOrders(c *gin.Context) {
	orders, err := stores.ListOrdersByCustomer(c.Request.Context(), middleware.UserID(c), 50)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, "Failed to load orders", err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, "Orders", orders)
}

// GET /api/v1/orders/:id/receipt
func GetOrderReceipt(c *gin.Context) {
	order, err := stores.GetOrder(c.Request.Context(), c.Param("id"))
	if errors.Is(err, stores.ErrOrderNotFound) || (err == nil && order.CustomerID != middleware.UserID(c)) {
		utils.RespondError(c, http.StatusNotFound, "Order not found", nil)
		return
	}
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, "Failed to load order", err)
		return
	}
	qr, err := receiptQR(order)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, "Failed to generate receipt", err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, "Receipt", gin.H{
		"order":     order,
		"receiptQr": qr,
	})
}

// GET /api/v1/couriers?near=lat,lng&radiusKm=5
func ListAvailableCouriers(c *gin.Context) {
	if near := c.Query("near"); near != "" {
		lat, lng := utils.ParseLatLng(near)
		if (lat == 0 && lng == 0) || !(models.Coordinate{Lat: lat, Lng: lng}).Valid() {
			utils.RespondError(c, http.StatusBadRequest, "Invalid near coordinate", nil)
			return
		}
		radius, err := strconv.ParseFloat(c.DefaultQuery("radiusKm", "5"), 64)
		if err != nil || radius <= 0 {
			utils.RespondError(c, http.StatusBadRequest, "Invalid radiusKm", nil)
			return
		}
		nearby, err := stores.GetNearbyCouriers(c.Request.Context(), lat, lng, radius)
		if err != nil {
			utils.RespondError(c, http.StatusInternalServerError, "Failed to search nearby couriers", err)
			return
		}
		utils.RespondSuccess(c, http.StatusOK, "Nearby couriers", nearby)
		return
	}

	couriers, err := stores.ListActiveCouriers(c.Request.Context())
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, "Failed to load couriers", err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, "Couriers", couriers)
}
