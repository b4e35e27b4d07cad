package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThalefangN/get-more-bw-87-sub000/booking"
	"github.com/ThalefangN/get-more-bw-87-sub000/checkout"
	"github.com/ThalefangN/get-more-bw-87-sub000/db"
	"github.com/ThalefangN/get-more-bw-87-sub000/middleware"
	"github.com/ThalefangN/get-more-bw-87-sub000/models"
	"github.com/ThalefangN/get-more-bw-87-sub000/stores"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRedis(t *testing.T) {
	t.Helper()
	mr := miniredis.RunT(t)
	prev := db.RedisClient
	db.RedisClient = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		db.RedisClient.Close()
		db.RedisClient = prev
	})
}

// testAuth trusts the X-User header so routes can be driven without tokens.
func testAuth(c *gin.Context) {
	id := c.GetHeader("X-User")
	if id == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	c.Set(middleware.ContextUserID, id)
	c.Next()
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, r http.Handler, method, path, user string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User", user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

// ══════════════════════════════════════════════════════════════
// BOOKING
// ══════════════════════════════════════════════════════════════

func bookingRouter(h *Handler) *gin.Engine {
	r := gin.New()
	RegisterBookingRoutes(r, testAuth, h)
	return r
}

func TestBookingRoutes_FareValidation(t *testing.T) {
	h := &Handler{Bookings: booking.NewManager(booking.DefaultRoster, booking.Config{}, nil)}
	r := bookingRouter(h)
	t.Cleanup(h.Bookings.CloseAll)

	code, _ := do(t, r, http.MethodGet, "/api/v1/booking", "u1", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, env := do(t, r, http.MethodPost, "/api/v1/booking/open", "u1", nil)
	require.Equal(t, http.StatusCreated, code)
	assert.True(t, env.Success)

	code, env = do(t, r, http.MethodPost, "/api/v1/booking/fare", "u1", gin.H{})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Enter a fare amount", env.Message)

	code, env = do(t, r, http.MethodPost, "/api/v1/booking/fare", "u1", gin.H{"amount": 20})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "Minimum fare is P30", env.Message)

	code, env = do(t, r, http.MethodPost, "/api/v1/booking/fare", "u1", gin.H{"amount": 40})
	require.Equal(t, http.StatusOK, code)
	var snap booking.Snapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Equal(t, booking.StateDrivers, snap.State)
	assert.Len(t, snap.Drivers, 3)

	// a second fare submission is only allowed after going back
	code, _ = do(t, r, http.MethodPost, "/api/v1/booking/fare", "u1", gin.H{"amount": 90})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = do(t, r, http.MethodPost, "/api/v1/booking/back", "u1", nil)
	require.Equal(t, http.StatusOK, code)
	code, env = do(t, r, http.MethodPost, "/api/v1/booking/fare", "u1", gin.H{"amount": 90})
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Len(t, snap.Drivers, len(booking.DefaultRoster))
}

func TestBookingRoutes_TrackingBeforeConfirmation(t *testing.T) {
	h := &Handler{Bookings: booking.NewManager(booking.DefaultRoster, booking.Config{}, nil)}
	r := bookingRouter(h)
	t.Cleanup(h.Bookings.CloseAll)

	code, _ := do(t, r, http.MethodPost, "/api/v1/booking/open", "u1", nil)
	require.Equal(t, http.StatusCreated, code)

	code, _ = do(t, r, http.MethodGet, "/api/v1/booking/simulation", "u1", nil)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = do(t, r, http.MethodGet, "/api/v1/booking/report-issue", "u1", nil)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = do(t, r, http.MethodPost, "/api/v1/booking/close", "u1", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = do(t, r, http.MethodGet, "/api/v1/booking", "u1", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

// ══════════════════════════════════════════════════════════════
// CHECKOUT
// ══════════════════════════════════════════════════════════════

type staticCouriers []models.Courier

func (s staticCouriers) ActiveCouriers(context.Context) ([]models.Courier, error) {
	return s, nil
}

type recordingOrders struct {
	mu     sync.Mutex
	orders []*models.Order
	err    error
}

func (r *recordingOrders) CreateOrder(_ context.Context, o *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.orders = append(r.orders, o)
	return nil
}

type unreachableNotifier struct{}

func (unreachableNotifier) NotifyCourier(context.Context, string, *models.Order) error {
	return errors.New("courier offline")
}

func shopRouter(h *Handler) *gin.Engine {
	r := gin.New()
	RegisterShopRoutes(r, testAuth, h)
	return r
}

func TestCheckoutRoutes_MobileMoneyOrder(t *testing.T) {
	setupRedis(t)
	ctx := context.Background()
	orders := &recordingOrders{}
	h := &Handler{Checkouts: checkout.NewManager(
		staticCouriers{{ID: "c-1", Name: "Kabelo", IsActive: true}},
		checkout.Deps{Orders: orders, Notifier: unreachableNotifier{}, Cart: stores.RedisCart{}},
		time.Hour,
	)}
	r := shopRouter(h)

	require.NoError(t, stores.AddToCart(ctx, "u1", models.CartItem{
		ProductID: "p-1", ProductName: "Seswaa", StoreID: "s-1", Quantity: 2, Price: 25.5,
	}))

	code, _ := do(t, r, http.MethodPost, "/api/v1/checkout/next", "u1", nil)
	assert.Equal(t, http.StatusNotFound, code, "no flow before GET /checkout")

	code, env := do(t, r, http.MethodGet, "/api/v1/checkout", "u1", nil)
	require.Equal(t, http.StatusOK, code)
	var snap checkout.Snapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Equal(t, checkout.StepCourier, snap.Step)
	assert.Len(t, snap.Couriers, 1)

	code, _ = do(t, r, http.MethodPost, "/api/v1/checkout/next", "u1", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _ = do(t, r, http.MethodPost, "/api/v1/checkout/courier", "u1", gin.H{"courierId": "c-9"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _ = do(t, r, http.MethodPost, "/api/v1/checkout/courier", "u1", gin.H{"courierId": "c-1"})
	require.Equal(t, http.StatusOK, code)
	code, _ = do(t, r, http.MethodPost, "/api/v1/checkout/next", "u1", nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = do(t, r, http.MethodPost, "/api/v1/checkout/payment", "u1", gin.H{"method": "paypal"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	code, _ = do(t, r, http.MethodPost, "/api/v1/checkout/payment", "u1", gin.H{"method": "smega"})
	require.Equal(t, http.StatusOK, code)
	code, _ = do(t, r, http.MethodPost, "/api/v1/checkout/next", "u1", nil)
	require.Equal(t, http.StatusOK, code)

	code, env = do(t, r, http.MethodPost, "/api/v1/checkout/details", "u1", gin.H{
		"accountName": "Neo Sebego", "phone": "7123456", "reference": "INV-1",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "Phone number must be 8 digits", env.Message)
	assert.JSONEq(t, `{"field":"phone"}`, string(env.Data))

	code, _ = do(t, r, http.MethodPost, "/api/v1/checkout/details", "u1", gin.H{
		"accountName": "Neo Sebego", "phone": "71 234 567", "reference": "INV-1",
	})
	require.Equal(t, http.StatusOK, code)
	code, _ = do(t, r, http.MethodPost, "/api/v1/checkout/next", "u1", nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = do(t, r, http.MethodPost, "/api/v1/checkout/confirm", "u1", gin.H{"address": "  "})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, env = do(t, r, http.MethodPost, "/api/v1/checkout/confirm", "u1", gin.H{"address": "Plot 123, Broadhurst"})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "Order placed! We could not reach your courier yet.", env.Message)

	var placed struct {
		Result    checkout.Result `json:"result"`
		ReceiptQR string          `json:"receiptQr"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &placed))
	assert.True(t, placed.Result.OrderPlaced)
	assert.False(t, placed.Result.CourierNotified)
	assert.True(t, placed.Result.CartCleared)
	assert.Contains(t, placed.ReceiptQR, "data:image/png;base64,")

	require.Len(t, orders.orders, 1)
	assert.Equal(t, 51.0, orders.orders[0].TotalAmount)
	assert.Equal(t, "c-1", orders.orders[0].CourierAssigned)
	assert.Equal(t, "smega", orders.orders[0].PaymentMethod)

	items, err := stores.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCheckoutRoutes_WriteFailureKeepsCart(t *testing.T) {
	setupRedis(t)
	ctx := context.Background()
	orders := &recordingOrders{err: errors.New("connection reset")}
	h := &Handler{Checkouts: checkout.NewManager(
		staticCouriers{{ID: "c-1", IsActive: true}},
		checkout.Deps{Orders: orders, Cart: stores.RedisCart{}},
		time.Hour,
	)}
	r := shopRouter(h)

	require.NoError(t, stores.AddToCart(ctx, "u1", models.CartItem{
		ProductID: "p-1", StoreID: "s-1", Quantity: 1, Price: 10,
	}))

	do(t, r, http.MethodGet, "/api/v1/checkout", "u1", nil)
	do(t, r, http.MethodPost, "/api/v1/checkout/courier", "u1", gin.H{"courierId": "c-1"})
	do(t, r, http.MethodPost, "/api/v1/checkout/next", "u1", nil)
	do(t, r, http.MethodPost, "/api/v1/checkout/payment", "u1", gin.H{"method": "card"})
	do(t, r, http.MethodPost, "/api/v1/checkout/next", "u1", nil)
	do(t, r, http.MethodPost, "/api/v1/checkout/details", "u1", gin.H{
		"cardNumber": "4111 1111 1111 1111", "expiry": "09/27", "cvc": "123", "cardName": "K Molefe",
	})
	code, _ := do(t, r, http.MethodPost, "/api/v1/checkout/next", "u1", nil)
	require.Equal(t, http.StatusOK, code)

	code, env := do(t, r, http.MethodPost, "/api/v1/checkout/confirm", "u1", gin.H{"address": "Plot 9"})
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Failed to place order. Please try again.", env.Message)

	code, env = do(t, r, http.MethodGet, "/api/v1/checkout", "u1", nil)
	require.Equal(t, http.StatusOK, code)
	var snap checkout.Snapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Equal(t, checkout.StepConfirmation, snap.Step)

	items, err := stores.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestCartRoutes_ChangeResetsCheckout(t *testing.T) {
	setupRedis(t)
	ctx := context.Background()
	h := &Handler{Checkouts: checkout.NewManager(
		staticCouriers{{ID: "c-1", IsActive: true}}, checkout.Deps{}, time.Hour,
	)}
	r := shopRouter(h)

	require.NoError(t, stores.AddToCart(ctx, "u1", models.CartItem{
		ProductID: "p-1", StoreID: "s-1", Quantity: 3, Price: 12,
	}))
	code, _ := do(t, r, http.MethodGet, "/api/v1/checkout", "u1", nil)
	require.Equal(t, http.StatusOK, code)

	code, env := do(t, r, http.MethodPut, "/api/v1/cart/items/p-1", "u1", gin.H{"quantity": 1})
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"items":[{"productId":"p-1","productName":"","storeId":"s-1","quantity":1,"price":12}],"total":12}`, string(env.Data))

	_, err := h.Checkouts.Get("u1")
	assert.ErrorIs(t, err, checkout.ErrFlowNotFound)

	code, _ = do(t, r, http.MethodDelete, "/api/v1/cart/items/p-9", "u1", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRespondDomainError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"wrapped sentinel", errors.Join(errors.New("ctx"), stores.ErrDeliveryTaken), http.StatusConflict, stores.ErrDeliveryTaken.Error()},
		{"fare", booking.ErrFareTooLow, http.StatusUnprocessableEntity, "Minimum fare is P30"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondDomainError(c, tt.err, "fallback")

			assert.Equal(t, tt.code, w.Code)
			var env envelope
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
			assert.False(t, env.Success)
			assert.Equal(t, tt.msg, env.Message)
		})
	}
}
