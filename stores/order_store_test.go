package stores

import (
	"context"
	"os"
	"testing"

	"github.com/ThalefangN/get-more-bw-87-sub000/db"
	"github.com/ThalefangN/get-more-bw-87-sub000/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupPostgres connects to TEST_DATABASE_URL and migrates it; these tests
// are skipped when no database is available.
func setupPostgres(t *testing.T) context.Context {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping postgres integration test")
	}
	ctx := context.Background()
	require.NoError(t, db.Connect(ctx, url))
	require.NoError(t, db.Migrate(ctx))
	t.Cleanup(db.Close)
	return ctx
}

func seedStore(t *testing.T, ctx context.Context) string {
	t.Helper()
	var id string
	require.NoError(t, db.Pool.QueryRow(ctx,
		`INSERT INTO stores (owner_id, name) VALUES ($1, 'Test Store') RETURNING id`, uuid.NewString()).Scan(&id))
	return id
}

func newTestOrder(storeID string) *models.Order {
	return &models.Order{
		ID:         uuid.NewString(),
		StoreID:    storeID,
		CustomerID: "cust-" + uuid.NewString(),
		Items: []models.OrderItem{
			{ProductID: "p1", ProductName: "Maize meal 10kg", Quantity: 2, Price: 89.99},
		},
		TotalAmount:     179.98,
		Address:         "Plot 123, Broadhurst",
		Status:          models.OrderPending,
		CourierAssigned: "courier-1",
		PaymentMethod:   "orange_money",
	}
}

func TestOrderStore_CreateAndGet(t *testing.T) {
	ctx := setupPostgres(t)
	storeID := seedStore(t, ctx)

	o := newTestOrder(storeID)
	require.NoError(t, CreateOrder(ctx, o))
	assert.False(t, o.CreatedAt.IsZero())

	got, err := GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.Items, got.Items)
	assert.Equal(t, models.OrderPending, got.Status)
	assert.Nil(t, got.AcceptedBy)

	// the id is a one-time token
	assert.Error(t, CreateOrder(ctx, o))

	_, err = GetOrder(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderStore_StoreTransitions(t *testing.T) {
	ctx := setupPostgres(t)
	storeID := seedStore(t, ctx)
	o := newTestOrder(storeID)
	require.NoError(t, CreateOrder(ctx, o))

	_, err := UpdateStoreOrderStatus(ctx, "other-store", o.ID, models.OrderApproved)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	updated, err := UpdateStoreOrderStatus(ctx, storeID, o.ID, models.OrderApproved)
	require.NoError(t, err)
	assert.Equal(t, models.OrderApproved, updated.Status)

	_, err = UpdateStoreOrderStatus(ctx, storeID, o.ID, models.OrderDeclined)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestOrderStore_AcceptDeliveryIsCompareAndSet(t *testing.T) {
	ctx := setupPostgres(t)
	storeID := seedStore(t, ctx)
	o := newTestOrder(storeID)
	require.NoError(t, CreateOrder(ctx, o))

	_, err := AcceptDelivery(ctx, o.ID, "courier-1")
	assert.ErrorIs(t, err, ErrDeliveryTaken, "pending orders cannot be accepted")

	_, err = UpdateStoreOrderStatus(ctx, storeID, o.ID, models.OrderApproved)
	require.NoError(t, err)

	results := make(chan error, 2)
	for _, courier := range []string{"courier-1", "courier-2"} {
		go func(c string) {
			_, err := AcceptDelivery(ctx, o.ID, c)
			results <- err
		}(courier)
	}
	var wins, taken int
	for i := 0; i < 2; i++ {
		switch err := <-results; err {
		case nil:
			wins++
		case ErrDeliveryTaken:
			taken++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, taken)

	got, err := GetOrder(ctx, o.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AcceptedBy)
	assert.Equal(t, models.OrderDelivering, got.Status)

	_, err = CompleteDelivery(ctx, o.ID, "someone-else")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	done, err := CompleteDelivery(ctx, o.ID, *got.AcceptedBy)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCompleted, done.Status)

	_, err = AcceptDelivery(ctx, uuid.NewString(), "courier-1")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
