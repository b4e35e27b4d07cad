package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThalefangN/get-more-bw-87-sub000/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockOrders struct{ mock.Mock }

func (m *mockOrders) CreateOrder(ctx context.Context, o *models.Order) error {
	return m.Called(ctx, o).Error(0)
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) NotifyCourier(ctx context.Context, courierID string, o *models.Order) error {
	return m.Called(ctx, courierID, o).Error(0)
}

type mockCart struct{ mock.Mock }

func (m *mockCart) Clear(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type staticCouriers []models.Courier

func (s staticCouriers) ActiveCouriers(context.Context) ([]models.Courier, error) {
	return s, nil
}

var (
	couriers = []models.Courier{
		{ID: "c-1", Name: "Oratile", IsActive: true},
		{ID: "c-2", Name: "Kabelo", IsActive: true},
	}
	cartItems = []models.CartItem{
		{ProductID: "p-1", ProductName: "Seswaa plate", StoreID: "s-1", Quantity: 2, Price: 45.5},
		{ProductID: "p-2", ProductName: "Ginger beer", StoreID: "s-1", Quantity: 3, Price: 12},
	}
	validCard = PaymentDetails{CardNumber: "4111 1111 1111 1111", Expiry: "09/28", CVC: "123", CardName: "K Molefe"}
	validMomo = PaymentDetails{AccountName: "K Molefe", Phone: "7123 4567", Reference: "GM-001"}
)

func atConfirmation(t *testing.T, deps Deps) *Flow {
	t.Helper()
	f := NewFlow("cust-1", couriers, deps)
	require.NoError(t, f.SelectCourier("c-2"))
	_, err := f.Next()
	require.NoError(t, err)
	require.NoError(t, f.ChoosePayment(PaymentCard))
	_, err = f.Next()
	require.NoError(t, err)
	require.NoError(t, f.SubmitDetails(validCard))
	step, err := f.Next()
	require.NoError(t, err)
	require.Equal(t, StepConfirmation, step)
	return f
}

func TestValidateDetails_Card(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*PaymentDetails)
		field string
	}{
		{"valid", func(*PaymentDetails) {}, ""},
		{"15 digits", func(d *PaymentDetails) { d.CardNumber = "4111 1111 1111 111" }, "cardNumber"},
		{"17 digits", func(d *PaymentDetails) { d.CardNumber = "41111111111111112" }, "cardNumber"},
		{"letters", func(d *PaymentDetails) { d.CardNumber = "4111 1111 1111 111a" }, "cardNumber"},
		{"month 13", func(d *PaymentDetails) { d.Expiry = "13/28" }, "expiry"},
		{"month 00", func(d *PaymentDetails) { d.Expiry = "00/28" }, "expiry"},
		{"no slash", func(d *PaymentDetails) { d.Expiry = "0928" }, "expiry"},
		{"cvc 4 digits", func(d *PaymentDetails) { d.CVC = "1234" }, "cvc"},
		{"blank name", func(d *PaymentDetails) { d.CardName = "  " }, "cardName"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validCard
			tt.edit(&d)
			err := ValidateDetails(PaymentCard, d)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.field, fe.Field)
			assert.ErrorIs(t, err, ErrInvalidDetails)
		})
	}
}

func TestValidateDetails_MobileMoney(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*PaymentDetails)
		field string
	}{
		{"valid", func(*PaymentDetails) {}, ""},
		{"7 digit phone", func(d *PaymentDetails) { d.Phone = "7123456" }, "phone"},
		{"9 digit phone", func(d *PaymentDetails) { d.Phone = "712345678" }, "phone"},
		{"no name", func(d *PaymentDetails) { d.AccountName = "" }, "accountName"},
		{"no reference", func(d *PaymentDetails) { d.Reference = "" }, "reference"},
	}
	for _, method := range []PaymentMethod{PaymentOrangeMoney, PaymentMyZaka, PaymentSmega} {
		for _, tt := range tests {
			t.Run(string(method)+"/"+tt.name, func(t *testing.T) {
				d := validMomo
				tt.edit(&d)
				err := ValidateDetails(method, d)
				if tt.field == "" {
					assert.NoError(t, err)
					return
				}
				var fe *FieldError
				require.ErrorAs(t, err, &fe)
				assert.Equal(t, tt.field, fe.Field)
			})
		}
	}
}

func TestFlow_CourierMustBeFromList(t *testing.T) {
	f := NewFlow("cust-1", couriers, Deps{})

	_, err := f.Next()
	assert.ErrorIs(t, err, ErrCourierRequired)
	assert.ErrorIs(t, f.SelectCourier(""), ErrCourierRequired)
	assert.ErrorIs(t, f.SelectCourier("c-99"), ErrUnknownCourier)
	assert.Equal(t, StepCourier, f.Step())

	require.NoError(t, f.SelectCourier("c-1"))
	step, err := f.Next()
	require.NoError(t, err)
	assert.Equal(t, StepPayment, step)
}

func TestFlow_PaymentMethodEnumerated(t *testing.T) {
	f := NewFlow("cust-1", couriers, Deps{})
	require.NoError(t, f.SelectCourier("c-1"))
	_, _ = f.Next()

	assert.ErrorIs(t, f.ChoosePayment("paypal"), ErrInvalidPaymentMethod)
	_, err := f.Next()
	assert.ErrorIs(t, err, ErrInvalidPaymentMethod)
	assert.Equal(t, StepPayment, f.Step())

	require.NoError(t, f.ChoosePayment(PaymentSmega))
	step, err := f.Next()
	require.NoError(t, err)
	assert.Equal(t, StepDetails, step)
}

func TestFlow_DetailsGateAdvancement(t *testing.T) {
	t.Run("card", func(t *testing.T) {
		f := NewFlow("cust-1", couriers, Deps{})
		require.NoError(t, f.SelectCourier("c-1"))
		_, _ = f.Next()
		require.NoError(t, f.ChoosePayment(PaymentCard))
		_, _ = f.Next()

		bad := validCard
		bad.CardNumber = "411111111111111"
		assert.Error(t, f.SubmitDetails(bad))
		_, err := f.Next()
		assert.ErrorIs(t, err, ErrDetailsRequired)
		assert.Equal(t, StepDetails, f.Step())

		require.NoError(t, f.SubmitDetails(validCard))
		step, err := f.Next()
		require.NoError(t, err)
		assert.Equal(t, StepConfirmation, step)
	})

	t.Run("mobile money", func(t *testing.T) {
		f := NewFlow("cust-1", couriers, Deps{})
		require.NoError(t, f.SelectCourier("c-1"))
		_, _ = f.Next()
		require.NoError(t, f.ChoosePayment(PaymentOrangeMoney))
		_, _ = f.Next()

		bad := validMomo
		bad.Phone = "7123456"
		assert.Error(t, f.SubmitDetails(bad))
		_, err := f.Next()
		assert.ErrorIs(t, err, ErrDetailsRequired)

		require.NoError(t, f.SubmitDetails(validMomo))
		step, err := f.Next()
		require.NoError(t, err)
		assert.Equal(t, StepConfirmation, step)
	})
}

func TestFlow_SwitchingMethodDropsDetails(t *testing.T) {
	f := atConfirmation(t, Deps{})
	_, err := f.Back()
	require.NoError(t, err)
	_, err = f.Back()
	require.NoError(t, err)
	require.NoError(t, f.ChoosePayment(PaymentMyZaka))
	_, _ = f.Next()

	_, err = f.Next()
	assert.ErrorIs(t, err, ErrDetailsRequired)
	assert.False(t, f.Snapshot().DetailsComplete)
}

func TestFlow_Back(t *testing.T) {
	f := NewFlow("cust-1", couriers, Deps{})
	_, err := f.Back()
	assert.ErrorIs(t, err, ErrInvalidStep)

	f = atConfirmation(t, Deps{})
	for _, want := range []Step{StepDetails, StepPayment, StepCourier} {
		step, err := f.Back()
		require.NoError(t, err)
		assert.Equal(t, want, step)
	}
}

func TestConfirm_Success(t *testing.T) {
	orders, notifier, cart := &mockOrders{}, &mockNotifier{}, &mockCart{}
	var written *models.Order
	orders.On("CreateOrder", mock.Anything, mock.AnythingOfType("*models.Order")).
		Run(func(args mock.Arguments) { written = args.Get(1).(*models.Order) }).
		Return(nil)
	cart.On("Clear", mock.Anything, "cust-1").Return(nil)
	notifier.On("NotifyCourier", mock.Anything, "c-2", mock.Anything).Return(nil)

	f := atConfirmation(t, Deps{Orders: orders, Notifier: notifier, Cart: cart})
	res, err := f.Confirm(context.Background(), cartItems, " Plot 123, Broadhurst ")
	require.NoError(t, err)

	assert.True(t, res.OrderPlaced)
	assert.True(t, res.CourierNotified)
	assert.True(t, res.CartCleared)
	assert.NoError(t, res.NotificationErr)

	require.NotNil(t, written)
	assert.Equal(t, res.OrderID, written.ID)
	assert.Equal(t, "s-1", written.StoreID)
	assert.Equal(t, "cust-1", written.CustomerID)
	assert.Equal(t, "c-2", written.CourierAssigned)
	assert.Equal(t, models.OrderPending, written.Status)
	assert.Equal(t, "Plot 123, Broadhurst", written.Address)
	assert.Equal(t, "card", written.PaymentMethod)
	assert.Len(t, written.Items, 2)
	assert.InDelta(t, 127.0, written.TotalAmount, 1e-9)
	assert.Equal(t, StepComplete, f.Step())

	orders.AssertExpectations(t)
	cart.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestConfirm_WriteFailureHalts(t *testing.T) {
	orders, notifier, cart := &mockOrders{}, &mockNotifier{}, &mockCart{}
	orders.On("CreateOrder", mock.Anything, mock.Anything).Return(errors.New("insert failed")).Once()

	f := atConfirmation(t, Deps{Orders: orders, Notifier: notifier, Cart: cart})
	_, err := f.Confirm(context.Background(), cartItems, "Plot 123")
	assert.ErrorIs(t, err, ErrOrderWriteFailed)
	assert.Equal(t, StepConfirmation, f.Step())
	cart.AssertNotCalled(t, "Clear", mock.Anything, mock.Anything)
	notifier.AssertNotCalled(t, "NotifyCourier", mock.Anything, mock.Anything, mock.Anything)

	// retry succeeds
	orders.On("CreateOrder", mock.Anything, mock.Anything).Return(nil).Once()
	cart.On("Clear", mock.Anything, "cust-1").Return(nil)
	notifier.On("NotifyCourier", mock.Anything, "c-2", mock.Anything).Return(nil)
	res, err := f.Confirm(context.Background(), cartItems, "Plot 123")
	require.NoError(t, err)
	assert.True(t, res.OrderPlaced)
}

func TestConfirm_NotificationFailureIsSecondary(t *testing.T) {
	orders, notifier, cart := &mockOrders{}, &mockNotifier{}, &mockCart{}
	orders.On("CreateOrder", mock.Anything, mock.Anything).Return(nil)
	cart.On("Clear", mock.Anything, "cust-1").Return(nil)
	notifyErr := errors.New("notifications insert failed")
	notifier.On("NotifyCourier", mock.Anything, "c-2", mock.Anything).Return(notifyErr)

	f := atConfirmation(t, Deps{Orders: orders, Notifier: notifier, Cart: cart})
	res, err := f.Confirm(context.Background(), cartItems, "Plot 123")
	require.NoError(t, err)
	assert.True(t, res.OrderPlaced)
	assert.False(t, res.CourierNotified)
	assert.ErrorIs(t, res.NotificationErr, notifyErr)
	assert.Equal(t, StepComplete, f.Step())
}

func TestConfirm_Preconditions(t *testing.T) {
	f := NewFlow("cust-1", couriers, Deps{})
	_, err := f.Confirm(context.Background(), cartItems, "Plot 123")
	assert.ErrorIs(t, err, ErrInvalidStep)

	f = atConfirmation(t, Deps{Orders: &mockOrders{}})
	_, err = f.Confirm(context.Background(), cartItems, "   ")
	assert.ErrorIs(t, err, ErrAddressRequired)
	_, err = f.Confirm(context.Background(), nil, "Plot 123")
	assert.ErrorIs(t, err, ErrEmptyCart)
	_, err = f.Next()
	assert.ErrorIs(t, err, ErrConfirmRequired)
}

func TestManager_OneFlowPerCustomer(t *testing.T) {
	orders, cart := &mockOrders{}, &mockCart{}
	orders.On("CreateOrder", mock.Anything, mock.Anything).Return(nil)
	cart.On("Clear", mock.Anything, "cust-1").Return(nil)
	m := NewManager(staticCouriers(couriers), Deps{Orders: orders, Cart: cart}, 20*time.Millisecond)

	f1, err := m.Open(context.Background(), "cust-1")
	require.NoError(t, err)
	f2, err := m.Open(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Same(t, f1, f2)
	assert.Len(t, f1.Snapshot().Couriers, 2)

	m.Reset("cust-1")
	_, err = m.Get("cust-1")
	assert.ErrorIs(t, err, ErrFlowNotFound)

	f := atConfirmation(t, Deps{Orders: orders, Cart: cart})
	m.mu.Lock()
	m.flows["cust-1"] = f
	m.mu.Unlock()

	_, err = m.Confirm(context.Background(), "cust-1", cartItems, "Plot 123")
	require.NoError(t, err)
	got, err := m.Get("cust-1")
	require.NoError(t, err)
	assert.Equal(t, StepComplete, got.Step())

	assert.Eventually(t, func() bool {
		_, err := m.Get("cust-1")
		return errors.Is(err, ErrFlowNotFound)
	}, time.Second, 5*time.Millisecond)
}
