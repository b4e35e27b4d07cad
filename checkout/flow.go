// Package checkout walks a customer from courier choice to a placed order.
// The order write is the only step that can fail the flow; the courier
// notification is reported separately in Result.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/ThalefangN/get-more-bw-87-sub000/models"
	"github.com/ThalefangN/get-more-bw-87-sub000/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Step string

const (
	StepCourier      Step = "courier"
	StepPayment      Step = "payment"
	StepDetails      Step = "details"
	StepConfirmation Step = "confirmation"
	StepComplete     Step = "complete"
)

func (s Step) IsTerminal() bool { return s == StepComplete }

var (
	ErrInvalidStep          = errors.New("action not allowed at the current checkout step")
	ErrCourierRequired      = errors.New("select a courier to continue")
	ErrUnknownCourier       = errors.New("courier is not available")
	ErrInvalidPaymentMethod = errors.New("unsupported payment method")
	ErrDetailsRequired      = errors.New("enter valid payment details to continue")
	ErrConfirmRequired      = errors.New("confirm the order to continue")
	ErrAddressRequired      = errors.New("delivery address is required")
	ErrEmptyCart            = errors.New("cart is empty")
	ErrConfirmInProgress    = errors.New("order is already being placed")
	ErrOrderWriteFailed     = errors.New("failed to place order")
)

type OrderWriter interface {
	CreateOrder(ctx context.Context, o *models.Order) error
}

type CourierNotifier interface {
	NotifyCourier(ctx context.Context, courierID string, o *models.Order) error
}

type CartClearer interface {
	Clear(ctx context.Context, userID string) error
}

// Result separates the order write from the courier notification so the
// caller decides how to word a partial success.
type Result struct {
	OrderID         string        `json:"orderId"`
	Order           *models.Order `json:"order"`
	OrderPlaced     bool          `json:"orderPlaced"`
	CourierNotified bool          `json:"courierNotified"`
	NotificationErr error         `json:"-"`
	CartCleared     bool          `json:"cartCleared"`
}

type Deps struct {
	Orders   OrderWriter
	Notifier CourierNotifier
	Cart     CartClearer
}

type Snapshot struct {
	CustomerID      string           `json:"customerId"`
	Step            Step             `json:"step"`
	Couriers        []models.Courier `json:"couriers"`
	CourierID       string           `json:"courierId,omitempty"`
	PaymentMethod   PaymentMethod    `json:"paymentMethod,omitempty"`
	DetailsComplete bool             `json:"detailsComplete"`
	OrderID         string           `json:"orderId,omitempty"`
}

type Flow struct {
	customerID string
	couriers   []models.Courier
	deps       Deps

	mu         sync.Mutex
	step       Step
	courierID  string
	method     PaymentMethod
	details    *PaymentDetails
	confirming bool
	orderID    string
}

// NewFlow starts at courier selection over the couriers fetched for it.
func NewFlow(customerID string, couriers []models.Courier, deps Deps) *Flow {
	return &Flow{
		customerID: customerID,
		couriers:   append([]models.Courier(nil), couriers...),
		deps:       deps,
		step:       StepCourier,
	}
}

func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Snapshot{
		CustomerID:      f.customerID,
		Step:            f.step,
		Couriers:        append([]models.Courier(nil), f.couriers...),
		CourierID:       f.courierID,
		PaymentMethod:   f.method,
		DetailsComplete: f.details != nil,
		OrderID:         f.orderID,
	}
}

func (f *Flow) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

func (f *Flow) SelectCourier(courierID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != StepCourier {
		return ErrInvalidStep
	}
	if courierID == "" {
		return ErrCourierRequired
	}
	for _, c := range f.couriers {
		if c.ID == courierID {
			f.courierID = courierID
			return nil
		}
	}
	return ErrUnknownCourier
}

// ChoosePayment sets the method. Switching methods drops details entered for
// the previous one.
func (f *Flow) ChoosePayment(method PaymentMethod) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != StepPayment {
		return ErrInvalidStep
	}
	if !method.Valid() {
		return ErrInvalidPaymentMethod
	}
	if f.method != method {
		f.details = nil
	}
	f.method = method
	return nil
}

// SubmitDetails stores d only when it validates for the chosen method; an
// invalid submission also clears an earlier valid one.
func (f *Flow) SubmitDetails(d PaymentDetails) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != StepDetails {
		return ErrInvalidStep
	}
	if err := ValidateDetails(f.method, d); err != nil {
		f.details = nil
		return err
	}
	f.details = &d
	return nil
}

// Next advances one step when the current step's requirement holds.
func (f *Flow) Next() (Step, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.step {
	case StepCourier:
		if f.courierID == "" {
			return f.step, ErrCourierRequired
		}
		f.step = StepPayment
	case StepPayment:
		if !f.method.Valid() {
			return f.step, ErrInvalidPaymentMethod
		}
		f.step = StepDetails
	case StepDetails:
		if f.details == nil {
			return f.step, ErrDetailsRequired
		}
		f.step = StepConfirmation
	case StepConfirmation:
		return f.step, ErrConfirmRequired
	default:
		return f.step, ErrInvalidStep
	}
	return f.step, nil
}

func (f *Flow) Back() (Step, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.confirming {
		return f.step, ErrConfirmInProgress
	}
	switch f.step {
	case StepPayment:
		f.step = StepCourier
	case StepDetails:
		f.step = StepPayment
	case StepConfirmation:
		f.step = StepDetails
	default:
		return f.step, ErrInvalidStep
	}
	return f.step, nil
}

// BuildOrder turns cart lines into a pending order. The total is rounded to
// thebe.
func BuildOrder(customerID, courierID string, method PaymentMethod, items []models.CartItem, address string) *models.Order {
	o := &models.Order{
		ID:              uuid.NewString(),
		CustomerID:      customerID,
		Address:         address,
		Status:          models.OrderPending,
		CourierAssigned: courierID,
		PaymentMethod:   string(method),
		Items:           make([]models.OrderItem, 0, len(items)),
	}
	var total float64
	for _, it := range items {
		if o.StoreID == "" {
			o.StoreID = it.StoreID
		}
		o.Items = append(o.Items, models.OrderItem{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       it.Price,
		})
		total += float64(it.Quantity) * it.Price
	}
	o.TotalAmount = math.Round(total*100) / 100
	return o
}

// Confirm places the order. A failed write leaves the flow on confirmation so
// the customer can retry. The cart is cleared and the courier notified only
// after the write succeeds; neither can fail the result.
func (f *Flow) Confirm(ctx context.Context, items []models.CartItem, address string) (*Result, error) {
	address = strings.TrimSpace(address)

	f.mu.Lock()
	if f.step != StepConfirmation {
		f.mu.Unlock()
		return nil, ErrInvalidStep
	}
	if f.confirming {
		f.mu.Unlock()
		return nil, ErrConfirmInProgress
	}
	if address == "" {
		f.mu.Unlock()
		return nil, ErrAddressRequired
	}
	if len(items) == 0 {
		f.mu.Unlock()
		return nil, ErrEmptyCart
	}
	f.confirming = true
	order := BuildOrder(f.customerID, f.courierID, f.method, items, address)
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.confirming = false
		f.mu.Unlock()
	}()

	if err := f.deps.Orders.CreateOrder(ctx, order); err != nil {
		utils.Logger.Error("Order write failed",
			zap.String("customerId", f.customerID), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrOrderWriteFailed, err)
	}

	res := &Result{OrderID: order.ID, Order: order, OrderPlaced: true}

	if f.deps.Cart != nil {
		if err := f.deps.Cart.Clear(ctx, f.customerID); err != nil {
			utils.Logger.Warn("Failed to clear cart after order",
				zap.String("orderId", order.ID), zap.Error(err))
		} else {
			res.CartCleared = true
		}
	}

	if f.deps.Notifier != nil {
		if err := f.deps.Notifier.NotifyCourier(ctx, order.CourierAssigned, order); err != nil {
			utils.Logger.Warn("Courier notification failed",
				zap.String("orderId", order.ID), zap.String("courierId", order.CourierAssigned), zap.Error(err))
			res.NotificationErr = err
		} else {
			res.CourierNotified = true
		}
	}

	f.mu.Lock()
	f.step = StepComplete
	f.orderID = order.ID
	f.details = nil
	f.mu.Unlock()

	utils.Logger.Info("Order placed",
		zap.String("orderId", order.ID), zap.String("storeId", order.StoreID),
		zap.Float64("total", order.TotalAmount), zap.Bool("courierNotified", res.CourierNotified))
	return res, nil
}
