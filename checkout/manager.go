package checkout

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ThalefangN/get-more-bw-87-sub000/models"
)

// DefaultAcknowledgement is how long a completed flow stays readable so the
// client can show the success message before it is dropped.
const DefaultAcknowledgement = 3 * time.Second

var ErrFlowNotFound = errors.New("no checkout in progress")

type CourierDirectory interface {
	ActiveCouriers(ctx context.Context) ([]models.Courier, error)
}

// Manager keeps one checkout per customer.
type Manager struct {
	couriers CourierDirectory
	deps     Deps
	ack      time.Duration

	mu    sync.Mutex
	flows map[string]*Flow
}

func NewManager(couriers CourierDirectory, deps Deps, ack time.Duration) *Manager {
	if ack <= 0 {
		ack = DefaultAcknowledgement
	}
	return &Manager{
		couriers: couriers,
		deps:     deps,
		ack:      ack,
		flows:    map[string]*Flow{},
	}
}

// Open returns the customer's flow, starting one over the current active
// couriers if none is in progress.
func (m *Manager) Open(ctx context.Context, customerID string) (*Flow, error) {
	m.mu.Lock()
	if f, ok := m.flows[customerID]; ok && !f.Step().IsTerminal() {
		m.mu.Unlock()
		return f, nil
	}
	m.mu.Unlock()

	couriers, err := m.couriers.ActiveCouriers(ctx)
	if err != nil {
		return nil, err
	}
	f := NewFlow(customerID, couriers, m.deps)

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.flows[customerID]; ok && !existing.Step().IsTerminal() {
		return existing, nil
	}
	m.flows[customerID] = f
	return f, nil
}

func (m *Manager) Get(customerID string) (*Flow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.flows[customerID]
	if !ok {
		return nil, ErrFlowNotFound
	}
	return f, nil
}

// Reset drops the customer's flow. Called whenever the cart changes.
func (m *Manager) Reset(customerID string) {
	m.mu.Lock()
	delete(m.flows, customerID)
	m.mu.Unlock()
}

// Confirm places the order on the customer's flow and schedules the completed
// flow to be dropped after the acknowledgement window.
func (m *Manager) Confirm(ctx context.Context, customerID string, items []models.CartItem, address string) (*Result, error) {
	f, err := m.Get(customerID)
	if err != nil {
		return nil, err
	}
	res, err := f.Confirm(ctx, items, address)
	if err != nil {
		return nil, err
	}
	time.AfterFunc(m.ack, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.flows[customerID] == f {
			delete(m.flows, customerID)
		}
	})
	return res, nil
}
