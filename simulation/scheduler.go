package simulation

import (
	"sync"
	"time"
)

// FrameScheduler runs fn once on the next frame. The returned func releases
// the request; a callback already running is not interrupted.
type FrameScheduler interface {
	Schedule(fn func()) (cancel func())
}

// TickerScheduler fires each requested frame after a fixed interval.
type TickerScheduler struct {
	Interval time.Duration
}

func NewTickerScheduler(interval time.Duration) *TickerScheduler {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	return &TickerScheduler{Interval: interval}
}

func (s *TickerScheduler) Schedule(fn func()) func() {
	t := time.AfterFunc(s.Interval, fn)
	return func() { t.Stop() }
}

// ManualScheduler queues frames until Step is called.
type ManualScheduler struct {
	mu      sync.Mutex
	nextID  int
	pending map[int]func()
	order   []int
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{pending: map[int]func(){}}
}

func (m *ManualScheduler) Schedule(fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.pending[id] = fn
	m.order = append(m.order, id)
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.pending, id)
	}
}

// Step runs the frames queued before the call. Frames they schedule wait for
// the next Step. It returns how many ran.
func (m *ManualScheduler) Step() int {
	m.mu.Lock()
	order := m.order
	m.order = nil
	var due []func()
	for _, id := range order {
		if fn, ok := m.pending[id]; ok {
			due = append(due, fn)
			delete(m.pending, id)
		}
	}
	m.mu.Unlock()

	for _, fn := range due {
		fn()
	}
	return len(due)
}

func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}
