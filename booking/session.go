// Package booking drives a cab booking from fare entry to a confirmed driver,
// then tracks the driver's approach.
package booking

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ThalefangN/get-more-bw-87-sub000/models"
	"github.com/ThalefangN/get-more-bw-87-sub000/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type State string

const (
	StateFare       State = "fare"
	StateDrivers    State = "drivers"
	StateConnecting State = "connecting"
	StateConfirmed  State = "confirmed"
)

const DefaultCountdown = 5

var (
	ErrFareTooLow      = fmt.Errorf("Minimum fare is P%d", MinimumFare)
	ErrInvalidState    = errors.New("action not allowed in the current booking state")
	ErrUnknownDriver   = errors.New("driver is not in the offered list")
	ErrSessionClosed   = errors.New("booking session closed")
	ErrSessionNotFound = errors.New("no open booking session")
)

// Snapshot is a copy of the session's visible state.
type Snapshot struct {
	ID                string             `json:"id"`
	UserID            string             `json:"userId"`
	State             State              `json:"state"`
	Fare              float64            `json:"fare,omitempty"`
	Drivers           []models.Driver    `json:"drivers,omitempty"`
	SelectedDriver    *models.Driver     `json:"selectedDriver,omitempty"`
	DisplayLocation   *models.Coordinate `json:"displayLocation,omitempty"`
	Countdown         int                `json:"countdown"`
	TrackingAvailable bool               `json:"trackingAvailable"`
	Closed            bool               `json:"closed"`
}

type Config struct {
	Roster       []models.Driver
	Tickers      TickerFactory
	Countdown    int
	Rand         func() float64
	SupportEmail string
}

// Session is one pass through the booking flow. Every timer it starts is
// stopped by Close.
type Session struct {
	id     string
	userID string
	cfg    Config

	mu              sync.Mutex
	state           State
	fare            float64
	offered         []models.Driver
	selected        *models.Driver
	displayLocation *models.Coordinate
	countdown       int
	closed          bool
	stopCountdown   chan struct{}

	listeners  map[int]func(Snapshot)
	listenerID int

	tracking *trackingState
}

func NewSession(userID string, cfg Config) *Session {
	if cfg.Tickers == nil {
		cfg.Tickers = RealTickers{}
	}
	if cfg.Countdown <= 0 {
		cfg.Countdown = DefaultCountdown
	}
	if cfg.Roster == nil {
		cfg.Roster = DefaultRoster
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.Float64
	}
	return &Session{
		id:        uuid.NewString(),
		userID:    userID,
		cfg:       cfg,
		state:     StateFare,
		listeners: map[int]func(Snapshot){},
	}
}

func (s *Session) ID() string     { return s.id }
func (s *Session) UserID() string { return s.userID }

// OnChange registers fn for every transition and countdown tick. The returned
// func unregisters it.
func (s *Session) OnChange(fn func(Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.listenerID
	s.listenerID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:                s.id,
		UserID:            s.userID,
		State:             s.state,
		Fare:              s.fare,
		Drivers:           append([]models.Driver(nil), s.offered...),
		Countdown:         s.countdown,
		TrackingAvailable: s.state == StateConfirmed && !s.closed,
		Closed:            s.closed,
	}
	if s.selected != nil {
		d := *s.selected
		snap.SelectedDriver = &d
	}
	if s.displayLocation != nil {
		loc := *s.displayLocation
		snap.DisplayLocation = &loc
	}
	return snap
}

// emit must be called without holding mu.
func (s *Session) emit(snap Snapshot) {
	s.mu.Lock()
	fns := make([]func(Snapshot), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

// SubmitFare offers the driver tier for the budget. Below the minimum the
// session stays in fare.
func (s *Session) SubmitFare(amount float64) (Snapshot, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Snapshot{}, ErrSessionClosed
	}
	if s.state != StateFare {
		s.mu.Unlock()
		return Snapshot{}, ErrInvalidState
	}
	if math.IsNaN(amount) || amount < MinimumFare {
		s.mu.Unlock()
		return Snapshot{}, ErrFareTooLow
	}
	s.fare = amount
	s.offered = DriversForFare(amount, s.cfg.Roster)
	s.state = StateDrivers
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.emit(snap)
	return snap, nil
}

// Back returns from the driver list to fare entry.
func (s *Session) Back() (Snapshot, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Snapshot{}, ErrSessionClosed
	}
	if s.state != StateDrivers {
		s.mu.Unlock()
		return Snapshot{}, ErrInvalidState
	}
	s.state = StateFare
	s.offered = nil
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.emit(snap)
	return snap, nil
}

// SelectDriver picks an offered driver and starts the connecting countdown.
// With a known user location the driver is shown at a jittered spot near the
// user; the roster record is never changed.
func (s *Session) SelectDriver(driverID string, userLocation *models.Coordinate) (Snapshot, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Snapshot{}, ErrSessionClosed
	}
	if s.state != StateDrivers {
		s.mu.Unlock()
		return Snapshot{}, ErrInvalidState
	}

	var chosen *models.Driver
	for i := range s.offered {
		if s.offered[i].ID == driverID {
			d := s.offered[i]
			chosen = &d
			break
		}
	}
	if chosen == nil {
		s.mu.Unlock()
		return Snapshot{}, ErrUnknownDriver
	}

	display := chosen.Location
	if userLocation != nil {
		display = PresentationJitter(*userLocation, s.cfg.Rand)
	}
	s.selected = chosen
	s.displayLocation = &display
	s.state = StateConnecting
	s.countdown = s.cfg.Countdown

	stop := make(chan struct{})
	s.stopCountdown = stop
	ticker := s.cfg.Tickers.NewTicker(time.Second)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.emit(snap)
	go s.runCountdown(ticker, stop)
	return snap, nil
}

func (s *Session) runCountdown(ticker Ticker, stop chan struct{}) {
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
		}

		s.mu.Lock()
		if s.closed || s.state != StateConnecting {
			s.mu.Unlock()
			return
		}
		s.countdown--
		done := s.countdown <= 0
		if done {
			s.countdown = 0
			s.state = StateConfirmed
			s.stopCountdown = nil
		}
		snap := s.snapshotLocked()
		s.mu.Unlock()

		s.emit(snap)
		if done {
			utils.Logger.Info("Booking confirmed",
				zap.String("sessionId", s.id), zap.String("driverId", snap.SelectedDriver.ID))
			return
		}
	}
}

// ReportIssueLink builds a prefilled mail composer link for the confirmed ride.
func (s *Session) ReportIssueLink() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConfirmed || s.selected == nil {
		return "", ErrInvalidState
	}
	subject := "Issue with my cab booking " + s.id[:8]
	body := fmt.Sprintf("Driver: %s\nCar: %s (%s)\nFare: P%.2f\nBooking: %s\n\nDescribe the issue:\n",
		s.selected.Name, s.selected.Car, s.selected.CabType, s.fare, s.id)
	return utils.MailtoLink(s.cfg.SupportEmail, subject, body), nil
}

// Close ends the session. A running countdown is cancelled, as is any
// tracking the session owns. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.stopCountdown != nil {
		close(s.stopCountdown)
		s.stopCountdown = nil
	}
	tracking := s.tracking
	s.tracking = nil
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if tracking != nil {
		tracking.stop()
	}
	s.emit(snap)
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
