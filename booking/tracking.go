package booking

import (
	"context"
	"errors"
	"time"

	"github.com/ThalefangN/get-more-bw-87-sub000/models"
	"github.com/ThalefangN/get-more-bw-87-sub000/routing"
	"github.com/ThalefangN/get-more-bw-87-sub000/simulation"
	"github.com/ThalefangN/get-more-bw-87-sub000/utils"

	"go.uber.org/zap"
)

var ErrTrackingNotStarted = errors.New("tracking has not been started")

type RouteComputer interface {
	ComputeRoute(ctx context.Context, req routing.Request) routing.Result
}

// ApproachSink receives the driver's approach as it is simulated.
type ApproachSink interface {
	DriverPosition(userID string, f simulation.Frame)
	DriverArrived(userID string, f simulation.Frame)
	ETATick(userID string, remainingSeconds int)
	ArrivalChime(userID string) error
}

type Tracking struct {
	Driver         models.Driver       `json:"driver"`
	DriverLocation models.Coordinate   `json:"driverLocation"`
	UserLocation   models.Coordinate   `json:"userLocation"`
	Route          []models.Coordinate `json:"route"`
	Approximate    bool                `json:"approximate"`
	CallLink       string              `json:"callLink"`
	WhatsAppLink   string              `json:"whatsAppLink"`
	DistanceKm     float64             `json:"distanceKm"`
}

type ApproachOptions struct {
	Duration  time.Duration
	Scheduler simulation.FrameScheduler
	Clock     func() time.Time
	Marker    simulation.MarkerSink
	Sink      ApproachSink
}

type trackingState struct {
	info Tracking
	sim  *simulation.Simulation
	eta  chan struct{}
}

func (t *trackingState) stop() {
	if t.sim != nil {
		t.sim.Stop()
	}
	if t.eta != nil {
		close(t.eta)
		t.eta = nil
	}
}

// StartTracking computes the driver to user route for a confirmed booking. A
// result that arrives after the session was closed is dropped.
func (s *Session) StartTracking(ctx context.Context, rc RouteComputer, userLocation models.Coordinate) (*Tracking, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if s.state != StateConfirmed || s.selected == nil || s.displayLocation == nil {
		s.mu.Unlock()
		return nil, ErrInvalidState
	}
	driver := *s.selected
	origin := *s.displayLocation
	s.mu.Unlock()

	res := rc.ComputeRoute(ctx, routing.Request{
		UserID:      s.userID,
		DriverID:    driver.ID,
		Origin:      origin,
		Destination: userLocation,
	})

	info := Tracking{
		Driver:         driver,
		DriverLocation: origin,
		UserLocation:   userLocation,
		Route:          res.Points,
		Approximate:    res.Approximate,
		CallLink:       utils.TelLink(driver.Phone),
		WhatsAppLink:   utils.WhatsAppLink(driver.Phone, "Hi "+driver.Name+", I'm waiting at the pickup point."),
		DistanceKm:     utils.CalculateDistance(origin.Lat, origin.Lng, userLocation.Lat, userLocation.Lng),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		utils.Logger.Debug("Discarding route for closed booking", zap.String("sessionId", s.id))
		return nil, ErrSessionClosed
	}
	prev := s.tracking
	s.tracking = &trackingState{info: info}
	s.mu.Unlock()

	// the route changed, so any running approach is against a stale path
	if prev != nil {
		prev.stop()
	}
	return &info, nil
}

func (s *Session) Tracking() (*Tracking, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracking == nil {
		return nil, false
	}
	info := s.tracking.info
	return &info, true
}

// WatchApproach animates the driver along the tracking route and runs an
// independent one-second ETA countdown. Both stop on arrival or Close.
func (s *Session) WatchApproach(opts ApproachOptions) (*simulation.Simulation, error) {
	if opts.Duration <= 0 {
		opts.Duration = simulation.DefaultDuration
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	t := s.tracking
	if t == nil {
		s.mu.Unlock()
		return nil, ErrTrackingNotStarted
	}
	if t.sim != nil {
		t.sim.Stop()
	}
	if t.eta != nil {
		close(t.eta)
		t.eta = nil
	}

	userID := s.userID
	sink := opts.Sink
	simOpts := simulation.Options{
		Clock:     opts.Clock,
		Scheduler: opts.Scheduler,
		Marker:    opts.Marker,
	}
	if sink != nil {
		simOpts.OnFrame = func(f simulation.Frame) {
			if !f.Arrived {
				sink.DriverPosition(userID, f)
			}
		}
		simOpts.OnArrival = func(f simulation.Frame) { sink.DriverArrived(userID, f) }
		simOpts.ArrivalCue = func() error { return sink.ArrivalChime(userID) }
	}

	sim, err := simulation.Start(t.info.Route, t.info.UserLocation, opts.Duration, simOpts)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	t.sim = sim

	stopETA := make(chan struct{})
	t.eta = stopETA
	ticker := s.cfg.Tickers.NewTicker(time.Second)
	s.mu.Unlock()

	go s.runETA(ticker, stopETA, sim, int(opts.Duration/time.Second), sink)
	return sim, nil
}

func (s *Session) runETA(ticker Ticker, stop chan struct{}, sim *simulation.Simulation, remaining int, sink ApproachSink) {
	defer ticker.Stop()
	for remaining > 0 {
		select {
		case <-stop:
			return
		case <-sim.Done():
			return
		case <-ticker.C():
		}
		remaining--
		if sink != nil {
			sink.ETATick(s.userID, remaining)
		}
	}
}

// Simulation reports the state of the running approach, if any.
func (s *Session) Simulation() (simulation.State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracking == nil || s.tracking.sim == nil {
		return simulation.State{}, false
	}
	return s.tracking.sim.Snapshot(), true
}
