// Package simulation moves a vehicle marker along a route over a fixed
// wall-clock window. Progress is time-driven, not speed-driven.
package simulation

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/ThalefangN/get-more-bw-87-sub000/models"
	"github.com/ThalefangN/get-more-bw-87-sub000/utils"

	"go.uber.org/zap"
)

// DefaultDuration is the approach window used regardless of route length.
const DefaultDuration = 2 * time.Minute

var (
	ErrNoRouteAvailable = errors.New("no route available")
	ErrInvalidDuration  = errors.New("simulation duration must be positive")
)

// Progress is elapsed/duration clamped to [0, 1].
func Progress(elapsed, duration time.Duration) float64 {
	if duration <= 0 || elapsed >= duration {
		return 1
	}
	if elapsed <= 0 {
		return 0
	}
	return float64(elapsed) / float64(duration)
}

// RouteIndex maps progress onto a point index of an n-point route.
func RouteIndex(progress float64, n int) int {
	if n <= 1 {
		return 0
	}
	idx := int(math.Floor(progress * float64(n-1)))
	if idx < 0 {
		return 0
	}
	if idx > n-1 {
		return n - 1
	}
	return idx
}

type Frame struct {
	Position        models.Coordinate `json:"position"`
	HeadingDegrees  float64           `json:"headingDegrees"`
	ProgressPercent float64           `json:"progressPercent"`
	RouteIndex      int               `json:"routeIndex"`
	Arrived         bool              `json:"arrived"`
}

// MarkerSink receives marker updates for whatever renders the map.
type MarkerSink interface {
	MoveVehicle(pos models.Coordinate, headingDegrees float64)
	PinUser(pos models.Coordinate)
}

type Options struct {
	Clock      func() time.Time
	Scheduler  FrameScheduler
	Marker     MarkerSink
	OnFrame    func(Frame)
	OnArrival  func(Frame)
	ArrivalCue func() error
}

type State struct {
	StartTimestamp time.Time     `json:"startTimestamp"`
	Duration       time.Duration `json:"-"`
	DurationMs     int64         `json:"durationMs"`
	Progress       float64       `json:"currentProgress"`
	RouteIndex     int           `json:"currentRouteIndex"`
	Arrived        bool          `json:"arrived"`
}

type Simulation struct {
	route       []models.Coordinate
	destination models.Coordinate
	opts        Options

	mu       sync.Mutex
	state    State
	heading  float64
	stopped  bool
	cancel   func()
	done     chan struct{}
	doneOnce sync.Once
}

// Start records the start time and requests the first frame. An empty route
// fails with ErrNoRouteAvailable and nothing is scheduled.
func Start(route []models.Coordinate, destination models.Coordinate, duration time.Duration, opts Options) (*Simulation, error) {
	if len(route) == 0 {
		return nil, ErrNoRouteAvailable
	}
	if duration <= 0 {
		return nil, ErrInvalidDuration
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Scheduler == nil {
		opts.Scheduler = NewTickerScheduler(0)
	}

	s := &Simulation{
		route:       append([]models.Coordinate(nil), route...),
		destination: destination,
		opts:        opts,
		done:        make(chan struct{}),
	}
	s.state = State{
		StartTimestamp: opts.Clock(),
		Duration:       duration,
		DurationMs:     duration.Milliseconds(),
	}

	s.mu.Lock()
	s.cancel = s.opts.Scheduler.Schedule(s.frame)
	s.mu.Unlock()
	return s, nil
}

func (s *Simulation) frame() {
	s.mu.Lock()
	if s.stopped || s.state.Arrived {
		s.mu.Unlock()
		return
	}
	s.cancel = nil

	progress := Progress(s.opts.Clock().Sub(s.state.StartTimestamp), s.state.Duration)
	idx := RouteIndex(progress, len(s.route))
	if idx+1 < len(s.route) && s.route[idx] != s.route[idx+1] {
		s.heading = utils.Bearing(s.route[idx], s.route[idx+1])
	}

	f := Frame{
		Position:        s.route[idx],
		HeadingDegrees:  s.heading,
		ProgressPercent: progress * 100,
		RouteIndex:      idx,
	}
	s.state.Progress = progress
	s.state.RouteIndex = idx

	arrived := progress >= 1
	if arrived {
		// the last route point may be a snapped approximation
		f.Position = s.destination
		f.Arrived = true
		s.state.Arrived = true
	}
	s.mu.Unlock()

	if m := s.opts.Marker; m != nil {
		m.MoveVehicle(f.Position, f.HeadingDegrees)
		m.PinUser(s.destination)
	}
	if s.opts.OnFrame != nil {
		s.opts.OnFrame(f)
	}

	if arrived {
		s.arrive(f)
		return
	}

	s.mu.Lock()
	if !s.stopped {
		s.cancel = s.opts.Scheduler.Schedule(s.frame)
	}
	s.mu.Unlock()
}

func (s *Simulation) arrive(f Frame) {
	if s.opts.OnArrival != nil {
		s.opts.OnArrival(f)
	}
	if s.opts.ArrivalCue != nil {
		if err := s.opts.ArrivalCue(); err != nil {
			utils.Logger.Debug("Arrival cue failed", zap.Error(err))
		}
	}
	s.doneOnce.Do(func() { close(s.done) })
}

// Stop releases the pending frame. Safe to call more than once.
func (s *Simulation) Stop() {
	s.mu.Lock()
	s.stopped = true
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()
	s.doneOnce.Do(func() { close(s.done) })
}

// Done is closed on arrival or Stop.
func (s *Simulation) Done() <-chan struct{} {
	return s.done
}

func (s *Simulation) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Simulation) Destination() models.Coordinate {
	return s.destination
}
