// Package geolocation acquires a user's position from their device, tracking
// the device's permission state and falling back to a fixed coordinate.
package geolocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThalefangN/get-more-bw-87-sub000/models"
	"github.com/ThalefangN/get-more-bw-87-sub000/utils"

	"go.uber.org/zap"
)

var (
	ErrPermissionDenied = errors.New("location permission denied")
	ErrUnavailable      = errors.New("location unavailable")
	ErrTimeout          = errors.New("location request timed out")

	// ErrPermissionQueryUnsupported is returned by providers whose device
	// never reported a permission state.
	ErrPermissionQueryUnsupported = errors.New("permission query unsupported")
)

type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionPrompt  Permission = "prompt"
	PermissionDenied  Permission = "denied"
)

func (p Permission) Valid() bool {
	return p == PermissionGranted || p == PermissionPrompt || p == PermissionDenied
}

type PositionOptions struct {
	EnableHighAccuracy bool
	Timeout            time.Duration
	MaximumAge         time.Duration
}

// DefaultPositionOptions asks for a fresh high-accuracy fix within 10 seconds.
var DefaultPositionOptions = PositionOptions{
	EnableHighAccuracy: true,
	Timeout:            10 * time.Second,
	MaximumAge:         0,
}

// Provider is the device side of acquisition. Errors from CurrentPosition
// should wrap one of ErrPermissionDenied, ErrUnavailable or ErrTimeout;
// anything else is treated as ErrUnavailable.
type Provider interface {
	PermissionState(ctx context.Context, userID string) (Permission, error)
	CurrentPosition(ctx context.Context, userID string, opts PositionOptions) (models.Coordinate, error)
	// WatchPermission calls fn on every permission change until ctx is done.
	WatchPermission(ctx context.Context, userID string, fn func(Permission)) error
}

// Notifier surfaces user-visible notices. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, userID string, n models.Notice)
}

type Locator struct {
	provider Provider
	notifier Notifier
	fallback models.Coordinate
	opts     PositionOptions
}

func NewLocator(p Provider, n Notifier, fallback models.Coordinate) *Locator {
	return &Locator{
		provider: p,
		notifier: n,
		fallback: fallback,
		opts:     DefaultPositionOptions,
	}
}

func (l *Locator) Fallback() models.Coordinate {
	return l.fallback
}

// Acquire requests a single fix. A denied permission fails fast without
// asking the device.
func (l *Locator) Acquire(ctx context.Context, userID string) (models.Coordinate, error) {
	perm, err := l.provider.PermissionState(ctx, userID)
	switch {
	case err == nil && perm == PermissionDenied:
		l.notifyFailure(ctx, userID, ErrPermissionDenied)
		return models.Coordinate{}, ErrPermissionDenied
	case err != nil && !errors.Is(err, ErrPermissionQueryUnsupported):
		utils.Logger.Warn("Permission query failed, requesting position anyway",
			zap.String("userId", userID), zap.Error(err))
	}

	pos, err := l.provider.CurrentPosition(ctx, userID, l.opts)
	if err != nil {
		kind := Classify(err)
		l.notifyFailure(ctx, userID, kind)
		return models.Coordinate{}, fmt.Errorf("%w: %v", kind, err)
	}

	l.notify(ctx, userID, models.Notice{Level: models.NoticeSuccess, Message: "Location updated"})
	return pos, nil
}

// AcquireOrDefault never fails: on error it returns the fallback coordinate
// together with the classified error so callers can still explain the fallback.
func (l *Locator) AcquireOrDefault(ctx context.Context, userID string) (models.Coordinate, bool, error) {
	pos, err := l.Acquire(ctx, userID)
	if err != nil {
		return l.fallback, false, err
	}
	return pos, true, nil
}

// Watch re-acquires whenever the device permission becomes granted and hands
// the fix to onFix. It blocks until ctx is done.
func (l *Locator) Watch(ctx context.Context, userID string, onFix func(models.Coordinate)) error {
	return l.provider.WatchPermission(ctx, userID, func(p Permission) {
		if p != PermissionGranted || ctx.Err() != nil {
			return
		}
		pos, err := l.Acquire(ctx, userID)
		if err != nil {
			return
		}
		// ctx may have been cancelled while the request was in flight
		if ctx.Err() != nil {
			return
		}
		onFix(pos)
	})
}

// Classify maps any provider error onto the three failure kinds.
func Classify(err error) error {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return ErrPermissionDenied
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout
	default:
		return ErrUnavailable
	}
}

func (l *Locator) notifyFailure(ctx context.Context, userID string, kind error) {
	var msg string
	switch kind {
	case ErrPermissionDenied:
		msg = "Location access denied. Using the default city location instead."
	case ErrTimeout:
		msg = "Location request timed out. Using the default city location instead."
	default:
		msg = "Location unavailable. Using the default city location instead."
	}
	l.notify(ctx, userID, models.Notice{Level: models.NoticeWarning, Message: msg})
}

func (l *Locator) notify(ctx context.Context, userID string, n models.Notice) {
	if l.notifier == nil {
		return
	}
	l.notifier.Notify(ctx, userID, n)
}
