package socket

import (
	"context"

	socketio "github.com/zishang520/socket.io/v2/socket"
	"go.uber.org/zap"

	"github.com/ThalefangN/get-more-bw-87-sub000/booking"
	"github.com/ThalefangN/get-more-bw-87-sub000/geolocation"
	"github.com/ThalefangN/get-more-bw-87-sub000/models"
	"github.com/ThalefangN/get-more-bw-87-sub000/simulation"
	"github.com/ThalefangN/get-more-bw-87-sub000/utils"
)

// Broadcaster emits one event to the union of rooms; a socket in several of
// them receives it once.
type Broadcaster interface {
	EmitTo(rooms []string, event string, data any) error
}

type ioBroadcaster struct {
	io *socketio.Server
}

func NewBroadcaster(io *socketio.Server) Broadcaster {
	return ioBroadcaster{io: io}
}

func (b ioBroadcaster) EmitTo(rooms []string, event string, data any) error {
	rs := make([]socketio.Room, 0, len(rooms))
	for _, r := range rooms {
		rs = append(rs, socketio.Room(r))
	}
	return b.io.To(rs...).Emit(event, data)
}

// Emitter pushes per-user events to the user's room. Everything it sends is
// best effort.
type Emitter struct {
	b Broadcaster
}

func NewEmitter(b Broadcaster) *Emitter {
	return &Emitter{b: b}
}

func (e *Emitter) emit(userID, event string, data any) error {
	err := e.b.EmitTo([]string{UserRoom(userID)}, event, data)
	if err != nil {
		utils.Logger.Warn("Socket emit failed",
			zap.String("event", event), zap.String("userId", userID), zap.Error(err))
	}
	return err
}

func (e *Emitter) Notify(_ context.Context, userID string, n models.Notice) {
	_ = e.emit(userID, "notice", n)
}

// RequestLocation asks the user's device for a fix; it replies with
// locationUpdate or locationError.
func (e *Emitter) RequestLocation(userID string, opts geolocation.PositionOptions) {
	_ = e.emit(userID, "locateRequest", map[string]any{
		"enableHighAccuracy": opts.EnableHighAccuracy,
		"timeout":            opts.Timeout.Milliseconds(),
		"maximumAge":         opts.MaximumAge.Milliseconds(),
	})
}

func (e *Emitter) BookingState(userID string, snap booking.Snapshot) {
	_ = e.emit(userID, "bookingState", snap)
}

func (e *Emitter) DriverPosition(userID string, f simulation.Frame) {
	_ = e.emit(userID, "driverPosition", f)
}

func (e *Emitter) DriverArrived(userID string, f simulation.Frame) {
	_ = e.emit(userID, "driverArrived", f)
}

func (e *Emitter) ETATick(userID string, remainingSeconds int) {
	_ = e.emit(userID, "etaTick", map[string]int{"remainingSeconds": remainingSeconds})
}

// ArrivalChime asks the client to play the arrival sound.
func (e *Emitter) ArrivalChime(userID string) error {
	return e.emit(userID, "arrivalChime", map[string]string{"sound": "arrival"})
}
