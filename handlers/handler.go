package handlers

import (
	"context"
	"time"

	"github.com/ThalefangN/get-more-bw-87-sub000/booking"
	"github.com/ThalefangN/get-more-bw-87-sub000/checkout"
	"github.com/ThalefangN/get-more-bw-87-sub000/geolocation"
	"github.com/ThalefangN/get-more-bw-87-sub000/models"
	"github.com/ThalefangN/get-more-bw-87-sub000/simulation"
	"github.com/ThalefangN/get-more-bw-87-sub000/stores"
	"github.com/ThalefangN/get-more-bw-87-sub000/utils"

	"go.uber.org/zap"
)

// Handler carries the services the routes need. Postgres and Redis access
// goes through the stores package directly.
type Handler struct {
	Locator   *geolocation.Locator
	Routes    booking.RouteComputer
	Bookings  *booking.Manager
	Checkouts *checkout.Manager
	Approach  booking.ApproachSink

	SimulationDuration time.Duration
	// NewScheduler builds the frame scheduler for each approach.
	NewScheduler func() simulation.FrameScheduler
}

// userLocation prefers the device's last fix, then the default city centre.
func (h *Handler) userLocation(ctx context.Context, userID string) (models.Coordinate, bool) {
	pos, _, ok, err := stores.LastKnownLocation(ctx, userID)
	if err != nil {
		utils.Logger.Warn("Failed to read last known location", zap.String("userId", userID), zap.Error(err))
	}
	if err == nil && ok {
		return pos, true
	}
	return h.Locator.Fallback(), false
}
