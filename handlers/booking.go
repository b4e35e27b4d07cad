package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ThalefangN/get-more-bw-87-sub000/booking"
	"github.com/ThalefangN/get-more-bw-87-sub000/middleware"
	"github.com/ThalefangN/get-more-bw-87-sub000/utils"
)

func RegisterBookingRoutes(r *gin.Engine, authMiddleware gin.HandlerFunc, h *Handler) {
	group := r.Group("/api/v1/booking", authMiddleware)
	{
		group.POST("/open", h.OpenBooking)
		group.GET("", h.GetBooking)
		group.POST("/fare", h.SubmitFare)
		group.POST("/back", h.BookingBack)
		group.POST("/select", h.SelectDriver)
		group.POST("/close", h.CloseBooking)
		group.GET("/report-issue", h.ReportIssue)

		// Tracking
		group.POST("/track", h.StartTracking)
		group.POST("/approach", h.WatchApproach)
		group.GET("/simulation", h.GetSimulation)
	}
}

func (h *Handler) session(c *gin.Context) (*booking.Session, bool) {
	s, err := h.Bookings.Get(middleware.UserID(c))
	if err != nil {
		respondDomainError(c, err, "Failed to load booking")
		return nil, false
	}
	return s, true
}

// POST /api/v1/booking/open
// Starts a fresh booking, discarding any previous one for the user.
func (h *Handler) OpenBooking(c *gin.Context) {
	s := h.Bookings.Open(c.Request.Context(), middleware.UserID(c))
	utils.RespondSuccess(c, http.StatusCreated, "Booking started", s.Snapshot())
}

// GET /api/v1/booking
func (h *Handler) GetBooking(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	utils.RespondSuccess(c, http.StatusOK, "Booking", s.Snapshot())
}

// POST /api/v1/booking/fare
func (h *Handler) SubmitFare(c *gin.Context) {
	var body struct {
		Amount *float64 `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Enter a fare amount", err)
		return
	}
	s, ok := h.session(c)
	if !ok {
		return
	}
	snap, err := s.SubmitFare(*body.Amount)
	if err != nil {
		respondDomainError(c, err, "Failed to submit fare")
		return
	}
	utils.RespondSuccess(c, http.StatusOK, "Drivers available", snap)
}

// POST /api/v1/booking/back
func (h *Handler) BookingBack(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	snap, err := s.Back()
	if err != nil {
		respondDomainError(c, err, "Failed to go back")
		return
	}
	utils.RespondSuccess(c, http.StatusOK, "Enter your fare", snap)
}

// POST /api/v1/booking/select
func (h *Handler) SelectDriver(c *gin.Context) {
	var body struct {
		DriverID string `json:"driverId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Choose a driver", err)
		return
	}
	s, ok := h.session(c)
	if !ok {
		return
	}
	loc, _ := h.userLocation(c.Request.Context(), s.UserID())
	snap, err := s.SelectDriver(body.DriverID, &loc)
	if err != nil {
		respondDomainError(c, err, "Failed to select driver")
		return
	}
	utils.RespondSuccess(c, http.StatusOK, "Connecting to driver", snap)
}

// POST /api/v1/booking/close
func (h *Handler) CloseBooking(c *gin.Context) {
	if err := h.Bookings.Close(middleware.UserID(c)); err != nil {
		respondDomainError(c, err, "Failed to close booking")
		return
	}
	utils.RespondSuccess(c, http.StatusOK, "Booking closed", nil)
}

// GET /api/v1/booking/report-issue
func (h *Handler) ReportIssue(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	link, err := s.ReportIssueLink()
	if err != nil {
		respondDomainError(c, err, "Failed to build issue report")
		return
	}
	utils.RespondSuccess(c, http.StatusOK, "Issue report", gin.H{"mailto": link})
}

// POST /api/v1/booking/track
// Computes the driver route; falls back to an approximate path when live
// directions fail.
func (h *Handler) StartTracking(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	loc, _ := h.userLocation(c.Request.Context(), s.UserID())
	info, err := s.StartTracking(c.Request.Context(), h.Routes, loc)
	if err != nil {
		respondDomainError(c, err, "Failed to start tracking")
		return
	}
	utils.RespondSuccess(c, http.StatusOK, "Tracking started", info)
}

// POST /api/v1/booking/approach
// Frames, arrival and ETA ticks are pushed over the socket.
func (h *Handler) WatchApproach(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	opts := booking.ApproachOptions{
		Duration: h.SimulationDuration,
		Sink:     h.Approach,
	}
	if h.NewScheduler != nil {
		opts.Scheduler = h.NewScheduler()
	}
	sim, err := s.WatchApproach(opts)
	if err != nil {
		respondDomainError(c, err, "Failed to start approach")
		return
	}
	utils.RespondSuccess(c, http.StatusOK, "Driver on the way", sim.Snapshot())
}

// GET /api/v1/booking/simulation
func (h *Handler) GetSimulation(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	state, ok := s.Simulation()
	if !ok {
		respondDomainError(c, booking.ErrTrackingNotStarted, "")
		return
	}
	utils.RespondSuccess(c, http.StatusOK, "Simulation", state)
}
