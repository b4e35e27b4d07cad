package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	socketio "github.com/zishang520/socket.io/v2/socket"
	"go.uber.org/zap"

	"github.com/ThalefangN/get-more-bw-87-sub000/booking"
	"github.com/ThalefangN/get-more-bw-87-sub000/checkout"
	"github.com/ThalefangN/get-more-bw-87-sub000/config"
	"github.com/ThalefangN/get-more-bw-87-sub000/db"
	"github.com/ThalefangN/get-more-bw-87-sub000/geolocation"
	"github.com/ThalefangN/get-more-bw-87-sub000/handlers"
	"github.com/ThalefangN/get-more-bw-87-sub000/middleware"
	"github.com/ThalefangN/get-more-bw-87-sub000/models"
	"github.com/ThalefangN/get-more-bw-87-sub000/routing"
	"github.com/ThalefangN/get-more-bw-87-sub000/simulation"
	"github.com/ThalefangN/get-more-bw-87-sub000/socket"
	"github.com/ThalefangN/get-more-bw-87-sub000/stores"
	"github.com/ThalefangN/get-more-bw-87-sub000/utils"
)

// App container holds all application state and resources
type App struct {
	Config config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client
	IO     *socketio.Server

	Emitter   *socket.Emitter
	Locator   *geolocation.Locator
	Routes    *routing.Service
	Bookings  *booking.Manager
	Checkouts *checkout.Manager
	Handler   *handlers.Handler
	Limiter   *middleware.IPRateLimiter
}

// Instance is the global singleton for the app container
var Instance *App

// Initialize connects Postgres and Redis, migrates, and wires the services.
func Initialize(ctx context.Context) (*App, error) {
	// 1. Load & Validate Config
	if err := config.LoadAndValidate(); err != nil {
		return nil, err
	}
	cfg := config.Envs

	// 2. Database Connection
	if err := db.Connect(ctx, cfg.DBURL); err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	// 3. Redis Connection
	db.InitRedis(cfg.RedisAddr, cfg.RedisPassword)

	a := &App{
		Config:  cfg,
		DB:      db.Pool,
		Redis:   db.RedisClient,
		Limiter: middleware.NewIPRateLimiter(5, 10), // 5 req/sec, burst of 10
	}
	a.wire()

	Instance = a
	utils.Logger.Info("App container initialized")
	return a, nil
}

func (a *App) wire() {
	cfg := a.Config
	verify := func(token string) (string, error) {
		return middleware.ParseUserToken(cfg.AuthJWTSecret, token)
	}

	// the socket server is created before the locator it feeds, so the join
	// hook reads a.Locator once a user actually joins
	a.IO = socket.InitSocketIO(verify, a.watchLocation)
	a.Emitter = socket.NewEmitter(socket.NewBroadcaster(a.IO))

	a.Locator = geolocation.NewLocator(
		stores.NewDeviceLocationProvider(a.Emitter),
		a.Emitter,
		models.Coordinate{Lat: cfg.DefaultLat, Lng: cfg.DefaultLng},
	)

	a.Routes = &routing.Service{
		Directions: routing.NewDirectionsClient(cfg.DirectionsBaseURL, cfg.DirectionsAccessToken),
		Cache:      stores.DirectionsCache{},
		Layers:     stores.RouteLayers{},
		Notifier:   a.Emitter,
	}

	a.Bookings = booking.NewManager(
		booking.FallbackRoster{Primary: stores.PgDriverRoster{}},
		booking.Config{
			Countdown:    cfg.BookingCountdown,
			SupportEmail: cfg.SupportEmail,
		},
		a.Emitter.BookingState,
	)

	a.Checkouts = checkout.NewManager(stores.PgCourierDirectory{}, checkout.Deps{
		Orders:   stores.PgOrderWriter{},
		Notifier: stores.PgCourierNotifier{},
		Cart:     stores.RedisCart{},
	}, checkout.DefaultAcknowledgement)

	frameInterval := cfg.FrameInterval
	a.Handler = &handlers.Handler{
		Locator:            a.Locator,
		Routes:             a.Routes,
		Bookings:           a.Bookings,
		Checkouts:          a.Checkouts,
		Approach:           a.Emitter,
		SimulationDuration: cfg.SimulationDuration,
		NewScheduler: func() simulation.FrameScheduler {
			return simulation.NewTickerScheduler(frameInterval)
		},
	}
}

// watchLocation re-acquires the user's position whenever their device later
// grants permission, for as long as the socket stays joined.
func (a *App) watchLocation(ctx context.Context, userID string) {
	err := a.Locator.Watch(ctx, userID, func(pos models.Coordinate) {
		utils.Logger.Debug("Location re-acquired after permission grant", zap.String("userId", userID))
	})
	if err != nil && ctx.Err() == nil {
		utils.Logger.Warn("Permission watch ended", zap.String("userId", userID), zap.Error(err))
	}
}

// StartBackground runs the workers that live until ctx is cancelled.
func (a *App) StartBackground(ctx context.Context) {
	utils.StartRetentionWorker(ctx, a.Config.LogRetentionDays)
	a.Limiter.StartCleanup(ctx, 10*time.Minute)
	socket.StartChangeFeed(ctx, socket.NewBroadcaster(a.IO))
}

// Router builds the gin engine with middleware and every route group.
func (a *App) Router() *gin.Engine {
	cfg := a.Config
	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.SetTrustedProxies(nil)

	// Security Middleware
	r.Use(middleware.CORS())
	r.Use(middleware.RequestID())
	r.Use(middleware.SecureHeaders())
	r.Use(middleware.RateLimit(a.Limiter))
	r.Use(middleware.TimeoutMiddleware(15 * time.Second))
	r.Use(middleware.MaxBodySize(1 * 1024 * 1024)) // 1MB limit

	// API Key Authentication (Global)
	r.Use(middleware.APIKeyAuth(cfg.APIKey))

	r.GET("/health", handlers.Health)

	auth := middleware.IsAuthenticated(cfg.AuthJWTSecret)
	handlers.RegisterLocationRoutes(r, auth, a.Handler)
	handlers.RegisterBookingRoutes(r, auth, a.Handler)
	handlers.RegisterShopRoutes(r, auth, a.Handler)
	handlers.RegisterStoreRoutes(r, auth)
	handlers.RegisterCourierRoutes(r, auth)
	handlers.RegisterAdminRoutes(r, middleware.IsAdmin(cfg.AdminSecret))
	return r
}

// Close gracefully shuts down all resources
func (a *App) Close() {
	if a.Bookings != nil {
		a.Bookings.CloseAll()
	}
	db.CloseRedis()
	db.Close()
}
