package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ThalefangN/get-more-bw-87-sub000/app"
	"github.com/ThalefangN/get-more-bw-87-sub000/socket"
	"github.com/ThalefangN/get-more-bw-87-sub000/utils"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	utils.InitLogger()
	defer utils.Logger.Sync()
	utils.Logger.Info("Starting get-more server...")

	// Context for background services (cancellation)
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	a, err := app.Initialize(bgCtx)
	if err != nil {
		utils.Logger.Fatal("Startup failed", zap.Error(err))
	}
	defer a.Close()

	a.StartBackground(bgCtx)

	// Mount Socket.IO on /socket.io/ and Gin HTTP routes on everything else
	mux := http.NewServeMux()
	mux.Handle("/socket.io/", socket.GetHandler(a.IO))
	mux.Handle("/", a.Router())

	// Graceful Shutdown
	srv := &http.Server{
		Addr:              ":" + a.Config.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			utils.Logger.Fatal("listen", zap.Error(err))
		}
	}()

	utils.Logger.Info("Server running", zap.String("port", a.Config.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	utils.Logger.Info("Shutting down server...")

	// 1. Cancel background workers
	bgCancel()

	// 2. Shutdown HTTP server (stop accepting new requests)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// 3. Wait for tracked background tasks (SafeGo) to complete
	utils.Logger.Info("Waiting for background tasks to drain...")
	utils.WaitForBackgroundTasks(5 * time.Second)

	utils.Logger.Info("Server exiting")
}
