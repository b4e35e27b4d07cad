package utils

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// GlobalWaitGroup tracks all active background tasks (audit logging, notifications, push).
var GlobalWaitGroup sync.WaitGroup

// SafeGo runs a function in a background goroutine while tracking it for graceful shutdown.
// A panic inside fn is logged instead of taking the process down.
func SafeGo(fn func()) {
	GlobalWaitGroup.Add(1)
	go func() {
		defer GlobalWaitGroup.Done()
		defer func() {
			if r := recover(); r != nil {
				Logger.Error("Background task panicked", zap.Any("panic", r))
			}
		}()
		fn()
	}()
}

// WaitForBackgroundTasks blocks until all tracked background tasks are completed, or timeout.
func WaitForBackgroundTasks(timeout time.Duration) bool {
	c := make(chan struct{})
	go func() {
		defer close(c)
		GlobalWaitGroup.Wait()
	}()

	select {
	case <-c:
		Logger.Info("All background tasks completed successfully.")
		return true
	case <-time.After(timeout):
		Logger.Warn("Graceful shutdown timed out. Some background tasks may have been terminated.")
		return false
	}
}
