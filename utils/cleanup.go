package utils

import (
	"context"
	"time"

	"github.com/ThalefangN/get-more-bw-87-sub000/db"

	"go.uber.org/zap"
)

// StartRetentionWorker deletes audit logs older than retentionDays once a day
// until ctx is cancelled.
func StartRetentionWorker(ctx context.Context, retentionDays int) {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				runCleanup(ctx, retentionDays)
			case <-ctx.Done():
				Logger.Info("Retention Worker shutting down...")
				return
			}
		}
	}()
}

func runCleanup(ctx context.Context, retentionDays int) {
	if db.Pool == nil {
		return
	}
	Logger.Info("Running Audit Log Retention Cleanup...")

	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	result, err := db.Pool.Exec(ctx,
		`DELETE FROM external_api_logs WHERE "createdAt" < $1`, cutoff)
	if err != nil {
		Logger.Error("Audit Log Cleanup Failed", zap.Error(err))
		return
	}

	Logger.Info("Audit Log Cleanup Completed", zap.Int64("deletedRows", result.RowsAffected()))
}
