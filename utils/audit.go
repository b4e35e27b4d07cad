package utils

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThalefangN/get-more-bw-87-sub000/db"
	"github.com/ThalefangN/get-more-bw-87-sub000/models"

	"go.uber.org/zap"
)

// LogExternalAPI records a request/response pair from an external provider
// (directions, push) so provider failures can be audited after the fact.
func LogExternalAPI(entry models.APILog) {
	if db.Pool == nil {
		return
	}
	SafeGo(func() {
		reqJSON, _ := json.Marshal(entry.RequestPayload)
		respJSON, _ := json.Marshal(entry.ResponsePayload)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_, err := db.Pool.Exec(ctx,
			`INSERT INTO external_api_logs (
				id, provider, endpoint, "requestId", "requestPayload", "responsePayload", "statusCode", "durationMs", "createdAt"
			) VALUES (
				gen_random_uuid()::text, $1, $2, $3, $4, $5, $6, $7, NOW()
			)`,
			entry.Provider, entry.Endpoint, entry.RequestID, reqJSON, respJSON, entry.StatusCode, entry.DurationMs,
		)

		if err != nil {
			Logger.Error("Failed to log external API call", zap.Error(err), zap.String("provider", entry.Provider))
		}
	})
}
