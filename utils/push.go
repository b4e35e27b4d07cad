package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/ThalefangN/get-more-bw-87-sub000/models"

	"go.uber.org/zap"
)

// FCM HTTP API (Legacy). Server key comes from Firebase Console > Cloud Messaging.

const fcmEndpoint = "https://fcm.googleapis.com/fcm/send"

type FCMNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Sound string `json:"sound,omitempty"`
}

type FCMData map[string]string

type FCMMessage struct {
	To           string           `json:"to,omitempty"`
	Notification *FCMNotification `json:"notification,omitempty"`
	Data         FCMData          `json:"data,omitempty"`
	Priority     string           `json:"priority,omitempty"`
}

var pushClient = &http.Client{Timeout: 5 * time.Second}

// SendPushNotification sends a push notification to a single device token.
// A missing server key or token is not an error: push is always optional.
func SendPushNotification(ctx context.Context, token string, title, body string, data FCMData) error {
	serverKey := os.Getenv("FCM_SERVER_KEY")
	if serverKey == "" {
		Logger.Warn("FCM_SERVER_KEY not set, skipping push notification")
		return nil
	}
	if token == "" {
		return nil
	}

	msg := FCMMessage{
		To: token,
		Notification: &FCMNotification{
			Title: title,
			Body:  body,
			Sound: "default",
		},
		Data:     data,
		Priority: "high",
	}

	return sendFCM(ctx, serverKey, msg)
}

func sendFCM(ctx context.Context, serverKey string, payload interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fcmEndpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "key="+serverKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := pushClient.Do(req)
	if err != nil {
		Logger.Error("FCM request failed", zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	LogExternalAPI(models.APILog{
		Provider:       "FCM",
		Endpoint:       "/fcm/send",
		RequestPayload: payload,
		StatusCode:     resp.StatusCode,
		DurationMs:     int(time.Since(start).Milliseconds()),
	})

	if resp.StatusCode >= 400 {
		Logger.Error("FCM error", zap.Int("status", resp.StatusCode))
		return fmt.Errorf("FCM error: %s", resp.Status)
	}

	Logger.Info("FCM notification sent", zap.Int("status", resp.StatusCode))
	return nil
}
