package sweepd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fieldsim/sweep-core/pkg/logger"
)

// NotificationPayload is the JSON body posted to the callback URL when a
// run reaches a terminal state.
type NotificationPayload struct {
	RunID           string      `json:"run_id"`
	Name            string      `json:"name"`
	Status          RunStatus   `json:"status"`
	CreatedAtUnixMs int64       `json:"created_at_unix_ms"`
	StartedAtUnixMs int64       `json:"started_at_unix_ms,omitempty"`
	EndedAtUnixMs   int64       `json:"ended_at_unix_ms,omitempty"`
	Error           string      `json:"error,omitempty"`
	Summary         *RunSummary `json:"summary,omitempty"`
	Timestamp       int64       `json:"timestamp"` // when the notification was sent
}

// Notifier posts run-completion callbacks with retries.
type Notifier struct {
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
}

func NewNotifier() *Notifier {
	return &Notifier{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		maxRetries: 3,
		baseDelay:  1 * time.Second,
	}
}

// Notify sends a notification to the callback URL asynchronously.
// It returns immediately and performs the delivery in a goroutine.
func (n *Notifier) Notify(callbackURL string, callbackSecret string, rec *RunRecord) {
	if callbackURL == "" {
		return
	}
	if rec == nil || rec.Run == nil {
		logger.Warn("cannot notify: invalid run record", "callback_url", callbackURL)
		return
	}

	// Replace {run_id} template in the callback URL if present.
	finalURL := strings.ReplaceAll(callbackURL, "{run_id}", rec.Run.ID)

	payload := NotificationPayload{
		RunID:           rec.Run.ID,
		Name:            rec.Run.Name,
		Status:          rec.Run.Status,
		CreatedAtUnixMs: rec.Run.CreatedAtUnixMs,
		StartedAtUnixMs: rec.Run.StartedAtUnixMs,
		EndedAtUnixMs:   rec.Run.EndedAtUnixMs,
		Error:           rec.Run.Error,
		Summary:         rec.Summary,
		Timestamp:       time.Now().UTC().UnixMilli(),
	}

	go n.sendNotification(finalURL, callbackSecret, payload)
}

// sendNotification performs the HTTP POST with exponential backoff.
func (n *Notifier) sendNotification(callbackURL string, callbackSecret string, payload NotificationPayload) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		logger.Error("failed to marshal notification payload",
			"callback_url", callbackURL,
			"run_id", payload.RunID,
			"error", err)
		return
	}

	var lastErr error
	for attempt := 0; attempt <= n.maxRetries; attempt++ {
		if attempt > 0 {
			delay := n.baseDelay * time.Duration(1<<uint(attempt-1))
			logger.Debug("retrying notification",
				"callback_url", callbackURL,
				"run_id", payload.RunID,
				"attempt", attempt,
				"delay", delay)
			time.Sleep(delay)
		}

		req, err := http.NewRequest("POST", callbackURL, bytes.NewReader(payloadJSON))
		if err != nil {
			lastErr = fmt.Errorf("failed to create request: %w", err)
			continue
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "sweep-core/1.0")
		if callbackSecret != "" {
			req.Header.Set("X-Sweep-Callback-Secret", callbackSecret)
		}

		resp, err := n.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("HTTP request failed: %w", err)
			logger.Warn("notification attempt failed",
				"callback_url", callbackURL,
				"run_id", payload.RunID,
				"attempt", attempt+1,
				"error", err)
			continue
		}

		bodyBytes, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		responseBody := string(bodyBytes)
		if len(responseBody) > 200 {
			responseBody = responseBody[:200] + "..."
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			logger.Info("notification sent",
				"run_id", payload.RunID,
				"status", payload.Status,
				"status_code", resp.StatusCode)
			return
		}

		lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		logger.Warn("notification returned non-2xx status",
			"callback_url", callbackURL,
			"run_id", payload.RunID,
			"status_code", resp.StatusCode,
			"response_body", responseBody,
			"attempt", attempt+1)
	}

	logger.Error("failed to send notification after retries",
		"callback_url", callbackURL,
		"run_id", payload.RunID,
		"status", payload.Status,
		"max_retries", n.maxRetries,
		"last_error", lastErr)
}
