// File: internal/notification/webhook.go
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/scoutgame/settlement-worker/internal/gasmonitor"
	"github.com/scoutgame/settlement-worker/internal/metrics"
	"github.com/scoutgame/settlement-worker/pkg/utils"
)

// WebhookConfig holds webhook delivery configuration
type WebhookConfig struct {
	URL           string            `json:"url" mapstructure:"url"`
	Method        string            `json:"method" mapstructure:"method"`
	Headers       map[string]string `json:"headers" mapstructure:"headers"`
	Timeout       time.Duration     `json:"timeout" mapstructure:"timeout"`
	RetryAttempts int               `json:"retry_attempts" mapstructure:"retry_attempts"`
	RetryDelay    time.Duration     `json:"retry_delay" mapstructure:"retry_delay"`
}

// WebhookPayload is the envelope every outbound webhook carries
type WebhookPayload struct {
	Timestamp time.Time   `json:"timestamp"`
	Source    string      `json:"source"`
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Version   string      `json:"version"`
}

// WebhookSender delivers JSON payloads to a configured webhook endpoint with
// exponential-backoff retries
type WebhookSender struct {
	config     *WebhookConfig
	logger     *logrus.Logger
	httpClient *http.Client
	metrics    *metrics.PrometheusMetrics
}

// NewWebhookSender creates a new webhook sender
func NewWebhookSender(config *WebhookConfig) *WebhookSender {
	if config.Method == "" {
		config.Method = http.MethodPost
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RetryAttempts == 0 {
		config.RetryAttempts = 3
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = time.Second
	}
	return &WebhookSender{
		config: config,
		logger: utils.GetLogger(),
		httpClient: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     30 * time.Second,
			},
		},
	}
}

// SetMetrics attaches a metrics recorder for delivery outcomes
func (ws *WebhookSender) SetMetrics(m *metrics.PrometheusMetrics) {
	ws.metrics = m
}

// Send delivers one payload, retrying transient failures with exponential
// backoff capped at 30 seconds
func (ws *WebhookSender) Send(ctx context.Context, messageType string, data interface{}) error {
	payload := &WebhookPayload{
		Timestamp: time.Now().UTC(),
		Source:    "settlement-worker",
		Type:      messageType,
		Data:      data,
		Version:   "1.0",
	}

	var lastErr error
	for attempt := 1; attempt <= ws.config.RetryAttempts; attempt++ {
		if attempt > 1 {
			delay := ws.config.RetryDelay << uint(attempt-2)
			if delay > 30*time.Second {
				delay = 30 * time.Second
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = ws.sendOnce(ctx, payload)
		if lastErr == nil {
			if ws.metrics != nil {
				ws.metrics.RecordNotificationSent("webhook", messageType)
			}
			return nil
		}

		ws.logger.WithFields(logrus.Fields{
			"url":     ws.config.URL,
			"type":    messageType,
			"attempt": attempt,
			"error":   lastErr,
		}).Warn("Webhook delivery failed")
	}
	if ws.metrics != nil {
		ws.metrics.RecordNotificationFailure("webhook", messageType)
	}
	return lastErr
}

// SendBalanceAlert delivers a partner balance shortfall alert
func (ws *WebhookSender) SendBalanceAlert(ctx context.Context, alert *gasmonitor.Alert) error {
	return ws.Send(ctx, "balance_alert", alert)
}

func (ws *WebhookSender) sendOnce(ctx context.Context, payload *WebhookPayload) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeInternal, "Failed to marshal webhook payload", err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, ws.config.Method, ws.config.URL, bytes.NewReader(jsonData))
	if err != nil {
		return utils.NewAppError(utils.ErrCodeInternal, "Failed to create webhook request", err.Error())
	}

	for key, value := range ws.config.Headers {
		req.Header.Set(key, value)
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", "Settlement-Worker/1.0")
	}
	req.Header.Set("X-Timestamp", fmt.Sprintf("%d", time.Now().Unix()))
	if requestID, err := utils.GenerateID(); err == nil {
		req.Header.Set("X-Request-ID", requestID)
	}

	resp, err := ws.httpClient.Do(req)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeExternal, "Failed to send webhook", err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body := make([]byte, 1024)
		n, _ := resp.Body.Read(body)
		return utils.NewAppError(utils.ErrCodeExternal,
			"Webhook returned non-success status",
			fmt.Sprintf("status: %d, body: %s", resp.StatusCode, string(body[:n])))
	}
	return nil
}
