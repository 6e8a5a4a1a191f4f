package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutgame/settlement-worker/internal/gasmonitor"
	"github.com/scoutgame/settlement-worker/pkg/utils"
)

func init() {
	utils.InitLogger("error", "text", "stdout", "")
}

func TestWebhookSendsEnvelope(t *testing.T) {
	var received WebhookPayload
	var contentType, userAgent string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		userAgent = r.Header.Get("User-Agent")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewWebhookSender(&WebhookConfig{URL: server.URL})
	err := sender.Send(context.Background(), "weekly_settlement", map[string]string{"week": "2026-W35"})
	require.NoError(t, err)

	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "Settlement-Worker/1.0", userAgent)
	assert.Equal(t, "settlement-worker", received.Source)
	assert.Equal(t, "weekly_settlement", received.Type)
	assert.Equal(t, "1.0", received.Version)
}

func TestWebhookRetriesTransientFailure(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewWebhookSender(&WebhookConfig{
		URL:           server.URL,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
	})
	err := sender.Send(context.Background(), "balance_alert", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestWebhookExhaustedRetriesReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	sender := NewWebhookSender(&WebhookConfig{
		URL:           server.URL,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
	})
	err := sender.Send(context.Background(), "weekly_settlement", nil)
	require.Error(t, err)

	appErr, ok := err.(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, utils.ErrCodeExternal, appErr.Code)
}

func TestWebhookBalanceAlertPayload(t *testing.T) {
	var received WebhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewWebhookSender(&WebhookConfig{URL: server.URL})
	err := sender.SendBalanceAlert(context.Background(), &gasmonitor.Alert{
		Partner:   "optimism",
		Week:      "2026-W35",
		Required:  80,
		Balance:   50,
		Shortfall: 30,
	})
	require.NoError(t, err)

	assert.Equal(t, "balance_alert", received.Type)
	data, ok := received.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "optimism", data["partner"])
	assert.Equal(t, float64(30), data["shortfall"])
}
