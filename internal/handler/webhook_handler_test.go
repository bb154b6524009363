package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitpay/order-split-service/internal/model"
)

func webhookEvent(event, paymentID string, transfer map[string]any) map[string]any {
	body := map[string]any{
		"event":   event,
		"payment": map[string]any{"id": paymentID},
	}
	if transfer != nil {
		body["transfer"] = transfer
	}
	return body
}

func currentStatus(t *testing.T, router *gin.Engine, orderID string) model.SplitStatus {
	t.Helper()
	w := getJSON(t, router, "/api/v1/orders/"+orderID+"/split")
	require.Equal(t, http.StatusOK, w.Code)

	var rec model.SplitRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	return rec.Status
}

func TestWebhookHandler_PaymentLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	router := setupRouter(t)

	w := postJSON(t, router, "/api/v1/orders/wh-ord-1/split",
		applyRequest("pay_wh_1", item("vnd_1001", "100.00")))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	t.Run("payment received moves to processing", func(t *testing.T) {
		w := postJSON(t, router, "/webhooks/processor", webhookEvent("payment_received", "pay_wh_1", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, model.StatusProcessing, currentStatus(t, router, "wh-ord-1"))
	})

	t.Run("payment confirmed moves to confirmed", func(t *testing.T) {
		w := postJSON(t, router, "/webhooks/processor", webhookEvent("payment_confirmed", "pay_wh_1", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, model.StatusConfirmed, currentStatus(t, router, "wh-ord-1"))
	})

	t.Run("transfers complete the split", func(t *testing.T) {
		w := postJSON(t, router, "/webhooks/processor", webhookEvent("transfer_received", "pay_wh_1",
			map[string]any{"walletId": "wal_marketplace_demo", "value": 10.00}))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, model.StatusConfirmed, currentStatus(t, router, "wh-ord-1"))

		w = postJSON(t, router, "/webhooks/processor", webhookEvent("transfer_received", "pay_wh_1",
			map[string]any{"walletId": "wal_producer_1001", "value": 90.00}))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, model.StatusCompleted, currentStatus(t, router, "wh-ord-1"))
	})

	t.Run("duplicate transfer delivery is absorbed", func(t *testing.T) {
		w := postJSON(t, router, "/webhooks/processor", webhookEvent("transfer_received", "pay_wh_1",
			map[string]any{"walletId": "wal_producer_1001", "value": 90.00}))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, model.StatusCompleted, currentStatus(t, router, "wh-ord-1"))
	})
}

func TestWebhookHandler_Refund(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	router := setupRouter(t)

	w := postJSON(t, router, "/api/v1/orders/wh-ord-2/split",
		applyRequest("pay_wh_2", item("vnd_1002", "60.00")))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = postJSON(t, router, "/webhooks/processor", webhookEvent("payment_refunded", "pay_wh_2", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.StatusRefunded, currentStatus(t, router, "wh-ord-2"))
}

func TestWebhookHandler_TransferFailed(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	router := setupRouter(t)

	w := postJSON(t, router, "/api/v1/orders/wh-ord-3/split",
		applyRequest("pay_wh_3", item("vnd_1003", "75.00")))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = postJSON(t, router, "/webhooks/processor", webhookEvent("transfer_failed", "pay_wh_3",
		map[string]any{"walletId": "wal_producer_1003", "error": "wallet suspended"}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.StatusFailed, currentStatus(t, router, "wh-ord-3"))
}

func TestWebhookHandler_EdgeCases(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	router := setupRouter(t)

	t.Run("unknown payment id is acknowledged and ignored", func(t *testing.T) {
		w := postJSON(t, router, "/webhooks/processor", webhookEvent("payment_received", "pay_missing", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"received":true`)
	})

	t.Run("unhandled event type is acknowledged and ignored", func(t *testing.T) {
		w := postJSON(t, router, "/webhooks/processor", webhookEvent("payment_overdue", "pay_missing", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"ignored":true`)
	})

	t.Run("missing event name is rejected", func(t *testing.T) {
		w := postJSON(t, router, "/webhooks/processor", map[string]any{"payment": map[string]any{"id": "x"}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing payment id is rejected", func(t *testing.T) {
		w := postJSON(t, router, "/webhooks/processor", map[string]any{"event": "payment_received"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
