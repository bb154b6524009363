package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/splitpay/order-split-service/internal/dto"
	"github.com/splitpay/order-split-service/internal/model"
	"github.com/splitpay/order-split-service/internal/service"
)

// WebhookHandler receives processor event deliveries. The processor
// redelivers on non-2xx responses, so everything the service absorbs by
// design (unknown payments, replays, unhandled event kinds) is acknowledged
// with 200.
type WebhookHandler struct {
	svc *service.ReconciliationService
}

func NewWebhookHandler(svc *service.ReconciliationService) *WebhookHandler {
	return &WebhookHandler{svc: svc}
}

func (h *WebhookHandler) HandleEvent(c *gin.Context) {
	var req dto.WebhookEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "validation failed: " + err.Error(),
		})
		return
	}

	eventType, ok := model.ParseEventType(req.Event)
	if !ok {
		c.JSON(http.StatusOK, dto.WebhookAck{Ignored: true, Reason: "unhandled event type"})
		return
	}
	if req.Payment.ID == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "missing payment id"})
		return
	}

	event := &model.ProcessorEvent{
		Type:      eventType,
		PaymentID: req.Payment.ID,
		WalletID:  req.Transfer.WalletID,
		Value:     req.Transfer.Value,
		Error:     req.Transfer.Error,
	}
	if err := h.svc.Handle(c.Request.Context(), event); err != nil {
		log.Error().Err(err).Str("event", req.Event).Str("payment_id", req.Payment.ID).
			Msg("webhook event failed")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "event processing failed"})
		return
	}

	c.JSON(http.StatusOK, dto.WebhookAck{Received: true})
}
