package dto

import "github.com/splitpay/order-split-service/internal/model"

type OrderItemRequest struct {
	ProductID string      `json:"product_id"`
	VendorID  string      `json:"vendor_id"`
	Total     model.Money `json:"total" binding:"required"`
}

type ApplySplitRequest struct {
	PaymentID     string             `json:"payment_id"`
	Recurring     bool               `json:"recurring"`
	ShippingTotal model.Money        `json:"shipping_total"`
	Items         []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

type BindPaymentRequest struct {
	PaymentID string `json:"payment_id" binding:"required"`
}

// WebhookEventRequest is the processor's webhook envelope. Transfer fields
// are only present on transfer events.
type WebhookEventRequest struct {
	Event    string          `json:"event" binding:"required"`
	Payment  WebhookPayment  `json:"payment"`
	Transfer WebhookTransfer `json:"transfer"`
}

type WebhookPayment struct {
	ID string `json:"id"`
}

type WebhookTransfer struct {
	WalletID string      `json:"walletId"`
	Value    model.Money `json:"value"`
	Error    string      `json:"error"`
}
