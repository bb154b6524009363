package dto

import "github.com/splitpay/order-split-service/internal/model"

// ProcessorShare is one entry of the split payload handed to the payment
// processor's transfer API. Field names and the 2-decimal number format are
// the wire contract; do not change them.
type ProcessorShare struct {
	WalletID   string      `json:"walletId"`
	FixedValue model.Money `json:"fixedValue"`
}

// ProcessorSplit converts a share list into the processor payload, dropping
// the internal role annotation.
func ProcessorSplit(shares model.ShareList) []ProcessorShare {
	payload := make([]ProcessorShare, len(shares))
	for i, s := range shares {
		payload[i] = ProcessorShare{WalletID: s.WalletID, FixedValue: s.Amount}
	}
	return payload
}

type ApplySplitResponse struct {
	OrderID string           `json:"order_id"`
	Mode    string           `json:"mode"`
	Reason  string           `json:"reason,omitempty"`
	Status  string           `json:"status,omitempty"`
	Split   []ProcessorShare `json:"split"`
}

type WebhookAck struct {
	Received bool   `json:"received"`
	Ignored  bool   `json:"ignored,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
