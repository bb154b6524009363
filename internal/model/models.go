package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role identifies the kind of payee behind a share.
type Role string

const (
	RoleMarketplace Role = "marketplace"
	RoleAffiliate   Role = "affiliate"
	RoleProducer    Role = "producer"
)

// Share is one payee's slice of an order total. WalletID is the payee's
// account identifier at the payment processor. The JSON field names match
// the processor's transfer API and must not change.
type Share struct {
	WalletID string `json:"walletId"`
	Amount   Money  `json:"fixedValue"`
	Role     Role   `json:"role,omitempty"`
}

// ShareList is the ordered partition of one order total.
type ShareList []Share

// Find returns the share for a wallet, or nil if the wallet has none.
func (l ShareList) Find(walletID string) *Share {
	for i := range l {
		if l[i].WalletID == walletID {
			return &l[i]
		}
	}
	return nil
}

// Total sums all share amounts.
func (l ShareList) Total() decimal.Decimal {
	total := decimal.Zero
	for _, s := range l {
		total = total.Add(s.Amount.Decimal)
	}
	return total
}

// Wallets returns the distinct wallet ids in list order.
func (l ShareList) Wallets() []string {
	seen := make(map[string]struct{}, len(l))
	wallets := make([]string, 0, len(l))
	for _, s := range l {
		if _, ok := seen[s.WalletID]; ok {
			continue
		}
		seen[s.WalletID] = struct{}{}
		wallets = append(wallets, s.WalletID)
	}
	return wallets
}

// SplitStatus is the settlement lifecycle state of a split.
type SplitStatus string

const (
	StatusPending    SplitStatus = "pending"
	StatusProcessing SplitStatus = "processing"
	StatusConfirmed  SplitStatus = "confirmed"
	StatusCompleted  SplitStatus = "completed"
	StatusRefunded   SplitStatus = "refunded"
	StatusFailed     SplitStatus = "failed"
)

// SplitRecord is the ledger entry for one order's split. There is at most
// one record per order; resubmitting a payment replaces the share list and
// resets the status, while split history keeps the previous attempts.
type SplitRecord struct {
	ID                    string      `json:"id"`
	OrderID               string      `json:"order_id"`
	PaymentID             string      `json:"payment_id,omitempty"`
	Shares                ShareList   `json:"split_data"`
	Status                SplitStatus `json:"status"`
	TotalAmount           Money       `json:"total_amount"`
	MarketplaceCommission Money       `json:"marketplace_commission"`
	AffiliateCommission   Money       `json:"affiliate_commission"`
	CreatedAt             time.Time   `json:"created_at"`
	UpdatedAt             time.Time   `json:"updated_at"`
}

// HistoryEntry is one append-only audit row for a payment attempt.
type HistoryEntry struct {
	ID                    string      `json:"id"`
	OrderID               string      `json:"order_id"`
	PaymentID             string      `json:"payment_id,omitempty"`
	Shares                ShareList   `json:"split_data"`
	Status                SplitStatus `json:"status"`
	TotalAmount           Money       `json:"total_amount"`
	MarketplaceCommission Money       `json:"marketplace_commission"`
	AffiliateCommission   Money       `json:"affiliate_commission"`
	CreatedAt             time.Time   `json:"created_at"`
}

// Transfer is a processor-reported payout to one wallet of a split.
// Matched is true when the reported amount agrees with the stored share.
type Transfer struct {
	PaymentID  string    `json:"payment_id"`
	WalletID   string    `json:"wallet_id"`
	Amount     Money     `json:"amount"`
	Matched    bool      `json:"matched"`
	ReceivedAt time.Time `json:"received_at"`
}

// AffiliateCommissionMode selects how the affiliate amount is derived.
type AffiliateCommissionMode string

const (
	// AffiliateModeExternal takes the pre-computed referral amount from the
	// affiliate platform.
	AffiliateModeExternal AffiliateCommissionMode = "use_external_referral_amount"
	// AffiliateModePctAfterMarketplace computes a percentage of the order
	// total net of the order-level marketplace commission. The two modes use
	// different bases and are kept as configured alternatives.
	AffiliateModePctAfterMarketplace AffiliateCommissionMode = "percentage_after_marketplace"
)

// StaticWallet is one recipient of the manually configured fallback split.
type StaticWallet struct {
	WalletID   string `json:"wallet_id"`
	Percentage Money  `json:"percentage"`
}

// CommissionConfig is the split configuration owned by the settings store.
type CommissionConfig struct {
	DynamicSplitEnabled           bool
	MarketplaceWalletID           string
	MarketplaceCommissionPct      decimal.Decimal
	AffiliateCommissionMode       AffiliateCommissionMode
	DefaultAffiliateCommissionPct decimal.Decimal
	StaticWallets                 []StaticWallet
}

// Referral is an affiliate resolved for an order, with the amount the
// affiliate platform computed for it.
type Referral struct {
	WalletID string
	Amount   decimal.Decimal
}

// OrderItem is one line item of an order as supplied by the order store.
type OrderItem struct {
	ProductID string
	VendorID  string
	Total     decimal.Decimal
}

// Order is the slice of order data the split engine needs.
type Order struct {
	ID            string
	Items         []OrderItem
	ShippingTotal decimal.Decimal
	Recurring     bool
}

// Total is the order total: line items plus shipping.
func (o *Order) Total() decimal.Decimal {
	total := o.ShippingTotal
	for _, item := range o.Items {
		total = total.Add(item.Total)
	}
	return total
}

// EventType names a processor webhook event.
type EventType string

const (
	EventPaymentReceived  EventType = "payment_received"
	EventPaymentConfirmed EventType = "payment_confirmed"
	EventPaymentRefunded  EventType = "payment_refunded"
	EventTransferReceived EventType = "transfer_received"
	EventTransferFailed   EventType = "transfer_failed"
)

// ParseEventType maps an inbound event name to a known type. The processor
// emits more event kinds than this service handles; unknown names are
// reported as not ok and ignored upstream.
func ParseEventType(s string) (EventType, bool) {
	switch t := EventType(s); t {
	case EventPaymentReceived, EventPaymentConfirmed, EventPaymentRefunded,
		EventTransferReceived, EventTransferFailed:
		return t, true
	}
	return "", false
}

// ProcessorEvent is the tagged form of a processor webhook delivery.
// WalletID, Value and Error are only set for transfer events.
type ProcessorEvent struct {
	Type      EventType
	PaymentID string
	WalletID  string
	Value     Money
	Error     string
}
