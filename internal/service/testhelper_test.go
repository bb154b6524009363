package service

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/splitpay/order-split-service/internal/model"
)

// fakeLedger is an in-memory SplitLedger with the same semantics the
// Postgres repository provides: guarded transitions, upserted transfers
// with sticky matches, append-only history.
type fakeLedger struct {
	mu        sync.Mutex
	byOrder   map[string]*model.SplitRecord
	byPayment map[string]*model.SplitRecord
	history   []model.HistoryEntry
	transfers map[string]map[string]*model.Transfer
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		byOrder:   make(map[string]*model.SplitRecord),
		byPayment: make(map[string]*model.SplitRecord),
		transfers: make(map[string]map[string]*model.Transfer),
	}
}

func (l *fakeLedger) CreateRecord(_ context.Context, rec *model.SplitRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	l.byOrder[rec.OrderID] = rec
	if rec.PaymentID != "" {
		l.byPayment[rec.PaymentID] = rec
	}
	l.appendHistory(rec)
	return nil
}

func (l *fakeLedger) BindPayment(_ context.Context, orderID, paymentID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.byOrder[orderID]
	if !ok {
		return pgx.ErrNoRows
	}
	rec.PaymentID = paymentID
	l.byPayment[paymentID] = rec
	return nil
}

func (l *fakeLedger) GetByOrderID(_ context.Context, orderID string) (*model.SplitRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.byOrder[orderID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return rec, nil
}

func (l *fakeLedger) GetByPaymentID(_ context.Context, paymentID string) (*model.SplitRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.byPayment[paymentID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return rec, nil
}

func (l *fakeLedger) TransitionStatus(_ context.Context, paymentID string, to model.SplitStatus, from ...model.SplitStatus) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.byPayment[paymentID]
	if !ok {
		return false, nil
	}
	for _, f := range from {
		if rec.Status == f {
			rec.Status = to
			rec.UpdatedAt = time.Now()
			l.appendHistory(rec)
			return true, nil
		}
	}
	return false, nil
}

func (l *fakeLedger) ListHistory(_ context.Context, orderID string) ([]model.HistoryEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var entries []model.HistoryEntry
	for i := len(l.history) - 1; i >= 0; i-- {
		if l.history[i].OrderID == orderID {
			entries = append(entries, l.history[i])
		}
	}
	return entries, nil
}

func (l *fakeLedger) RecordTransfer(_ context.Context, t *model.Transfer) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	wallets, ok := l.transfers[t.PaymentID]
	if !ok {
		wallets = make(map[string]*model.Transfer)
		l.transfers[t.PaymentID] = wallets
	}
	if existing, ok := wallets[t.WalletID]; ok {
		existing.Amount = t.Amount
		existing.Matched = existing.Matched || t.Matched
		return nil
	}
	stored := *t
	stored.ReceivedAt = time.Now()
	wallets[t.WalletID] = &stored
	return nil
}

func (l *fakeLedger) CountMatchedTransfers(_ context.Context, paymentID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	count := 0
	for _, t := range l.transfers[paymentID] {
		if t.Matched {
			count++
		}
	}
	return count, nil
}

func (l *fakeLedger) ListTransfers(_ context.Context, paymentID string) ([]model.Transfer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var transfers []model.Transfer
	for _, t := range l.transfers[paymentID] {
		transfers = append(transfers, *t)
	}
	return transfers, nil
}

func (l *fakeLedger) appendHistory(rec *model.SplitRecord) {
	l.history = append(l.history, model.HistoryEntry{
		OrderID:               rec.OrderID,
		PaymentID:             rec.PaymentID,
		Shares:                rec.Shares,
		Status:                rec.Status,
		TotalAmount:           rec.TotalAmount,
		MarketplaceCommission: rec.MarketplaceCommission,
		AffiliateCommission:   rec.AffiliateCommission,
		CreatedAt:             time.Now(),
	})
}

type fakeNotes struct {
	mu    sync.Mutex
	notes map[string][]string
}

func newFakeNotes() *fakeNotes {
	return &fakeNotes{notes: make(map[string][]string)}
}

func (n *fakeNotes) Append(_ context.Context, orderID, note string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes[orderID] = append(n.notes[orderID], note)
	return nil
}

func (n *fakeNotes) forOrder(orderID string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.notes[orderID]...)
}

type fakeSettings struct {
	cfg *model.CommissionConfig
}

func (s *fakeSettings) Load(_ context.Context) (*model.CommissionConfig, error) {
	return s.cfg, nil
}

type fakeDirectory struct {
	vendorWallets     map[string]string
	referral          *model.Referral
	shippingRecipient string
}

func (d *fakeDirectory) VendorWallet(_ context.Context, vendorID string) (string, error) {
	return d.vendorWallets[vendorID], nil
}

func (d *fakeDirectory) AffiliateReferral(_ context.Context, _ string) (*model.Referral, error) {
	return d.referral, nil
}

func (d *fakeDirectory) ShippingRecipient(_ context.Context, _ string) (string, error) {
	return d.shippingRecipient, nil
}
