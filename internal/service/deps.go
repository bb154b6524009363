package service

import (
	"context"

	"github.com/splitpay/order-split-service/internal/model"
)

// SplitLedger is the persistence surface the split services need. It is
// implemented by repository.SplitRepository; the services never reach for
// storage through ambient state. Lookups signal a missing record with
// pgx.ErrNoRows.
type SplitLedger interface {
	CreateRecord(ctx context.Context, rec *model.SplitRecord) error
	BindPayment(ctx context.Context, orderID, paymentID string) error
	GetByOrderID(ctx context.Context, orderID string) (*model.SplitRecord, error)
	GetByPaymentID(ctx context.Context, paymentID string) (*model.SplitRecord, error)
	TransitionStatus(ctx context.Context, paymentID string, to model.SplitStatus, from ...model.SplitStatus) (bool, error)
	ListHistory(ctx context.Context, orderID string) ([]model.HistoryEntry, error)
	RecordTransfer(ctx context.Context, t *model.Transfer) error
	CountMatchedTransfers(ctx context.Context, paymentID string) (int, error)
	ListTransfers(ctx context.Context, paymentID string) ([]model.Transfer, error)
}

// NoteSink receives audit annotations for the order store. Implemented by
// repository.NoteRepository.
type NoteSink interface {
	Append(ctx context.Context, orderID, note string) error
}

// SettingsStore supplies the commission configuration. Implemented by
// repository.SettingsRepository.
type SettingsStore interface {
	Load(ctx context.Context) (*model.CommissionConfig, error)
}
