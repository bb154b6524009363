package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/splitpay/order-split-service/internal/allocation"
	"github.com/splitpay/order-split-service/internal/model"
)

// ReconciliationService advances a split's settlement status as processor
// events arrive. Deliveries may be concurrent, duplicated or out of order;
// every transition goes through the ledger's guarded atomic update, and the
// transfer check is idempotent, so replays leave the status unchanged after
// the first application.
type ReconciliationService struct {
	ledger SplitLedger
	notes  NoteSink
}

func NewReconciliationService(ledger SplitLedger, notes NoteSink) *ReconciliationService {
	return &ReconciliationService{ledger: ledger, notes: notes}
}

// Handle dispatches one processor event. An event that references an
// unknown payment id is ignored: no record is created speculatively and no
// error is surfaced.
func (s *ReconciliationService) Handle(ctx context.Context, ev *model.ProcessorEvent) error {
	rec, err := s.ledger.GetByPaymentID(ctx, ev.PaymentID)
	if errors.Is(err, pgx.ErrNoRows) {
		log.Debug().Str("payment_id", ev.PaymentID).Str("event", string(ev.Type)).
			Msg("event for unknown payment ignored")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load split record: %w", err)
	}

	switch ev.Type {
	case model.EventPaymentReceived:
		return s.advance(ctx, rec, ev.PaymentID, model.StatusProcessing,
			"Split payment is being processed.",
			model.StatusPending)
	case model.EventPaymentConfirmed:
		return s.advance(ctx, rec, ev.PaymentID, model.StatusConfirmed,
			"Split payment confirmed. Awaiting transfers.",
			model.StatusPending, model.StatusProcessing)
	case model.EventPaymentRefunded:
		// An explicit refund overrides any state, terminal ones included.
		return s.advance(ctx, rec, ev.PaymentID, model.StatusRefunded,
			"Split payment refunded.",
			model.StatusPending, model.StatusProcessing, model.StatusConfirmed,
			model.StatusCompleted, model.StatusFailed)
	case model.EventTransferReceived:
		return s.handleTransferReceived(ctx, rec, ev)
	case model.EventTransferFailed:
		return s.handleTransferFailed(ctx, rec, ev)
	default:
		return fmt.Errorf("unhandled event type %q", ev.Type)
	}
}

// handleTransferReceived records the transfer, notes it on the order, and
// completes the split once every share has a matching transfer. A transfer
// whose amount disagrees with the stored share is reported, not enforced:
// partial payouts are a processor-side decision.
func (s *ReconciliationService) handleTransferReceived(ctx context.Context, rec *model.SplitRecord, ev *model.ProcessorEvent) error {
	share := rec.Shares.Find(ev.WalletID)
	if share == nil {
		s.note(ctx, rec.OrderID, fmt.Sprintf(
			"Transfer received for wallet %s, which is not part of this split.", ev.WalletID))
		return nil
	}

	matched := ev.Value.Sub(share.Amount.Decimal).Abs().LessThanOrEqual(allocation.Tolerance)
	if err := s.ledger.RecordTransfer(ctx, &model.Transfer{
		PaymentID: ev.PaymentID,
		WalletID:  ev.WalletID,
		Amount:    ev.Value,
		Matched:   matched,
	}); err != nil {
		return fmt.Errorf("record transfer: %w", err)
	}

	s.note(ctx, rec.OrderID, fmt.Sprintf(
		"Split transfer received for wallet %s: %s", ev.WalletID, ev.Value.StringFixed(2)))
	if !matched {
		s.note(ctx, rec.OrderID, fmt.Sprintf(
			"Transfer amount %s for wallet %s does not match the expected share %s.",
			ev.Value.StringFixed(2), ev.WalletID, share.Amount.StringFixed(2)))
		return nil
	}

	satisfied, err := s.ledger.CountMatchedTransfers(ctx, ev.PaymentID)
	if err != nil {
		return fmt.Errorf("count matched transfers: %w", err)
	}
	if satisfied < len(rec.Shares.Wallets()) {
		return nil
	}

	return s.advance(ctx, rec, ev.PaymentID, model.StatusCompleted,
		"All split transfers completed.",
		model.StatusProcessing, model.StatusConfirmed)
}

func (s *ReconciliationService) handleTransferFailed(ctx context.Context, rec *model.SplitRecord, ev *model.ProcessorEvent) error {
	reason := ev.Error
	if reason == "" {
		reason = "unknown error"
	}
	return s.advance(ctx, rec, ev.PaymentID, model.StatusFailed,
		fmt.Sprintf("Split transfer to wallet %s failed: %s", ev.WalletID, reason),
		model.StatusPending, model.StatusProcessing, model.StatusConfirmed)
}

// advance applies a guarded status transition and notes it on the order
// when it takes effect. A guard miss is silent: the event was either
// replayed or overtaken by a later state.
func (s *ReconciliationService) advance(ctx context.Context, rec *model.SplitRecord, paymentID string, to model.SplitStatus, note string, from ...model.SplitStatus) error {
	applied, err := s.ledger.TransitionStatus(ctx, paymentID, to, from...)
	if err != nil {
		return fmt.Errorf("transition to %s: %w", to, err)
	}
	if !applied {
		log.Debug().Str("payment_id", paymentID).Str("to", string(to)).
			Msg("status transition not applicable")
		return nil
	}

	s.note(ctx, rec.OrderID, note)
	return nil
}

func (s *ReconciliationService) note(ctx context.Context, orderID, note string) {
	if err := s.notes.Append(ctx, orderID, note); err != nil {
		log.Error().Err(err).Str("order_id", orderID).Msg("failed to append order note")
	}
}
