package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/splitpay/order-split-service/internal/allocation"
	"github.com/splitpay/order-split-service/internal/engine"
	"github.com/splitpay/order-split-service/internal/model"
)

// SplitMode says which allocation path produced (or skipped) a split.
const (
	SplitModeDynamic = "dynamic"
	SplitModeStatic  = "static"
	SplitModeNone    = "none"
)

// ApplyResult is the outcome of submitting an order for splitting. Shares
// is nil in mode "none"; Reason carries the human-readable cause whenever
// the dynamic path was not taken.
type ApplyResult struct {
	Record *model.SplitRecord
	Shares model.ShareList
	Mode   string
	Reason string
}

// Overview aggregates everything known about an order's split.
type Overview struct {
	Record    *model.SplitRecord   `json:"record"`
	History   []model.HistoryEntry `json:"history"`
	Transfers []model.Transfer     `json:"transfers"`
}

// SplitService runs the allocation pipeline: engine computation with a
// static-configuration fallback, ledger persistence, and audit notes.
type SplitService struct {
	settings SettingsStore
	engine   *engine.Engine
	ledger   SplitLedger
	notes    NoteSink
}

func NewSplitService(settings SettingsStore, eng *engine.Engine, ledger SplitLedger, notes NoteSink) *SplitService {
	return &SplitService{settings: settings, engine: eng, ledger: ledger, notes: notes}
}

// Apply computes the split for an order and persists it as pending. A
// NotEligible outcome falls back to the static wallet configuration when
// one exists; a validation failure discards the split. Neither aborts the
// order: the caller gets an empty result and proceeds without a split.
func (s *SplitService) Apply(ctx context.Context, order *model.Order, paymentID string) (*ApplyResult, error) {
	cfg, err := s.settings.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	res, err := s.engine.Compute(ctx, order, cfg)
	if err != nil {
		return s.applyFallback(ctx, order, cfg, paymentID, err)
	}

	rec := &model.SplitRecord{
		OrderID:               order.ID,
		PaymentID:             paymentID,
		Shares:                res.Shares,
		Status:                model.StatusPending,
		TotalAmount:           model.NewMoney(order.Total().Round(2)),
		MarketplaceCommission: model.NewMoney(res.MarketplaceCommission),
		AffiliateCommission:   model.NewMoney(res.AffiliateCommission),
	}
	if err := s.ledger.CreateRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("persist split record: %w", err)
	}

	s.note(ctx, order.ID, "Dynamic split computed and applied to the payment.")
	return &ApplyResult{Record: rec, Shares: rec.Shares, Mode: SplitModeDynamic}, nil
}

// applyFallback handles the engine's recoverable failures. Only the static
// configuration rescues a NotEligible order; every other outcome leaves the
// order without a split.
func (s *SplitService) applyFallback(ctx context.Context, order *model.Order, cfg *model.CommissionConfig, paymentID string, cause error) (*ApplyResult, error) {
	var notEligible *engine.NotEligibleError
	if errors.As(cause, &notEligible) {
		log.Info().Str("order_id", order.ID).Str("reason", notEligible.Reason).
			Msg("order not eligible for dynamic split")

		shares := staticShares(cfg.StaticWallets, order.Total())
		if len(shares) == 0 {
			return &ApplyResult{Mode: SplitModeNone, Reason: notEligible.Reason}, nil
		}

		rec := &model.SplitRecord{
			OrderID:     order.ID,
			PaymentID:   paymentID,
			Shares:      shares,
			Status:      model.StatusPending,
			TotalAmount: model.NewMoney(order.Total().Round(2)),
		}
		if err := s.ledger.CreateRecord(ctx, rec); err != nil {
			return nil, fmt.Errorf("persist static split record: %w", err)
		}
		s.note(ctx, order.ID, "Static split configuration applied to the payment.")
		return &ApplyResult{Record: rec, Shares: shares, Mode: SplitModeStatic, Reason: notEligible.Reason}, nil
	}

	var validation *engine.ValidationError
	if errors.As(cause, &validation) {
		log.Warn().Str("order_id", order.ID).Str("reason", validation.Reason).
			Msg("computed split discarded")
		s.note(ctx, order.ID, "Split discarded: "+validation.Reason)
		return &ApplyResult{Mode: SplitModeNone, Reason: validation.Reason}, nil
	}

	return nil, cause
}

// BindPayment attaches the processor payment id to an already computed
// split once the processor accepts the payment.
func (s *SplitService) BindPayment(ctx context.Context, orderID, paymentID string) error {
	return s.ledger.BindPayment(ctx, orderID, paymentID)
}

func (s *SplitService) GetOrderSplit(ctx context.Context, orderID string) (*model.SplitRecord, error) {
	return s.ledger.GetByOrderID(ctx, orderID)
}

func (s *SplitService) History(ctx context.Context, orderID string) ([]model.HistoryEntry, error) {
	return s.ledger.ListHistory(ctx, orderID)
}

// GetOverview fans out the record, history and transfer reads.
func (s *SplitService) GetOverview(ctx context.Context, orderID string) (*Overview, error) {
	rec, err := s.ledger.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	overview := &Overview{Record: rec}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		overview.History, err = s.ledger.ListHistory(gctx, orderID)
		return err
	})

	if rec.PaymentID != "" {
		g.Go(func() error {
			var err error
			overview.Transfers, err = s.ledger.ListTransfers(gctx, rec.PaymentID)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return overview, nil
}

func (s *SplitService) note(ctx context.Context, orderID, note string) {
	if err := s.notes.Append(ctx, orderID, note); err != nil {
		log.Error().Err(err).Str("order_id", orderID).Msg("failed to append order note")
	}
}

// staticShares converts the manually configured percentage wallets into
// fixed values against the order total. Zero rows are dropped.
func staticShares(wallets []model.StaticWallet, total decimal.Decimal) model.ShareList {
	var shares model.ShareList
	for _, w := range wallets {
		if w.WalletID == "" {
			continue
		}
		amount := allocation.Commission(total, w.Percentage.Decimal).Round(2)
		if !amount.IsPositive() {
			continue
		}
		shares = append(shares, model.Share{WalletID: w.WalletID, Amount: model.NewMoney(amount)})
	}
	return shares
}
