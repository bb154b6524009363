// Package engine computes dynamic payment splits: it turns an order's line
// items, shipping total and the configured commission rules into a
// wallet-indexed share list whose amounts add up to the order total.
package engine

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/splitpay/order-split-service/internal/allocation"
	"github.com/splitpay/order-split-service/internal/model"
)

// PayeeDirectory resolves order participants to processor wallets. All
// lookups report absence with a zero value, not an error: an unresolved
// vendor or referral is a normal outcome.
type PayeeDirectory interface {
	// VendorWallet returns the wallet of the vendor fulfilling a line item,
	// or "" when the vendor has no wallet on file.
	VendorWallet(ctx context.Context, vendorID string) (string, error)
	// AffiliateReferral returns the referral recorded for the order, or nil
	// when the order was not referred.
	AffiliateReferral(ctx context.Context, orderID string) (*model.Referral, error)
	// ShippingRecipient returns the wallet of the producer designated to
	// receive the shipping total, or "" when none is designated.
	ShippingRecipient(ctx context.Context, orderID string) (string, error)
}

// NotEligibleError means the order cannot use a dynamic split: the feature
// is disabled, unconfigured, or the order type is unsupported. Callers fall
// back to the static split configuration.
type NotEligibleError struct {
	Reason string
}

func (e *NotEligibleError) Error() string {
	return "order not eligible for dynamic split: " + e.Reason
}

// ValidationError means the computed shares failed the sum or positivity
// invariants. The split must be discarded; no partial list is returned.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "split validation failed: " + e.Reason
}

// Result is a validated split plus the commission totals recorded on the
// ledger alongside it.
type Result struct {
	Shares                model.ShareList
	MarketplaceCommission decimal.Decimal
	AffiliateCommission   decimal.Decimal
}

// Engine is the stateless split calculator. Construct one per process and
// hand it the payee directory explicitly.
type Engine struct {
	directory PayeeDirectory
}

func New(directory PayeeDirectory) *Engine {
	return &Engine{directory: directory}
}

// Compute builds the share list for an order under the given configuration.
//
// Emission order is fixed so identical inputs always yield an identical
// list: affiliate first, then marketplace, then producers in the order
// their first item appears. Rounding happens only at emission time.
func (e *Engine) Compute(ctx context.Context, order *model.Order, cfg *model.CommissionConfig) (*Result, error) {
	if !cfg.DynamicSplitEnabled {
		return nil, &NotEligibleError{Reason: "dynamic split is disabled"}
	}
	if cfg.MarketplaceWalletID == "" {
		return nil, &NotEligibleError{Reason: "marketplace wallet is not configured"}
	}
	if order.Recurring {
		return nil, &NotEligibleError{Reason: "recurring orders are not supported"}
	}

	var (
		commissionTotal  = decimal.Zero
		marketplacePool  = decimal.Zero
		producerWallets  []string
		producerAmounts  = make(map[string]decimal.Decimal)
		addProducerValue = func(wallet string, value decimal.Decimal) {
			if _, ok := producerAmounts[wallet]; !ok {
				producerWallets = append(producerWallets, wallet)
			}
			producerAmounts[wallet] = producerAmounts[wallet].Add(value)
		}
	)

	for _, item := range order.Items {
		commission := allocation.Commission(item.Total, cfg.MarketplaceCommissionPct)
		commissionTotal = commissionTotal.Add(commission)
		residual := item.Total.Sub(commission)

		wallet, err := e.directory.VendorWallet(ctx, item.VendorID)
		if err != nil {
			return nil, fmt.Errorf("resolve vendor wallet for item %s: %w", item.ProductID, err)
		}
		if wallet == "" {
			// Unassigned inventory defaults to the platform.
			marketplacePool = marketplacePool.Add(residual)
			continue
		}
		addProducerValue(wallet, residual)
	}
	marketplacePool = marketplacePool.Add(commissionTotal)

	orderTotal := order.Total()

	affiliate, err := e.resolveAffiliate(ctx, order, cfg, orderTotal, commissionTotal)
	if err != nil {
		return nil, err
	}
	if affiliate != nil {
		amounts := make([]decimal.Decimal, len(producerWallets))
		for i, w := range producerWallets {
			amounts[i] = producerAmounts[w]
		}
		amounts = allocation.DeductProportionally(amounts, affiliate.Amount)
		for i, w := range producerWallets {
			producerAmounts[w] = amounts[i]
		}
	}

	if order.ShippingTotal.IsPositive() {
		recipient, err := e.directory.ShippingRecipient(ctx, order.ID)
		if err != nil {
			return nil, fmt.Errorf("resolve shipping recipient: %w", err)
		}
		if recipient != "" {
			addProducerValue(recipient, order.ShippingTotal)
		} else {
			marketplacePool = marketplacePool.Add(order.ShippingTotal)
		}
	}

	var shares model.ShareList
	if affiliate != nil {
		shares = append(shares, model.Share{
			WalletID: affiliate.WalletID,
			Amount:   model.NewMoney(affiliate.Amount),
			Role:     model.RoleAffiliate,
		})
	}
	if marketplacePool.IsPositive() {
		shares = append(shares, model.Share{
			WalletID: cfg.MarketplaceWalletID,
			Amount:   model.NewMoney(marketplacePool),
			Role:     model.RoleMarketplace,
		})
	}
	for _, w := range producerWallets {
		if producerAmounts[w].IsPositive() {
			shares = append(shares, model.Share{
				WalletID: w,
				Amount:   model.NewMoney(producerAmounts[w]),
				Role:     model.RoleProducer,
			})
		}
	}

	shares = allocation.RoundShares(shares)
	shares = allocation.Normalize(shares, orderTotal)
	if err := allocation.Validate(shares, orderTotal); err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}

	result := &Result{
		Shares:                shares,
		MarketplaceCommission: commissionTotal.Round(2),
	}
	if affiliate != nil {
		result.AffiliateCommission = affiliate.Amount.Round(2)
	}
	return result, nil
}

// resolveAffiliate returns at most one affiliate share for the whole order.
// A missing referral, an empty wallet or a non-positive amount all mean no
// affiliate share is emitted.
func (e *Engine) resolveAffiliate(ctx context.Context, order *model.Order, cfg *model.CommissionConfig, orderTotal, commissionTotal decimal.Decimal) (*model.Referral, error) {
	referral, err := e.directory.AffiliateReferral(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve affiliate referral: %w", err)
	}
	if referral == nil || referral.WalletID == "" {
		return nil, nil
	}

	amount := referral.Amount
	if cfg.AffiliateCommissionMode == model.AffiliateModePctAfterMarketplace {
		amount = allocation.Commission(orderTotal.Sub(commissionTotal), cfg.DefaultAffiliateCommissionPct)
	}
	if !amount.IsPositive() {
		return nil, nil
	}

	return &model.Referral{WalletID: referral.WalletID, Amount: amount}, nil
}
