package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/splitpay/order-split-service/internal/model"
)

// SettingsRepository reads the split configuration owned by the settings
// store. The table holds a single row; a missing row yields a disabled
// configuration rather than an error.
type SettingsRepository struct {
	pool *pgxpool.Pool
}

func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

func (r *SettingsRepository) Load(ctx context.Context) (*model.CommissionConfig, error) {
	var (
		cfg           model.CommissionConfig
		mktPct        string
		affMode       string
		affPct        string
		staticWallets []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT dynamic_split_enabled, marketplace_wallet_id, marketplace_commission_pct::text,
			affiliate_commission_mode, default_affiliate_commission_pct::text, static_wallets
		FROM split_settings WHERE id = 1`).
		Scan(&cfg.DynamicSplitEnabled, &cfg.MarketplaceWalletID, &mktPct,
			&affMode, &affPct, &staticWallets)
	if errors.Is(err, pgx.ErrNoRows) {
		return &model.CommissionConfig{AffiliateCommissionMode: model.AffiliateModeExternal}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load split settings: %w", err)
	}

	if cfg.MarketplaceCommissionPct, err = decimal.NewFromString(mktPct); err != nil {
		return nil, fmt.Errorf("parse marketplace commission pct: %w", err)
	}
	if cfg.DefaultAffiliateCommissionPct, err = decimal.NewFromString(affPct); err != nil {
		return nil, fmt.Errorf("parse affiliate commission pct: %w", err)
	}
	cfg.AffiliateCommissionMode = model.AffiliateCommissionMode(affMode)

	if len(staticWallets) > 0 {
		if err := json.Unmarshal(staticWallets, &cfg.StaticWallets); err != nil {
			return nil, fmt.Errorf("unmarshal static wallets: %w", err)
		}
	}
	return &cfg, nil
}
