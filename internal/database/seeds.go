package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// SeedData loads a development configuration and payee directory: split
// settings, vendor wallets, a referral and a designated shipping recipient.
// Inserts are idempotent so re-running on an already seeded database is
// harmless.
func SeedData(ctx context.Context, pool *pgxpool.Pool) error {
	if err := seedSettings(ctx, pool); err != nil {
		return err
	}
	if err := seedDirectory(ctx, pool); err != nil {
		return err
	}

	log.Info().Msg("seed data loaded")
	return nil
}

func seedSettings(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx,
		`INSERT INTO split_settings
			(id, dynamic_split_enabled, marketplace_wallet_id, marketplace_commission_pct,
			 affiliate_commission_mode, default_affiliate_commission_pct, static_wallets)
		VALUES (1, true, 'wal_marketplace_demo', 10.00, 'use_external_referral_amount', 5.00,
			'[{"wallet_id":"wal_static_a","percentage":"70"},{"wallet_id":"wal_static_b","percentage":"30"}]')
		ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("seed split settings: %w", err)
	}
	return nil
}

func seedDirectory(ctx context.Context, pool *pgxpool.Pool) error {
	wallets := map[string]string{
		"vnd_1001": "wal_producer_1001",
		"vnd_1002": "wal_producer_1002",
		"vnd_1003": "wal_producer_1003",
	}
	for vendorID, walletID := range wallets {
		if _, err := pool.Exec(ctx,
			`INSERT INTO payee_wallets (vendor_id, wallet_id) VALUES ($1, $2)
			ON CONFLICT (vendor_id) DO NOTHING`, vendorID, walletID); err != nil {
			return fmt.Errorf("seed payee wallet %s: %w", vendorID, err)
		}
	}

	if _, err := pool.Exec(ctx,
		`INSERT INTO referrals (order_id, wallet_id, amount)
		VALUES ('ord_referred_1', 'wal_affiliate_2001', 9.00)
		ON CONFLICT (order_id) DO NOTHING`); err != nil {
		return fmt.Errorf("seed referral: %w", err)
	}

	if _, err := pool.Exec(ctx,
		`INSERT INTO shipping_recipients (order_id, vendor_id)
		VALUES ('ord_shipped_1', 'vnd_1001')
		ON CONFLICT (order_id) DO NOTHING`); err != nil {
		return fmt.Errorf("seed shipping recipient: %w", err)
	}

	return nil
}
