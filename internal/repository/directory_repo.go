package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/splitpay/order-split-service/internal/model"
)

// DirectoryRepository is the payee directory: it maps vendors to processor
// wallets, orders to affiliate referrals, and orders to their designated
// shipping recipient. Absence is a normal answer for every lookup.
type DirectoryRepository struct {
	pool *pgxpool.Pool
}

func NewDirectoryRepository(pool *pgxpool.Pool) *DirectoryRepository {
	return &DirectoryRepository{pool: pool}
}

func (r *DirectoryRepository) VendorWallet(ctx context.Context, vendorID string) (string, error) {
	if vendorID == "" {
		return "", nil
	}

	var walletID string
	err := r.pool.QueryRow(ctx,
		`SELECT wallet_id FROM payee_wallets WHERE vendor_id = $1`, vendorID).Scan(&walletID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup vendor wallet: %w", err)
	}
	return walletID, nil
}

func (r *DirectoryRepository) AffiliateReferral(ctx context.Context, orderID string) (*model.Referral, error) {
	var (
		walletID string
		amount   string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT wallet_id, amount::text FROM referrals WHERE order_id = $1`, orderID).
		Scan(&walletID, &amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup referral: %w", err)
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse referral amount: %w", err)
	}
	return &model.Referral{WalletID: walletID, Amount: d}, nil
}

func (r *DirectoryRepository) ShippingRecipient(ctx context.Context, orderID string) (string, error) {
	var walletID string
	err := r.pool.QueryRow(ctx,
		`SELECT w.wallet_id FROM shipping_recipients s
		JOIN payee_wallets w ON w.vendor_id = s.vendor_id
		WHERE s.order_id = $1`, orderID).Scan(&walletID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup shipping recipient: %w", err)
	}
	return walletID, nil
}
