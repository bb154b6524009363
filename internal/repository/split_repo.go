package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/splitpay/order-split-service/internal/model"
)

// SplitRepository is the split ledger: one mutable record per order, an
// append-only history per payment attempt, and the set of transfers seen
// for each payment.
type SplitRepository struct {
	pool *pgxpool.Pool
}

func NewSplitRepository(pool *pgxpool.Pool) *SplitRepository {
	return &SplitRepository{pool: pool}
}

const splitRecordColumns = `id, order_id, COALESCE(payment_id, ''), split_data, status,
	total_amount::text, marketplace_commission::text, COALESCE(affiliate_commission, 0)::text,
	created_at, updated_at`

// CreateRecord inserts the record for an order, or replaces the existing
// one when the order's payment is resubmitted. Either way a history row is
// appended in the same transaction.
func (r *SplitRepository) CreateRecord(ctx context.Context, rec *model.SplitRecord) error {
	splitData, err := json.Marshal(rec.Shares)
	if err != nil {
		return fmt.Errorf("marshal split data: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create record: %w", err)
	}
	defer tx.Rollback(ctx)

	rec.ID = uuid.New().String()
	err = tx.QueryRow(ctx,
		`INSERT INTO split_records (id, order_id, payment_id, split_data, status, total_amount, marketplace_commission, affiliate_commission)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8)
		ON CONFLICT (order_id) DO UPDATE SET
			payment_id = EXCLUDED.payment_id,
			split_data = EXCLUDED.split_data,
			status = EXCLUDED.status,
			total_amount = EXCLUDED.total_amount,
			marketplace_commission = EXCLUDED.marketplace_commission,
			affiliate_commission = EXCLUDED.affiliate_commission,
			updated_at = now()
		RETURNING id, created_at, updated_at`,
		rec.ID, rec.OrderID, rec.PaymentID, splitData, rec.Status,
		rec.TotalAmount, rec.MarketplaceCommission, rec.AffiliateCommission,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert split record: %w", err)
	}

	if err := appendHistory(ctx, tx, rec.OrderID, rec.PaymentID, splitData, rec.Status,
		rec.TotalAmount, rec.MarketplaceCommission, rec.AffiliateCommission); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// BindPayment attaches the processor payment id to an order's record once
// the processor accepts the payment.
func (r *SplitRepository) BindPayment(ctx context.Context, orderID, paymentID string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE split_records SET payment_id = $2, updated_at = now() WHERE order_id = $1`,
		orderID, paymentID)
	if err != nil {
		return fmt.Errorf("bind payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *SplitRepository) GetByOrderID(ctx context.Context, orderID string) (*model.SplitRecord, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+splitRecordColumns+` FROM split_records WHERE order_id = $1`, orderID)
	return scanSplitRecord(row)
}

func (r *SplitRepository) GetByPaymentID(ctx context.Context, paymentID string) (*model.SplitRecord, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+splitRecordColumns+` FROM split_records WHERE payment_id = $1`, paymentID)
	return scanSplitRecord(row)
}

// TransitionStatus atomically moves a payment's record to the given status,
// but only when its current status is one of from. It reports whether the
// transition was applied; a guard miss or an unknown payment id is not an
// error. An applied transition appends a history row in the same
// transaction, so concurrent deliveries for the same payment serialize on
// the record's row lock.
func (r *SplitRepository) TransitionStatus(ctx context.Context, paymentID string, to model.SplitStatus, from ...model.SplitStatus) (bool, error) {
	fromStatuses := make([]string, len(from))
	for i, s := range from {
		fromStatuses[i] = string(s)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		orderID               string
		splitData             []byte
		totalAmount           string
		marketplaceCommission string
		affiliateCommission   string
	)
	err = tx.QueryRow(ctx,
		`UPDATE split_records SET status = $2, updated_at = now()
		WHERE payment_id = $1 AND status = ANY($3)
		RETURNING order_id, split_data, total_amount::text, marketplace_commission::text, COALESCE(affiliate_commission, 0)::text`,
		paymentID, to, fromStatuses,
	).Scan(&orderID, &splitData, &totalAmount, &marketplaceCommission, &affiliateCommission)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("transition status: %w", err)
	}

	total, mkt, aff, err := parseAmounts(totalAmount, marketplaceCommission, affiliateCommission)
	if err != nil {
		return false, err
	}
	if err := appendHistory(ctx, tx, orderID, paymentID, splitData, to, total, mkt, aff); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit transition: %w", err)
	}
	return true, nil
}

func (r *SplitRepository) ListHistory(ctx context.Context, orderID string) ([]model.HistoryEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, order_id, COALESCE(payment_id, ''), split_data, status,
			total_amount::text, marketplace_commission::text, COALESCE(affiliate_commission, 0)::text, created_at
		FROM split_history WHERE order_id = $1 ORDER BY created_at DESC, id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list split history: %w", err)
	}
	defer rows.Close()

	var entries []model.HistoryEntry
	for rows.Next() {
		var (
			e         model.HistoryEntry
			splitData []byte
			total     string
			mkt       string
			aff       string
		)
		if err := rows.Scan(&e.ID, &e.OrderID, &e.PaymentID, &splitData, &e.Status,
			&total, &mkt, &aff, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		if err := json.Unmarshal(splitData, &e.Shares); err != nil {
			return nil, fmt.Errorf("unmarshal history split data: %w", err)
		}
		t, m, a, err := parseAmounts(total, mkt, aff)
		if err != nil {
			return nil, err
		}
		e.TotalAmount, e.MarketplaceCommission, e.AffiliateCommission = t, m, a
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// RecordTransfer upserts a processor-reported transfer keyed by payment and
// wallet. Replayed deliveries overwrite the same row, and a match is
// sticky: once a wallet is satisfied a later mismatched replay cannot
// unsatisfy it.
func (r *SplitRepository) RecordTransfer(ctx context.Context, t *model.Transfer) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO split_transfers (payment_id, wallet_id, amount, matched)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (payment_id, wallet_id) DO UPDATE SET
			amount = EXCLUDED.amount,
			matched = split_transfers.matched OR EXCLUDED.matched,
			received_at = now()`,
		t.PaymentID, t.WalletID, t.Amount, t.Matched)
	if err != nil {
		return fmt.Errorf("record transfer: %w", err)
	}
	return nil
}

func (r *SplitRepository) CountMatchedTransfers(ctx context.Context, paymentID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM split_transfers WHERE payment_id = $1 AND matched`,
		paymentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count matched transfers: %w", err)
	}
	return count, nil
}

func (r *SplitRepository) ListTransfers(ctx context.Context, paymentID string) ([]model.Transfer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT payment_id, wallet_id, amount::text, matched, received_at
		FROM split_transfers WHERE payment_id = $1 ORDER BY received_at, wallet_id`, paymentID)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()

	var transfers []model.Transfer
	for rows.Next() {
		var (
			t      model.Transfer
			amount string
		)
		if err := rows.Scan(&t.PaymentID, &t.WalletID, &amount, &t.Matched, &t.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse transfer amount: %w", err)
		}
		t.Amount = model.NewMoney(d)
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}

func scanSplitRecord(row pgx.Row) (*model.SplitRecord, error) {
	var (
		rec       model.SplitRecord
		splitData []byte
		total     string
		mkt       string
		aff       string
	)
	err := row.Scan(&rec.ID, &rec.OrderID, &rec.PaymentID, &splitData, &rec.Status,
		&total, &mkt, &aff, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(splitData, &rec.Shares); err != nil {
		return nil, fmt.Errorf("unmarshal split data: %w", err)
	}
	t, m, a, err := parseAmounts(total, mkt, aff)
	if err != nil {
		return nil, err
	}
	rec.TotalAmount, rec.MarketplaceCommission, rec.AffiliateCommission = t, m, a
	return &rec, nil
}

func appendHistory(ctx context.Context, tx pgx.Tx, orderID, paymentID string, splitData []byte, status model.SplitStatus, total, mkt, aff model.Money) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO split_history (id, order_id, payment_id, split_data, status, total_amount, marketplace_commission, affiliate_commission)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8)`,
		uuid.New().String(), orderID, paymentID, splitData, status, total, mkt, aff)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func parseAmounts(total, mkt, aff string) (model.Money, model.Money, model.Money, error) {
	t, err := decimal.NewFromString(total)
	if err != nil {
		return model.Money{}, model.Money{}, model.Money{}, fmt.Errorf("parse total amount: %w", err)
	}
	m, err := decimal.NewFromString(mkt)
	if err != nil {
		return model.Money{}, model.Money{}, model.Money{}, fmt.Errorf("parse marketplace commission: %w", err)
	}
	a, err := decimal.NewFromString(aff)
	if err != nil {
		return model.Money{}, model.Money{}, model.Money{}, fmt.Errorf("parse affiliate commission: %w", err)
	}
	return model.NewMoney(t), model.NewMoney(m), model.NewMoney(a), nil
}
