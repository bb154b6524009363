package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// OrderNote is an audit annotation attached to an order for operator
// visibility. The order store owns orders; this table only carries the
// notes the split pipeline produces.
type OrderNote struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

type NoteRepository struct {
	pool *pgxpool.Pool
}

func NewNoteRepository(pool *pgxpool.Pool) *NoteRepository {
	return &NoteRepository{pool: pool}
}

func (r *NoteRepository) Append(ctx context.Context, orderID, note string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO order_notes (id, order_id, note) VALUES ($1, $2, $3)`,
		uuid.New().String(), orderID, note)
	if err != nil {
		return fmt.Errorf("append order note: %w", err)
	}

	log.Info().Str("order_id", orderID).Str("note", note).Msg("order note")
	return nil
}

func (r *NoteRepository) ListByOrder(ctx context.Context, orderID string) ([]OrderNote, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, order_id, note, created_at FROM order_notes
		WHERE order_id = $1 ORDER BY created_at DESC, id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order notes: %w", err)
	}
	defer rows.Close()

	var notes []OrderNote
	for rows.Next() {
		var n OrderNote
		if err := rows.Scan(&n.ID, &n.OrderID, &n.Note, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order note: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}
