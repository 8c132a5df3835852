package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ticketing-backend/internal/domains/payment/model"
)

type postgresOutboxRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresOutboxRepository(pool *pgxpool.Pool) OutboxRepository {
	return &postgresOutboxRepository{pool: pool}
}

func (r *postgresOutboxRepository) InsertWithTx(ctx context.Context, tx pgx.Tx, entry *model.RefundOutboxEntry) error {
	query := `
		INSERT INTO refund_outbox (id, transaction_id, amount, reason)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	err := tx.QueryRow(ctx, query, entry.ID, entry.TransactionID, entry.Amount, entry.Reason).Scan(&entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert refund outbox entry: %w", err)
	}
	return nil
}

func (r *postgresOutboxRepository) ListUnprocessed(ctx context.Context, limit int) ([]*model.RefundOutboxEntry, error) {
	query := `
		SELECT id, transaction_id, amount, reason, created_at, processed_at
		FROM refund_outbox
		WHERE processed_at IS NULL
		ORDER BY created_at
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list refund outbox: %w", err)
	}
	defer rows.Close()

	var entries []*model.RefundOutboxEntry
	for rows.Next() {
		var e model.RefundOutboxEntry
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.Amount, &e.Reason, &e.CreatedAt, &e.ProcessedAt); err != nil {
			return nil, fmt.Errorf("failed to scan refund outbox entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
