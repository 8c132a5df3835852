package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ticketing-backend/internal/domains/payment/model"
)

type postgresRefundRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRefundRepository(pool *pgxpool.Pool) RefundRepository {
	return &postgresRefundRepository{pool: pool}
}

func (r *postgresRefundRepository) InsertWithTx(ctx context.Context, tx pgx.Tx, refund *model.Refund) error {
	query := `
		INSERT INTO transaction_refunds (id, transaction_id, amount, reason, processed_by, processed_at, gateway_refund_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.Exec(ctx, query,
		refund.ID, refund.TransactionID, refund.Amount, refund.Reason,
		refund.ProcessedBy, refund.ProcessedAt, refund.GatewayRefundID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert refund: %w", err)
	}
	return nil
}

func (r *postgresRefundRepository) ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]*model.Refund, error) {
	query := `
		SELECT id, transaction_id, amount, reason, processed_by, processed_at, gateway_refund_id
		FROM transaction_refunds
		WHERE transaction_id = $1
		ORDER BY processed_at`

	rows, err := r.pool.Query(ctx, query, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list refunds: %w", err)
	}
	defer rows.Close()

	var refunds []*model.Refund
	for rows.Next() {
		var rf model.Refund
		if err := rows.Scan(&rf.ID, &rf.TransactionID, &rf.Amount, &rf.Reason, &rf.ProcessedBy, &rf.ProcessedAt, &rf.GatewayRefundID); err != nil {
			return nil, fmt.Errorf("failed to scan refund: %w", err)
		}
		refunds = append(refunds, &rf)
	}
	return refunds, rows.Err()
}
