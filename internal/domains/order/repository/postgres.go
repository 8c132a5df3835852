package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"

	"ticketing-backend/internal/domains/order/model"
)

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) OrderRepository {
	return &postgresRepository{pool: pool}
}

const orderColumns = `
	id, user_id, event_id, tier_id, tier_name, quantity,
	unit_price, total_amount, payment_status, ticket_ids,
	split_platform_amount, split_organizer_amount,
	gateway_reference, gateway_transaction_id, paid_at,
	created_at, updated_at
`

func scanOrder(row pgx.Row) (*model.Order, error) {
	order := &model.Order{}
	var ticketIDs pq.StringArray

	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.EventID,
		&order.TierID,
		&order.TierName,
		&order.Quantity,
		&order.UnitPrice,
		&order.TotalAmount,
		&order.PaymentStatus,
		&ticketIDs,
		&order.SplitPlatformAmount,
		&order.SplitOrganizerAmount,
		&order.GatewayReference,
		&order.GatewayTransactionID,
		&order.PaidAt,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	order.TicketIDs = ticketIDs
	return order, nil
}

func (r *postgresRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (
			id, user_id, event_id, tier_id, tier_name, quantity,
			unit_price, total_amount, payment_status, ticket_ids,
			gateway_reference
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
		RETURNING created_at, updated_at
	`

	err := tx.QueryRow(ctx, query,
		order.ID,
		order.UserID,
		order.EventID,
		order.TierID,
		order.TierName,
		order.Quantity,
		order.UnitPrice,
		order.TotalAmount,
		order.PaymentStatus,
		pq.StringArray(order.TicketIDs),
		order.GatewayReference,
	).Scan(&order.CreatedAt, &order.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return scanOrder(r.pool.QueryRow(ctx, query, orderID))
}

func (r *postgresRepository) GetForUpdateWithTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`
	return scanOrder(tx.QueryRow(ctx, query, orderID))
}

func (r *postgresRepository) MarkCompletedWithTx(
	ctx context.Context,
	tx pgx.Tx,
	orderID uuid.UUID,
	update CompletionUpdate,
) error {
	query := `
		UPDATE orders
		SET payment_status = $2,
			ticket_ids = $3,
			split_platform_amount = $4,
			split_organizer_amount = $5,
			gateway_reference = $6,
			gateway_transaction_id = $7,
			paid_at = $8,
			updated_at = NOW()
		WHERE id = $1
	`

	result, err := tx.Exec(ctx, query,
		orderID,
		model.PaymentStatusCompleted,
		pq.StringArray(update.TicketIDs),
		update.SplitPlatformAmount,
		update.SplitOrganizerAmount,
		update.GatewayReference,
		update.GatewayTransactionID,
		update.PaidAt,
	)
	if err != nil {
		return fmt.Errorf("failed to mark order completed: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}

	return nil
}

func (r *postgresRepository) UpdatePaymentStatusWithTx(
	ctx context.Context,
	tx pgx.Tx,
	orderID uuid.UUID,
	status string,
) error {
	query := `
		UPDATE orders
		SET payment_status = $2,
			updated_at = NOW()
		WHERE id = $1
	`

	result, err := tx.Exec(ctx, query, orderID, status)
	if err != nil {
		return fmt.Errorf("failed to update order payment status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}

	return nil
}
