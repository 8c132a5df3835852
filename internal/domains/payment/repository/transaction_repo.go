package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"ticketing-backend/internal/domains/payment/model"
)

const transactionColumns = `id, idempotency_key, status, user_id, order_id, event_id,
	amount, currency,
	gateway_provider, gateway_reference, gateway_transaction_id, gateway_channel,
	gateway_auth_meta, gateway_response, gateway_fees,
	split_platform_amount, split_organizer_amount, split_subaccount_code, split_fees,
	retry_count, max_retries, last_retry_at, next_retry_at,
	failure_reason, failure_code, failure_details,
	total_refunded,
	initiated_at, processing_at, completed_at, failed_at,
	meta_ip, meta_user_agent, meta_email, meta_tier_name, meta_quantity,
	created_at, updated_at`

type postgresTransactionRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresTransactionRepository(pool *pgxpool.Pool) TransactionRepository {
	return &postgresTransactionRepository{pool: pool}
}

// querier lets the same scan path serve pool and in-Tx reads.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	var t model.Transaction
	err := row.Scan(
		&t.ID, &t.IdempotencyKey, &t.Status, &t.UserID, &t.OrderID, &t.EventID,
		&t.Amount, &t.Currency,
		&t.GatewayProvider, &t.GatewayReference, &t.GatewayTransactionID, &t.GatewayChannel,
		&t.GatewayAuthMeta, &t.GatewayResponse, &t.GatewayFees,
		&t.SplitPlatformAmount, &t.SplitOrganizerAmount, &t.SplitSubaccountCode, &t.SplitFees,
		&t.RetryCount, &t.MaxRetries, &t.LastRetryAt, &t.NextRetryAt,
		&t.FailureReason, &t.FailureCode, &t.FailureDetails,
		&t.TotalRefunded,
		&t.InitiatedAt, &t.ProcessingAt, &t.CompletedAt, &t.FailedAt,
		&t.MetaIP, &t.MetaUserAgent, &t.MetaEmail, &t.MetaTierName, &t.MetaQuantity,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func marshalJSONB(m map[string]interface{}) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (r *postgresTransactionRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, txn *model.Transaction) error {
	query := `
		INSERT INTO transactions (
			id, idempotency_key, status, user_id, order_id, event_id,
			amount, currency, gateway_provider, gateway_reference,
			max_retries, initiated_at,
			meta_ip, meta_user_agent, meta_email, meta_tier_name, meta_quantity
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17
		)
		RETURNING created_at, updated_at`

	err := tx.QueryRow(ctx, query,
		txn.ID, txn.IdempotencyKey, txn.Status, txn.UserID, txn.OrderID, txn.EventID,
		txn.Amount, txn.Currency, txn.GatewayProvider, txn.GatewayReference,
		txn.MaxRetries, txn.InitiatedAt,
		txn.MetaIP, txn.MetaUserAgent, txn.MetaEmail, txn.MetaTierName, txn.MetaQuantity,
	).Scan(&txn.CreatedAt, &txn.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return model.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *postgresTransactionRepository) get(ctx context.Context, q querier, where string, arg any, forUpdate bool) (*model.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE %s`, transactionColumns, where)
	if forUpdate {
		query += " FOR UPDATE"
	}

	txn, err := scanTransaction(q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return txn, nil
}

func (r *postgresTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	return r.get(ctx, r.pool, "id = $1", id, false)
}

func (r *postgresTransactionRepository) GetByIdempotencyKey(ctx context.Context, key string) (*model.Transaction, error) {
	return r.get(ctx, r.pool, "idempotency_key = $1", key, false)
}

func (r *postgresTransactionRepository) GetByReference(ctx context.Context, reference string) (*model.Transaction, error) {
	return r.get(ctx, r.pool, "gateway_reference = $1", reference, false)
}

func (r *postgresTransactionRepository) GetForUpdateWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Transaction, error) {
	return r.get(ctx, tx, "id = $1", id, true)
}

func (r *postgresTransactionRepository) GetByReferenceForUpdateWithTx(ctx context.Context, tx pgx.Tx, reference string) (*model.Transaction, error) {
	return r.get(ctx, tx, "gateway_reference = $1", reference, true)
}

// UpdateStatusWithTx stamps the lifecycle column matching the new
// status in the same statement, so a transition and its timestamp can
// never disagree.
func (r *postgresTransactionRepository) UpdateStatusWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error {
	query := `
		UPDATE transactions
		SET status = $1,
			processing_at = CASE WHEN $1 = 'processing' THEN NOW() ELSE processing_at END,
			completed_at  = CASE WHEN $1 = 'completed'  THEN NOW() ELSE completed_at END,
			failed_at     = CASE WHEN $1 = 'failed'     THEN NOW() ELSE failed_at END,
			updated_at = NOW()
		WHERE id = $2`

	result, err := tx.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return model.ErrTransactionNotFound
	}
	return nil
}

func (r *postgresTransactionRepository) MarkCompletedWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, data CompletionData) error {
	authMeta, err := marshalJSONB(data.GatewayAuthMeta)
	if err != nil {
		return fmt.Errorf("failed to marshal gateway_auth_meta: %w", err)
	}
	response, err := marshalJSONB(data.GatewayResponse)
	if err != nil {
		return fmt.Errorf("failed to marshal gateway_response: %w", err)
	}

	query := `
		UPDATE transactions
		SET status = 'completed',
			gateway_transaction_id = $1,
			gateway_channel = $2,
			gateway_auth_meta = $3,
			gateway_response = $4,
			gateway_fees = $5,
			split_platform_amount = $6,
			split_organizer_amount = $7,
			split_subaccount_code = $8,
			split_fees = $9,
			failure_reason = NULL,
			failure_code = NULL,
			failure_details = NULL,
			next_retry_at = NULL,
			completed_at = NOW(),
			updated_at = NOW()
		WHERE id = $10`

	result, err := tx.Exec(ctx, query,
		data.GatewayTransactionID, data.GatewayChannel, authMeta, response, data.GatewayFees,
		data.Splits.PlatformAmount, data.Splits.OrganizerAmount, data.Splits.SubaccountCode, data.Splits.Fees,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark transaction completed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return model.ErrTransactionNotFound
	}
	return nil
}

func (r *postgresTransactionRepository) MarkFailedWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, data FailureData) error {
	details, err := marshalJSONB(data.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal failure_details: %w", err)
	}

	query := `
		UPDATE transactions
		SET status = 'failed',
			failure_reason = $1,
			failure_code = $2,
			failure_details = $3,
			next_retry_at = $4,
			failed_at = NOW(),
			updated_at = NOW()
		WHERE id = $5`

	result, err := tx.Exec(ctx, query, data.Reason, data.Code, details, data.NextRetryAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark transaction failed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return model.ErrTransactionNotFound
	}
	return nil
}

func (r *postgresTransactionRepository) MarkRetryingWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, reference string, at time.Time) error {
	query := `
		UPDATE transactions
		SET status = 'processing',
			retry_count = retry_count + 1,
			last_retry_at = $1,
			next_retry_at = NULL,
			gateway_reference = $2,
			processing_at = NOW(),
			updated_at = NOW()
		WHERE id = $3`

	result, err := tx.Exec(ctx, query, at, reference, id)
	if err != nil {
		return fmt.Errorf("failed to mark transaction retrying: %w", err)
	}
	if result.RowsAffected() == 0 {
		return model.ErrTransactionNotFound
	}
	return nil
}

func (r *postgresTransactionRepository) ApplyRefundWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64, newStatus string) error {
	query := `
		UPDATE transactions
		SET total_refunded = total_refunded + $1,
			status = $2,
			updated_at = NOW()
		WHERE id = $3 AND total_refunded + $1 <= amount`

	result, err := tx.Exec(ctx, query, amount, newStatus, id)
	if err != nil {
		return fmt.Errorf("failed to apply refund: %w", err)
	}
	if result.RowsAffected() == 0 {
		return model.ErrRefundExceedsNet
	}
	return nil
}

func (r *postgresTransactionRepository) ListByUser(ctx context.Context, userID uuid.UUID, status string, limit, offset int) ([]*model.Transaction, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM transactions
		WHERE user_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`, transactionColumns)

	return r.list(ctx, query, userID, status, limit, offset)
}

func (r *postgresTransactionRepository) ListDueRetries(ctx context.Context, now time.Time, limit int) ([]*model.Transaction, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM transactions
		WHERE status = 'failed'
		  AND next_retry_at IS NOT NULL
		  AND next_retry_at <= $1
		  AND retry_count < max_retries
		ORDER BY next_retry_at
		LIMIT $2`, transactionColumns)

	return r.list(ctx, query, now, limit)
}

func (r *postgresTransactionRepository) ListStaleProcessing(ctx context.Context, cutoff time.Time, limit int) ([]*model.Transaction, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM transactions
		WHERE status = 'processing'
		  AND processing_at IS NOT NULL
		  AND processing_at < $1
		ORDER BY processing_at
		LIMIT $2`, transactionColumns)

	return r.list(ctx, query, cutoff, limit)
}

func (r *postgresTransactionRepository) list(ctx context.Context, query string, args ...any) ([]*model.Transaction, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txns []*model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}
