package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"ticketing-backend/internal/domains/ticket/model"
)

const ticketColumns = `id, order_id, event_id, user_id, tier_id, tier_name, price,
	qr_code, status, checked_in_at, checked_in_by, created_at, updated_at`

type postgresTicketRepository struct {
	db *pgxpool.Pool
}

func NewPostgresTicketRepository(db *pgxpool.Pool) TicketRepository {
	return &postgresTicketRepository{db: db}
}

func scanTicket(row pgx.Row) (*model.Ticket, error) {
	var t model.Ticket
	err := row.Scan(
		&t.ID, &t.OrderID, &t.EventID, &t.UserID, &t.TierID, &t.TierName, &t.Price,
		&t.QRCode, &t.Status, &t.CheckedInAt, &t.CheckedInBy, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *postgresTicketRepository) InsertWithTx(ctx context.Context, tx pgx.Tx, ticket *model.Ticket) error {
	query := `
		INSERT INTO tickets (id, order_id, event_id, user_id, tier_id, tier_name, price, qr_code, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	err := tx.QueryRow(ctx, query,
		ticket.ID, ticket.OrderID, ticket.EventID, ticket.UserID, ticket.TierID,
		ticket.TierName, ticket.Price, ticket.QRCode, ticket.Status,
	).Scan(&ticket.CreatedAt, &ticket.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "tickets_qr_code_key" {
			return model.ErrDuplicateQRCode
		}
		return fmt.Errorf("failed to insert ticket: %w", err)
	}
	return nil
}

func (r *postgresTicketRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id = $1`, ticketColumns)

	ticket, err := scanTicket(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return ticket, nil
}

func (r *postgresTicketRepository) GetByQRCode(ctx context.Context, qrCode string) (*model.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE qr_code = $1`, ticketColumns)

	ticket, err := scanTicket(r.db.QueryRow(ctx, query, qrCode))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to get ticket by qr code: %w", err)
	}
	return ticket, nil
}

func (r *postgresTicketRepository) CountActiveForUserTier(ctx context.Context, userID, eventID, tierID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*) FROM tickets
		WHERE user_id = $1 AND event_id = $2 AND tier_id = $3
		  AND status IN ($4, $5, $6)`

	var count int
	err := r.db.QueryRow(ctx, query, userID, eventID, tierID,
		model.StatusValid, model.StatusUsed, model.StatusTransferred).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count user tickets: %w", err)
	}
	return count, nil
}

// CheckIn is the single-use gate. The WHERE status guard makes
// concurrent scans of the same ticket resolve to exactly one winner.
func (r *postgresTicketRepository) CheckIn(ctx context.Context, ticketID, scannerID uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE tickets
		SET status = $1, checked_in_at = $2, checked_in_by = $3, updated_at = NOW()
		WHERE id = $4 AND status = $5`

	tag, err := r.db.Exec(ctx, query, model.StatusUsed, at, scannerID, ticketID, model.StatusValid)
	if err != nil {
		return false, fmt.Errorf("failed to check in ticket: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *postgresTicketRepository) CancelByOrderWithTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (int, error) {
	query := `
		UPDATE tickets
		SET status = $1, updated_at = NOW()
		WHERE order_id = $2 AND status = $3`

	tag, err := tx.Exec(ctx, query, model.StatusCancelled, orderID, model.StatusValid)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel order tickets: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *postgresTicketRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*model.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE order_id = $1 ORDER BY created_at`, ticketColumns)
	return r.list(ctx, query, orderID)
}

func (r *postgresTicketRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE user_id = $1 ORDER BY created_at DESC`, ticketColumns)
	return r.list(ctx, query, userID)
}

func (r *postgresTicketRepository) list(ctx context.Context, query string, arg any) ([]*model.Ticket, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []*model.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}
