package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"

	"ticketing-backend/internal/domains/event/model"
)

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

const eventColumns = `
	id, organizer_id, status, title, event_date,
	total_tickets_sold, total_revenue, validator_ids,
	deleted_at, created_at, updated_at
`

const tierColumns = `
	id, event_id, name, price, quantity, sold_count,
	max_per_user, sale_start, sale_end, version
`

func scanEvent(row pgx.Row) (*model.Event, error) {
	event := &model.Event{}
	var validatorIDs pq.StringArray

	err := row.Scan(
		&event.ID,
		&event.OrganizerID,
		&event.Status,
		&event.Title,
		&event.EventDate,
		&event.TotalTicketsSold,
		&event.TotalRevenue,
		&validatorIDs,
		&event.DeletedAt,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	event.ValidatorIDs = validatorIDs
	return event, nil
}

func scanTiers(rows pgx.Rows) ([]model.TicketTier, error) {
	defer rows.Close()

	var tiers []model.TicketTier
	for rows.Next() {
		var t model.TicketTier
		err := rows.Scan(
			&t.ID,
			&t.EventID,
			&t.Name,
			&t.Price,
			&t.Quantity,
			&t.SoldCount,
			&t.MaxPerUser,
			&t.SaleStart,
			&t.SaleEnd,
			&t.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket tier: %w", err)
		}
		tiers = append(tiers, t)
	}

	return tiers, rows.Err()
}

// GetByID loads an event and its tiers without locks.
func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	event, err := scanEvent(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	tierQuery := `SELECT ` + tierColumns + ` FROM ticket_tiers WHERE event_id = $1 ORDER BY price ASC`
	rows, err := r.pool.Query(ctx, tierQuery, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query ticket tiers: %w", err)
	}

	event.Tiers, err = scanTiers(rows)
	if err != nil {
		return nil, err
	}

	return event, nil
}

// GetForUpdateWithTx locks the event row and its tier rows. Locking
// the event first gives every completion the same lock order, so two
// completions on the same event serialize instead of deadlocking.
func (r *postgresRepository) GetForUpdateWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 FOR UPDATE`

	event, err := scanEvent(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	tierQuery := `SELECT ` + tierColumns + ` FROM ticket_tiers WHERE event_id = $1 ORDER BY price ASC FOR UPDATE`
	rows, err := tx.Query(ctx, tierQuery, id)
	if err != nil {
		return nil, fmt.Errorf("failed to lock ticket tiers: %w", err)
	}

	event.Tiers, err = scanTiers(rows)
	if err != nil {
		return nil, err
	}

	return event, nil
}

// IncrementTierSoldWithTx applies the sold-count bump with a version
// CAS. The caller already holds the tier row lock; the version check
// is the belt on top of it.
func (r *postgresRepository) IncrementTierSoldWithTx(
	ctx context.Context,
	tx pgx.Tx,
	eventID, tierID uuid.UUID,
	quantity, expectedVersion int,
) error {
	query := `
		UPDATE ticket_tiers
		SET sold_count = sold_count + $4,
			version = version + 1
		WHERE event_id = $1 AND id = $2 AND version = $3
			AND sold_count + $4 <= quantity
	`

	result, err := tx.Exec(ctx, query, eventID, tierID, expectedVersion, quantity)
	if err != nil {
		return fmt.Errorf("failed to increment tier sold count: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrTierVersionConflict
	}

	return nil
}

func (r *postgresRepository) AddEventTotalsWithTx(
	ctx context.Context,
	tx pgx.Tx,
	eventID uuid.UUID,
	ticketsDelta int,
	revenueDelta int64,
) error {
	query := `
		UPDATE events
		SET total_tickets_sold = total_tickets_sold + $2,
			total_revenue = total_revenue + $3,
			updated_at = NOW()
		WHERE id = $1
	`

	result, err := tx.Exec(ctx, query, eventID, ticketsDelta, revenueDelta)
	if err != nil {
		return fmt.Errorf("failed to update event totals: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrEventNotFound
	}

	return nil
}

func (r *postgresRepository) GetOrganizer(ctx context.Context, organizerID uuid.UUID) (*model.Organizer, error) {
	query := `
		SELECT id, subaccount_code, platform_fee_percent
		FROM organizers
		WHERE id = $1
	`

	organizer := &model.Organizer{}
	err := r.pool.QueryRow(ctx, query, organizerID).Scan(
		&organizer.ID,
		&organizer.SubaccountCode,
		&organizer.PlatformFeePercent,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrOrganizerNotFound
		}
		return nil, fmt.Errorf("failed to get organizer: %w", err)
	}

	return organizer, nil
}
