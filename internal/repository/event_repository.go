package repository

import (
	"context"

	"happymeter-backend/internal/db"
	"happymeter-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// EventRepository is append-only, like VisitRepository.
type EventRepository struct {
	DB *db.Postgres
}

type CreateEventParams struct {
	ProgramID  int64
	CustomerID int64
	Type       domain.EventType
	TierID     *int64
}

func (r EventRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, p CreateEventParams) (*domain.CustomerEvent, error) {
	row := tx.QueryRow(ctx, `
		INSERT INTO customer_events (program_id, customer_id, type, tier_id, created_at)
		VALUES ($1,$2,$3,$4, now())
		RETURNING id, program_id, customer_id, type, tier_id, created_at
	`, p.ProgramID, p.CustomerID, p.Type, p.TierID)
	return scanEvent(row)
}

func (r EventRepository) Create(ctx context.Context, p CreateEventParams) (*domain.CustomerEvent, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO customer_events (program_id, customer_id, type, tier_id, created_at)
		VALUES ($1,$2,$3,$4, now())
		RETURNING id, program_id, customer_id, type, tier_id, created_at
	`, p.ProgramID, p.CustomerID, p.Type, p.TierID)
	return scanEvent(row)
}

func (r EventRepository) ListByCustomer(ctx context.Context, customerID int64, limit int) ([]domain.CustomerEvent, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT id, program_id, customer_id, type, tier_id, created_at
		FROM customer_events
		WHERE customer_id=$1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, customerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []domain.CustomerEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *e)
	}
	return items, rows.Err()
}

func scanEvent(row pgx.Row) (*domain.CustomerEvent, error) {
	var e domain.CustomerEvent
	var tierID pgtype.Int8
	if err := row.Scan(&e.ID, &e.ProgramID, &e.CustomerID, &e.Type, &tierID, &e.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if tierID.Valid {
		e.TierID = &tierID.Int64
	}
	return &e, nil
}
