package repository

import (
	"context"
	"time"

	"happymeter-backend/internal/db"
	"happymeter-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// VisitRepository is append-only; visit rows are never updated or deleted.
type VisitRepository struct {
	DB *db.Postgres
}

type CreateVisitParams struct {
	ProgramID    int64
	CustomerID   int64
	StaffID      *int64
	Rating       *int
	Comment      string
	SpendAmount  int64
	PointsEarned int64
}

func (r VisitRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, p CreateVisitParams) (*domain.Visit, error) {
	row := tx.QueryRow(ctx, `
		INSERT INTO visits (program_id, customer_id, staff_id, rating, comment, spend_amount, points_earned, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7, now())
		RETURNING id, program_id, customer_id, staff_id, rating, comment, spend_amount, points_earned, created_at
	`, p.ProgramID, p.CustomerID, p.StaffID, p.Rating, p.Comment, p.SpendAmount, p.PointsEarned)
	return scanVisit(row)
}

func (r VisitRepository) ListByCustomer(ctx context.Context, customerID int64, limit int) ([]domain.Visit, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT id, program_id, customer_id, staff_id, rating, comment, spend_amount, points_earned, created_at
		FROM visits
		WHERE customer_id=$1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, customerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectVisits(rows)
}

// ListByProgram returns visits in a time window, oldest first, for reporting.
func (r VisitRepository) ListByProgram(ctx context.Context, programID int64, from, to time.Time) ([]domain.Visit, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT id, program_id, customer_id, staff_id, rating, comment, spend_amount, points_earned, created_at
		FROM visits
		WHERE program_id=$1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at ASC, id ASC
	`, programID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectVisits(rows)
}

func collectVisits(rows pgx.Rows) ([]domain.Visit, error) {
	var items []domain.Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *v)
	}
	return items, rows.Err()
}

func scanVisit(row pgx.Row) (*domain.Visit, error) {
	var v domain.Visit
	var staffID pgtype.Int8
	if err := row.Scan(&v.ID, &v.ProgramID, &v.CustomerID, &staffID, &v.Rating, &v.Comment, &v.Spend.Amount, &v.PointsEarned, &v.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if staffID.Valid {
		v.StaffID = &staffID.Int64
	}
	return &v, nil
}
