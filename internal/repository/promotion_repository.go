package repository

import (
	"context"
	"time"

	"happymeter-backend/internal/db"
	"happymeter-backend/internal/domain"

	"github.com/jackc/pgx/v5"
)

type PromotionRepository struct {
	DB *db.Postgres
}

type SavePromotionParams struct {
	ProgramID int64
	Title     string
	Body      string
	StartsAt  *time.Time
	EndsAt    *time.Time
	IsActive  bool
}

func (r PromotionRepository) Create(ctx context.Context, p SavePromotionParams) (*domain.Promotion, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO promotions (program_id, title, body, starts_at, ends_at, is_active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6, now(), now())
		RETURNING id, program_id, title, body, starts_at, ends_at, is_active, created_at, updated_at
	`, p.ProgramID, p.Title, p.Body, p.StartsAt, p.EndsAt, p.IsActive)
	return scanPromotion(row)
}

func (r PromotionRepository) List(ctx context.Context, programID int64, activeOnly bool) ([]domain.Promotion, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT id, program_id, title, body, starts_at, ends_at, is_active, created_at, updated_at
		FROM promotions
		WHERE program_id=$1 AND deleted_at IS NULL AND ($2 = FALSE OR is_active)
		ORDER BY created_at DESC, id DESC
	`, programID, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []domain.Promotion
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *p)
	}
	return items, rows.Err()
}

func (r PromotionRepository) Delete(ctx context.Context, programID, id int64) error {
	tag, err := r.DB.Pool.Exec(ctx, `
		UPDATE promotions SET deleted_at=now() WHERE id=$1 AND program_id=$2 AND deleted_at IS NULL
	`, id, programID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPromotion(row pgx.Row) (*domain.Promotion, error) {
	var p domain.Promotion
	if err := row.Scan(&p.ID, &p.ProgramID, &p.Title, &p.Body, &p.StartsAt, &p.EndsAt, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
