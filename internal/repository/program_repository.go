package repository

import (
	"context"

	"happymeter-backend/internal/db"
	"happymeter-backend/internal/domain"

	"github.com/jackc/pgx/v5"
)

type ProgramRepository struct {
	DB *db.Postgres
}

type SaveProgramParams struct {
	OwnerID            int64
	Name               string
	PointsPercentage   int
	FirstVisitGift     bool
	FirstVisitGiftText string
	ThemeColor         string
	LogoURL            string
}

func (r ProgramRepository) Create(ctx context.Context, p SaveProgramParams) (*domain.Program, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO programs (owner_id, name, points_percentage, first_visit_gift, first_visit_gift_text, theme_color, logo_url, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7, now(), now())
		RETURNING id, owner_id, name, points_percentage, first_visit_gift, first_visit_gift_text, theme_color, logo_url, created_at, updated_at
	`, p.OwnerID, p.Name, p.PointsPercentage, p.FirstVisitGift, p.FirstVisitGiftText, p.ThemeColor, p.LogoURL)
	return scanProgram(row)
}

func (r ProgramRepository) Update(ctx context.Context, id int64, p SaveProgramParams) (*domain.Program, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		UPDATE programs
		SET name=$2, points_percentage=$3, first_visit_gift=$4, first_visit_gift_text=$5, theme_color=$6, logo_url=$7, updated_at=now()
		WHERE id=$1 AND deleted_at IS NULL
		RETURNING id, owner_id, name, points_percentage, first_visit_gift, first_visit_gift_text, theme_color, logo_url, created_at, updated_at
	`, id, p.Name, p.PointsPercentage, p.FirstVisitGift, p.FirstVisitGiftText, p.ThemeColor, p.LogoURL)
	return scanProgram(row)
}

func (r ProgramRepository) Get(ctx context.Context, id int64) (*domain.Program, error) {
	return r.getWith(ctx, r.DB.Pool, id)
}

func (r ProgramRepository) GetWithTx(ctx context.Context, tx pgx.Tx, id int64) (*domain.Program, error) {
	return r.getWith(ctx, tx, id)
}

func (r ProgramRepository) GetByOwner(ctx context.Context, ownerID int64) (*domain.Program, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		SELECT id, owner_id, name, points_percentage, first_visit_gift, first_visit_gift_text, theme_color, logo_url, created_at, updated_at
		FROM programs
		WHERE owner_id=$1 AND deleted_at IS NULL
		ORDER BY id ASC
		LIMIT 1
	`, ownerID)
	return scanProgram(row)
}

func (r ProgramRepository) getWith(ctx context.Context, q pgxQuerier, id int64) (*domain.Program, error) {
	row := q.QueryRow(ctx, `
		SELECT id, owner_id, name, points_percentage, first_visit_gift, first_visit_gift_text, theme_color, logo_url, created_at, updated_at
		FROM programs
		WHERE id=$1 AND deleted_at IS NULL
	`, id)
	return scanProgram(row)
}

func scanProgram(row pgx.Row) (*domain.Program, error) {
	var p domain.Program
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.PointsPercentage, &p.FirstVisitGift, &p.FirstVisitGiftText, &p.ThemeColor, &p.LogoURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
