package repository

import (
	"context"

	"happymeter-backend/internal/db"
	"happymeter-backend/internal/domain"

	"github.com/jackc/pgx/v5"
)

type TierRepository struct {
	DB *db.Postgres
}

const tierColumns = `id, program_id, position, name, required_visits, required_points, color, benefits, created_at, updated_at`

type SaveTierParams struct {
	ProgramID      int64
	Position       int
	Name           string
	RequiredVisits int
	RequiredPoints int64
	Color          string
	Benefits       string
}

func (r TierRepository) Create(ctx context.Context, p SaveTierParams) (*domain.Tier, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO tiers (program_id, position, name, required_visits, required_points, color, benefits, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7, now(), now())
		RETURNING `+tierColumns+`
	`, p.ProgramID, p.Position, p.Name, p.RequiredVisits, p.RequiredPoints, p.Color, p.Benefits)
	return scanTier(row)
}

func (r TierRepository) Update(ctx context.Context, id int64, p SaveTierParams) (*domain.Tier, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		UPDATE tiers
		SET position=$2, name=$3, required_visits=$4, required_points=$5, color=$6, benefits=$7, updated_at=now()
		WHERE id=$1 AND deleted_at IS NULL
		RETURNING `+tierColumns+`
	`, id, p.Position, p.Name, p.RequiredVisits, p.RequiredPoints, p.Color, p.Benefits)
	return scanTier(row)
}

func (r TierRepository) Get(ctx context.Context, id int64) (*domain.Tier, error) {
	row := r.DB.Pool.QueryRow(ctx, `SELECT `+tierColumns+` FROM tiers WHERE id=$1 AND deleted_at IS NULL`, id)
	return scanTier(row)
}

// List returns active tiers in ascending position; the evaluator depends on
// this ordering.
func (r TierRepository) List(ctx context.Context, programID int64) ([]domain.Tier, error) {
	return r.listWith(ctx, r.DB.Pool, programID)
}

func (r TierRepository) ListWithTx(ctx context.Context, tx pgx.Tx, programID int64) ([]domain.Tier, error) {
	return r.listWith(ctx, tx, programID)
}

func (r TierRepository) Delete(ctx context.Context, programID, id int64) error {
	tag, err := r.DB.Pool.Exec(ctx, `
		UPDATE tiers SET deleted_at=now() WHERE id=$1 AND program_id=$2 AND deleted_at IS NULL
	`, id, programID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r TierRepository) listWith(ctx context.Context, q pgxQuerier, programID int64) ([]domain.Tier, error) {
	rows, err := q.Query(ctx, `
		SELECT `+tierColumns+` FROM tiers
		WHERE program_id=$1 AND deleted_at IS NULL
		ORDER BY position ASC
	`, programID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []domain.Tier
	for rows.Next() {
		t, err := scanTier(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *t)
	}
	return items, rows.Err()
}

func scanTier(row pgx.Row) (*domain.Tier, error) {
	var t domain.Tier
	if err := row.Scan(&t.ID, &t.ProgramID, &t.Position, &t.Name, &t.RequiredVisits, &t.RequiredPoints, &t.Color, &t.Benefits, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}
