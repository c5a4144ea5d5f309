package repository

import (
	"context"

	"happymeter-backend/internal/db"
	"happymeter-backend/internal/domain"

	"github.com/jackc/pgx/v5"
)

type RewardRepository struct {
	DB *db.Postgres
}

const rewardColumns = `id, program_id, name, description, cost_visits, cost_points, is_active, created_at, updated_at`

type SaveRewardParams struct {
	ProgramID   int64
	Name        string
	Description string
	CostVisits  int
	CostPoints  int64
	IsActive    bool
}

func (r RewardRepository) Create(ctx context.Context, p SaveRewardParams) (*domain.Reward, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO rewards (program_id, name, description, cost_visits, cost_points, is_active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6, now(), now())
		RETURNING `+rewardColumns+`
	`, p.ProgramID, p.Name, p.Description, p.CostVisits, p.CostPoints, p.IsActive)
	return scanReward(row)
}

func (r RewardRepository) Update(ctx context.Context, id int64, p SaveRewardParams) (*domain.Reward, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		UPDATE rewards
		SET name=$2, description=$3, cost_visits=$4, cost_points=$5, is_active=$6, updated_at=now()
		WHERE id=$1 AND deleted_at IS NULL
		RETURNING `+rewardColumns+`
	`, id, p.Name, p.Description, p.CostVisits, p.CostPoints, p.IsActive)
	return scanReward(row)
}

func (r RewardRepository) Get(ctx context.Context, id int64) (*domain.Reward, error) {
	return r.getWith(ctx, r.DB.Pool, id)
}

func (r RewardRepository) GetWithTx(ctx context.Context, tx pgx.Tx, id int64) (*domain.Reward, error) {
	return r.getWith(ctx, tx, id)
}

func (r RewardRepository) List(ctx context.Context, programID int64, activeOnly bool) ([]domain.Reward, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT `+rewardColumns+` FROM rewards
		WHERE program_id=$1 AND deleted_at IS NULL AND ($2 = FALSE OR is_active)
		ORDER BY cost_visits ASC, cost_points ASC, id ASC
	`, programID, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []domain.Reward
	for rows.Next() {
		w, err := scanReward(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *w)
	}
	return items, rows.Err()
}

// GetGiftWithTx returns the active welcome-gift reward of a program, if any.
func (r RewardRepository) GetGiftWithTx(ctx context.Context, tx pgx.Tx, programID int64) (*domain.Reward, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+rewardColumns+` FROM rewards
		WHERE program_id=$1 AND deleted_at IS NULL AND is_active AND description LIKE '%' || $2 || '%'
		ORDER BY id ASC
		LIMIT 1
	`, programID, domain.GiftDescriptionTag)
	return scanReward(row)
}

// HasActiveGift supports the at-most-one-gift-per-program invariant at
// catalog-write time.
func (r RewardRepository) HasActiveGift(ctx context.Context, programID int64, excludeID int64) (bool, error) {
	var exists bool
	err := r.DB.Pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM rewards
			WHERE program_id=$1 AND deleted_at IS NULL AND is_active
			  AND description LIKE '%' || $2 || '%' AND id <> $3
		)
	`, programID, domain.GiftDescriptionTag, excludeID).Scan(&exists)
	return exists, err
}

// Deactivate soft-disables a reward. Rewards referenced by redemptions are
// never hard-deleted.
func (r RewardRepository) Deactivate(ctx context.Context, programID, id int64) error {
	_, err := r.DB.Pool.Exec(ctx, `
		UPDATE rewards SET is_active=FALSE, updated_at=now() WHERE id=$1 AND program_id=$2
	`, id, programID)
	return err
}

func (r RewardRepository) getWith(ctx context.Context, q pgxQuerier, id int64) (*domain.Reward, error) {
	row := q.QueryRow(ctx, `SELECT `+rewardColumns+` FROM rewards WHERE id=$1 AND deleted_at IS NULL`, id)
	return scanReward(row)
}

func scanReward(row pgx.Row) (*domain.Reward, error) {
	var w domain.Reward
	if err := row.Scan(&w.ID, &w.ProgramID, &w.Name, &w.Description, &w.CostVisits, &w.CostPoints, &w.IsActive, &w.CreatedAt, &w.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &w, nil
}
