package repository

import (
	"context"
	"encoding/json"

	"happymeter-backend/internal/db"
	"happymeter-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type RuleRepository struct {
	DB *db.Postgres
}

type SaveRuleParams struct {
	ProgramID int64
	Name      string
	Condition domain.RuleCondition
	RewardID  *int64
	IsActive  bool
}

func (r RuleRepository) Create(ctx context.Context, p SaveRuleParams) (*domain.Rule, error) {
	cond, err := json.Marshal(p.Condition)
	if err != nil {
		return nil, err
	}
	row := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO rules (program_id, name, condition, reward_id, is_active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5, now(), now())
		RETURNING id, program_id, name, condition, reward_id, is_active, created_at, updated_at
	`, p.ProgramID, p.Name, cond, p.RewardID, p.IsActive)
	return scanRule(row)
}

func (r RuleRepository) Update(ctx context.Context, id int64, p SaveRuleParams) (*domain.Rule, error) {
	cond, err := json.Marshal(p.Condition)
	if err != nil {
		return nil, err
	}
	row := r.DB.Pool.QueryRow(ctx, `
		UPDATE rules SET name=$2, condition=$3, reward_id=$4, is_active=$5, updated_at=now()
		WHERE id=$1 AND program_id=$6 AND deleted_at IS NULL
		RETURNING id, program_id, name, condition, reward_id, is_active, created_at, updated_at
	`, id, p.Name, cond, p.RewardID, p.IsActive, p.ProgramID)
	return scanRule(row)
}

func (r RuleRepository) List(ctx context.Context, programID int64) ([]domain.Rule, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT id, program_id, name, condition, reward_id, is_active, created_at, updated_at
		FROM rules
		WHERE program_id=$1 AND deleted_at IS NULL
		ORDER BY id ASC
	`, programID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []domain.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *rule)
	}
	return items, rows.Err()
}

func (r RuleRepository) Delete(ctx context.Context, programID, id int64) error {
	tag, err := r.DB.Pool.Exec(ctx, `
		UPDATE rules SET deleted_at=now() WHERE id=$1 AND program_id=$2 AND deleted_at IS NULL
	`, id, programID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRule(row pgx.Row) (*domain.Rule, error) {
	var rule domain.Rule
	var cond []byte
	var rewardID pgtype.Int8
	if err := row.Scan(&rule.ID, &rule.ProgramID, &rule.Name, &cond, &rewardID, &rule.IsActive, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if rewardID.Valid {
		rule.RewardID = &rewardID.Int64
	}
	if len(cond) > 0 {
		if err := json.Unmarshal(cond, &rule.Condition); err != nil {
			return nil, err
		}
	}
	return &rule, nil
}
