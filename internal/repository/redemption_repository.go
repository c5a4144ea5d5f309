package repository

import (
	"context"

	"happymeter-backend/internal/db"
	"happymeter-backend/internal/domain"

	"github.com/jackc/pgx/v5"
)

type RedemptionRepository struct {
	DB *db.Postgres
}

const redemptionColumns = `id, program_id, customer_id, reward_id, code, status, redeemed_by, redeemed_at, evidence_url, created_at`

// Names of the unique indexes guarding redemption invariants; services use
// them to tell a code collision from a duplicate unlock.
const (
	RedemptionCodeConstraint           = "redemptions_code_key"
	RedemptionCustomerRewardConstraint = "redemptions_customer_reward_key"
)

type CreateRedemptionParams struct {
	ProgramID  int64
	CustomerID int64
	RewardID   int64
	Code       string
}

func (r RedemptionRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, p CreateRedemptionParams) (*domain.Redemption, error) {
	row := tx.QueryRow(ctx, `
		INSERT INTO redemptions (program_id, customer_id, reward_id, code, status, created_at)
		VALUES ($1,$2,$3,$4,$5, now())
		RETURNING `+redemptionColumns+`
	`, p.ProgramID, p.CustomerID, p.RewardID, p.Code, domain.RedemptionPending)
	return scanRedemption(row)
}

func (r RedemptionRepository) ExistsWithTx(ctx context.Context, tx pgx.Tx, customerID, rewardID int64) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM redemptions WHERE customer_id=$1 AND reward_id=$2)
	`, customerID, rewardID).Scan(&exists)
	return exists, err
}

func (r RedemptionRepository) GetByCode(ctx context.Context, code string) (*domain.Redemption, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		SELECT `+redemptionColumns+` FROM redemptions WHERE code=$1
	`, code)
	return scanRedemption(row)
}

func (r RedemptionRepository) ListByCustomer(ctx context.Context, customerID int64) ([]domain.Redemption, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT `+redemptionColumns+` FROM redemptions
		WHERE customer_id=$1
		ORDER BY created_at DESC, id DESC
	`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []domain.Redemption
	for rows.Next() {
		d, err := scanRedemption(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	return items, rows.Err()
}

// MarkRedeemed is the single atomic PENDING to REDEEMED transition. The
// status predicate makes a concurrent double-scan lose cleanly: exactly one
// caller sees the row come back.
func (r RedemptionRepository) MarkRedeemed(ctx context.Context, code, redeemedBy string, evidenceURL *string) (*domain.Redemption, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		UPDATE redemptions
		SET status=$2, redeemed_by=$3, redeemed_at=now(), evidence_url=$4
		WHERE code=$1 AND status=$5
		RETURNING `+redemptionColumns+`
	`, code, domain.RedemptionRedeemed, redeemedBy, evidenceURL, domain.RedemptionPending)
	return scanRedemption(row)
}

func scanRedemption(row pgx.Row) (*domain.Redemption, error) {
	var d domain.Redemption
	if err := row.Scan(&d.ID, &d.ProgramID, &d.CustomerID, &d.RewardID, &d.Code, &d.Status, &d.RedeemedBy, &d.RedeemedAt, &d.EvidenceURL, &d.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// IsCodeCollision reports whether err came from the global code index.
func IsCodeCollision(err error) bool {
	return db.IsUniqueViolation(err) && db.ConstraintName(err) == RedemptionCodeConstraint
}

// IsDuplicateUnlock reports whether err came from the per-(customer, reward)
// index.
func IsDuplicateUnlock(err error) bool {
	return db.IsUniqueViolation(err) && db.ConstraintName(err) == RedemptionCustomerRewardConstraint
}
