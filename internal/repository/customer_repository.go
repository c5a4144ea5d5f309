package repository

import (
	"context"
	"time"

	"happymeter-backend/internal/db"
	"happymeter-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type CustomerRepository struct {
	DB *db.Postgres
}

const customerColumns = `id, program_id, name, email, phone, photo_url, token,
	total_visits, current_visits, total_points, current_points,
	average_rating, rating_count, last_visit_at, tier_id,
	otp_code, otp_expires_at, created_at, updated_at`

type CreateCustomerParams struct {
	ProgramID int64
	Name      string
	Email     string
	Phone     string
	PhotoURL  string
	Token     string
}

func (r CustomerRepository) Create(ctx context.Context, p CreateCustomerParams) (*domain.Customer, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO customers (program_id, name, email, phone, photo_url, token, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6, now(), now())
		RETURNING `+customerColumns+`
	`, p.ProgramID, p.Name, p.Email, p.Phone, p.PhotoURL, p.Token)
	return scanCustomer(row)
}

func (r CustomerRepository) GetByID(ctx context.Context, id int64) (*domain.Customer, error) {
	row := r.DB.Pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id=$1`, id)
	return scanCustomer(row)
}

func (r CustomerRepository) GetByToken(ctx context.Context, token string) (*domain.Customer, error) {
	row := r.DB.Pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE token=$1 AND token <> ''`, token)
	return scanCustomer(row)
}

func (r CustomerRepository) GetByPhone(ctx context.Context, programID int64, phone string) (*domain.Customer, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		SELECT `+customerColumns+` FROM customers WHERE program_id=$1 AND phone=$2
	`, programID, phone)
	return scanCustomer(row)
}

func (r CustomerRepository) List(ctx context.Context, programID int64, limit int) ([]domain.Customer, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT `+customerColumns+` FROM customers
		WHERE program_id=$1
		ORDER BY last_visit_at DESC NULLS LAST, id DESC
		LIMIT $2
	`, programID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []domain.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// LockByTokenWithTx loads the customer row FOR UPDATE so concurrent scans on
// the same customer serialize on the row lock.
func (r CustomerRepository) LockByTokenWithTx(ctx context.Context, tx pgx.Tx, token string) (*domain.Customer, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+customerColumns+` FROM customers WHERE token=$1 AND token <> '' FOR UPDATE
	`, token)
	return scanCustomer(row)
}

// LockByIDWithTx loads the customer row FOR UPDATE.
func (r CustomerRepository) LockByIDWithTx(ctx context.Context, tx pgx.Tx, id int64) (*domain.Customer, error) {
	row := tx.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id=$1 FOR UPDATE`, id)
	return scanCustomer(row)
}

type ApplyVisitParams struct {
	CustomerID    int64
	PointsEarned  int64
	RatingAdded   bool
	AverageRating float64
	LastVisitAt   time.Time
}

// ApplyVisitWithTx increments counters in place; callers must hold the row
// lock taken by LockByTokenWithTx so the rating average matches the counts.
func (r CustomerRepository) ApplyVisitWithTx(ctx context.Context, tx pgx.Tx, p ApplyVisitParams) (*domain.Customer, error) {
	row := tx.QueryRow(ctx, `
		UPDATE customers SET
			total_visits   = total_visits + 1,
			current_visits = current_visits + 1,
			total_points   = total_points + $2,
			current_points = current_points + $2,
			average_rating = $3,
			rating_count   = rating_count + CASE WHEN $4 THEN 1 ELSE 0 END,
			last_visit_at  = $5,
			updated_at     = now()
		WHERE id=$1
		RETURNING `+customerColumns+`
	`, p.CustomerID, p.PointsEarned, p.AverageRating, p.RatingAdded, p.LastVisitAt)
	return scanCustomer(row)
}

// DecrementPointsWithTx spends currentPoints conditionally; it reports
// whether the balance covered the cost. totalPoints is never touched.
func (r CustomerRepository) DecrementPointsWithTx(ctx context.Context, tx pgx.Tx, id int64, cost int64) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE customers SET current_points = current_points - $2, updated_at = now()
		WHERE id=$1 AND current_points >= $2
	`, id, cost)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r CustomerRepository) SetTierWithTx(ctx context.Context, tx pgx.Tx, id int64, tierID int64) error {
	_, err := tx.Exec(ctx, `UPDATE customers SET tier_id=$2, updated_at=now() WHERE id=$1`, id, tierID)
	return err
}

type UpdateProfileParams struct {
	Name     string
	Email    string
	Phone    string
	PhotoURL string
}

// UpdateProfile overwrites the contact profile. Phone uniqueness within the
// program is enforced by the customers_program_phone_key index.
func (r CustomerRepository) UpdateProfile(ctx context.Context, id int64, p UpdateProfileParams) (*domain.Customer, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		UPDATE customers SET name=$2, email=$3, phone=$4, photo_url=$5, updated_at=now()
		WHERE id=$1
		RETURNING `+customerColumns+`
	`, id, p.Name, p.Email, p.Phone, p.PhotoURL)
	return scanCustomer(row)
}

// FillProfile writes only the fields that are currently empty.
func (r CustomerRepository) FillProfile(ctx context.Context, id int64, p UpdateProfileParams) (*domain.Customer, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		UPDATE customers SET
			name      = CASE WHEN name = ''      THEN $2 ELSE name END,
			email     = CASE WHEN email = ''     THEN $3 ELSE email END,
			photo_url = CASE WHEN photo_url = '' THEN $4 ELSE photo_url END,
			updated_at = now()
		WHERE id=$1
		RETURNING `+customerColumns+`
	`, id, p.Name, p.Email, p.PhotoURL)
	return scanCustomer(row)
}

// MintTokenIfMissing backfills a token for legacy rows; the write is
// conditional so an existing token is never replaced.
func (r CustomerRepository) MintTokenIfMissing(ctx context.Context, id int64, token string) (*domain.Customer, error) {
	if _, err := r.DB.Pool.Exec(ctx, `
		UPDATE customers SET token=$2, updated_at=now() WHERE id=$1 AND token = ''
	`, id, token); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r CustomerRepository) SetOTP(ctx context.Context, id int64, code string, expiresAt time.Time) error {
	_, err := r.DB.Pool.Exec(ctx, `
		UPDATE customers SET otp_code=$2, otp_expires_at=$3, updated_at=now() WHERE id=$1
	`, id, code, expiresAt)
	return err
}

func (r CustomerRepository) ClearOTP(ctx context.Context, id int64) error {
	_, err := r.DB.Pool.Exec(ctx, `
		UPDATE customers SET otp_code=NULL, otp_expires_at=NULL, updated_at=now() WHERE id=$1
	`, id)
	return err
}

// PurgeExpiredOTP clears stale OTP fields and returns how many rows changed.
func (r CustomerRepository) PurgeExpiredOTP(ctx context.Context) (int64, error) {
	tag, err := r.DB.Pool.Exec(ctx, `
		UPDATE customers SET otp_code=NULL, otp_expires_at=NULL
		WHERE otp_code IS NOT NULL AND otp_expires_at < now()
	`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var c domain.Customer
	var tierID pgtype.Int8
	if err := row.Scan(
		&c.ID, &c.ProgramID, &c.Name, &c.Email, &c.Phone, &c.PhotoURL, &c.Token,
		&c.TotalVisits, &c.CurrentVisits, &c.TotalPoints, &c.CurrentPoints,
		&c.AverageRating, &c.RatingCount, &c.LastVisitAt, &tierID,
		&c.OTPCode, &c.OTPExpiresAt, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if tierID.Valid {
		c.TierID = &tierID.Int64
	}
	return &c, nil
}
