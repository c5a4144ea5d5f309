package repository

import (
	"context"

	"happymeter-backend/internal/db"
	"happymeter-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type UserRepository struct {
	DB *db.Postgres
}

type CreateUserParams struct {
	ProgramID    *int64
	Name         string
	Email        string
	Phone        string
	Role         domain.UserRole
	PasswordHash *string
	IsGoogle     bool
}

func (r UserRepository) Create(ctx context.Context, p CreateUserParams) (*domain.User, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO users (program_id, name, email, phone, role, password_hash, is_google, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7, now(), now())
		RETURNING id, program_id, name, email, phone, role, password_hash, is_google, created_at, updated_at
	`, p.ProgramID, p.Name, p.Email, p.Phone, p.Role, p.PasswordHash, p.IsGoogle)
	return scanUser(row)
}

func (r UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		SELECT id, program_id, name, email, phone, role, password_hash, is_google, created_at, updated_at
		FROM users
		WHERE email=$1 AND deleted_at IS NULL
	`, email)
	return scanUser(row)
}

func (r UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		SELECT id, program_id, name, email, phone, role, password_hash, is_google, created_at, updated_at
		FROM users
		WHERE id=$1 AND deleted_at IS NULL
	`, id)
	return scanUser(row)
}

// ListStaff returns active staff accounts attached to a program.
func (r UserRepository) ListStaff(ctx context.Context, programID int64) ([]domain.User, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT id, program_id, name, email, phone, role, password_hash, is_google, created_at, updated_at
		FROM users
		WHERE program_id=$1 AND role=$2 AND deleted_at IS NULL
		ORDER BY name ASC
	`, programID, domain.RoleStaff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *u)
	}
	return items, rows.Err()
}

func (r UserRepository) AttachProgram(ctx context.Context, userID, programID int64) error {
	_, err := r.DB.Pool.Exec(ctx, `UPDATE users SET program_id=$2, updated_at=now() WHERE id=$1`, userID, programID)
	return err
}

func (r UserRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.DB.Pool.Exec(ctx, `UPDATE users SET deleted_at=now() WHERE id=$1`, id)
	return err
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	var programID pgtype.Int8
	if err := row.Scan(&u.ID, &programID, &u.Name, &u.Email, &u.Phone, &u.Role, &u.PasswordHash, &u.IsGoogle, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if programID.Valid {
		u.ProgramID = &programID.Int64
	}
	return &u, nil
}
