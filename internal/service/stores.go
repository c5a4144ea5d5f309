package service

import (
	"context"
	"time"

	"happymeter-backend/internal/domain"
	"happymeter-backend/internal/repository"

	"github.com/jackc/pgx/v5"
)

// Consumer-side views of the storage layer. The pgx repositories in
// internal/repository satisfy them as-is, and *pgxpool.Pool satisfies
// txBeginner; tests substitute in-memory implementations so the
// transactional flows can be exercised without a database.

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type customerStore interface {
	Create(ctx context.Context, p repository.CreateCustomerParams) (*domain.Customer, error)
	GetByID(ctx context.Context, id int64) (*domain.Customer, error)
	GetByToken(ctx context.Context, token string) (*domain.Customer, error)
	GetByPhone(ctx context.Context, programID int64, phone string) (*domain.Customer, error)
	LockByTokenWithTx(ctx context.Context, tx pgx.Tx, token string) (*domain.Customer, error)
	LockByIDWithTx(ctx context.Context, tx pgx.Tx, id int64) (*domain.Customer, error)
	ApplyVisitWithTx(ctx context.Context, tx pgx.Tx, p repository.ApplyVisitParams) (*domain.Customer, error)
	DecrementPointsWithTx(ctx context.Context, tx pgx.Tx, id int64, cost int64) (bool, error)
	SetTierWithTx(ctx context.Context, tx pgx.Tx, id int64, tierID int64) error
	UpdateProfile(ctx context.Context, id int64, p repository.UpdateProfileParams) (*domain.Customer, error)
	FillProfile(ctx context.Context, id int64, p repository.UpdateProfileParams) (*domain.Customer, error)
	MintTokenIfMissing(ctx context.Context, id int64, token string) (*domain.Customer, error)
	SetOTP(ctx context.Context, id int64, code string, expiresAt time.Time) error
	ClearOTP(ctx context.Context, id int64) error
	PurgeExpiredOTP(ctx context.Context) (int64, error)
}

type programStore interface {
	Get(ctx context.Context, id int64) (*domain.Program, error)
	GetWithTx(ctx context.Context, tx pgx.Tx, id int64) (*domain.Program, error)
}

type visitStore interface {
	CreateWithTx(ctx context.Context, tx pgx.Tx, p repository.CreateVisitParams) (*domain.Visit, error)
}

type rewardStore interface {
	Get(ctx context.Context, id int64) (*domain.Reward, error)
	GetWithTx(ctx context.Context, tx pgx.Tx, id int64) (*domain.Reward, error)
	GetGiftWithTx(ctx context.Context, tx pgx.Tx, programID int64) (*domain.Reward, error)
}

type redemptionStore interface {
	CreateWithTx(ctx context.Context, tx pgx.Tx, p repository.CreateRedemptionParams) (*domain.Redemption, error)
	ExistsWithTx(ctx context.Context, tx pgx.Tx, customerID, rewardID int64) (bool, error)
	GetByCode(ctx context.Context, code string) (*domain.Redemption, error)
	MarkRedeemed(ctx context.Context, code, redeemedBy string, evidenceURL *string) (*domain.Redemption, error)
}

type tierStore interface {
	ListWithTx(ctx context.Context, tx pgx.Tx, programID int64) ([]domain.Tier, error)
}

type eventStore interface {
	Create(ctx context.Context, p repository.CreateEventParams) (*domain.CustomerEvent, error)
	CreateWithTx(ctx context.Context, tx pgx.Tx, p repository.CreateEventParams) (*domain.CustomerEvent, error)
}
