package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"happymeter-backend/internal/domain"
	"happymeter-backend/internal/metrics"
	"happymeter-backend/internal/repository"

	"github.com/google/uuid"
)

const codeAttempts = 3

// RewardService owns the unlock and redemption state machine:
// (none) -> PENDING -> REDEEMED, with REDEEMED terminal.
type RewardService struct {
	DB          txBeginner
	Customers   customerStore
	Rewards     rewardStore
	Redemptions redemptionStore
	Programs    programStore
	Events      eventStore
	Logger      *slog.Logger
}

// RedeemResult is deliberately minimal: the staff terminal needs the reward
// and customer names for confirmation, nothing more.
type RedeemResult struct {
	RewardName   string
	CustomerName string
}

// Unlock creates a PENDING redemption for (customer, reward). The points
// decrement and the insert share one transaction; a duplicate unlock or an
// insufficient balance leaves both untouched.
func (s RewardService) Unlock(ctx context.Context, customerID, rewardID int64) (*domain.Redemption, error) {
	// Code collisions abort the whole transaction, so retry from the top
	// with a fresh code rather than inside it.
	for attempt := 0; ; attempt++ {
		red, err := s.tryUnlock(ctx, customerID, rewardID, NewRedemptionCode())
		if repository.IsCodeCollision(err) && attempt < codeAttempts {
			continue
		}
		return red, err
	}
}

func (s RewardService) tryUnlock(ctx context.Context, customerID, rewardID int64, code string) (*domain.Redemption, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin unlock tx: %w", err)
	}
	defer tx.Rollback(ctx)

	c, err := s.Customers.LockByIDWithTx(ctx, tx, customerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	reward, err := s.Rewards.GetWithTx(ctx, tx, rewardID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRewardNotFound
		}
		return nil, err
	}
	if reward.ProgramID != c.ProgramID {
		return nil, ErrRewardNotFound
	}
	if !reward.IsActive {
		return nil, ErrRewardInactive
	}

	// The visits floor applies to both cost modes; a points-priced reward
	// with a nonzero visit cost acts as a minimum-tenure gate.
	if c.CurrentVisits < reward.CostVisits {
		return nil, ErrInsufficientVisits
	}

	exists, err := s.Redemptions.ExistsWithTx(ctx, tx, c.ID, reward.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyUnlocked
	}

	if reward.PointsMode() {
		ok, err := s.Customers.DecrementPointsWithTx(ctx, tx, c.ID, reward.CostPoints)
		if err != nil {
			return nil, fmt.Errorf("spend points: %w", err)
		}
		if !ok {
			return nil, ErrInsufficientPoints
		}
	}
	// Visits mode is a cumulative ladder: unlocking never consumes visits.

	red, err := s.Redemptions.CreateWithTx(ctx, tx, repository.CreateRedemptionParams{
		ProgramID:  c.ProgramID,
		CustomerID: c.ID,
		RewardID:   reward.ID,
		Code:       code,
	})
	if err != nil {
		if repository.IsDuplicateUnlock(err) {
			return nil, ErrAlreadyUnlocked
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit unlock: %w", err)
	}

	metrics.RedemptionsTotal.WithLabelValues("unlocked").Inc()
	s.Logger.Info("reward unlocked", "customer", c.ID, "reward", reward.ID, "code", red.Code)
	return red, nil
}

// Redeem transitions a code from PENDING to REDEEMED at most once. The
// transition is a single conditional update, so a concurrent double scan of
// the same code succeeds for exactly one terminal.
func (s RewardService) Redeem(ctx context.Context, staffID string, rawCode string, evidenceURL *string) (*RedeemResult, error) {
	code := NormalizeRedemptionCode(rawCode)
	if code == "" {
		return nil, ErrCodeNotFound
	}
	if staffID == "" {
		staffID = domain.RedeemedBySystem
	}

	red, err := s.Redemptions.MarkRedeemed(ctx, code, staffID, evidenceURL)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		// Nothing transitioned: either the code does not exist or it was
		// already delivered.
		existing, lookupErr := s.Redemptions.GetByCode(ctx, code)
		if lookupErr != nil {
			if errors.Is(lookupErr, repository.ErrNotFound) {
				return nil, ErrCodeNotFound
			}
			return nil, lookupErr
		}
		if existing.Status == domain.RedemptionRedeemed {
			return nil, ErrAlreadyRedeemed
		}
		return nil, err
	}

	reward, err := s.Rewards.Get(ctx, red.RewardID)
	if err != nil {
		return nil, err
	}
	customer, err := s.Customers.GetByID(ctx, red.CustomerID)
	if err != nil {
		return nil, err
	}

	metrics.RedemptionsTotal.WithLabelValues("redeemed").Inc()
	s.Logger.Info("redemption delivered", "code", code, "staff", staffID, "reward", reward.ID)
	return &RedeemResult{RewardName: reward.Name, CustomerName: customer.Name}, nil
}

// ClaimGift unlocks the program's welcome gift for a customer. It skips the
// visit/point cost checks; eligibility is the program flag, the reward's
// active flag and the one-claim-per-customer rule.
func (s RewardService) ClaimGift(ctx context.Context, customerID int64) (*domain.Redemption, error) {
	for attempt := 0; ; attempt++ {
		red, err := s.tryClaimGift(ctx, customerID, NewRedemptionCode())
		if repository.IsCodeCollision(err) && attempt < codeAttempts {
			continue
		}
		return red, err
	}
}

func (s RewardService) tryClaimGift(ctx context.Context, customerID int64, code string) (*domain.Redemption, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin gift tx: %w", err)
	}
	defer tx.Rollback(ctx)

	c, err := s.Customers.LockByIDWithTx(ctx, tx, customerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	prog, err := s.Programs.GetWithTx(ctx, tx, c.ProgramID)
	if err != nil {
		return nil, err
	}
	if !prog.FirstVisitGift {
		return nil, ErrGiftUnavailable
	}
	gift, err := s.Rewards.GetGiftWithTx(ctx, tx, c.ProgramID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrGiftUnavailable
		}
		return nil, err
	}

	exists, err := s.Redemptions.ExistsWithTx(ctx, tx, c.ID, gift.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyUnlocked
	}

	red, err := s.Redemptions.CreateWithTx(ctx, tx, repository.CreateRedemptionParams{
		ProgramID:  c.ProgramID,
		CustomerID: c.ID,
		RewardID:   gift.ID,
		Code:       code,
	})
	if err != nil {
		if repository.IsDuplicateUnlock(err) {
			return nil, ErrAlreadyUnlocked
		}
		return nil, err
	}
	if _, err := s.Events.CreateWithTx(ctx, tx, repository.CreateEventParams{
		ProgramID:  c.ProgramID,
		CustomerID: c.ID,
		Type:       domain.EventGiftClaimed,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit gift: %w", err)
	}

	metrics.RedemptionsTotal.WithLabelValues("gift").Inc()
	s.Logger.Info("welcome gift claimed", "customer", c.ID, "reward", gift.ID)
	return red, nil
}

// NewRedemptionCode derives an 8-character uppercase code from a random
// UUID. Global uniqueness is enforced by the code index; callers retry on
// collision.
func NewRedemptionCode() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return raw[:8]
}

// NormalizeRedemptionCode trims, uppercases and strips the human-friendly
// "R:" prefix printed on claim tickets.
func NormalizeRedemptionCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	code = strings.TrimPrefix(code, "R:")
	return strings.TrimSpace(code)
}
