package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"happymeter-backend/internal/domain"
	"happymeter-backend/internal/metrics"
	"happymeter-backend/internal/repository"
)

// LedgerService applies visit/spend events to a customer's running totals.
// Every accepted scan runs in one transaction: rate check, counter update,
// visit append and tier evaluation all commit or roll back together.
type LedgerService struct {
	DB        txBeginner
	Customers customerStore
	Programs  programStore
	Visits    visitStore
	Tiers     TierService
	Cooldown  time.Duration
	Currency  string
	Logger    *slog.Logger
}

type VisitInput struct {
	StaffID     *int64
	Rating      *int
	Comment     string
	SpendAmount int64
}

// VisitResult is the counter snapshot returned to the scanning terminal.
type VisitResult struct {
	Customer     domain.Customer
	Visit        domain.Visit
	PointsEarned int64
	NewTier      *domain.Tier
}

// LogVisit records exactly one visit for the customer behind token. A spend
// event always counts as a visit; a pure visit (no spend) is throttled by
// the cooldown window and rejected without side effects.
func (s LedgerService) LogVisit(ctx context.Context, token string, in VisitInput) (*VisitResult, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin visit tx: %w", err)
	}
	defer tx.Rollback(ctx)

	c, err := s.Customers.LockByTokenWithTx(ctx, tx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	prog, err := s.Programs.GetWithTx(ctx, tx, c.ProgramID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProgramNotFound
		}
		return nil, err
	}

	now := time.Now()
	isSpend := in.SpendAmount > 0
	if !isSpend {
		if wait := CooldownRemaining(c.LastVisitAt, now, s.Cooldown); wait > 0 {
			metrics.VisitsRejected.WithLabelValues("cooldown").Inc()
			return nil, ErrVisitCooldown
		}
	}

	points := PointsEarned(in.SpendAmount, prog.PointsPercentage)
	avg := c.AverageRating
	if in.Rating != nil {
		avg = NextAverage(c.AverageRating, c.RatingCount, *in.Rating)
	}

	updated, err := s.Customers.ApplyVisitWithTx(ctx, tx, repository.ApplyVisitParams{
		CustomerID:    c.ID,
		PointsEarned:  points,
		RatingAdded:   in.Rating != nil,
		AverageRating: avg,
		LastVisitAt:   now,
	})
	if err != nil {
		return nil, fmt.Errorf("apply visit: %w", err)
	}

	visit, err := s.Visits.CreateWithTx(ctx, tx, repository.CreateVisitParams{
		ProgramID:    c.ProgramID,
		CustomerID:   c.ID,
		StaffID:      in.StaffID,
		Rating:       in.Rating,
		Comment:      in.Comment,
		SpendAmount:  in.SpendAmount,
		PointsEarned: points,
	})
	if err != nil {
		return nil, fmt.Errorf("record visit: %w", err)
	}
	// Spend rows carry no currency column; the program-wide currency is
	// stamped here for payloads and exports.
	visit.Spend.Currency = s.Currency

	newTier, err := s.Tiers.EvaluateWithTx(ctx, tx, s.Customers, updated)
	if err != nil {
		return nil, fmt.Errorf("evaluate tier: %w", err)
	}
	if newTier != nil {
		updated.TierID = &newTier.ID
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit visit: %w", err)
	}

	metrics.VisitsTotal.Inc()
	s.Logger.Info("visit logged",
		"customer", updated.ID,
		"program", updated.ProgramID,
		"spend", in.SpendAmount,
		"points", points,
		"total_visits", updated.TotalVisits,
	)
	return &VisitResult{
		Customer:     *updated,
		Visit:        *visit,
		PointsEarned: points,
		NewTier:      newTier,
	}, nil
}

// PointsEarned floors spend x percentage / 100. A zero percentage disables
// accrual program-wide.
func PointsEarned(spendAmount int64, pointsPercentage int) int64 {
	if spendAmount <= 0 || pointsPercentage <= 0 {
		return 0
	}
	return spendAmount * int64(pointsPercentage) / 100
}

// NextAverage folds one rating into a running mean without per-sample
// history.
func NextAverage(oldAverage float64, oldCount int64, rating int) float64 {
	return (oldAverage*float64(oldCount) + float64(rating)) / float64(oldCount+1)
}

// CooldownRemaining returns how long until a pure visit is accepted again;
// zero or negative means no throttle applies.
func CooldownRemaining(lastVisit *time.Time, now time.Time, window time.Duration) time.Duration {
	if lastVisit == nil {
		return 0
	}
	return window - now.Sub(*lastVisit)
}
