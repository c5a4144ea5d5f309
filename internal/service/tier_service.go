package service

import (
	"context"
	"log/slog"

	"happymeter-backend/internal/domain"
	"happymeter-backend/internal/metrics"
	"happymeter-backend/internal/repository"

	"github.com/jackc/pgx/v5"
)

// TierService recomputes tier eligibility after ledger mutations. It is the
// only writer of customers.tier_id.
type TierService struct {
	Tiers  tierStore
	Events eventStore
	Logger *slog.Logger
}

// EvaluateWithTx assigns the best eligible tier inside the caller's
// transaction so it sees the counters written moments before. Returns the
// newly assigned tier, or nil when nothing changed.
//
// Customers are never demoted: a correction that lowers totals leaves the
// stored tier in place until they qualify for something higher.
func (s TierService) EvaluateWithTx(ctx context.Context, tx pgx.Tx, customers customerStore, c *domain.Customer) (*domain.Tier, error) {
	tiers, err := s.Tiers.ListWithTx(ctx, tx, c.ProgramID)
	if err != nil {
		return nil, err
	}
	best := EligibleTier(tiers, c.TotalVisits, c.TotalPoints)
	if best == nil {
		return nil, nil
	}
	if c.TierID != nil && *c.TierID == best.ID {
		return nil, nil
	}

	if err := customers.SetTierWithTx(ctx, tx, c.ID, best.ID); err != nil {
		return nil, err
	}
	if _, err := s.Events.CreateWithTx(ctx, tx, repository.CreateEventParams{
		ProgramID:  c.ProgramID,
		CustomerID: c.ID,
		Type:       domain.EventTierUp,
		TierID:     &best.ID,
	}); err != nil {
		return nil, err
	}
	metrics.TierUpsTotal.Inc()
	s.Logger.Info("tier assigned", "customer", c.ID, "tier", best.ID, "position", best.Position)
	return best, nil
}

// EligibleTier walks tiers in ascending position and keeps the last one the
// totals qualify for, so the highest qualifying tier wins. A zero threshold
// means the dimension is not required.
func EligibleTier(tiers []domain.Tier, totalVisits int, totalPoints int64) *domain.Tier {
	var best *domain.Tier
	for i := range tiers {
		t := &tiers[i]
		visitsOK := t.RequiredVisits == 0 || totalVisits >= t.RequiredVisits
		pointsOK := t.RequiredPoints == 0 || totalPoints >= t.RequiredPoints
		if visitsOK && pointsOK {
			best = t
		}
	}
	return best
}
