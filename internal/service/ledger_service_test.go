package service

import (
	"context"
	"testing"
	"time"

	"happymeter-backend/internal/domain"

	"github.com/stretchr/testify/require"
)

func ledgerFixture(c domain.Customer, prog domain.Program, tiers ...domain.Tier) (LedgerService, *memDB, *memCustomers, *memVisits, *memEvents, int64) {
	db := &memDB{}
	customers := newMemCustomers()
	id := customers.put(c)
	visits := &memVisits{}
	events := &memEvents{}
	svc := LedgerService{
		DB:        db,
		Customers: customers,
		Programs:  newMemPrograms(prog),
		Visits:    visits,
		Tiers:     TierService{Tiers: &memTiers{rows: tiers}, Events: events, Logger: testLogger()},
		Cooldown:  time.Hour,
		Currency:  "MXN",
		Logger:    testLogger(),
	}
	return svc, db, customers, visits, events, id
}

func TestLogVisitCooldownLeavesStateUntouched(t *testing.T) {
	last := time.Now().Add(-30 * time.Minute)
	svc, db, customers, visits, _, id := ledgerFixture(
		domain.Customer{ProgramID: 1, Phone: "1", Token: "tok", TotalVisits: 3, CurrentVisits: 3, LastVisitAt: &last},
		domain.Program{ID: 1, PointsPercentage: 10},
	)

	_, err := svc.LogVisit(context.Background(), "tok", VisitInput{})
	require.ErrorIs(t, err, ErrVisitCooldown)
	require.False(t, db.last.committed)
	require.True(t, db.last.rolledBack)

	c, _ := customers.GetByID(context.Background(), id)
	require.Equal(t, 3, c.TotalVisits)
	require.Equal(t, 3, c.CurrentVisits)
	require.True(t, c.LastVisitAt.Equal(last), "a throttled scan must not refresh the cooldown window")
	require.Empty(t, visits.rows)
}

func TestLogVisitSpendBypassesCooldown(t *testing.T) {
	last := time.Now().Add(-30 * time.Minute)
	svc, db, customers, visits, _, id := ledgerFixture(
		domain.Customer{ProgramID: 1, Phone: "1", Token: "tok", TotalVisits: 3, CurrentVisits: 3, LastVisitAt: &last},
		domain.Program{ID: 1, PointsPercentage: 10},
	)

	result, err := svc.LogVisit(context.Background(), "tok", VisitInput{SpendAmount: 259, Rating: ptr(4)})
	require.NoError(t, err)
	require.True(t, db.last.committed)
	require.Equal(t, int64(25), result.PointsEarned)
	require.Equal(t, int64(259), result.Visit.Spend.Amount)
	require.Equal(t, "MXN", result.Visit.Spend.Currency)

	c, _ := customers.GetByID(context.Background(), id)
	require.Equal(t, 4, c.TotalVisits)
	require.Equal(t, int64(25), c.CurrentPoints)
	require.Equal(t, int64(25), c.TotalPoints)
	require.Equal(t, int64(1), c.RatingCount)
	require.InDelta(t, 4.0, c.AverageRating, 1e-9)
	require.True(t, c.LastVisitAt.After(last))
	require.Len(t, visits.rows, 1)
	require.Equal(t, int64(25), visits.rows[0].PointsEarned)
}

func TestLogVisitAcceptsFirstAndStaleVisits(t *testing.T) {
	t.Run("first contact", func(t *testing.T) {
		svc, _, customers, _, _, id := ledgerFixture(
			domain.Customer{ProgramID: 1, Phone: "1", Token: "tok"},
			domain.Program{ID: 1},
		)
		_, err := svc.LogVisit(context.Background(), "tok", VisitInput{})
		require.NoError(t, err)
		c, _ := customers.GetByID(context.Background(), id)
		require.Equal(t, 1, c.TotalVisits)
	})

	t.Run("outside the window", func(t *testing.T) {
		last := time.Now().Add(-61 * time.Minute)
		svc, _, customers, _, _, id := ledgerFixture(
			domain.Customer{ProgramID: 1, Phone: "1", Token: "tok", TotalVisits: 1, CurrentVisits: 1, LastVisitAt: &last},
			domain.Program{ID: 1},
		)
		_, err := svc.LogVisit(context.Background(), "tok", VisitInput{})
		require.NoError(t, err)
		c, _ := customers.GetByID(context.Background(), id)
		require.Equal(t, 2, c.TotalVisits)
	})
}

func TestLogVisitUnknownTokenRejected(t *testing.T) {
	svc, _, _, visits, _, _ := ledgerFixture(
		domain.Customer{ProgramID: 1, Phone: "1", Token: "tok"},
		domain.Program{ID: 1},
	)
	_, err := svc.LogVisit(context.Background(), "other", VisitInput{})
	require.ErrorIs(t, err, ErrCustomerNotFound)
	require.Empty(t, visits.rows)
}

func TestLogVisitPromotesTier(t *testing.T) {
	svc, _, customers, _, events, id := ledgerFixture(
		domain.Customer{ProgramID: 1, Phone: "1", Token: "tok", TotalVisits: 4, CurrentVisits: 4},
		domain.Program{ID: 1},
		domain.Tier{ID: 1, ProgramID: 1, Position: 1, Name: "Bronze", RequiredVisits: 1},
		domain.Tier{ID: 2, ProgramID: 1, Position: 2, Name: "Silver", RequiredVisits: 5},
	)

	result, err := svc.LogVisit(context.Background(), "tok", VisitInput{})
	require.NoError(t, err)
	require.NotNil(t, result.NewTier)
	require.Equal(t, "Silver", result.NewTier.Name)

	c, _ := customers.GetByID(context.Background(), id)
	require.NotNil(t, c.TierID)
	require.Equal(t, int64(2), *c.TierID)

	ups := events.ofType(domain.EventTierUp)
	require.Len(t, ups, 1)
	require.Equal(t, int64(2), *ups[0].TierID)
}

func TestLogVisitKeepsTierWhenUnchanged(t *testing.T) {
	svc, _, _, _, events, _ := ledgerFixture(
		domain.Customer{ProgramID: 1, Phone: "1", Token: "tok", TotalVisits: 10, CurrentVisits: 10, TierID: ptr(int64(1))},
		domain.Program{ID: 1},
		domain.Tier{ID: 1, ProgramID: 1, Position: 1, Name: "Bronze", RequiredVisits: 1},
	)
	result, err := svc.LogVisit(context.Background(), "tok", VisitInput{})
	require.NoError(t, err)
	require.Nil(t, result.NewTier)
	require.Empty(t, events.ofType(domain.EventTierUp))
}

func TestPointsEarned(t *testing.T) {
	cases := []struct {
		name  string
		spend int64
		pct   int
		want  int64
	}{
		{"ten percent", 250, 10, 25},
		{"floors fractional points", 259, 10, 25},
		{"floors below one point", 99, 1, 0},
		{"zero percentage disables accrual", 1000, 0, 0},
		{"zero spend", 0, 10, 0},
		{"negative spend", -50, 10, 0},
		{"full percentage", 123, 100, 123},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, PointsEarned(tc.spend, tc.pct))
		})
	}
}

func TestNextAverage(t *testing.T) {
	require.Equal(t, 5.0, NextAverage(0, 0, 5))

	// 4, 2 -> 3.0
	avg := NextAverage(0, 0, 4)
	avg = NextAverage(avg, 1, 2)
	require.InDelta(t, 3.0, avg, 1e-9)

	// 5, 5, 2 -> 4.0
	avg = NextAverage(0, 0, 5)
	avg = NextAverage(avg, 1, 5)
	avg = NextAverage(avg, 2, 2)
	require.InDelta(t, 4.0, avg, 1e-9)
}

func TestNextAverageMatchesBatchMean(t *testing.T) {
	ratings := []int{5, 3, 4, 1, 5, 2, 4, 4, 3, 5}
	var avg float64
	var sum int
	for i, r := range ratings {
		avg = NextAverage(avg, int64(i), r)
		sum += r
	}
	require.InDelta(t, float64(sum)/float64(len(ratings)), avg, 1e-9)
}

func TestCooldownRemaining(t *testing.T) {
	now := time.Now()
	window := 60 * time.Minute

	t.Run("no previous visit", func(t *testing.T) {
		require.LessOrEqual(t, CooldownRemaining(nil, now, window), time.Duration(0))
	})

	t.Run("inside window", func(t *testing.T) {
		last := now.Add(-30 * time.Minute)
		remaining := CooldownRemaining(&last, now, window)
		require.Greater(t, remaining, time.Duration(0))
		require.Equal(t, 30*time.Minute, remaining)
	})

	t.Run("outside window", func(t *testing.T) {
		last := now.Add(-61 * time.Minute)
		require.LessOrEqual(t, CooldownRemaining(&last, now, window), time.Duration(0))
	})

	t.Run("exactly at window edge", func(t *testing.T) {
		last := now.Add(-window)
		require.LessOrEqual(t, CooldownRemaining(&last, now, window), time.Duration(0))
	})
}
