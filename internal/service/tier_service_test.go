package service

import (
	"testing"

	"happymeter-backend/internal/domain"

	"github.com/stretchr/testify/require"
)

func ladder() []domain.Tier {
	return []domain.Tier{
		{ID: 1, Position: 0, Name: "Bronze", RequiredVisits: 0, RequiredPoints: 0},
		{ID: 2, Position: 1, Name: "Silver", RequiredVisits: 5},
		{ID: 3, Position: 2, Name: "Gold", RequiredVisits: 15},
		{ID: 4, Position: 3, Name: "Platinum", RequiredVisits: 30, RequiredPoints: 1000},
	}
}

func TestEligibleTier(t *testing.T) {
	cases := []struct {
		name   string
		visits int
		points int64
		wantID int64
	}{
		{"zero thresholds qualify everyone", 0, 0, 1},
		{"below next threshold", 4, 0, 1},
		{"exactly at threshold", 5, 0, 2},
		{"skips directly to the highest qualifying", 20, 0, 3},
		{"both dimensions required", 30, 999, 3},
		{"both dimensions met", 30, 1000, 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := EligibleTier(ladder(), tc.visits, tc.points)
			require.NotNil(t, got)
			require.Equal(t, tc.wantID, got.ID)
		})
	}
}

func TestEligibleTierNoBaseTier(t *testing.T) {
	tiers := []domain.Tier{
		{ID: 2, Position: 1, Name: "Silver", RequiredVisits: 5},
		{ID: 3, Position: 2, Name: "Gold", RequiredVisits: 15},
	}
	require.Nil(t, EligibleTier(tiers, 3, 0))

	got := EligibleTier(tiers, 5, 0)
	require.NotNil(t, got)
	require.Equal(t, int64(2), got.ID)
}

func TestEligibleTierEmptyLadder(t *testing.T) {
	require.Nil(t, EligibleTier(nil, 100, 100))
}

func TestEligibleTierPointsOnly(t *testing.T) {
	tiers := []domain.Tier{
		{ID: 7, Position: 0, Name: "Saver", RequiredPoints: 500},
	}
	require.Nil(t, EligibleTier(tiers, 50, 499))

	got := EligibleTier(tiers, 0, 500)
	require.NotNil(t, got)
	require.Equal(t, int64(7), got.ID)
}
