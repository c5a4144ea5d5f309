package handler

import (
	"testing"

	"happymeter-backend/internal/domain"

	"github.com/stretchr/testify/require"
)

func TestRewardRequestValidate(t *testing.T) {
	cases := []struct {
		name string
		req  rewardRequest
		want string
	}{
		{"visits reward", rewardRequest{Name: "Milestone", CostVisits: 5}, ""},
		{"points reward", rewardRequest{Name: "Free drink", CostPoints: 40}, ""},
		{"missing name", rewardRequest{CostVisits: 5}, "name is required"},
		{"negative visits", rewardRequest{Name: "X", CostVisits: -1}, "costs cannot be negative"},
		{"negative points", rewardRequest{Name: "X", CostPoints: -1}, "costs cannot be negative"},
		{"free gift", rewardRequest{Name: "Welcome", Description: domain.GiftDescriptionTag}, ""},
		{
			"gift with visit cost",
			rewardRequest{Name: "Welcome", Description: domain.GiftDescriptionTag, CostVisits: 1},
			"a welcome gift cannot carry a cost",
		},
		{
			"gift with point cost",
			rewardRequest{Name: "Welcome", Description: domain.GiftDescriptionTag, CostPoints: 10},
			"a welcome gift cannot carry a cost",
		},
		{
			"gift with both costs",
			rewardRequest{Name: "Welcome", Description: domain.GiftDescriptionTag, CostVisits: 1, CostPoints: 10},
			"a welcome gift cannot carry a cost",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.req.validate())
		})
	}
}
