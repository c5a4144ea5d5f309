package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VisitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loyalty_visits_total",
		Help: "Accepted visit scans.",
	})

	VisitsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loyalty_visits_rejected_total",
		Help: "Rejected visit scans by reason.",
	}, []string{"reason"})

	RedemptionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loyalty_redemptions_total",
		Help: "Redemption state transitions by stage (unlocked, redeemed, gift).",
	}, []string{"stage"})

	TierUpsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loyalty_tier_ups_total",
		Help: "Tier promotions applied by the evaluator.",
	})
)
