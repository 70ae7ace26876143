package collector

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collector_pages_total",
		Help: "Ladder pages processed, by tier and division",
	}, []string{"tier", "division"})

	playersSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collector_players_skipped_total",
		Help: "Ladder players skipped, by reason",
	}, []string{"reason"})

	bucketsCompletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collector_buckets_completed_total",
		Help: "Buckets finished, by outcome",
	}, []string{"outcome"})
)
