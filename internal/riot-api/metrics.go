package riotapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riot_requests_total",
		Help: "Total Riot API requests by endpoint and HTTP status",
	}, []string{"endpoint", "status"})

	throttledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riot_throttled_total",
		Help: "Total 429 responses received from the Riot API",
	})

	rateLimitWaitSeconds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riot_rate_limit_wait_seconds",
		Help: "Cumulative time spent waiting on the local request window",
	})
)
