package storage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var matchesStoredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "collector_matches_stored_total",
	Help: "Matches newly archived, by tier and division",
}, []string{"tier", "division"})
