package fetcher

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudprice_fetch_total",
			Help: "Total number of provider fetches by outcome",
		},
		[]string{"provider", "outcome"},
	)

	fetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cloudprice_fetch_duration_seconds",
			Help:    "Provider fetch latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)
)

func observeFetch(res Result, elapsed time.Duration) {
	outcome := "ok"
	switch {
	case errors.Is(res.Err, ErrNotConfigured):
		outcome = "not_configured"
	case res.Err != nil:
		outcome = "error"
	case len(res.Records) == 0:
		outcome = "empty"
	}
	fetchTotal.WithLabelValues(string(res.Provider), outcome).Inc()
	fetchDuration.WithLabelValues(string(res.Provider)).Observe(elapsed.Seconds())
}
