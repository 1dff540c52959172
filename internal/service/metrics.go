package service

import "github.com/prometheus/client_golang/prometheus"

var (
	searchEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelmark_search_events_total",
			Help: "Search events recorded, by outcome",
		},
		[]string{"result"}, // created | incremented | invalid | failed
	)

	trendingFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reelmark_trending_failures_total",
			Help: "Trending ranking reads that failed and degraded to an empty list",
		},
	)

	bookmarkOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelmark_bookmark_ops_total",
			Help: "Bookmark operations, by operation and outcome",
		},
		[]string{"op", "result"},
	)

	catalogRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelmark_catalog_requests_total",
			Help: "Requests sent to the movie catalog, by endpoint and outcome",
		},
		[]string{"endpoint", "result"},
	)
)

func init() {
	prometheus.MustRegister(searchEventsTotal, trendingFailuresTotal, bookmarkOpsTotal, catalogRequestsTotal)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
