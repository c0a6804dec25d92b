// Package metrics exposes Prometheus collectors for the sync service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	syncRunsTotal          *prometheus.CounterVec
	syncRunDurationSeconds prometheus.Histogram
	listingPagesTotal      prometheus.Counter
	titlesScrapedTotal     *prometheus.CounterVec
	showtimeRequestsTotal  *prometheus.CounterVec
	politenessDelaySeconds prometheus.Histogram
	catalogRowsTotal       *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		syncRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cinesync_runs_total",
				Help: "Total number of synchronization runs, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		syncRunDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cinesync_run_duration_seconds",
				Help:    "Histogram of full synchronization run durations.",
				Buckets: []float64{5, 15, 30, 60, 120, 300, 600},
			},
		)

		listingPagesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "cinesync_listing_pages_total",
				Help: "Total number of listing index pages fetched.",
			},
		)

		titlesScrapedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cinesync_titles_scraped_total",
				Help: "Total number of titles scraped, labeled by enrichment path.",
			},
			[]string{"path"},
		)

		showtimeRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cinesync_showtime_requests_total",
				Help: "Total number of showtimes-by-date requests, labeled by result.",
			},
			[]string{"result"},
		)

		politenessDelaySeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cinesync_politeness_delay_seconds",
				Help:    "Histogram of politeness waits between sequential requests.",
				Buckets: []float64{0.5, 0.75, 1, 1.25, 1.5, 1.75, 2},
			},
		)

		catalogRowsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cinesync_catalog_rows_total",
				Help: "Total catalog rows written or deleted, labeled by table and operation.",
			},
			[]string{"table", "op"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRun records the outcome and duration of one synchronization run.
func ObserveRun(outcome string, duration time.Duration) {
	Init()
	syncRunsTotal.WithLabelValues(outcome).Inc()
	syncRunDurationSeconds.Observe(duration.Seconds())
}

// ObserveListingPage increments the listing index page counter.
func ObserveListingPage() {
	Init()
	listingPagesTotal.Inc()
}

// ObserveTitleScraped increments the scraped titles counter for the given path.
func ObserveTitleScraped(path string) {
	Init()
	titlesScrapedTotal.WithLabelValues(path).Inc()
}

// ObserveShowtimeRequest increments the showtime request counter for the given result.
func ObserveShowtimeRequest(result string) {
	Init()
	showtimeRequestsTotal.WithLabelValues(result).Inc()
}

// ObservePolitenessDelay records one politeness wait.
func ObservePolitenessDelay(d time.Duration) {
	Init()
	politenessDelaySeconds.Observe(d.Seconds())
}

// ObserveCatalogRows adds written or deleted row counts for a table.
func ObserveCatalogRows(table, op string, n int) {
	Init()
	if n <= 0 {
		return
	}
	catalogRowsTotal.WithLabelValues(table, op).Add(float64(n))
}
