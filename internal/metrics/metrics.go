// Package metrics exposes Prometheus collectors for the crawl coordination
// service.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	crawlerJobsScheduledTotal *prometheus.CounterVec
	crawlerBatchesTotal       *prometheus.CounterVec
	crawlerRecordsTotal       *prometheus.CounterVec
	crawlerObjectsTotal       prometheus.Counter
	crawlerBatchRecords       prometheus.Histogram

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		crawlerJobsScheduledTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_jobs_scheduled_total",
				Help: "Total number of crawl jobs scheduled, labeled by spider and outcome.",
			},
			[]string{"spider", "outcome"},
		)

		crawlerBatchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_result_batches_total",
				Help: "Total number of result batches ingested, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		crawlerRecordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_result_records_total",
				Help: "Total number of crawl result records processed, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		crawlerObjectsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawler_workflow_objects_total",
				Help: "Total number of workflow objects spawned from crawl results.",
			},
		)

		crawlerBatchRecords = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crawler_batch_record_count",
				Help:    "Distribution of records per ingested batch.",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
		)
	})
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// JobScheduled records one crawl job submission attempt.
func JobScheduled(spider, outcome string) {
	if crawlerJobsScheduledTotal == nil {
		return
	}
	crawlerJobsScheduledTotal.WithLabelValues(spider, outcome).Inc()
}

// BatchIngested records one finished ingestion run with its record count.
func BatchIngested(outcome string, records int) {
	if crawlerBatchesTotal == nil {
		return
	}
	crawlerBatchesTotal.WithLabelValues(outcome).Inc()
	crawlerBatchRecords.Observe(float64(records))
}

// RecordProcessed records one crawl result record, outcome "ok" or "error".
func RecordProcessed(outcome string) {
	if crawlerRecordsTotal == nil {
		return
	}
	crawlerRecordsTotal.WithLabelValues(outcome).Inc()
}

// ObjectCreated records one spawned workflow object.
func ObjectCreated() {
	if crawlerObjectsTotal == nil {
		return
	}
	crawlerObjectsTotal.Inc()
}
