package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Dispatch related metrics
	EmailsSent          prometheus.Counter
	EmailsFailed        prometheus.Counter
	DispatchBatchSize   prometheus.Histogram
	DispatchRunDuration prometheus.Histogram
	LogsMaterialized    *prometheus.CounterVec
	CampaignsCompleted  prometheus.Counter

	// Tracking related metrics
	TrackEventsRecorded *prometheus.CounterVec
	BotEventsFlagged    prometheus.Counter
	GeoLookupFailures   prometheus.Counter

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
}

// New creates and registers all application metrics
func New(namespace string) *Metrics {
	return &Metrics{
		EmailsSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_sent_total",
			Help:      "Total number of phishing simulation emails accepted by SMTP",
		}),
		EmailsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_failed_total",
			Help:      "Total number of emails rejected during dispatch",
		}),
		DispatchBatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_batch_size",
			Help:      "Number of pending logs claimed per dispatch run",
			Buckets:   []float64{0, 1, 2, 4, 8, 12},
		}),
		DispatchRunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_run_duration_seconds",
			Help:      "Time spent per dispatch worker run",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		LogsMaterialized: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logs_materialized_total",
			Help:      "Total number of recipient logs created by shoot runs",
		}, []string{"entity_type"}),
		CampaignsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "campaigns_completed_total",
			Help:      "Total number of campaigns auto-completed after their end date",
		}),
		TrackEventsRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "track_events_recorded_total",
			Help:      "Total number of engagement events recorded",
		}, []string{"event"}),
		BotEventsFlagged: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bot_events_flagged_total",
			Help:      "Total number of engagement events flagged as bot traffic",
		}),
		GeoLookupFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geo_lookup_failures_total",
			Help:      "Total number of failed IP geolocation lookups",
		}),
		DatabaseOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
	}
}
