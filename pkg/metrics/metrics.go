package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// DBOperationDuration records the duration of database operations
	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation_type"},
	)

	// PropertyOperationsCounter counts property operations by outcome
	PropertyOperationsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "property_operations_total",
			Help: "Total number of property operations",
		},
		[]string{"operation", "result"},
	)

	// ReferenceOperationsCounter counts property type, status and listing type operations
	ReferenceOperationsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reference_operations_total",
			Help: "Total number of reference entity operations",
		},
		[]string{"kind", "operation", "result"},
	)

	// AttachmentOperationsCounter counts stored and purged attachments
	AttachmentOperationsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attachment_operations_total",
			Help: "Total number of attachment operations",
		},
		[]string{"kind", "operation"},
	)

	// EmailDispatchCounter counts transactional emails by template and result
	EmailDispatchCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_dispatch_total",
			Help: "Total number of transactional emails by template and result",
		},
		[]string{"template", "result"},
	)

	// AuthAttemptsCounter counts sign in attempts by result
	AuthAttemptsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// CacheLookupsCounter counts list cache lookups
	CacheLookupsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Total number of list cache lookups",
		},
		[]string{"result"},
	)
)

// TrackDBOperation returns a function that records the duration of a database operation
func TrackDBOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		DBOperationDuration.WithLabelValues(operationType).Observe(time.Since(startTime).Seconds())
	}
}

// RecordPropertyOperation increments the counter for property operations
func RecordPropertyOperation(operation, result string) {
	PropertyOperationsCounter.WithLabelValues(operation, result).Inc()
}

// RecordReferenceOperation increments the counter for reference entity operations
func RecordReferenceOperation(kind, operation, result string) {
	ReferenceOperationsCounter.WithLabelValues(kind, operation, result).Inc()
}

// RecordAttachmentOperation increments the counter for attachment operations
func RecordAttachmentOperation(kind, operation string, n int) {
	AttachmentOperationsCounter.WithLabelValues(kind, operation).Add(float64(n))
}

// RecordEmailDispatch increments the counter for email deliveries
func RecordEmailDispatch(template string, err error) {
	result := "sent"
	if err != nil {
		result = "failed"
	}
	EmailDispatchCounter.WithLabelValues(template, result).Inc()
}

// RecordAuthAttempt increments the counter for sign in attempts
func RecordAuthAttempt(result string) {
	AuthAttemptsCounter.WithLabelValues(result).Inc()
}

// RecordCacheLookup increments the counter for list cache lookups
func RecordCacheLookup(hit bool) {
	if hit {
		CacheLookupsCounter.WithLabelValues("hit").Inc()
		return
	}
	CacheLookupsCounter.WithLabelValues("miss").Inc()
}
