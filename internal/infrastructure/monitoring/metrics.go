package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	paymentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lending_engine_payments_total",
			Help: "Total number of payment creation attempts by outcome.",
		},
		[]string{"status"},
	)

	reconciliationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lending_engine_reconciliation_duration_seconds",
			Help:    "Histogram of payment reconciliation latencies.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	overdueChargesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lending_engine_overdue_charges_created_total",
			Help: "Total number of overdue interest movements created by the accrual job.",
		},
	)

	lifecycleTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lending_engine_loan_transitions_total",
			Help: "Total number of loan lifecycle transitions by target status.",
		},
		[]string{"status"},
	)

	dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lending_engine_db_query_duration_seconds",
			Help:    "Histogram of database query latencies.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"query_name", "status"},
	)

	consumerProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lending_engine_consumer_messages_total",
			Help: "Total number of queue messages handled by routing key and outcome.",
		},
		[]string{"routing_key", "status"},
	)
)

func RecordPayment(status string) {
	paymentsTotal.WithLabelValues(status).Inc()
}

func RecordReconciliation(status string, duration time.Duration) {
	reconciliationDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func RecordOverdueCharges(count int) {
	overdueChargesCreated.Add(float64(count))
}

func RecordLoanTransition(status string) {
	lifecycleTransitions.WithLabelValues(status).Inc()
}

func RecordDBQuery(queryName, status string, duration time.Duration) {
	dbQueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}

func RecordConsumerMessage(routingKey, status string) {
	consumerProcessed.WithLabelValues(routingKey, status).Inc()
}
