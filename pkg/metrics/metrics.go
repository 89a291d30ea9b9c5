// Package metrics exposes the daemon's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTPRequestsTotal counts handled requests by route and status code.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wattwise_http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestSeconds observes request latency.
	HTTPRequestSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wattwise_http_request_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Appliances tracks the number of entries in the ledger.
	Appliances = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wattwise_appliances",
			Help: "Number of appliances in the ledger",
		},
	)

	// DailyHours tracks the total daily hours across the ledger.
	DailyHours = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wattwise_daily_hours",
			Help: "Sum of daily usage hours across all appliances",
		},
	)

	// PredictedBill is the most recent predicted bill.
	PredictedBill = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wattwise_predicted_bill",
			Help: "Most recent predicted monthly bill",
		},
	)

	// ChatRequestsTotal counts chatbot answers by source and outcome.
	ChatRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wattwise_chat_requests_total",
			Help: "Total number of chatbot questions answered",
		},
		[]string{"source", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestSeconds)
	prometheus.MustRegister(Appliances)
	prometheus.MustRegister(DailyHours)
	prometheus.MustRegister(PredictedBill)
	prometheus.MustRegister(ChatRequestsTotal)
}

// ObserveLedger updates the ledger gauges.
func ObserveLedger(count, totalHours int) {
	Appliances.Set(float64(count))
	DailyHours.Set(float64(totalHours))
}
