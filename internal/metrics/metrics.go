package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal tracks requests served by the dashboard API.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skycast_http_requests_total",
			Help: "Total number of dashboard API requests served",
		},
		[]string{"path", "status"},
	)

	// VendorRequestsTotal tracks calls against the weather vendor API.
	VendorRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skycast_vendor_requests_total",
			Help: "Total number of weather vendor API calls",
		},
		[]string{"endpoint", "status"},
	)

	// VendorRequestDuration tracks vendor call latency.
	VendorRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skycast_vendor_request_duration_seconds",
			Help:    "Duration of weather vendor API calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// AppStartTime records when the service started.
	AppStartTime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "skycast_app_start_time_seconds",
			Help: "Unix timestamp of when the service started",
		},
	)
)

func init() {
	AppStartTime.SetToCurrentTime()
}

// RecordVendorRequest records one vendor API call.
func RecordVendorRequest(endpoint string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	VendorRequestsTotal.WithLabelValues(endpoint, status).Inc()
	VendorRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}
