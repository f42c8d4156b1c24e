package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APIRequests counts DevLake API calls by operation and HTTP status code.
	// Transport failures are recorded with code "0", timeouts with "timeout".
	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "devlake_api_requests_total",
		Help: "DevLake API requests by operation and status code.",
	}, []string{"op", "code"})

	// Provisions counts provisioning workflow outcomes by result
	// ("success" or the name of the failed step).
	Provisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "provision_total",
		Help: "Provisioning workflow outcomes.",
	}, []string{"result"})
)

// ObserveAPIRequest records one DevLake API call.
func ObserveAPIRequest(op string, statusCode int, timedOut bool) {
	code := strconv.Itoa(statusCode)
	if timedOut {
		code = "timeout"
	}
	APIRequests.WithLabelValues(op, code).Inc()
}
