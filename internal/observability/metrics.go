package observability

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeOK       = "ok"
	OutcomeInvalid  = "invalid"
	OutcomeNoRoute  = "no_route"
	OutcomeError    = "error"
	OutcomeTooLarge = "too_large"
)

var (
	registerOnce sync.Once

	dispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "compacket",
			Subsystem: "router",
			Name:      "dispatch_total",
			Help:      "Packets dispatched by route and outcome.",
		},
		[]string{"route", "outcome"},
	)
	dispatchBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "compacket",
			Subsystem: "router",
			Name:      "consumed_bytes_total",
			Help:      "Bytes consumed by successful dispatches.",
		},
		[]string{"route"},
	)
	sendTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "compacket",
			Subsystem: "transport",
			Name:      "send_total",
			Help:      "Packet sends by outcome.",
		},
		[]string{"outcome"},
	)
	sendBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "compacket",
			Subsystem: "transport",
			Name:      "send_bytes_total",
			Help:      "Encoded bytes handed to the sender.",
		},
	)
	sendRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "compacket",
			Subsystem: "transport",
			Name:      "send_retries_total",
			Help:      "Send attempts beyond the first.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(dispatchTotal, dispatchBytes, sendTotal, sendBytes, sendRetries)
	})
}

// MetricsHandler serves the default registry in the Prometheus text format.
func MetricsHandler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}

func RecordDispatch(route, outcome string, consumed int) {
	RegisterMetrics()
	if route == "" {
		route = "-"
	}
	dispatchTotal.WithLabelValues(route, outcome).Inc()
	if outcome == OutcomeOK {
		dispatchBytes.WithLabelValues(route).Add(float64(consumed))
	}
}

func RecordSend(outcome string, bytes int, attempts int) {
	RegisterMetrics()
	sendTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeOK {
		sendBytes.Add(float64(bytes))
	}
	if attempts > 1 {
		sendRetries.Add(float64(attempts - 1))
	}
}
