package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	framesRead = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cslink",
			Subsystem: "link",
			Name:      "frames_read_total",
			Help:      "Inbound wire frames successfully read.",
		},
	)
	framesWritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cslink",
			Subsystem: "link",
			Name:      "frames_written_total",
			Help:      "Outbound wire frames successfully written.",
		},
	)
	payloadBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cslink",
			Subsystem: "link",
			Name:      "payload_bytes_total",
			Help:      "Payload bytes moved over the link.",
		},
		[]string{"direction"},
	)
	retryWaits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cslink",
			Subsystem: "link",
			Name:      "read_retries_total",
			Help:      "Receiver backoff waits after transient read faults.",
		},
	)
	protocolFaults = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cslink",
			Subsystem: "link",
			Name:      "protocol_faults_total",
			Help:      "Fatal protocol violations observed on the link.",
		},
	)
	connectedGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cslink",
			Subsystem: "link",
			Name:      "connected",
			Help:      "Whether the instrument link currently looks healthy.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			framesRead, framesWritten, payloadBytes,
			retryWaits, protocolFaults, connectedGauge,
		)
	})
}

func RecordFrameRead(bytes int) {
	RegisterMetrics()
	framesRead.Inc()
	payloadBytes.WithLabelValues("in").Add(float64(bytes))
}

func RecordFrameWritten(bytes int) {
	RegisterMetrics()
	framesWritten.Inc()
	payloadBytes.WithLabelValues("out").Add(float64(bytes))
}

func RecordRetryWait() {
	RegisterMetrics()
	retryWaits.Inc()
}

func RecordProtocolFault() {
	RegisterMetrics()
	protocolFaults.Inc()
}

func SetConnected(connected bool) {
	RegisterMetrics()
	if connected {
		connectedGauge.Set(1)
	} else {
		connectedGauge.Set(0)
	}
}
