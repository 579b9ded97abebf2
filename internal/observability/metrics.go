package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lanectl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lanectl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	linkConnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lanectl",
			Subsystem: "link",
			Name:      "connects_total",
			Help:      "Serial connect attempts by result.",
		},
		[]string{"result"},
	)
	linkConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "lanectl",
			Subsystem: "link",
			Name:      "connected",
			Help:      "1 while a serial handle is open.",
		},
	)
	linkSends = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lanectl",
			Subsystem: "link",
			Name:      "sends_total",
			Help:      "Frame bursts by lane value and result.",
		},
		[]string{"lane", "result"},
	)
	linkSendDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lanectl",
			Subsystem: "link",
			Name:      "send_duration_seconds",
			Help:      "Duration of one frame burst including gaps.",
			Buckets:   []float64{.01, .05, .1, .15, .2, .3, .5, 1},
		},
		[]string{"result"},
	)
	boardMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lanectl",
			Subsystem: "board",
			Name:      "mutations_total",
			Help:      "Board mutations by operation and result.",
		},
		[]string{"op", "result"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, linkConnects, linkConnected,
			linkSends, linkSendDuration, boardMutations)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

func RecordConnect(result string) {
	RegisterMetrics()
	linkConnects.WithLabelValues(result).Inc()
}

func SetConnected(connected bool) {
	RegisterMetrics()
	if connected {
		linkConnected.Set(1)
		return
	}
	linkConnected.Set(0)
}

func RecordSend(laneValue int, result string, duration time.Duration) {
	RegisterMetrics()
	linkSends.WithLabelValues(strconv.Itoa(laneValue), result).Inc()
	linkSendDuration.WithLabelValues(result).Observe(duration.Seconds())
}

func RecordBoardMutation(op string, err error) {
	RegisterMetrics()
	result := "ok"
	if err != nil {
		result = "rejected"
	}
	boardMutations.WithLabelValues(op, result).Inc()
}
