package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const Namespace = "producer"

// Publish results used as the "result" label.
const (
	ResultOK                    = "ok"
	ResultBadRequest            = "bad_request"
	ResultConnectionUnavailable = "connection_unavailable"
	ResultDeclarationConflict   = "declaration_conflict"
	ResultTransportError        = "transport_error"
)

type Metrics struct {
	publishes       *prometheus.CounterVec
	publishDuration prometheus.Histogram
	messageBytes    prometheus.Histogram
}

// New creates a new Metrics instance and registers all metrics with the provided registerer.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "publishes_total",
			Help:      "Total publish requests by result",
		}, []string{"result"}),
		publishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "publish_duration_seconds",
			Help:      "Time spent opening a channel, declaring the queue and publishing",
			Buckets:   prometheus.DefBuckets,
		}),
		messageBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "message_bytes",
			Help:      "Body size of successfully published messages",
			Buckets:   prometheus.ExponentialBuckets(16, 4, 8),
		}),
	}

	if err := m.register(reg); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.publishes,
		m.publishDuration,
		m.messageBytes,
	}
	var errs []error
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ObservePublish records the outcome of a single publish request.
// A nil receiver is a no-op so callers can run without metrics.
func (m *Metrics) ObservePublish(result string, bytes int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.publishes.WithLabelValues(result).Inc()
	if result == ResultBadRequest {
		return
	}
	m.publishDuration.Observe(elapsed.Seconds())
	if result == ResultOK {
		m.messageBytes.Observe(float64(bytes))
	}
}
