package replay

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusConfig is a config of the Prometheus metrics provided by the mutation batch.
//
// An instance can be created only by the [Prometheus] function. The zero value is invalid.
type PrometheusConfig struct {
	// Namespace of the metrics.
	Namespace string
	// Subsystem of the metrics.
	Subsystem string
	// Options for the pending records gauge.
	Pending prometheus.GaugeOpts
	// Options for the added records counter.
	RecordsAdded prometheus.CounterOpts
	// Options for the flushed records counter.
	RecordsFlushed prometheus.CounterOpts
	// Options for the flushes counter, partitioned by flush type.
	Flushes prometheus.CounterOpts
	// Options for the batch size histogram.
	BatchSize prometheus.HistogramOpts

	registerer prometheus.Registerer
}

// Prometheus returns a [PrometheusConfig] with the provided registerer. If registerer is nil,
// metrics will not be registered. Default parameters can be changed by passing configuration
// functions.
func Prometheus(
	registerer prometheus.Registerer,
	configFuncs ...func(c *PrometheusConfig),
) *PrometheusConfig {
	const (
		namespace = "replay"
		subsystem = "mutations"
	)

	c := PrometheusConfig{
		registerer: registerer,
		Namespace:  namespace,
		Subsystem:  subsystem,
		Pending: prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "pending",
			Help:      "Number of records waiting for the next flush",
		},
		RecordsAdded: prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "records_added",
			Help:      "Number of records added to the batch",
		},
		RecordsFlushed: prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "records_flushed",
			Help:      "Number of records delivered to the consumer",
		},
		Flushes: prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "flushes",
			Help:      "Number of batch deliveries",
		},
		BatchSize: prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "batch_size",
			Help:      "Number of records in a delivered batch",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		},
	}

	for _, cf := range configFuncs {
		if cf != nil {
			cf(&c)
		}
	}

	return &c
}

func (c *PrometheusConfig) metrics() *metrics {
	m := metrics{
		pending:        prometheus.NewGauge(c.Pending),
		recordsAdded:   prometheus.NewCounter(c.RecordsAdded),
		recordsFlushed: prometheus.NewCounter(c.RecordsFlushed),
		flushes:        prometheus.NewCounterVec(c.Flushes, []string{"type"}),
		batchSize:      prometheus.NewHistogram(c.BatchSize),
	}

	if c.registerer != nil {
		c.registerer.MustRegister(
			m.pending,
			m.recordsAdded,
			m.recordsFlushed,
			m.flushes,
			m.batchSize,
		)
	}

	return &m
}

type metrics struct {
	pending        prometheus.Gauge
	recordsAdded   prometheus.Counter
	recordsFlushed prometheus.Counter
	flushes        *prometheus.CounterVec
	batchSize      prometheus.Histogram
}
