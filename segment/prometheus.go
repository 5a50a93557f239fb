package segment

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusConfig is a config of the Prometheus metrics provided by the [Collector].
//
// An instance can be created only by the [Prometheus] function. The zero value is invalid.
type PrometheusConfig struct {
	// Namespace of the metrics.
	Namespace string
	// Subsystem of the metrics.
	Subsystem string
	// Options for the finished segments counter, partitioned by flush reason.
	Segments prometheus.CounterOpts
	// Options for the collected records counter.
	Records prometheus.CounterOpts
	// Options for the failed operations counter.
	Errors prometheus.CounterOpts
	// Options for the compressed segment size histogram.
	CompressedSize prometheus.HistogramOpts
	// Options for the uncompressed segment size histogram.
	RawSize prometheus.HistogramOpts

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
		subsystem = "segment"
	)

	sizeBuckets := prometheus.ExponentialBuckets(256, 2, 12)

	c := PrometheusConfig{
		registerer: registerer,
		Namespace:  namespace,
		Subsystem:  subsystem,
		Segments: prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "segments",
			Help:      "Number of finished segments",
		},
		Records: prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "records",
			Help:      "Number of records written into segments",
		},
		Errors: prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "errors",
			Help:      "Number of failed segment operations",
		},
		CompressedSize: prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "compressed_bytes",
			Help:      "Compressed size of finished segments",
			Buckets:   sizeBuckets,
		},
		RawSize: prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "raw_bytes",
			Help:      "Uncompressed size of finished segments",
			Buckets:   sizeBuckets,
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
		segments:       prometheus.NewCounterVec(c.Segments, []string{"reason"}),
		records:        prometheus.NewCounter(c.Records),
		errors:         prometheus.NewCounter(c.Errors),
		compressedSize: prometheus.NewHistogram(c.CompressedSize),
		rawSize:        prometheus.NewHistogram(c.RawSize),
	}

	if c.registerer != nil {
		c.registerer.MustRegister(
			m.segments,
			m.records,
			m.errors,
			m.compressedSize,
			m.rawSize,
		)
	}

	return &m
}

type metrics struct {
	segments       *prometheus.CounterVec
	records        prometheus.Counter
	errors         prometheus.Counter
	compressedSize prometheus.Histogram
	rawSize        prometheus.Histogram
}
