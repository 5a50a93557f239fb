package deflate

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusConfig is a config of the Prometheus metrics provided by the [Worker].
//
// An instance can be created only by the [Prometheus] function. The zero value is invalid.
type PrometheusConfig struct {
	// Namespace of the metrics.
	Namespace string
	// Subsystem of the metrics.
	Subsystem string
	// Options for the requests counter, partitioned by action.
	Requests prometheus.CounterOpts
	// Options for the failed requests counter.
	Errors prometheus.CounterOpts
	// Options for the uncompressed bytes counter.
	BytesIn prometheus.CounterOpts
	// Options for the compressed bytes counter.
	BytesOut prometheus.CounterOpts
	// Options for the finished segments counter.
	Segments prometheus.CounterOpts
	// Options for the request handling duration histogram.
	HandleDuration prometheus.HistogramOpts

	registerer prometheus.Registerer
}

// Prometheus returns a [PrometheusConfig] with the provided registerer. If registerer is nil,
// metrics will not be registered.
func Prometheus(
	registerer prometheus.Registerer,
	configFuncs ...func(c *PrometheusConfig),
) *PrometheusConfig {
	const (
		namespace = "replay"
		subsystem = "deflate"
	)

	c := PrometheusConfig{
		registerer: registerer,
		Namespace:  namespace,
		Subsystem:  subsystem,
		Requests: prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests",
			Help:      "Number of handled requests",
		},
		Errors: prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "errors",
			Help:      "Number of requests answered with an error",
		},
		BytesIn: prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "bytes_in",
			Help:      "Number of uncompressed bytes written",
		},
		BytesOut: prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "bytes_out",
			Help:      "Number of compressed bytes in finished segments",
		},
		Segments: prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "segments",
			Help:      "Number of finished segments",
		},
		HandleDuration: prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "handle_duration_seconds",
			Help:      "Duration of request handling",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
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
		requests:       prometheus.NewCounterVec(c.Requests, []string{"action"}),
		errors:         prometheus.NewCounter(c.Errors),
		bytesIn:        prometheus.NewCounter(c.BytesIn),
		bytesOut:       prometheus.NewCounter(c.BytesOut),
		segments:       prometheus.NewCounter(c.Segments),
		handleDuration: prometheus.NewHistogram(c.HandleDuration),
	}

	if c.registerer != nil {
		c.registerer.MustRegister(
			m.requests,
			m.errors,
			m.bytesIn,
			m.bytesOut,
			m.segments,
			m.handleDuration,
		)
	}

	return &m
}

type metrics struct {
	requests       *prometheus.CounterVec
	errors         prometheus.Counter
	bytesIn        prometheus.Counter
	bytesOut       prometheus.Counter
	segments       prometheus.Counter
	handleDuration prometheus.Histogram
}
