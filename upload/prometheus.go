package upload

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusConfig is a config of the Prometheus metrics provided by the [Uploader].
//
// An instance can be created only by the [Prometheus] function. The zero value is invalid.
type PrometheusConfig struct {
	// Namespace of the metrics.
	Namespace string
	// Subsystem of the metrics.
	Subsystem string
	// Options for the stored segments gauge.
	Segments prometheus.GaugeOpts
	// Options for the upload attempts counter.
	Attempts prometheus.CounterOpts
	// Options for the finished uploads counter, partitioned by result.
	Uploads prometheus.CounterOpts
	// Options for the upload duration histogram.
	UploadDuration prometheus.HistogramOpts

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
		subsystem = "upload"
	)

	c := PrometheusConfig{
		registerer: registerer,
		Namespace:  namespace,
		Subsystem:  subsystem,
		Segments: prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "segments",
			Help:      "Number of segments waiting in the outbox",
		},
		Attempts: prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "attempts",
			Help:      "Number of upload attempts",
		},
		Uploads: prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "uploads",
			Help:      "Number of finished uploads",
		},
		UploadDuration: prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "upload_duration_seconds",
			Help:      "Duration of a single upload attempt",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
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
		segments:       prometheus.NewGauge(c.Segments),
		attempts:       prometheus.NewCounter(c.Attempts),
		uploads:        prometheus.NewCounterVec(c.Uploads, []string{"result"}),
		uploadDuration: prometheus.NewHistogram(c.UploadDuration),
	}

	if c.registerer != nil {
		c.registerer.MustRegister(
			m.segments,
			m.attempts,
			m.uploads,
			m.uploadDuration,
		)
	}

	return &m
}

type metrics struct {
	segments       prometheus.Gauge
	attempts       prometheus.Counter
	uploads        *prometheus.CounterVec
	uploadDuration prometheus.Histogram
}
