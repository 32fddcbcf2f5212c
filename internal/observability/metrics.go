package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Poll outcomes used as the result label
const (
	ResultOK          = "ok"
	ResultFetchError  = "fetch_error"
	ResultDecodeError = "decode_error"
)

// PollCollector bundles the counters and histograms updated after every poll.
type PollCollector struct {
	gatherer prometheus.Gatherer

	Polls          *prometheus.CounterVec
	PollDurations  *prometheus.HistogramVec
	DecodeFailures *prometheus.CounterVec
	PublishErrors  *prometheus.CounterVec
}

// NewPollCollector registers the poll metrics against reg, defaulting to the
// global registry when nil.
func NewPollCollector(reg prometheus.Registerer) (*PollCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	polls, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mocad_polls_total",
		Help: "Adapter polls by host and result.",
	}, []string{"host", "result"}), "mocad_polls_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mocad_poll_duration_seconds",
		Help:    "Time to fetch and decode one adapter.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"host"}), "mocad_poll_duration_seconds")
	if err != nil {
		return nil, err
	}

	decodeFailures, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mocad_decode_failures_total",
		Help: "Node pairs whose FMR entry could not be decoded.",
	}, []string{"host"}), "mocad_decode_failures_total")
	if err != nil {
		return nil, err
	}

	publishErrors, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mocad_publish_errors_total",
		Help: "Failed MQTT publish batches by host.",
	}, []string{"host"}), "mocad_publish_errors_total")
	if err != nil {
		return nil, err
	}

	return &PollCollector{
		gatherer:       gatherer,
		Polls:          polls,
		PollDurations:  durations,
		DecodeFailures: decodeFailures,
		PublishErrors:  publishErrors,
	}, nil
}

// ObservePoll records one finished poll.
func (c *PollCollector) ObservePoll(host, result string, d time.Duration, decodeFailures int) {
	if c == nil {
		return
	}
	c.Polls.WithLabelValues(host, result).Inc()
	c.PollDurations.WithLabelValues(host).Observe(d.Seconds())
	if decodeFailures > 0 {
		c.DecodeFailures.WithLabelValues(host).Add(float64(decodeFailures))
	}
}

// ObservePublishError counts a failed publish batch.
func (c *PollCollector) ObservePublishError(host string) {
	if c == nil {
		return
	}
	c.PublishErrors.WithLabelValues(host).Inc()
}

// Handler exposes a /metrics handler for the registry the collector lives in.
func (c *PollCollector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
