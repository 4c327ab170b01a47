package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// MetricsClient is the metrics surface used by the rest of the application.
type MetricsClient interface {
	IncrementRequestCounter(method, outcome string)
	IncrementLaunchCounter(outcome string)
	IncrementDownloadCounter(outcome string)
	IncrementServerRequestCounter(outcome string)
	ObservePollDuration(seconds float64)
}

// DefaultMetricsClient holds all the Prometheus metrics for the application
type DefaultMetricsClient struct {
	RequestCounter       *prometheus.CounterVec
	LaunchCounter        *prometheus.CounterVec
	DownloadCounter      *prometheus.CounterVec
	ServerRequestCounter *prometheus.CounterVec
	PollDuration         prometheus.Histogram
}

// NewDefaultMetricsClient initializes and registers Prometheus metrics
func NewDefaultMetricsClient() (*DefaultMetricsClient, error) {
	metrics := &DefaultMetricsClient{
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "remote_api_requests_total",
				Help: "Total number of requests issued against the remote job API",
			},
			[]string{"method", "outcome"},
		),
		LaunchCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "job_launches_total",
				Help: "Total number of job launch attempts",
			},
			[]string{"outcome"},
		),
		DownloadCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "output_downloads_total",
				Help: "Total number of output file downloads",
			},
			[]string{"outcome"},
		),
		ServerRequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "server_request_total",
				Help: "Total number of relay server requests",
			},
			[]string{"status"},
		),
		PollDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "job_poll_duration_seconds",
				Help:    "Wall-clock seconds spent polling a job until a terminal status",
				Buckets: []float64{1, 5, 10, 30, 60, 300, 900, 3600},
			},
		),
	}

	collectors := []prometheus.Collector{
		metrics.RequestCounter,
		metrics.LaunchCounter,
		metrics.DownloadCounter,
		metrics.ServerRequestCounter,
		metrics.PollDuration,
	}
	for _, c := range collectors {
		if err := prometheus.Register(c); err != nil {
			Logger.Error("Failed to register metrics collector", zap.Error(err))
			return nil, err
		}
	}

	return metrics, nil
}

func (m *DefaultMetricsClient) IncrementRequestCounter(method, outcome string) {
	m.RequestCounter.WithLabelValues(method, outcome).Inc()
}

func (m *DefaultMetricsClient) IncrementLaunchCounter(outcome string) {
	m.LaunchCounter.WithLabelValues(outcome).Inc()
}

func (m *DefaultMetricsClient) IncrementDownloadCounter(outcome string) {
	m.DownloadCounter.WithLabelValues(outcome).Inc()
}

func (m *DefaultMetricsClient) IncrementServerRequestCounter(outcome string) {
	m.ServerRequestCounter.WithLabelValues(outcome).Inc()
}

func (m *DefaultMetricsClient) ObservePollDuration(seconds float64) {
	m.PollDuration.Observe(seconds)
}
