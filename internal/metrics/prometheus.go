package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the capture pipeline
type Metrics struct {
	// Recording lifecycle metrics
	RecordingsStarted   prometheus.Counter
	RecordingsStopped   prometheus.Counter
	RecordingsDiscarded prometheus.Counter
	RecordingDuration   prometheus.Histogram

	// Chunk metrics
	ChunksCollected prometheus.Counter
	ChunksDropped   prometheus.Counter
	RecordingSize   prometheus.Histogram

	// Device metrics
	DeviceOpenFailures *prometheus.CounterVec

	// Visualizer metrics
	VisualizerFrames prometheus.Counter

	// Enhancement upload metrics
	EnhanceRequests  prometheus.Counter
	EnhanceSuccesses prometheus.Counter
	EnhanceFailures  prometheus.Counter
	EnhanceDuration  prometheus.Histogram
	UploadSize       prometheus.Histogram

	// HTTP monitor metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		RecordingsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "capture_recordings_started_total",
			Help: "Total number of recordings started",
		}),
		RecordingsStopped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "capture_recordings_stopped_total",
			Help: "Total number of recordings stopped",
		}),
		RecordingsDiscarded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "capture_recordings_discarded_total",
			Help: "Total number of recordings discarded",
		}),
		RecordingDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "capture_recording_duration_seconds",
			Help:    "Duration of finished recordings in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~17 minutes
		}),

		ChunksCollected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "capture_chunks_collected_total",
			Help: "Total number of audio chunks appended to recordings",
		}),
		ChunksDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "capture_chunks_dropped_total",
			Help: "Total number of late chunks dropped after stop",
		}),
		RecordingSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "capture_recording_size_bytes",
			Help:    "Size of finalized recording blobs in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 12), // 1KB to ~4MB
		}),

		DeviceOpenFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "capture_device_open_failures_total",
			Help: "Total number of device acquisition failures",
		}, []string{"code"}),

		VisualizerFrames: promauto.NewCounter(prometheus.CounterOpts{
			Name: "capture_visualizer_frames_total",
			Help: "Total number of visualizer frames emitted",
		}),

		EnhanceRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "capture_enhance_requests_total",
			Help: "Total number of enhancement requests sent",
		}),
		EnhanceSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "capture_enhance_successes_total",
			Help: "Total number of successful enhancement requests",
		}),
		EnhanceFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "capture_enhance_failures_total",
			Help: "Total number of failed enhancement requests",
		}),
		EnhanceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "capture_enhance_duration_seconds",
			Help:    "Duration of enhancement requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),
		UploadSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "capture_upload_size_bytes",
			Help:    "Size of uploaded file artifacts in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 12),
		}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "capture_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "capture_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "capture_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordRecordingStarted increments the recordings started counter
func (m *Metrics) RecordRecordingStarted() {
	m.RecordingsStarted.Inc()
}

// RecordRecordingStopped records a finished recording
func (m *Metrics) RecordRecordingStopped(durationSeconds float64, sizeBytes int) {
	m.RecordingsStopped.Inc()
	m.RecordingDuration.Observe(durationSeconds)
	m.RecordingSize.Observe(float64(sizeBytes))
}

// RecordRecordingDiscarded increments the discard counter
func (m *Metrics) RecordRecordingDiscarded() {
	m.RecordingsDiscarded.Inc()
}

// RecordChunkCollected increments the chunk counter
func (m *Metrics) RecordChunkCollected() {
	m.ChunksCollected.Inc()
}

// RecordChunkDropped increments the late-chunk drop counter
func (m *Metrics) RecordChunkDropped() {
	m.ChunksDropped.Inc()
}

// RecordDeviceOpenFailure records a device acquisition failure by code
func (m *Metrics) RecordDeviceOpenFailure(code string) {
	m.DeviceOpenFailures.WithLabelValues(code).Inc()
}

// RecordVisualizerFrames adds to the frame counter
func (m *Metrics) RecordVisualizerFrames(n uint64) {
	m.VisualizerFrames.Add(float64(n))
}

// RecordEnhanceRequest increments the enhancement request counter
func (m *Metrics) RecordEnhanceRequest(sizeBytes int) {
	m.EnhanceRequests.Inc()
	m.UploadSize.Observe(float64(sizeBytes))
}

// RecordEnhanceSuccess records a successful enhancement
func (m *Metrics) RecordEnhanceSuccess(durationSeconds float64) {
	m.EnhanceSuccesses.Inc()
	m.EnhanceDuration.Observe(durationSeconds)
}

// RecordEnhanceFailure records a failed enhancement
func (m *Metrics) RecordEnhanceFailure(durationSeconds float64) {
	m.EnhanceFailures.Inc()
	m.EnhanceDuration.Observe(durationSeconds)
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
