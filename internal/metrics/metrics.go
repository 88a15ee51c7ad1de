// Package metrics exposes playback and HTTP counters to Prometheus.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/banshee-data/pose-replay/internal/playback"
)

// Metrics holds the Prometheus collectors for one server. Each instance has
// its own registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	framesApplied *prometheus.CounterVec
	landmarks     *prometheus.CounterVec
	applySeconds  prometheus.Histogram
	playing       prometheus.Gauge
	currentFrame  prometheus.Gauge
	frameCount    prometheus.Gauge
	requestsTotal prometheus.Counter
	errorsTotal   prometheus.Counter
}

// New creates and registers the collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		framesApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pose_replay_frames_applied_total",
			Help: "Frames written to the skeleton, by what triggered them",
		}, []string{"source"}),
		landmarks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pose_replay_landmarks_total",
			Help: "Landmarks processed, by outcome",
		}, []string{"outcome"}),
		applySeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pose_replay_apply_seconds",
			Help:    "Time spent applying one frame to the skeleton",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		playing: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pose_replay_playing",
			Help: "1 while playback is running",
		}),
		currentFrame: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pose_replay_current_frame",
			Help: "Index of the current frame",
		}),
		frameCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pose_replay_frame_count",
			Help: "Frames in the bound sequence",
		}),
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pose_replay_http_requests_total",
			Help: "Total number of HTTP requests received",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pose_replay_http_errors_total",
			Help: "Total number of HTTP responses with error status (4xx or 5xx)",
		}),
	}

	registry.MustRegister(
		m.framesApplied,
		m.landmarks,
		m.applySeconds,
		m.playing,
		m.currentFrame,
		m.frameCount,
		m.requestsTotal,
		m.errorsTotal,
	)
	return m
}

// ObserveFrame records one applied frame. It matches the signature of
// playback.Controller.OnFrame.
func (m *Metrics) ObserveFrame(ev playback.FrameEvent) {
	m.framesApplied.WithLabelValues(string(ev.Source)).Inc()
	m.applySeconds.Observe(ev.Elapsed.Seconds())

	st := ev.Stats
	for outcome, n := range map[string]int{
		"unmapped":       st.Unmapped,
		"low_visibility": st.LowVisibility,
		"missing_joint":  st.MissingJoint,
		"degenerate":     st.Degenerate,
		"rotated":        st.Rotated,
		"positioned":     st.Positioned,
	} {
		if n > 0 {
			m.landmarks.WithLabelValues(outcome).Add(float64(n))
		}
	}
}

// SetStatus refreshes the playback gauges.
func (m *Metrics) SetStatus(st playback.Status) {
	playing := 0.0
	if st.Playing {
		playing = 1
	}
	m.playing.Set(playing)
	m.currentFrame.Set(float64(st.CurrentIndex))
	m.frameCount.Set(float64(st.FrameCount))
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// WatchStats reports on open frame streams.
type WatchStats interface {
	Dropped() uint64
	Watchers() int
}

// RegisterWatchStats exports the frame stream counters of w. They are read at
// scrape time.
func (m *Metrics) RegisterWatchStats(w WatchStats) error {
	dropped := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "pose_replay_grpc_events_dropped_total",
		Help: "Frame events not delivered because a watcher queue was full",
	}, func() float64 { return float64(w.Dropped()) })
	watchers := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "pose_replay_grpc_watchers",
		Help: "Open WatchFrames streams",
	}, func() float64 { return float64(w.Watchers()) })

	if err := m.registry.Register(dropped); err != nil {
		return fmt.Errorf("register dropped events: %w", err)
	}
	if err := m.registry.Register(watchers); err != nil {
		m.registry.Unregister(dropped)
		return fmt.Errorf("register watchers: %w", err)
	}
	return nil
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an http.Handler that serves the metrics. updateGauges is
// called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		h.ServeHTTP(w, r)
	})
}
