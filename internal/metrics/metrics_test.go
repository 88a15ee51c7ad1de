package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pose-replay/internal/playback"
	"github.com/banshee-data/pose-replay/internal/retarget"
)

// value returns the counter, gauge or histogram sample count of the series
// named name whose labels include the given name/value pairs.
func value(t *testing.T, m *Metrics, name string, labels ...string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	series:
		for _, metric := range mf.GetMetric() {
			for i := 0; i+1 < len(labels); i += 2 {
				found := false
				for _, lp := range metric.GetLabel() {
					if lp.GetName() == labels[i] && lp.GetValue() == labels[i+1] {
						found = true
					}
				}
				if !found {
					continue series
				}
			}
			switch {
			case metric.GetCounter() != nil:
				return metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				return metric.GetGauge().GetValue()
			case metric.GetHistogram() != nil:
				return float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}
	return 0
}

func TestObserveFrame(t *testing.T) {
	m := New()

	m.ObserveFrame(playback.FrameEvent{
		Source:  playback.SourceTick,
		Stats:   retarget.Stats{Landmarks: 5, Unmapped: 2, Rotated: 2, Degenerate: 1},
		Elapsed: 3 * time.Microsecond,
	})
	m.ObserveFrame(playback.FrameEvent{
		Source: playback.SourceSeek,
		Stats:  retarget.Stats{Landmarks: 1, Positioned: 1},
	})
	m.ObserveFrame(playback.FrameEvent{Source: playback.SourceTick})

	assert.Equal(t, 2.0, value(t, m, "pose_replay_frames_applied_total", "source", "tick"))
	assert.Equal(t, 1.0, value(t, m, "pose_replay_frames_applied_total", "source", "seek"))
	assert.Equal(t, 2.0, value(t, m, "pose_replay_landmarks_total", "outcome", "unmapped"))
	assert.Equal(t, 2.0, value(t, m, "pose_replay_landmarks_total", "outcome", "rotated"))
	assert.Equal(t, 1.0, value(t, m, "pose_replay_landmarks_total", "outcome", "degenerate"))
	assert.Equal(t, 1.0, value(t, m, "pose_replay_landmarks_total", "outcome", "positioned"))
	assert.Equal(t, 0.0, value(t, m, "pose_replay_landmarks_total", "outcome", "missing_joint"))
	assert.Equal(t, 3.0, value(t, m, "pose_replay_apply_seconds"))
}

func TestSetStatus(t *testing.T) {
	m := New()
	m.SetStatus(playback.Status{CurrentIndex: 4, Playing: true, FrameCount: 9})

	assert.Equal(t, 1.0, value(t, m, "pose_replay_playing"))
	assert.Equal(t, 4.0, value(t, m, "pose_replay_current_frame"))
	assert.Equal(t, 9.0, value(t, m, "pose_replay_frame_count"))

	m.SetStatus(playback.Status{})
	assert.Equal(t, 0.0, value(t, m, "pose_replay_playing"))
}

func TestHandler(t *testing.T) {
	m := New()
	refreshed := false
	srv := httptest.NewServer(m.Handler(func() {
		refreshed = true
		m.SetStatus(playback.Status{FrameCount: 12})
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.True(t, refreshed)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "pose_replay_frame_count 12")
}

func TestRequestMiddleware(t *testing.T) {
	m := New()
	h := RequestMiddleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/missing") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	for _, path := range []string{"/a", "/b", "/missing"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 3.0, value(t, m, "pose_replay_http_requests_total"))
	assert.Equal(t, 1.0, value(t, m, "pose_replay_http_errors_total"))
}

type fakeWatchStats struct {
	dropped  uint64
	watchers int
}

func (f *fakeWatchStats) Dropped() uint64 { return f.dropped }
func (f *fakeWatchStats) Watchers() int   { return f.watchers }

func TestRegisterWatchStats(t *testing.T) {
	m := New()
	stats := &fakeWatchStats{}
	require.NoError(t, m.RegisterWatchStats(stats))

	stats.dropped = 4
	stats.watchers = 2
	assert.Equal(t, 4.0, value(t, m, "pose_replay_grpc_events_dropped_total"))
	assert.Equal(t, 2.0, value(t, m, "pose_replay_grpc_watchers"))

	stats.dropped = 9
	assert.Equal(t, 9.0, value(t, m, "pose_replay_grpc_events_dropped_total"))

	assert.Error(t, m.RegisterWatchStats(stats), "second registration collides")
}
