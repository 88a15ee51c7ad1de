package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pose-replay/internal/config"
	"github.com/banshee-data/pose-replay/internal/fsutil"
	"github.com/banshee-data/pose-replay/internal/playback"
	"github.com/banshee-data/pose-replay/internal/pose"
	"github.com/banshee-data/pose-replay/internal/testutil"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestNewAppBindsSequenceFile(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, pose.SaveFile(fsys, "walk.json", testutil.SyntheticSequence(7)))

	cfg := config.DefaultReplayConfig()
	cfg.SequencePath = strPtr("walk.json")
	cfg.Autoplay = boolPtr(true)

	a, err := newApp(cfg, appOptions{noDB: true, fsys: fsys})
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, 7, a.ctl.FrameCount())
	assert.True(t, a.ctl.IsPlaying())
	assert.Nil(t, a.store)
}

func TestNewAppSyntheticOverridesFile(t *testing.T) {
	cfg := config.DefaultReplayConfig()
	cfg.SequencePath = strPtr("missing.json")

	a, err := newApp(cfg, appOptions{noDB: true, synthetic: 4, fsys: fsutil.NewMemoryFileSystem()})
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, 4, a.ctl.FrameCount())
	assert.False(t, a.ctl.IsPlaying())
}

func TestNewAppMissingSequence(t *testing.T) {
	cfg := config.DefaultReplayConfig()
	cfg.SequencePath = strPtr("missing.json")

	_, err := newApp(cfg, appOptions{noDB: true, fsys: fsutil.NewMemoryFileSystem()})
	assert.Error(t, err)
}

func TestNewAppMissingJointMap(t *testing.T) {
	cfg := config.DefaultReplayConfig()
	cfg.JointMapPath = strPtr("joints.json")

	_, err := newApp(cfg, appOptions{noDB: true, fsys: fsutil.NewMemoryFileSystem()})
	assert.Error(t, err)
}

func TestAppHandlerWithStore(t *testing.T) {
	cfg := config.DefaultReplayConfig()
	cfg.DBPath = strPtr(testutil.TempDBPath(t))

	a, err := newApp(cfg, appOptions{synthetic: 3, fsys: fsutil.NewMemoryFileSystem()})
	require.NoError(t, err)
	defer a.Close()
	require.NotNil(t, a.store)

	h, err := a.Handler()
	require.NoError(t, err)

	rec := testutil.ServeRequest(h, http.MethodGet, "/api/v1/health")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	rec = testutil.ServeRequest(h, http.MethodGet, "/api/v1/sequences")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	rec = testutil.ServeRequest(h, http.MethodGet, "/debug/")
	assert.NotEqual(t, http.StatusNotFound, rec.Code)
}

func TestAppOnFrameFeedsMetrics(t *testing.T) {
	cfg := config.DefaultReplayConfig()
	a, err := newApp(cfg, appOptions{noDB: true, synthetic: 3, fsys: fsutil.NewMemoryFileSystem()})
	require.NoError(t, err)
	defer a.Close()

	a.ctl.GotoFrame(1)

	h, err := a.Handler()
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `pose_replay_frames_applied_total{source="`+string(playback.SourceSeek)+`"} 1`)
}

func TestAppExportsWatchStats(t *testing.T) {
	cfg := config.DefaultReplayConfig()
	a, err := newApp(cfg, appOptions{noDB: true, synthetic: 3, fsys: fsutil.NewMemoryFileSystem()})
	require.NoError(t, err)
	defer a.Close()

	h, err := a.Handler()
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pose_replay_grpc_events_dropped_total 0")
	assert.Contains(t, rec.Body.String(), "pose_replay_grpc_watchers 0")
}
