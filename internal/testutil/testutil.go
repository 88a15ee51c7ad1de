// Package testutil provides shared test fixtures for pose sequences,
// stores and HTTP handlers.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/banshee-data/pose-replay/internal/pose"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// ServeRequest runs one request through h and returns the recorder.
func ServeRequest(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

// TempDBPath returns a path for a sqlite database inside t's temp dir.
func TempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "pose-replay-test.db")
}

// SyntheticSequence returns n frames from the default synthetic generator
// at pose.DefaultFPS.
func SyntheticSequence(n int) *pose.Sequence {
	return pose.NewSyntheticGenerator(pose.DefaultFPS).Sequence(n)
}

// LandmarkSequence returns one frame per point, each carrying a single
// fully visible landmark id. Frame ordinals follow the point index.
func LandmarkSequence(id int, points ...[3]float64) *pose.Sequence {
	seq := &pose.Sequence{FPS: pose.DefaultFPS, Frames: make([]pose.Frame, len(points))}
	for i, p := range points {
		seq.Frames[i] = pose.Frame{
			Ordinal: i,
			Landmarks: []pose.Landmark{
				{ID: id, X: p[0], Y: p[1], Z: p[2], Visibility: 1},
			},
		}
	}
	return seq
}
