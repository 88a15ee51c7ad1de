package pose

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/pose-replay/internal/fsutil"
)

const documentJSON = `{
  "fps": 24,
  "frames": [
    {"frame": 0, "landmarks": [{"id": 15, "x": 0.6, "y": 0.4, "z": 0.1, "visibility": 0.9}]},
    {"frame": 1, "landmarks": []}
  ]
}`

func TestDecode_Document(t *testing.T) {
	seq, err := Decode(strings.NewReader(documentJSON))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	want := &Sequence{
		FPS: 24,
		Frames: []Frame{
			{Ordinal: 0, Landmarks: []Landmark{{ID: 15, X: 0.6, Y: 0.4, Z: 0.1, Visibility: 0.9}}},
			{Ordinal: 1, Landmarks: []Landmark{}},
		},
	}
	if diff := cmp.Diff(want, seq); diff != "" {
		t.Errorf("Decode mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_BareFrameArray(t *testing.T) {
	input := `[{"frame": 7, "landmarks": [{"id": 0, "x": 0.5, "y": 0.5, "z": 0, "visibility": 1}]}]`

	seq, err := Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if seq.FPS != DefaultFPS {
		t.Errorf("FPS = %d, want default %d", seq.FPS, DefaultFPS)
	}
	if seq.Len() != 1 || seq.Frames[0].Ordinal != 7 {
		t.Errorf("unexpected frames: %+v", seq.Frames)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", "   "},
		{"scalar", "42"},
		{"malformed object", `{"fps": 30, "frames": [`},
		{"malformed array", `[{"frame": "x"}]`},
		{"negative fps", `{"fps": -5, "frames": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(strings.NewReader(tt.input)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestEncodeDecodeKeepsOrdinals(t *testing.T) {
	seq := NewSyntheticGenerator(10).Sequence(3)
	seq.Frames[1].Ordinal = 99

	var buf bytes.Buffer
	if err := seq.Encode(&buf); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if diff := cmp.Diff(seq, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFile(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	if err := mfs.WriteFile("/poses/sample_pose.json", []byte(documentJSON), 0644); err != nil {
		t.Fatal(err)
	}

	seq, err := LoadFile(mfs, "/poses/sample_pose.json")
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if seq.Len() != 2 {
		t.Errorf("Len() = %d, want 2", seq.Len())
	}

	if _, err := LoadFile(mfs, "/poses/sample_pose.txt"); err == nil {
		t.Error("expected extension error")
	}
	if _, err := LoadFile(mfs, "/poses/missing.json"); err == nil {
		t.Error("expected missing-file error")
	}
}

func TestSaveFile(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	seq := NewSyntheticGenerator(30).Sequence(2)

	if err := SaveFile(mfs, "/out/nested/seq.json", seq); err != nil {
		t.Fatalf("SaveFile failed: %v", err)
	}
	if !mfs.Exists("/out/nested") {
		t.Error("parent directory not created")
	}

	got, err := LoadFile(mfs, "/out/nested/seq.json")
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if diff := cmp.Diff(seq, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
