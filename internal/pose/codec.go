package pose

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/banshee-data/pose-replay/internal/fsutil"
)

// MaxFileSize bounds sequence documents read by LoadFile.
const MaxFileSize = 64 * 1024 * 1024

// Decode reads a sequence document. Two shapes are accepted: the document
// form {"fps": n, "frames": [...]} and the bare frame array written by the
// extractor. A missing or zero fps becomes DefaultFPS.
func Decode(r io.Reader) (*Sequence, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read sequence: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty sequence document")
	}

	seq := &Sequence{}
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &seq.Frames); err != nil {
			return nil, fmt.Errorf("failed to parse frame array: %w", err)
		}
	case '{':
		if err := json.Unmarshal(trimmed, seq); err != nil {
			return nil, fmt.Errorf("failed to parse sequence JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("sequence document must be a JSON object or array")
	}

	if seq.FPS == 0 {
		seq.FPS = DefaultFPS
	}
	if err := seq.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sequence: %w", err)
	}
	return seq, nil
}

// Encode writes s in the document form.
func (s *Sequence) Encode(w io.Writer) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("failed to encode sequence: %w", err)
	}
	return bw.Flush()
}

// LoadFile reads and decodes a .json sequence document from fsys.
func LoadFile(fsys fsutil.FileSystem, path string) (*Sequence, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("sequence file must have .json extension, got %q", ext)
	}

	info, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat sequence file: %w", err)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("sequence file too large: %d bytes (max %d)", info.Size(), MaxFileSize)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read sequence file: %w", err)
	}
	seq, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cleanPath, err)
	}
	return seq, nil
}

// SaveFile writes s to path in the document form, creating parent directories.
func SaveFile(fsys fsutil.FileSystem, path string, s *Sequence) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := fsys.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output dir: %w", err)
		}
	}
	var buf bytes.Buffer
	if err := s.Encode(&buf); err != nil {
		return err
	}
	if err := fsys.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write sequence file: %w", err)
	}
	return nil
}
