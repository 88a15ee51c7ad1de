// Package pose defines landmark frames and sequences produced by pose
// estimation, together with their JSON loader, a synthetic generator and
// per-landmark statistics.
package pose

import (
	"errors"
	"fmt"
	"math"
)

// DefaultFPS is assumed when a document omits its frame rate.
const DefaultFPS = 30

// ErrEmptySequence is returned by operations that need at least one frame.
var ErrEmptySequence = errors.New("sequence has no frames")

// Landmark is a single tracked body point. X and Y are normalized image
// coordinates (typically [0,1], Y growing downward); Z is depth passed
// through as given; Visibility is a [0,1] confidence.
type Landmark struct {
	ID         int     `json:"id"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// Frame is one time-sampled set of landmarks. Landmark ids are not
// guaranteed to be unique or complete; Ordinal is informational only.
type Frame struct {
	Ordinal   int        `json:"frame"`
	Landmarks []Landmark `json:"landmarks"`
}

// Sequence is an ordered list of frames plus the nominal recorded frame rate.
// Frames are addressed by slice index, not by Ordinal.
type Sequence struct {
	FPS    int     `json:"fps"`
	Frames []Frame `json:"frames"`
}

// Len returns the number of frames. A nil sequence has zero frames.
func (s *Sequence) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Frames)
}

// Frame returns a pointer to the frame at index i, or false when i is out of
// range or the sequence is nil.
func (s *Sequence) Frame(i int) (*Frame, bool) {
	if s == nil || i < 0 || i >= len(s.Frames) {
		return nil, false
	}
	return &s.Frames[i], true
}

// Duration returns the nominal recorded length in seconds.
func (s *Sequence) Duration() float64 {
	if s.Len() == 0 || s.FPS <= 0 {
		return 0
	}
	return float64(len(s.Frames)) / float64(s.FPS)
}

// Validate checks the frame rate and rejects non-finite coordinates.
// Out-of-range but finite coordinates are legal detector output.
func (s *Sequence) Validate() error {
	if s == nil {
		return ErrEmptySequence
	}
	if s.FPS < 1 {
		return fmt.Errorf("fps must be >= 1, got %d", s.FPS)
	}
	for i, f := range s.Frames {
		for _, lm := range f.Landmarks {
			if !finite(lm.X) || !finite(lm.Y) || !finite(lm.Z) || !finite(lm.Visibility) {
				return fmt.Errorf("frame %d landmark %d: non-finite coordinate", i, lm.ID)
			}
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
