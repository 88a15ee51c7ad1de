package pose

import "math"

// SyntheticLandmarkCount matches the 33-point body model used by MediaPipe Pose.
const SyntheticLandmarkCount = 33

// SyntheticGenerator produces deterministic landmark frames for demos and
// tests without a detector. Every landmark orbits the image centre, with a
// per-group vertical squash so limbs visibly move between frames.
type SyntheticGenerator struct {
	// Configuration
	FPS           int     // nominal frame rate written to the sequence
	LandmarkCount int     // landmarks per frame
	Radius        float64 // normalized orbit radius
	AngularSpeed  float64 // radians per second added to every orbit
	DepthAmp      float64 // amplitude of the z oscillation
}

// NewSyntheticGenerator creates a generator with the extractor's defaults.
func NewSyntheticGenerator(fps int) *SyntheticGenerator {
	if fps < 1 {
		fps = DefaultFPS
	}
	return &SyntheticGenerator{
		FPS:           fps,
		LandmarkCount: SyntheticLandmarkCount,
		Radius:        0.25,
		AngularSpeed:  2.0,
		DepthAmp:      0.05,
	}
}

// Frame generates the frame at index i.
func (g *SyntheticGenerator) Frame(i int) Frame {
	t := float64(i) / math.Max(1, float64(g.FPS))
	landmarks := make([]Landmark, g.LandmarkCount)

	for k := 0; k < g.LandmarkCount; k++ {
		angle := float64(k)/float64(g.LandmarkCount)*math.Pi*2 + t*g.AngularSpeed
		x := 0.5 + g.Radius*math.Cos(angle)
		y := 0.5 + g.Radius*math.Sin(angle)*(float64(k%5)/4.0)

		landmarks[k] = Landmark{
			ID:         k,
			X:          clamp01(x),
			Y:          clamp01(y),
			Z:          g.DepthAmp * math.Sin(angle*0.5),
			Visibility: 1.0,
		}
	}

	return Frame{Ordinal: i, Landmarks: landmarks}
}

// Sequence generates n consecutive frames starting at index 0.
func (g *SyntheticGenerator) Sequence(n int) *Sequence {
	if n < 0 {
		n = 0
	}
	seq := &Sequence{FPS: g.FPS, Frames: make([]Frame, n)}
	for i := 0; i < n; i++ {
		seq.Frames[i] = g.Frame(i)
	}
	return seq
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
