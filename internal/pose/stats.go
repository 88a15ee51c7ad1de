package pose

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes a sequence for inspection tools and the API.
type Summary struct {
	FrameCount      int               `json:"frame_count"`
	FPS             int               `json:"fps"`
	DurationSeconds float64           `json:"duration_seconds"`
	EmptyFrames     int               `json:"empty_frames"`
	Landmarks       []LandmarkSummary `json:"landmarks"`
}

// LandmarkSummary aggregates one landmark id across all frames it appears in.
type LandmarkSummary struct {
	ID               int        `json:"id"`
	Count            int        `json:"count"`
	MeanVisibility   float64    `json:"mean_visibility"`
	StdDevVisibility float64    `json:"stddev_visibility"`
	Min              [3]float64 `json:"min"`
	Max              [3]float64 `json:"max"`
}

// Summarize computes per-landmark statistics. Landmarks are sorted by id.
func Summarize(s *Sequence) Summary {
	sum := Summary{
		FrameCount:      s.Len(),
		DurationSeconds: s.Duration(),
	}
	if s == nil {
		return sum
	}
	sum.FPS = s.FPS

	type series struct {
		vis, x, y, z []float64
	}
	byID := make(map[int]*series)
	for _, f := range s.Frames {
		if len(f.Landmarks) == 0 {
			sum.EmptyFrames++
			continue
		}
		for _, lm := range f.Landmarks {
			sr, ok := byID[lm.ID]
			if !ok {
				sr = &series{}
				byID[lm.ID] = sr
			}
			sr.vis = append(sr.vis, lm.Visibility)
			sr.x = append(sr.x, lm.X)
			sr.y = append(sr.y, lm.Y)
			sr.z = append(sr.z, lm.Z)
		}
	}

	ids := make([]int, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	sum.Landmarks = make([]LandmarkSummary, 0, len(ids))
	for _, id := range ids {
		sr := byID[id]
		ls := LandmarkSummary{ID: id, Count: len(sr.vis)}
		if len(sr.vis) > 1 {
			ls.MeanVisibility, ls.StdDevVisibility = stat.MeanStdDev(sr.vis, nil)
		} else {
			ls.MeanVisibility = sr.vis[0]
		}
		ls.Min = [3]float64{floats.Min(sr.x), floats.Min(sr.y), floats.Min(sr.z)}
		ls.Max = [3]float64{floats.Max(sr.x), floats.Max(sr.y), floats.Max(sr.z)}
		sum.Landmarks = append(sum.Landmarks, ls)
	}
	return sum
}

// Trajectory returns the per-frame coordinates of landmark id. Frames that do
// not contain the landmark are skipped; the first occurrence in a frame wins.
func Trajectory(s *Sequence, id int) (frames []int, points [][3]float64) {
	if s == nil {
		return nil, nil
	}
	for i, f := range s.Frames {
		for _, lm := range f.Landmarks {
			if lm.ID == id {
				frames = append(frames, i)
				points = append(points, [3]float64{lm.X, lm.Y, lm.Z})
				break
			}
		}
	}
	return frames, points
}
