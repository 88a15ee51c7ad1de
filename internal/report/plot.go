// Package report renders pose sequences as static PNG plots and
// interactive HTML charts.
package report

import (
	"errors"
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/pose-replay/internal/pose"
)

// ErrNoData is returned when the requested landmark never appears.
var ErrNoData = errors.New("no data for landmark")

// Default plot size.
var (
	PlotWidth  = 10 * vg.Inch
	PlotHeight = 5 * vg.Inch
)

// TrajectoryPlot builds a plot of one landmark's x, y and z against frame
// index.
func TrajectoryPlot(seq *pose.Sequence, landmarkID int) (*plot.Plot, error) {
	frames, points := pose.Trajectory(seq, landmarkID)
	if len(frames) == 0 {
		return nil, fmt.Errorf("landmark %d: %w", landmarkID, ErrNoData)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Landmark %d trajectory", landmarkID)
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Normalized coordinate"

	for axis, name := range []string{"x", "y", "z"} {
		pts := make(plotter.XYs, len(frames))
		for i, f := range frames {
			pts[i] = plotter.XY{X: float64(f), Y: points[i][axis]}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		line.Color = plotutil.Color(axis)
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(name, line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// WriteTrajectoryPNG writes the trajectory plot of landmarkID as PNG to w.
func WriteTrajectoryPNG(w io.Writer, seq *pose.Sequence, landmarkID int) error {
	p, err := TrajectoryPlot(seq, landmarkID)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(PlotWidth, PlotHeight, "png")
	if err != nil {
		return fmt.Errorf("failed to render plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write plot: %w", err)
	}
	return nil
}

// SaveTrajectoryPNG writes the trajectory plot of landmarkID to path. The
// image format follows the file extension.
func SaveTrajectoryPNG(path string, seq *pose.Sequence, landmarkID int) error {
	p, err := TrajectoryPlot(seq, landmarkID)
	if err != nil {
		return err
	}
	if err := p.Save(PlotWidth, PlotHeight, path); err != nil {
		return fmt.Errorf("failed to save plot %s: %w", path, err)
	}
	return nil
}
