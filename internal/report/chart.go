package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/pose-replay/internal/pose"
)

// echartsAssetsPrefix is where rendered pages load the echarts script from.
const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// VisibilityChart builds a line chart of per-frame visibility for each
// landmark in ids. With no ids every landmark in the sequence is charted.
// Frames where a landmark is missing have no point.
func VisibilityChart(seq *pose.Sequence, ids []int) *charts.Line {
	if len(ids) == 0 {
		for _, ls := range pose.Summarize(seq).Landmarks {
			ids = append(ids, ls.ID)
		}
	}
	sort.Ints(ids)

	n := seq.Len()
	x := make([]string, n)
	for i := range x {
		x[i] = strconv.Itoa(i)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Landmark visibility", Width: "100%", Height: "600px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Landmark visibility", Subtitle: fmt.Sprintf("frames=%d landmarks=%d", n, len(ids))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Type: "scroll"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Frame", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Visibility", Min: 0, Max: 1}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
	)
	line.SetXAxis(x)

	for _, id := range ids {
		data := make([]opts.LineData, n)
		for i := range data {
			data[i] = opts.LineData{Value: "-"}
		}
		for i := 0; i < n; i++ {
			f, _ := seq.Frame(i)
			for _, lm := range f.Landmarks {
				if lm.ID == id {
					data[i] = opts.LineData{Value: lm.Visibility}
					break
				}
			}
		}
		line.AddSeries(fmt.Sprintf("landmark %d", id), data,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false), ConnectNulls: opts.Bool(false)}),
		)
	}
	return line
}

// WriteVisibilityChart renders VisibilityChart as a standalone HTML page.
func WriteVisibilityChart(w io.Writer, seq *pose.Sequence, ids []int) error {
	if seq.Len() == 0 {
		return pose.ErrEmptySequence
	}
	if err := VisibilityChart(seq, ids).Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
