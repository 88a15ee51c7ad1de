// Command pose-inspect prints statistics for a pose sequence and optionally
// renders a landmark trajectory plot or a visibility chart.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/banshee-data/pose-replay/internal/fsutil"
	"github.com/banshee-data/pose-replay/internal/pose"
	"github.com/banshee-data/pose-replay/internal/report"
	"github.com/banshee-data/pose-replay/internal/security"
)

func main() {
	in := flag.String("in", "", "sequence JSON file")
	plotID := flag.Int("plot", -1, "landmark id to plot")
	plotOut := flag.String("plot-out", "trajectory.png", "trajectory plot output (png, svg or pdf)")
	chartOut := flag.String("chart", "", "write an HTML visibility chart to this path")
	chartIDs := flag.String("chart-ids", "", "comma separated landmark ids for the chart (all when empty)")
	flag.Parse()

	if *in == "" {
		log.Fatal("-in is required")
	}
	seq, err := pose.LoadFile(fsutil.OSFileSystem{}, *in)
	if err != nil {
		log.Fatalf("failed to load sequence: %v", err)
	}

	printSummary(os.Stdout, pose.Summarize(seq))

	if *plotID >= 0 {
		if err := security.ValidateOutputPath(*plotOut); err != nil {
			log.Fatalf("invalid -plot-out: %v", err)
		}
		if err := report.SaveTrajectoryPNG(*plotOut, seq, *plotID); err != nil {
			log.Fatalf("failed to plot landmark %d: %v", *plotID, err)
		}
		log.Printf("✓ Plot: %s", *plotOut)
	}

	if *chartOut != "" {
		if err := security.ValidateOutputPath(*chartOut); err != nil {
			log.Fatalf("invalid -chart: %v", err)
		}
		ids, err := parseIDs(*chartIDs)
		if err != nil {
			log.Fatal(err)
		}
		f, err := os.Create(*chartOut)
		if err != nil {
			log.Fatalf("failed to create %s: %v", *chartOut, err)
		}
		defer f.Close()
		if err := report.WriteVisibilityChart(f, seq, ids); err != nil {
			log.Fatalf("failed to render chart: %v", err)
		}
		log.Printf("✓ Chart: %s", *chartOut)
	}
}

func parseIDs(raw string) ([]int, error) {
	var ids []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid landmark id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func printSummary(w io.Writer, s pose.Summary) {
	fmt.Fprintf(w, "frames: %d  fps: %d  duration: %.2fs  empty frames: %d\n\n",
		s.FrameCount, s.FPS, s.DurationSeconds, s.EmptyFrames)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCOUNT\tVIS MEAN\tVIS SD\tMIN (x,y,z)\tMAX (x,y,z)")
	for _, lm := range s.Landmarks {
		fmt.Fprintf(tw, "%d\t%d\t%.3f\t%.3f\t%.3f,%.3f,%.3f\t%.3f,%.3f,%.3f\n",
			lm.ID, lm.Count, lm.MeanVisibility, lm.StdDevVisibility,
			lm.Min[0], lm.Min[1], lm.Min[2], lm.Max[0], lm.Max[1], lm.Max[2])
	}
	tw.Flush()
}
