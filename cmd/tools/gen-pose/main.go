// Command gen-pose writes a synthetic pose sequence for testing playback.
package main

import (
	"encoding/json"
	"flag"
	"log"

	"github.com/banshee-data/pose-replay/internal/fsutil"
	"github.com/banshee-data/pose-replay/internal/pose"
)

func main() {
	output := flag.String("out", "sample_pose.json", "output path")
	frames := flag.Int("frames", 120, "number of frames")
	fps := flag.Int("fps", pose.DefaultFPS, "frames per second")
	bare := flag.Bool("bare", false, "write a bare frame array instead of the {fps, frames} document")
	flag.Parse()

	if *frames < 1 {
		log.Fatal("-frames must be >= 1")
	}

	seq := pose.NewSyntheticGenerator(*fps).Sequence(*frames)
	if *bare {
		data, err := json.Marshal(seq.Frames)
		if err != nil {
			log.Fatalf("failed to encode frames: %v", err)
		}
		if err := (fsutil.OSFileSystem{}).WriteFile(*output, data, 0644); err != nil {
			log.Fatalf("failed to write %s: %v", *output, err)
		}
	} else if err := pose.SaveFile(fsutil.OSFileSystem{}, *output, seq); err != nil {
		log.Fatalf("failed to write %s: %v", *output, err)
	}
	log.Printf("✓ Created: %s (%d frames at %d fps)", *output, seq.Len(), seq.FPS)
}
