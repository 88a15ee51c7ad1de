package main

import (
	"fmt"
	"net/http"

	"github.com/banshee-data/pose-replay/internal/api"
	"github.com/banshee-data/pose-replay/internal/config"
	"github.com/banshee-data/pose-replay/internal/fsutil"
	"github.com/banshee-data/pose-replay/internal/jointmap"
	"github.com/banshee-data/pose-replay/internal/metrics"
	"github.com/banshee-data/pose-replay/internal/monitoring"
	"github.com/banshee-data/pose-replay/internal/playback"
	"github.com/banshee-data/pose-replay/internal/pose"
	"github.com/banshee-data/pose-replay/internal/retarget"
	"github.com/banshee-data/pose-replay/internal/rpc"
	"github.com/banshee-data/pose-replay/internal/skeleton"
	"github.com/banshee-data/pose-replay/internal/store"
)

var logf = monitoring.Tagged("Replay")

type appOptions struct {
	synthetic int
	noDB      bool
	fsys      fsutil.FileSystem
}

// app holds the wired components of one server process.
type app struct {
	cfg     *config.ReplayConfig
	rig     *skeleton.Rig
	joints  *jointmap.JointMap
	ctl     *playback.Controller
	metrics *metrics.Metrics
	grpc    *rpc.Server
	store   *store.Store
}

func newApp(cfg *config.ReplayConfig, opts appOptions) (*app, error) {
	fsys := opts.fsys
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}

	joints := jointmap.MediaPipe()
	if path := cfg.GetJointMapPath(); path != "" {
		loaded, err := jointmap.Load(fsys, path)
		if err != nil {
			return nil, err
		}
		joints = loaded
	}
	logf("joint map has %d entries", joints.Len())

	rig := skeleton.Humanoid()
	rt := retarget.New(joints,
		retarget.WithBlend(cfg.GetBlendFactor()),
		retarget.WithMinVisibility(cfg.GetMinVisibility()),
	)
	ctl := playback.New(rt, rig,
		playback.WithDelay(cfg.GetDelay()),
		playback.WithScale(cfg.GetPositionScale()),
	)

	a := &app{
		cfg:     cfg,
		rig:     rig,
		joints:  joints,
		ctl:     ctl,
		metrics: metrics.New(),
		grpc:    rpc.NewServer(ctl),
	}
	if err := a.metrics.RegisterWatchStats(a.grpc); err != nil {
		return nil, err
	}
	ctl.OnFrame(a.onFrame)

	if !opts.noDB && cfg.GetDBPath() != "" {
		st, err := store.Open(cfg.GetDBPath())
		if err != nil {
			return nil, err
		}
		a.store = st
	}

	seq, err := initialSequence(fsys, cfg, opts.synthetic)
	if err != nil {
		a.Close()
		return nil, err
	}
	if seq != nil {
		ctl.Bind(seq)
		logf("bound %d frames at %d fps", seq.Len(), seq.FPS)
		if cfg.GetAutoplay() {
			ctl.Start(true)
		}
	}
	return a, nil
}

func initialSequence(fsys fsutil.FileSystem, cfg *config.ReplayConfig, synthetic int) (*pose.Sequence, error) {
	if synthetic > 0 {
		return pose.NewSyntheticGenerator(pose.DefaultFPS).Sequence(synthetic), nil
	}
	path := cfg.GetSequencePath()
	if path == "" {
		return nil, nil
	}
	seq, err := pose.LoadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load sequence: %w", err)
	}
	return seq, nil
}

func (a *app) onFrame(ev playback.FrameEvent) {
	a.metrics.ObserveFrame(ev)
	a.grpc.Publish(ev)
	if ev.Finished {
		logf("playback finished at frame %d", ev.Index)
	}
}

// Handler returns the root HTTP handler: the API router plus, when a store
// is open, the tsweb debug pages.
func (a *app) Handler() (http.Handler, error) {
	var st api.SequenceStore
	if a.store != nil {
		st = a.store
	}
	router := api.NewServer(a.ctl, a.rig, a.joints, st, a.metrics).Router()

	mux := http.NewServeMux()
	mux.Handle("/", router)
	if a.store != nil {
		if err := a.store.AttachAdminRoutes(mux); err != nil {
			return nil, err
		}
	}
	return mux, nil
}

// Close stops playback and releases the store.
func (a *app) Close() {
	a.ctl.Stop()
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logf("failed to close store: %v", err)
		}
	}
}
