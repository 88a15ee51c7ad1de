package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/banshee-data/pose-replay/internal/httputil"
	"github.com/banshee-data/pose-replay/internal/pose"
	"github.com/banshee-data/pose-replay/internal/report"
	"github.com/banshee-data/pose-replay/internal/skeleton"
	"github.com/banshee-data/pose-replay/internal/store"
	"github.com/banshee-data/pose-replay/internal/version"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]string{"status": "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]string{
		"service":    "pose-replay",
		"version":    version.Version,
		"git_sha":    version.GitSHA,
		"build_time": version.BuildTime,
	})
}

// Playback

func (s *Server) writeStatus(w http.ResponseWriter) {
	httputil.WriteJSONOK(w, s.ctl.Status())
}

func (s *Server) handlePlaybackStatus(w http.ResponseWriter, r *http.Request) {
	s.writeStatus(w)
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	fromBeginning, err := httputil.QueryBool(r, "from_beginning", true)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	s.ctl.Start(fromBeginning)
	s.writeStatus(w)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.ctl.Stop()
	s.writeStatus(w)
}

// handleToggle asks the controller for the play state rather than tracking
// it here, so playback that finished on its own toggles back to play.
func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	if s.ctl.IsPlaying() {
		s.ctl.Stop()
	} else {
		s.ctl.Start(true)
	}
	s.writeStatus(w)
}

func (s *Server) handlePrev(w http.ResponseWriter, r *http.Request) {
	s.ctl.Stop()
	s.ctl.Step(-1)
	s.writeStatus(w)
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	s.ctl.Stop()
	s.ctl.Step(1)
	s.writeStatus(w)
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("frame") == "" {
		httputil.BadRequest(w, "missing 'frame' parameter")
		return
	}
	frame, err := httputil.QueryInt(r, "frame", 0)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	s.ctl.Stop()
	s.ctl.GotoFrame(frame)
	s.writeStatus(w)
}

// Skeleton

type jointResponse struct {
	Joint    skeleton.JointID `json:"joint"`
	Parent   skeleton.JointID `json:"parent,omitempty"`
	Position [3]float64       `json:"position"`
	Rotation [4]float64       `json:"rotation"` // w, x, y, z
}

func quatArray(q mgl64.Quat) [4]float64 {
	return [4]float64{q.W, q.V[0], q.V[1], q.V[2]}
}

func (s *Server) handleSkeleton(w http.ResponseWriter, r *http.Request) {
	world := s.rig.WorldTransforms()
	out := make([]jointResponse, 0, len(world))
	for _, id := range s.rig.Joints() {
		tr := world[id]
		parent, _ := s.rig.Parent(id)
		out = append(out, jointResponse{
			Joint:    id,
			Parent:   parent,
			Position: [3]float64(tr.Position),
			Rotation: quatArray(tr.Rotation),
		})
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"root":   s.rig.Root(),
		"joints": out,
	})
}

func (s *Server) handleSkeletonReset(w http.ResponseWriter, r *http.Request) {
	s.ctl.Stop()
	s.rig.Reset()
	logf("skeleton reset to bind pose")
	s.handleSkeleton(w, r)
}

func (s *Server) handleJointMap(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, s.joints.Entries())
}

// Bound sequence

func (s *Server) boundSequence(w http.ResponseWriter) (*pose.Sequence, bool) {
	seq := s.ctl.Sequence()
	if seq.Len() == 0 {
		httputil.NotFound(w, "no sequence loaded")
		return nil, false
	}
	return seq, true
}

func (s *Server) handleSequence(w http.ResponseWriter, r *http.Request) {
	seq, ok := s.boundSequence(w)
	if !ok {
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"status":  s.ctl.Status(),
		"summary": pose.Summarize(seq),
	})
}

func parseIDs(raw string) ([]int, error) {
	if raw == "" {
		return nil, nil
	}
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

func (s *Server) handleSequenceChart(w http.ResponseWriter, r *http.Request) {
	seq, ok := s.boundSequence(w)
	if !ok {
		return
	}
	ids, err := parseIDs(r.URL.Query().Get("ids"))
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.WriteVisibilityChart(w, seq, ids); err != nil {
		logf("chart render failed: %v", err)
	}
}

func (s *Server) handleSequencePlot(w http.ResponseWriter, r *http.Request) {
	seq, ok := s.boundSequence(w)
	if !ok {
		return
	}
	if r.URL.Query().Get("landmark") == "" {
		httputil.BadRequest(w, "missing 'landmark' parameter")
		return
	}
	id, err := httputil.QueryInt(r, "landmark", 0)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	p, err := report.TrajectoryPlot(seq, id)
	if errors.Is(err, report.ErrNoData) {
		httputil.NotFound(w, err.Error())
		return
	}
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	wt, err := p.WriterTo(report.PlotWidth, report.PlotHeight, "png")
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if _, err := wt.WriteTo(w); err != nil {
		logf("plot write failed: %v", err)
	}
}

// Sequence library

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "sequence store not configured")
		return false
	}
	return true
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		httputil.NotFound(w, err.Error())
		return
	}
	logf("store error: %v", err)
	httputil.InternalServerError(w, err.Error())
}

func (s *Server) handleListSequences(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	list, err := s.store.ListSequences(r.Context())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	httputil.WriteJSONOK(w, list)
}

func (s *Server) handleCreateSequence(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		httputil.BadRequest(w, "missing 'name' parameter")
		return
	}

	body := io.LimitReader(r.Body, pose.MaxFileSize+1)
	seq, err := pose.Decode(body)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if seq.Len() == 0 {
		httputil.BadRequest(w, pose.ErrEmptySequence.Error())
		return
	}

	info, err := s.store.SaveSequence(r.Context(), name, "api", seq)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, info)
}

func (s *Server) handleLoadSequence(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	id := chi.URLParam(r, "id")
	seq, err := s.store.LoadSequence(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.ctl.Bind(seq)
	logf("bound stored sequence %s", id)
	s.writeStatus(w)
}

func (s *Server) handleDeleteSequence(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	if err := s.store.DeleteSequence(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
