// Package api is the HTTP presentation layer over the playback controller,
// the live skeleton and the sequence store.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/banshee-data/pose-replay/internal/jointmap"
	"github.com/banshee-data/pose-replay/internal/metrics"
	"github.com/banshee-data/pose-replay/internal/monitoring"
	"github.com/banshee-data/pose-replay/internal/playback"
	"github.com/banshee-data/pose-replay/internal/pose"
	"github.com/banshee-data/pose-replay/internal/skeleton"
	"github.com/banshee-data/pose-replay/internal/store"
)

var logf = monitoring.Tagged("API")

// SequenceStore is the persistence the sequence endpoints need.
// *store.Store implements it.
type SequenceStore interface {
	SaveSequence(ctx context.Context, name, source string, seq *pose.Sequence) (store.SequenceInfo, error)
	ListSequences(ctx context.Context) ([]store.SequenceInfo, error)
	GetSequenceInfo(ctx context.Context, id string) (store.SequenceInfo, error)
	LoadSequence(ctx context.Context, id string) (*pose.Sequence, error)
	DeleteSequence(ctx context.Context, id string) error
}

// Server wires HTTP routes to the controller. Store and Metrics are
// optional; without a store the sequence library answers 503.
type Server struct {
	ctl     *playback.Controller
	rig     *skeleton.Rig
	joints  *jointmap.JointMap
	store   SequenceStore
	metrics *metrics.Metrics
}

// NewServer creates a Server. rig must be the skeleton ctl drives.
func NewServer(ctl *playback.Controller, rig *skeleton.Rig, joints *jointmap.JointMap, st SequenceStore, m *metrics.Metrics) *Server {
	return &Server{
		ctl:     ctl,
		rig:     rig,
		joints:  joints,
		store:   st,
		metrics: m,
	}
}

// Router returns the chi router serving every API route.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(LoggingMiddleware)
	if s.metrics != nil {
		r.Use(metrics.RequestMiddleware(s.metrics))
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler(func() {
			s.metrics.SetStatus(s.ctl.Status())
		}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/info", s.handleInfo)

		r.Route("/playback", func(r chi.Router) {
			r.Get("/", s.handlePlaybackStatus)
			r.Post("/play", s.handlePlay)
			r.Post("/pause", s.handlePause)
			r.Post("/toggle", s.handleToggle)
			r.Post("/prev", s.handlePrev)
			r.Post("/next", s.handleNext)
			r.Post("/seek", s.handleSeek)
		})

		r.Get("/skeleton", s.handleSkeleton)
		r.Post("/skeleton/reset", s.handleSkeletonReset)
		r.Get("/joint-map", s.handleJointMap)

		r.Get("/sequence", s.handleSequence)
		r.Get("/sequence/chart", s.handleSequenceChart)
		r.Get("/sequence/plot", s.handleSequencePlot)

		r.Get("/sequences", s.handleListSequences)
		r.Post("/sequences", s.handleCreateSequence)
		r.Post("/sequences/{id}/load", s.handleLoadSequence)
		r.Delete("/sequences/{id}", s.handleDeleteSequence)
	})
	return r
}

// ANSI escape codes used by LoggingMiddleware.
const (
	colorCyan      = "\033[36m"
	colorReset     = "\033[0m"
	colorYellow    = "\033[33m"
	colorBoldGreen = "\033[1;32m"
	colorBoldRed   = "\033[1;31m"
)

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, status and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		logf("%s %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}
