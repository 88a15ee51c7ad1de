package rpc

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/banshee-data/pose-replay/internal/monitoring"
	"github.com/banshee-data/pose-replay/internal/playback"
)

var logf = monitoring.Tagged("gRPC")

// subscriberBuffer is the number of frame events queued per watcher before
// new events are dropped for it.
const subscriberBuffer = 64

// Ensure Server implements the gRPC interface.
var _ PlaybackServer = (*Server)(nil)

// Server implements PlaybackServer over a playback controller and fans
// applied frames out to WatchFrames subscribers.
type Server struct {
	ctl *playback.Controller

	mu      sync.Mutex
	subs    map[chan *structpb.Struct]struct{}
	dropped uint64

	server   *grpc.Server
	listener net.Listener
	running  atomic.Bool
	wg       sync.WaitGroup
}

// NewServer creates a Server for ctl. Frame events reach watchers only
// through Publish, which the caller wires to the controller.
func NewServer(ctl *playback.Controller) *Server {
	return &Server{
		ctl:  ctl,
		subs: make(map[chan *structpb.Struct]struct{}),
	}
}

// Listen binds addr and starts serving in the background.
func (s *Server) Listen(addr string) error {
	logf("attempting to bind to %s...", addr)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.Start(lis)
}

// Start serves on lis in the background until Stop.
func (s *Server) Start(lis net.Listener) error {
	if s.running.Load() {
		return fmt.Errorf("gRPC server already running")
	}
	s.listener = lis
	s.server = grpc.NewServer()
	RegisterPlaybackServer(s.server, s)
	s.running.Store(true)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		logf("listening on %s", lis.Addr())
		if err := s.server.Serve(lis); err != nil && s.running.Load() {
			logf("server error: %v", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop ends every watch stream and gracefully stops the server.
func (s *Server) Stop() {
	if !s.running.Load() {
		return
	}
	s.running.Store(false)

	s.mu.Lock()
	for ch := range s.subs {
		close(ch)
		delete(s.subs, ch)
	}
	s.mu.Unlock()

	s.server.GracefulStop()
	s.wg.Wait()
	logf("server stopped")
}

// Publish queues ev for every watcher. Watchers that are behind miss it.
func (s *Server) Publish(ev playback.FrameEvent) {
	msg, err := frameEventStruct(ev)
	if err != nil {
		logf("failed to encode frame event: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- msg:
		default:
			s.dropped++
		}
	}
}

// Dropped returns the number of events discarded for slow watchers.
func (s *Server) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Watchers returns the number of open WatchFrames streams.
func (s *Server) Watchers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// subscribe returns nil once Stop has begun.
func (s *Server) subscribe() chan *structpb.Struct {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running.Load() {
		return nil
	}
	ch := make(chan *structpb.Struct, subscriberBuffer)
	s.subs[ch] = struct{}{}
	return ch
}

func (s *Server) unsubscribe(ch chan *structpb.Struct) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[ch]; ok {
		delete(s.subs, ch)
		close(ch)
	}
}

// Play starts playback; a true value restarts from frame 0.
func (s *Server) Play(ctx context.Context, req *wrapperspb.BoolValue) (*structpb.Struct, error) {
	s.ctl.Start(req.GetValue())
	return s.status()
}

// Pause stops playback at the current frame.
func (s *Server) Pause(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	s.ctl.Stop()
	return s.status()
}

// Seek stops playback and applies the requested frame.
func (s *Server) Seek(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	if req.GetValue() < 0 {
		return nil, status.Errorf(codes.InvalidArgument, "frame must be >= 0, got %d", req.GetValue())
	}
	s.ctl.Stop()
	s.ctl.GotoFrame(int(req.GetValue()))
	return s.status()
}

// Step stops playback and moves by the requested number of frames.
func (s *Server) Step(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	s.ctl.Stop()
	s.ctl.Step(int(req.GetValue()))
	return s.status()
}

// Status reports the controller state.
func (s *Server) Status(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	return s.status()
}

// WatchFrames streams every applied frame until the client goes away or the
// server stops.
func (s *Server) WatchFrames(req *emptypb.Empty, stream grpc.ServerStream) error {
	ch := s.subscribe()
	if ch == nil {
		return status.Error(codes.Unavailable, "server shutting down")
	}
	defer s.unsubscribe(ch)
	logf("watcher connected")

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			logf("watcher disconnected")
			return nil
		case msg, ok := <-ch:
			if !ok {
				return status.Error(codes.Unavailable, "server shutting down")
			}
			if err := stream.SendMsg(msg); err != nil {
				return err
			}
		}
	}
}

func (s *Server) status() (*structpb.Struct, error) {
	st, err := statusStruct(s.ctl.Status())
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode status: %v", err)
	}
	return st, nil
}

func statusStruct(st playback.Status) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"current_index": st.CurrentIndex,
		"is_playing":    st.Playing,
		"frame_count":   st.FrameCount,
		"fps":           st.FPS,
		"delay_ms":      st.DelayMillis,
		"scale":         st.Scale,
	})
}

func frameEventStruct(ev playback.FrameEvent) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"index":      ev.Index,
		"frame":      ev.Ordinal,
		"source":     string(ev.Source),
		"finished":   ev.Finished,
		"landmarks":  ev.Stats.Landmarks,
		"rotated":    ev.Stats.Rotated,
		"positioned": ev.Stats.Positioned,
		"skipped":    ev.Stats.Landmarks - ev.Stats.Applied(),
	})
}
