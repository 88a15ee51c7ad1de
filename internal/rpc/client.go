package rpc

import (
	"context"
	"errors"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Status is the decoded form of the status struct every control call returns.
type Status struct {
	CurrentIndex int
	Playing      bool
	FrameCount   int
	FPS          int
	DelayMillis  int64
	Scale        float64
}

// Frame is the decoded form of one WatchFrames message.
type Frame struct {
	Index      int
	Ordinal    int
	Source     string
	Finished   bool
	Landmarks  int
	Rotated    int
	Positioned int
	Skipped    int
}

// Client is a typed client for the playback service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) call(ctx context.Context, method string, in interface{}) (Status, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out); err != nil {
		return Status{}, err
	}
	return decodeStatus(out), nil
}

// Play starts playback.
func (c *Client) Play(ctx context.Context, fromBeginning bool) (Status, error) {
	return c.call(ctx, methodPlay, wrapperspb.Bool(fromBeginning))
}

// Pause stops playback.
func (c *Client) Pause(ctx context.Context) (Status, error) {
	return c.call(ctx, methodPause, &emptypb.Empty{})
}

// Seek jumps to frame.
func (c *Client) Seek(ctx context.Context, frame int) (Status, error) {
	return c.call(ctx, methodSeek, wrapperspb.Int64(int64(frame)))
}

// Step moves delta frames.
func (c *Client) Step(ctx context.Context, delta int) (Status, error) {
	return c.call(ctx, methodStep, wrapperspb.Int64(int64(delta)))
}

// Status fetches the controller state.
func (c *Client) Status(ctx context.Context) (Status, error) {
	return c.call(ctx, methodStatus, &emptypb.Empty{})
}

// WatchFrames calls fn for every streamed frame until ctx is cancelled, the
// server ends the stream, or fn returns an error.
func (c *Client) WatchFrames(ctx context.Context, fn func(Frame) error) error {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], methodWatchFrames)
	if err != nil {
		return err
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}
	for {
		msg := new(structpb.Struct)
		if err := stream.RecvMsg(msg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if err := fn(decodeFrame(msg)); err != nil {
			return fmt.Errorf("frame handler: %w", err)
		}
	}
}

func number(s *structpb.Struct, key string) float64 {
	return s.GetFields()[key].GetNumberValue()
}

func decodeStatus(s *structpb.Struct) Status {
	return Status{
		CurrentIndex: int(number(s, "current_index")),
		Playing:      s.GetFields()["is_playing"].GetBoolValue(),
		FrameCount:   int(number(s, "frame_count")),
		FPS:          int(number(s, "fps")),
		DelayMillis:  int64(number(s, "delay_ms")),
		Scale:        number(s, "scale"),
	}
}

func decodeFrame(s *structpb.Struct) Frame {
	return Frame{
		Index:      int(number(s, "index")),
		Ordinal:    int(number(s, "frame")),
		Source:     s.GetFields()["source"].GetStringValue(),
		Finished:   s.GetFields()["finished"].GetBoolValue(),
		Landmarks:  int(number(s, "landmarks")),
		Rotated:    int(number(s, "rotated")),
		Positioned: int(number(s, "positioned")),
		Skipped:    int(number(s, "skipped")),
	}
}
