// Package rpc exposes playback control over gRPC. Messages are protobuf
// well-known types so no generated code is needed.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "posereplay.v1.PlaybackService"

const (
	methodPlay        = "/" + ServiceName + "/Play"
	methodPause       = "/" + ServiceName + "/Pause"
	methodSeek        = "/" + ServiceName + "/Seek"
	methodStep        = "/" + ServiceName + "/Step"
	methodStatus      = "/" + ServiceName + "/Status"
	methodWatchFrames = "/" + ServiceName + "/WatchFrames"
)

// PlaybackServer is the server API for the playback service.
type PlaybackServer interface {
	Play(context.Context, *wrapperspb.BoolValue) (*structpb.Struct, error)
	Pause(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Seek(context.Context, *wrapperspb.Int64Value) (*structpb.Struct, error)
	Step(context.Context, *wrapperspb.Int64Value) (*structpb.Struct, error)
	Status(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	WatchFrames(*emptypb.Empty, grpc.ServerStream) error
}

// RegisterPlaybackServer registers srv on s.
func RegisterPlaybackServer(s grpc.ServiceRegistrar, srv PlaybackServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// unary adapts one typed method to a grpc.MethodDesc handler.
func unary[Req any, PReq interface{ *Req }](fullMethod string, call func(PlaybackServer, context.Context, PReq) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := PReq(new(Req))
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(PlaybackServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(PlaybackServer), ctx, req.(PReq))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func watchFramesHandler(srv interface{}, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(PlaybackServer).WatchFrames(in, stream)
}

// ServiceDesc describes the playback service for grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PlaybackServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Play", Handler: unary(methodPlay, PlaybackServer.Play)},
		{MethodName: "Pause", Handler: unary(methodPause, PlaybackServer.Pause)},
		{MethodName: "Seek", Handler: unary(methodSeek, PlaybackServer.Seek)},
		{MethodName: "Step", Handler: unary(methodStep, PlaybackServer.Step)},
		{MethodName: "Status", Handler: unary(methodStatus, PlaybackServer.Status)},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchFrames",
			Handler:       watchFramesHandler,
			ServerStreams: true,
		},
	},
}
