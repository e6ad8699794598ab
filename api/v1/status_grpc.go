// Package protov1 holds the gRPC contract of the relay status bridge. The
// service is described in status.proto; messages are protobuf well-known
// types, so only the service bindings live here.
package protov1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	StatusBridge_ServiceName           = "relay.v1.StatusBridge"
	StatusBridge_Update_FullMethodName = "/relay.v1.StatusBridge/Update"
)

// Header keys sent by the server before the first reply of a stream.
const (
	HeaderRequestID = "x-request-id"
	HeaderChannel   = "x-channel"
)

// StatusBridgeClient is the client API for the StatusBridge service.
type StatusBridgeClient interface {
	Update(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[wrapperspb.StringValue], error)
}

type statusBridgeClient struct {
	cc grpc.ClientConnInterface
}

func NewStatusBridgeClient(cc grpc.ClientConnInterface) StatusBridgeClient {
	return &statusBridgeClient{cc}
}

func (c *statusBridgeClient) Update(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[wrapperspb.StringValue], error) {
	cOpts := append([]grpc.CallOption{grpc.StaticMethod()}, opts...)
	stream, err := c.cc.NewStream(ctx, &StatusBridge_ServiceDesc.Streams[0], StatusBridge_Update_FullMethodName, cOpts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[emptypb.Empty, wrapperspb.StringValue]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// StatusBridgeServer is the server API for the StatusBridge service.
// Implementations must embed UnimplementedStatusBridgeServer.
type StatusBridgeServer interface {
	Update(*emptypb.Empty, grpc.ServerStreamingServer[wrapperspb.StringValue]) error
	mustEmbedUnimplementedStatusBridgeServer()
}

// UnimplementedStatusBridgeServer must be embedded by value.
type UnimplementedStatusBridgeServer struct{}

func (UnimplementedStatusBridgeServer) Update(*emptypb.Empty, grpc.ServerStreamingServer[wrapperspb.StringValue]) error {
	return status.Errorf(codes.Unimplemented, "method Update not implemented")
}
func (UnimplementedStatusBridgeServer) mustEmbedUnimplementedStatusBridgeServer() {}

func RegisterStatusBridgeServer(s grpc.ServiceRegistrar, srv StatusBridgeServer) {
	s.RegisterService(&StatusBridge_ServiceDesc, srv)
}

func _StatusBridge_Update_Handler(srv any, stream grpc.ServerStream) error {
	m := new(emptypb.Empty)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(StatusBridgeServer).Update(m, &grpc.GenericServerStream[emptypb.Empty, wrapperspb.StringValue]{ServerStream: stream})
}

// StatusBridge_ServiceDesc is the grpc.ServiceDesc for the StatusBridge service.
var StatusBridge_ServiceDesc = grpc.ServiceDesc{
	ServiceName: StatusBridge_ServiceName,
	HandlerType: (*StatusBridgeServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Update",
			Handler:       _StatusBridge_Update_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "api/v1/status.proto",
}
