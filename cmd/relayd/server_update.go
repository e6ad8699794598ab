package main

import (
	"context"

	protov1 "github.com/TonyRHouston/libp2p-relay/api/v1"
	"github.com/TonyRHouston/libp2p-relay/pkg/lib/bridge"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type StatusBridgeServer struct {
	protov1.UnimplementedStatusBridgeServer
	bridge *bridge.Bridge
}

func NewStatusBridgeServer(b *bridge.Bridge) *StatusBridgeServer {
	return &StatusBridgeServer{bridge: b}
}

// Update streams snapshots for the requested channel. The channel defaults to
// the update channel and may be named by the x-channel request header.
func (s *StatusBridgeServer) Update(_ *emptypb.Empty, stream grpc.ServerStreamingServer[wrapperspb.StringValue]) error {
	ctx := stream.Context()
	consumer, _ := consumerFromContext(ctx)

	sub, err := s.bridge.Subscribe(ctx, requestedChannel(ctx), consumer)
	if err != nil {
		return toStatusError(err)
	}
	defer sub.Close()

	header := metadata.Pairs(protov1.HeaderRequestID, sub.ID, protov1.HeaderChannel, sub.Channel)
	if err := stream.SendHeader(header); err != nil {
		return err
	}

	for reply := range sub.C() {
		if err := stream.Send(wrapperspb.String(string(reply.Payload))); err != nil {
			return err
		}
	}
	if err := sub.Err(); err != nil {
		log.Error().Err(err).Str("request_id", sub.ID).Msg("status stream failed")
		return status.Errorf(codes.Internal, "status stream failed: %v", err)
	}
	return nil
}

func requestedChannel(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return bridge.ChannelUpdate
	}
	if v := md.Get(protov1.HeaderChannel); len(v) > 0 && v[0] != "" {
		return v[0]
	}
	return bridge.ChannelUpdate
}

func toStatusError(err error) error {
	switch {
	case errors.Is(err, bridge.ErrUnknownChannel):
		return status.Errorf(codes.NotFound, "%v", err)
	case errors.Is(err, bridge.ErrShuttingDown):
		return status.Error(codes.Unavailable, "relay is shutting down")
	default:
		return status.Errorf(codes.Internal, "subscribe: %v", err)
	}
}
