package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	protov1 "github.com/TonyRHouston/libp2p-relay/api/v1"
	"github.com/TonyRHouston/libp2p-relay/pkg/lib"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
)

func newWatchCmd() *cobra.Command {
	var (
		raw     bool
		channel string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream status snapshots until the relay shuts down",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			conn, err := dial()
			if err != nil {
				return err
			}
			defer conn.Close()

			return watch(ctx, protov1.NewStatusBridgeClient(conn), channel, -1, func(payload string) error {
				return render(cmd.OutOrStdout(), payload, raw)
			})
		},
	}
	cmd.Flags().BoolVar(&raw, "json", false, "print the raw JSON snapshots")
	cmd.Flags().StringVar(&channel, "channel", "", "channel to subscribe to (server default when empty)")
	return cmd
}

// watch subscribes and hands each payload to fn. It stops after limit
// payloads when limit is positive, or when the server ends the stream.
func watch(ctx context.Context, client protov1.StatusBridgeClient, channel string, limit int, fn func(payload string) error) error {
	if channel != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, protov1.HeaderChannel, channel)
	}

	stream, err := client.Update(ctx, &emptypb.Empty{})
	if err != nil {
		return describe(err)
	}

	for n := 0; limit <= 0 || n < limit; n++ {
		msg, err := stream.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return describe(err)
		}
		if err := fn(msg.GetValue()); err != nil {
			return err
		}
	}
	return nil
}

func render(w io.Writer, payload string, raw bool) error {
	if raw {
		_, err := fmt.Fprintln(w, payload)
		return err
	}
	var snap lib.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return errors.Wrap(err, "decode snapshot")
	}
	printSnapshot(w, snap)
	return nil
}

func describe(err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return errors.New("unknown channel")
	case codes.Unavailable:
		return errors.New("relay is not reachable or shutting down")
	}
	return err
}
