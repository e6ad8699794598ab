package main

import (
	"context"
	"time"

	protov1 "github.com/TonyRHouston/libp2p-relay/api/v1"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the current relay status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			conn, err := dial()
			if err != nil {
				return err
			}
			defer conn.Close()

			return watch(ctx, protov1.NewStatusBridgeClient(conn), "", 1, func(payload string) error {
				return render(cmd.OutOrStdout(), payload, raw)
			})
		},
	}
	cmd.Flags().BoolVar(&raw, "json", false, "print the raw JSON snapshot")
	return cmd
}
