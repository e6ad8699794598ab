package main

import "github.com/spf13/cobra"

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "relayctl",
		Short:         "Relay status client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newStatusCmd())
	root.AddCommand(newWatchCmd())

	return root
}
