package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var detectCmd = &cobra.Command{
	Use:     "detect [network-id]",
	Short:   "Run conflict detection over one network, or all networks",
	GroupID: "conflicts",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		networkID := ""
		if len(args) > 0 {
			networkID = args[0]
		}

		resp, err := meshClient.Detect(context.Background(), networkID, actor)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if jsonOutput {
			printJSON(resp)
		} else {
			printSummaries(resp)
		}
		return nil
	},
}
