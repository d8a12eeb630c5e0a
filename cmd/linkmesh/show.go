package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:     "show <conflict-id>",
	Short:   "Show a conflict",
	GroupID: "conflicts",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		withEvents, _ := cmd.Flags().GetBool("events")

		conflict, err := meshClient.GetConflict(context.Background(), args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if jsonOutput && !withEvents {
			printJSON(conflict)
			return nil
		}

		if withEvents {
			events, err := meshClient.GetEvents(context.Background(), args[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			if jsonOutput {
				printJSON(map[string]any{"conflict": conflict, "events": events})
				return nil
			}
			printConflictTable(conflict)
			printEvents(events)
			return nil
		}

		printConflictTable(conflict)
		return nil
	},
}

func init() {
	showCmd.Flags().Bool("events", false, "include the audit trail")
}
