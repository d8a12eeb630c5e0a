package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:     "resolve <conflict-id>",
	Short:   "Mark a conflict resolved",
	GroupID: "workflow",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conflict, err := meshClient.Resolve(context.Background(), args[0], actor)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if jsonOutput {
			printJSON(conflict)
		} else {
			fmt.Printf("Resolved %s\n", conflict.ID)
		}
		return nil
	},
}

var ignoreCmd = &cobra.Command{
	Use:     "ignore <conflict-id>",
	Short:   "Mark a conflict ignored",
	GroupID: "workflow",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conflict, err := meshClient.Ignore(context.Background(), args[0], actor)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if jsonOutput {
			printJSON(conflict)
		} else {
			fmt.Printf("Ignored %s\n", conflict.ID)
		}
		return nil
	},
}
