package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var optimizeCmd = &cobra.Command{
	Use:     "optimize <conflict-id>",
	Short:   "Open a remediation task for a conflict",
	GroupID: "workflow",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conflict, err := meshClient.CreateOptimization(context.Background(), args[0], actor)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if jsonOutput {
			printJSON(conflict)
		} else {
			fmt.Printf("Opened task %s for %s\n", conflict.LinkedOptimizationID, conflict.ID)
		}
		return nil
	},
}

var optimizeAllCmd = &cobra.Command{
	Use:     "optimize-all",
	Short:   "Open remediation tasks for every detected conflict",
	GroupID: "workflow",
	RunE: func(cmd *cobra.Command, args []string) error {
		networkID, _ := cmd.Flags().GetString("network")

		result, err := meshClient.BulkCreateOptimizations(context.Background(), networkID, actor)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if jsonOutput {
			printJSON(result)
			return nil
		}

		for _, item := range result.Items {
			if item.Error != "" {
				fmt.Fprintf(os.Stderr, "%s: %s\n", item.ConflictID, item.Error)
			} else {
				fmt.Printf("%s -> %s\n", item.ConflictID, item.OptimizationID)
			}
		}
		fmt.Printf("\n%d tasks opened, %d failed\n", result.Created, result.Failed)
		return nil
	},
}

func init() {
	optimizeAllCmd.Flags().StringP("network", "n", "", "restrict to one network")
}
