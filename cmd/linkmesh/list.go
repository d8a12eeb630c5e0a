package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rankforge/linkmesh/internal/client"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List stored conflicts",
	GroupID: "conflicts",
	RunE: func(cmd *cobra.Command, args []string) error {
		networkID, _ := cmd.Flags().GetString("network")
		status, _ := cmd.Flags().GetStringSlice("status")
		conflictType, _ := cmd.Flags().GetStringSlice("type")
		severity, _ := cmd.Flags().GetStringSlice("severity")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		resp, err := meshClient.ListStored(context.Background(), &client.ListConflictsRequest{
			NetworkID: networkID,
			Status:    status,
			Type:      conflictType,
			Severity:  severity,
			Limit:     limit,
			Offset:    offset,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if jsonOutput {
			printJSON(resp.Conflicts)
		} else {
			printConflictListTable(resp.Conflicts, resp.Total)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringP("network", "n", "", "filter by network")
	listCmd.Flags().StringSliceP("status", "s", nil, "filter by status (repeatable)")
	listCmd.Flags().StringSliceP("type", "t", nil, "filter by conflict type (repeatable)")
	listCmd.Flags().StringSlice("severity", nil, "filter by severity (repeatable)")
	listCmd.Flags().Int("limit", 20, "maximum number of conflicts to return")
	listCmd.Flags().Int("offset", 0, "offset for pagination")
}
