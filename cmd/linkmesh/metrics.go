package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var metricsCmd = &cobra.Command{
	Use:     "metrics",
	Short:   "Show windowed conflict metrics",
	GroupID: "conflicts",
	RunE: func(cmd *cobra.Command, args []string) error {
		networkID, _ := cmd.Flags().GetString("network")
		days, _ := cmd.Flags().GetInt("days")

		m, err := meshClient.Metrics(context.Background(), networkID, days)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if jsonOutput {
			printJSON(m)
		} else {
			printMetricsTable(m)
		}
		return nil
	},
}

func init() {
	metricsCmd.Flags().StringP("network", "n", "", "restrict to one network")
	metricsCmd.Flags().Int("days", 0, "window size in days (default 30)")
}
