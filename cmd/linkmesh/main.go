package main

import (
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rankforge/linkmesh/internal/client"
	"github.com/rankforge/linkmesh/internal/ui"
)

var (
	serverURL  string
	authToken  string
	jsonOutput bool
	actor      string

	meshClient client.ConflictsClient
)

func defaultActor() string {
	out, err := exec.Command("git", "config", "user.name").Output()
	if err == nil {
		name := strings.TrimSpace(string(out))
		if name != "" {
			return name
		}
	}
	return "unknown"
}

func defaultServerURL() string {
	if s := os.Getenv("LINKMESH_URL"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

var rootCmd = &cobra.Command{
	Use:   "linkmesh <command>",
	Short: "CLI client for the linkmesh conflict service",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		meshClient = client.NewHTTPClient(serverURL, authToken)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if meshClient != nil {
			meshClient.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServerURL(), "server URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("LINKMESH_TOKEN"), "bearer token for the server")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", defaultActor(), "actor name recorded on lifecycle changes")

	rootCmd.AddGroup(
		&cobra.Group{ID: "conflicts", Title: "Conflicts:"},
		&cobra.Group{ID: "workflow", Title: "Workflows:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false

	// Conflicts
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(metricsCmd)

	// Workflows
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(ignoreCmd)
	rootCmd.AddCommand(optimizeCmd)
	rootCmd.AddCommand(optimizeAllCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthCmd)
}

func main() {
	if !ui.ShouldUseColor() {
		ui.ForceNoColor()
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
