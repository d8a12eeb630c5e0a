package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rankforge/linkmesh/internal/client"
	"github.com/rankforge/linkmesh/internal/model"
	"github.com/rankforge/linkmesh/internal/ui"
)

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func printConflictTable(c *model.Conflict) {
	fmt.Printf("ID:          %s\n", c.ID)
	fmt.Printf("Network:     %s\n", c.NetworkID)
	fmt.Printf("Type:        %s\n", c.Type)
	fmt.Printf("Severity:    %s\n", ui.RenderSeverity(c.Severity))
	fmt.Printf("Status:      %s\n", ui.RenderStatus(c.Status))
	fmt.Printf("Node A:      %s\n", c.NodeAID)
	if c.NodeBID != "" {
		fmt.Printf("Node B:      %s\n", c.NodeBID)
	}
	if len(c.Members) > 0 {
		fmt.Printf("Members:     %s\n", strings.Join(c.Members, ", "))
	}
	if c.Detail != "" {
		fmt.Printf("Detail:      %s\n", c.Detail)
	}
	fmt.Printf("Detected At: %s\n", c.DetectedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Detected By: %s\n", c.DetectedBy)
	if c.ResolvedAt != nil {
		fmt.Printf("Resolved At: %s\n", c.ResolvedAt.Format("2006-01-02 15:04:05"))
	}
	if c.ResolvedBy != "" {
		fmt.Printf("Resolved By: %s\n", c.ResolvedBy)
	}
	if c.RecurrenceCount > 0 {
		fmt.Printf("Recurrence:  %d (prior %s)\n", c.RecurrenceCount, c.PriorConflictID)
	}
	if c.LinkedOptimizationID != "" {
		fmt.Printf("Task:        %s\n", c.LinkedOptimizationID)
	}
}

func printConflictListTable(conflicts []*model.Conflict, total int) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNETWORK\tTYPE\tSEVERITY\tSTATUS\tDETECTED\tDETAIL")
	for _, c := range conflicts {
		detail := c.Detail
		if len(detail) > 50 {
			detail = detail[:47] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			c.ID,
			c.NetworkID,
			c.Type,
			ui.RenderSeverity(c.Severity),
			ui.RenderStatus(c.Status),
			c.DetectedAt.Format("2006-01-02 15:04"),
			detail,
		)
	}
	w.Flush()
	fmt.Printf("\n%d conflicts (%d total)\n", len(conflicts), total)
}

func printEvents(events []*model.AuditEvent) {
	if len(events) == 0 {
		return
	}
	fmt.Println()
	fmt.Println("Events:")
	for _, e := range events {
		fmt.Printf("  [%s] %s %s\n",
			e.CreatedAt.Format("2006-01-02 15:04:05"),
			e.Topic,
			ui.RenderMuted("by "+e.Actor),
		)
	}
}

func printSummaries(resp *client.DetectResponse) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NETWORK\tCANDIDATES\tNEW\tRECURRED\tSKIPPED")
	for _, s := range resp.Summaries {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n",
			s.NetworkID, s.Candidates, s.Created, s.Recurrences, s.SkippedOpen)
	}
	w.Flush()
	for _, s := range resp.Summaries {
		for _, warn := range s.Warnings {
			fmt.Printf("warning: %s: %s\n", s.NetworkID, warn)
		}
	}
	for _, e := range resp.Errors {
		fmt.Fprintf(os.Stderr, "error: %s: %s\n", e.NetworkID, e.Error)
	}
}

func printMetricsTable(m *model.ConflictMetrics) {
	fmt.Printf("Window:            last %d days", m.WindowDays)
	if m.NetworkID != "" {
		fmt.Printf(" (network %s)", m.NetworkID)
	}
	fmt.Println()
	fmt.Printf("Total conflicts:   %d\n", m.TotalConflicts)
	fmt.Printf("Resolved:          %d\n", m.ResolvedCount)
	fmt.Printf("Open:              %d\n", m.OpenCount)
	fmt.Printf("Resolution rate:   %.1f%%\n", m.ResolutionRate)
	fmt.Printf("Avg time to fix:   %.1fh\n", m.AvgResolutionTimeHours)
	fmt.Printf("Recurring:         %d\n", m.RecurringConflicts)
	fmt.Printf("Critical (>7d):    %d\n", m.CriticalCount)
	fmt.Printf("False resolutions: %.1f%%\n", m.FalseResolutionRate)

	if len(m.BySeverity) > 0 {
		fmt.Println()
		fmt.Println("By severity:")
		for _, sev := range []model.Severity{model.SeverityCritical, model.SeverityHigh, model.SeverityMedium, model.SeverityLow} {
			if b, ok := m.BySeverity[string(sev)]; ok {
				fmt.Printf("  %-10s %d total, %d resolved\n", ui.RenderSeverity(sev), b.Total, b.Resolved)
			}
		}
	}

	if len(m.ByType) > 0 {
		fmt.Println()
		fmt.Println("By type:")
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for name, b := range m.ByType {
			fmt.Fprintf(w, "  %s\t%d total\t%d resolved\n", name, b.Total, b.Resolved)
		}
		w.Flush()
	}

	if len(m.ByResolver) > 0 {
		fmt.Println()
		fmt.Println("Top resolvers:")
		for _, r := range m.ByResolver {
			fmt.Printf("  %-20s %d\n", r.Resolver, r.Count)
		}
	}

	fmt.Println()
	fmt.Printf("Open age: <=3d %d, <=7d %d, <=14d %d, <=30d %d, older %d\n",
		m.OpenAge.Days0to3, m.OpenAge.Days4to7, m.OpenAge.Days8to14, m.OpenAge.Days15to30, m.OpenAge.Over30)
}
