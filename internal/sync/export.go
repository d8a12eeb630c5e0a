package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/rankforge/linkmesh/internal/model"
	"github.com/rankforge/linkmesh/internal/store"
)

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version       string    `json:"version"`
	Type          string    `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	ConflictCount int       `json:"conflict_count"`
	EventCount    int       `json:"event_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// exportConflict is a conflict with its audit trail embedded.
type exportConflict struct {
	*model.Conflict
	Events []*model.AuditEvent `json:"events,omitempty"`
}

// ExportJSONL writes the full conflict history from the store as JSONL to w.
// Conflicts are sorted by ID and carry their audit events inline.
func ExportJSONL(ctx context.Context, s store.Store, w io.Writer) error {
	// Fetch the full history (no filter, no limit).
	conflicts, _, err := s.ListConflicts(ctx, model.ConflictFilter{})
	if err != nil {
		return fmt.Errorf("list conflicts: %w", err)
	}

	sort.Slice(conflicts, func(i, j int) bool {
		return conflicts[i].ID < conflicts[j].ID
	})

	exported := make([]exportConflict, 0, len(conflicts))
	eventCount := 0
	for _, c := range conflicts {
		events, err := s.GetEvents(ctx, c.ID)
		if err != nil {
			return fmt.Errorf("get events for %s: %w", c.ID, err)
		}
		eventCount += len(events)
		exported = append(exported, exportConflict{Conflict: c, Events: events})
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:       "1",
		Type:          "header",
		Timestamp:     time.Now().UTC(),
		ConflictCount: len(conflicts),
		EventCount:    eventCount,
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, c := range exported {
		if err := enc.Encode(record{Type: "conflict", Data: c}); err != nil {
			return fmt.Errorf("encode conflict %s: %w", c.ID, err)
		}
	}

	return nil
}
