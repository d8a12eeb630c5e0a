package model

import (
	"encoding/json"
	"time"
)

// AuditEvent is a persisted audit record, mirroring what is published to NATS.
// One event is emitted for every status transition and bulk operation.
type AuditEvent struct {
	ID         int64           `json:"id"`
	Topic      string          `json:"topic"`
	ConflictID string          `json:"conflict_id"`
	Actor      string          `json:"actor,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"created_at"`
}
