package model

import (
	"fmt"
	"strings"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ValidateEntry checks a StructureEntry for constraint violations.
// It returns a *ValidationError if any rules fail, or nil if the entry is valid.
func ValidateEntry(e *StructureEntry) error {
	var ve ValidationError

	if strings.TrimSpace(e.ID) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "id", Message: "is required"})
	}
	if strings.TrimSpace(e.NetworkID) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "network_id", Message: "is required"})
	}
	if strings.TrimSpace(e.Domain) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "domain", Message: "is required"})
	}
	if e.Tier < 0 {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "tier",
			Message: fmt.Sprintf("must be non-negative, got %d", e.Tier),
		})
	}
	if !e.Role.IsValid() {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "domain_role",
			Message: fmt.Sprintf("invalid value %q", e.Role),
		})
	}
	if !e.IndexStatus.IsValid() {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "index_status",
			Message: fmt.Sprintf("invalid value %q", e.IndexStatus),
		})
	}
	if !e.RedirectType.IsValid() {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "redirect_type",
			Message: fmt.Sprintf("invalid value %q", e.RedirectType),
		})
	}
	if e.TargetEntryID != "" && e.TargetEntryID == e.ID {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "target_entry_id",
			Message: "must not reference the entry itself",
		})
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}

// ValidateConflict checks a Conflict for constraint violations before it is
// persisted. The resolved_at/status pairing invariant is enforced here so a
// bad write can never produce a record that breaks metrics.
func ValidateConflict(c *Conflict) error {
	var ve ValidationError

	if strings.TrimSpace(c.ID) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "id", Message: "is required"})
	}
	if strings.TrimSpace(c.NetworkID) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "network_id", Message: "is required"})
	}
	if !c.Type.IsValid() {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "conflict_type",
			Message: fmt.Sprintf("invalid value %q", c.Type),
		})
	}
	if !c.Severity.IsValid() {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "severity",
			Message: fmt.Sprintf("invalid value %q", c.Severity),
		})
	}
	if !c.Status.IsValid() {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "status",
			Message: fmt.Sprintf("invalid value %q", c.Status),
		})
	}
	if strings.TrimSpace(c.NodeAID) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "node_a_id", Message: "is required"})
	}
	if c.RecurrenceCount < 0 {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "recurrence_count",
			Message: fmt.Sprintf("must be non-negative, got %d", c.RecurrenceCount),
		})
	}
	if c.Status == StatusResolved && c.ResolvedAt == nil {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "resolved_at",
			Message: "is required when status is resolved",
		})
	}
	if c.Status != StatusResolved && c.ResolvedAt != nil {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "resolved_at",
			Message: fmt.Sprintf("must be unset when status is %q", c.Status),
		})
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}
