package model

import (
	"strings"
	"testing"
	"time"
)

func validEntry() *StructureEntry {
	return &StructureEntry{
		ID:           "se-1",
		NetworkID:    "net-1",
		Domain:       "example.com",
		Tier:         1,
		Role:         RoleSupport,
		IndexStatus:  IndexStatusIndex,
		RedirectType: RedirectNone,
	}
}

func TestValidateEntry_Valid(t *testing.T) {
	if err := ValidateEntry(validEntry()); err != nil {
		t.Errorf("ValidateEntry() = %v, want nil", err)
	}
}

func TestValidateEntry_Errors(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(*StructureEntry)
		field  string
	}{
		{"missing id", func(e *StructureEntry) { e.ID = " " }, "id"},
		{"missing network", func(e *StructureEntry) { e.NetworkID = "" }, "network_id"},
		{"missing domain", func(e *StructureEntry) { e.Domain = "" }, "domain"},
		{"negative tier", func(e *StructureEntry) { e.Tier = -1 }, "tier"},
		{"bad role", func(e *StructureEntry) { e.Role = "money" }, "domain_role"},
		{"bad index status", func(e *StructureEntry) { e.IndexStatus = "maybe" }, "index_status"},
		{"bad redirect", func(e *StructureEntry) { e.RedirectType = "307" }, "redirect_type"},
		{"self target", func(e *StructureEntry) { e.TargetEntryID = e.ID }, "target_entry_id"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			e := validEntry()
			tc.mutate(e)
			err := ValidateEntry(e)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.field) {
				t.Errorf("error %q does not mention field %q", err, tc.field)
			}
		})
	}
}

func validConflict() *Conflict {
	return &Conflict{
		ID:         "cf-1",
		NetworkID:  "net-1",
		Type:       TypeOrphan,
		Severity:   SeverityHigh,
		Status:     StatusDetected,
		NodeAID:    "se-1",
		DetectedAt: time.Now().UTC(),
	}
}

func TestValidateConflict_Valid(t *testing.T) {
	if err := ValidateConflict(validConflict()); err != nil {
		t.Errorf("ValidateConflict() = %v, want nil", err)
	}
}

func TestValidateConflict_ResolvedAtPairing(t *testing.T) {
	// resolved without resolved_at is invalid.
	c := validConflict()
	c.Status = StatusResolved
	if err := ValidateConflict(c); err == nil {
		t.Error("resolved conflict without resolved_at should fail validation")
	}

	// resolved with resolved_at is valid.
	now := time.Now().UTC()
	c.ResolvedAt = &now
	if err := ValidateConflict(c); err != nil {
		t.Errorf("resolved conflict with resolved_at: %v", err)
	}

	// open status with resolved_at set is invalid.
	c2 := validConflict()
	c2.ResolvedAt = &now
	if err := ValidateConflict(c2); err == nil {
		t.Error("detected conflict with resolved_at should fail validation")
	}
}

func TestValidateConflict_Errors(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(*Conflict)
	}{
		{"missing id", func(c *Conflict) { c.ID = "" }},
		{"missing network", func(c *Conflict) { c.NetworkID = "" }},
		{"bad type", func(c *Conflict) { c.Type = "nonsense" }},
		{"bad severity", func(c *Conflict) { c.Severity = "urgent" }},
		{"bad status", func(c *Conflict) { c.Status = "open" }},
		{"missing node", func(c *Conflict) { c.NodeAID = "" }},
		{"negative recurrence", func(c *Conflict) { c.RecurrenceCount = -1 }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := validConflict()
			tc.mutate(c)
			if err := ValidateConflict(c); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
