package detect

import "github.com/rankforge/linkmesh/internal/model"

// severityFor resolves a candidate's severity from the (type, tier,
// magnitude) lookup, then applies any configured per-type override.
// Magnitude is rule-specific: the tier gap for inversions, the excess link
// count for diluted mains, shared keyword count for cannibalization, and a
// touches-main flag for loops.
func (d *Detector) severityFor(t model.ConflictType, tier, magnitude int) model.Severity {
	if s, ok := d.cfg.SeverityOverrides[t.String()]; ok {
		return s
	}
	return baseSeverity(t, tier, magnitude)
}

func baseSeverity(t model.ConflictType, tier, magnitude int) model.Severity {
	switch t {
	case model.TypeOrphan:
		// Closer to main means more lost equity.
		switch {
		case tier <= 1:
			return model.SeverityHigh
		case tier <= 3:
			return model.SeverityMedium
		default:
			return model.SeverityLow
		}

	case model.TypeTierInversion:
		// A link pointing outward (gap > 0) is worse than a sideways link.
		if magnitude > 0 {
			return model.SeverityHigh
		}
		return model.SeverityMedium

	case model.TypeMultipleParentsToMain:
		if magnitude >= 3 {
			return model.SeverityHigh
		}
		return model.SeverityMedium

	case model.TypeRedirectLoop:
		// Loops touching the main target are always critical.
		if magnitude > 0 {
			return model.SeverityCritical
		}
		return model.SeverityHigh

	case model.TypeCanonicalMismatch:
		if tier <= 1 {
			return model.SeverityHigh
		}
		return model.SeverityMedium

	case model.TypeCanonicalRedirectConflict:
		return model.SeverityHigh

	case model.TypeIndexNoindexMismatch:
		if magnitude > 0 {
			return model.SeverityHigh
		}
		return model.SeverityMedium

	case model.TypeNoindexHighTier:
		if tier == 0 {
			return model.SeverityCritical
		}
		return model.SeverityHigh

	case model.TypeKeywordCannibalization:
		if magnitude >= 3 || tier <= 1 {
			return model.SeverityHigh
		}
		return model.SeverityMedium

	case model.TypeCompetingTargets:
		return model.SeverityCritical

	case model.TypeDanglingTarget:
		return model.SeverityHigh

	case model.TypeMissingMain:
		return model.SeverityCritical
	}
	return model.SeverityMedium
}
