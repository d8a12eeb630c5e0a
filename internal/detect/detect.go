// Package detect implements the conflict detection rules. Detection is a
// pure function of a graph snapshot: the same snapshot always produces the
// same candidate set with the same fingerprints, which is what makes
// reconciliation idempotent.
package detect

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rankforge/linkmesh/internal/graph"
	"github.com/rankforge/linkmesh/internal/model"
)

// Detector evaluates every rule against a graph snapshot.
type Detector struct {
	cfg Config
}

// New returns a detector using the given configuration. Zero-value fields
// fall back to defaults.
func New(cfg Config) *Detector {
	cfg.applyDefaults()
	return &Detector{cfg: cfg}
}

// Result is the output of one detection pass over a snapshot.
type Result struct {
	Candidates []model.Candidate `json:"candidates"`
	// Warnings records degraded evaluations (e.g. a chain walk that ran out
	// of hop budget). A warning never aborts the pass.
	Warnings []string `json:"warnings,omitempty"`
}

// Degraded reports whether any rule produced a partial result.
func (r Result) Degraded() bool {
	return len(r.Warnings) > 0
}

// Detect runs all rules against the snapshot and returns candidates sorted
// by fingerprint.
func (d *Detector) Detect(g *graph.Graph) Result {
	var res Result
	if g.Len() == 0 {
		return res
	}

	d.detectMainMultiplicity(g, &res)
	d.detectOrphans(g, &res)
	d.detectDanglingTargets(g, &res)
	d.detectTierInversions(g, &res)
	d.detectMultipleParentsToMain(g, &res)
	d.detectRedirectLoops(g, &res)
	d.detectCanonicalMismatches(g, &res)
	d.detectCanonicalRedirectConflicts(g, &res)
	d.detectIndexMismatches(g, &res)
	d.detectNoindexHighTier(g, &res)
	d.detectKeywordCannibalization(g, &res)

	sort.Slice(res.Candidates, func(i, j int) bool {
		return res.Candidates[i].Fingerprint().String() < res.Candidates[j].Fingerprint().String()
	})
	return res
}

// detectMainMultiplicity flags networks with zero mains (missing_main) or
// more than one main (competing_targets, one candidate per pair).
func (d *Detector) detectMainMultiplicity(g *graph.Graph, res *Result) {
	mains := g.MainEntries()
	switch {
	case len(mains) == 0:
		res.Candidates = append(res.Candidates, model.Candidate{
			NetworkID: g.NetworkID(),
			Type:      model.TypeMissingMain,
			Severity:  d.severityFor(model.TypeMissingMain, 0, 0),
			NodeAID:   g.NetworkID(),
			Detail:    "network has no entry with domain_role=main",
		})
	case len(mains) > 1:
		for i := 0; i < len(mains); i++ {
			for j := i + 1; j < len(mains); j++ {
				res.Candidates = append(res.Candidates, model.Candidate{
					NetworkID: g.NetworkID(),
					Type:      model.TypeCompetingTargets,
					Severity:  d.severityFor(model.TypeCompetingTargets, 0, 0),
					NodeAID:   mains[i].ID,
					NodeBID:   mains[j].ID,
					Detail:    fmt.Sprintf("%s and %s both claim domain_role=main", mains[i].URL(), mains[j].URL()),
				})
			}
		}
	}
}

// detectOrphans flags support entries with no outgoing edge. Main entries are
// never orphans regardless of their target.
func (d *Detector) detectOrphans(g *graph.Graph, res *Result) {
	for _, e := range g.Entries() {
		if e.IsMain() || e.TargetEntryID != "" {
			continue
		}
		res.Candidates = append(res.Candidates, model.Candidate{
			NetworkID: g.NetworkID(),
			Type:      model.TypeOrphan,
			Severity:  d.severityFor(model.TypeOrphan, e.Tier, 0),
			NodeAID:   e.ID,
			Detail:    fmt.Sprintf("tier %d entry %s has no target", e.Tier, e.URL()),
		})
	}
}

// detectDanglingTargets flags entries whose target references an entry
// missing from the snapshot. These are broken topology, not silently
// dropped edges.
func (d *Detector) detectDanglingTargets(g *graph.Graph, res *Result) {
	for _, e := range g.Dangling() {
		res.Candidates = append(res.Candidates, model.Candidate{
			NetworkID: g.NetworkID(),
			Type:      model.TypeDanglingTarget,
			Severity:  d.severityFor(model.TypeDanglingTarget, e.Tier, 0),
			NodeAID:   e.ID,
			NodeBID:   e.TargetEntryID,
			Detail:    fmt.Sprintf("%s targets %s, which does not exist in the network", e.URL(), e.TargetEntryID),
		})
	}
}

// detectTierInversions flags edges where the source does not point strictly
// closer to the main target.
func (d *Detector) detectTierInversions(g *graph.Graph, res *Result) {
	for _, e := range g.Entries() {
		target := g.Target(e)
		if target == nil || e.Tier <= 0 {
			continue
		}
		if target.Tier < e.Tier {
			continue
		}
		res.Candidates = append(res.Candidates, model.Candidate{
			NetworkID: g.NetworkID(),
			Type:      model.TypeTierInversion,
			Severity:  d.severityFor(model.TypeTierInversion, e.Tier, target.Tier-e.Tier),
			NodeAID:   e.ID,
			NodeBID:   target.ID,
			Detail:    fmt.Sprintf("tier %d entry %s links to tier %d entry %s", e.Tier, e.URL(), target.Tier, target.URL()),
		})
	}
}

// detectMultipleParentsToMain flags mains receiving more direct tier-1 links
// than the configured threshold, diluting link equity.
func (d *Detector) detectMultipleParentsToMain(g *graph.Graph, res *Result) {
	for _, m := range g.MainEntries() {
		var direct []string
		for _, p := range g.Parents(m.ID) {
			if p.Tier == 1 {
				direct = append(direct, p.ID)
			}
		}
		if len(direct) <= d.cfg.MaxDirectMainLinks {
			continue
		}
		res.Candidates = append(res.Candidates, model.Candidate{
			NetworkID: g.NetworkID(),
			Type:      model.TypeMultipleParentsToMain,
			Severity:  d.severityFor(model.TypeMultipleParentsToMain, 0, len(direct)-d.cfg.MaxDirectMainLinks),
			NodeAID:   m.ID,
			Members:   direct,
			Detail:    fmt.Sprintf("%d tier-1 entries link directly to %s (threshold %d)", len(direct), m.URL(), d.cfg.MaxDirectMainLinks),
		})
	}
}

// detectRedirectLoops reports one candidate per cycle, anchored on the
// cycle's smallest member ID and carrying the full membership.
func (d *Detector) detectRedirectLoops(g *graph.Graph, res *Result) {
	for _, cycle := range g.Cycles() {
		ids := make([]string, 0, len(cycle))
		touchesMain := false
		for _, e := range cycle {
			ids = append(ids, e.ID)
			if e.IsMain() {
				touchesMain = true
			}
		}
		magnitude := 0
		if touchesMain {
			magnitude = 1
		}
		res.Candidates = append(res.Candidates, model.Candidate{
			NetworkID: g.NetworkID(),
			Type:      model.TypeRedirectLoop,
			Severity:  d.severityFor(model.TypeRedirectLoop, cycle[0].Tier, magnitude),
			NodeAID:   cycle[0].ID,
			Members:   ids,
			Detail:    fmt.Sprintf("redirect loop through %d entries: %s", len(ids), strings.Join(ids, " -> ")),
		})
	}
}

// detectCanonicalMismatches flags entries whose canonical URL does not
// resolve to their own domain+path.
func (d *Detector) detectCanonicalMismatches(g *graph.Graph, res *Result) {
	for _, e := range g.Entries() {
		if e.CanonicalMatches() {
			continue
		}
		res.Candidates = append(res.Candidates, model.Candidate{
			NetworkID: g.NetworkID(),
			Type:      model.TypeCanonicalMismatch,
			Severity:  d.severityFor(model.TypeCanonicalMismatch, e.Tier, 0),
			NodeAID:   e.ID,
			Detail:    fmt.Sprintf("%s declares canonical %s", e.URL(), e.CanonicalURL),
		})
	}
}

// detectCanonicalRedirectConflicts flags entries that both redirect and carry
// a canonical marker, which sends contradictory signals to crawlers.
func (d *Detector) detectCanonicalRedirectConflicts(g *graph.Graph, res *Result) {
	for _, e := range g.Entries() {
		if e.RedirectType == model.RedirectNone || e.CanonicalURL == "" {
			continue
		}
		res.Candidates = append(res.Candidates, model.Candidate{
			NetworkID: g.NetworkID(),
			Type:      model.TypeCanonicalRedirectConflict,
			Severity:  d.severityFor(model.TypeCanonicalRedirectConflict, e.Tier, 0),
			NodeAID:   e.ID,
			Detail:    fmt.Sprintf("%s is a %s redirect but also declares canonical %s", e.URL(), e.RedirectType, e.CanonicalURL),
		})
	}
}

// detectIndexMismatches flags indexed entries whose target chain passes
// through a noindex ancestor, wasting the link. A cyclic chain is skipped
// here; the loop rule already covers it. A truncated walk degrades to a
// warning instead of hanging.
func (d *Detector) detectIndexMismatches(g *graph.Graph, res *Result) {
	for _, e := range g.Entries() {
		if e.IndexStatus != model.IndexStatusIndex || e.TargetEntryID == "" {
			continue
		}
		chain := g.WalkChain(e, d.cfg.MaxChainHops)
		if chain.Cyclic {
			continue
		}
		if chain.Truncated {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("chain walk from %s exhausted hop budget; potential redirect loop, unresolved", e.ID))
			continue
		}
		for _, ancestor := range chain.Path {
			if ancestor.IndexStatus == model.IndexStatusNoindex {
				magnitude := 0
				if ancestor.IsMain() || ancestor.Tier <= 1 {
					magnitude = 1
				}
				res.Candidates = append(res.Candidates, model.Candidate{
					NetworkID: g.NetworkID(),
					Type:      model.TypeIndexNoindexMismatch,
					Severity:  d.severityFor(model.TypeIndexNoindexMismatch, e.Tier, magnitude),
					NodeAID:   e.ID,
					NodeBID:   ancestor.ID,
					Detail:    fmt.Sprintf("indexed entry %s links through noindex entry %s", e.URL(), ancestor.URL()),
				})
				break
			}
		}
	}
}

// detectNoindexHighTier flags noindex entries at tier 0 or 1, where the
// signal defeats the network's purpose.
func (d *Detector) detectNoindexHighTier(g *graph.Graph, res *Result) {
	for _, e := range g.Entries() {
		if e.Tier > 1 || e.IndexStatus != model.IndexStatusNoindex {
			continue
		}
		res.Candidates = append(res.Candidates, model.Candidate{
			NetworkID: g.NetworkID(),
			Type:      model.TypeNoindexHighTier,
			Severity:  d.severityFor(model.TypeNoindexHighTier, e.Tier, 0),
			NodeAID:   e.ID,
			Detail:    fmt.Sprintf("tier %d entry %s is noindex", e.Tier, e.URL()),
		})
	}
}

// detectKeywordCannibalization flags pairs of distinct entries sharing at
// least MinSharedKeywords target keywords. Pairs are ordered (A < B) so the
// fingerprint is stable.
func (d *Detector) detectKeywordCannibalization(g *graph.Graph, res *Result) {
	entries := g.Entries()
	for i := 0; i < len(entries); i++ {
		if len(entries[i].Keywords) == 0 {
			continue
		}
		for j := i + 1; j < len(entries); j++ {
			shared := sharedKeywords(entries[i].Keywords, entries[j].Keywords)
			if len(shared) < d.cfg.MinSharedKeywords {
				continue
			}
			res.Candidates = append(res.Candidates, model.Candidate{
				NetworkID: g.NetworkID(),
				Type:      model.TypeKeywordCannibalization,
				Severity:  d.severityFor(model.TypeKeywordCannibalization, min(entries[i].Tier, entries[j].Tier), len(shared)),
				NodeAID:   entries[i].ID,
				NodeBID:   entries[j].ID,
				Members:   shared,
				Detail:    fmt.Sprintf("%s and %s compete for: %s", entries[i].URL(), entries[j].URL(), strings.Join(shared, ", ")),
			})
		}
	}
}

// sharedKeywords returns the case-insensitive intersection of two keyword
// sets, sorted.
func sharedKeywords(a, b []string) []string {
	set := make(map[string]bool, len(a))
	for _, kw := range a {
		set[strings.ToLower(strings.TrimSpace(kw))] = true
	}
	var shared []string
	seen := make(map[string]bool)
	for _, kw := range b {
		norm := strings.ToLower(strings.TrimSpace(kw))
		if norm != "" && set[norm] && !seen[norm] {
			shared = append(shared, norm)
			seen[norm] = true
		}
	}
	sort.Strings(shared)
	return shared
}
