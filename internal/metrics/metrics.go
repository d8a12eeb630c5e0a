// Package metrics computes windowed effectiveness snapshots over the
// conflict store. All computation is read-only and safe to run concurrently
// with detection.
package metrics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rankforge/linkmesh/internal/model"
	"github.com/rankforge/linkmesh/internal/store"
)

// DefaultWindowDays is used when the caller passes days <= 0.
const DefaultWindowDays = 30

// topResolvers caps the by-resolver leaderboard.
const topResolvers = 10

// falseResolutionWindow bounds how soon a recurrence counts against a
// resolution.
const falseResolutionWindow = 7 * 24 * time.Hour

// staleOpenAge is the open-conflict age past which critical_count counts.
const staleOpenAge = 7 * 24 * time.Hour

// Aggregator computes ConflictMetrics snapshots.
type Aggregator struct {
	store store.Store
	now   func() time.Time
}

// NewAggregator creates an aggregator over the given store. The clock
// defaults to time.Now.
func NewAggregator(st store.Store, now func() time.Time) *Aggregator {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Aggregator{store: st, now: now}
}

// Compute builds a metrics snapshot for conflicts detected or resolved
// within the last days days, optionally scoped to one network. An empty
// window yields zeroed structs, never an error.
func (a *Aggregator) Compute(ctx context.Context, days int, networkID string) (*model.ConflictMetrics, error) {
	if days <= 0 {
		days = DefaultWindowDays
	}
	now := a.now()
	windowStart := now.AddDate(0, 0, -days)

	// ActiveSince keeps long-lived conflicts that were resolved inside the
	// window even when they were detected before it.
	conflicts, _, err := a.store.ListConflicts(ctx, model.ConflictFilter{
		NetworkID:   networkID,
		ActiveSince: &windowStart,
	})
	if err != nil {
		return nil, fmt.Errorf("listing conflicts for metrics: %w", err)
	}

	m := &model.ConflictMetrics{
		WindowDays:  days,
		NetworkID:   networkID,
		GeneratedAt: now,
		BySeverity:  make(map[string]*model.BucketStat),
		ByType:      make(map[string]*model.BucketStat),
		ByResolver:  []model.ResolverCount{},
	}

	var (
		resolutionHours float64
		resolverCounts  = make(map[string]int)
		falseCount      int
	)

	// Recurrences within the window, keyed by prior conflict id, drive
	// false_resolution_rate.
	recurredPriors := make(map[string]time.Time)
	for _, c := range conflicts {
		if c.PriorConflictID != "" {
			recurredPriors[c.PriorConflictID] = c.DetectedAt
		}
	}

	for _, c := range conflicts {
		m.TotalConflicts++

		resolved := c.Status == model.StatusResolved
		bumpBucket(m.BySeverity, string(c.Severity), resolved)
		bumpBucket(m.ByType, string(c.Type), resolved)

		if c.RecurrenceCount > 0 {
			m.RecurringConflicts++
		}

		if c.Status.IsOpen() {
			m.OpenCount++
			age := now.Sub(c.DetectedAt)
			bumpAge(&m.OpenAge, age)
			if age > staleOpenAge {
				m.CriticalCount++
			}
			continue
		}

		if !resolved {
			continue
		}
		m.ResolvedCount++
		if c.ResolvedAt != nil {
			resolutionHours += c.ResolvedAt.Sub(c.DetectedAt).Hours()
			if recurredAt, ok := recurredPriors[c.ID]; ok &&
				recurredAt.Sub(*c.ResolvedAt) <= falseResolutionWindow {
				falseCount++
			}
		}
		resolver := c.ResolvedBy
		if resolver == "" {
			resolver = "system"
		}
		resolverCounts[resolver]++
	}

	if m.TotalConflicts > 0 {
		m.ResolutionRate = float64(m.ResolvedCount) / float64(m.TotalConflicts) * 100
	}
	if m.ResolvedCount > 0 {
		m.AvgResolutionTimeHours = resolutionHours / float64(m.ResolvedCount)
		m.FalseResolutionRate = float64(falseCount) / float64(m.ResolvedCount)
	}
	m.ByResolver = topN(resolverCounts, topResolvers)

	return m, nil
}

func bumpBucket(buckets map[string]*model.BucketStat, key string, resolved bool) {
	b, ok := buckets[key]
	if !ok {
		b = &model.BucketStat{}
		buckets[key] = b
	}
	b.Total++
	if resolved {
		b.Resolved++
	}
}

func bumpAge(buckets *model.AgeBuckets, age time.Duration) {
	days := age.Hours() / 24
	switch {
	case days <= 3:
		buckets.Days0to3++
	case days <= 7:
		buckets.Days4to7++
	case days <= 14:
		buckets.Days8to14++
	case days <= 30:
		buckets.Days15to30++
	default:
		buckets.Over30++
	}
}

func topN(counts map[string]int, n int) []model.ResolverCount {
	out := make([]model.ResolverCount, 0, len(counts))
	for resolver, count := range counts {
		out = append(out, model.ResolverCount{Resolver: resolver, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Resolver < out[j].Resolver
		}
		return out[i].Count > out[j].Count
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
