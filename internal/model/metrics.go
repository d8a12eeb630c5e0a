package model

import "time"

// BucketStat is a per-bucket {total, resolved} pair for metrics breakdowns.
type BucketStat struct {
	Total    int `json:"total"`
	Resolved int `json:"resolved"`
}

// ResolverCount is one entry in the by-resolver leaderboard. The synthetic
// actor "system" covers resolutions driven by optimization completion events.
type ResolverCount struct {
	Resolver string `json:"resolver"`
	Count    int    `json:"count"`
}

// AgeBuckets counts open conflicts by age since detection.
type AgeBuckets struct {
	Days0to3   int `json:"0_3d"`
	Days4to7   int `json:"4_7d"`
	Days8to14  int `json:"8_14d"`
	Days15to30 int `json:"15_30d"`
	Over30     int `json:"over_30d"`
}

// ConflictMetrics is a windowed effectiveness snapshot over the conflict
// store. All fields are zeroed (never null) when the window is empty.
type ConflictMetrics struct {
	WindowDays  int       `json:"window_days"`
	NetworkID   string    `json:"network_id,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`

	TotalConflicts int     `json:"total_conflicts"`
	ResolvedCount  int     `json:"resolved_count"`
	OpenCount      int     `json:"open_count"`
	ResolutionRate float64 `json:"resolution_rate"` // percentage in [0,100]

	AvgResolutionTimeHours float64 `json:"avg_resolution_time_hours"`

	BySeverity map[string]*BucketStat `json:"by_severity"`
	ByType     map[string]*BucketStat `json:"by_type"`
	ByResolver []ResolverCount        `json:"by_resolver"`

	RecurringConflicts  int        `json:"recurring_conflicts"`
	OpenAge             AgeBuckets `json:"open_age"`
	CriticalCount       int        `json:"critical_count"`        // open conflicts older than 7 days
	FalseResolutionRate float64    `json:"false_resolution_rate"` // resolved that recurred within 7 days / resolved
}
