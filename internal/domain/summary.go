package domain

import "time"

// Stop reason constants recorded on the crawl summary.
const (
	StopReasonExhausted = "frontier_exhausted"
	StopReasonMaxPages  = "max_pages"
	StopReasonDeadline  = "max_wall_clock"
	StopReasonCancelled = "cancelled"
)

// CrawlSummary is the user-visible result of a crawl run: outcome counts,
// per-host failure tallies, and how the run ended. Per-URL failures are
// recorded here rather than aborting the run.
type CrawlSummary struct {
	RunID   string `db:"run_id"   json:"run_id"`
	BaseURL string `db:"base_url" json:"base_url"`

	Fetched   int `db:"fetched"   json:"fetched"`
	Failed    int `db:"failed"    json:"failed"`
	Skipped   int `db:"skipped"   json:"skipped"`
	Discarded int `db:"discarded" json:"discarded"`

	StopReason string        `db:"stop_reason" json:"stop_reason"`
	StartedAt  time.Time     `db:"started_at"  json:"started_at"`
	Elapsed    time.Duration `db:"elapsed"     json:"elapsed"`

	// HostFailures counts terminal failures per host, including entries
	// skipped by an open circuit breaker.
	HostFailures map[string]int `json:"host_failures,omitempty"`

	// FlaggedPairs lists intent id pairs left in the similarity grey zone.
	FlaggedPairs [][2]string `json:"flagged_pairs,omitempty"`
}

// TotalProcessed returns the number of URLs that reached a terminal state.
func (s *CrawlSummary) TotalProcessed() int {
	return s.Fetched + s.Failed + s.Skipped
}

// MergeDecision records one collision merge for auditing: which intent
// survived, which were absorbed, and the similarity that triggered it.
type MergeDecision struct {
	SurvivorID string   `json:"survivor_id"`
	MergedIDs  []string `json:"merged_ids"`
	Similarity float64  `json:"similarity"`
}
