package domain

import (
	"time"
)

// Run is the persisted metadata of a single pipeline execution (meta.json).
type Run struct {
	RunID         string         `json:"run_id"`
	Target        string         `json:"target"`
	Mode          string         `json:"mode"`
	Status        string         `json:"status"`
	Created       time.Time      `json:"created"`
	Updated       time.Time      `json:"updated"`
	Description   *string        `json:"description"`
	StatusMessage string         `json:"status_message,omitempty"`
	Summary       map[string]any `json:"summary"`
}

// RunCounts holds the counts derived from a run's logs.
type RunCounts struct {
	Events   int
	Requests int
	Timing   int
	// Degraded is set when a derived artifact exists but could not be parsed.
	Degraded bool
}

// RunDetail is a run merged with its derived counts.
type RunDetail struct {
	Run
	EventCount   int  `json:"event_count"`
	RequestCount int  `json:"request_count"`
	TimingCount  int  `json:"timing_count"`
	Degraded     bool `json:"degraded,omitempty"`
}

// RunSummary is the listing form of a run.
type RunSummary struct {
	RunID        string    `json:"run_id"`
	Target       string    `json:"target"`
	Mode         string    `json:"mode"`
	Status       string    `json:"status"`
	Created      time.Time `json:"created"`
	Updated      time.Time `json:"updated"`
	Description  *string   `json:"description"`
	EventCount   int       `json:"event_count"`
	RequestCount int       `json:"request_count"`
}

// Detail merges the run with derived counts.
func (r Run) Detail(c RunCounts) RunDetail {
	return RunDetail{
		Run:          r,
		EventCount:   c.Events,
		RequestCount: c.Requests,
		TimingCount:  c.Timing,
		Degraded:     c.Degraded,
	}
}

// ToSummary converts the run to its listing form.
func (r Run) ToSummary(c RunCounts) RunSummary {
	return RunSummary{
		RunID:        r.RunID,
		Target:       r.Target,
		Mode:         r.Mode,
		Status:       r.Status,
		Created:      r.Created,
		Updated:      r.Updated,
		Description:  r.Description,
		EventCount:   c.Events,
		RequestCount: c.Requests,
	}
}

// Stats are totals derived from the current run listing.
type Stats struct {
	TotalRuns    int            `json:"total_runs"`
	ByStatus     map[string]int `json:"by_status"`
	LatestRun    *string        `json:"latest_run"`
	DegradedRuns []string       `json:"degraded_runs"`
}

// FormatTime renders t as a UTC ISO-8601 timestamp.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
