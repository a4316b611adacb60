// Package store implements the filesystem-backed run storage.
//
// Layout under the data root:
//
//	runs/{run_id}/meta.json       run metadata
//	runs/{run_id}/events.jsonl    event stream
//	runs/{run_id}/requests.jsonl  dependent-service request logs
//	runs/{run_id}/timing.json     timing entries
//	runs/{run_id}/reports/        stage output reports
package store

import (
	"context"
	"encoding/json"

	"github.com/xiaot623/gogo/dashboard/internal/domain"
)

// RunStore defines the interface for run persistence.
type RunStore interface {
	// Run operations
	CreateRun(ctx context.Context, target, mode string, description *string) (*domain.Run, error)
	GetRun(ctx context.Context, runID string) (*domain.RunDetail, error)
	UpdateRun(ctx context.Context, runID, status, message string, summary map[string]any) (*domain.RunDetail, error)
	ListRuns(ctx context.Context) (*Listing, error)
	DeleteRun(ctx context.Context, runID string) error

	// Event operations
	AppendEvent(ctx context.Context, runID string, event *domain.Event) (int, error)
	// AppendEventFunc calls fn with the assigned sequence before the run lock
	// is released, so fn observes appends in sequence order.
	AppendEventFunc(ctx context.Context, runID string, event *domain.Event, fn func(seq int)) (int, error)
	GetEvents(ctx context.Context, runID string) ([]domain.Event, error)

	// Request log operations
	AppendRequest(ctx context.Context, runID string, req *domain.RequestLog) (int, error)
	GetRequests(ctx context.Context, runID string) ([]domain.RequestLog, error)

	// Timing operations
	PushTiming(ctx context.Context, runID string, entries []domain.TimingEntry) (int, error)
	GetTiming(ctx context.Context, runID string) ([]domain.TimingEntry, error)

	// Lifecycle
	Close() error
}

// SequencedLog is an append-only per-run log. Append assigns the record's
// 1-based sequence number. Callers serialize appends per run.
type SequencedLog interface {
	Append(ctx context.Context, runID string, stream domain.Stream, rec domain.Record) (int, error)
	Read(ctx context.Context, runID string, stream domain.Stream) ([]json.RawMessage, error)
	Count(ctx context.Context, runID string, stream domain.Stream) (int, error)
	Remove(ctx context.Context, runID string) error
	Close() error
}

// Listing is the result of enumerating runs.
type Listing struct {
	// Runs are ordered newest first.
	Runs []domain.RunSummary
	// Skipped holds run directories whose metadata was missing or unparsable.
	Skipped []string
}
