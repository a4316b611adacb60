// Package domain defines the core domain models for the run dashboard.
package domain

// Conventional run status values. Status is free-form; callers may use others.
const (
	RunStatusCreated   = "created"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Conventional pipeline event types.
const (
	EventTypeStageStart = "stage_start"
	EventTypeStageEnd   = "stage_end"
	EventTypeProgress   = "progress"
	EventTypeError      = "error"
	EventTypeInfo       = "info"
)

// Stream identifies one of the sequenced per-run logs.
type Stream string

const (
	StreamEvents   Stream = "events"
	StreamRequests Stream = "requests"
)

// FileType distinguishes entries in a file listing.
type FileType string

const (
	FileTypeFile      FileType = "file"
	FileTypeDirectory FileType = "directory"
)
