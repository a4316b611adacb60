package domain

import (
	"strings"
	"time"
)

// Record is a sequenced log entry. The store assigns the sequence and fills
// in the timestamp when the caller left it empty.
type Record interface {
	SetSequence(seq int)
	StampTime(now time.Time)
}

// Event is a single pipeline lifecycle or progress record.
type Event struct {
	Sequence   int            `json:"sequence"`
	Timestamp  string         `json:"timestamp"`
	Stage      *int           `json:"stage,omitempty"`
	StageName  string         `json:"stage_name,omitempty"`
	EventType  string         `json:"event_type"`
	Message    string         `json:"message"`
	Data       map[string]any `json:"data,omitempty"`
	DurationMs *float64       `json:"duration_ms,omitempty"`
}

func (e *Event) SetSequence(seq int) { e.Sequence = seq }

func (e *Event) StampTime(now time.Time) {
	if strings.TrimSpace(e.Timestamp) == "" {
		e.Timestamp = FormatTime(now)
	}
}

// RequestLog is a logged call to a dependent service made during a run.
type RequestLog struct {
	Sequence       int            `json:"sequence"`
	Timestamp      string         `json:"timestamp"`
	Service        string         `json:"service"`
	Method         string         `json:"method"`
	URL            string         `json:"url"`
	RequestBody    map[string]any `json:"request_body,omitempty"`
	ResponseStatus *int           `json:"response_status,omitempty"`
	ResponseBody   map[string]any `json:"response_body,omitempty"`
	DurationMs     *float64       `json:"duration_ms,omitempty"`
	TestContext    string         `json:"test_context,omitempty"`
}

func (r *RequestLog) SetSequence(seq int) { r.Sequence = seq }

func (r *RequestLog) StampTime(now time.Time) {
	if strings.TrimSpace(r.Timestamp) == "" {
		r.Timestamp = FormatTime(now)
	}
}

// IsError reports whether the logged call failed: no response status, or a
// status of 400 and above.
func (r *RequestLog) IsError() bool {
	return r.ResponseStatus == nil || *r.ResponseStatus >= 400
}

// TimingEntry is a duration sample for a stage or operation.
type TimingEntry struct {
	Stage      *int           `json:"stage,omitempty"`
	StageName  string         `json:"stage_name,omitempty"`
	Operation  string         `json:"operation,omitempty"`
	StartTime  string         `json:"start_time,omitempty"`
	EndTime    string         `json:"end_time,omitempty"`
	DurationMs *float64       `json:"duration_ms,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
}

// EventMessage is an appended event as pushed to live subscribers.
type EventMessage struct {
	RunID string `json:"run_id"`
	Event
}
