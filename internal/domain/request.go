package domain

import "time"

// CreateRunRequest is the body of POST /api/runs.
type CreateRunRequest struct {
	Target      string  `json:"target"`
	Mode        string  `json:"mode"`
	Description *string `json:"description,omitempty"`
}

// CreateRunResponse is returned after a run is created.
type CreateRunResponse struct {
	RunID   string    `json:"run_id"`
	Target  string    `json:"target"`
	Mode    string    `json:"mode"`
	Status  string    `json:"status"`
	Created time.Time `json:"created"`
	Message string    `json:"message"`
}

// UpdateRunRequest is the body of PATCH /api/runs/:run_id.
type UpdateRunRequest struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Summary map[string]any `json:"summary,omitempty"`
}

// EventResponse is returned after an event is appended.
type EventResponse struct {
	RunID    string `json:"run_id"`
	Sequence int    `json:"sequence"`
	Message  string `json:"message"`
}

// RequestLogResponse is returned after a request log is appended.
type RequestLogResponse struct {
	RunID    string `json:"run_id"`
	Sequence int    `json:"sequence"`
	Message  string `json:"message"`
}

// TimingResponse is returned after timing entries are pushed.
type TimingResponse struct {
	RunID      string `json:"run_id"`
	EntryCount int    `json:"entry_count"`
	Message    string `json:"message"`
}

// ServiceInfo is returned by GET /api/info.
type ServiceInfo struct {
	Service     string `json:"service"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status    string  `json:"status"` // "healthy" or "unhealthy"
	DataPath  string  `json:"data_path"`
	RunsCount int     `json:"runs_count"`
	LatestRun *string `json:"latest_run"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}
