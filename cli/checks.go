package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xiaot623/gogo/dashboard/internal/domain"
)

// Check names.
const (
	CheckHealth       = "health_check"
	CheckRunLifecycle = "run_lifecycle"
	CheckFileBrowser  = "file_browser"
)

// Result is the outcome of a single check.
type Result struct {
	Test    string         `json:"test"`
	Passed  bool           `json:"passed"`
	Details map[string]any `json:"details"`
}

// Message returns the human readable outcome.
func (r Result) Message() string {
	msg, _ := r.Details["message"].(string)
	return msg
}

func newResult(name string) Result {
	return Result{Test: name, Details: map[string]any{}}
}

func (r *Result) fail(err error) Result {
	var se *StatusError
	if errors.As(err, &se) {
		r.Details["message"] = se.Error()
	} else {
		r.Details["message"] = fmt.Sprintf("Error: %v", err)
	}
	return *r
}

// CheckHealth verifies /health and /api/info.
func (c *Client) CheckHealth(ctx context.Context) Result {
	r := newResult(CheckHealth)

	start := time.Now()
	health, err := c.Health(ctx)
	if err != nil {
		return r.fail(err)
	}
	info, err := c.Info(ctx)
	if err != nil {
		return r.fail(err)
	}
	latency := float64(time.Since(start).Microseconds()) / 1000

	r.Details["health"] = health
	r.Details["service_info"] = info
	r.Details["latency_ms"] = latency

	if health.Status != "healthy" {
		r.Details["message"] = fmt.Sprintf("Unhealthy: status %q", health.Status)
		return r
	}
	r.Passed = true
	r.Details["message"] = fmt.Sprintf("Healthy - %d runs", health.RunsCount)
	return r
}

// CheckRunLifecycle creates a run, pushes events, a request log and timing,
// reads the counts back and marks the run completed.
func (c *Client) CheckRunLifecycle(ctx context.Context) Result {
	r := newResult(CheckRunLifecycle)

	description := "Integration test run from dashboard-check"
	run, err := c.CreateRun(ctx, domain.CreateRunRequest{
		Target:      "integration-test",
		Mode:        "test",
		Description: &description,
	})
	if err != nil {
		return r.fail(err)
	}
	runID := run.RunID
	r.Details["create"] = run

	stage := 1
	duration := 42.0
	ev1, err := c.AppendEvent(ctx, runID, domain.Event{
		EventType: "stage_start",
		Stage:     &stage,
		StageName: "Test Stage",
		Message:   "Starting integration test",
	})
	if err != nil {
		return r.fail(err)
	}
	r.Details["event_1"] = ev1

	ev2, err := c.AppendEvent(ctx, runID, domain.Event{
		EventType:  "stage_end",
		Stage:      &stage,
		StageName:  "Test Stage",
		Message:    "Test stage completed",
		DurationMs: &duration,
	})
	if err != nil {
		return r.fail(err)
	}
	r.Details["event_2"] = ev2

	status := 200
	reqDuration := 15.0
	reqLog, err := c.AppendRequest(ctx, runID, domain.RequestLog{
		Service:        "test-service",
		Method:         "GET",
		URL:            c.baseURL + "/health",
		ResponseStatus: &status,
		DurationMs:     &reqDuration,
	})
	if err != nil {
		return r.fail(err)
	}
	r.Details["request_log"] = reqLog

	timing, err := c.PushTiming(ctx, runID, []domain.TimingEntry{
		{Stage: &stage, StageName: "Test Stage", DurationMs: &duration},
	})
	if err != nil {
		return r.fail(err)
	}
	r.Details["timing"] = timing

	detail, err := c.GetRun(ctx, runID)
	if err != nil {
		return r.fail(err)
	}
	r.Details["detail"] = detail

	if detail.EventCount != 2 {
		r.Details["message"] = fmt.Sprintf("Expected 2 events, got %d", detail.EventCount)
		return r
	}
	if detail.RequestCount != 1 {
		r.Details["message"] = fmt.Sprintf("Expected 1 request, got %d", detail.RequestCount)
		return r
	}

	updated, err := c.UpdateRun(ctx, runID, domain.UpdateRunRequest{
		Status:  domain.RunStatusCompleted,
		Message: "Integration test passed",
	})
	if err != nil {
		return r.fail(err)
	}
	r.Details["update"] = updated

	if updated.Status != domain.RunStatusCompleted {
		r.Details["message"] = fmt.Sprintf("Expected 'completed', got '%s'", updated.Status)
		return r
	}

	r.Passed = true
	r.Details["message"] = fmt.Sprintf("Full lifecycle passed (run %s)", runID)
	return r
}

// CheckFileBrowser verifies the root listing of the file browser.
func (c *Client) CheckFileBrowser(ctx context.Context) Result {
	r := newResult(CheckFileBrowser)

	listing, err := c.Files(ctx)
	if err != nil {
		return r.fail(err)
	}
	r.Details["root_listing"] = listing

	if listing.Entries == nil {
		r.Details["message"] = "Invalid listing response"
		return r
	}
	r.Passed = true
	r.Details["message"] = fmt.Sprintf("File browser working (%d entries)", listing.Count)
	return r
}
