package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/xiaot623/gogo/dashboard/internal/domain"
)

// Client is an HTTP client for the dashboard API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new dashboard client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// StatusError is returned when the dashboard answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Body)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (*domain.HealthResponse, error) {
	var out domain.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Info calls GET /api/info.
func (c *Client) Info(ctx context.Context) (*domain.ServiceInfo, error) {
	var out domain.ServiceInfo
	if err := c.do(ctx, http.MethodGet, "/api/info", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateRun calls POST /api/runs.
func (c *Client) CreateRun(ctx context.Context, req domain.CreateRunRequest) (*domain.CreateRunResponse, error) {
	var out domain.CreateRunResponse
	if err := c.do(ctx, http.MethodPost, "/api/runs", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRun calls GET /api/runs/:run_id.
func (c *Client) GetRun(ctx context.Context, runID string) (*domain.RunDetail, error) {
	var out domain.RunDetail
	if err := c.do(ctx, http.MethodGet, "/api/runs/"+runID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateRun calls PATCH /api/runs/:run_id.
func (c *Client) UpdateRun(ctx context.Context, runID string, req domain.UpdateRunRequest) (*domain.Run, error) {
	var out domain.Run
	if err := c.do(ctx, http.MethodPatch, "/api/runs/"+runID, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AppendEvent calls POST /api/runs/:run_id/events.
func (c *Client) AppendEvent(ctx context.Context, runID string, ev domain.Event) (*domain.EventResponse, error) {
	var out domain.EventResponse
	if err := c.do(ctx, http.MethodPost, "/api/runs/"+runID+"/events", ev, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AppendRequest calls POST /api/runs/:run_id/requests.
func (c *Client) AppendRequest(ctx context.Context, runID string, rl domain.RequestLog) (*domain.RequestLogResponse, error) {
	var out domain.RequestLogResponse
	if err := c.do(ctx, http.MethodPost, "/api/runs/"+runID+"/requests", rl, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PushTiming calls POST /api/runs/:run_id/timing.
func (c *Client) PushTiming(ctx context.Context, runID string, entries []domain.TimingEntry) (*domain.TimingResponse, error) {
	var out domain.TimingResponse
	if err := c.do(ctx, http.MethodPost, "/api/runs/"+runID+"/timing", entries, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Files calls GET /api/files.
func (c *Client) Files(ctx context.Context) (*domain.FileListing, error) {
	var out domain.FileListing
	if err := c.do(ctx, http.MethodGet, "/api/files", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Follow streams the run's new events to handler until the connection
// closes or ctx is done.
func (c *Client) Follow(ctx context.Context, runID string, handler func(domain.EventMessage)) error {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/api/runs/" + runID + "/events/ws"
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return &StatusError{Code: resp.StatusCode, Body: "cannot follow run " + runID}
		}
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		var msg domain.EventMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		handler(msg)
	}
}
