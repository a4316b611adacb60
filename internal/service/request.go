package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xiaot623/gogo/dashboard/internal/domain"
)

// AppendRequest records a dependent-service request log.
func (s *Service) AppendRequest(ctx context.Context, runID string, req *domain.RequestLog) (resp *domain.RequestLogResponse, err error) {
	defer s.observe("append_request", time.Now(), &err)

	// Validate required fields
	if strings.TrimSpace(req.Service) == "" {
		return nil, fmt.Errorf("service is required: %w", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(req.Method) == "" {
		return nil, fmt.Errorf("method is required: %w", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(req.URL) == "" {
		return nil, fmt.Errorf("url is required: %w", domain.ErrInvalidInput)
	}

	sequence, err := s.store.AppendRequest(ctx, runID, req)
	if err != nil {
		return nil, fmt.Errorf("failed to append request log: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RecordAppended(string(domain.StreamRequests))
	}

	return &domain.RequestLogResponse{
		RunID:    runID,
		Sequence: sequence,
		Message:  fmt.Sprintf("Request #%d logged", sequence),
	}, nil
}

// GetRequests returns a run's request logs matching filter, in sequence order.
func (s *Service) GetRequests(ctx context.Context, runID string, filter domain.RequestFilter) (logs []domain.RequestLog, err error) {
	defer s.observe("get_requests", time.Now(), &err)

	m, err := newRequestMatcher(filter)
	if err != nil {
		return nil, err
	}
	logs, err = s.store.GetRequests(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get request logs: %w", err)
	}
	if filter.IsZero() {
		return logs, nil
	}

	matched := make([]domain.RequestLog, 0, len(logs))
	for i := range logs {
		if m.match(&logs[i]) {
			matched = append(matched, logs[i])
		}
	}
	return matched, nil
}

// SummarizeRequests groups a run's request logs by test context.
func (s *Service) SummarizeRequests(ctx context.Context, runID string) (summary []domain.TestSummary, err error) {
	defer s.observe("summarize_requests", time.Now(), &err)

	logs, err := s.store.GetRequests(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get request logs: %w", err)
	}
	return summarize(logs), nil
}
