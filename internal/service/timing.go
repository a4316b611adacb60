package service

import (
	"context"
	"fmt"
	"time"

	"github.com/xiaot623/gogo/dashboard/internal/domain"
)

// PushTiming appends a batch of timing entries and returns the response
// carrying the run's new total.
func (s *Service) PushTiming(ctx context.Context, runID string, entries []domain.TimingEntry) (resp *domain.TimingResponse, err error) {
	defer s.observe("push_timing", time.Now(), &err)

	if entries == nil {
		entries = []domain.TimingEntry{}
	}
	total, err := s.store.PushTiming(ctx, runID, entries)
	if err != nil {
		return nil, fmt.Errorf("failed to push timing: %w", err)
	}
	if s.metrics != nil {
		s.metrics.TimingPushed(len(entries))
	}

	return &domain.TimingResponse{
		RunID:      runID,
		EntryCount: total,
		Message:    fmt.Sprintf("Timing data recorded (%d total entries)", total),
	}, nil
}

// GetTiming returns a run's timing entries.
func (s *Service) GetTiming(ctx context.Context, runID string) (entries []domain.TimingEntry, err error) {
	defer s.observe("get_timing", time.Now(), &err)

	entries, err = s.store.GetTiming(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get timing: %w", err)
	}
	return entries, nil
}
