package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xiaot623/gogo/dashboard/internal/domain"
)

// AppendEvent records a pipeline event and pushes it to live subscribers.
func (s *Service) AppendEvent(ctx context.Context, runID string, event *domain.Event) (resp *domain.EventResponse, err error) {
	defer s.observe("append_event", time.Now(), &err)

	if strings.TrimSpace(event.EventType) == "" {
		return nil, fmt.Errorf("event_type is required: %w", domain.ErrInvalidInput)
	}

	// Publishing under the run lock keeps the live feed in sequence order.
	sequence, err := s.store.AppendEventFunc(ctx, runID, event, func(seq int) {
		if s.hub == nil {
			return
		}
		if err := s.hub.Publish(runID, domain.EventMessage{RunID: runID, Event: *event}); err != nil {
			s.logger.Warn("failed to publish event", "run_id", runID, "sequence", seq, "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to append event: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RecordAppended(string(domain.StreamEvents))
	}

	return &domain.EventResponse{
		RunID:    runID,
		Sequence: sequence,
		Message:  fmt.Sprintf("Event #%d recorded", sequence),
	}, nil
}

// GetEvents returns a run's events in sequence order.
func (s *Service) GetEvents(ctx context.Context, runID string) (events []domain.Event, err error) {
	defer s.observe("get_events", time.Now(), &err)

	events, err = s.store.GetEvents(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	return events, nil
}

// SubscribeCheck fails with ErrNotFound unless the run exists, so the live
// feed is only opened for real runs.
func (s *Service) SubscribeCheck(ctx context.Context, runID string) error {
	if _, err := s.store.GetRun(ctx, runID); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	return nil
}
