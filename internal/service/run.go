package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xiaot623/gogo/dashboard/internal/domain"
)

// DefaultMode is used when a run is created without a mode.
const DefaultMode = "analyse"

// CreateRun validates the request and creates a run.
func (s *Service) CreateRun(ctx context.Context, req domain.CreateRunRequest) (resp *domain.CreateRunResponse, err error) {
	defer s.observe("create_run", time.Now(), &err)

	// Validate required fields
	if strings.TrimSpace(req.Target) == "" {
		return nil, fmt.Errorf("target is required: %w", domain.ErrInvalidInput)
	}
	mode := strings.TrimSpace(req.Mode)
	if mode == "" {
		mode = DefaultMode
	}

	run, err := s.store.CreateRun(ctx, req.Target, mode, req.Description)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RunCreated()
	}
	s.logger.Info("created run", "run_id", run.RunID, "target", run.Target, "mode", run.Mode)

	return &domain.CreateRunResponse{
		RunID:   run.RunID,
		Target:  run.Target,
		Mode:    run.Mode,
		Status:  run.Status,
		Created: run.Created,
		Message: fmt.Sprintf("Run %s created", run.RunID),
	}, nil
}

// GetRun returns a run with its derived counts.
func (s *Service) GetRun(ctx context.Context, runID string) (detail *domain.RunDetail, err error) {
	defer s.observe("get_run", time.Now(), &err)

	detail, err = s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if detail.Degraded {
		s.logger.Warn("run has unparsable artifacts", "run_id", runID)
	}
	return detail, nil
}

// UpdateRun sets a run's status and optionally its message and summary.
func (s *Service) UpdateRun(ctx context.Context, runID string, req domain.UpdateRunRequest) (detail *domain.RunDetail, err error) {
	defer s.observe("update_run", time.Now(), &err)

	status := strings.TrimSpace(req.Status)
	if status == "" {
		return nil, fmt.Errorf("status is required: %w", domain.ErrInvalidInput)
	}

	detail, err = s.store.UpdateRun(ctx, runID, status, req.Message, req.Summary)
	if err != nil {
		return nil, fmt.Errorf("failed to update run: %w", err)
	}
	s.logger.Info("updated run", "run_id", runID, "status", status)
	return detail, nil
}

// ListRuns returns every run, newest first.
func (s *Service) ListRuns(ctx context.Context) (runs []domain.RunSummary, err error) {
	defer s.observe("list_runs", time.Now(), &err)

	listing, err := s.store.ListRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return listing.Runs, nil
}

// DeleteRun removes a run and everything recorded for it.
func (s *Service) DeleteRun(ctx context.Context, runID string) (err error) {
	defer s.observe("delete_run", time.Now(), &err)

	if err := s.store.DeleteRun(ctx, runID); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RunDeleted()
	}
	return nil
}
