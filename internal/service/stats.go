package service

import (
	"context"
	"fmt"
	"os"

	"github.com/xiaot623/gogo/dashboard/internal/domain"
)

// Service metadata reported by GetInfo.
const (
	ServiceName        = "run-dashboard"
	ServiceVersion     = "1.0.0"
	ServiceDescription = "Pipeline run dashboard and logging API"
)

// GetStats derives totals from the current run listing.
func (s *Service) GetStats(ctx context.Context) (*domain.Stats, error) {
	listing, err := s.store.ListRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	stats := &domain.Stats{
		TotalRuns:    len(listing.Runs),
		ByStatus:     make(map[string]int),
		DegradedRuns: []string{},
	}
	for _, run := range listing.Runs {
		stats.ByStatus[run.Status]++
	}
	if len(listing.Runs) > 0 {
		latest := listing.Runs[0].RunID
		stats.LatestRun = &latest
	}
	if len(listing.Skipped) > 0 {
		stats.DegradedRuns = append(stats.DegradedRuns, listing.Skipped...)
	}
	return stats, nil
}

// GetHealth reports whether the data path is usable, with run totals.
func (s *Service) GetHealth(ctx context.Context) *domain.HealthResponse {
	resp := &domain.HealthResponse{
		Status:   "healthy",
		DataPath: s.config.DataPath,
	}
	if info, err := os.Stat(s.config.DataPath); err != nil || !info.IsDir() {
		resp.Status = "unhealthy"
	}

	stats, err := s.GetStats(ctx)
	if err != nil {
		s.logger.Error("health check failed to list runs", "error", err)
		resp.Status = "unhealthy"
		return resp
	}
	resp.RunsCount = stats.TotalRuns
	resp.LatestRun = stats.LatestRun
	return resp
}

// GetInfo returns service metadata.
func (s *Service) GetInfo() domain.ServiceInfo {
	return domain.ServiceInfo{
		Service:     ServiceName,
		Version:     ServiceVersion,
		Description: ServiceDescription,
	}
}

// GetClientConfig returns the deployment settings the UI needs. Unset
// values are omitted.
func (s *Service) GetClientConfig() map[string]string {
	cfg := map[string]string{}
	if s.config.ControlHubURL != "" {
		cfg["control_hub_url"] = s.config.ControlHubURL
	}
	return cfg
}
