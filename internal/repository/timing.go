package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/xiaot623/gogo/dashboard/internal/domain"
)

// readTiming loads the run's timing array. A missing file is an empty array;
// an unparsable one is also read as empty but reported as corrupt.
func (s *FSStore) readTiming(runID string) ([]domain.TimingEntry, bool, error) {
	data, err := os.ReadFile(filepath.Join(s.runDir(runID), timingFile))
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.TimingEntry{}, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read timing of run %s: %w", runID, err)
	}

	var entries []domain.TimingEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return []domain.TimingEntry{}, true, nil
	}
	if entries == nil {
		entries = []domain.TimingEntry{}
	}
	return entries, false, nil
}

// PushTiming appends entries to the run's timing array and returns the new
// total. The whole array is rewritten atomically.
func (s *FSStore) PushTiming(ctx context.Context, runID string, entries []domain.TimingEntry) (int, error) {
	if err := checkRunID(runID); err != nil {
		return 0, err
	}
	unlock := s.locks.lock(runID)
	defer unlock()

	if err := s.requireRunDir(runID); err != nil {
		return 0, err
	}
	existing, corrupt, err := s.readTiming(runID)
	if err != nil {
		return 0, err
	}
	if corrupt {
		s.logger.Warn("timing file unparsable, starting from empty", "run_id", runID)
	}

	all := append(existing, entries...)
	if err := writeJSONAtomic(filepath.Join(s.runDir(runID), timingFile), all); err != nil {
		return 0, fmt.Errorf("write timing of run %s: %w", runID, err)
	}
	return len(all), nil
}

// GetTiming returns the run's timing entries, empty if none were pushed.
func (s *FSStore) GetTiming(ctx context.Context, runID string) ([]domain.TimingEntry, error) {
	if err := s.requireRunDir(runID); err != nil {
		return nil, err
	}
	entries, corrupt, err := s.readTiming(runID)
	if err != nil {
		return nil, err
	}
	if corrupt {
		s.logger.Warn("timing file unparsable, returning empty", "run_id", runID)
	}
	return entries, nil
}
