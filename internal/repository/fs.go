package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xiaot623/gogo/dashboard/internal/domain"
	"github.com/xiaot623/gogo/dashboard/internal/pathguard"
)

const (
	runIDLayout = "20060102-150405"
	metaFile    = "meta.json"
	timingFile  = "timing.json"
	reportsDir  = "reports"
	runsDirName = "runs"
	dirPerm     = 0o755
)

// errCorruptMeta marks metadata that exists but cannot be decoded.
var errCorruptMeta = errors.New("corrupt metadata")

// FSStore implements RunStore on the local filesystem.
//
// Mutations of a run hold that run's lock; run creation holds the registry
// lock and allocates ids with an exclusive mkdir. Reads take no locks: the
// metadata and timing files are replaced atomically.
type FSStore struct {
	runsPath        string
	log             SequencedLog
	locks           *runLocks
	createMu        sync.Mutex
	now             func() time.Time
	logger          *slog.Logger
	listConcurrency int
}

// Option configures an FSStore.
type Option func(*FSStore)

// WithLog replaces the default JSONL sequenced log.
func WithLog(l SequencedLog) Option {
	return func(s *FSStore) { s.log = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *FSStore) { s.now = now }
}

// WithLogger sets the logger used for degraded-data warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(s *FSStore) { s.logger = logger }
}

// WithListConcurrency bounds how many runs are counted in parallel by ListRuns.
func WithListConcurrency(n int) Option {
	return func(s *FSStore) {
		if n > 0 {
			s.listConcurrency = n
		}
	}
}

// NewFSStore creates a store under dataPath, creating dataPath/runs if needed.
func NewFSStore(dataPath string, opts ...Option) (*FSStore, error) {
	runsPath := filepath.Join(dataPath, runsDirName)
	if err := os.MkdirAll(runsPath, dirPerm); err != nil {
		return nil, fmt.Errorf("create runs directory: %w", err)
	}

	s := &FSStore{
		runsPath:        runsPath,
		locks:           newRunLocks(),
		now:             time.Now,
		logger:          slog.Default(),
		listConcurrency: 8,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = NewJSONLLog(runsPath)
	}
	return s, nil
}

// RunsPath returns the directory holding one subdirectory per run.
func (s *FSStore) RunsPath() string {
	return s.runsPath
}

// Close releases the sequenced log.
func (s *FSStore) Close() error {
	return s.log.Close()
}

func (s *FSStore) runDir(runID string) string {
	return filepath.Join(s.runsPath, runID)
}

// checkRunID rejects ids that could name anything but a direct child of the
// runs directory.
func checkRunID(runID string) error {
	if runID == "" || runID == "." || runID == ".." ||
		strings.ContainsAny(runID, `/\`+"\x00") {
		return fmt.Errorf("run %q: %w", runID, domain.ErrNotFound)
	}
	return nil
}

// requireRunDir fails with ErrNotFound unless the run directory exists.
func (s *FSStore) requireRunDir(runID string) error {
	if err := checkRunID(runID); err != nil {
		return err
	}
	info, err := os.Stat(s.runDir(runID))
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
		return fmt.Errorf("run %s: %w", runID, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("stat run %s: %w", runID, err)
	}
	return nil
}

func (s *FSStore) readMeta(runID string) (*domain.Run, error) {
	data, err := os.ReadFile(filepath.Join(s.runDir(runID), metaFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("run %s: %w", runID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read metadata for %s: %w", runID, err)
	}
	var run domain.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("run %s: %w: %v", runID, errCorruptMeta, err)
	}
	if run.RunID == "" {
		run.RunID = runID
	}
	return &run, nil
}

func (s *FSStore) writeMeta(run *domain.Run) error {
	return writeJSONAtomic(filepath.Join(s.runDir(run.RunID), metaFile), run)
}

// CreateRun allocates a run directory named after the current UTC second,
// adding a -N suffix on collision, and writes its initial metadata.
func (s *FSStore) CreateRun(ctx context.Context, target, mode string, description *string) (*domain.Run, error) {
	s.createMu.Lock()
	defer s.createMu.Unlock()

	now := s.now().UTC()
	base := now.Format(runIDLayout)
	runID := base
	for n := 1; ; n++ {
		err := os.Mkdir(s.runDir(runID), dirPerm)
		if err == nil {
			break
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("create run directory: %w", err)
		}
		runID = fmt.Sprintf("%s-%d", base, n)
	}

	run := &domain.Run{
		RunID:       runID,
		Target:      target,
		Mode:        mode,
		Status:      domain.RunStatusCreated,
		Created:     now,
		Updated:     now,
		Description: description,
	}
	if err := os.Mkdir(filepath.Join(s.runDir(runID), reportsDir), dirPerm); err != nil {
		_ = os.RemoveAll(s.runDir(runID))
		return nil, fmt.Errorf("create reports directory: %w", err)
	}
	if err := s.writeMeta(run); err != nil {
		_ = os.RemoveAll(s.runDir(runID))
		return nil, fmt.Errorf("write metadata: %w", err)
	}
	return run, nil
}

// GetRun returns the run's metadata merged with derived counts.
func (s *FSStore) GetRun(ctx context.Context, runID string) (*domain.RunDetail, error) {
	if err := checkRunID(runID); err != nil {
		return nil, err
	}
	run, err := s.readMeta(runID)
	if err != nil {
		return nil, err
	}
	counts, err := s.counts(ctx, runID)
	if err != nil {
		return nil, err
	}
	detail := run.Detail(counts)
	return &detail, nil
}

// UpdateRun sets the status, and optionally the status message and summary.
// A non-nil summary replaces the stored one wholesale.
func (s *FSStore) UpdateRun(ctx context.Context, runID, status, message string, summary map[string]any) (*domain.RunDetail, error) {
	if err := checkRunID(runID); err != nil {
		return nil, err
	}
	unlock := s.locks.lock(runID)
	defer unlock()

	run, err := s.readMeta(runID)
	if err != nil {
		return nil, err
	}
	run.Status = status
	run.Updated = s.now().UTC()
	if message != "" {
		run.StatusMessage = message
	}
	if summary != nil {
		run.Summary = summary
	}
	if err := s.writeMeta(run); err != nil {
		return nil, fmt.Errorf("write metadata: %w", err)
	}

	counts, err := s.counts(ctx, runID)
	if err != nil {
		return nil, err
	}
	detail := run.Detail(counts)
	return &detail, nil
}

// ListRuns returns every run newest first. Runs whose metadata is missing or
// unparsable are reported in Skipped instead of failing the listing.
func (s *FSStore) ListRuns(ctx context.Context) (*Listing, error) {
	entries, err := os.ReadDir(s.runsPath)
	if errors.Is(err, fs.ErrNotExist) {
		return &Listing{Runs: []domain.RunSummary{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read runs directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	listing := &Listing{Runs: []domain.RunSummary{}}
	var runs []*domain.Run
	for _, name := range names {
		run, err := s.readMeta(name)
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, errCorruptMeta) {
			s.logger.Warn("skipping degraded run", "run_id", name, "error", err)
			listing.Skipped = append(listing.Skipped, name)
			continue
		}
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	summaries := make([]domain.RunSummary, len(runs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.listConcurrency)
	for i, run := range runs {
		g.Go(func() error {
			counts, err := s.counts(gctx, run.RunID)
			if err != nil {
				return err
			}
			summaries[i] = run.ToSummary(counts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	listing.Runs = summaries
	return listing, nil
}

// DeleteRun removes the run directory after checking that its canonical path
// is still inside the runs directory.
func (s *FSStore) DeleteRun(ctx context.Context, runID string) error {
	if err := checkRunID(runID); err != nil {
		return err
	}
	unlock := s.locks.lock(runID)
	defer unlock()

	dir := s.runDir(runID)
	if _, err := os.Lstat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("run %s: %w", runID, domain.ErrNotFound)
		}
		return fmt.Errorf("stat run %s: %w", runID, err)
	}

	root, err := filepath.EvalSymlinks(s.runsPath)
	if err != nil {
		return fmt.Errorf("resolve runs directory: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return fmt.Errorf("resolve run %s: %w", runID, err)
	}
	if resolved == root || !pathguard.Within(root, resolved) {
		return fmt.Errorf("run %s resolves to %s: %w", runID, resolved, domain.ErrPathViolation)
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove run %s: %w", runID, err)
	}
	if err := s.log.Remove(ctx, runID); err != nil {
		return fmt.Errorf("remove logs of run %s: %w", runID, err)
	}
	s.logger.Info("deleted run", "run_id", runID, "path", dir)
	return nil
}

// counts derives the event, request and timing counts of a run.
func (s *FSStore) counts(ctx context.Context, runID string) (domain.RunCounts, error) {
	var c domain.RunCounts
	var err error
	if c.Events, err = s.log.Count(ctx, runID, domain.StreamEvents); err != nil {
		return c, err
	}
	if c.Requests, err = s.log.Count(ctx, runID, domain.StreamRequests); err != nil {
		return c, err
	}
	entries, corrupt, err := s.readTiming(runID)
	if err != nil {
		return c, err
	}
	c.Timing = len(entries)
	c.Degraded = corrupt
	return c, nil
}

// appendRecord stamps and appends rec under the run lock. A non-nil fn runs
// after a successful append, still under the lock.
func (s *FSStore) appendRecord(ctx context.Context, runID string, stream domain.Stream, rec domain.Record, fn func(seq int)) (int, error) {
	if err := checkRunID(runID); err != nil {
		return 0, err
	}
	unlock := s.locks.lock(runID)
	defer unlock()

	if err := s.requireRunDir(runID); err != nil {
		return 0, err
	}
	rec.StampTime(s.now())
	seq, err := s.log.Append(ctx, runID, stream, rec)
	if err != nil {
		return 0, err
	}
	if fn != nil {
		fn(seq)
	}
	return seq, nil
}

func (s *FSStore) readRecords(ctx context.Context, runID string, stream domain.Stream) ([]json.RawMessage, error) {
	if err := s.requireRunDir(runID); err != nil {
		return nil, err
	}
	return s.log.Read(ctx, runID, stream)
}

// AppendEvent appends an event and returns its sequence number.
func (s *FSStore) AppendEvent(ctx context.Context, runID string, event *domain.Event) (int, error) {
	return s.appendRecord(ctx, runID, domain.StreamEvents, event, nil)
}

// AppendEventFunc appends an event and calls fn with its sequence while the
// run lock is still held.
func (s *FSStore) AppendEventFunc(ctx context.Context, runID string, event *domain.Event, fn func(seq int)) (int, error) {
	return s.appendRecord(ctx, runID, domain.StreamEvents, event, fn)
}

// GetEvents returns the run's events in sequence order.
func (s *FSStore) GetEvents(ctx context.Context, runID string) ([]domain.Event, error) {
	raw, err := s.readRecords(ctx, runID, domain.StreamEvents)
	if err != nil {
		return nil, err
	}
	return decodeRecords[domain.Event](raw, domain.StreamEvents)
}

// AppendRequest appends a request log and returns its sequence number.
func (s *FSStore) AppendRequest(ctx context.Context, runID string, req *domain.RequestLog) (int, error) {
	return s.appendRecord(ctx, runID, domain.StreamRequests, req, nil)
}

// GetRequests returns the run's request logs in sequence order.
func (s *FSStore) GetRequests(ctx context.Context, runID string) ([]domain.RequestLog, error) {
	raw, err := s.readRecords(ctx, runID, domain.StreamRequests)
	if err != nil {
		return nil, err
	}
	return decodeRecords[domain.RequestLog](raw, domain.StreamRequests)
}

func decodeRecords[T any](raw []json.RawMessage, stream domain.Stream) ([]T, error) {
	out := make([]T, 0, len(raw))
	for i, r := range raw {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			return nil, fmt.Errorf("decode %s record %d: %w", stream, i+1, err)
		}
		out = append(out, v)
	}
	return out, nil
}
