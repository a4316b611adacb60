package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/dashboard/internal/domain"
)

var fixedNow = time.Date(2024, 1, 15, 14, 30, 22, 0, time.UTC)

func newTestFSStore(t *testing.T, opts ...Option) *FSStore {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	s, err := NewFSStore(t.TempDir(), opts...)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func strPtr(s string) *string { return &s }

func TestCreateRunAllocatesDirectory(t *testing.T) {
	ctx := context.Background()
	s := newTestFSStore(t)

	run, err := s.CreateRun(ctx, "docs/x", "analyse", strPtr("nightly"))
	require.NoError(t, err)

	assert.Equal(t, "20240115-143022", run.RunID)
	assert.Equal(t, domain.RunStatusCreated, run.Status)
	assert.Equal(t, fixedNow, run.Created)
	assert.Equal(t, run.Created, run.Updated)
	assert.Nil(t, run.Summary)

	info, err := os.Stat(filepath.Join(s.RunsPath(), run.RunID, reportsDir))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	_, err = os.Stat(filepath.Join(s.RunsPath(), run.RunID, metaFile))
	require.NoError(t, err)

	detail, err := s.GetRun(ctx, run.RunID)
	require.NoError(t, err)
	assert.Equal(t, "docs/x", detail.Target)
	assert.Equal(t, "nightly", *detail.Description)
	assert.Zero(t, detail.EventCount)
	assert.Zero(t, detail.RequestCount)
	assert.Zero(t, detail.TimingCount)
}

func TestCreateRunSameSecondSuffixes(t *testing.T) {
	ctx := context.Background()
	s := newTestFSStore(t)

	var ids []string
	for i := 0; i < 3; i++ {
		run, err := s.CreateRun(ctx, "t", "analyse", nil)
		require.NoError(t, err)
		ids = append(ids, run.RunID)
	}
	assert.Equal(t, []string{"20240115-143022", "20240115-143022-1", "20240115-143022-2"}, ids)
}

func TestCreateRunConcurrentIDsUnique(t *testing.T) {
	ctx := context.Background()
	s := newTestFSStore(t)

	const n = 20
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			run, err := s.CreateRun(ctx, "t", "analyse", nil)
			if err != nil {
				t.Errorf("CreateRun failed: %v", err)
				return
			}
			ids[i] = run.RunID
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate run id %s", id)
		seen[id] = true
	}
}

func TestGetRunNotFound(t *testing.T) {
	s := newTestFSStore(t)
	_, err := s.GetRun(context.Background(), "20990101-000000")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInvalidRunIDsAreNotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestFSStore(t)

	for _, id := range []string{"", ".", "..", "../x", `a\b`, "a/b"} {
		t.Run(fmt.Sprintf("%q", id), func(t *testing.T) {
			_, err := s.GetRun(ctx, id)
			assert.ErrorIs(t, err, domain.ErrNotFound)
			_, err = s.AppendEvent(ctx, id, &domain.Event{EventType: "info"})
			assert.ErrorIs(t, err, domain.ErrNotFound)
			assert.ErrorIs(t, s.DeleteRun(ctx, id), domain.ErrNotFound)
		})
	}
}

func TestUpdateRun(t *testing.T) {
	ctx := context.Background()
	now := fixedNow
	s := newTestFSStore(t, WithClock(func() time.Time { return now }))

	run, err := s.CreateRun(ctx, "t", "analyse", nil)
	require.NoError(t, err)

	now = fixedNow.Add(time.Minute)
	detail, err := s.UpdateRun(ctx, run.RunID, domain.RunStatusRunning, "stage 1", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusRunning, detail.Status)
	assert.Equal(t, "stage 1", detail.StatusMessage)
	assert.Equal(t, now, detail.Updated)
	assert.Equal(t, fixedNow, detail.Created)
	assert.Nil(t, detail.Summary)

	detail, err = s.UpdateRun(ctx, run.RunID, domain.RunStatusCompleted, "", map[string]any{"ok": true})
	require.NoError(t, err)
	assert.Equal(t, "stage 1", detail.StatusMessage)
	assert.Equal(t, map[string]any{"ok": true}, detail.Summary)

	// Summary is replaced wholesale.
	detail, err = s.UpdateRun(ctx, run.RunID, domain.RunStatusCompleted, "", map[string]any{"pages": float64(3)})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"pages": float64(3)}, detail.Summary)

	_, err = s.UpdateRun(ctx, "20990101-000000", domain.RunStatusFailed, "", nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAppendEventsSequence(t *testing.T) {
	ctx := context.Background()
	s := newTestFSStore(t)

	run, err := s.CreateRun(ctx, "t", "analyse", nil)
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		seq, err := s.AppendEvent(ctx, run.RunID, &domain.Event{EventType: domain.EventTypeInfo, Message: fmt.Sprintf("e%d", i)})
		require.NoError(t, err)
		assert.Equal(t, i, seq)
	}

	events, err := s.GetEvents(ctx, run.RunID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i, e := range events {
		assert.Equal(t, i+1, e.Sequence)
		assert.Equal(t, fmt.Sprintf("e%d", i+1), e.Message)
		assert.Equal(t, domain.FormatTime(fixedNow), e.Timestamp)
	}
}

func TestAppendEventKeepsCallerTimestamp(t *testing.T) {
	ctx := context.Background()
	s := newTestFSStore(t)
	run, err := s.CreateRun(ctx, "t", "analyse", nil)
	require.NoError(t, err)

	_, err = s.AppendEvent(ctx, run.RunID, &domain.Event{EventType: "info", Timestamp: "2023-05-01T00:00:00Z"})
	require.NoError(t, err)

	events, err := s.GetEvents(ctx, run.RunID)
	require.NoError(t, err)
	assert.Equal(t, "2023-05-01T00:00:00Z", events[0].Timestamp)
}

func TestAppendToMissingRun(t *testing.T) {
	ctx := context.Background()
	s := newTestFSStore(t)

	_, err := s.AppendEvent(ctx, "20990101-000000", &domain.Event{EventType: "info"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.AppendRequest(ctx, "20990101-000000", &domain.RequestLog{Service: "api"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.GetEvents(ctx, "20990101-000000")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.GetRequests(ctx, "20990101-000000")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEmptyStreamsReadAsEmpty(t *testing.T) {
	ctx := context.Background()
	s := newTestFSStore(t)
	run, err := s.CreateRun(ctx, "t", "analyse", nil)
	require.NoError(t, err)

	events, err := s.GetEvents(ctx, run.RunID)
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)

	requests, err := s.GetRequests(ctx, run.RunID)
	require.NoError(t, err)
	assert.NotNil(t, requests)
	assert.Empty(t, requests)
}

func TestReadsDuringAppendsSeeCompleteRecords(t *testing.T) {
	ctx := context.Background()
	s := newTestFSStore(t)
	run, err := s.CreateRun(ctx, "t", "analyse", nil)
	require.NoError(t, err)

	const n = 100
	message := strings.Repeat("x", 32*1024)

	done := make(chan struct{})
	readErrs := make(chan error, 1)
	go func() {
		defer close(readErrs)
		last := 0
		for {
			select {
			case <-done:
				return
			default:
			}
			events, err := s.GetEvents(ctx, run.RunID)
			if err != nil {
				readErrs <- err
				return
			}
			if len(events) < last {
				readErrs <- fmt.Errorf("event count went back from %d to %d", last, len(events))
				return
			}
			for i, e := range events {
				if e.Sequence != i+1 {
					readErrs <- fmt.Errorf("event %d has sequence %d", i, e.Sequence)
					return
				}
			}
			last = len(events)
		}
	}()

	for i := 0; i < n; i++ {
		_, err := s.AppendEvent(ctx, run.RunID, &domain.Event{EventType: "progress", Message: message})
		require.NoError(t, err)
	}
	close(done)
	require.NoError(t, <-readErrs)

	events, err := s.GetEvents(ctx, run.RunID)
	require.NoError(t, err)
	assert.Len(t, events, n)
}

func TestAppendEventFuncRunsUnderRunLock(t *testing.T) {
	ctx := context.Background()
	s := newTestFSStore(t)
	run, err := s.CreateRun(ctx, "t", "analyse", nil)
	require.NoError(t, err)

	var got []int
	for i := 0; i < 3; i++ {
		seq, err := s.AppendEventFunc(ctx, run.RunID, &domain.Event{EventType: "info"}, func(seq int) {
			assert.Equal(t, 1, s.locks.size())
			got = append(got, seq)
		})
		require.NoError(t, err)
		assert.Equal(t, i+1, seq)
	}
	assert.Equal(t, []int{1, 2, 3}, got)

	called := false
	_, err = s.AppendEventFunc(ctx, "20990101-000000", &domain.Event{EventType: "info"}, func(int) { called = true })
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.False(t, called)
}

func TestConcurrentAppendsAreGapless(t *testing.T) {
	ctx := context.Background()
	s := newTestFSStore(t)
	run, err := s.CreateRun(ctx, "t", "analyse", nil)
	require.NoError(t, err)

	const n = 50
	seqs := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq, err := s.AppendEvent(ctx, run.RunID, &domain.Event{EventType: "progress"})
			if err != nil {
				t.Errorf("AppendEvent failed: %v", err)
				return
			}
			seqs <- seq
		}()
	}
	wg.Wait()
	close(seqs)

	seen := make(map[int]bool)
	for seq := range seqs {
		seen[seq] = true
	}
	for i := 1; i <= n; i++ {
		assert.True(t, seen[i], "missing sequence %d", i)
	}

	events, err := s.GetEvents(ctx, run.RunID)
	require.NoError(t, err)
	require.Len(t, events, n)
	for i, e := range events {
		assert.Equal(t, i+1, e.Sequence)
	}
	assert.Zero(t, s.locks.size())
}

func TestListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	now := fixedNow
	s := newTestFSStore(t, WithClock(func() time.Time { return now }))

	var ids []string
	for i := 0; i < 3; i++ {
		run, err := s.CreateRun(ctx, "t", "analyse", nil)
		require.NoError(t, err)
		ids = append(ids, run.RunID)
		now = now.Add(time.Hour)
	}
	_, err := s.AppendEvent(ctx, ids[1], &domain.Event{EventType: "info"})
	require.NoError(t, err)

	listing, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, listing.Runs, 3)
	assert.Equal(t, ids[2], listing.Runs[0].RunID)
	assert.Equal(t, ids[1], listing.Runs[1].RunID)
	assert.Equal(t, ids[0], listing.Runs[2].RunID)
	assert.Equal(t, 1, listing.Runs[1].EventCount)
	assert.Empty(t, listing.Skipped)
}

func TestListRunsSkipsCorruptMetadata(t *testing.T) {
	ctx := context.Background()
	s := newTestFSStore(t)

	run, err := s.CreateRun(ctx, "t", "analyse", nil)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(s.RunsPath(), "20230101-000000"), 0o755))
	bad := filepath.Join(s.RunsPath(), "20230102-000000")
	require.NoError(t, os.MkdirAll(bad, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(bad, metaFile), []byte("{not json"), 0o644))

	listing, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, listing.Runs, 1)
	assert.Equal(t, run.RunID, listing.Runs[0].RunID)
	assert.ElementsMatch(t, []string{"20230101-000000", "20230102-000000"}, listing.Skipped)
}

func TestListRunsEmpty(t *testing.T) {
	s := newTestFSStore(t)
	listing, err := s.ListRuns(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, listing.Runs)
	assert.Empty(t, listing.Runs)
}

func TestDeleteRun(t *testing.T) {
	ctx := context.Background()
	s := newTestFSStore(t)
	run, err := s.CreateRun(ctx, "t", "analyse", nil)
	require.NoError(t, err)
	_, err = s.AppendEvent(ctx, run.RunID, &domain.Event{EventType: "info"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteRun(ctx, run.RunID))

	_, err = os.Stat(filepath.Join(s.RunsPath(), run.RunID))
	assert.True(t, os.IsNotExist(err))
	_, err = s.GetRun(ctx, run.RunID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, s.DeleteRun(ctx, run.RunID), domain.ErrNotFound)
}

func TestDeleteRunSymlinkOutsideRoot(t *testing.T) {
	ctx := context.Background()
	s := newTestFSStore(t)

	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "keep.txt"), []byte("x"), 0o644))
	link := filepath.Join(s.RunsPath(), "20230101-000000")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	err := s.DeleteRun(ctx, "20230101-000000")
	assert.ErrorIs(t, err, domain.ErrPathViolation)
	assert.False(t, errors.Is(err, domain.ErrNotFound))

	_, err = os.Stat(filepath.Join(outside, "keep.txt"))
	assert.NoError(t, err)
}

func TestRunScenario(t *testing.T) {
	ctx := context.Background()
	s := newTestFSStore(t)

	run, err := s.CreateRun(ctx, "docs/x", "analyse", nil)
	require.NoError(t, err)

	_, err = s.AppendEvent(ctx, run.RunID, &domain.Event{EventType: domain.EventTypeStageStart, StageName: "fetch"})
	require.NoError(t, err)
	_, err = s.AppendEvent(ctx, run.RunID, &domain.Event{EventType: domain.EventTypeStageEnd, StageName: "fetch"})
	require.NoError(t, err)
	status := 200
	seq, err := s.AppendRequest(ctx, run.RunID, &domain.RequestLog{Service: "search", Method: "GET", URL: "/api/q", ResponseStatus: &status})
	require.NoError(t, err)
	assert.Equal(t, 1, seq)

	_, err = s.UpdateRun(ctx, run.RunID, domain.RunStatusCompleted, "", map[string]any{"ok": true})
	require.NoError(t, err)

	detail, err := s.GetRun(ctx, run.RunID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, detail.Status)
	assert.Equal(t, 2, detail.EventCount)
	assert.Equal(t, 1, detail.RequestCount)
	assert.Equal(t, map[string]any{"ok": true}, detail.Summary)
}
