package store

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/xiaot623/gogo/dashboard/internal/domain"
)

func newTestSQLiteLog(t *testing.T) *SQLiteLog {
	t.Helper()
	l, err := NewSQLiteLog(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite log: %v", err)
	}
	return l
}

func TestSQLiteLogAppendAndRead(t *testing.T) {
	ctx := context.Background()
	l := newTestSQLiteLog(t)
	defer l.Close()

	for i := 1; i <= 3; i++ {
		seq, err := l.Append(ctx, "r1", domain.StreamEvents, &domain.Event{EventType: "info"})
		if err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		if seq != i {
			t.Fatalf("expected sequence %d, got %d", i, seq)
		}
	}
	// Streams and runs are numbered independently.
	seq, err := l.Append(ctx, "r1", domain.StreamRequests, &domain.RequestLog{Service: "api"})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if seq != 1 {
		t.Fatalf("expected request sequence 1, got %d", seq)
	}
	seq, err = l.Append(ctx, "r2", domain.StreamEvents, &domain.Event{EventType: "info"})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if seq != 1 {
		t.Fatalf("expected r2 sequence 1, got %d", seq)
	}

	records, err := l.Read(ctx, "r1", domain.StreamEvents)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i, raw := range records {
		var e domain.Event
		if err := json.Unmarshal(raw, &e); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if e.Sequence != i+1 {
			t.Fatalf("expected sequence %d, got %d", i+1, e.Sequence)
		}
	}

	n, err := l.Count(ctx, "r1", domain.StreamEvents)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected count 3, got %d", n)
	}
}

func TestSQLiteLogRemove(t *testing.T) {
	ctx := context.Background()
	l := newTestSQLiteLog(t)
	defer l.Close()

	if _, err := l.Append(ctx, "r1", domain.StreamEvents, &domain.Event{EventType: "info"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := l.Remove(ctx, "r1"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	records, err := l.Read(ctx, "r1", domain.StreamEvents)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records after remove, got %d", len(records))
	}
}

func TestSQLiteLogConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	l := newTestSQLiteLog(t)
	defer l.Close()

	const n = 30
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Append(ctx, "r1", domain.StreamEvents, &domain.Event{EventType: "progress"}); err != nil {
				t.Errorf("Append failed: %v", err)
			}
		}()
	}
	wg.Wait()

	n2, err := l.Count(ctx, "r1", domain.StreamEvents)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n2 != n {
		t.Fatalf("expected %d records, got %d", n, n2)
	}
}

func TestFSStoreWithSQLiteLog(t *testing.T) {
	ctx := context.Background()
	s := newTestFSStore(t, WithLog(newTestSQLiteLog(t)))

	run, err := s.CreateRun(ctx, "docs/x", "analyse", nil)
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	for i := 1; i <= 2; i++ {
		seq, err := s.AppendEvent(ctx, run.RunID, &domain.Event{EventType: "info"})
		if err != nil {
			t.Fatalf("AppendEvent failed: %v", err)
		}
		if seq != i {
			t.Fatalf("expected sequence %d, got %d", i, seq)
		}
	}

	detail, err := s.GetRun(ctx, run.RunID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if detail.EventCount != 2 {
		t.Fatalf("expected 2 events, got %d", detail.EventCount)
	}

	if err := s.DeleteRun(ctx, run.RunID); err != nil {
		t.Fatalf("DeleteRun failed: %v", err)
	}
	n, err := s.log.Count(ctx, run.RunID, domain.StreamEvents)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected logs removed with run, got %d", n)
	}
}
