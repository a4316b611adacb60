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

// JSONLLog implements SequencedLog with one newline-delimited JSON file per
// run and stream: runs/{run_id}/{stream}.jsonl.
//
// The sequence number is the count of existing non-blank lines plus one, so
// every append rereads the file. That is fine for the hundreds to low
// thousands of records a run produces.
type JSONLLog struct {
	runsPath string
}

// NewJSONLLog creates a JSONL log rooted at the runs directory.
func NewJSONLLog(runsPath string) *JSONLLog {
	return &JSONLLog{runsPath: runsPath}
}

func (l *JSONLLog) path(runID string, stream domain.Stream) string {
	return filepath.Join(l.runsPath, runID, string(stream)+".jsonl")
}

// Append writes rec as the next line of the stream and returns its sequence.
func (l *JSONLLog) Append(ctx context.Context, runID string, stream domain.Stream, rec domain.Record) (int, error) {
	path := l.path(runID, stream)
	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return 0, fmt.Errorf("read %s log: %w", stream, err)
	}

	sequence := len(nonBlankLines(existing)) + 1
	rec.SetSequence(sequence)
	line, err := json.Marshal(rec)
	if err != nil {
		return 0, fmt.Errorf("marshal %s record: %w", stream, err)
	}

	// A torn final line must not swallow the next record.
	var buf []byte
	if n := len(existing); n > 0 && existing[n-1] != '\n' {
		buf = append(buf, '\n')
	}
	buf = append(buf, line...)
	buf = append(buf, '\n')

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open %s log: %w", stream, err)
	}
	defer f.Close()
	if _, err := f.Write(buf); err != nil {
		return 0, fmt.Errorf("append %s record: %w", stream, err)
	}
	return sequence, nil
}

// Read returns the raw records of the stream in append order. A missing file
// reads as an empty stream. Reads take no lock, so a record whose line is not
// yet terminated is not returned.
func (l *JSONLLog) Read(ctx context.Context, runID string, stream domain.Stream) ([]json.RawMessage, error) {
	data, err := os.ReadFile(l.path(runID, stream))
	if errors.Is(err, fs.ErrNotExist) {
		return []json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s log: %w", stream, err)
	}

	lines := completeLines(data)
	records := make([]json.RawMessage, 0, len(lines))
	for i, line := range lines {
		if !json.Valid(line) {
			return nil, fmt.Errorf("parse %s record %d of run %s: invalid json", stream, i+1, runID)
		}
		records = append(records, json.RawMessage(line))
	}
	return records, nil
}

// Count returns the number of records in the stream.
func (l *JSONLLog) Count(ctx context.Context, runID string, stream domain.Stream) (int, error) {
	data, err := os.ReadFile(l.path(runID, stream))
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read %s log: %w", stream, err)
	}
	return len(completeLines(data)), nil
}

// Remove is a no-op: the files go away with the run directory.
func (l *JSONLLog) Remove(ctx context.Context, runID string) error {
	return nil
}

// Close is a no-op.
func (l *JSONLLog) Close() error {
	return nil
}
