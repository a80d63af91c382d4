package filestore

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Default log file names.
const (
	StockAlertLogFileName = "stock_alert_log.csv"
	IssueLogFileName      = "issue_log.csv"
)

// Codec maps one entry kind to a CSV row and back.
type Codec[E any] interface {
	Header() []string
	Encode(entry E) []string
	Decode(row []string) (E, error)
}

// EventLog is an append-only CSV collection. Every Append reads the whole file,
// adds the entry after the existing rows and rewrites the file.
type EventLog[E any] struct {
	path   string
	codec  Codec[E]
	mu     sync.Mutex
	logger *zap.Logger
	now    func() time.Time
}

// NewEventLog builds a CSV backed log at path.
func NewEventLog[E any](path string, codec Codec[E], logger *zap.Logger) *EventLog[E] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventLog[E]{path: path, codec: codec, logger: logger, now: time.Now}
}

// Append adds entry to the end of the log.
func (l *EventLog[E]) Append(_ context.Context, entry E) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.read()
	if err != nil {
		// Unreadable logs restart empty; keep the old bytes aside instead of
		// overwriting them.
		backup := fmt.Sprintf("%s.corrupt-%d", l.path, l.now().UnixNano())
		l.logger.Warn("event log unreadable, starting empty",
			zap.String("path", l.path),
			zap.String("backup", backup),
			zap.Error(err))
		if renameErr := os.Rename(l.path, backup); renameErr != nil {
			return fmt.Errorf("move aside unreadable log %s: %w", l.path, renameErr)
		}
		entries = nil
	}

	entries = append(entries, entry)
	if err := l.write(entries); err != nil {
		return fmt.Errorf("write event log %s: %w", l.path, err)
	}

	l.logger.Debug("event appended", zap.String("path", l.path), zap.Int("entries", len(entries)))
	return nil
}

// Entries returns every entry in insertion order. A missing file is empty.
func (l *EventLog[E]) Entries(_ context.Context) ([]E, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.read()
}

func (l *EventLog[E]) read() ([]E, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	if header := l.codec.Header(); !slices.Equal(trimmed(rows[0]), header) {
		return nil, fmt.Errorf("unexpected header %v, want %v", rows[0], header)
	}

	entries := make([]E, 0, len(rows)-1)
	for i, row := range rows[1:] {
		entry, err := l.codec.Decode(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (l *EventLog[E]) write(entries []E) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(l.codec.Header()); err != nil {
		return err
	}
	for _, entry := range entries {
		if err := w.Write(l.codec.Encode(entry)); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return writeFileAtomic(l.path, buf.Bytes())
}
