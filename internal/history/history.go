// Package history keeps a short newest-first log of downloaded reports
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/yildizm/GapReport/internal/kv"
)

const (
	// DefaultKey is the store key holding the log
	DefaultKey = "download_history"

	// DefaultLimit is the number of entries kept
	DefaultLimit = 10

	// TimestampLayout is ISO-8601 with milliseconds in UTC
	TimestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

// Entry is one downloaded report
type Entry struct {
	Filename  string `json:"filename"`
	Timestamp string `json:"timestamp"`
}

// Time parses the stored timestamp
func (e Entry) Time() (time.Time, error) {
	t, err := time.Parse(TimestampLayout, e.Timestamp)
	if err != nil {
		return time.Parse(time.RFC3339Nano, e.Timestamp)
	}
	return t, nil
}

// Log is a capped list of entries stored under one key
type Log struct {
	mu    sync.Mutex
	store kv.Store
	key   string
	limit int
}

// New returns a log over store. Empty key and non-positive limit fall back
// to the defaults.
func New(store kv.Store, key string, limit int) *Log {
	if key == "" {
		key = DefaultKey
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Log{store: store, key: key, limit: limit}
}

// Append records filename at the front and trims the log
func (l *Log) Append(ctx context.Context, filename string, at time.Time) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.read(ctx)
	if err != nil {
		return Entry{}, err
	}

	entry := Entry{Filename: filename, Timestamp: at.UTC().Format(TimestampLayout)}
	entries = append([]Entry{entry}, entries...)
	if len(entries) > l.limit {
		entries = entries[:l.limit]
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to encode download history: %w", err)
	}
	if err := l.store.Set(ctx, l.key, data); err != nil {
		return Entry{}, fmt.Errorf("failed to save download history: %w", err)
	}
	return entry, nil
}

// List returns the entries newest first
func (l *Log) List(ctx context.Context) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.read(ctx)
}

// Clear removes every entry
func (l *Log) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.store.Delete(ctx, l.key); err != nil {
		return fmt.Errorf("failed to clear download history: %w", err)
	}
	return nil
}

// Limit returns the maximum number of entries kept
func (l *Log) Limit() int {
	return l.limit
}

func (l *Log) read(ctx context.Context) ([]Entry, error) {
	data, ok, err := l.store.Get(ctx, l.key)
	if err != nil {
		return nil, fmt.Errorf("failed to read download history: %w", err)
	}
	if !ok || len(data) == 0 {
		return []Entry{}, nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("download history under %q is corrupt: %w", l.key, err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}
