package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// File keeps every key in one JSON object on disk. Values are stored as
// strings so a history log stays readable with a text editor.
type File struct {
	mu     sync.Mutex
	path   string
	closed bool
}

// NewFile opens (without creating) a JSON store at path
func NewFile(path string) (*File, error) {
	if path == "" {
		return nil, fmt.Errorf("kv: file backend needs a path")
	}
	return &File{path: filepath.Clean(path)}, nil
}

// Path returns the backing file location
func (f *File) Path() string {
	return f.path
}

func (f *File) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, false, ErrClosed
	}

	data, err := f.load()
	if err != nil {
		return nil, false, err
	}
	v, ok := data[key]
	if !ok {
		return nil, false, nil
	}
	return []byte(v), true, nil
}

func (f *File) Set(ctx context.Context, key string, value []byte) error {
	return f.update(ctx, func(data map[string]string) {
		data[key] = string(value)
	})
}

func (f *File) Delete(ctx context.Context, key string) error {
	return f.update(ctx, func(data map[string]string) {
		delete(data, key)
	})
}

func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *File) update(ctx context.Context, mutate func(map[string]string)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}

	data, err := f.load()
	if err != nil {
		return err
	}
	mutate(data)
	return f.save(data)
}

func (f *File) load() (map[string]string, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("kv: failed to read %s: %w", f.path, err)
	}
	data := make(map[string]string)
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("kv: %s is corrupt: %w", f.path, err)
	}
	return data, nil
}

// save writes through a temp file and rename so readers never see a torn file
func (f *File) save(data map[string]string) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("kv: failed to create %s: %w", dir, err)
	}

	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("kv: failed to encode: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".kv-*.tmp")
	if err != nil {
		return fmt.Errorf("kv: failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(encoded); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("kv: failed to write: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("kv: failed to chmod: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("kv: failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("kv: failed to replace %s: %w", f.path, err)
	}
	return nil
}
