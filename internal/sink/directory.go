package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Directory writes reports into a local folder. An existing file with the
// same name is replaced.
type Directory struct {
	dir string
}

func NewDirectory(dir string) (*Directory, error) {
	if dir == "" {
		return nil, fmt.Errorf("sink: directory is required")
	}
	return &Directory{dir: filepath.Clean(dir)}, nil
}

// Dir returns the target folder
func (d *Directory) Dir() string {
	return d.dir
}

func (d *Directory) Save(ctx context.Context, name, _ string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := validateName(name); err != nil {
		return "", err
	}
	if err := os.MkdirAll(d.dir, 0o750); err != nil {
		return "", fmt.Errorf("sink: failed to create %s: %w", d.dir, err)
	}

	target := filepath.Join(d.dir, name)
	tmp, err := os.CreateTemp(d.dir, "."+name+".*.part")
	if err != nil {
		return "", fmt.Errorf("sink: failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("sink: failed to write %s: %w", name, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("sink: failed to chmod %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("sink: failed to close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return "", fmt.Errorf("sink: failed to move %s into place: %w", name, err)
	}

	return target, nil
}
