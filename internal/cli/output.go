package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/yildizm/GapReport/internal/emoji"
	"github.com/yildizm/GapReport/internal/formatter"
	"github.com/yildizm/GapReport/internal/workflow"
)

// consolePresenter prints controller notices as lines. Error notices are
// left out because the failing call returns the same diagnostic.
type consolePresenter struct {
	mu sync.Mutex
	w  io.Writer
}

func newConsolePresenter(w io.Writer) *consolePresenter {
	return &consolePresenter{w: w}
}

func (p *consolePresenter) SetBusy(bool)                              {}
func (p *consolePresenter) SetControl(workflow.Control, bool, string) {}
func (p *consolePresenter) SetActionsVisible(bool)                    {}
func (p *consolePresenter) ClearFileInput()                           {}
func (p *consolePresenter) ShowPanel(workflow.Panel)                  {}
func (p *consolePresenter) ClosePanel(workflow.PanelKind)             {}

func (p *consolePresenter) Notify(n workflow.Notice) {
	if n.Level == workflow.LevelError {
		return
	}
	key := "info"
	if n.Level == workflow.LevelWarning {
		key = "warning"
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "%s %s\n", emoji.GetEmoji(key), formatter.CleanLine(n.Message))
}

// writeOutput sends output to path, or to w when path is empty
func writeOutput(w io.Writer, output []byte, path string) error {
	if path == "" {
		_, err := w.Write(output)
		return err
	}

	if err := validateOutputFilePath(path); err != nil {
		return fmt.Errorf("invalid output file path: %w", err)
	}
	if err := writeOutputBytesToFile(output, path); err != nil {
		return fmt.Errorf("failed to write output to file: %w", err)
	}
	return nil
}

func validateFilePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty file path")
	}

	cleanPath := filepath.Clean(path)

	info, err := os.Stat(cleanPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file does not exist: %s", cleanPath)
		}
		return fmt.Errorf("cannot access file: %w", err)
	}

	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", cleanPath)
	}

	return nil
}

func validateOutputFilePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty file path")
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return fmt.Errorf("path is a directory: %s", path)
	}
	return nil
}

// writeOutputBytesToFile writes output to a file with proper error handling
func writeOutputBytesToFile(output []byte, filePath string) error {
	cleanPath := filepath.Clean(filePath)

	file, err := os.Create(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && isVerbose() {
			fmt.Fprintf(os.Stderr, "Warning: failed to close output file: %v\n", closeErr)
		}
	}()

	if _, err := file.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	// Sync to ensure data is written
	if err := file.Sync(); err != nil {
		return fmt.Errorf("failed to sync output file: %w", err)
	}

	return nil
}
