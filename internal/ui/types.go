package ui

import (
	"context"
	"os"

	"github.com/yildizm/GapReport/internal/logger"
	"github.com/yildizm/GapReport/internal/workflow"
)

// Controller is the part of workflow.Controller the TUI drives
type Controller interface {
	StartAnalysis(ctx context.Context, file workflow.SourceFile) error
	ViewReport(ctx context.Context) (workflow.Panel, error)
	DownloadReport(ctx context.Context) (*workflow.Download, error)
	ShowDownloadHistory(ctx context.Context) (workflow.Panel, error)
	CloseDownloadHistory()
	Snapshot() workflow.Snapshot
}

// Options configures the TUI. Controller and Recorder are required and the
// recorder must be the controller's presenter.
type Options struct {
	Controller Controller
	Recorder   *workflow.Recorder
	Logger     *logger.Logger

	Theme       string
	Color       bool
	InitialPath string

	// ReadFile loads the chosen spreadsheet, os.ReadFile when nil
	ReadFile func(path string) ([]byte, error)
}

func (o Options) readFile() func(string) ([]byte, error) {
	if o.ReadFile != nil {
		return o.ReadFile
	}
	return os.ReadFile
}
