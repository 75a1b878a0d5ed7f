package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/yildizm/GapReport/internal/ui"
	"github.com/yildizm/GapReport/internal/workflow"
)

const tuiLogFile = "gapreport-tui.log"

func newTUICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tui [FILE]",
		Short: "Run the interactive analysis workflow",
		Long: `Open the terminal interface: choose a spreadsheet, analyze it, view the
report, download the action report and browse the download history.

With --verbose, logs go to gapreport-tui.log in the temp directory so they
do not disturb the screen.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runTUI,
	}
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg := GetGlobalConfig()

	var logOut io.Writer = io.Discard
	if isVerbose() {
		f, err := tea.LogToFile(filepath.Join(os.TempDir(), tuiLogFile), "gapreport")
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer func() { _ = f.Close() }()
		logOut = f
	}
	log := newLogger(logOut)
	defer func() { _ = log.Sync() }()

	ctx := commandContext(cmd)
	svc, err := openServices(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	rec := workflow.NewRecorder(workflow.DefaultLabels())
	ctrl, err := svc.controller(rec)
	if err != nil {
		return err
	}

	opts := ui.Options{
		Controller: ctrl,
		Recorder:   rec,
		Logger:     log,
		Theme:      cfg.Output.Theme,
		Color:      useColor(os.Stdout),
	}
	if len(args) == 1 {
		opts.InitialPath = args[0]
	}
	return ui.Run(ctx, opts)
}
