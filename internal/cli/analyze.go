package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/yildizm/GapReport/internal/backend"
	"github.com/yildizm/GapReport/internal/emoji"
	"github.com/yildizm/GapReport/internal/formatter"
	"github.com/yildizm/GapReport/internal/workflow"
)

var (
	analyzeView       bool
	analyzeHTML       bool
	analyzeDownload   bool
	analyzeNoSummary  bool
	analyzeTimeout    time.Duration
	analyzeOutputFile string
	analyzeStats      bool
)

func newAnalyzeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Analyze an observation spreadsheet",
		Long: `Upload an observation spreadsheet for PCI DSS gap analysis and print
a summary of the findings.

The report can be shown in the terminal with --view and saved as a
spreadsheet with --download.

Examples:
  gapreport analyze observations.xlsx
  gapreport analyze --view observations.xlsx
  gapreport analyze --download --output json observations.xlsx
  gapreport analyze --view --html --no-summary observations.xlsx > report.html
  gapreport analyze --stats observations.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: runAnalyze,
	}

	cmd.Flags().BoolVar(&analyzeView, "view", false, "show the formatted report")
	cmd.Flags().BoolVar(&analyzeHTML, "html", false, "print the report as raw HTML (with --view)")
	cmd.Flags().BoolVarP(&analyzeDownload, "download", "d", false, "save the action report spreadsheet")
	cmd.Flags().BoolVar(&analyzeNoSummary, "no-summary", false, "do not print the findings summary")
	cmd.Flags().DurationVar(&analyzeTimeout, "timeout", 0, "analysis timeout (0 uses the configured value)")
	cmd.Flags().StringVar(&analyzeOutputFile, "output-file", "", "save the summary to file instead of stdout")
	cmd.Flags().BoolVar(&analyzeStats, "stats", false, "print backend request statistics to stderr")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := GetGlobalConfig()
	if cmd.Flag("timeout").Changed {
		cfg.Analysis.Timeout = analyzeTimeout
	}

	var summary formatter.Formatter
	if !analyzeNoSummary {
		var err error
		summary, err = formatter.New(getOutputFormat(), analyzeOutputFile == "" && useColor(cmd.OutOrStdout()))
		if err != nil {
			return err
		}
	}

	path := args[0]
	if err := validateFilePath(path); err != nil {
		return fmt.Errorf("invalid input file: %w", err)
	}
	// #nosec G304 - path is validated above
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	log := newLogger(cmd.ErrOrStderr())
	defer func() { _ = log.Sync() }()

	ctx := commandContext(cmd)
	svc, err := openServices(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()
	if analyzeStats {
		defer func() { _ = svc.writeStats(cmd.ErrOrStderr()) }()
	}

	ctrl, err := svc.controller(newConsolePresenter(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}

	actx, cancel := svc.analysisContext(ctx)
	defer cancel()

	source := workflow.SourceFile{Name: filepath.Base(path), Data: data}
	session, err := ctrl.Analyze(actx, source)
	if err != nil {
		return fmt.Errorf("analysis failed: %s", backend.DiagnosticOf(err))
	}

	if summary != nil {
		if err := printSummary(cmd, summary, session); err != nil {
			return err
		}
	}

	if analyzeView {
		if err := printReport(cmd, ctrl); err != nil {
			return err
		}
	}

	if analyzeDownload {
		dl, err := ctrl.DownloadReport(ctx)
		if err != nil {
			return fmt.Errorf("download failed: %s", backend.DiagnosticOf(err))
		}
		if isVerbose() {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %d bytes written to %s\n", emoji.GetEmoji("spreadsheet"), dl.Size, dl.Location)
		}
	}

	return nil
}

func printSummary(cmd *cobra.Command, f formatter.Formatter, session workflow.Session) error {
	output, err := f.Format(&formatter.Summary{
		Source:      session.Source.Name,
		SessionID:   session.ID,
		Findings:    session.Findings,
		GeneratedAt: session.Completed,
	})
	if err != nil {
		return fmt.Errorf("failed to format summary: %w", err)
	}
	return writeOutput(cmd.OutOrStdout(), output, analyzeOutputFile)
}

// printReport shows the report panel. HTML is converted for the terminal
// unless --html asks for the markup itself.
func printReport(cmd *cobra.Command, ctrl *workflow.Controller) error {
	panel, err := ctrl.ViewReport(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to load report: %s", backend.DiagnosticOf(err))
	}

	out := cmd.OutOrStdout()
	switch {
	case panel.Kind == workflow.PanelNoFindings, analyzeHTML:
		fmt.Fprintln(out, panel.Body)
	default:
		fmt.Fprint(out, formatter.HTMLToText([]byte(panel.Body)))
	}
	return nil
}
