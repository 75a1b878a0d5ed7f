package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/yildizm/GapReport/internal/backend"
	"github.com/yildizm/GapReport/internal/emoji"
	"github.com/yildizm/GapReport/internal/formatter"
	"github.com/yildizm/GapReport/internal/logger"
	"github.com/yildizm/GapReport/internal/workflow"
	"golang.org/x/sync/errgroup"
)

var (
	watchDownload bool
	watchDebounce time.Duration
	watchStats    bool
)

func newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch DIR",
		Short: "Analyze spreadsheets dropped into a directory",
		Long: `Watch a directory and analyze every spreadsheet that is created or
updated in it. A new file supersedes an analysis that is still running.
Press Ctrl+C to stop watching.

Examples:
  gapreport watch ./inbox
  gapreport watch --download --debounce 2s ./inbox`,
		Args: cobra.ExactArgs(1),
		RunE: runWatch,
	}

	cmd.Flags().BoolVarP(&watchDownload, "download", "d", false, "save the action report of every successful analysis")
	cmd.Flags().BoolVar(&watchStats, "stats", false, "print backend request statistics when watching stops")
	cmd.Flags().DurationVar(&watchDebounce, "debounce", 0, "quiet period before a changed file is analyzed (0 uses the configured value)")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := GetGlobalConfig()
	dir := args[0]
	if err := validateWatchDir(dir); err != nil {
		return fmt.Errorf("invalid directory: %w", err)
	}

	summary, err := formatter.New(getOutputFormat(), false)
	if err != nil {
		return err
	}

	debounce := cfg.Analysis.WatchDebounce
	if cmd.Flag("debounce").Changed {
		debounce = watchDebounce
	}

	errOut := cmd.ErrOrStderr()
	log := newLogger(errOut)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := openServices(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	ctrl, err := svc.controller(newConsolePresenter(errOut))
	if err != nil {
		return err
	}

	r := &dropRunner{
		svc:      svc,
		ctrl:     ctrl,
		summary:  summary,
		out:      cmd.OutOrStdout(),
		errOut:   errOut,
		download: watchDownload,
		log:      log.WithComponent("watch"),
	}
	w, err := openDropWatcher(dir, debounce, cfg.Analysis.AllowedExtensions, log.WithComponent("watch"))
	if err != nil {
		return err
	}
	defer w.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.run(gctx, func(path string) {
			g.Go(func() error {
				r.handle(gctx, path)
				return nil
			})
		})
	})

	fmt.Fprintf(errOut, "%s Watching %s for spreadsheets (Ctrl+C to stop)\n", emoji.GetEmoji("folder"), dir)
	if err := g.Wait(); err != nil {
		return err
	}
	if isVerbose() {
		fmt.Fprintln(errOut, "Stopped watching")
	}
	if watchStats {
		return svc.writeStats(errOut)
	}
	return nil
}

// dropRunner analyzes dropped files through one shared controller, so a
// newer file cancels the older run
type dropRunner struct {
	svc      *services
	ctrl     *workflow.Controller
	summary  formatter.Formatter
	out      io.Writer
	errOut   io.Writer
	download bool
	log      *logger.Logger

	mu sync.Mutex // serializes output
}

func (r *dropRunner) handle(ctx context.Context, path string) {
	name := filepath.Base(path)

	// #nosec G304 - path comes from the watched directory
	data, err := os.ReadFile(path)
	if err != nil {
		r.printf("%s Cannot read %s: %v\n", emoji.GetEmoji("warning"), name, err)
		return
	}

	actx, cancel := r.svc.analysisContext(ctx)
	defer cancel()

	session, err := r.ctrl.Analyze(actx, workflow.SourceFile{Name: name, Data: data})
	switch {
	case errors.Is(err, workflow.ErrSuperseded):
		r.log.Debug("analysis of %s superseded", name)
		return
	case err != nil:
		r.printf("%s %s: %s\n", emoji.GetEmoji("error"), name, backend.DiagnosticOf(err))
		return
	}

	output, err := r.summary.Format(&formatter.Summary{
		Source:      name,
		SessionID:   session.ID,
		Findings:    session.Findings,
		GeneratedAt: session.Completed,
	})
	if err != nil {
		r.log.Warn("failed to format summary for %s: %v", name, err)
	} else {
		r.mu.Lock()
		_, _ = r.out.Write(output)
		r.mu.Unlock()
	}

	if !r.download {
		return
	}
	// a newer file may have replaced this session since the analysis finished
	_, err = r.ctrl.DownloadReportFor(ctx, session.Generation)
	switch {
	case errors.Is(err, workflow.ErrSuperseded):
		r.log.Debug("download of %s superseded", name)
	case err != nil:
		r.printf("%s %s: download failed: %s\n", emoji.GetEmoji("error"), name, backend.DiagnosticOf(err))
	}
}

func (r *dropRunner) printf(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.errOut, format, args...)
}

// dropWatcher reports files in dir once they have been quiet for debounce
type dropWatcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	allowed  []string
	log      *logger.Logger
}

// openDropWatcher starts watching dir. Events are buffered by fsnotify
// until run is called.
func openDropWatcher(dir string, debounce time.Duration, allowed []string, log *logger.Logger) (*dropWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		cleanupWatcher(watcher)
		return nil, fmt.Errorf("failed to watch directory: %w", err)
	}
	return &dropWatcher{watcher: watcher, debounce: debounce, allowed: allowed, log: log}, nil
}

func (w *dropWatcher) Close() {
	cleanupWatcher(w.watcher)
}

func (w *dropWatcher) run(ctx context.Context, handle func(path string)) error {
	watcher := w.watcher

	done := make(chan struct{})
	defer close(done)

	fire := make(chan string)
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !w.accepts(event) {
				continue
			}
			if t, ok := timers[event.Name]; ok {
				t.Reset(w.debounce)
				continue
			}
			name := event.Name
			timers[name] = time.AfterFunc(w.debounce, func() {
				select {
				case fire <- name:
				case <-done:
				}
			})

		case name := <-fire:
			delete(timers, name)
			if info, err := os.Stat(name); err != nil || !info.Mode().IsRegular() {
				continue
			}
			w.log.Debug("file ready: %s", name)
			handle(name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.log.Warn("watcher error: %v", err)
		}
	}
}

// accepts keeps writes and creates of spreadsheets, skipping hidden files
// and office lock files
func (w *dropWatcher) accepts(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~$") {
		return false
	}
	if len(w.allowed) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, allowed := range w.allowed {
		if strings.ToLower(allowed) == ext {
			return true
		}
	}
	return false
}

// cleanupWatcher safely closes watcher with error logging
func cleanupWatcher(watcher *fsnotify.Watcher) {
	if err := watcher.Close(); err != nil && isVerbose() {
		fmt.Fprintf(os.Stderr, "Warning: failed to close watcher: %v\n", err)
	}
}

// validateWatchDir validates that a path is a directory that can be watched
func validateWatchDir(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("empty directory path")
	}

	info, err := os.Stat(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", path)
	}
	return nil
}
