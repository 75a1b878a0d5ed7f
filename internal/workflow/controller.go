// Package workflow drives the analyze, view and download steps against the
// backend and tells a Presenter what to show.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yildizm/GapReport/internal/backend"
	"github.com/yildizm/GapReport/internal/formatter"
	"github.com/yildizm/GapReport/internal/history"
	"github.com/yildizm/GapReport/internal/logger"
)

// ErrSuperseded is returned when a newer analysis started before a request
// resolved. Its outcome has been discarded.
var ErrSuperseded = errors.New("workflow: superseded by a newer analysis")

// Backend is the analysis service
type Backend interface {
	Analyze(ctx context.Context, filename string, data []byte) ([]backend.Finding, error)
	FormatView(ctx context.Context, req backend.FormatRequest) (*backend.Document, error)
	FormatDownload(ctx context.Context, req backend.FormatRequest) (*backend.Document, error)
}

// Saver stores a downloaded report
type Saver interface {
	Save(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// History records saved downloads
type History interface {
	Append(ctx context.Context, filename string, at time.Time) (history.Entry, error)
	List(ctx context.Context) ([]history.Entry, error)
}

// Options configures a Controller. Backend is required.
type Options struct {
	Backend   Backend
	Saver     Saver
	History   History
	Presenter Presenter
	Logger    *logger.Logger

	FilenamePrefix    string
	Extension         string
	AllowedExtensions []string // empty allows any extension
	MaxFileSize       int64    // 0 disables the check
	TimestampFormat   string   // for the history panel

	Labels        Labels
	Clock         func() time.Time
	RenderHistory func(entries []history.Entry) string
}

// Controller owns the analysis session. All methods are safe for
// concurrent use and block for the duration of their request.
type Controller struct {
	backend   Backend
	saver     Saver
	history   History
	presenter Presenter
	log       *logger.Logger

	prefix        string
	extension     string
	allowed       []string
	maxFileSize   int64
	labels        Labels
	clock         func() time.Time
	renderHistory func([]history.Entry) string

	mu         sync.Mutex
	status     Status
	message    string
	session    Session
	generation uint64
	cancel     context.CancelFunc

	// generation of the session a pending request belongs to, 0 when idle
	viewInFlight     uint64
	downloadInFlight uint64

	// cancelled when the session is replaced
	sessionCtx context.Context
	endSession context.CancelFunc
}

func NewController(opts Options) (*Controller, error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("workflow: backend is required")
	}

	c := &Controller{
		backend:       opts.Backend,
		saver:         opts.Saver,
		history:       opts.History,
		presenter:     opts.Presenter,
		log:           opts.Logger.WithComponent("workflow"),
		prefix:        opts.FilenamePrefix,
		extension:     opts.Extension,
		maxFileSize:   opts.MaxFileSize,
		labels:        opts.Labels.withDefaults(),
		clock:         opts.Clock,
		renderHistory: opts.RenderHistory,
		status:        StatusIdle,
	}
	if c.presenter == nil {
		c.presenter = nopPresenter{}
	}
	if c.clock == nil {
		c.clock = time.Now
	}
	if c.renderHistory == nil {
		layout := opts.TimestampFormat
		c.renderHistory = func(entries []history.Entry) string {
			return formatter.HistoryText(entries, layout)
		}
	}
	for _, ext := range opts.AllowedExtensions {
		c.allowed = append(c.allowed, strings.ToLower(ext))
	}

	return c, nil
}

// StartAnalysis replaces the session and uploads file. Any analysis still
// in flight is cancelled and its outcome dropped.
func (c *Controller) StartAnalysis(ctx context.Context, file SourceFile) error {
	_, err := c.Analyze(ctx, file)
	return err
}

// Analyze works like StartAnalysis and also returns the session it
// produced, so callers can pin later actions to it with DownloadReportFor.
func (c *Controller) Analyze(ctx context.Context, file SourceFile) (Session, error) {
	if err := c.checkSource(file); err != nil {
		c.mu.Lock()
		c.presenter.Notify(Notice{Level: LevelWarning, Message: backend.DiagnosticOf(err)})
		c.mu.Unlock()
		return Session{}, err
	}

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	if c.endSession != nil {
		c.endSession()
	}
	c.sessionCtx, c.endSession = context.WithCancel(context.Background())
	c.generation++
	gen := c.generation
	actx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.session = Session{
		ID:         uuid.NewString(),
		Generation: gen,
		Source:     file,
		Result:     ResultUnset,
	}
	c.status = StatusAnalyzing
	c.message = ""
	c.viewInFlight = 0
	c.downloadInFlight = 0

	c.presenter.SetActionsVisible(false)
	c.presenter.SetControl(ControlView, true, c.labels.idle(ControlView))
	c.presenter.SetControl(ControlDownload, true, c.labels.idle(ControlDownload))
	c.presenter.ClosePanel(PanelReport)
	c.presenter.ClosePanel(PanelNoFindings)
	c.presenter.ClosePanel(PanelFailure)
	c.presenter.SetControl(ControlAnalyze, false, c.labels.busy(ControlAnalyze))
	c.refreshBusy()
	sessionID := c.session.ID
	c.mu.Unlock()

	c.log.DebugWithFields("analysis started", []logger.Field{
		logger.F("file", file.Name),
		logger.F("session", sessionID),
		logger.F("generation", gen),
	})

	start := c.clock()
	findings, err := c.backend.Analyze(actx, file.Name, file.Data)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		c.log.Debug("dropping outcome of superseded analysis %d", gen)
		return Session{}, ErrSuperseded
	}
	c.cancel = nil

	if err != nil {
		c.status = StatusFailed
		c.message = backend.DiagnosticOf(err)
		c.presenter.ShowPanel(Panel{
			Kind:  PanelFailure,
			Title: "Analysis failed",
			Body:  c.message,
		})
		c.log.WarnWithFields("analysis failed", []logger.Field{
			logger.F("file", file.Name),
			logger.Error(err),
		})
	} else {
		c.session.Findings = findings
		c.session.Completed = c.clock()
		if len(findings) == 0 {
			c.session.Result = ResultEmpty
		} else {
			c.session.Result = ResultReady
		}
		c.status = StatusReady
		c.presenter.SetActionsVisible(true)
		c.presenter.Notify(Notice{
			Level:   LevelInfo,
			Message: fmt.Sprintf("Analysis of %s complete: %s.", file.Name, pluralFindings(len(findings))),
		})
		c.log.InfoWithFields("analysis complete", []logger.Field{
			logger.F("file", file.Name),
			logger.Count(len(findings)),
			logger.Duration(c.clock().Sub(start)),
		})
	}

	c.presenter.SetControl(ControlAnalyze, true, c.labels.idle(ControlAnalyze))
	c.presenter.ClearFileInput()
	c.refreshBusy()

	if err != nil {
		return Session{}, err
	}
	return c.sessionCopy(), nil
}

// ViewReport asks the backend for the HTML report of the current session
// and shows it verbatim. An empty result shows a placeholder instead.
func (c *Controller) ViewReport(ctx context.Context) (Panel, error) {
	c.mu.Lock()
	if err := c.requireReady("view"); err != nil {
		c.mu.Unlock()
		return Panel{}, err
	}
	if c.session.Result == ResultEmpty {
		panel := Panel{
			Kind:  PanelNoFindings,
			Title: "No findings",
			Body:  fmt.Sprintf("No findings were identified in %s.", c.session.Source.Name),
		}
		c.presenter.ShowPanel(panel)
		c.mu.Unlock()
		return panel, nil
	}
	if c.viewInFlight != 0 {
		err := backend.NewPreconditionError("view", "the report is already being loaded")
		c.presenter.Notify(Notice{Level: LevelInfo, Message: err.Message})
		c.mu.Unlock()
		return Panel{}, err
	}

	gen := c.session.Generation
	req := c.formatRequest()
	source := c.session.Source.Name
	c.viewInFlight = gen
	ctx, release := c.actionContext(ctx)
	defer release()
	c.presenter.SetControl(ControlView, false, c.labels.busy(ControlView))
	c.refreshBusy()
	c.mu.Unlock()

	doc, err := c.backend.FormatView(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.Generation != gen {
		return Panel{}, ErrSuperseded
	}
	c.viewInFlight = 0
	c.presenter.SetControl(ControlView, true, c.labels.idle(ControlView))
	c.refreshBusy()

	if err != nil {
		c.presenter.Notify(Notice{Level: LevelError, Message: "Could not load the report: " + backend.DiagnosticOf(err)})
		c.log.WarnWithFields("view failed", []logger.Field{logger.F("file", source), logger.Error(err)})
		return Panel{}, err
	}

	panel := Panel{
		Kind:      PanelReport,
		Title:     "Report for " + source,
		Body:      string(doc.Data),
		MediaType: doc.MediaType,
	}
	c.presenter.ShowPanel(panel)
	return panel, nil
}

// DownloadReport fetches the spreadsheet report of the current session,
// saves it and records it in the download history.
func (c *Controller) DownloadReport(ctx context.Context) (*Download, error) {
	return c.download(ctx, 0)
}

// DownloadReportFor is DownloadReport pinned to the session of generation.
// It returns ErrSuperseded without side effects when that session has been
// replaced.
func (c *Controller) DownloadReportFor(ctx context.Context, generation uint64) (*Download, error) {
	return c.download(ctx, generation)
}

func (c *Controller) download(ctx context.Context, want uint64) (*Download, error) {
	c.mu.Lock()
	if want != 0 && c.session.Generation != want {
		c.mu.Unlock()
		return nil, ErrSuperseded
	}
	if err := c.requireReady("download"); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if c.session.Result == ResultEmpty {
		err := backend.NewPreconditionError("download", "No findings to download.")
		c.presenter.Notify(Notice{Level: LevelInfo, Message: err.Message})
		c.mu.Unlock()
		return nil, err
	}
	if c.downloadInFlight != 0 {
		err := backend.NewPreconditionError("download", "a download is already in progress")
		c.presenter.Notify(Notice{Level: LevelInfo, Message: err.Message})
		c.mu.Unlock()
		return nil, err
	}
	if c.saver == nil {
		err := backend.NewPreconditionError("download", "no download destination is configured")
		c.presenter.Notify(Notice{Level: LevelError, Message: err.Message})
		c.mu.Unlock()
		return nil, err
	}

	gen := c.session.Generation
	req := c.formatRequest()
	name := ReportFilename(c.prefix, c.session.Source.Name, c.extension)
	c.downloadInFlight = gen
	ctx, release := c.actionContext(ctx)
	defer release()
	c.presenter.SetControl(ControlDownload, false, c.labels.busy(ControlDownload))
	c.refreshBusy()
	c.mu.Unlock()

	doc, err := c.backend.FormatDownload(ctx, req)

	c.mu.Lock()
	if c.session.Generation != gen {
		c.mu.Unlock()
		return nil, ErrSuperseded
	}
	c.mu.Unlock()

	var dl *Download
	if err == nil {
		dl, err = c.save(ctx, name, doc)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// a report saved for a replaced session stays out of the history
	if c.session.Generation != gen {
		c.log.Debug("dropping download of superseded analysis %d", gen)
		return nil, ErrSuperseded
	}

	c.downloadInFlight = 0
	c.presenter.SetControl(ControlDownload, true, c.labels.idle(ControlDownload))
	c.refreshBusy()

	if err != nil {
		c.presenter.Notify(Notice{Level: LevelError, Message: "Could not download the report: " + backend.DiagnosticOf(err)})
		c.log.WarnWithFields("download failed", []logger.Field{logger.F("file", name), logger.Error(err)})
		return nil, err
	}

	c.recordDownload(ctx, dl)

	c.presenter.Notify(Notice{Level: LevelInfo, Message: "Saved " + dl.Filename + " to " + dl.Location})
	if dl.Entry == nil && c.history != nil {
		c.presenter.Notify(Notice{Level: LevelWarning, Message: "The download could not be added to the history."})
	}
	return dl, nil
}

func (c *Controller) save(ctx context.Context, name string, doc *backend.Document) (*Download, error) {
	location, err := c.saver.Save(ctx, name, doc.MediaType, doc.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to save %s: %w", name, err)
	}

	c.log.InfoWithFields("report saved", []logger.Field{
		logger.F("file", name),
		logger.F("location", location),
		logger.F("bytes", len(doc.Data)),
	})
	return &Download{
		Filename:  name,
		Location:  location,
		MediaType: doc.MediaType,
		Size:      len(doc.Data),
	}, nil
}

// recordDownload must be called with c.mu held, so a new analysis cannot
// start between the generation check and the append
func (c *Controller) recordDownload(ctx context.Context, dl *Download) {
	if c.history == nil {
		return
	}
	entry, err := c.history.Append(ctx, dl.Filename, c.clock())
	if err != nil {
		c.log.WarnWithFields("history append failed", []logger.Field{logger.F("file", dl.Filename), logger.Error(err)})
		return
	}
	dl.Entry = &entry
}

// ShowDownloadHistory shows the saved downloads, newest first. It never
// changes the log.
func (c *Controller) ShowDownloadHistory(ctx context.Context) (Panel, error) {
	if c.history == nil {
		err := backend.NewPreconditionError("history", "download history is disabled")
		c.mu.Lock()
		c.presenter.Notify(Notice{Level: LevelInfo, Message: err.Message})
		c.mu.Unlock()
		return Panel{}, err
	}

	entries, err := c.history.List(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.presenter.Notify(Notice{Level: LevelError, Message: "Could not read the download history: " + err.Error()})
		return Panel{}, err
	}

	panel := Panel{
		Kind:    PanelHistory,
		Title:   "Download history",
		Body:    c.renderHistory(entries),
		Entries: entries,
	}
	c.presenter.ShowPanel(panel)
	return panel, nil
}

// CloseDownloadHistory hides the history panel
func (c *Controller) CloseDownloadHistory() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.presenter.ClosePanel(PanelHistory)
}

// Snapshot returns a copy of the current state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		Status:          c.status,
		Message:         c.message,
		Session:         c.sessionCopy(),
		ViewPending:     c.viewInFlight != 0,
		DownloadPending: c.downloadInFlight != 0,
	}
}

// sessionCopy must be called with c.mu held
func (c *Controller) sessionCopy() Session {
	session := c.session
	session.Findings = append([]backend.Finding(nil), c.session.Findings...)
	return session
}

// actionContext derives the context of a view or download request, which
// is also cancelled when the session is replaced. Must be called with c.mu
// held.
func (c *Controller) actionContext(ctx context.Context) (context.Context, func()) {
	actx, cancel := context.WithCancel(ctx)
	if c.sessionCtx == nil {
		return actx, cancel
	}
	stop := context.AfterFunc(c.sessionCtx, cancel)
	return actx, func() {
		stop()
		cancel()
	}
}

// checkSource validates file before anything changes
func (c *Controller) checkSource(file SourceFile) error {
	if strings.TrimSpace(file.Name) == "" {
		return backend.NewPreconditionError("analyze", "choose a file to analyze first")
	}
	if len(c.allowed) > 0 {
		ext := strings.ToLower(filepath.Ext(file.Name))
		ok := false
		for _, allowed := range c.allowed {
			if ext == allowed {
				ok = true
				break
			}
		}
		if !ok {
			return backend.NewPreconditionError("analyze",
				fmt.Sprintf("invalid file type %q: please choose a %s file", file.Name, strings.Join(c.allowed, " or ")))
		}
	}
	if c.maxFileSize > 0 && int64(len(file.Data)) > c.maxFileSize {
		return backend.NewPreconditionError("analyze",
			fmt.Sprintf("%s is %d bytes, larger than the %d byte limit", file.Name, len(file.Data), c.maxFileSize))
	}
	return nil
}

// requireReady must be called with c.mu held
func (c *Controller) requireReady(op string) error {
	if c.status == StatusReady {
		return nil
	}

	var message string
	switch c.status {
	case StatusAnalyzing:
		message = "wait for the analysis to finish"
	case StatusFailed:
		message = "the last analysis failed; analyze a file again"
	default:
		message = "analyze a file first"
	}
	err := backend.NewPreconditionError(op, message)
	c.presenter.Notify(Notice{Level: LevelWarning, Message: "Cannot " + op + " the report: " + message + "."})
	return err
}

// formatRequest must be called with c.mu held
func (c *Controller) formatRequest() backend.FormatRequest {
	return backend.FormatRequest{
		Findings:         append([]backend.Finding(nil), c.session.Findings...),
		OriginalFilename: c.session.Source.Name,
	}
}

// refreshBusy must be called with c.mu held
func (c *Controller) refreshBusy() {
	c.presenter.SetBusy(c.status == StatusAnalyzing || c.viewInFlight != 0 || c.downloadInFlight != 0)
}

func pluralFindings(n int) string {
	if n == 1 {
		return "1 finding"
	}
	return fmt.Sprintf("%d findings", n)
}
