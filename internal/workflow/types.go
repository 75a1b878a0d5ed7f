package workflow

import (
	"time"

	"github.com/yildizm/GapReport/internal/backend"
	"github.com/yildizm/GapReport/internal/history"
)

// Status is the state of the workflow
type Status int

const (
	StatusIdle Status = iota
	StatusAnalyzing
	StatusReady
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusAnalyzing:
		return "analyzing"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result says what the last analysis produced
type Result int

const (
	ResultUnset Result = iota
	ResultEmpty
	ResultReady
)

func (r Result) String() string {
	switch r {
	case ResultUnset:
		return "unset"
	case ResultEmpty:
		return "empty"
	case ResultReady:
		return "ready"
	default:
		return "unknown"
	}
}

// SourceFile is the spreadsheet chosen by the user
type SourceFile struct {
	Name string
	Data []byte
}

// Session is one analysis and its outcome. It is replaced as a whole when
// a new analysis starts.
type Session struct {
	ID         string
	Generation uint64
	Source     SourceFile
	Result     Result
	Findings   []backend.Finding
	Completed  time.Time // when the analysis succeeded
}

// Snapshot is a read-only copy of the controller state
type Snapshot struct {
	Status          Status
	Message         string // failure diagnostic when Status is StatusFailed
	Session         Session
	ViewPending     bool
	DownloadPending bool
}

// Control identifies a user-facing trigger
type Control int

const (
	ControlAnalyze Control = iota
	ControlView
	ControlDownload
)

func (c Control) String() string {
	switch c {
	case ControlAnalyze:
		return "analyze"
	case ControlView:
		return "view"
	case ControlDownload:
		return "download"
	default:
		return "unknown"
	}
}

// PanelKind identifies what the result surface shows
type PanelKind int

const (
	PanelReport PanelKind = iota
	PanelNoFindings
	PanelFailure
	PanelHistory
)

func (k PanelKind) String() string {
	switch k {
	case PanelReport:
		return "report"
	case PanelNoFindings:
		return "no_findings"
	case PanelFailure:
		return "failure"
	case PanelHistory:
		return "history"
	default:
		return "unknown"
	}
}

// Panel is content for the result surface
type Panel struct {
	Kind      PanelKind
	Title     string
	Body      string
	MediaType string
	Entries   []history.Entry
}

// Level grades a notice
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notice is a transient message for the user
type Notice struct {
	Level   Level
	Message string
}

// Labels are the control captions for idle and pending states
type Labels struct {
	AnalyzeIdle  string
	AnalyzeBusy  string
	ViewIdle     string
	ViewBusy     string
	DownloadIdle string
	DownloadBusy string
}

func DefaultLabels() Labels {
	return Labels{
		AnalyzeIdle:  "Analyze",
		AnalyzeBusy:  "Analyzing...",
		ViewIdle:     "View Report",
		ViewBusy:     "Loading...",
		DownloadIdle: "Download Report",
		DownloadBusy: "Downloading...",
	}
}

func (l Labels) idle(c Control) string {
	switch c {
	case ControlView:
		return l.ViewIdle
	case ControlDownload:
		return l.DownloadIdle
	default:
		return l.AnalyzeIdle
	}
}

func (l Labels) busy(c Control) string {
	switch c {
	case ControlView:
		return l.ViewBusy
	case ControlDownload:
		return l.DownloadBusy
	default:
		return l.AnalyzeBusy
	}
}

func (l Labels) withDefaults() Labels {
	d := DefaultLabels()
	if l.AnalyzeIdle == "" {
		l.AnalyzeIdle = d.AnalyzeIdle
	}
	if l.AnalyzeBusy == "" {
		l.AnalyzeBusy = d.AnalyzeBusy
	}
	if l.ViewIdle == "" {
		l.ViewIdle = d.ViewIdle
	}
	if l.ViewBusy == "" {
		l.ViewBusy = d.ViewBusy
	}
	if l.DownloadIdle == "" {
		l.DownloadIdle = d.DownloadIdle
	}
	if l.DownloadBusy == "" {
		l.DownloadBusy = d.DownloadBusy
	}
	return l
}

// Download describes a saved report
type Download struct {
	Filename  string
	Location  string
	MediaType string
	Size      int
	Entry     *history.Entry
}
