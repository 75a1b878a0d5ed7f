package workflow

import (
	"fmt"
	"sync"
)

// Presenter receives UI side effects from the controller. Calls are made
// while the controller holds its lock: implementations must return quickly
// and must not call back into the controller.
type Presenter interface {
	SetBusy(busy bool)
	SetControl(c Control, enabled bool, label string)
	SetActionsVisible(visible bool)
	ClearFileInput()
	ShowPanel(p Panel)
	ClosePanel(kind PanelKind)
	Notify(n Notice)
}

type nopPresenter struct{}

func (nopPresenter) SetBusy(bool)                     {}
func (nopPresenter) SetControl(Control, bool, string) {}
func (nopPresenter) SetActionsVisible(bool)           {}
func (nopPresenter) ClearFileInput()                  {}
func (nopPresenter) ShowPanel(Panel)                  {}
func (nopPresenter) ClosePanel(PanelKind)             {}
func (nopPresenter) Notify(Notice)                    {}

const maxEvents = 500

// ControlState is the last state pushed for a control
type ControlState struct {
	Enabled bool
	Label   string
}

// View is what a Recorder currently holds
type View struct {
	Busy           bool
	Controls       map[Control]ControlState
	ActionsVisible bool
	FileClears     int
	Panel          *Panel
	Notices        []Notice
	Events         []string
}

// Recorder is a Presenter that keeps the latest presentation state.
// Renderers poll it, which keeps them off the controller lock.
type Recorder struct {
	mu         sync.Mutex
	busy       bool
	controls   map[Control]ControlState
	visible    bool
	fileClears int
	panel      *Panel
	notices    []Notice
	events     []string
	maxNotices int
}

// NewRecorder starts with every control enabled and actions hidden
func NewRecorder(labels Labels) *Recorder {
	labels = labels.withDefaults()
	return &Recorder{
		controls: map[Control]ControlState{
			ControlAnalyze:  {Enabled: true, Label: labels.AnalyzeIdle},
			ControlView:     {Enabled: true, Label: labels.ViewIdle},
			ControlDownload: {Enabled: true, Label: labels.DownloadIdle},
		},
		maxNotices: 50,
	}
}

func (r *Recorder) record(format string, args ...interface{}) {
	r.events = append(r.events, fmt.Sprintf(format, args...))
	if len(r.events) > maxEvents {
		r.events = r.events[len(r.events)-maxEvents:]
	}
}

func (r *Recorder) SetBusy(busy bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.busy = busy
	r.record("busy=%t", busy)
}

func (r *Recorder) SetControl(c Control, enabled bool, label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.controls[c] = ControlState{Enabled: enabled, Label: label}
	r.record("control %s enabled=%t label=%q", c, enabled, label)
}

func (r *Recorder) SetActionsVisible(visible bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.visible = visible
	r.record("actions visible=%t", visible)
}

func (r *Recorder) ClearFileInput() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fileClears++
	r.record("file input cleared")
}

func (r *Recorder) ShowPanel(p Panel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	panel := p
	r.panel = &panel
	r.record("panel %s shown", p.Kind)
}

func (r *Recorder) ClosePanel(kind PanelKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.panel != nil && r.panel.Kind == kind {
		r.panel = nil
		r.record("panel %s closed", kind)
	}
}

// DismissPanel closes whatever panel is open
func (r *Recorder) DismissPanel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.panel != nil {
		r.record("panel %s closed", r.panel.Kind)
		r.panel = nil
	}
}

func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
	if len(r.notices) > r.maxNotices {
		r.notices = r.notices[len(r.notices)-r.maxNotices:]
	}
	r.record("notice %s: %s", n.Level, n.Message)
}

// View returns a copy of the recorded state
func (r *Recorder) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()

	controls := make(map[Control]ControlState, len(r.controls))
	for k, v := range r.controls {
		controls[k] = v
	}
	var panel *Panel
	if r.panel != nil {
		p := *r.panel
		panel = &p
	}

	return View{
		Busy:           r.busy,
		Controls:       controls,
		ActionsVisible: r.visible,
		FileClears:     r.fileClears,
		Panel:          panel,
		Notices:        append([]Notice(nil), r.notices...),
		Events:         append([]string(nil), r.events...),
	}
}

// LastNotice returns the most recent notice, if any
func (r *Recorder) LastNotice() (Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}, false
	}
	return r.notices[len(r.notices)-1], true
}
