package ui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yildizm/GapReport/internal/config"
	"github.com/yildizm/GapReport/internal/emoji"
	"github.com/yildizm/GapReport/internal/logger"
	"github.com/yildizm/GapReport/internal/ui/components"
	"github.com/yildizm/GapReport/internal/workflow"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	maxNotices    = 3

	// category cards shown next to the findings total
	maxCategoryCards = 3
	cardWidth        = 26
)

type panelKey struct {
	kind  workflow.PanelKind
	title string
	body  string
}

// Model is the interactive workflow screen
type Model struct {
	ctx      context.Context
	cancel   context.CancelFunc
	ctrl     Controller
	rec      *workflow.Recorder
	log      *logger.Logger
	readFile func(string) ([]byte, error)
	styles   *Styles
	color    bool

	input    textinput.Model
	spinner  spinner.Model
	viewport viewport.Model

	width    int
	height   int
	state    workflow.View
	clears   int
	shown    *panelKey
	showHelp bool

	// dashboard is rendered once per session
	dashboard    string
	dashboardFor string
	quitting     bool
}

// NewModel builds the TUI model. The context bounds every request it starts.
func NewModel(ctx context.Context, opts Options) (*Model, error) {
	if opts.Controller == nil || opts.Recorder == nil {
		return nil, fmt.Errorf("ui: controller and recorder are required")
	}
	theme, ok := ThemeByName(opts.Theme)
	if !ok {
		opts.Logger.Warn("unknown theme %q, using default", opts.Theme)
	}
	color := opts.Color && !IsColorDisabled()

	input := textinput.New()
	input.Placeholder = "path/to/observations.xlsx"
	input.Prompt = emoji.GetEmoji("folder") + " "
	input.CharLimit = 4096
	input.Width = defaultWidth - 10
	input.SetValue(opts.InitialPath)
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	styles := NewStyles(theme, color)
	sp.Style = styles.Status

	ctx, cancel := context.WithCancel(ctx)
	m := &Model{
		ctx:      ctx,
		cancel:   cancel,
		ctrl:     opts.Controller,
		rec:      opts.Recorder,
		log:      opts.Logger.WithComponent("tui"),
		readFile: opts.readFile(),
		styles:   styles,
		color:    color,
		input:    input,
		spinner:  sp,
		viewport: viewport.New(defaultWidth-4, defaultHeight-8),
		width:    defaultWidth,
		height:   defaultHeight,
	}
	m.refresh()
	return m, nil
}

// Init starts polling the recorder
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, tick())
}

// Update handles messages and key presses
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowResize(msg)
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tickMsg:
		m.refresh()
		return m, tick()
	case actionDoneMsg:
		return m.handleActionDone(msg)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// refresh pulls the latest presentation state from the recorder
func (m *Model) refresh() {
	m.state = m.rec.View()

	if m.state.FileClears > m.clears {
		m.clears = m.state.FileClears
		m.input.SetValue("")
	}
	m.refreshDashboard()

	if m.state.Panel == nil {
		m.shown = nil
		return
	}
	key := panelKey{kind: m.state.Panel.Kind, title: m.state.Panel.Title, body: m.state.Panel.Body}
	if m.shown != nil && *m.shown == key {
		return
	}
	m.shown = &key
	m.viewport.SetContent(renderPanelBody(*m.state.Panel, m.viewport.Width, m.color, m.styles))
	m.viewport.GotoTop()
}

// refreshDashboard rebuilds the findings cards when a new result arrives
func (m *Model) refreshDashboard() {
	if !m.state.ActionsVisible {
		return
	}
	snap := m.ctrl.Snapshot()
	if snap.Session.ID == m.dashboardFor {
		return
	}
	m.dashboardFor = snap.Session.ID
	columns := max(m.width/cardWidth, 1)
	m.dashboard = components.FindingsDashboard(snap.Session.Findings, columns, maxCategoryCards).
		Render(m.styles.Theme.Palette(m.color))
}

func (m *Model) handleWindowResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.input.Width = max(m.width-10, 10)
	m.viewport.Width = max(m.width-6, 20)
	m.viewport.Height = max(m.height-8, 5)

	// re-wrap the open panel and the cards
	m.shown = nil
	m.dashboardFor = ""
	m.refresh()
	return m, nil
}

func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m.handleQuit()
	}
	if m.state.Panel != nil {
		return m.handlePanelKey(msg)
	}
	if m.input.Focused() {
		return m.handleInputKey(msg)
	}

	switch msg.String() {
	case "q":
		return m.handleQuit()
	case "tab", "i", "/":
		return m, m.input.Focus()
	case "a", "enter":
		return m, m.trigger(actionAnalyze)
	case "v":
		return m, m.trigger(actionView)
	case "d":
		return m, m.trigger(actionDownload)
	case "h":
		return m, m.trigger(actionHistory)
	case "?":
		m.showHelp = !m.showHelp
	}
	return m, nil
}

func (m *Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		return m, m.trigger(actionAnalyze)
	case "tab", "esc":
		m.input.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handlePanelKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		if m.state.Panel.Kind == workflow.PanelHistory {
			m.ctrl.CloseDownloadHistory()
		} else {
			m.rec.DismissPanel()
		}
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) handleQuit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.cancel()
	return m, tea.Quit
}

func (m *Model) handleActionDone(msg actionDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.log.Debug("%s returned: %v", msg.action, msg.err)
	}
	m.refresh()
	return m, nil
}

// enabled reports whether a is currently allowed by the presented controls
func (m *Model) enabled(a action) bool {
	switch a {
	case actionAnalyze:
		return m.state.Controls[workflow.ControlAnalyze].Enabled
	case actionView:
		return m.state.ActionsVisible && m.state.Controls[workflow.ControlView].Enabled
	case actionDownload:
		return m.state.ActionsVisible && m.state.Controls[workflow.ControlDownload].Enabled
	default:
		return true
	}
}

// trigger runs a controller call in the background. Disabled controls do
// nothing.
func (m *Model) trigger(a action) tea.Cmd {
	if !m.enabled(a) {
		return nil
	}
	ctx, ctrl := m.ctx, m.ctrl
	m.log.Debug("%s requested", a)

	switch a {
	case actionAnalyze:
		path := strings.TrimSpace(m.input.Value())
		readFile, rec := m.readFile, m.rec
		return func() tea.Msg {
			file := workflow.SourceFile{}
			if path != "" {
				data, err := readFile(config.ExpandPath(path))
				if err != nil {
					rec.Notify(workflow.Notice{Level: workflow.LevelWarning, Message: "Cannot read " + path + ": " + err.Error()})
					return actionDoneMsg{action: a, err: err}
				}
				file = workflow.SourceFile{Name: filepath.Base(path), Data: data}
			}
			return actionDoneMsg{action: a, err: ctrl.StartAnalysis(ctx, file)}
		}
	case actionView:
		return func() tea.Msg {
			_, err := ctrl.ViewReport(ctx)
			return actionDoneMsg{action: a, err: err}
		}
	case actionDownload:
		return func() tea.Msg {
			_, err := ctrl.DownloadReport(ctx)
			return actionDoneMsg{action: a, err: err}
		}
	default:
		return func() tea.Msg {
			_, err := ctrl.ShowDownloadHistory(ctx)
			return actionDoneMsg{action: a, err: err}
		}
	}
}

// View renders the screen
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.state.Panel != nil {
		return m.renderModal(*m.state.Panel)
	}

	sections := []string{
		m.styles.Title.Render(emoji.GetEmoji("finding") + " PCI DSS Gap Analysis"),
		"",
		m.styles.Label.Render("Observation spreadsheet"),
		m.styles.Input.Render(m.input.View()),
		m.renderButtons(),
	}
	if m.state.ActionsVisible && m.dashboard != "" {
		sections = append(sections, "", m.dashboard)
	}
	if m.state.Busy {
		sections = append(sections, m.spinner.View()+" "+m.styles.Status.Render("Working..."))
	}
	if notices := m.renderNotices(); notices != "" {
		sections = append(sections, "", notices)
	}
	sections = append(sections, "", m.renderHelp())

	return lipgloss.NewStyle().Padding(1, 2).Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m *Model) renderButtons() string {
	buttons := []string{m.button("a", workflow.ControlAnalyze)}
	if m.state.ActionsVisible {
		buttons = append(buttons, m.button("v", workflow.ControlView), m.button("d", workflow.ControlDownload))
	}
	buttons = append(buttons, m.styles.Button.Render("[h] History"))
	return lipgloss.JoinHorizontal(lipgloss.Top, buttons...)
}

func (m *Model) button(key string, c workflow.Control) string {
	state := m.state.Controls[c]
	label := "[" + key + "] " + state.Label
	if !state.Enabled {
		return m.styles.ButtonDisabled.Render(label)
	}
	return m.styles.Button.Render(label)
}

func (m *Model) renderNotices() string {
	notices := m.state.Notices
	if len(notices) > maxNotices {
		notices = notices[len(notices)-maxNotices:]
	}

	lines := make([]string, 0, len(notices))
	for _, n := range notices {
		switch n.Level {
		case workflow.LevelError:
			lines = append(lines, m.styles.Error.Render(emoji.GetEmoji("error")+" "+n.Message))
		case workflow.LevelWarning:
			lines = append(lines, m.styles.Warning.Render(emoji.GetEmoji("warning")+" "+n.Message))
		default:
			lines = append(lines, m.styles.Info.Render(emoji.GetEmoji("info")+" "+n.Message))
		}
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderHelp() string {
	if !m.showHelp {
		return m.styles.Muted.Render("enter analyze • tab switch focus • ? help • q quit")
	}
	return m.styles.Muted.Render(strings.Join([]string{
		"enter / a    analyze the file in the input",
		"v            view the report",
		"d            download the spreadsheet report",
		"h            show download history",
		"tab / esc    leave the input to use the shortcuts",
		"esc          close an open panel",
		"q / ctrl+c   quit",
	}, "\n"))
}

func (m *Model) renderModal(p workflow.Panel) string {
	title := m.styles.ModalTitle.Render(panelIcon(p.Kind) + " " + p.Title)
	footer := m.styles.Muted.Render(fmt.Sprintf("↑/↓ scroll • esc close • %3.f%%", m.viewport.ScrollPercent()*100))

	content := lipgloss.JoinVertical(lipgloss.Left, title, "", m.viewport.View(), "", footer)
	return m.styles.Modal.Width(max(m.width-2, 20)).Render(content)
}

// Run starts the TUI and blocks until the user quits
func Run(ctx context.Context, opts Options) error {
	model, err := NewModel(ctx, opts)
	if err != nil {
		return err
	}
	defer model.cancel()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	return err
}
