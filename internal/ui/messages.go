package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// pollInterval is how often the model re-reads the recorder
const pollInterval = 100 * time.Millisecond

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type action int

const (
	actionAnalyze action = iota
	actionView
	actionDownload
	actionHistory
)

func (a action) String() string {
	switch a {
	case actionAnalyze:
		return "analyze"
	case actionView:
		return "view"
	case actionDownload:
		return "download"
	default:
		return "history"
	}
}

// actionDoneMsg reports that a controller call returned. Its visible
// effects already went through the recorder.
type actionDoneMsg struct {
	action action
	err    error
}
