package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/yildizm/GapReport/internal/emoji"
	"github.com/yildizm/GapReport/internal/formatter"
	"github.com/yildizm/GapReport/internal/workflow"
)

func panelIcon(kind workflow.PanelKind) string {
	switch kind {
	case workflow.PanelReport:
		return emoji.GetEmoji("report")
	case workflow.PanelFailure:
		return emoji.GetEmoji("error")
	case workflow.PanelHistory:
		return emoji.GetEmoji("history")
	default:
		return emoji.GetEmoji("info")
	}
}

// renderPanelBody turns a panel into terminal text wrapped to width.
// HTML reports go through markdown and glamour, falling back to plain text.
func renderPanelBody(p workflow.Panel, width int, color bool, styles *Styles) string {
	switch p.Kind {
	case workflow.PanelReport:
		if !strings.Contains(strings.ToLower(p.MediaType), "html") {
			return formatter.CleanText(p.Body)
		}
		if out, err := renderMarkdown(formatter.HTMLToMarkdown([]byte(p.Body)), width, color); err == nil {
			return out
		}
		return formatter.HTMLToText([]byte(p.Body))
	case workflow.PanelFailure:
		return styles.Failure.Render(formatter.CleanText(p.Body))
	default:
		return formatter.CleanText(p.Body)
	}
}

func renderMarkdown(md string, width int, color bool) (string, error) {
	style := glamour.WithStandardStyle("notty")
	if color {
		style = glamour.WithAutoStyle()
	}

	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(max(width-2, 20)))
	if err != nil {
		return "", err
	}
	return r.Render(md)
}
