package formatter

import (
	"fmt"
	"strings"

	"github.com/yildizm/GapReport/internal/history"
	"github.com/yildizm/go-termfmt"
)

// maxTerminalFindings caps how many findings the text view lists
const maxTerminalFindings = 20

// terminalFormatter formats output as plain text for terminal display using go-termfmt
type terminalFormatter struct {
	opts *termfmt.TerminalOptions
}

// NewTerminal creates a new terminal formatter with optional color support
func NewTerminal(color bool) Formatter {
	opts := termfmt.DefaultOptions()
	opts.Color = color
	opts.Emoji = true
	return &terminalFormatter{opts: opts}
}

func (f *terminalFormatter) Format(summary *Summary) ([]byte, error) {
	if summary == nil {
		return nil, fmt.Errorf("nothing to format")
	}
	var b strings.Builder

	writeBoxHeader(&b, "PCI DSS Gap Analysis")

	records := decodeAll(summary.Findings)
	f.writeOverview(&b, summary, records)

	if len(records) == 0 {
		b.WriteString("No findings were identified.\n")
		return []byte(b.String()), nil
	}

	f.writeCategories(&b, records)
	f.writeFindings(&b, records)

	return []byte(b.String()), nil
}

func (f *terminalFormatter) FormatHistory(entries []history.Entry) ([]byte, error) {
	var b strings.Builder
	writeBoxHeader(&b, "Download History")
	b.WriteString(HistoryText(entries, ""))
	return []byte(b.String()), nil
}

// writeBoxHeader writes a title framed with box drawing characters
func writeBoxHeader(b *strings.Builder, header string) {
	width := len([]rune(header))

	b.WriteString("╔" + strings.Repeat("═", width+2) + "╗\n")
	b.WriteString("║ " + header + " ║\n")
	b.WriteString("╚" + strings.Repeat("═", width+2) + "╝\n\n")
}

func (f *terminalFormatter) symbol(key, fallback string) string {
	if s := termfmt.GetEmoji(key, f.opts); s != "" {
		return s
	}
	return fallback
}

func (f *terminalFormatter) writeOverview(b *strings.Builder, summary *Summary, records []Record) {
	b.WriteString(f.symbol("statistics", "#") + " Overview\n")

	items := []termfmt.TreeItem{
		{Label: "Source", Value: CleanLine(summary.Source)},
		{Label: "Findings", Value: fmt.Sprintf("%d", len(records))},
	}
	if summary.SessionID != "" {
		items = append(items, termfmt.TreeItem{Label: "Session", Value: summary.SessionID})
	}
	generated := "N/A"
	if !summary.GeneratedAt.IsZero() {
		generated = summary.GeneratedAt.Local().Format("2006-01-02 15:04:05")
	}
	items = append(items, termfmt.TreeItem{Label: "Generated", Value: generated, Last: true})

	b.WriteString(termfmt.TreeViewWithOptions(items, f.opts) + "\n\n")
}

func (f *terminalFormatter) writeCategories(b *strings.Builder, records []Record) {
	order, counts := CategoryCounts(records)
	if len(order) < 2 {
		return
	}

	b.WriteString(f.symbol("insights", "*") + " Categories\n")
	items := make([]termfmt.TreeItem, 0, len(order))
	for i, category := range order {
		items = append(items, termfmt.TreeItem{
			Label: CleanLine(category),
			Value: fmt.Sprintf("(%d)", counts[category]),
			Last:  i == len(order)-1,
		})
	}
	b.WriteString(termfmt.TreeViewWithOptions(items, f.opts) + "\n\n")
}

func (f *terminalFormatter) writeFindings(b *strings.Builder, records []Record) {
	b.WriteString(f.symbol("recommendations", ">") + " Findings\n")

	shown := records
	if len(shown) > maxTerminalFindings {
		shown = shown[:maxTerminalFindings]
	}

	items := make([]termfmt.TreeItem, 0, len(shown))
	for i, r := range shown {
		var children []termfmt.TreeItem
		if r.Category != "" {
			children = append(children, termfmt.TreeItem{Label: "Category", Value: CleanLine(r.Category)})
		}
		if r.Observation != "" {
			children = append(children, termfmt.TreeItem{Label: "Observation", Value: CleanLine(r.Observation)})
		}
		if r.Recommendation != "" {
			children = append(children, termfmt.TreeItem{Label: "Recommendation", Value: CleanLine(r.Recommendation)})
		}
		for _, action := range r.ActionList() {
			children = append(children, termfmt.TreeItem{Label: "Action", Value: CleanLine(action)})
		}
		if len(children) > 0 {
			children[len(children)-1].Last = true
		}

		items = append(items, termfmt.TreeItem{
			Label:    fmt.Sprintf("%d.", i+1),
			Value:    CleanLine(r.DisplayTitle()),
			Children: children,
			Last:     i == len(shown)-1,
		})
	}
	b.WriteString(termfmt.TreeViewWithOptions(items, f.opts) + "\n")

	if hidden := len(records) - len(shown); hidden > 0 {
		fmt.Fprintf(b, "… and %d more (use --output json for the full list)\n", hidden)
	}
}
