package formatter

import (
	"fmt"
	"strings"

	"github.com/yildizm/GapReport/internal/history"
)

// markdownFormatter formats output as Markdown
type markdownFormatter struct{}

// NewMarkdown creates a new Markdown formatter
func NewMarkdown() Formatter {
	return &markdownFormatter{}
}

func (f *markdownFormatter) Format(summary *Summary) ([]byte, error) {
	var b strings.Builder

	b.WriteString("# PCI DSS Gap Analysis\n\n")
	if !summary.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "Generated: %s\n\n", summary.GeneratedAt.Local().Format("2006-01-02 15:04:05"))
	}

	records := decodeAll(summary.Findings)
	f.writeSummaryTable(&b, summary, records)

	if len(records) == 0 {
		b.WriteString("No findings were identified.\n")
		return []byte(b.String()), nil
	}

	f.writeCategories(&b, records)
	f.writeFindings(&b, records)

	return []byte(b.String()), nil
}

func (f *markdownFormatter) writeSummaryTable(b *strings.Builder, summary *Summary, records []Record) {
	b.WriteString("## Summary\n\n")
	b.WriteString("| Metric | Value |\n")
	b.WriteString("|--------|-------|\n")
	fmt.Fprintf(b, "| Source | %s |\n", EscapeMarkdown(CleanLine(summary.Source)))
	fmt.Fprintf(b, "| Findings | %d |\n", len(records))
	if summary.SessionID != "" {
		fmt.Fprintf(b, "| Session | %s |\n", summary.SessionID)
	}
	b.WriteString("\n")
}

func (f *markdownFormatter) writeCategories(b *strings.Builder, records []Record) {
	order, counts := CategoryCounts(records)
	if len(order) < 2 {
		return
	}

	b.WriteString("## Categories\n\n")
	b.WriteString("| Category | Findings |\n")
	b.WriteString("|----------|----------|\n")
	for _, category := range order {
		fmt.Fprintf(b, "| %s | %d |\n", EscapeMarkdown(CleanLine(category)), counts[category])
	}
	b.WriteString("\n")
}

func (f *markdownFormatter) writeFindings(b *strings.Builder, records []Record) {
	b.WriteString("## Findings\n\n")

	for i, r := range records {
		fmt.Fprintf(b, "### %d. %s\n\n", i+1, EscapeMarkdown(CleanLine(r.DisplayTitle())))

		if r.Category != "" {
			fmt.Fprintf(b, "**Category**: %s\n\n", EscapeMarkdown(CleanLine(r.Category)))
		}
		if r.Observation != "" {
			fmt.Fprintf(b, "**Observation**: %s\n\n", EscapeMarkdown(CleanLine(r.Observation)))
		}
		if r.Recommendation != "" {
			fmt.Fprintf(b, "**Recommendation**: %s\n\n", EscapeMarkdown(CleanLine(r.Recommendation)))
		}
		if actions := r.ActionList(); len(actions) > 0 {
			b.WriteString("**Actions**:\n\n")
			for _, action := range actions {
				fmt.Fprintf(b, "- %s\n", EscapeMarkdown(CleanLine(action)))
			}
			b.WriteString("\n")
		}
	}
}

func (f *markdownFormatter) FormatHistory(entries []history.Entry) ([]byte, error) {
	var b strings.Builder
	b.WriteString("# Download History\n\n")

	if len(entries) == 0 {
		b.WriteString("No downloads yet.\n")
		return []byte(b.String()), nil
	}

	b.WriteString("| # | Downloaded | File |\n")
	b.WriteString("|---|------------|------|\n")
	for i, e := range entries {
		fmt.Fprintf(&b, "| %d | %s | %s |\n", i+1, historyTime(e, DefaultHistoryLayout), EscapeMarkdown(CleanLine(e.Filename)))
	}
	return []byte(b.String()), nil
}
