package formatter

import (
	"encoding/json"
	"time"

	"github.com/yildizm/GapReport/internal/backend"
	"github.com/yildizm/GapReport/internal/history"
)

// jsonFormatter formats output as JSON
type jsonFormatter struct{}

// NewJSON creates a new JSON formatter
func NewJSON() Formatter {
	return &jsonFormatter{}
}

// SummaryOutput is the JSON shape of an analysis
type SummaryOutput struct {
	Source      string            `json:"source"`
	SessionID   string            `json:"session_id,omitempty"`
	GeneratedAt *time.Time        `json:"generated_at,omitempty"`
	Count       int               `json:"finding_count"`
	Categories  []CategoryOutput  `json:"categories"`
	Findings    []backend.Finding `json:"findings"`
}

// CategoryOutput counts findings in one category
type CategoryOutput struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// HistoryOutput is the JSON shape of the download history
type HistoryOutput struct {
	Count   int             `json:"count"`
	Entries []history.Entry `json:"entries"`
}

func (f *jsonFormatter) Format(summary *Summary) ([]byte, error) {
	output := &SummaryOutput{
		Source:     summary.Source,
		SessionID:  summary.SessionID,
		Count:      len(summary.Findings),
		Categories: []CategoryOutput{},
		Findings:   summary.Findings,
	}
	if output.Findings == nil {
		output.Findings = []backend.Finding{}
	}
	if !summary.GeneratedAt.IsZero() {
		at := summary.GeneratedAt.UTC()
		output.GeneratedAt = &at
	}

	// findings are passed through untouched; only the tally is derived
	order, counts := CategoryCounts(decodeAll(summary.Findings))
	for _, name := range order {
		output.Categories = append(output.Categories, CategoryOutput{Name: name, Count: counts[name]})
	}

	return json.MarshalIndent(output, "", "  ")
}

func (f *jsonFormatter) FormatHistory(entries []history.Entry) ([]byte, error) {
	if entries == nil {
		entries = []history.Entry{}
	}
	return json.MarshalIndent(&HistoryOutput{Count: len(entries), Entries: entries}, "", "  ")
}
