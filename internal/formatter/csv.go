package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/yildizm/GapReport/internal/history"
)

// maxCSVField bounds free-text cells
const maxCSVField = 1000

// csvFormatter formats findings as CSV, one row per finding
type csvFormatter struct{}

// NewCSV creates a new CSV formatter
func NewCSV() Formatter {
	return &csvFormatter{}
}

func (f *csvFormatter) Format(summary *Summary) ([]byte, error) {
	rows := [][]string{{"#", "Title", "Category", "Observation", "Recommendation", "Actions"}}

	for i, r := range decodeAll(summary.Findings) {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			csvCell(r.Title),
			csvCell(r.Category),
			csvCell(r.Observation),
			csvCell(r.Recommendation),
			csvCell(r.Actions),
		})
	}
	return writeCSV(rows)
}

func (f *csvFormatter) FormatHistory(entries []history.Entry) ([]byte, error) {
	rows := [][]string{{"Filename", "Timestamp"}}
	for _, e := range entries {
		rows = append(rows, []string{csvCell(e.Filename), e.Timestamp})
	}
	return writeCSV(rows)
}

func writeCSV(rows [][]string) ([]byte, error) {
	var b bytes.Buffer
	writer := csv.NewWriter(&b)

	if err := writer.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("failed to write CSV records: %w", err)
	}
	return b.Bytes(), nil
}

// csvCell strips control characters and folds lines so each record stays on one row
func csvCell(s string) string {
	s = CleanLine(s)
	runes := []rune(s)
	if len(runes) > maxCSVField {
		s = string(runes[:maxCSVField-3]) + "..."
	}
	return s
}
