package formatter

import (
	"fmt"
	"time"

	"github.com/yildizm/GapReport/internal/backend"
	"github.com/yildizm/GapReport/internal/history"
)

// Summary is what the formatters render for one analysis
type Summary struct {
	Source      string
	SessionID   string
	Findings    []backend.Finding
	GeneratedAt time.Time
}

// Formatter defines the interface for output formatting
type Formatter interface {
	Format(summary *Summary) ([]byte, error)
	FormatHistory(entries []history.Entry) ([]byte, error)
}

// New returns the formatter for an output format name
func New(format string, color bool) (Formatter, error) {
	switch format {
	case "", "text":
		return NewTerminal(color), nil
	case "json":
		return NewJSON(), nil
	case "markdown":
		return NewMarkdown(), nil
	case "csv":
		return NewCSV(), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s (use text, json, markdown or csv)", format)
	}
}
