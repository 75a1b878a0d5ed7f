package formatter

import (
	"fmt"
	"strings"

	"github.com/yildizm/GapReport/internal/history"
)

// DefaultHistoryLayout is how history timestamps are shown to people
const DefaultHistoryLayout = "2006-01-02 15:04:05"

// HistoryText renders download history entries newest first, one per line,
// with timestamps in local time
func HistoryText(entries []history.Entry, layout string) string {
	if len(entries) == 0 {
		return "No downloads yet.\n"
	}
	if layout == "" {
		layout = DefaultHistoryLayout
	}

	var b strings.Builder
	for i, e := range entries {
		fmt.Fprintf(&b, "%2d. %s  %s\n", i+1, historyTime(e, layout), CleanLine(e.Filename))
	}
	return b.String()
}

func historyTime(e history.Entry, layout string) string {
	t, err := e.Time()
	if err != nil {
		return CleanLine(e.Timestamp)
	}
	return t.Local().Format(layout)
}
