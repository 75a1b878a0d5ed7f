package formatter

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yildizm/GapReport/internal/history"
)

func TestHistoryText(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	entries := []history.Entry{
		{Filename: "new.xlsx", Timestamp: at.Add(time.Hour).Format(history.TimestampLayout)},
		{Filename: "old\x1b[31m.xlsx", Timestamp: at.Format(history.TimestampLayout)},
		{Filename: "odd.xlsx", Timestamp: "yesterday"},
	}

	text := HistoryText(entries, "")
	lines := strings.Split(strings.TrimSpace(text), "\n")

	assert.Len(t, lines, 3)
	assert.Contains(t, lines[0], at.Add(time.Hour).Local().Format(DefaultHistoryLayout))
	assert.Contains(t, lines[0], "new.xlsx")
	assert.Contains(t, lines[1], "old.xlsx")
	assert.NotContains(t, text, "\x1b")
	assert.Contains(t, lines[2], "yesterday")
}

func TestHistoryTextEmpty(t *testing.T) {
	assert.Equal(t, "No downloads yet.\n", HistoryText(nil, time.RFC3339))
}

func TestHistoryTextLayout(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	entries := []history.Entry{{Filename: "a.xlsx", Timestamp: at.Format(history.TimestampLayout)}}

	assert.Contains(t, HistoryText(entries, "02 Jan 2006"), at.Local().Format("02 Jan 2006"))
}
