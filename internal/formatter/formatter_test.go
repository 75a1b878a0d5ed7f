package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yildizm/GapReport/internal/backend"
	"github.com/yildizm/GapReport/internal/history"
)

func sampleSummary() *Summary {
	return &Summary{
		Source:    "report.xlsx",
		SessionID: "abc",
		Findings: []backend.Finding{
			backend.Finding(`{"Title":"Weak passwords","Category":"Access Control","Original Observation":"Passwords of 6 chars","Recommendation":"Enforce 12 chars","Actions":["Update policy","Audit accounts"]}`),
			backend.Finding(`{"Title":"No log review","Category":"Monitoring","Observation":"Logs unreviewed"}`),
			backend.Finding(`"plain text finding"`),
		},
		GeneratedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNew(t *testing.T) {
	for _, name := range []string{"", "text", "json", "markdown", "csv"} {
		f, err := New(name, false)
		require.NoError(t, err, name)
		assert.NotNil(t, f, name)
	}

	_, err := New("xml", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format: xml")
}

func TestDecodeRecord(t *testing.T) {
	tests := []struct {
		name    string
		finding string
		want    Record
	}{
		{
			name:    "object with known keys",
			finding: `{"Title":"T","Category":"C","Original Observation":"O","Recommendation":"R","Actions":["a","b"]}`,
			want:    Record{Title: "T", Category: "C", Observation: "O", Recommendation: "R", Actions: "a\nb"},
		},
		{
			name:    "lowercase keys",
			finding: `{"title":"t","description":"d"}`,
			want:    Record{Title: "t", Observation: "d"},
		},
		{
			name:    "string finding",
			finding: `"just text"`,
			want:    Record{Observation: "just text"},
		},
		{
			name:    "number finding",
			finding: `42`,
			want:    Record{Observation: "42"},
		},
		{
			name:    "non string value",
			finding: `{"Title":7}`,
			want:    Record{Title: "7"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeRecord(backend.Finding(tt.finding)))
		})
	}
}

func TestRecordHelpers(t *testing.T) {
	r := Record{Actions: "  one \n\n two\n"}
	assert.Equal(t, []string{"one", "two"}, r.ActionList())
	assert.Equal(t, "Untitled finding", Record{Title: "N/A"}.DisplayTitle())

	order, counts := CategoryCounts([]Record{{Category: "B"}, {}, {Category: "B"}})
	assert.Equal(t, []string{"B", "Uncategorized"}, order)
	assert.Equal(t, 2, counts["B"])
	assert.Equal(t, 1, counts["Uncategorized"])
}

func TestTerminalFormat(t *testing.T) {
	out, err := NewTerminal(false).Format(sampleSummary())
	require.NoError(t, err)

	text := string(out)
	assert.True(t, strings.HasPrefix(text, "╔"))
	for _, want := range []string{"PCI DSS Gap Analysis", "report.xlsx", "Weak passwords", "No log review", "Untitled finding", "Update policy", "Access Control"} {
		assert.Contains(t, text, want)
	}
}

func TestTerminalFormatEmpty(t *testing.T) {
	out, err := NewTerminal(false).Format(&Summary{Source: "empty.xlsx"})
	require.NoError(t, err)
	assert.Contains(t, string(out), "No findings were identified.")

	_, err = NewTerminal(false).Format(nil)
	assert.Error(t, err)
}

func TestTerminalFormatCapsFindings(t *testing.T) {
	summary := &Summary{Source: "big.xlsx"}
	for i := 0; i < maxTerminalFindings+5; i++ {
		summary.Findings = append(summary.Findings, backend.Finding(`{"Title":"x"}`))
	}

	out, err := NewTerminal(false).Format(summary)
	require.NoError(t, err)
	assert.Contains(t, string(out), "and 5 more")
}

func TestJSONFormat(t *testing.T) {
	out, err := NewJSON().Format(sampleSummary())
	require.NoError(t, err)

	var got SummaryOutput
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, "report.xlsx", got.Source)
	assert.Equal(t, 3, got.Count)
	assert.Len(t, got.Findings, 3)
	assert.Equal(t, []CategoryOutput{
		{Name: "Access Control", Count: 1},
		{Name: "Monitoring", Count: 1},
		{Name: "Uncategorized", Count: 1},
	}, got.Categories)
	require.NotNil(t, got.GeneratedAt)

	out, err = NewJSON().Format(&Summary{Source: "x"})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"findings": []`)
}

func TestMarkdownFormat(t *testing.T) {
	summary := sampleSummary()
	summary.Source = "q1|report.xlsx"

	out, err := NewMarkdown().Format(summary)
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, "# PCI DSS Gap Analysis")
	assert.Contains(t, text, `| Source | q1\|report.xlsx |`)
	assert.Contains(t, text, "### 1. Weak passwords")
	assert.Contains(t, text, "- Audit accounts")
	assert.Contains(t, text, "## Categories")
}

func TestCSVFormat(t *testing.T) {
	out, err := NewCSV().Format(sampleSummary())
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Title", rows[0][1])
	assert.Equal(t, "Weak passwords", rows[1][1])
	assert.Equal(t, "Update policy Audit accounts", rows[1][5])
	assert.Equal(t, "plain text finding", rows[3][3])
}

func TestFormatHistory(t *testing.T) {
	entries := []history.Entry{
		{Filename: "PCI_DSS_Action_Report_b.xlsx", Timestamp: "2024-03-02T10:00:00.000Z"},
		{Filename: "PCI_DSS_Action_Report_a.xlsx", Timestamp: "2024-03-01T10:00:00.000Z"},
	}

	for _, name := range []string{"text", "json", "markdown", "csv"} {
		t.Run(name, func(t *testing.T) {
			f, err := New(name, false)
			require.NoError(t, err)

			out, err := f.FormatHistory(entries)
			require.NoError(t, err)
			text := string(out)
			assert.Contains(t, text, "PCI_DSS_Action_Report_b.xlsx")
			assert.Less(t, strings.Index(text, "Report_b"), strings.Index(text, "Report_a"))
		})
	}
}
