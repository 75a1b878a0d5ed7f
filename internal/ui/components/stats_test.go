package components

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yildizm/GapReport/internal/backend"
)

func finding(category string) backend.Finding {
	return backend.Finding(`{"Title":"t","Category":"` + category + `"}`)
}

func TestFindingsDashboard(t *testing.T) {
	findings := []backend.Finding{
		finding("Network"),
		finding("Access Control"),
		finding("Access Control"),
		finding("Logging"),
		finding("Encryption"),
		finding("Access Control"),
		finding("Logging"),
	}

	d := FindingsDashboard(findings, 3, 2)
	cards := d.Cards()
	require.Len(t, cards, 4)

	assert.Equal(t, "Findings", cards[0].Title)
	assert.Equal(t, "7", cards[0].Value)
	assert.Equal(t, "warning", cards[0].Status)

	assert.Equal(t, "Access Control", cards[1].Title)
	assert.Equal(t, "3", cards[1].Value)
	assert.Equal(t, "Logging", cards[2].Title)
	assert.Equal(t, "2", cards[2].Value)

	assert.Equal(t, "Other", cards[3].Title)
	assert.Equal(t, "2", cards[3].Value)
	assert.Equal(t, "2 more categories", cards[3].Description)
}

func TestFindingsDashboardEmpty(t *testing.T) {
	d := FindingsDashboard(nil, 4, 3)
	cards := d.Cards()
	require.Len(t, cards, 1)
	assert.Equal(t, "0", cards[0].Value)
	assert.Equal(t, "success", cards[0].Status)
}

func TestDashboardRender(t *testing.T) {
	d := FindingsDashboard([]backend.Finding{finding("Network"), finding("")}, 2, 3)
	out := d.Render(Palette{})

	assert.Contains(t, out, "Findings")
	assert.Contains(t, out, "Network")
	assert.Contains(t, out, "Uncategorized")

	// three cards in two columns give two rows of boxes
	tops := 0
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "╭") {
			tops++
		}
	}
	assert.Equal(t, 2, tops, out)
}

func TestFormatNumber(t *testing.T) {
	tests := map[int]string{
		0:       "0",
		999:     "999",
		1000:    "1,000",
		1234567: "1,234,567",
	}
	for n, want := range tests {
		assert.Equal(t, want, formatNumber(n))
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefghij", 5))
	assert.Equal(t, "abc", truncate("abc", 0))
}
