package components

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/yildizm/GapReport/internal/backend"
	"github.com/yildizm/GapReport/internal/formatter"
)

// Palette colors the cards. Zero colors render unstyled.
type Palette struct {
	Title   lipgloss.TerminalColor
	Muted   lipgloss.TerminalColor
	Border  lipgloss.TerminalColor
	Info    lipgloss.TerminalColor
	Success lipgloss.TerminalColor
	Warning lipgloss.TerminalColor
	Error   lipgloss.TerminalColor
}

func (p Palette) color(c lipgloss.TerminalColor) lipgloss.TerminalColor {
	if c == nil {
		return lipgloss.NoColor{}
	}
	return c
}

// StatsCard represents a statistics card component
type StatsCard struct {
	Title       string
	Value       string
	Description string
	Status      string // "success", "warning", "error", "info"
	Icon        string
	Width       int
	Height      int
}

// NewStatsCard creates a new stats card
func NewStatsCard(title, value, description string) *StatsCard {
	return &StatsCard{
		Title:       title,
		Value:       value,
		Description: description,
		Status:      "info",
		Width:       22,
		Height:      3,
	}
}

// SetStatus sets the status color of the card
func (s *StatsCard) SetStatus(status string) *StatsCard {
	s.Status = status
	return s
}

// SetIcon sets the icon for the card
func (s *StatsCard) SetIcon(icon string) *StatsCard {
	s.Icon = icon
	return s
}

// SetSize sets the size of the card
func (s *StatsCard) SetSize(width, height int) *StatsCard {
	s.Width = width
	s.Height = height
	return s
}

// Render renders the stats card
func (s *StatsCard) Render(p Palette) string {
	var valueColor lipgloss.TerminalColor
	switch s.Status {
	case "success":
		valueColor = p.Success
	case "warning":
		valueColor = p.Warning
	case "error":
		valueColor = p.Error
	case "info":
		valueColor = p.Info
	default:
		valueColor = p.Muted
	}

	titleStyle := lipgloss.NewStyle().Foreground(p.color(p.Title)).Bold(true)
	valueStyle := lipgloss.NewStyle().Foreground(p.color(valueColor)).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(p.color(p.Muted))
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.color(p.Border)).
		Padding(0, 1)

	title := titleStyle.Render(truncate(s.Title, s.Width-2))
	if s.Icon != "" {
		title = s.Icon + " " + title
	}

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		title,
		valueStyle.Render(s.Value),
		mutedStyle.Render(truncate(s.Description, s.Width-2)),
	)

	return boxStyle.
		Width(s.Width).
		Height(s.Height).
		Render(content)
}

// StatsDashboard represents a collection of stats cards
type StatsDashboard struct {
	cards      []*StatsCard
	columns    int
	cardWidth  int
	cardHeight int
}

// NewStatsDashboard creates a new stats dashboard
func NewStatsDashboard(columns int) *StatsDashboard {
	if columns < 1 {
		columns = 1
	}
	return &StatsDashboard{
		columns:    columns,
		cardWidth:  22,
		cardHeight: 3,
	}
}

// AddCard adds a stats card to the dashboard
func (d *StatsDashboard) AddCard(card *StatsCard) {
	card.SetSize(d.cardWidth, d.cardHeight)
	d.cards = append(d.cards, card)
}

// Cards returns the cards in display order
func (d *StatsDashboard) Cards() []*StatsCard {
	return d.cards
}

// Render renders the stats dashboard
func (d *StatsDashboard) Render(p Palette) string {
	if len(d.cards) == 0 {
		return ""
	}

	var rows []string
	for i := 0; i < len(d.cards); i += d.columns {
		end := min(i+d.columns, len(d.cards))

		rowCards := make([]string, 0, end-i)
		for j := i; j < end; j++ {
			rowCards = append(rowCards, d.cards[j].Render(p))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, rowCards...))
	}

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// FindingsDashboard summarizes an analysis result: one card for the total
// and one per category, largest first. Categories beyond maxCategories are
// folded into an "Other" card.
func FindingsDashboard(findings []backend.Finding, columns, maxCategories int) *StatsDashboard {
	dashboard := NewStatsDashboard(columns)

	status := "success"
	if len(findings) > 0 {
		status = "warning"
	}
	dashboard.AddCard(NewStatsCard(
		"Findings",
		formatNumber(len(findings)),
		"gaps identified",
	).SetStatus(status))

	records := make([]formatter.Record, 0, len(findings))
	for _, f := range findings {
		records = append(records, formatter.DecodeRecord(f))
	}
	order, counts := formatter.CategoryCounts(records)
	sortByCount(order, counts)

	other := 0
	for i, name := range order {
		if i >= maxCategories {
			other += counts[name]
			continue
		}
		dashboard.AddCard(NewStatsCard(name, formatNumber(counts[name]), plural(counts[name])).SetStatus("info"))
	}
	if other > 0 {
		dashboard.AddCard(NewStatsCard("Other", formatNumber(other), fmt.Sprintf("%d more categories", len(order)-maxCategories)))
	}

	return dashboard
}

// sortByCount orders names by descending count, keeping first-seen order
// for ties
func sortByCount(names []string, counts map[string]int) {
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && counts[names[j]] > counts[names[j-1]]; j-- {
			names[j], names[j-1] = names[j-1], names[j]
		}
	}
}

func plural(n int) string {
	if n == 1 {
		return "finding"
	}
	return "findings"
}

func truncate(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > width {
		r = r[:len(r)-1]
	}
	return strings.TrimSpace(string(r)) + "…"
}

// formatNumber formats large numbers with commas
func formatNumber(n int) string {
	str := strconv.Itoa(n)
	if len(str) <= 3 {
		return str
	}

	var result strings.Builder
	for i, digit := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result.WriteString(",")
		}
		result.WriteRune(digit)
	}

	return result.String()
}
