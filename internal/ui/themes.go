package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/yildizm/GapReport/internal/ui/components"
)

// Theme represents a color theme for the TUI
type Theme struct {
	Name string

	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Accent    lipgloss.AdaptiveColor

	// Semantic colors
	Success lipgloss.AdaptiveColor
	Warning lipgloss.AdaptiveColor
	Error   lipgloss.AdaptiveColor
	Info    lipgloss.AdaptiveColor

	Border   lipgloss.AdaptiveColor
	Muted    lipgloss.AdaptiveColor
	Selected lipgloss.AdaptiveColor
}

// buildTheme creates a theme from light/dark pairs
func buildTheme(name string, primary, secondary, accent, success, warning, errorColor, info, border, muted, selected [2]string) Theme {
	pair := func(c [2]string) lipgloss.AdaptiveColor {
		return lipgloss.AdaptiveColor{Light: c[0], Dark: c[1]}
	}
	return Theme{
		Name:      name,
		Primary:   pair(primary),
		Secondary: pair(secondary),
		Accent:    pair(accent),
		Success:   pair(success),
		Warning:   pair(warning),
		Error:     pair(errorColor),
		Info:      pair(info),
		Border:    pair(border),
		Muted:     pair(muted),
		Selected:  pair(selected),
	}
}

// Available themes
var (
	DefaultTheme = buildTheme("default",
		[2]string{"#1E40AF", "#3B82F6"}, [2]string{"#6B7280", "#9CA3AF"}, [2]string{"#7C3AED", "#A855F7"},
		[2]string{"#059669", "#10B981"}, [2]string{"#D97706", "#F59E0B"}, [2]string{"#DC2626", "#EF4444"},
		[2]string{"#0891B2", "#06B6D4"}, [2]string{"#D1D5DB", "#374151"}, [2]string{"#6B7280", "#9CA3AF"},
		[2]string{"#DBEAFE", "#1E3A8A"})

	HighContrastTheme = buildTheme("high-contrast",
		[2]string{"#000000", "#FFFFFF"}, [2]string{"#666666", "#BBBBBB"}, [2]string{"#000080", "#8080FF"},
		[2]string{"#006600", "#00FF00"}, [2]string{"#CC6600", "#FFAA00"}, [2]string{"#CC0000", "#FF4444"},
		[2]string{"#0066CC", "#4499FF"}, [2]string{"#000000", "#FFFFFF"}, [2]string{"#666666", "#BBBBBB"},
		[2]string{"#CCCCCC", "#333333"})

	MinimalTheme = buildTheme("minimal",
		[2]string{"#2D3748", "#E2E8F0"}, [2]string{"#718096", "#A0AEC0"}, [2]string{"#4A5568", "#CBD5E0"},
		[2]string{"#2F855A", "#68D391"}, [2]string{"#C05621", "#F6AD55"}, [2]string{"#C53030", "#FC8181"},
		[2]string{"#2B6CB0", "#63B3ED"}, [2]string{"#E2E8F0", "#2D3748"}, [2]string{"#A0AEC0", "#718096"},
		[2]string{"#EDF2F7", "#2D3748"})
)

// ThemeByName looks up one of the available themes
func ThemeByName(name string) (Theme, bool) {
	switch name {
	case "", "default":
		return DefaultTheme, true
	case "high-contrast":
		return HighContrastTheme, true
	case "minimal":
		return MinimalTheme, true
	default:
		return DefaultTheme, false
	}
}

// GetAvailableThemes returns list of available theme names
func GetAvailableThemes() []string {
	return []string{"default", "high-contrast", "minimal"}
}

// Palette maps the theme onto dashboard cards. Without color the cards
// are plain.
func (t Theme) Palette(color bool) components.Palette {
	if !color {
		return components.Palette{}
	}
	return components.Palette{
		Title:   t.Primary,
		Muted:   t.Muted,
		Border:  t.Border,
		Info:    t.Info,
		Success: t.Success,
		Warning: t.Warning,
		Error:   t.Error,
	}
}

// IsColorDisabled checks if colors should be disabled
func IsColorDisabled() bool {
	return os.Getenv("NO_COLOR") != ""
}

// Styles contains all the styled components
type Styles struct {
	Theme Theme

	Title  lipgloss.Style
	Label  lipgloss.Style
	Muted  lipgloss.Style
	Input  lipgloss.Style
	Status lipgloss.Style

	// Notice levels
	Info    lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style

	Button         lipgloss.Style
	ButtonDisabled lipgloss.Style

	Modal      lipgloss.Style
	ModalTitle lipgloss.Style
	Failure    lipgloss.Style
}

// NewStyles builds the styles for theme. Without color every style is plain
// apart from borders and emphasis.
func NewStyles(theme Theme, color bool) *Styles {
	s := &Styles{
		Theme: theme,

		Title:  lipgloss.NewStyle().Bold(true).Padding(0, 1),
		Label:  lipgloss.NewStyle().Bold(true),
		Muted:  lipgloss.NewStyle(),
		Input:  lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
		Status: lipgloss.NewStyle().Bold(true),

		Info:    lipgloss.NewStyle(),
		Warning: lipgloss.NewStyle().Bold(true),
		Error:   lipgloss.NewStyle().Bold(true),

		Button:         lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).Bold(true),
		ButtonDisabled: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).Faint(true),

		Modal:      lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
		ModalTitle: lipgloss.NewStyle().Bold(true),
		Failure:    lipgloss.NewStyle().Bold(true),
	}
	if !color {
		return s
	}

	s.Title = s.Title.Foreground(theme.Primary)
	s.Label = s.Label.Foreground(theme.Secondary)
	s.Muted = s.Muted.Foreground(theme.Muted)
	s.Input = s.Input.BorderForeground(theme.Border)
	s.Status = s.Status.Foreground(theme.Accent)
	s.Info = s.Info.Foreground(theme.Info)
	s.Warning = s.Warning.Foreground(theme.Warning)
	s.Error = s.Error.Foreground(theme.Error)
	s.Button = s.Button.BorderForeground(theme.Primary).Foreground(theme.Primary)
	s.ButtonDisabled = s.ButtonDisabled.BorderForeground(theme.Border).Foreground(theme.Muted)
	s.Modal = s.Modal.BorderForeground(theme.Accent)
	s.ModalTitle = s.ModalTitle.Foreground(theme.Primary)
	s.Failure = s.Failure.Foreground(theme.Error)
	return s
}
