package theme

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/nhle/taskfeed/internal/model"
)

// Theme names accepted by Apply.
const (
	ThemeAuto  = "auto"
	ThemeDark  = "dark"
	ThemeLight = "light"
	ThemeMono  = "mono"
)

// Apply configures the default renderer for the named theme. "auto" keeps
// terminal detection; "dark" and "light" pick a side of every adaptive
// color; "mono" drops colors entirely.
func Apply(name string) error {
	switch name {
	case "", ThemeAuto:
	case ThemeDark:
		lipgloss.SetHasDarkBackground(true)
	case ThemeLight:
		lipgloss.SetHasDarkBackground(false)
	case ThemeMono:
		lipgloss.SetColorProfile(termenv.Ascii)
	default:
		return fmt.Errorf("unknown theme %q (want auto, dark, light or mono)", name)
	}
	return nil
}

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorOrange  = lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#C05621"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for the application title bar.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// StatusBarStyle is used for the bottom status bar.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// ErrorBarStyle replaces the status bar background when the last refresh
// failed.
var ErrorBarStyle = StatusBarStyle.
	Background(ColorRed)

// SectionTitleStyle titles the due-soon and activity sections.
var SectionTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorGray).
	Padding(0, 1)

// FocusedSectionTitleStyle titles the section holding the cursor.
var FocusedSectionTitleStyle = SectionTitleStyle.
	Foreground(ColorBlue)

// DetailPanelStyle wraps the detail view content area.
var DetailPanelStyle = lipgloss.NewStyle().
	Padding(1, 2).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// ListItemStyle is the base style for items in a list.
var ListItemStyle = lipgloss.NewStyle().
	PaddingLeft(2)

// SelectedItemStyle highlights the currently focused list item.
var SelectedItemStyle = lipgloss.NewStyle().
	PaddingLeft(1).
	Bold(true).
	Foreground(ColorBlue).
	Border(lipgloss.NormalBorder(), false, false, false, true).
	BorderForeground(ColorBlue)

// HelpStyle is used for keyboard shortcut hints and help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// DimmedStyle renders secondary text such as timestamps.
var DimmedStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// DueTodayStyle flags a deadline that is today.
var DueTodayStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorRed)

// DueTomorrowStyle flags a deadline that is tomorrow.
var DueTomorrowStyle = lipgloss.NewStyle().
	Foreground(ColorOrange)

// StatusStyle returns a color-coded style for a task status.
func StatusStyle(status string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	switch status {
	case model.StatusTodo:
		return base.Foreground(ColorBlue)
	case model.StatusInProgress:
		return base.Foreground(ColorYellow)
	case model.StatusReview:
		return base.Foreground(ColorMagenta)
	case model.StatusDone:
		return base.Foreground(ColorGreen)
	default:
		return base.Foreground(ColorGray)
	}
}

// PriorityStyle returns a color-coded style for a task priority.
func PriorityStyle(priority string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch priority {
	case model.PriorityHigh:
		return base.Foreground(ColorRed)
	case model.PriorityMedium:
		return base.Foreground(ColorYellow)
	case model.PriorityLow:
		return base.Foreground(ColorBlue)
	default:
		return base.Foreground(ColorGray)
	}
}

// ActionStyle returns a color-coded style for an activity action.
func ActionStyle(action model.Action) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch action {
	case model.ActionCreated:
		return base.Foreground(ColorGreen)
	case model.ActionDeleted:
		return base.Foreground(ColorRed)
	case model.ActionStatusChanged:
		return base.Foreground(ColorMagenta)
	case model.ActionAssigned:
		return base.Foreground(ColorBlue)
	case model.ActionPriorityChanged, model.ActionDueDateChanged:
		return base.Foreground(ColorOrange)
	default:
		return base.Foreground(ColorYellow)
	}
}
