package help

import (
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskfeed/internal/feed"
	"github.com/nhle/taskfeed/internal/keys"
	"github.com/nhle/taskfeed/internal/theme"
)

// Model is the help overlay view.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	width  int
	height int
}

// New creates a new help view model.
func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:   keys,
		help:   h,
		width:  width,
		height: height,
	}
}

// View renders the key bindings and a short legend of the two sections.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	title := titleStyle.Render("Keyboard Shortcuts")

	m.help.ShowAll = true
	helpText := m.help.View(m.keys)

	legend := theme.HelpStyle.MarginTop(1).Render(
		fmt.Sprintf("Due soon: open tasks due today or tomorrow.\n"+
			"Recent activity: changes from the last hour, one entry per task per %d-minute burst.",
			int(feed.ClusterWindow.Minutes())),
	)

	content := lipgloss.JoinVertical(lipgloss.Left, title, helpText, legend)

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(content)
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
