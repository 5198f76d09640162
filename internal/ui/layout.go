package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskfeed/internal/theme"
)

// Layout manages the terminal layout dimensions of the feed view.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
// HeaderHeight and StatusBarHeight default to 1.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentHeight returns the height available between the header and the
// status bar, never negative.
func (l Layout) ContentHeight() int {
	return max(0, l.Height-l.HeaderHeight-l.StatusBarHeight)
}

// SectionHeights splits the content area between the due-soon section and
// the activity section. The due-soon section gets what it needs up to a
// third of the space; activity gets the rest.
func (l Layout) SectionHeights(dueSoonRows int) (dueSoon, activity int) {
	total := l.ContentHeight()
	// one title line per section
	want := dueSoonRows + 1
	limit := max(2, total/3)
	dueSoon = min(max(want, 2), limit)
	activity = max(0, total-dueSoon)
	return dueSoon, activity
}

// RenderHeader renders the top bar with a title on the left and status
// text on the right.
func (l Layout) RenderHeader(title, status string) string {
	return fillBetween(theme.HeaderStyle, l.Width, title, status)
}

// RenderStatusBar renders the bottom bar with keyboard hints. When errMsg
// is set it is shown instead, on a red background.
func (l Layout) RenderStatusBar(hints, errMsg string) string {
	if errMsg != "" {
		return fillBetween(theme.ErrorBarStyle, l.Width, errMsg, "")
	}
	return fillBetween(theme.StatusBarStyle, l.Width, hints, "")
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, content area, and status bar.
func (l Layout) RenderWithFrame(header, content, statusBar string) string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		content,
		statusBar,
	)
}

// fillBetween renders left and right with style, padding the gap between
// them so the bar spans width.
func fillBetween(style lipgloss.Style, width int, left, right string) string {
	leftRendered := style.Render(left)
	rightRendered := ""
	if right != "" {
		rightRendered = style.Align(lipgloss.Right).Render(right)
	}

	gap := width -
		lipgloss.Width(leftRendered) -
		lipgloss.Width(rightRendered)
	if gap < 0 {
		gap = 0
	}

	filler := lipgloss.NewStyle().
		Width(gap).
		Background(style.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		leftRendered,
		filler,
		rightRendered,
	)
}
