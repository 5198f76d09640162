package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskfeed/internal/model"
	appsync "github.com/nhle/taskfeed/internal/sync"
	"github.com/nhle/taskfeed/internal/theme"
	"github.com/nhle/taskfeed/internal/ui"
	"github.com/nhle/taskfeed/internal/ui/detail"
	"github.com/nhle/taskfeed/internal/ui/feedlist"
	helpview "github.com/nhle/taskfeed/internal/ui/help"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewFeed ViewState = iota
	ViewDetail
	ViewHelp
)

// Options configures the root model.
type Options struct {
	Principal string
	Location  *time.Location
	Now       func() time.Time
}

// Model is the root Bubble Tea model of the watch view.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *KeyMap
	poller       *appsync.Poller
	feedList     feedlist.Model
	detail       detail.Model
	helpView     helpview.Model
	spinner      spinner.Model
	opts         Options
	ready        bool
	received     bool
	feed         model.NotificationFeed
	subscribed   bool
	errMessage   string
	fatal        error
}

// New creates the root model over a poller driving the feed engine and a
// task getter for the detail view.
func New(p *appsync.Poller, tasks detail.TaskGetter, opts Options) Model {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	keys := DefaultKeyMap()

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorWhite).Background(theme.ColorBlue)

	return Model{
		currentView: ViewFeed,
		keys:        keys,
		poller:      p,
		feedList:    feedlist.New(keys, opts.Location, 80, 22),
		detail:      detail.New(tasks, keys, 80, 22),
		helpView:    helpview.New(keys, 80, 22),
		spinner:     sp,
		opts:        opts,
	}
}

// Err returns the error that ended the program, if any.
func (m Model) Err() error {
	return m.fatal
}

// Init starts the engine and the fetch spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.poller.Start(),
		m.spinner.Tick,
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentHeight := m.layout.ContentHeight()
		m.feedList.SetSize(msg.Width, contentHeight)
		m.detail.SetSize(msg.Width, contentHeight)
		m.helpView.SetSize(msg.Width, contentHeight)
		return m, nil

	case appsync.FeedMsg:
		m.received = true
		m.feed = msg.Feed
		m.subscribed = msg.Subscribed
		m.errMessage = ""
		if msg.Err != nil {
			m.errMessage = firstLine(msg.Err.Error())
		}
		cmd := m.feedList.SetFeed(msg.Feed, m.opts.Now())
		return m, tea.Batch(cmd, m.poller.WaitForNextResult())

	case appsync.StartErrMsg:
		m.fatal = msg.Err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case feedlist.SelectedMsg:
		m.previousView = m.currentView
		m.currentView = ViewDetail
		return m, m.detail.Open(msg.Item)

	case detail.BackMsg:
		m.currentView = ViewFeed
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.poller.Stop()
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
				return m, nil
			}
			m.previousView = m.currentView
			m.currentView = ViewHelp
			return m, nil

		case key.Matches(msg, m.keys.Refresh):
			m.poller.RefreshAll()
			return m, nil

		case key.Matches(msg, m.keys.Back) && m.currentView == ViewHelp:
			m.currentView = m.previousView
			return m, nil
		}
	}

	return m.updateActiveView(msg)
}

// updateActiveView forwards msg to the active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.currentView {
	case ViewFeed:
		m.feedList, cmd = m.feedList.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	}
	return m, cmd
}

// View renders the full screen.
func (m Model) View() string {
	if !m.ready {
		return "Starting..."
	}

	header := m.layout.RenderHeader("taskfeed · "+m.opts.Principal, m.status())
	statusBar := m.layout.RenderStatusBar(m.keyHints(), m.errMessage)

	return m.layout.RenderWithFrame(header, m.renderContent(), statusBar)
}

func (m Model) renderContent() string {
	content := ""
	switch m.currentView {
	case ViewDetail:
		content = m.detail.View()
	case ViewHelp:
		content = m.helpView.View()
	default:
		content = m.feedList.View()
	}
	return lipgloss.NewStyle().
		Height(m.layout.ContentHeight()).
		MaxHeight(m.layout.ContentHeight()).
		Render(content)
}

// status renders the right side of the header.
func (m Model) status() string {
	var parts []string
	if m.poller.IsFetching() || !m.received {
		parts = append(parts, m.spinner.View())
	}
	if m.received {
		parts = append(parts, fmt.Sprintf("%d due · %d activity",
			len(m.feed.DueSoonTasks), len(m.feed.RecentActivities)))
	} else {
		parts = append(parts, "loading")
	}
	if m.received && !m.subscribed {
		parts = append(parts, "polling")
	}
	return strings.Join(parts, " ")
}

// keyHints renders the bottom status bar hints for the active view.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewDetail:
		return "esc back · j/k scroll · ? help · q quit"
	case ViewHelp:
		return "? or esc close · q quit"
	}
	return "j/k move · tab section · enter open · r refetch · ? help · q quit"
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
