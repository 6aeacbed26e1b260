package tabs

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	appmsg "github.com/sadopc/dbnav/internal/msg"
	"github.com/sadopc/dbnav/internal/theme"
)

// Tab is the bar's view of one query buffer.
type Tab struct {
	ID       int
	Title    string
	Modified bool
	Running  bool
}

// Model is the tab bar component. It mirrors the buffer manager; the app
// calls SetTabs after any buffer is opened or closed.
type Model struct {
	tabs   []Tab
	active int
	width  int
}

// New creates an empty tab bar.
func New() Model {
	return Model{}
}

// Init returns no initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// SetTabs replaces the tab list and selects the tab with activeID.
func (m *Model) SetTabs(tabs []Tab, activeID int) {
	m.tabs = tabs
	m.active = 0
	if idx := m.indexByID(activeID); idx >= 0 {
		m.active = idx
	}
}

// Update handles tab bar messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case appmsg.SwitchBufferMsg:
		if idx := m.indexByID(msg.BufferID); idx >= 0 {
			m.active = idx
		}
	}
	return m, nil
}

// View renders the tab bar.
func (m Model) View() string {
	if m.width == 0 {
		return ""
	}

	th := theme.Current

	var rendered []string
	for i, tab := range m.tabs {
		title := tab.Title
		if tab.Running {
			title = "▶ " + title
		}
		if tab.Modified {
			title += " *"
		}

		var style lipgloss.Style
		if i == m.active {
			style = th.TabActive
		} else {
			style = th.TabInactive
		}
		rendered = append(rendered, style.Render(title))
	}

	newTabBtn := th.TabInactive.Render(" + ")
	rendered = append(rendered, newTabBtn)

	bar := lipgloss.JoinHorizontal(lipgloss.Bottom, rendered...)
	return th.TabBar.Width(m.width).Render(bar)
}

// SetSize sets the tab bar width.
func (m *Model) SetSize(width int) {
	m.width = width
}

// ActiveTab returns the active tab.
func (m Model) ActiveTab() Tab {
	if m.active < len(m.tabs) {
		return m.tabs[m.active]
	}
	return Tab{}
}

// ActiveID returns the active tab ID.
func (m Model) ActiveID() int {
	return m.ActiveTab().ID
}

// SetModified marks a tab as modified.
func (m *Model) SetModified(id int, modified bool) {
	if idx := m.indexByID(id); idx >= 0 {
		m.tabs[idx].Modified = modified
	}
}

// SetRunning marks a tab as running a query.
func (m *Model) SetRunning(id int, running bool) {
	if idx := m.indexByID(id); idx >= 0 {
		m.tabs[idx].Running = running
	}
}

// NextTab switches to the next tab.
func (m *Model) NextTab() tea.Cmd {
	if len(m.tabs) == 0 {
		return nil
	}
	m.active = (m.active + 1) % len(m.tabs)
	id := m.tabs[m.active].ID
	return func() tea.Msg { return appmsg.SwitchBufferMsg{BufferID: id} }
}

// PrevTab switches to the previous tab.
func (m *Model) PrevTab() tea.Cmd {
	if len(m.tabs) == 0 {
		return nil
	}
	m.active--
	if m.active < 0 {
		m.active = len(m.tabs) - 1
	}
	id := m.tabs[m.active].ID
	return func() tea.Msg { return appmsg.SwitchBufferMsg{BufferID: id} }
}

// Tabs returns all tabs.
func (m Model) Tabs() []Tab {
	return m.tabs
}

// Count returns the number of tabs.
func (m Model) Count() int {
	return len(m.tabs)
}

func (m Model) indexByID(id int) int {
	for i, t := range m.tabs {
		if t.ID == id {
			return i
		}
	}
	return -1
}
