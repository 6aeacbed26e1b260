// Package float implements the floating panel primitive used for drop
// confirmations, dependency listings, definition viewers and form hosts:
// a bordered, titled window with scrollable styled content, optional
// buttons, and overlay composition onto a background view.
package float

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/dbnav/internal/theme"
)

// Button represents a panel button.
type Button struct {
	Label  string
	Action func() tea.Msg
}

// Model is a reusable floating panel component.
type Model struct {
	title   string
	lines   []string
	buttons []Button
	active  int
	visible bool
	offset  int

	width     int
	height    int
	maxWidth  int
	maxHeight int
}

// New creates a panel with prebuilt content lines.
func New(title string, lines []string, buttons ...Button) Model {
	return Model{
		title:     title,
		lines:     lines,
		buttons:   buttons,
		maxWidth:  70,
		maxHeight: 20,
	}
}

// Init returns no initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles panel navigation.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.visible {
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.offset > 0 {
				m.offset--
			}
		case "down", "j":
			if m.offset < m.maxOffset() {
				m.offset++
			}
		case "pgup":
			m.offset -= m.pageSize()
			if m.offset < 0 {
				m.offset = 0
			}
		case "pgdown":
			m.offset += m.pageSize()
			if max := m.maxOffset(); m.offset > max {
				m.offset = max
			}
		case "left", "shift+tab":
			if m.active > 0 {
				m.active--
			}
		case "right", "tab":
			if m.active < len(m.buttons)-1 {
				m.active++
			}
		case "enter":
			if m.active < len(m.buttons) && m.buttons[m.active].Action != nil {
				m.visible = false
				return m, m.buttons[m.active].Action
			}
		case "esc", "q":
			m.visible = false
		}
	}

	return m, nil
}

func (m Model) pageSize() int {
	h := m.contentHeight()
	if h < 1 {
		return 1
	}
	return h
}

func (m Model) contentHeight() int {
	// Title, blank separator and optional button row eat into maxHeight.
	h := m.maxHeight - 2
	if len(m.buttons) > 0 {
		h -= 2
	}
	if h < 1 {
		h = 1
	}
	return h
}

func (m Model) maxOffset() int {
	max := len(m.lines) - m.contentHeight()
	if max < 0 {
		return 0
	}
	return max
}

// View renders the panel.
func (m Model) View() string {
	if !m.visible {
		return ""
	}

	th := theme.Current
	innerWidth := m.maxWidth - 6 // border + padding

	title := th.FloatTitle.Render(m.title)

	visible := m.visibleLines()
	body := strings.Join(m.withScrollbar(visible, innerWidth), "\n")

	parts := []string{title, "", body}
	if len(m.buttons) > 0 {
		var btns []string
		for i, btn := range m.buttons {
			style := th.ButtonIdle
			if i == m.active {
				style = th.ButtonActive
			}
			btns = append(btns, style.Render(" "+btn.Label+" "))
		}
		row := lipgloss.JoinHorizontal(lipgloss.Center, btns...)
		row = lipgloss.NewStyle().Width(innerWidth).Align(lipgloss.Center).Render(row)
		parts = append(parts, "", row)
	}

	content := lipgloss.JoinVertical(lipgloss.Left, parts...)
	return th.FloatBorder.Render(content)
}

func (m Model) visibleLines() []string {
	h := m.contentHeight()
	start := m.offset
	if start > len(m.lines) {
		start = len(m.lines)
	}
	end := start + h
	if end > len(m.lines) {
		end = len(m.lines)
	}
	return m.lines[start:end]
}

// withScrollbar appends a proportional scrollbar column when the content
// overflows the panel.
func (m Model) withScrollbar(visible []string, width int) []string {
	if len(m.lines) <= m.contentHeight() {
		return visible
	}

	h := len(visible)
	if h == 0 {
		return visible
	}
	thumbLen := h * h / len(m.lines)
	if thumbLen < 1 {
		thumbLen = 1
	}
	thumbStart := 0
	if max := m.maxOffset(); max > 0 {
		thumbStart = m.offset * (h - thumbLen) / max
	}

	th := theme.Current
	out := make([]string, h)
	for i, line := range visible {
		bar := "│"
		if i >= thumbStart && i < thumbStart+thumbLen {
			bar = "█"
		}
		padded := lipgloss.NewStyle().Width(width - 2).MaxWidth(width - 2).Render(line)
		out[i] = padded + " " + th.FloatScrollbar.Render(bar)
	}
	return out
}

// Show makes the panel visible and resets scroll and button state.
func (m *Model) Show() {
	m.visible = true
	m.active = 0
	m.offset = 0
}

// Hide makes the panel invisible.
func (m *Model) Hide() {
	m.visible = false
}

// Visible returns whether the panel is shown.
func (m Model) Visible() bool {
	return m.visible
}

// SetContent replaces the panel's lines.
func (m *Model) SetContent(title string, lines []string) {
	m.title = title
	m.lines = lines
	m.offset = 0
}

// SetSize sets the available space for centering and clamps the panel.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if m.maxWidth > width-4 {
		m.maxWidth = width - 4
	}
	if m.maxHeight > height-2 {
		m.maxHeight = height - 2
	}
}

// Overlay renders the panel centered over the given background content.
func (m Model) Overlay(background string) string {
	if !m.visible {
		return background
	}

	panel := m.View()
	bgLines := strings.Split(background, "\n")
	panelLines := strings.Split(panel, "\n")

	bgH := len(bgLines)
	panelH := len(panelLines)
	panelW := lipgloss.Width(panel)

	startY := (bgH - panelH) / 2
	startX := (m.width - panelW) / 2
	if startY < 0 {
		startY = 0
	}
	if startX < 0 {
		startX = 0
	}

	for i, pl := range panelLines {
		y := startY + i
		if y >= bgH {
			break
		}
		line := bgLines[y]
		lineRunes := []rune(line)
		var prefix string
		if startX < len(lineRunes) {
			prefix = string(lineRunes[:startX])
		} else {
			prefix = line + strings.Repeat(" ", startX-len(lineRunes))
		}
		suffix := ""
		endX := startX + lipgloss.Width(pl)
		if endX < len(lineRunes) {
			suffix = string(lineRunes[endX:])
		}
		bgLines[y] = prefix + pl + suffix
	}

	return strings.Join(bgLines, "\n")
}

// SplitHorizontal joins panels side by side with a separator column, for
// multi-panel layouts such as definition-plus-dependencies views.
func SplitHorizontal(panels ...string) string {
	if len(panels) == 0 {
		return ""
	}
	sep := theme.Current.MutedText.Render(" │ ")
	joined := panels[0]
	for _, p := range panels[1:] {
		joined = lipgloss.JoinHorizontal(lipgloss.Top, joined, sep, p)
	}
	return joined
}

// Builder accumulates styled content lines for a panel.
type Builder struct {
	lines []string
}

// Line appends one line from pre-styled segments.
func (b *Builder) Line(segments ...string) *Builder {
	b.lines = append(b.lines, strings.Join(segments, ""))
	return b
}

// Linef appends one formatted line rendered with a style.
func (b *Builder) Linef(style lipgloss.Style, format string, args ...any) *Builder {
	b.lines = append(b.lines, style.Render(fmt.Sprintf(format, args...)))
	return b
}

// Blank appends an empty line.
func (b *Builder) Blank() *Builder {
	b.lines = append(b.lines, "")
	return b
}

// Lines returns the accumulated content.
func (b *Builder) Lines() []string {
	return b.lines
}
