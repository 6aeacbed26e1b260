package editor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	appmsg "github.com/sadopc/dbnav/internal/msg"
	"github.com/sadopc/dbnav/internal/theme"
)

// Model wraps a textarea with SQL-aware styling. When focused, the
// underlying textarea handles editing; when blurred, the content renders
// with syntax highlighting and line numbers.
//
// TODO: inline highlighting while editing needs textarea v2 or a custom
// widget; until then the highlighted rendering only shows in the blurred
// view.
type Model struct {
	textarea    textarea.Model
	highlighter *Highlighter
	width       int
	height      int
	focused     bool
	modified    bool
}

// New creates an editor highlighting for the given SQL dialect (a driver
// name; empty selects the generic lexer).
func New(dialect string) Model {
	ta := textarea.New()
	ta.Placeholder = "Enter SQL query..."
	ta.ShowLineNumbers = true
	ta.CharLimit = 0

	th := theme.Current
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Prompt = th.EditorLineNumber
	ta.FocusedStyle.Text = lipgloss.NewStyle()
	ta.BlurredStyle.Prompt = th.EditorLineNumber
	ta.BlurredStyle.Text = lipgloss.NewStyle()
	ta.Blur()

	return Model{
		textarea:    ta,
		highlighter: NewHighlighter(dialect),
	}
}

// SetDialect swaps the highlighter, e.g. after the buffer is rebound to a
// server with a different engine.
func (m *Model) SetDialect(dialect string) {
	m.highlighter = NewHighlighter(dialect)
}

// Init returns the textarea blink command.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update delegates to the textarea and tracks modification.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if ins, ok := msg.(appmsg.InsertTextMsg); ok {
		m.InsertText(ins.Text)
		return m, nil
	}
	if !m.focused {
		return m, nil
	}

	prev := m.textarea.Value()
	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	if m.textarea.Value() != prev {
		m.modified = true
	}
	return m, cmd
}

// View renders the editor.
func (m Model) View() string {
	th := theme.Current

	var border lipgloss.Style
	if m.focused {
		border = th.FocusedBorder
	} else {
		border = th.UnfocusedBorder
	}

	innerW := m.width - 2
	innerH := m.height - 2
	if innerW < 1 {
		innerW = 1
	}
	if innerH < 1 {
		innerH = 1
	}

	var content string
	if m.focused {
		m.textarea.SetWidth(innerW)
		m.textarea.SetHeight(innerH)
		content = m.textarea.View()
	} else {
		content = m.renderHighlighted(th, innerH)
	}

	return border.Width(innerW).Height(innerH).Render(content)
}

func (m Model) renderHighlighted(th *theme.Theme, height int) string {
	raw := m.textarea.Value()
	if raw == "" {
		return th.MutedText.Render(m.textarea.Placeholder)
	}

	highlighted := m.highlighter.Highlight(raw, th)
	lines := strings.Split(highlighted, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}

	totalLines := strings.Count(raw, "\n") + 1
	gutterWidth := len(fmt.Sprintf("%d", totalLines))
	if gutterWidth < 2 {
		gutterWidth = 2
	}

	var b strings.Builder
	for i, line := range lines {
		b.WriteString(th.EditorLineNumber.Render(fmt.Sprintf("%*d ", gutterWidth, i+1)))
		b.WriteString(line)
		if i < len(lines)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Value returns the raw editor content.
func (m Model) Value() string {
	return m.textarea.Value()
}

// SetValue replaces the editor content.
func (m *Model) SetValue(s string) {
	m.textarea.SetValue(s)
}

// SetSize updates the dimensions, border included.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h

	innerW := w - 2
	innerH := h - 2
	if innerW < 1 {
		innerW = 1
	}
	if innerH < 1 {
		innerH = 1
	}
	m.textarea.SetWidth(innerW)
	m.textarea.SetHeight(innerH)
}

// Focus gives input focus to the editor.
func (m *Model) Focus() {
	m.focused = true
	m.textarea.Focus()
}

// Blur removes input focus.
func (m *Model) Blur() {
	m.focused = false
	m.textarea.Blur()
}

// Focused reports whether the editor has input focus.
func (m Model) Focused() bool {
	return m.focused
}

// Modified reports whether the content changed since ResetModified.
func (m Model) Modified() bool {
	return m.modified
}

// ResetModified clears the modification flag, typically after execution.
func (m *Model) ResetModified() {
	m.modified = false
}

// InsertText appends text to the content, separating it from existing text
// with a space when needed. Used when picking object names from the
// explorer.
func (m *Model) InsertText(text string) {
	current := m.textarea.Value()
	if current == "" {
		m.textarea.SetValue(text)
	} else {
		last := current[len(current)-1]
		if last != ' ' && last != '\n' && last != '\t' {
			text = " " + text
		}
		m.textarea.SetValue(current + text)
	}
	m.modified = true
}
