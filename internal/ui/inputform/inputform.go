// Package inputform implements the bracketed field protocol used by
// parameter prompts and server dialogs. Each field renders as
// "Label: [value   ]" with a bracket region that resizes while typing and
// shrinks back to its normalized width when editing ends; empty fields
// show their placeholder while not being edited.
package inputform

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/dbnav/internal/theme"
)

const (
	defaultFieldWidth = 20
	minFieldWidth     = 8
)

// Field is one editable input field.
type Field struct {
	Label       string
	Placeholder string

	value  []rune
	cursor int
}

// NewField creates a field with an optional initial value.
func NewField(label, placeholder, value string) *Field {
	return &Field{
		Label:       label,
		Placeholder: placeholder,
		value:       []rune(value),
		cursor:      len([]rune(value)),
	}
}

// Value returns the field's current text.
func (f *Field) Value() string { return string(f.value) }

// width is the bracket region size: the field never shrinks below the
// default while a longer value widens it.
func (f *Field) width() int {
	w := defaultFieldWidth
	if w < minFieldWidth {
		w = minFieldWidth
	}
	if len(f.value) > w {
		w = len(f.value)
	}
	return w
}

// Model is the input form component.
type Model struct {
	title   string
	fields  []*Field
	active  int
	editing bool
	visible bool

	onSubmit func(values []string) tea.Msg
	onCancel func() tea.Msg
}

// New creates a form. onSubmit receives final values in field order;
// onCancel may be nil.
func New(title string, fields []*Field, onSubmit func(values []string) tea.Msg, onCancel func() tea.Msg) Model {
	return Model{
		title:    title,
		fields:   fields,
		onSubmit: onSubmit,
		onCancel: onCancel,
	}
}

// Init returns no initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Show makes the form visible with the first field selected.
func (m *Model) Show() {
	m.visible = true
	m.active = 0
	m.editing = false
}

// Hide makes the form invisible.
func (m *Model) Hide() {
	m.visible = false
	m.editing = false
}

// Visible returns whether the form is shown.
func (m Model) Visible() bool { return m.visible }

// Editing returns whether a field is in the editing state.
func (m Model) Editing() bool { return m.editing }

// Values returns the current field values in order.
func (m Model) Values() []string {
	out := make([]string, len(m.fields))
	for i, f := range m.fields {
		out[i] = f.Value()
	}
	return out
}

// Update handles form input.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.visible || len(m.fields) == 0 {
		return m, nil
	}
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.editing {
		return m.updateEditing(key)
	}
	return m.updateDisplay(key)
}

func (m Model) updateDisplay(key tea.KeyMsg) (Model, tea.Cmd) {
	switch key.String() {
	case "tab", "down", "j":
		m.active = (m.active + 1) % len(m.fields)
	case "shift+tab", "up", "k":
		m.active = (m.active - 1 + len(m.fields)) % len(m.fields)
	case "enter", "i":
		// Entering edit clears the placeholder and puts the cursor at
		// the end of the current value.
		m.editing = true
		f := m.fields[m.active]
		f.cursor = len(f.value)
	case "ctrl+s":
		if m.onSubmit != nil {
			values := m.Values()
			submit := m.onSubmit
			m.visible = false
			return m, func() tea.Msg { return submit(values) }
		}
	case "esc", "q":
		m.visible = false
		if m.onCancel != nil {
			cancel := m.onCancel
			return m, func() tea.Msg { return cancel() }
		}
	}
	return m, nil
}

func (m Model) updateEditing(key tea.KeyMsg) (Model, tea.Cmd) {
	f := m.fields[m.active]

	switch key.Type {
	case tea.KeyEnter, tea.KeyEsc:
		// Leaving edit normalizes the field width and restores the
		// placeholder when the value is empty; both happen in render.
		m.editing = false
	case tea.KeyLeft:
		if f.cursor > 0 {
			f.cursor--
		}
	case tea.KeyRight:
		if f.cursor < len(f.value) {
			f.cursor++
		}
	case tea.KeyHome:
		f.cursor = 0
	case tea.KeyEnd:
		f.cursor = len(f.value)
	case tea.KeyBackspace:
		if f.cursor > 0 {
			f.value = append(f.value[:f.cursor-1], f.value[f.cursor:]...)
			f.cursor--
		}
	case tea.KeyDelete:
		if f.cursor < len(f.value) {
			f.value = append(f.value[:f.cursor], f.value[f.cursor+1:]...)
		}
	case tea.KeyTab:
		// Tab commits the field and moves on, matching the display
		// navigation order.
		m.editing = false
		m.active = (m.active + 1) % len(m.fields)
	default:
		if len(key.Runes) > 0 {
			f.value = append(f.value[:f.cursor], append(append([]rune{}, key.Runes...), f.value[f.cursor:]...)...)
			f.cursor += len(key.Runes)
		}
	}
	return m, nil
}

// View renders the field list.
func (m Model) View() string {
	if !m.visible {
		return ""
	}
	th := theme.Current

	labelWidth := 0
	for _, f := range m.fields {
		if len(f.Label) > labelWidth {
			labelWidth = len(f.Label)
		}
	}

	var rows []string
	if m.title != "" {
		rows = append(rows, th.FloatTitle.Render(m.title), "")
	}
	for i, f := range m.fields {
		rows = append(rows, m.renderField(f, labelWidth, i == m.active))
	}
	rows = append(rows, "", th.MutedText.Render("enter edit · tab next · ctrl+s submit · esc cancel"))
	return strings.Join(rows, "\n")
}

func (m Model) renderField(f *Field, labelWidth int, active bool) string {
	th := theme.Current

	label := th.InputLabel.Render(padRight(f.Label+":", labelWidth+1))
	width := f.width()

	text := string(f.value)
	style := th.InputValue
	if len(f.value) == 0 && !(active && m.editing) {
		text = f.Placeholder
		style = th.InputPlaceholder
	}
	if active && m.editing {
		style = th.InputEditing
	}

	region := style.Render(padRight(text, width))
	marker := "  "
	if active {
		marker = "> "
	}
	return marker + label + " [" + region + "]"
}

func padRight(s string, width int) string {
	if lipgloss.Width(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-lipgloss.Width(s))
}
