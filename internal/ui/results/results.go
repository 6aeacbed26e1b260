// Package results provides the virtualized grid that displays query
// results: zebra-striped rows, auto-sized columns, and a footer with row
// count and timing.
package results

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/sadopc/dbnav/internal/adapter"
	"github.com/sadopc/dbnav/internal/theme"
)

// maxColWidth caps a single column's width.
const maxColWidth = 50

// Model is the results grid. Rows are fully materialized by the session's
// Execute; the grid only virtualizes rendering.
type Model struct {
	table     table.Model
	columns   []adapter.ColumnMeta
	tableCols []table.Column
	rows      [][]string
	totalRows int64
	viewTop   int
	width     int
	height    int
	focused   bool
	loading   bool
	message   string
	queryTime time.Duration
	err       error
}

// New creates an empty results grid.
func New() Model {
	t := table.New(
		table.WithFocused(false),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		Bold(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(lipgloss.Color("240"))
	s.Selected = s.Selected.Bold(false)
	t.SetStyles(s)

	return Model{
		table:     t,
		totalRows: -1,
	}
}

// Init returns no initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the grid.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.focused {
		return m, nil
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	m.updateViewTop()
	return m, cmd
}

// View renders the grid.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	th := theme.Current
	contentHeight := m.height - 3
	if contentHeight < 1 {
		contentHeight = 1
	}

	if m.loading && len(m.rows) == 0 {
		return m.wrapBorder(th.MutedText.Render("  Executing query..."), contentHeight)
	}
	if m.err != nil {
		return m.wrapBorder(th.ErrorText.Render("  Error: "+m.err.Error()), contentHeight)
	}
	if m.message != "" && len(m.rows) == 0 {
		msgText := th.SuccessText.Render("  " + m.message)
		if m.queryTime > 0 {
			msgText += th.MutedText.Render("  (" + formatDuration(m.queryTime) + ")")
		}
		return m.wrapBorder(msgText, contentHeight)
	}
	if len(m.columns) == 0 && len(m.rows) == 0 {
		placeholder := th.MutedText.Render("  No results — run a query or pick an object action")
		return m.wrapBorder(placeholder, contentHeight)
	}

	content := lipgloss.JoinVertical(lipgloss.Left, m.renderTable(), m.buildFooter())
	return m.wrapBorder(content, 0)
}

// SetResults loads a complete result into the grid.
func (m *Model) SetResults(result *adapter.QueryResult) {
	m.err = nil
	m.loading = false
	m.queryTime = result.Duration
	m.viewTop = 0

	if !result.IsSelect {
		m.message = result.Message
		m.columns = nil
		m.rows = nil
		m.totalRows = result.RowCount
		m.table.SetRows(nil)
		m.table.SetColumns(nil)
		return
	}

	m.message = ""
	m.columns = result.Columns
	m.rows = result.Rows
	m.totalRows = result.RowCount
	if m.totalRows < 0 {
		m.totalRows = int64(len(result.Rows))
	}
	m.rebuildTable()
}

// Clear empties the grid, e.g. when switching to a buffer with no result
// yet.
func (m *Model) Clear() {
	m.err = nil
	m.loading = false
	m.message = ""
	m.columns = nil
	m.rows = nil
	m.totalRows = -1
	m.queryTime = 0
	m.viewTop = 0
	m.table.SetRows(nil)
	m.table.SetColumns(nil)
}

// SetSize updates dimensions and recalculates the column layout.
func (m *Model) SetSize(w, h int) {
	if m.width == w && m.height == h {
		return
	}
	m.width = w
	m.height = h

	innerW := w - 2
	if innerW < 0 {
		innerW = 0
	}
	innerH := h - 3
	if innerH < 1 {
		innerH = 1
	}
	m.table.SetWidth(innerW)
	m.table.SetHeight(innerH)

	if len(m.columns) > 0 {
		m.tableCols = autoSizeColumns(m.columns, m.rows, m.contentWidth())
		m.table.SetColumns(m.tableCols)
	}
}

// SetLoading sets the loading state.
func (m *Model) SetLoading(loading bool) {
	m.loading = loading
	if loading {
		m.err = nil
	}
}

// SetError sets the error state.
func (m *Model) SetError(err error) {
	m.err = err
	m.loading = false
}

// Focus gives the grid keyboard focus.
func (m *Model) Focus() {
	m.focused = true
	m.table.Focus()
}

// Blur removes keyboard focus.
func (m *Model) Blur() {
	m.focused = false
	m.table.Blur()
}

// Focused reports whether the grid is focused.
func (m Model) Focused() bool {
	return m.focused
}

// SelectedRow returns the data of the row under the cursor, or nil.
func (m Model) SelectedRow() []string {
	row := m.table.SelectedRow()
	if len(row) == 0 {
		return nil
	}
	return row
}

// RowCount returns the total number of rows, -1 when unknown.
func (m Model) RowCount() int64 {
	return m.totalRows
}

// Columns returns the current column metadata.
func (m Model) Columns() []adapter.ColumnMeta {
	return m.columns
}

// Rows returns the loaded rows.
func (m Model) Rows() [][]string {
	return m.rows
}

func (m *Model) rebuildTable() {
	m.tableCols = autoSizeColumns(m.columns, m.rows, m.contentWidth())
	m.table.SetColumns(m.tableCols)

	tableRows := make([]table.Row, len(m.rows))
	for i, row := range m.rows {
		tableRows[i] = table.Row(row)
	}
	m.table.SetRows(tableRows)
}

func (m *Model) contentWidth() int {
	w := m.width - 2
	if w < 10 {
		w = 10
	}
	return w
}

// visibleDataHeight is the number of data rows shown, after the header row
// and its border line.
func (m Model) visibleDataHeight() int {
	h := m.height - 3 - 2
	if h < 1 {
		h = 1
	}
	return h
}

func (m *Model) updateViewTop() {
	cursor := m.table.Cursor()
	visH := m.visibleDataHeight()
	if cursor < m.viewTop {
		m.viewTop = cursor
	}
	if cursor >= m.viewTop+visH {
		m.viewTop = cursor - visH + 1
	}
	if m.viewTop < 0 {
		m.viewTop = 0
	}
}

func (m Model) renderTable() string {
	if len(m.tableCols) == 0 {
		return ""
	}

	th := theme.Current
	contentW := m.contentWidth()
	visH := m.visibleDataHeight()

	var sb strings.Builder
	sb.WriteString(m.renderHeader(th, contentW))
	sb.WriteByte('\n')
	sb.WriteString(strings.Repeat("─", contentW))
	sb.WriteByte('\n')

	cursor := m.table.Cursor()
	nRows := len(m.rows)
	for i := 0; i < visH; i++ {
		rowIdx := m.viewTop + i
		if rowIdx >= nRows {
			sb.WriteString(strings.Repeat(" ", contentW))
		} else {
			sb.WriteString(m.renderDataRow(th, rowIdx, rowIdx == cursor, contentW))
		}
		if i < visH-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func (m Model) renderHeader(th *theme.Theme, totalWidth int) string {
	var sb strings.Builder
	used := 0
	for _, col := range m.tableCols {
		cellWidth := col.Width + 2
		text := runewidth.Truncate(col.Title, col.Width, "…")
		sb.WriteString(th.ResultsHeader.Render(padRight(text, col.Width)))
		used += cellWidth
	}
	if used < totalWidth {
		sb.WriteString(th.ResultsHeader.Padding(0).Render(strings.Repeat(" ", totalWidth-used)))
	}
	return sb.String()
}

func (m Model) renderDataRow(th *theme.Theme, rowIdx int, selected bool, totalWidth int) string {
	var cellStyle lipgloss.Style
	switch {
	case selected:
		cellStyle = th.ResultsSelectedRow
	case rowIdx%2 == 1:
		cellStyle = th.ResultsCellAlt
	default:
		cellStyle = th.ResultsCell
	}

	row := m.rows[rowIdx]
	var sb strings.Builder
	used := 0
	for j, col := range m.tableCols {
		cellWidth := col.Width + 2
		var val string
		if j < len(row) {
			val = row[j]
		}
		text := runewidth.Truncate(val, col.Width, "…")
		sb.WriteString(cellStyle.Render(padRight(text, col.Width)))
		used += cellWidth
	}
	if used < totalWidth {
		sb.WriteString(cellStyle.Padding(0).Render(strings.Repeat(" ", totalWidth-used)))
	}
	return sb.String()
}

func padRight(s string, w int) string {
	sw := runewidth.StringWidth(s)
	if sw >= w {
		return s
	}
	return s + strings.Repeat(" ", w-sw)
}

func (m Model) buildFooter() string {
	th := theme.Current
	var parts []string

	if m.totalRows >= 0 {
		parts = append(parts, fmt.Sprintf("%d rows", m.totalRows))
	}
	if m.queryTime > 0 {
		parts = append(parts, formatDuration(m.queryTime))
	}
	if m.loading {
		parts = append(parts, "loading...")
	}
	if len(parts) == 0 {
		return ""
	}
	return th.MutedText.Render("  " + strings.Join(parts, " | "))
}

func (m Model) wrapBorder(content string, minHeight int) string {
	th := theme.Current

	var borderStyle lipgloss.Style
	if m.focused {
		borderStyle = th.FocusedBorder
	} else {
		borderStyle = th.UnfocusedBorder
	}

	innerW := m.width - 2
	if innerW < 0 {
		innerW = 0
	}
	style := borderStyle.Width(innerW)
	if minHeight > 0 {
		style = style.Height(minHeight)
	}
	return style.Render(content)
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%d us", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%d ms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.2f s", d.Seconds())
	default:
		return fmt.Sprintf("%.1f min", d.Minutes())
	}
}

// autoSizeColumns calculates column widths from header names and a sample
// of the data, scaling down proportionally when the total exceeds the
// available width.
func autoSizeColumns(cols []adapter.ColumnMeta, rows [][]string, maxWidth int) []table.Column {
	if len(cols) == 0 {
		return nil
	}
	numCols := len(cols)

	widths := make([]int, numCols)
	for i, c := range cols {
		widths[i] = len(c.Name)
		if widths[i] < 4 {
			widths[i] = 4
		}
	}

	sampleSize := len(rows)
	if sampleSize > 100 {
		sampleSize = 100
	}
	for i := 0; i < sampleSize; i++ {
		for j := 0; j < numCols && j < len(rows[i]); j++ {
			if l := len(rows[i][j]); l > widths[j] {
				widths[j] = l
			}
		}
	}

	for i := range widths {
		if widths[i] > maxColWidth {
			widths[i] = maxColWidth
		}
	}

	// Spacing comes from the Cell style's Padding(0, 1): 2 characters per
	// column.
	paddingWidth := numCols * 2
	totalDesired := paddingWidth
	for _, w := range widths {
		totalDesired += w
	}

	available := maxWidth - paddingWidth
	if available < numCols {
		available = numCols
	}
	if totalDesired > maxWidth {
		totalColWidth := totalDesired - paddingWidth
		for i := range widths {
			widths[i] = (widths[i] * available) / totalColWidth
			if widths[i] < 2 {
				widths[i] = 2
			}
		}
	}

	tableCols := make([]table.Column, numCols)
	for i, c := range cols {
		tableCols[i] = table.Column{Title: c.Name, Width: widths[i]}
	}
	return tableCols
}
