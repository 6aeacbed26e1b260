// Package explorer implements the object tree pane: server roots grouped
// into user-defined groups, lazily loaded databases, schemas, and objects,
// with fuzzy filtering and per-node async loading.
package explorer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/sadopc/dbnav/internal/catalog"
	appmsg "github.com/sadopc/dbnav/internal/msg"
	"github.com/sadopc/dbnav/internal/servergroup"
	"github.com/sadopc/dbnav/internal/theme"
)

// row is one rendered line of the tree. Exactly one of entity, group, or
// addServer is set.
type row struct {
	entity    catalog.Entity
	depth     int
	group     *servergroup.Group
	addServer bool
}

// Model is the explorer pane.
type Model struct {
	servers []*catalog.Server
	groups  *servergroup.Store

	flat   []row
	cursor int
	offset int
	width  int
	height int

	focused   bool
	filter    string
	filtering bool

	spin     spinner.Model
	inflight map[catalog.Entity]inflightLoad
	loadSeq  uint64
	timeout  time.Duration

	// pendingGoto holds synonym resolutions waiting on a server load.
	pendingGoto map[catalog.Entity]*catalog.Synonym
}

// New creates an explorer. groups may be nil when server grouping is not
// configured; timeout bounds each metadata load (the task default when
// zero).
func New(groups *servergroup.Store, timeout time.Duration) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		groups:      groups,
		spin:        sp,
		inflight:    make(map[catalog.Entity]inflightLoad),
		pendingGoto: make(map[catalog.Entity]*catalog.Synonym),
		timeout:     timeout,
	}
}

// Init returns no initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// SetServers replaces the server roots.
func (m *Model) SetServers(servers []*catalog.Server) {
	m.servers = servers
	m.flatten()
}

// AddServer appends a server root.
func (m *Model) AddServer(s *catalog.Server) {
	m.servers = append(m.servers, s)
	m.flatten()
}

// Servers returns the server roots.
func (m Model) Servers() []*catalog.Server { return m.servers }

// Selected returns the entity under the cursor, or nil on a non-entity row.
func (m Model) Selected() catalog.Entity {
	if m.cursor >= len(m.flat) {
		return nil
	}
	return m.flat[m.cursor].entity
}

// SetSize sets the pane dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Focus focuses the pane.
func (m *Model) Focus() { m.focused = true }

// Blur unfocuses the pane.
func (m *Model) Blur() { m.focused = false }

// Focused reports whether the pane is focused.
func (m Model) Focused() bool { return m.focused }

// Loading reports whether e has a load in flight.
func (m Model) Loading(e catalog.Entity) bool {
	_, ok := m.inflight[e]
	return ok
}

// Update handles explorer messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case appmsg.TreeChangedMsg:
		m.flatten()

	case appmsg.NodeLoadedMsg:
		return m.handleNodeLoaded(msg)

	case synonymResolvedMsg:
		return m.handleSynonymResolved(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		if len(m.inflight) == 0 {
			return m, nil
		}
		return m, cmd

	case tea.KeyMsg:
		if !m.focused {
			return m, nil
		}
		if m.filtering {
			return m.updateFilter(msg)
		}
		return m.updateKeys(msg)
	}

	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.ensureVisible()
		}
	case "down", "j":
		if m.cursor < len(m.flat)-1 {
			m.cursor++
			m.ensureVisible()
		}
	case "enter", "right", "l":
		return m.toggle()
	case "left", "h":
		m.collapseOrAscend()
	case "home", "g":
		m.cursor = 0
		m.offset = 0
	case "end", "G":
		m.cursor = len(m.flat) - 1
		m.ensureVisible()
	case "r":
		return m.reload()
	case "x":
		m.cancelSelected()
	case "/":
		m.filtering = true
		m.filter = ""
	case "esc":
		if m.filter != "" {
			m.filter = ""
			m.flatten()
		}
	}
	return m, nil
}

func (m Model) updateFilter(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.filtering = false
	case tea.KeyEsc:
		m.filtering = false
		m.filter = ""
		m.flatten()
	case tea.KeyBackspace:
		if len(m.filter) > 0 {
			r := []rune(m.filter)
			m.filter = string(r[:len(r)-1])
			m.flatten()
		}
	default:
		if len(msg.Runes) > 0 {
			m.filter += string(msg.Runes)
			m.flatten()
		}
	}
	return m, nil
}

// toggle acts on the row under the cursor: pseudo rows get their own
// handling, actions dispatch, everything else expands or collapses with an
// async load when children are missing.
func (m Model) toggle() (Model, tea.Cmd) {
	if m.cursor >= len(m.flat) {
		return m, nil
	}
	r := m.flat[m.cursor]

	switch {
	case r.addServer:
		return m, func() tea.Msg { return appmsg.AddServerRequestMsg{} }

	case r.group != nil:
		if m.groups != nil {
			m.groups.ToggleExpanded(r.group.Name)
		}
		m.flatten()
		return m, nil
	}

	if a, ok := r.entity.(*catalog.Action); ok {
		return m, m.executeAction(a)
	}

	if db, ok := r.entity.(*catalog.Database); ok && !db.IsConnected() {
		db.Connect()
	}

	e := r.entity
	catalog.Toggle(context.Background(), e, true)
	if e.UI().Expanded && !e.Loaded() {
		cmd := m.startLoad(e)
		m.flatten()
		return m, cmd
	}
	m.flatten()
	return m, nil
}

// collapseOrAscend collapses an expanded node; on a collapsed node the
// cursor jumps to its parent's row.
func (m *Model) collapseOrAscend() {
	if m.cursor >= len(m.flat) {
		return
	}
	r := m.flat[m.cursor]
	if r.group != nil {
		if m.groups != nil && r.group.Expanded {
			m.groups.ToggleExpanded(r.group.Name)
			m.flatten()
		}
		return
	}
	if r.entity == nil {
		return
	}
	if r.entity.UI().Expanded {
		r.entity.UI().Expanded = false
		m.flatten()
		return
	}
	if parent := r.entity.Parent(); parent != nil {
		m.moveCursorTo(parent)
	}
}

// reload invalidates the selected node's cached subtree and fetches it
// again.
func (m Model) reload() (Model, tea.Cmd) {
	e := m.Selected()
	if e == nil {
		return m, nil
	}
	catalog.Invalidate(e)
	cmd := m.startLoad(e)
	m.flatten()
	return m, cmd
}

// cancelSelected cancels the in-flight load of the node under the cursor.
func (m *Model) cancelSelected() {
	e := m.Selected()
	if e == nil {
		return
	}
	if l, ok := m.inflight[e]; ok {
		l.handle.Cancel()
	}
}

// CancelAll cancels every in-flight load. Used on disconnect and shutdown.
func (m *Model) CancelAll() {
	for _, l := range m.inflight {
		l.handle.Cancel()
	}
}

// moveCursorTo positions the cursor on e's row, expanding ancestors first
// so the row exists.
func (m *Model) moveCursorTo(e catalog.Entity) {
	for cur := e.Parent(); cur != nil; cur = cur.Parent() {
		cur.UI().Expanded = true
	}
	m.flatten()
	for i, r := range m.flat {
		if r.entity == e {
			m.cursor = i
			m.ensureVisible()
			return
		}
	}
}

func (m *Model) flatten() {
	m.flat = nil
	grouped := make(map[string]bool)

	if m.groups != nil {
		for _, g := range m.groups.Groups {
			m.flat = append(m.flat, row{group: g})
			for _, name := range g.Servers {
				grouped[name] = true
				if g.Expanded {
					if s := m.findServer(name); s != nil {
						m.flattenEntity(s, 1)
					}
				}
			}
		}
	}
	for _, s := range m.servers {
		if !grouped[s.Name()] {
			m.flattenEntity(s, 0)
		}
	}
	m.flat = append(m.flat, row{addServer: true})

	if m.filter != "" {
		m.applyFilter()
	}

	if m.cursor >= len(m.flat) {
		m.cursor = len(m.flat) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) flattenEntity(e catalog.Entity, depth int) {
	m.flat = append(m.flat, row{entity: e, depth: depth})
	if e.UI().Expanded {
		for _, c := range e.Children() {
			m.flattenEntity(c, depth+1)
		}
	}
}

// applyFilter keeps entity rows whose label fuzzy-matches the filter,
// best match first. Group headings and the add-server row drop out while a
// filter is active.
func (m *Model) applyFilter() {
	var candidates []row
	var labels []string
	for _, r := range m.flat {
		if r.entity == nil {
			continue
		}
		candidates = append(candidates, r)
		labels = append(labels, entityLabel(r.entity))
	}
	matches := fuzzy.Find(m.filter, labels)
	filtered := make([]row, 0, len(matches))
	for _, match := range matches {
		filtered = append(filtered, candidates[match.Index])
	}
	m.flat = filtered
}

func (m *Model) findServer(name string) *catalog.Server {
	for _, s := range m.servers {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

func (m *Model) ensureVisible() {
	contentHeight := m.contentHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+contentHeight {
		m.offset = m.cursor - contentHeight + 1
	}
}

func (m Model) contentHeight() int {
	h := m.height - 3
	if h < 1 {
		h = 1
	}
	return h
}

// View renders the pane.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	th := theme.Current

	innerW := m.width - 2
	innerH := m.height - 2
	if innerW < 1 {
		innerW = 1
	}
	if innerH < 1 {
		innerH = 1
	}

	title := " Explorer "
	if m.filtering || m.filter != "" {
		title = fmt.Sprintf(" Explorer /%s ", m.filter)
	}
	titleLine := th.ExplorerTitle.Width(innerW).Render(title)

	if len(m.flat) == 0 {
		content := titleLine + "\n\n  No servers configured."
		return m.borderStyle().Width(innerW).Height(innerH).Render(content)
	}

	contentHeight := innerH - 1
	if contentHeight < 1 {
		contentHeight = 1
	}
	end := m.offset + contentHeight
	if end > len(m.flat) {
		end = len(m.flat)
	}

	var lines []string
	for i := m.offset; i < end; i++ {
		lines = append(lines, m.renderRow(m.flat[i], i == m.cursor, th))
	}
	content := titleLine + "\n" + strings.Join(lines, "\n")
	return m.borderStyle().Width(innerW).Height(innerH).Render(content)
}

func (m Model) renderRow(r row, selected bool, th *theme.Theme) string {
	var line string
	var style lipgloss.Style

	switch {
	case r.addServer:
		line = "+ Add server"
		style = th.ExplorerAction
	case r.group != nil:
		marker := "▶"
		if r.group.Expanded {
			marker = "▼"
		}
		line = fmt.Sprintf("%s %s (%d)", marker, r.group.Name, len(r.group.Servers))
		style = th.ExplorerGroup
	default:
		line = m.renderEntity(r)
		style = m.entityStyle(r.entity, th)
	}

	maxW := m.width - 4
	if maxW < 1 {
		maxW = 1
	}
	runes := []rune(line)
	if len(runes) > maxW {
		line = string(runes[:maxW-1]) + "…"
		runes = []rune(line)
	}
	if pad := maxW - len(runes); pad > 0 {
		line += strings.Repeat(" ", pad)
	}

	if selected {
		return th.ExplorerSelected.Render(line)
	}
	return style.Render(line)
}

func (m Model) renderEntity(r row) string {
	e := r.entity
	indent := strings.Repeat("  ", r.depth)

	expandIcon := "  "
	if expandable(e) {
		if e.UI().Expanded {
			expandIcon = "▼ "
		} else {
			expandIcon = "▶ "
		}
	}

	label := entityLabel(e)
	switch {
	case m.Loading(e):
		label = m.spin.View() + " " + label
	case e.UI().Err != "":
		label = "✗ " + label
	case e.Kind() == catalog.KindServer:
		label = stateGlyph(e.(*catalog.Server)) + " " + label
	}

	return indent + expandIcon + kindGlyph(e.Kind()) + label
}

func (m Model) entityStyle(e catalog.Entity, th *theme.Theme) lipgloss.Style {
	switch {
	case m.Loading(e):
		return th.ExplorerLoading
	case e.UI().Err != "":
		return th.ExplorerError
	case e.Kind() == catalog.KindAction:
		return th.ExplorerAction
	case e.Kind() == catalog.KindGroup:
		return th.ExplorerGroup
	default:
		return th.Kind(e.Kind())
	}
}

func (m Model) borderStyle() lipgloss.Style {
	th := theme.Current
	if m.focused {
		return th.FocusedBorder
	}
	return th.UnfocusedBorder
}

// expandable reports whether the node can hold children: loaded leaves
// report false, unloaded loadable nodes report true even with no children
// yet.
func expandable(e catalog.Entity) bool {
	if len(e.Children()) > 0 {
		return true
	}
	if e.Loaded() {
		return false
	}
	switch e.Kind() {
	case catalog.KindColumn, catalog.KindIndex, catalog.KindConstraint,
		catalog.KindParameter, catalog.KindAction:
		return false
	}
	return true
}

type labeled interface {
	Label() string
}

func entityLabel(e catalog.Entity) string {
	if l, ok := e.(labeled); ok {
		return l.Label()
	}
	if t, ok := e.(*catalog.Table); ok && t.RowCount > 0 {
		return fmt.Sprintf("%s (%d)", t.Name(), t.RowCount)
	}
	return e.Name()
}

func stateGlyph(s *catalog.Server) string {
	switch s.State() {
	case catalog.StateConnected:
		return "●"
	case catalog.StateConnecting:
		return "◐"
	case catalog.StateError:
		return "✗"
	default:
		return "○"
	}
}

func kindGlyph(k catalog.Kind) string {
	switch k {
	case catalog.KindServer:
		return ""
	case catalog.KindDatabase:
		return "▣ "
	case catalog.KindSchema:
		return "▪ "
	case catalog.KindTable:
		return "◆ "
	case catalog.KindView:
		return "◇ "
	case catalog.KindProcedure:
		return "⚙ "
	case catalog.KindFunction:
		return "ƒ "
	case catalog.KindSynonym:
		return "→ "
	case catalog.KindGroup:
		return "≡ "
	case catalog.KindAction:
		return "· "
	default:
		return "  "
	}
}
